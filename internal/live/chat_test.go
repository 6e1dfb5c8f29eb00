package live

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/feed"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/mocks"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/repositories"
)

func openTestSession(t *testing.T, conversations *mocks.ConversationRepositoryMock, messages *mocks.MessageRepositoryMock, profiles *mocks.ProfileRepositoryMock, broker *feed.Broker, viewer models.Identity, onAppend func(models.Message)) *ChatSession {
	t.Helper()
	session := NewChatSession(conversations, messages, profiles, broker, viewer, 10, onAppend)
	_, _, err := session.Open(context.Background())
	require.NoError(t, err)
	t.Cleanup(session.Close)
	return session
}

func TestChatSessionOpenLoadsHeaderAndHistory(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	profiles := new(mocks.ProfileRepositoryMock)
	broker := feed.NewBroker()

	viewer := models.Identity{UserID: 1, Role: models.RoleGuardian}

	conversations.On("GetForParticipant", mock.Anything, int64(10), int64(1)).Return(models.Conversation{ID: 10, GuardianID: 1, ProfessionalID: 2}, nil).Once()
	profiles.On("GetGuardian", mock.Anything, int64(1)).Return(models.GuardianProfile{UserID: 1, DisplayName: "Ana"}, nil).Once()
	profiles.On("GetProfessional", mock.Anything, int64(2)).Return(models.ProfessionalProfile{UserID: 2, DisplayName: "Dr. Field"}, nil).Once()
	messages.On("ListByConversation", mock.Anything, int64(10)).Return([]models.Message{
		{ID: 1, ConversationID: 10, SenderID: 2, Body: "hello"},
		{ID: 2, ConversationID: 10, SenderID: 1, Body: "hi"},
	}, nil).Once()

	marked := make(chan struct{})
	messages.On("MarkConversationRead", mock.Anything, int64(10), int64(1)).Run(func(mock.Arguments) { close(marked) }).Return(nil).Once()

	session := NewChatSession(conversations, messages, profiles, broker, viewer, 10, nil)
	header, history, err := session.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, "Ana", header.GuardianName)
	assert.Equal(t, "Dr. Field", header.ProfessionalName)
	require.Len(t, history, 2)
	assert.Equal(t, int64(1), history[0].ID)
	assert.Equal(t, int64(2), history[1].ID)

	select {
	case <-marked:
	case <-time.After(time.Second):
		t.Fatal("opening the session did not mark the conversation read")
	}
	messages.AssertExpectations(t)
}

func TestChatSessionOpenHeaderFallbacks(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	profiles := new(mocks.ProfileRepositoryMock)
	broker := feed.NewBroker()

	viewer := models.Identity{UserID: 1, Role: models.RoleGuardian}

	conversations.On("GetForParticipant", mock.Anything, int64(10), int64(1)).Return(models.Conversation{ID: 10, GuardianID: 1, ProfessionalID: 2}, nil).Once()
	profiles.On("GetGuardian", mock.Anything, int64(1)).Return(models.GuardianProfile{}, assert.AnError).Once()
	profiles.On("GetProfessional", mock.Anything, int64(2)).Return(models.ProfessionalProfile{}, assert.AnError).Once()
	messages.On("ListByConversation", mock.Anything, int64(10)).Return([]models.Message{}, nil).Once()
	messages.On("MarkConversationRead", mock.Anything, int64(10), int64(1)).Return(nil).Maybe()

	session := NewChatSession(conversations, messages, profiles, broker, viewer, 10, nil)
	header, _, err := session.Open(context.Background())
	require.NoError(t, err)
	defer session.Close()

	assert.Equal(t, FallbackGuardianLabel, header.GuardianName)
	assert.Equal(t, FallbackProfessionalLabel, header.ProfessionalName)
}

func TestChatSessionOpenNotParticipant(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	broker := feed.NewBroker()

	conversations.On("GetForParticipant", mock.Anything, int64(10), int64(5)).Return(models.Conversation{}, repositories.ErrConversationNotFound).Once()

	session := NewChatSession(conversations, new(mocks.MessageRepositoryMock), new(mocks.ProfileRepositoryMock), broker, models.Identity{UserID: 5, Role: models.RoleGuardian}, 10, nil)
	_, _, err := session.Open(context.Background())
	require.ErrorIs(t, err, repositories.ErrConversationNotFound)
}

func TestChatSessionAppendsLiveInsertsAndMarksRead(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	profiles := new(mocks.ProfileRepositoryMock)
	broker := feed.NewBroker()

	viewer := models.Identity{UserID: 1, Role: models.RoleGuardian}

	conversations.On("GetForParticipant", mock.Anything, int64(10), int64(1)).Return(models.Conversation{ID: 10, GuardianID: 1, ProfessionalID: 2}, nil).Once()
	profiles.On("GetGuardian", mock.Anything, int64(1)).Return(models.GuardianProfile{DisplayName: "Ana"}, nil).Once()
	profiles.On("GetProfessional", mock.Anything, int64(2)).Return(models.ProfessionalProfile{DisplayName: "Dr. Field"}, nil).Once()
	messages.On("ListByConversation", mock.Anything, int64(10)).Return([]models.Message{}, nil).Once()
	messages.On("MarkConversationRead", mock.Anything, int64(10), int64(1)).Return(nil).Maybe()

	markedSingle := make(chan struct{})
	messages.On("MarkMessageRead", mock.Anything, int64(42), int64(1)).Run(func(mock.Arguments) { close(markedSingle) }).Return(nil).Once()

	appended := make(chan models.Message, 1)
	session := openTestSession(t, conversations, messages, profiles, broker, viewer, func(m models.Message) { appended <- m })

	incoming := models.Message{ID: 42, ConversationID: 10, SenderID: 2, SenderRole: models.RoleProfessional, Body: "on my way"}
	broker.Publish(feed.Event{Collection: feed.Messages, Kind: feed.Insert, ConversationID: 10, Message: &incoming})

	select {
	case msg := <-appended:
		assert.Equal(t, int64(42), msg.ID)
	case <-time.After(time.Second):
		t.Fatal("live insert was not appended")
	}

	select {
	case <-markedSingle:
	case <-time.After(time.Second):
		t.Fatal("incoming message was not marked read")
	}

	history := session.History()
	require.Len(t, history, 1)
	assert.Equal(t, "on my way", history[0].Body)
}

func TestChatSessionOwnMessageNotMarkedRead(t *testing.T) {
	conversations := new(mocks.ConversationRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	profiles := new(mocks.ProfileRepositoryMock)
	broker := feed.NewBroker()

	viewer := models.Identity{UserID: 1, Role: models.RoleGuardian}

	conversations.On("GetForParticipant", mock.Anything, int64(10), int64(1)).Return(models.Conversation{ID: 10, GuardianID: 1, ProfessionalID: 2}, nil).Once()
	profiles.On("GetGuardian", mock.Anything, int64(1)).Return(models.GuardianProfile{DisplayName: "Ana"}, nil).Once()
	profiles.On("GetProfessional", mock.Anything, int64(2)).Return(models.ProfessionalProfile{DisplayName: "Dr. Field"}, nil).Once()
	messages.On("ListByConversation", mock.Anything, int64(10)).Return([]models.Message{}, nil).Once()
	messages.On("MarkConversationRead", mock.Anything, int64(10), int64(1)).Return(nil).Maybe()

	appended := make(chan models.Message, 1)
	_ = openTestSession(t, conversations, messages, profiles, broker, viewer, func(m models.Message) { appended <- m })

	own := models.Message{ID: 43, ConversationID: 10, SenderID: 1, SenderRole: models.RoleGuardian, Body: "sent by me"}
	broker.Publish(feed.Event{Collection: feed.Messages, Kind: feed.Insert, ConversationID: 10, Message: &own})

	select {
	case <-appended:
	case <-time.After(time.Second):
		t.Fatal("own insert was not appended")
	}

	messages.AssertNotCalled(t, "MarkMessageRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestChatSessionSendTrimsAndRejectsEmpty(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	broker := feed.NewBroker()

	viewer := models.Identity{UserID: 1, Role: models.RoleGuardian}
	session := NewChatSession(new(mocks.ConversationRepositoryMock), messages, new(mocks.ProfileRepositoryMock), broker, viewer, 10, nil)

	_, err := session.Send(context.Background(), "   \n\t ")
	require.ErrorIs(t, err, ErrEmptyMessage)
	messages.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)

	messages.On("Create", mock.Anything, int64(10), int64(1), models.RoleGuardian, "hello").Return(models.Message{ID: 1, Body: "hello"}, nil).Once()
	msg, err := session.Send(context.Background(), "  hello  ")
	require.NoError(t, err)
	assert.Equal(t, "hello", msg.Body)
	messages.AssertExpectations(t)
}

func TestChatSessionRejectsConcurrentSends(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	broker := feed.NewBroker()

	viewer := models.Identity{UserID: 1, Role: models.RoleGuardian}
	session := NewChatSession(new(mocks.ConversationRepositoryMock), messages, new(mocks.ProfileRepositoryMock), broker, viewer, 10, nil)

	started := make(chan struct{})
	release := make(chan struct{})
	messages.On("Create", mock.Anything, int64(10), int64(1), models.RoleGuardian, "slow").Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(models.Message{ID: 1}, nil).Once()

	firstDone := make(chan error, 1)
	go func() {
		_, err := session.Send(context.Background(), "slow")
		firstDone <- err
	}()

	<-started
	_, err := session.Send(context.Background(), "second")
	require.ErrorIs(t, err, ErrSendInFlight)

	close(release)
	require.NoError(t, <-firstDone)

	// The guard clears once the first send resolves.
	messages.On("Create", mock.Anything, int64(10), int64(1), models.RoleGuardian, "second").Return(models.Message{ID: 2}, nil).Once()
	_, err = session.Send(context.Background(), "second")
	require.NoError(t, err)
}

func TestChatSessionCloseIsIdempotent(t *testing.T) {
	broker := feed.NewBroker()
	session := NewChatSession(new(mocks.ConversationRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.ProfileRepositoryMock), broker, models.Identity{UserID: 1, Role: models.RoleGuardian}, 10, nil)

	session.Close()
	session.Close()
}

func TestChatSessionSendFailurePropagates(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	broker := feed.NewBroker()

	session := NewChatSession(new(mocks.ConversationRepositoryMock), messages, new(mocks.ProfileRepositoryMock), broker, models.Identity{UserID: 1, Role: models.RoleGuardian}, 10, nil)

	messages.On("Create", mock.Anything, int64(10), int64(1), models.RoleGuardian, "hello").Return(models.Message{}, errors.New("insert failed")).Once()

	_, err := session.Send(context.Background(), "hello")
	require.Error(t, err)
}
