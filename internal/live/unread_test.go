package live

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/feed"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/mocks"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
)

func waitForCount(t *testing.T, ch <-chan int, want int) {
	t.Helper()
	for {
		select {
		case got := <-ch:
			if got == want {
				return
			}
		case <-time.After(time.Second):
			t.Fatalf("timed out waiting for count %d", want)
		}
	}
}

func TestUnreadTrackerNoRoleHoldsZero(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	broker := feed.NewBroker()

	counts := make(chan int, 1)
	tracker := NewUnreadTracker(messages, broker, models.Identity{UserID: 1, Role: models.RoleNone}, func(c int) { counts <- c })

	tracker.Run(context.Background())

	require.Equal(t, 0, tracker.Count())
	require.Equal(t, TrackerReady, tracker.State())
	waitForCount(t, counts, 0)
	messages.AssertNotCalled(t, "CountUnreadForUser", mock.Anything, mock.Anything)
}

func TestUnreadTrackerRecountsOnMessageEvents(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	broker := feed.NewBroker()

	messages.On("CountUnreadForUser", mock.Anything, int64(1)).Return(3, nil).Once()
	messages.On("CountUnreadForUser", mock.Anything, int64(1)).Return(5, nil)

	counts := make(chan int, 8)
	tracker := NewUnreadTracker(messages, broker, models.Identity{UserID: 1, Role: models.RoleGuardian}, func(c int) { counts <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx)

	// Once the initial count lands the subscription is already registered,
	// so a single publish must reach the tracker.
	waitForCount(t, counts, 3)
	broker.Publish(feed.Event{Collection: feed.Messages, Kind: feed.Insert, ConversationID: 9, Message: &models.Message{ID: 1}})
	waitForCount(t, counts, 5)
}

func TestUnreadTrackerCatchesEventDuringInitialRecount(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	broker := feed.NewBroker()

	started := make(chan struct{})
	release := make(chan struct{})
	messages.On("CountUnreadForUser", mock.Anything, int64(1)).Run(func(mock.Arguments) {
		close(started)
		<-release
	}).Return(0, nil).Once()
	messages.On("CountUnreadForUser", mock.Anything, int64(1)).Return(1, nil)

	counts := make(chan int, 4)
	tracker := NewUnreadTracker(messages, broker, models.Identity{UserID: 1, Role: models.RoleGuardian}, func(c int) { counts <- c })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx)

	// An insert arriving while the initial recount is still querying must
	// be buffered and trigger a follow-up recount.
	<-started
	broker.Publish(feed.Event{Collection: feed.Messages, Kind: feed.Insert, ConversationID: 9, Message: &models.Message{ID: 1}})
	close(release)

	waitForCount(t, counts, 1)
}

func TestUnreadTrackerKeepsLastValueOnError(t *testing.T) {
	messages := new(mocks.MessageRepositoryMock)
	broker := feed.NewBroker()

	messages.On("CountUnreadForUser", mock.Anything, int64(1)).Return(4, nil).Once()
	messages.On("CountUnreadForUser", mock.Anything, int64(1)).Return(0, context.DeadlineExceeded).Once()

	tracker := NewUnreadTracker(messages, broker, models.Identity{UserID: 1, Role: models.RoleGuardian}, nil)

	tracker.Recount(context.Background())
	require.Equal(t, 4, tracker.Count())

	tracker.Recount(context.Background())
	require.Equal(t, 4, tracker.Count())
	require.Equal(t, TrackerReady, tracker.State())

	messages.AssertExpectations(t)
}
