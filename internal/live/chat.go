package live

import (
	"context"
	"errors"
	"log"
	"strings"
	"sync"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/feed"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/repositories"
)

var (
	ErrEmptyMessage = errors.New("message body is empty")
	ErrSendInFlight = errors.New("a send is already in flight")
)

// ChatSession is one viewer's open chat window on one conversation: full
// ascending history, live appends, mark-as-read on open and on arrival, and
// guarded sends.
type ChatSession struct {
	conversations  repositories.ConversationRepository
	messages       repositories.MessageRepository
	profiles       repositories.ProfileRepository
	broker         *feed.Broker
	identity       models.Identity
	conversationID int64
	onAppend       func(models.Message)

	mu      sync.Mutex
	header  models.ChatHeader
	history []models.Message
	sending bool
	sub     *feed.Subscription
	done    chan struct{}
}

// NewChatSession constructs a session. onAppend is called for every live
// message appended after Open and may be nil.
func NewChatSession(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	profiles repositories.ProfileRepository,
	broker *feed.Broker,
	identity models.Identity,
	conversationID int64,
	onAppend func(models.Message),
) *ChatSession {
	return &ChatSession{
		conversations:  conversations,
		messages:       messages,
		profiles:       profiles,
		broker:         broker,
		identity:       identity,
		conversationID: conversationID,
		onAppend:       onAppend,
		done:           make(chan struct{}),
	}
}

// Open loads the header and full history, kicks off the bulk mark-as-read,
// and subscribes to the conversation's insert events. The returned history
// is ordered oldest first.
func (s *ChatSession) Open(ctx context.Context) (models.ChatHeader, []models.Message, error) {
	conv, err := s.conversations.GetForParticipant(ctx, s.conversationID, s.identity.UserID)
	if err != nil {
		return models.ChatHeader{}, nil, err
	}

	header := s.buildHeader(ctx, conv)
	msgs, err := s.messages.ListByConversation(ctx, s.conversationID)
	if err != nil {
		return models.ChatHeader{}, nil, err
	}

	s.mu.Lock()
	s.header = header
	s.history = msgs
	s.mu.Unlock()

	// Opening the window marks every incoming message read. Best effort: a
	// failure leaves rows unread until a later pass, rendering is unaffected.
	go func() {
		if err := s.messages.MarkConversationRead(context.Background(), s.conversationID, s.identity.UserID); err != nil {
			log.Printf("mark conversation %d read failed: %v", s.conversationID, err)
		}
	}()

	s.sub = s.broker.Subscribe(feed.Messages, feed.Filter{ConversationID: s.conversationID})
	go s.consume()

	return header, msgs, nil
}

// consume appends live inserts in arrival order. No dedup against the
// initial fetch: an insert racing Open may render twice, which the next
// full refresh resolves.
func (s *ChatSession) consume() {
	for {
		select {
		case <-s.done:
			return
		case ev, ok := <-s.sub.C:
			if !ok {
				return
			}
			if ev.Kind != feed.Insert || ev.Message == nil {
				continue
			}
			s.append(*ev.Message)
		}
	}
}

func (s *ChatSession) append(msg models.Message) {
	s.mu.Lock()
	s.history = append(s.history, msg)
	s.mu.Unlock()

	if msg.SenderID != s.identity.UserID {
		messageID := msg.ID
		go func() {
			if err := s.messages.MarkMessageRead(context.Background(), messageID, s.identity.UserID); err != nil {
				log.Printf("mark message %d read failed: %v", messageID, err)
			}
		}()
	}

	if s.onAppend != nil {
		s.onAppend(msg)
	}
}

// Send inserts an outgoing message. The body is trimmed and must be
// non-empty; concurrent sends are rejected. There is no optimistic local
// append: the message surfaces through the subscription once stored.
func (s *ChatSession) Send(ctx context.Context, body string) (models.Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return models.Message{}, ErrEmptyMessage
	}

	s.mu.Lock()
	if s.sending {
		s.mu.Unlock()
		return models.Message{}, ErrSendInFlight
	}
	s.sending = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.sending = false
		s.mu.Unlock()
	}()

	return s.messages.Create(ctx, s.conversationID, s.identity.UserID, s.identity.Role, body)
}

// History returns a snapshot of the displayed list.
func (s *ChatSession) History() []models.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]models.Message, len(s.history))
	copy(out, s.history)
	return out
}

// Header returns the header loaded by Open.
func (s *ChatSession) Header() models.ChatHeader {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.header
}

// Close unsubscribes from the conversation feed. In-flight operations
// resolve against the store; their results are simply no longer observed.
func (s *ChatSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	select {
	case <-s.done:
		return
	default:
	}
	close(s.done)
	if s.sub != nil {
		s.sub.Unsubscribe()
	}
}

func (s *ChatSession) buildHeader(ctx context.Context, conv models.Conversation) models.ChatHeader {
	header := models.ChatHeader{
		ConversationID:   conv.ID,
		GuardianName:     FallbackGuardianLabel,
		ProfessionalName: FallbackProfessionalLabel,
	}

	if guardian, err := s.profiles.GetGuardian(ctx, conv.GuardianID); err == nil {
		header.GuardianName = guardian.DisplayName
	}
	if professional, err := s.profiles.GetProfessional(ctx, conv.ProfessionalID); err == nil {
		header.ProfessionalName = professional.DisplayName
	}
	if conv.DogID.Valid {
		if dog, err := s.profiles.GetDog(ctx, conv.DogID.Int64); err == nil {
			header.DogName = dog.Name
		}
	}
	return header
}
