package live

import (
	"context"
	"log"
	"sync"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/feed"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/repositories"
)

// Fallback labels shown when a counterpart profile cannot be loaded.
const (
	FallbackGuardianLabel     = "Guardian"
	FallbackProfessionalLabel = "Professional"
)

// InboxAggregator produces the ordered conversation summary list for one
// identity and keeps it current via the change feed. Every relevant event
// re-runs the full aggregation; nothing is patched incrementally.
type InboxAggregator struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	profiles      repositories.ProfileRepository
	broker        *feed.Broker
	identity      models.Identity
	onUpdate      func([]models.ConversationSummary)

	mu        sync.Mutex
	summaries []models.ConversationSummary
}

// NewInboxAggregator constructs an aggregator. onUpdate is called after every
// successful refresh and may be nil.
func NewInboxAggregator(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	profiles repositories.ProfileRepository,
	broker *feed.Broker,
	identity models.Identity,
	onUpdate func([]models.ConversationSummary),
) *InboxAggregator {
	return &InboxAggregator{
		conversations: conversations,
		messages:      messages,
		profiles:      profiles,
		broker:        broker,
		identity:      identity,
		onUpdate:      onUpdate,
	}
}

// Summaries returns the last successfully assembled list.
func (a *InboxAggregator) Summaries() []models.ConversationSummary {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]models.ConversationSummary, len(a.summaries))
	copy(out, a.summaries)
	return out
}

// Refresh re-runs the full aggregation. A failure loading the conversation
// set aborts the refresh and keeps the previous list; a failure enriching a
// single row degrades that row to fallback labels instead.
func (a *InboxAggregator) Refresh(ctx context.Context) ([]models.ConversationSummary, error) {
	convs, err := a.conversations.ListForParticipant(ctx, a.identity.UserID)
	if err != nil {
		log.Printf("inbox refresh failed for user %d: %v", a.identity.UserID, err)
		return a.Summaries(), err
	}

	// Per-conversation enrichment fetches are independent of each other.
	summaries := make([]models.ConversationSummary, len(convs))
	var wg sync.WaitGroup
	for i, conv := range convs {
		wg.Add(1)
		go func(i int, conv models.Conversation) {
			defer wg.Done()
			summaries[i] = a.enrich(ctx, conv)
		}(i, conv)
	}
	wg.Wait()

	a.mu.Lock()
	a.summaries = summaries
	a.mu.Unlock()

	if a.onUpdate != nil {
		a.onUpdate(summaries)
	}
	return summaries, nil
}

// Run refreshes once, then again on every conversation event and on every
// message insert, until the context is cancelled.
func (a *InboxAggregator) Run(ctx context.Context) {
	// Subscribe before the initial refresh so events raised while it runs
	// are buffered rather than lost.
	convSub := a.broker.Subscribe(feed.Conversations, feed.Filter{})
	defer convSub.Unsubscribe()
	msgSub := a.broker.Subscribe(feed.Messages, feed.Filter{})
	defer msgSub.Unsubscribe()

	_, _ = a.Refresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-convSub.C:
			if !ok {
				return
			}
			_, _ = a.Refresh(ctx)
		case ev, ok := <-msgSub.C:
			if !ok {
				return
			}
			if ev.Kind == feed.Insert {
				_, _ = a.Refresh(ctx)
			}
		}
	}
}

func (a *InboxAggregator) enrich(ctx context.Context, conv models.Conversation) models.ConversationSummary {
	summary := models.ConversationSummary{Conversation: conv}
	counterpartID := conv.Counterpart(a.identity.UserID)

	// The counterpart holds the opposite role of the viewer.
	if a.identity.Role == models.RoleGuardian {
		summary.CounterpartName = FallbackProfessionalLabel
		if profile, err := a.profiles.GetProfessional(ctx, counterpartID); err == nil {
			summary.CounterpartName = profile.DisplayName
			summary.CounterpartAvatar = profile.AvatarURL
		}
	} else {
		summary.CounterpartName = FallbackGuardianLabel
		if profile, err := a.profiles.GetGuardian(ctx, counterpartID); err == nil {
			summary.CounterpartName = profile.DisplayName
			summary.CounterpartAvatar = profile.AvatarURL
		}
	}

	if conv.DogID.Valid {
		if dog, err := a.profiles.GetDog(ctx, conv.DogID.Int64); err == nil {
			summary.DogName = dog.Name
		}
	}

	if last, err := a.messages.LastMessage(ctx, conv.ID); err == nil && last != nil {
		body := last.Body
		summary.LastMessageBody = &body
	}

	if count, err := a.messages.CountUnreadInConversation(ctx, conv.ID, a.identity.UserID); err == nil {
		summary.UnreadCount = count
	}

	return summary
}
