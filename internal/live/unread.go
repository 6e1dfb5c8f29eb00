// Package live holds the per-viewer messaging components: the unread-count
// tracker, the conversation list aggregator, and the chat session. Each is
// driven by the change feed and re-derives its state from the store on every
// event, so missed or reordered events self-heal on the next one.
package live

import (
	"context"
	"log"
	"sync"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/feed"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/observability"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/repositories"
)

// TrackerState is the lifecycle of the unread tracker.
type TrackerState string

const (
	TrackerIdle    TrackerState = "idle"
	TrackerLoading TrackerState = "loading"
	TrackerReady   TrackerState = "ready"
)

// UnreadTracker maintains a live count of unread messages addressed to the
// identity across all of its conversations. Every message feed event
// triggers a full recount rather than an incremental adjustment.
type UnreadTracker struct {
	messages repositories.MessageRepository
	broker   *feed.Broker
	identity models.Identity
	onChange func(count int)

	mu    sync.Mutex
	state TrackerState
	count int
}

// NewUnreadTracker constructs a tracker for the identity. onChange is called
// after every successful recount and may be nil.
func NewUnreadTracker(messages repositories.MessageRepository, broker *feed.Broker, identity models.Identity, onChange func(int)) *UnreadTracker {
	return &UnreadTracker{
		messages: messages,
		broker:   broker,
		identity: identity,
		onChange: onChange,
		state:    TrackerIdle,
	}
}

// Count returns the last successfully computed value.
func (t *UnreadTracker) Count() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.count
}

// State returns the tracker state.
func (t *UnreadTracker) State() TrackerState {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Run recounts once, then again on every message feed event, until the
// context is cancelled. Identities without a role hold a zero count and
// never subscribe.
func (t *UnreadTracker) Run(ctx context.Context) {
	if t.identity.UserID == 0 || t.identity.Role == models.RoleNone {
		t.mu.Lock()
		t.state = TrackerReady
		t.count = 0
		t.mu.Unlock()
		t.notify(0)
		return
	}

	// Subscribe before the initial recount so an insert that lands while
	// the query runs is buffered rather than lost.
	sub := t.broker.Subscribe(feed.Messages, feed.Filter{})
	defer sub.Unsubscribe()

	t.Recount(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-sub.C:
			if !ok {
				return
			}
			t.Recount(ctx)
		}
	}
}

// Recount queries the full unread count. A failed recount keeps the
// last-known-good value in place.
func (t *UnreadTracker) Recount(ctx context.Context) {
	t.mu.Lock()
	t.state = TrackerLoading
	t.mu.Unlock()

	observability.IncUnreadRecount()
	count, err := t.messages.CountUnreadForUser(ctx, t.identity.UserID)

	t.mu.Lock()
	t.state = TrackerReady
	if err != nil {
		t.mu.Unlock()
		log.Printf("unread recount failed for user %d: %v", t.identity.UserID, err)
		return
	}
	t.count = count
	t.mu.Unlock()

	t.notify(count)
}

func (t *UnreadTracker) notify(count int) {
	if t.onChange != nil {
		t.onChange(count)
	}
}
