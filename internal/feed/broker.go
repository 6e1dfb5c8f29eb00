// Package feed implements the in-process change feed: row-level
// insert/update/delete notifications published by the repositories and
// consumed by the live messaging components.
package feed

import (
	"sync"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/observability"
)

// Collection names the row sets a subscriber can watch.
type Collection string

const (
	Conversations Collection = "conversations"
	Messages      Collection = "messages"
)

// Kind is the mutation type carried by an event.
type Kind string

const (
	Insert Kind = "insert"
	Update Kind = "update"
	Delete Kind = "delete"
)

// Event is a single row-level change notification. Message is populated for
// message inserts; bulk updates carry only the conversation id.
type Event struct {
	Collection     Collection
	Kind           Kind
	ConversationID int64
	Message        *models.Message
}

// Filter restricts a subscription to one conversation. The zero value
// matches every event in the collection.
type Filter struct {
	ConversationID int64
}

func (f Filter) matches(ev Event) bool {
	return f.ConversationID == 0 || f.ConversationID == ev.ConversationID
}

// Subscription delivers matching events on C until Unsubscribe is called.
type Subscription struct {
	C      <-chan Event
	id     int64
	broker *Broker
}

// Unsubscribe releases the topic and closes C.
func (s *Subscription) Unsubscribe() {
	s.broker.remove(s.id)
}

type subscriber struct {
	collection Collection
	filter     Filter
	ch         chan Event
}

// Broker fans events out to subscribers. Publish never blocks: a subscriber
// whose buffer is full misses the event and catches up on the next one,
// which is safe because consumers re-derive state from the store on every
// event rather than applying deltas.
type Broker struct {
	mu     sync.RWMutex
	nextID int64
	subs   map[int64]*subscriber
}

const subscriberBuffer = 64

// NewBroker creates an empty broker.
func NewBroker() *Broker {
	return &Broker{subs: make(map[int64]*subscriber)}
}

// Subscribe registers interest in a collection, optionally filtered.
func (b *Broker) Subscribe(collection Collection, filter Filter) *Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	sub := &subscriber{
		collection: collection,
		filter:     filter,
		ch:         make(chan Event, subscriberBuffer),
	}
	b.subs[b.nextID] = sub
	return &Subscription{C: sub.ch, id: b.nextID, broker: b}
}

// Publish delivers the event to every matching subscriber.
func (b *Broker) Publish(ev Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	observability.IncFeedEvent(string(ev.Collection), string(ev.Kind))
	for _, sub := range b.subs {
		if sub.collection != ev.Collection || !sub.filter.matches(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			observability.IncFeedDropped(string(ev.Collection))
		}
	}
}

func (b *Broker) remove(id int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, ok := b.subs[id]; ok {
		delete(b.subs, id)
		close(sub.ch)
	}
}
