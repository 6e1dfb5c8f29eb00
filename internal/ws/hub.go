package ws

import (
	"context"
	"sync"
	"time"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/observability"
)

// Hub tracks active websocket clients: conversation rooms keyed by
// conversation id and inbox rooms keyed by user id.
type Hub struct {
	mu                sync.RWMutex
	conversationRooms map[int64]map[*Client]ConnInfo
	inboxRooms        map[int64]map[*Client]ConnInfo
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		conversationRooms: make(map[int64]map[*Client]ConnInfo),
		inboxRooms:        make(map[int64]map[*Client]ConnInfo),
	}
}

// AddConversationClient registers a client in a conversation room.
func (h *Hub) AddConversationClient(conversationID int64, client *Client, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conversationRooms[conversationID]; !ok {
		h.conversationRooms[conversationID] = make(map[*Client]ConnInfo)
	}
	h.conversationRooms[conversationID][client] = info
}

// RemoveConversationClient removes a client from a conversation room.
func (h *Hub) RemoveConversationClient(conversationID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.conversationRooms[conversationID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.conversationRooms, conversationID)
		}
	}
}

// AddInboxClient registers a client in the user's inbox room.
func (h *Hub) AddInboxClient(userID int64, client *Client, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.inboxRooms[userID]; !ok {
		h.inboxRooms[userID] = make(map[*Client]ConnInfo)
	}
	h.inboxRooms[userID][client] = info
}

// RemoveInboxClient removes a client from the user's inbox room.
func (h *Hub) RemoveInboxClient(userID int64, client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if clients, ok := h.inboxRooms[userID]; ok {
		delete(clients, client)
		if len(clients) == 0 {
			delete(h.inboxRooms, userID)
		}
	}
}

// ConversationClients reports the number of clients in a conversation room.
func (h *Hub) ConversationClients(conversationID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conversationRooms[conversationID])
}

// InboxClients reports the number of clients in a user's inbox room.
func (h *Hub) InboxClients(userID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.inboxRooms[userID])
}

// PublishError emits a ws_error event for a failed client write.
func (h *Hub) PublishError(kind string, conversationID int64, info ConnInfo, err error) {
	payload := map[string]interface{}{
		"ws": observability.WSPayload{
			Kind:           kind,
			ConversationID: conversationID,
			Event:          "ws_error",
			ConnID:         info.ConnID,
			DurationMS:     time.Since(info.ConnectedAt).Milliseconds(),
			Reason:         err.Error(),
		},
		"identity": observability.IdentityPayload{
			UserID:   info.UserID,
			DeviceID: info.DeviceID,
			IP:       info.IP,
		},
	}

	headers := observability.BuildHeaders(info.RequestID, info.TraceID)
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: "ws_error",
		Payload:   payload,
	}, headers)
	observability.IncWSEvent(kind, "ws_error")
}

func wsRoutingKey(kind string) string {
	if kind == "inbox" {
		return "ws_events.inbox"
	}
	return "ws_events.conversations"
}
