package ws

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/feed"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/identity"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/live"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/observability"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/repositories"
)

// ConversationSocketHandler serves the live chat window: history on open,
// live appends, mark-as-read, and send commands over one socket.
type ConversationSocketHandler struct {
	hub           *Hub
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	profiles      repositories.ProfileRepository
	broker        *feed.Broker
	verifier      *identity.Verifier
	resolver      *identity.Resolver
}

// NewConversationSocketHandler constructs a ConversationSocketHandler.
func NewConversationSocketHandler(
	hub *Hub,
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	profiles repositories.ProfileRepository,
	broker *feed.Broker,
	verifier *identity.Verifier,
	resolver *identity.Resolver,
) *ConversationSocketHandler {
	return &ConversationSocketHandler{
		hub:           hub,
		conversations: conversations,
		messages:      messages,
		profiles:      profiles,
		broker:        broker,
		verifier:      verifier,
		resolver:      resolver,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// sendFrame is the only client-to-server frame the chat socket accepts.
type sendFrame struct {
	Type string `json:"type"`
	Body string `json:"body"`
}

// Handle upgrades the connection, opens a chat session for the viewer, and
// pumps frames both ways until the socket closes.
func (h *ConversationSocketHandler) Handle(c *gin.Context) {
	conversationID, err := strconv.ParseInt(c.Param("conversation_id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation id"})
		return
	}

	ctx, span := otel.Tracer("lupi/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	actor, ok := h.authenticate(c)
	if !ok {
		return
	}

	if _, err := h.conversations.GetForParticipant(ctx, conversationID, actor.UserID); err != nil {
		c.JSON(http.StatusForbidden, gin.H{"error": "not authorized for conversation"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	client := NewClient(conn)
	info := ConnInfo{
		ConnID:      newConnID(),
		UserID:      actor.UserID,
		DeviceID:    observability.DeviceIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	h.hub.AddConversationClient(conversationID, client, info)
	observability.IncWSActive("conversation")
	publishLifecycle("conversation", conversationID, info, "ws_connect", "")

	session := live.NewChatSession(h.conversations, h.messages, h.profiles, h.broker, actor, conversationID,
		func(msg models.Message) {
			if err := client.WriteJSON(models.ChatEvent{Type: "message", Message: &msg}); err != nil {
				h.hub.PublishError("conversation", conversationID, info, err)
				_ = client.Close()
			}
		})

	sessionCtx := context.Background()
	header, history, err := session.Open(sessionCtx)
	if err != nil {
		status := "conversation unavailable"
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = "conversation not found"
		}
		_ = client.WriteJSON(gin.H{"type": "error", "error": status})
		session.Close()
		h.teardown(conversationID, client, info, err.Error())
		return
	}
	if err := client.WriteJSON(models.ChatEvent{Type: "history", Header: &header, Messages: history}); err != nil {
		session.Close()
		h.teardown(conversationID, client, info, err.Error())
		return
	}

	go func() {
		var closeReason string
		defer func() {
			session.Close()
			h.teardown(conversationID, client, info, closeReason)
		}()
		for {
			var frame sendFrame
			if err := client.ReadJSON(&frame); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.hub.PublishError("conversation", conversationID, info, err)
				}
				return
			}
			if frame.Type != "send" {
				continue
			}
			if _, err := session.Send(sessionCtx, frame.Body); err != nil {
				// Surfaced to the viewer; the client keeps its input for retry.
				_ = client.WriteJSON(gin.H{"type": "send_error", "error": sendErrorText(err)})
			}
		}
	}()
}

func (h *ConversationSocketHandler) authenticate(c *gin.Context) (models.Identity, bool) {
	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return models.Identity{}, false
	}
	session, err := h.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return models.Identity{}, false
	}
	actor := h.resolver.Resolve(c.Request.Context(), session.UserID)
	if actor.Role == models.RoleNone {
		c.JSON(http.StatusForbidden, gin.H{"error": "messaging not available"})
		return models.Identity{}, false
	}
	return actor, true
}

func (h *ConversationSocketHandler) teardown(conversationID int64, client *Client, info ConnInfo, reason string) {
	h.hub.RemoveConversationClient(conversationID, client)
	observability.DecWSActive("conversation")
	publishLifecycle("conversation", conversationID, info, "ws_disconnect", reason)
	_ = client.Close()
}

func sendErrorText(err error) string {
	switch {
	case errors.Is(err, live.ErrEmptyMessage):
		return "message body is empty"
	case errors.Is(err, live.ErrSendInFlight):
		return "previous send still in flight"
	default:
		return "could not send message"
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		parts := strings.SplitN(header, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return parts[1]
		}
		return ""
	}
	return c.Query("token")
}

func publishLifecycle(kind string, conversationID int64, info ConnInfo, event, reason string) {
	observability.IncWSEvent(kind, event)
	payload := map[string]interface{}{
		"ws": observability.WSPayload{
			Kind:           kind,
			ConversationID: conversationID,
			Event:          event,
			ConnID:         info.ConnID,
			DurationMS:     time.Since(info.ConnectedAt).Milliseconds(),
			Reason:         reason,
		},
		"identity": observability.IdentityPayload{
			UserID:   info.UserID,
			DeviceID: info.DeviceID,
			IP:       info.IP,
		},
	}
	_ = observability.PublishEvent(context.Background(), wsRoutingKey(kind), observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
