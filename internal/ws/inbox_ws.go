package ws

import (
	"context"
	"encoding/json"
	"net/http"
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

// InboxSocketHandler streams the viewer's unread count and conversation
// summary list, recomputed on every relevant change-feed event.
type InboxSocketHandler struct {
	hub           *Hub
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	profiles      repositories.ProfileRepository
	broker        *feed.Broker
	verifier      *identity.Verifier
	resolver      *identity.Resolver
}

// NewInboxSocketHandler constructs an InboxSocketHandler.
func NewInboxSocketHandler(
	hub *Hub,
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	profiles repositories.ProfileRepository,
	broker *feed.Broker,
	verifier *identity.Verifier,
	resolver *identity.Resolver,
) *InboxSocketHandler {
	return &InboxSocketHandler{
		hub:           hub,
		conversations: conversations,
		messages:      messages,
		profiles:      profiles,
		broker:        broker,
		verifier:      verifier,
		resolver:      resolver,
	}
}

// Handle upgrades the connection and pushes inbox frames until the socket
// closes.
func (h *InboxSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("lupi/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	token := bearerToken(c)
	if token == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	session, err := h.verifier.Verify(token)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
		return
	}
	actor := h.resolver.Resolve(ctx, session.UserID)
	if actor.Role == models.RoleNone {
		c.JSON(http.StatusForbidden, gin.H{"error": "messaging not available"})
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
	h.hub.AddInboxClient(actor.UserID, client, info)
	observability.IncWSActive("inbox")
	publishLifecycle("inbox", 0, info, "ws_connect", "")

	// Socket lifetime context: the request context ends with the handler.
	runCtx, cancel := context.WithCancel(context.Background())

	tracker := live.NewUnreadTracker(h.messages, h.broker, actor, func(count int) {
		n := count
		if err := client.WriteJSON(models.InboxEvent{Type: "unread_count", UnreadCount: &n}); err != nil {
			h.hub.PublishError("inbox", 0, info, err)
			cancel()
			_ = client.Close()
		}
	})
	aggregator := live.NewInboxAggregator(h.conversations, h.messages, h.profiles, h.broker, actor, func(summaries []models.ConversationSummary) {
		if err := client.WriteJSON(models.InboxEvent{Type: "conversations", Conversations: summaries}); err != nil {
			h.hub.PublishError("inbox", 0, info, err)
			cancel()
			_ = client.Close()
		}
	})
	go tracker.Run(runCtx)
	go aggregator.Run(runCtx)

	go func() {
		var closeReason string
		defer func() {
			cancel()
			h.hub.RemoveInboxClient(actor.UserID, client)
			observability.DecWSActive("inbox")
			publishLifecycle("inbox", 0, info, "ws_disconnect", closeReason)
			_ = client.Close()
		}()
		for {
			var discard json.RawMessage
			if err := client.ReadJSON(&discard); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					h.hub.PublishError("inbox", 0, info, err)
				}
				return
			}
		}
	}()
}
