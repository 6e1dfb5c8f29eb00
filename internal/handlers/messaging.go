package handlers

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/feed"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/live"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/repositories"
)

// MessagingHandler serves the REST surface of the inbox and chat window.
type MessagingHandler struct {
	conversations repositories.ConversationRepository
	messages      repositories.MessageRepository
	profiles      repositories.ProfileRepository
	broker        *feed.Broker
}

// NewMessagingHandler builds a MessagingHandler.
func NewMessagingHandler(
	conversations repositories.ConversationRepository,
	messages repositories.MessageRepository,
	profiles repositories.ProfileRepository,
	broker *feed.Broker,
) *MessagingHandler {
	return &MessagingHandler{
		conversations: conversations,
		messages:      messages,
		profiles:      profiles,
		broker:        broker,
	}
}

// requireRole hides every messaging entry point from identities without a role.
func requireRole(c *gin.Context) (models.Identity, bool) {
	actor := actorFromContext(c)
	if actor.Role == models.RoleNone {
		c.JSON(http.StatusForbidden, gin.H{"error": "messaging not available"})
		return models.Identity{}, false
	}
	return actor, true
}

// Me returns the resolved identity snapshot.
func (h *MessagingHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, actorFromContext(c))
}

// ListConversations returns the enriched conversation summaries for the
// viewer, most recently active first.
func (h *MessagingHandler) ListConversations(c *gin.Context) {
	actor, ok := requireRole(c)
	if !ok {
		return
	}

	aggregator := live.NewInboxAggregator(h.conversations, h.messages, h.profiles, h.broker, actor, nil)
	summaries, err := aggregator.Refresh(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": summaries})
}

// StartConversation creates or returns the pairing with a professional.
// Only guardians initiate contact.
func (h *MessagingHandler) StartConversation(c *gin.Context) {
	actor, ok := requireRole(c)
	if !ok {
		return
	}
	if actor.Role != models.RoleGuardian {
		c.JSON(http.StatusForbidden, gin.H{"error": "only guardians can start conversations"})
		return
	}

	var req struct {
		ProfessionalID int64  `json:"professional_id" binding:"required"`
		DogID          *int64 `json:"dog_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.profiles.GetProfessional(c.Request.Context(), req.ProfessionalID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrProfileNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "professional not found"})
		return
	}

	if req.DogID != nil {
		dog, err := h.profiles.GetDog(c.Request.Context(), *req.DogID)
		if err != nil || dog.GuardianID != actor.UserID {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid dog"})
			return
		}
	}

	conv, err := h.conversations.CreateOrGet(c.Request.Context(), actor.UserID, req.ProfessionalID, req.DogID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not create conversation"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversation_id": conv.ID})
}

// GetMessages returns the full history oldest first and, as a side effect of
// opening the view, bulk-marks incoming messages read.
func (h *MessagingHandler) GetMessages(c *gin.Context) {
	actor, ok := requireRole(c)
	if !ok {
		return
	}
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}

	if _, err := h.conversations.GetForParticipant(c.Request.Context(), conversationID, actor.UserID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}

	msgs, err := h.messages.ListByConversation(c.Request.Context(), conversationID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load messages"})
		return
	}

	// Best effort: rendering never depends on the mark-read outcome.
	go func() {
		if err := h.messages.MarkConversationRead(contextWithoutRequest(), conversationID, actor.UserID); err != nil {
			log.Printf("mark conversation %d read failed: %v", conversationID, err)
		}
	}()

	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostMessage stores an outgoing message. The body is trimmed server-side;
// whitespace-only bodies perform no insert.
func (h *MessagingHandler) PostMessage(c *gin.Context) {
	actor, ok := requireRole(c)
	if !ok {
		return
	}
	conversationID, ok := pathID(c, "conversation_id")
	if !ok {
		return
	}

	var req struct {
		Body string `json:"body" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if _, err := h.conversations.GetForParticipant(c.Request.Context(), conversationID, actor.UserID); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, repositories.ErrConversationNotFound) {
			status = http.StatusNotFound
		}
		c.JSON(status, gin.H{"error": "conversation not found"})
		return
	}

	session := live.NewChatSession(h.conversations, h.messages, h.profiles, h.broker, actor, conversationID, nil)
	msg, err := session.Send(c.Request.Context(), req.Body)
	if err != nil {
		if errors.Is(err, live.ErrEmptyMessage) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "message body is empty"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store message"})
		return
	}

	c.JSON(http.StatusCreated, msg)
}

// UnreadCount returns the viewer's current total unread count.
func (h *MessagingHandler) UnreadCount(c *gin.Context) {
	actor := actorFromContext(c)
	if actor.Role == models.RoleNone {
		c.JSON(http.StatusOK, gin.H{"unread_count": 0})
		return
	}

	count, err := h.messages.CountUnreadForUser(c.Request.Context(), actor.UserID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to count unread messages"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"unread_count": count})
}
