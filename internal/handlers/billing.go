package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/billing"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/observability"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/repositories"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/telemetry"
)

// BillingHandler serves the subscription billing surface: hosted checkout
// and portal redirects, invoice listing, and the provider webhook.
type BillingHandler struct {
	provider      billing.Provider
	syncer        *billing.Syncer
	subscriptions repositories.BillingRepository
	webhookSecret string
	audit         *telemetry.AuditEmitter
}

// NewBillingHandler builds a BillingHandler.
func NewBillingHandler(
	provider billing.Provider,
	syncer *billing.Syncer,
	subscriptions repositories.BillingRepository,
	webhookSecret string,
	audit *telemetry.AuditEmitter,
) *BillingHandler {
	return &BillingHandler{
		provider:      provider,
		syncer:        syncer,
		subscriptions: subscriptions,
		webhookSecret: webhookSecret,
		audit:         audit,
	}
}

func customerRef(userID int64) string {
	return fmt.Sprintf("user_%d", userID)
}

// CreateCheckout starts a hosted checkout session for the viewer.
func (h *BillingHandler) CreateCheckout(c *gin.Context) {
	actor := actorFromContext(c)

	var req struct {
		PriceRef   string `json:"price_ref" binding:"required"`
		SuccessURL string `json:"success_url" binding:"required"`
		CancelURL  string `json:"cancel_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.provider.CreateCheckoutSession(c.Request.Context(), billing.CheckoutRequest{
		CustomerRef: customerRef(actor.UserID),
		PriceRef:    req.PriceRef,
		SuccessURL:  req.SuccessURL,
		CancelURL:   req.CancelURL,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not create checkout session"})
		return
	}

	c.JSON(http.StatusOK, session)
}

// CreatePortal starts a hosted customer-portal session for the viewer.
func (h *BillingHandler) CreatePortal(c *gin.Context) {
	actor := actorFromContext(c)

	var req struct {
		ReturnURL string `json:"return_url" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	session, err := h.provider.CreatePortalSession(c.Request.Context(), customerRef(actor.UserID), req.ReturnURL)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not create portal session"})
		return
	}

	c.JSON(http.StatusOK, session)
}

// ListInvoices returns the viewer's provider invoices.
func (h *BillingHandler) ListInvoices(c *gin.Context) {
	actor := actorFromContext(c)

	invoices, err := h.provider.ListInvoices(c.Request.Context(), customerRef(actor.UserID))
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": "could not load invoices"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"invoices": invoices})
}

// GetSubscription returns the viewer's synced subscription state.
func (h *BillingHandler) GetSubscription(c *gin.Context) {
	actor := actorFromContext(c)

	sub, err := h.subscriptions.GetSubscriptionForUser(c.Request.Context(), actor.UserID)
	if err != nil {
		if errors.Is(err, repositories.ErrSubscriptionNotFound) {
			c.JSON(http.StatusOK, gin.H{"subscription": nil})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load subscription"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"subscription": sub})
}

// Webhook receives provider events: verify the signature, then apply the
// event idempotently. Replays are acknowledged without effect.
func (h *BillingHandler) Webhook(c *gin.Context) {
	ctx, span := otel.Tracer("lupi/billing").Start(c.Request.Context(), "billing.webhook")
	defer span.End()

	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		observability.IncBillingWebhook("read_error")
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read payload"})
		return
	}

	header := c.GetHeader(billing.SignatureHeader)
	if err := billing.VerifySignature(payload, header, h.webhookSecret, billing.DefaultTolerance); err != nil {
		observability.IncBillingWebhook("bad_signature")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		return
	}

	event, err := billing.ParseEvent(payload)
	if err != nil {
		observability.IncBillingWebhook("bad_payload")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}

	if err := h.syncer.HandleEvent(ctx, event); err != nil {
		observability.IncBillingWebhook("sync_error")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not apply event"})
		return
	}

	observability.IncBillingWebhook("ok")
	var actorID *int64
	if userID := event.Data.Subscription.UserID; userID != 0 {
		actorID = &userID
	}
	h.audit.Emit(ctx, "INFO", "billing event "+event.ID+" applied", requestIDFromContext(c), actorID)
	c.JSON(http.StatusOK, gin.H{"received": true})
}
