package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/samber/lo"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/repositories"
)

// SignatureHeader carries the webhook signature.
const SignatureHeader = "Lupi-Billing-Signature"

// DefaultTolerance bounds the accepted age of a signed payload.
const DefaultTolerance = 5 * time.Minute

var (
	ErrInvalidSignature = errors.New("invalid webhook signature")
	ErrSignatureExpired = errors.New("webhook signature timestamp outside tolerance")
)

// Event is a provider webhook delivery. Event ids are globally unique and
// replayed deliveries reuse the same id.
type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Subscription SubscriptionObject `json:"subscription"`
	} `json:"data"`
}

// SubscriptionObject is the provider's subscription shape.
type SubscriptionObject struct {
	ID               string `json:"id"`
	CustomerRef      string `json:"customer_ref"`
	UserID           int64  `json:"user_id,string"`
	Status           string `json:"status"`
	CurrentPeriodEnd int64  `json:"current_period_end"`
}

// VerifySignature checks the "t=<unix>,v1=<hex>" header against an
// HMAC-SHA256 of "<t>.<payload>" with the shared webhook secret.
func VerifySignature(payload []byte, header, secret string, tolerance time.Duration) error {
	var ts string
	var sig string
	for _, part := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(part), "=")
		if !found {
			continue
		}
		switch key {
		case "t":
			ts = value
		case "v1":
			sig = value
		}
	}
	if ts == "" || sig == "" {
		return ErrInvalidSignature
	}

	unix, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return ErrInvalidSignature
	}

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)

	provided, err := hex.DecodeString(sig)
	if err != nil {
		return ErrInvalidSignature
	}
	if !hmac.Equal(provided, mac.Sum(nil)) {
		return ErrInvalidSignature
	}

	// Tolerance applies only once the signature itself checks out.
	age := time.Since(time.Unix(unix, 0))
	if age > tolerance || age < -tolerance {
		return ErrSignatureExpired
	}
	return nil
}

// Sign produces the signature header for a payload. Exported for tests and
// for the provider simulator used in development.
func Sign(payload []byte, secret string, at time.Time) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(ts))
	mac.Write([]byte("."))
	mac.Write(payload)
	return fmt.Sprintf("t=%s,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

// Syncer applies webhook events to the local subscription state. Events are
// idempotent: replays are detected by provider event id and skipped.
type Syncer struct {
	repo repositories.BillingRepository
}

// NewSyncer constructs a Syncer.
func NewSyncer(repo repositories.BillingRepository) *Syncer {
	return &Syncer{repo: repo}
}

// HandleEvent records the event id and upserts subscription state for the
// event types this service tracks. Unknown types are acknowledged untouched.
func (s *Syncer) HandleEvent(ctx context.Context, ev Event) error {
	if ev.ID == "" {
		return errors.New("event id is empty")
	}

	first, err := s.repo.RecordEvent(ctx, ev.ID, ev.Type)
	if err != nil {
		return fmt.Errorf("record event: %w", err)
	}
	if !first {
		log.Printf("billing event %s replayed, skipping", ev.ID)
		return nil
	}

	if !lo.Contains(trackedEventTypes, ev.Type) {
		log.Printf("billing event %s type %s ignored", ev.ID, ev.Type)
		return nil
	}
	return s.upsert(ctx, ev)
}

var trackedEventTypes = []string{
	"checkout.session.completed",
	"customer.subscription.created",
	"customer.subscription.updated",
	"customer.subscription.deleted",
}

func (s *Syncer) upsert(ctx context.Context, ev Event) error {
	obj := ev.Data.Subscription
	if obj.ID == "" || obj.UserID == 0 {
		return errors.New("subscription payload incomplete")
	}

	status := obj.Status
	if ev.Type == "customer.subscription.deleted" {
		status = "canceled"
	}

	sub := models.Subscription{
		UserID:                 obj.UserID,
		ProviderSubscriptionID: obj.ID,
		ProviderCustomerID:     obj.CustomerRef,
		Status:                 status,
	}
	if obj.CurrentPeriodEnd > 0 {
		sub.CurrentPeriodEnd = sql.NullTime{Time: time.Unix(obj.CurrentPeriodEnd, 0).UTC(), Valid: true}
	}

	if _, err := s.repo.UpsertSubscription(ctx, sub); err != nil {
		return fmt.Errorf("upsert subscription: %w", err)
	}
	return nil
}

// ParseEvent decodes a webhook payload.
func ParseEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
