package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
)

var ErrSubscriptionNotFound = errors.New("subscription not found")

// BillingRepository persists subscription state synced from provider webhooks.
type BillingRepository interface {
	RecordEvent(ctx context.Context, providerEventID, eventType string) (bool, error)
	UpsertSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error)
	GetSubscriptionForUser(ctx context.Context, userID int64) (models.Subscription, error)
}

// BillingRepo is a sqlx implementation of BillingRepository.
type BillingRepo struct {
	db *sqlx.DB
}

// NewBillingRepo constructs a BillingRepo.
func NewBillingRepo(db *sqlx.DB) *BillingRepo {
	return &BillingRepo{db: db}
}

// RecordEvent stores the provider event id and reports whether it was seen
// for the first time. Replays return false so the caller can skip the upsert.
func (r *BillingRepo) RecordEvent(ctx context.Context, providerEventID, eventType string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `INSERT INTO billing_events (provider_event_id, event_type)
        VALUES ($1, $2) ON CONFLICT (provider_event_id) DO NOTHING`, providerEventID, eventType)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// UpsertSubscription writes the subscription state keyed by the provider's
// subscription reference.
func (r *BillingRepo) UpsertSubscription(ctx context.Context, sub models.Subscription) (models.Subscription, error) {
	var saved models.Subscription
	err := r.db.QueryRowxContext(ctx, `INSERT INTO subscriptions
        (user_id, provider_subscription_id, provider_customer_id, status, current_period_end, updated_at)
        VALUES ($1, $2, $3, $4, $5, NOW())
        ON CONFLICT (provider_subscription_id) DO UPDATE SET
            status = EXCLUDED.status,
            current_period_end = EXCLUDED.current_period_end,
            provider_customer_id = EXCLUDED.provider_customer_id,
            updated_at = NOW()
        RETURNING id, user_id, provider_subscription_id, provider_customer_id, status, current_period_end, updated_at`,
		sub.UserID, sub.ProviderSubscriptionID, sub.ProviderCustomerID, sub.Status, sub.CurrentPeriodEnd).
		StructScan(&saved)
	return saved, err
}

// GetSubscriptionForUser returns the user's latest subscription row.
func (r *BillingRepo) GetSubscriptionForUser(ctx context.Context, userID int64) (models.Subscription, error) {
	var sub models.Subscription
	err := r.db.GetContext(ctx, &sub, `SELECT id, user_id, provider_subscription_id, provider_customer_id,
        status, current_period_end, updated_at
        FROM subscriptions WHERE user_id=$1 ORDER BY updated_at DESC LIMIT 1`, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Subscription{}, ErrSubscriptionNotFound
	}
	return sub, err
}
