package models

import (
	"database/sql"
	"time"
)

// Subscription mirrors the payment provider's subscription state for a user.
// It is written exclusively by the billing webhook sync.
type Subscription struct {
	ID                     int64        `db:"id" json:"id"`
	UserID                 int64        `db:"user_id" json:"user_id"`
	ProviderSubscriptionID string       `db:"provider_subscription_id" json:"provider_subscription_id"`
	ProviderCustomerID     string       `db:"provider_customer_id" json:"provider_customer_id"`
	Status                 string       `db:"status" json:"status"`
	CurrentPeriodEnd       sql.NullTime `db:"current_period_end" json:"current_period_end,omitempty"`
	UpdatedAt              time.Time    `db:"updated_at" json:"updated_at"`
}

// Invoice is a read-only view of a provider invoice, never stored locally.
type Invoice struct {
	ID          string    `json:"id"`
	AmountCents int64     `json:"amount_cents"`
	Currency    string    `json:"currency"`
	Status      string    `json:"status"`
	HostedURL   string    `json:"hosted_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}
