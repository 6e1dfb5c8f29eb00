package models

import (
	"database/sql"
	"time"
)

// Conversation pairs one guardian with one professional, optionally scoped to a dog.
type Conversation struct {
	ID             int64         `db:"id" json:"id"`
	GuardianID     int64         `db:"guardian_id" json:"guardian_id"`
	ProfessionalID int64         `db:"professional_id" json:"professional_id"`
	DogID          sql.NullInt64 `db:"dog_id" json:"dog_id,omitempty"`
	LastMessageAt  sql.NullTime  `db:"last_message_at" json:"last_message_at,omitempty"`
	CreatedAt      time.Time     `db:"created_at" json:"created_at"`
}

// Counterpart returns the other party's user id.
func (c Conversation) Counterpart(userID int64) int64 {
	if c.GuardianID == userID {
		return c.ProfessionalID
	}
	return c.GuardianID
}

// ConversationSummary is the derived list-view enrichment of a conversation.
// It is recomputed on every refresh and never persisted.
type ConversationSummary struct {
	Conversation
	CounterpartName   string  `json:"counterpart_name"`
	CounterpartAvatar string  `json:"counterpart_avatar,omitempty"`
	DogName           string  `json:"dog_name,omitempty"`
	LastMessageBody   *string `json:"last_message_body,omitempty"`
	UnreadCount       int     `json:"unread_count"`
}
