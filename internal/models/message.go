package models

import "time"

// Role of a signed-in actor. An identity holds at most one role at a time.
type Role string

const (
	RoleGuardian     Role = "guardian"
	RoleProfessional Role = "professional"
	RoleNone         Role = "none"
)

// Identity is an immutable snapshot of the signed-in actor.
type Identity struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
}

// Message belongs to exactly one conversation. The read flag transitions
// false to true only, driven by the recipient.
type Message struct {
	ID             int64     `db:"id" json:"id"`
	ConversationID int64     `db:"conversation_id" json:"conversation_id"`
	SenderID       int64     `db:"sender_id" json:"sender_id"`
	SenderRole     Role      `db:"sender_role" json:"sender_role"`
	Body           string    `db:"body" json:"body"`
	Read           bool      `db:"read" json:"read"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
}

// ChatEvent is pushed through conversation websockets.
type ChatEvent struct {
	Type     string      `json:"type"`
	Message  *Message    `json:"message,omitempty"`
	Messages []Message   `json:"messages,omitempty"`
	Header   *ChatHeader `json:"header,omitempty"`
}

// ChatHeader carries the display data shown above a chat window.
type ChatHeader struct {
	ConversationID   int64  `json:"conversation_id"`
	GuardianName     string `json:"guardian_name"`
	ProfessionalName string `json:"professional_name"`
	DogName          string `json:"dog_name,omitempty"`
}

// InboxEvent is pushed through inbox websockets.
type InboxEvent struct {
	Type          string                `json:"type"`
	UnreadCount   *int                  `json:"unread_count,omitempty"`
	Conversations []ConversationSummary `json:"conversations,omitempty"`
}
