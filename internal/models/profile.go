package models

import "time"

// GuardianProfile is the public profile of a dog guardian.
type GuardianProfile struct {
	UserID      int64     `db:"user_id" json:"user_id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	AvatarURL   string    `db:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// ProfessionalProfile is the public profile of a pet-care professional.
type ProfessionalProfile struct {
	UserID      int64     `db:"user_id" json:"user_id"`
	DisplayName string    `db:"display_name" json:"display_name"`
	AvatarURL   string    `db:"avatar_url" json:"avatar_url,omitempty"`
	Specialty   string    `db:"specialty" json:"specialty,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

// Dog belongs to a guardian and can scope a conversation.
type Dog struct {
	ID         int64     `db:"id" json:"id"`
	GuardianID int64     `db:"guardian_id" json:"guardian_id"`
	Name       string    `db:"name" json:"name"`
	Breed      string    `db:"breed" json:"breed,omitempty"`
	CreatedAt  time.Time `db:"created_at" json:"created_at"`
}
