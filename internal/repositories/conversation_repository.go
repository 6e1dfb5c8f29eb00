package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/feed"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
)

var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository abstracts conversation persistence.
type ConversationRepository interface {
	CreateOrGet(ctx context.Context, guardianID, professionalID int64, dogID *int64) (models.Conversation, error)
	GetForParticipant(ctx context.Context, conversationID, userID int64) (models.Conversation, error)
	ListForParticipant(ctx context.Context, userID int64) ([]models.Conversation, error)
}

// ConversationRepo is a sqlx implementation of ConversationRepository.
type ConversationRepo struct {
	db     *sqlx.DB
	broker *feed.Broker
}

// NewConversationRepo constructs a ConversationRepo.
func NewConversationRepo(db *sqlx.DB, broker *feed.Broker) *ConversationRepo {
	return &ConversationRepo{db: db, broker: broker}
}

const conversationColumns = `id, guardian_id, professional_id, dog_id, last_message_at, created_at`

// CreateOrGet creates the guardian/professional pairing if it does not
// already exist. The optional dog scope is part of the pairing key.
func (r *ConversationRepo) CreateOrGet(ctx context.Context, guardianID, professionalID int64, dogID *int64) (models.Conversation, error) {
	if guardianID == professionalID {
		return models.Conversation{}, errors.New("guardian and professional must differ")
	}

	var conv models.Conversation
	query := `SELECT ` + conversationColumns + ` FROM conversations
        WHERE guardian_id=$1 AND professional_id=$2 AND dog_id IS NOT DISTINCT FROM $3`
	err := r.db.GetContext(ctx, &conv, query, guardianID, professionalID, dogID)
	if err == nil {
		return conv, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, err
	}

	err = r.db.QueryRowxContext(ctx, `INSERT INTO conversations (guardian_id, professional_id, dog_id)
        VALUES ($1, $2, $3) RETURNING `+conversationColumns, guardianID, professionalID, dogID).
		StructScan(&conv)
	if err != nil {
		return models.Conversation{}, err
	}

	r.broker.Publish(feed.Event{Collection: feed.Conversations, Kind: feed.Insert, ConversationID: conv.ID})
	return conv, nil
}

// GetForParticipant fetches a conversation only when the user is one of its parties.
func (r *ConversationRepo) GetForParticipant(ctx context.Context, conversationID, userID int64) (models.Conversation, error) {
	var conv models.Conversation
	err := r.db.GetContext(ctx, &conv, `SELECT `+conversationColumns+` FROM conversations
        WHERE id=$1 AND (guardian_id=$2 OR professional_id=$2)`, conversationID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Conversation{}, ErrConversationNotFound
	}
	return conv, err
}

// ListForParticipant returns the user's conversations, most recently active
// first, conversations without any message last.
func (r *ConversationRepo) ListForParticipant(ctx context.Context, userID int64) ([]models.Conversation, error) {
	var convs []models.Conversation
	err := r.db.SelectContext(ctx, &convs, `SELECT `+conversationColumns+` FROM conversations
        WHERE guardian_id=$1 OR professional_id=$1
        ORDER BY last_message_at DESC NULLS LAST, id DESC`, userID)
	return convs, err
}
