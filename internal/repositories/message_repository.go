package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/feed"
	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
)

// MessageRepository defines interactions for conversation messages.
type MessageRepository interface {
	Create(ctx context.Context, conversationID, senderID int64, senderRole models.Role, body string) (models.Message, error)
	ListByConversation(ctx context.Context, conversationID int64) ([]models.Message, error)
	LastMessage(ctx context.Context, conversationID int64) (*models.Message, error)
	CountUnreadForUser(ctx context.Context, userID int64) (int, error)
	CountUnreadInConversation(ctx context.Context, conversationID, userID int64) (int, error)
	MarkConversationRead(ctx context.Context, conversationID, readerID int64) error
	MarkMessageRead(ctx context.Context, messageID, readerID int64) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db     *sqlx.DB
	broker *feed.Broker
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB, broker *feed.Broker) *MessageRepo {
	return &MessageRepo{db: db, broker: broker}
}

const messageColumns = `id, conversation_id, sender_id, sender_role, body, read, created_at`

// Create stores a message and bumps the conversation's last-activity
// timestamp in the same transaction, then publishes the insert event.
func (r *MessageRepo) Create(ctx context.Context, conversationID, senderID int64, senderRole models.Role, body string) (models.Message, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Message{}, err
	}
	defer func() { _ = tx.Rollback() }()

	var msg models.Message
	err = tx.QueryRowxContext(ctx, `INSERT INTO messages (conversation_id, sender_id, sender_role, body)
        VALUES ($1, $2, $3, $4) RETURNING `+messageColumns, conversationID, senderID, senderRole, body).
		StructScan(&msg)
	if err != nil {
		return models.Message{}, err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE conversations SET last_message_at=$1 WHERE id=$2`,
		msg.CreatedAt, conversationID); err != nil {
		return models.Message{}, err
	}

	if err := tx.Commit(); err != nil {
		return models.Message{}, err
	}

	r.broker.Publish(feed.Event{Collection: feed.Messages, Kind: feed.Insert, ConversationID: conversationID, Message: &msg})
	r.broker.Publish(feed.Event{Collection: feed.Conversations, Kind: feed.Update, ConversationID: conversationID})
	return msg, nil
}

// ListByConversation returns the full history, oldest first.
func (r *MessageRepo) ListByConversation(ctx context.Context, conversationID int64) ([]models.Message, error) {
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id=$1 ORDER BY created_at ASC, id ASC`, conversationID)
	return msgs, err
}

// LastMessage returns the newest message of the conversation, nil when empty.
func (r *MessageRepo) LastMessage(ctx context.Context, conversationID int64) (*models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages
        WHERE conversation_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, conversationID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

// CountUnreadForUser counts unread messages addressed to the user across all
// of their conversations.
func (r *MessageRepo) CountUnreadForUser(ctx context.Context, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages m
        JOIN conversations c ON c.id = m.conversation_id
        WHERE (c.guardian_id=$1 OR c.professional_id=$1)
          AND m.read = FALSE AND m.sender_id <> $1`, userID)
	return count, err
}

// CountUnreadInConversation counts unread messages addressed to the user in
// one conversation.
func (r *MessageRepo) CountUnreadInConversation(ctx context.Context, conversationID, userID int64) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM messages
        WHERE conversation_id=$1 AND read = FALSE AND sender_id <> $2`, conversationID, userID)
	return count, err
}

// MarkConversationRead flips every unread incoming message to read in one
// bulk update. Re-marking already-read rows is a no-op.
func (r *MessageRepo) MarkConversationRead(ctx context.Context, conversationID, readerID int64) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET read = TRUE
        WHERE conversation_id=$1 AND sender_id <> $2 AND read = FALSE`, conversationID, readerID)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		r.broker.Publish(feed.Event{Collection: feed.Messages, Kind: feed.Update, ConversationID: conversationID})
	}
	return nil
}

// MarkMessageRead flips one incoming message to read.
func (r *MessageRepo) MarkMessageRead(ctx context.Context, messageID, readerID int64) error {
	var conversationID int64
	err := r.db.GetContext(ctx, &conversationID, `UPDATE messages SET read = TRUE
        WHERE id=$1 AND sender_id <> $2 AND read = FALSE
        RETURNING conversation_id`, messageID, readerID)
	if errors.Is(err, sql.ErrNoRows) {
		// Already read, or not addressed to the reader.
		return nil
	}
	if err != nil {
		return err
	}
	r.broker.Publish(feed.Event{Collection: feed.Messages, Kind: feed.Update, ConversationID: conversationID})
	return nil
}
