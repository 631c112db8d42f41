package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrMessageNotFound = errors.New("message not found")

const messageColumns = `id, chat_id, sender_id, content, content_type, is_encrypted, is_read, is_edited, is_deleted, is_pinned, reply_to_id, created_at, edited_at`

// MessageRepository defines interactions for stored messages. Content passed
// in and out of the write methods is ciphertext; the delivery pipeline owns
// the cipher boundary.
type MessageRepository interface {
	CreateMessage(ctx context.Context, chatID int, senderID int, content string, contentType string, encrypted bool, replyToID *int) (models.Message, error)
	ListMessages(ctx context.Context, chatID int, page int, perPage int) ([]models.Message, error)
	GetMessage(ctx context.Context, messageID int) (models.Message, error)
	LastMessage(ctx context.Context, chatID int) (models.Message, error)
	UpdateContent(ctx context.Context, messageID int, content string, encrypted bool) error
	Tombstone(ctx context.Context, messageID int) error
	SetPinned(ctx context.Context, messageID int, pinned bool) error
	MarkRead(ctx context.Context, chatID int, readerID int) error
}

// MessageRepo is a sqlx-backed repository.
type MessageRepo struct {
	db *sqlx.DB
}

// NewMessageRepo constructs MessageRepo.
func NewMessageRepo(db *sqlx.DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// CreateMessage persists a message row.
func (r *MessageRepo) CreateMessage(ctx context.Context, chatID int, senderID int, content string, contentType string, encrypted bool, replyToID *int) (models.Message, error) {
	var msg models.Message
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO messages (chat_id, sender_id, content, content_type, is_encrypted, reply_to_id)
         VALUES ($1, $2, $3, $4, $5, $6) RETURNING `+messageColumns,
		chatID, senderID, content, contentType, encrypted, replyToID).StructScan(&msg)
	return msg, err
}

// ListMessages returns one page of history. Page 1 holds the newest
// messages; within a page the order is chronological.
func (r *MessageRepo) ListMessages(ctx context.Context, chatID int, page int, perPage int) ([]models.Message, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * perPage
	var msgs []models.Message
	err := r.db.SelectContext(ctx, &msgs,
		`SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 ORDER BY created_at DESC, id DESC LIMIT $2 OFFSET $3`,
		chatID, perPage, offset)
	if err != nil {
		return nil, err
	}
	reverseMessages(msgs)
	return msgs, nil
}

func reverseMessages(msgs []models.Message) {
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
}

// GetMessage retrieves a single message.
func (r *MessageRepo) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE id=$1`, messageID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// LastMessage returns the newest message of a chat.
func (r *MessageRepo) LastMessage(ctx context.Context, chatID int) (models.Message, error) {
	var msg models.Message
	err := r.db.GetContext(ctx, &msg, `SELECT `+messageColumns+` FROM messages WHERE chat_id=$1 ORDER BY created_at DESC, id DESC LIMIT 1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Message{}, ErrMessageNotFound
	}
	return msg, err
}

// UpdateContent replaces the body of a not-deleted message and stamps the
// edit. Tombstoned rows are immutable.
func (r *MessageRepo) UpdateContent(ctx context.Context, messageID int, content string, encrypted bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET content=$1, is_encrypted=$2, is_edited=TRUE, edited_at=$3 WHERE id=$4 AND is_deleted=FALSE`,
		content, encrypted, time.Now().UTC(), messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// Tombstone marks a message deleted and replaces its content with the
// placeholder marker. Idempotent once set.
func (r *MessageRepo) Tombstone(ctx context.Context, messageID int) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE messages SET content=$1, is_encrypted=FALSE, is_deleted=TRUE, is_pinned=FALSE WHERE id=$2`,
		models.TombstoneContent, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// SetPinned flips the pin flag on a not-deleted message.
func (r *MessageRepo) SetPinned(ctx context.Context, messageID int, pinned bool) error {
	res, err := r.db.ExecContext(ctx, `UPDATE messages SET is_pinned=$1 WHERE id=$2 AND is_deleted=FALSE`, pinned, messageID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrMessageNotFound
	}
	return nil
}

// MarkRead marks every unread message in the chat authored by someone else
// as read. Read receipts are fetch-triggered.
func (r *MessageRepo) MarkRead(ctx context.Context, chatID int, readerID int) error {
	_, err := r.db.ExecContext(ctx, `UPDATE messages SET is_read=TRUE WHERE chat_id=$1 AND is_read=FALSE AND sender_id<>$2`, chatID, readerID)
	return err
}
