package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrChatNotFound = errors.New("chat not found")

// ChatRepository abstracts chat and membership persistence. RoleOf is the
// authorization source for every mutating chat operation and is queried per
// request; membership can change concurrently and is never cached here.
type ChatRepository interface {
	CreateGroupChat(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Chat, error)
	GetChat(ctx context.Context, chatID int) (models.Chat, error)
	RoleOf(ctx context.Context, chatID int, userID int) (models.Role, bool, error)
	ListChatSummaries(ctx context.Context, userID int) ([]models.ChatSummary, error)
	ListMemberIDs(ctx context.Context, chatID int) ([]int, error)
	RenameChat(ctx context.Context, chatID int, name string) error
	AddMember(ctx context.Context, chatID int, userID int, role models.Role) error
	RemoveMember(ctx context.Context, chatID int, userID int) error
}

// ChatRepo is a sqlx implementation of ChatRepository.
type ChatRepo struct {
	db *sqlx.DB
}

// NewChatRepo constructs a ChatRepo.
func NewChatRepo(db *sqlx.DB) *ChatRepo {
	return &ChatRepo{db: db}
}

// CreateGroupChat creates a group chat and its members atomically. The
// creator becomes owner, listed members join with the member role.
func (r *ChatRepo) CreateGroupChat(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Chat, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Chat{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var chat models.Chat
	if err = tx.QueryRowxContext(ctx, `INSERT INTO chats (name, is_group, created_by) VALUES ($1, TRUE, $2) RETURNING id, name, is_group, created_by, created_at`, name, ownerID).
		Scan(&chat.ID, &chat.Name, &chat.IsGroup, &chat.CreatedBy, &chat.CreatedAt); err != nil {
		return models.Chat{}, err
	}

	if _, err = tx.ExecContext(ctx, `INSERT INTO chat_members (chat_id, user_id, role) VALUES ($1, $2, $3)`, chat.ID, ownerID, models.RoleOwner); err != nil {
		return models.Chat{}, err
	}
	for _, id := range memberIDs {
		if id == ownerID {
			continue
		}
		if _, err = tx.ExecContext(ctx, `INSERT INTO chat_members (chat_id, user_id, role) VALUES ($1, $2, $3) ON CONFLICT (chat_id, user_id) DO NOTHING`, chat.ID, id, models.RoleMember); err != nil {
			return models.Chat{}, err
		}
	}

	if err = tx.Commit(); err != nil {
		return models.Chat{}, err
	}
	return chat, nil
}

// GetChat fetches a chat by id.
func (r *ChatRepo) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	var chat models.Chat
	err := r.db.GetContext(ctx, &chat, `SELECT id, name, is_group, created_by, created_at FROM chats WHERE id=$1`, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Chat{}, ErrChatNotFound
	}
	return chat, err
}

// RoleOf returns the user's role in the chat, with member=false when the
// user does not belong to it.
func (r *ChatRepo) RoleOf(ctx context.Context, chatID int, userID int) (models.Role, bool, error) {
	var role models.Role
	err := r.db.GetContext(ctx, &role, `SELECT role FROM chat_members WHERE chat_id=$1 AND user_id=$2`, chatID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return role, true, nil
}

// ListChatSummaries returns the user's chats with unread counters, newest
// first. Last-message previews are attached by the caller.
func (r *ChatRepo) ListChatSummaries(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	query := `SELECT c.id, c.name, c.is_group, c.created_at,
            (SELECT COUNT(*) FROM messages m WHERE m.chat_id = c.id AND m.is_read = FALSE AND m.sender_id <> $1) AS unread_count
        FROM chats c
        INNER JOIN chat_members cm ON cm.chat_id = c.id
        WHERE cm.user_id = $1
        ORDER BY c.created_at DESC`
	var summaries []models.ChatSummary
	err := r.db.SelectContext(ctx, &summaries, query, userID)
	return summaries, err
}

// ListMemberIDs returns all member ids of a chat.
func (r *ChatRepo) ListMemberIDs(ctx context.Context, chatID int) ([]int, error) {
	var ids []int
	err := r.db.SelectContext(ctx, &ids, `SELECT user_id FROM chat_members WHERE chat_id=$1 ORDER BY user_id`, chatID)
	return ids, err
}

// RenameChat updates the display name of a chat.
func (r *ChatRepo) RenameChat(ctx context.Context, chatID int, name string) error {
	res, err := r.db.ExecContext(ctx, `UPDATE chats SET name=$1 WHERE id=$2`, name, chatID)
	if err != nil {
		return err
	}
	count, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if count == 0 {
		return ErrChatNotFound
	}
	return nil
}

// AddMember inserts a membership row; adding an existing member is a no-op.
func (r *ChatRepo) AddMember(ctx context.Context, chatID int, userID int, role models.Role) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO chat_members (chat_id, user_id, role) VALUES ($1, $2, $3) ON CONFLICT (chat_id, user_id) DO NOTHING`, chatID, userID, role)
	return err
}

// RemoveMember deletes a membership row.
func (r *ChatRepo) RemoveMember(ctx context.Context, chatID int, userID int) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM chat_members WHERE chat_id=$1 AND user_id=$2`, chatID, userID)
	return err
}
