package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// ReactionRepository defines the reaction toggle. A user holds at most one
// reaction per message.
type ReactionRepository interface {
	Toggle(ctx context.Context, messageID int, userID int, emoji string) (string, error)
	ListForMessage(ctx context.Context, messageID int) ([]models.Reaction, error)
}

// ReactionRepo is a sqlx implementation of ReactionRepository.
type ReactionRepo struct {
	db *sqlx.DB
}

// NewReactionRepo constructs a ReactionRepo.
func NewReactionRepo(db *sqlx.DB) *ReactionRepo {
	return &ReactionRepo{db: db}
}

// Toggle applies the reaction law: same emoji removes the reaction, a
// different emoji replaces it, no existing reaction inserts one. Runs in a
// transaction so concurrent toggles cannot produce two rows per user.
func (r *ReactionRepo) Toggle(ctx context.Context, messageID int, userID int, emoji string) (string, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var existing string
	err = tx.GetContext(ctx, &existing, `SELECT emoji FROM reactions WHERE message_id=$1 AND user_id=$2 FOR UPDATE`, messageID, userID)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		err = nil
		if _, err = tx.ExecContext(ctx, `INSERT INTO reactions (message_id, user_id, emoji) VALUES ($1, $2, $3)`, messageID, userID, emoji); err != nil {
			return "", err
		}
		if err = tx.Commit(); err != nil {
			return "", err
		}
		return models.ReactionAdded, nil
	case err != nil:
		return "", err
	case existing == emoji:
		if _, err = tx.ExecContext(ctx, `DELETE FROM reactions WHERE message_id=$1 AND user_id=$2`, messageID, userID); err != nil {
			return "", err
		}
		if err = tx.Commit(); err != nil {
			return "", err
		}
		return models.ReactionRemoved, nil
	default:
		if _, err = tx.ExecContext(ctx, `UPDATE reactions SET emoji=$1, created_at=NOW() WHERE message_id=$2 AND user_id=$3`, emoji, messageID, userID); err != nil {
			return "", err
		}
		if err = tx.Commit(); err != nil {
			return "", err
		}
		return models.ReactionUpdated, nil
	}
}

// ListForMessage returns all reactions on a message.
func (r *ReactionRepo) ListForMessage(ctx context.Context, messageID int) ([]models.Reaction, error) {
	var reactions []models.Reaction
	err := r.db.SelectContext(ctx, &reactions, `SELECT message_id, user_id, emoji, created_at FROM reactions WHERE message_id=$1 ORDER BY created_at ASC`, messageID)
	return reactions, err
}
