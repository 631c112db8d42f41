package repositories

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// PresenceRepository persists the online flag and last-seen timestamp the
// presence tracker maintains in memory.
type PresenceRepository interface {
	SetOnline(ctx context.Context, userID int, online bool, lastSeen time.Time) error
	GetMany(ctx context.Context, userIDs []int) (map[int]models.Presence, error)
}

// PresenceRepo is a sqlx implementation of PresenceRepository.
type PresenceRepo struct {
	db *sqlx.DB
}

// NewPresenceRepo constructs a PresenceRepo.
func NewPresenceRepo(db *sqlx.DB) *PresenceRepo {
	return &PresenceRepo{db: db}
}

// SetOnline upserts the presence row.
func (r *PresenceRepo) SetOnline(ctx context.Context, userID int, online bool, lastSeen time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO user_presence (user_id, is_online, last_seen) VALUES ($1, $2, $3)
         ON CONFLICT (user_id) DO UPDATE SET is_online = EXCLUDED.is_online, last_seen = EXCLUDED.last_seen`,
		userID, online, lastSeen)
	return err
}

// GetMany fetches presence rows for the given users. Users without a row are
// simply absent from the result.
func (r *PresenceRepo) GetMany(ctx context.Context, userIDs []int) (map[int]models.Presence, error) {
	result := make(map[int]models.Presence, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	query, args, err := sqlx.In(`SELECT user_id, is_online, last_seen FROM user_presence WHERE user_id IN (?)`, userIDs)
	if err != nil {
		return nil, err
	}
	var rows []models.Presence
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	for _, p := range rows {
		result[p.UserID] = p
	}
	return result, nil
}
