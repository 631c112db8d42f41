package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

var ErrContactExists = errors.New("contact already exists")

// ContactRepository manages the directed contact graph. Adding a contact and
// creating the underlying 1:1 chat is one transaction: either the edge and
// the chat with both member rows exist afterwards, or neither does.
type ContactRepository interface {
	AddContact(ctx context.Context, ownerID int, contactID int) (models.Contact, error)
	ListContacts(ctx context.Context, ownerID int) ([]models.Contact, error)
}

// ContactRepo is a sqlx implementation of ContactRepository.
type ContactRepo struct {
	db *sqlx.DB
}

// NewContactRepo constructs a ContactRepo.
func NewContactRepo(db *sqlx.DB) *ContactRepo {
	return &ContactRepo{db: db}
}

// AddContact inserts the contact edge and creates or reuses the 1:1 chat
// between the two users, all inside one transaction.
func (r *ContactRepo) AddContact(ctx context.Context, ownerID int, contactID int) (models.Contact, error) {
	if ownerID == contactID {
		return models.Contact{}, errors.New("cannot add self as contact")
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return models.Contact{}, err
	}
	defer func() {
		if err != nil {
			tx.Rollback()
		}
	}()

	var exists bool
	if err = tx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM contacts WHERE owner_id=$1 AND contact_id=$2)`, ownerID, contactID); err != nil {
		return models.Contact{}, err
	}
	if exists {
		err = ErrContactExists
		return models.Contact{}, err
	}

	// Reuse a direct chat if one already exists between the pair, e.g.
	// created by the reverse contact edge.
	var chatID int
	err = tx.GetContext(ctx, &chatID,
		`SELECT c.id FROM chats c
         INNER JOIN chat_members m1 ON m1.chat_id = c.id AND m1.user_id = $1
         INNER JOIN chat_members m2 ON m2.chat_id = c.id AND m2.user_id = $2
         WHERE c.is_group = FALSE
         LIMIT 1`, ownerID, contactID)
	if errors.Is(err, sql.ErrNoRows) {
		if err = tx.QueryRowxContext(ctx, `INSERT INTO chats (name, is_group, created_by) VALUES ('', FALSE, $1) RETURNING id`, ownerID).Scan(&chatID); err != nil {
			return models.Contact{}, err
		}
		for _, id := range []int{ownerID, contactID} {
			if _, err = tx.ExecContext(ctx, `INSERT INTO chat_members (chat_id, user_id, role) VALUES ($1, $2, $3)`, chatID, id, models.RoleMember); err != nil {
				return models.Contact{}, err
			}
		}
	} else if err != nil {
		return models.Contact{}, err
	}

	var contact models.Contact
	if err = tx.QueryRowxContext(ctx,
		`INSERT INTO contacts (owner_id, contact_id, chat_id) VALUES ($1, $2, $3) RETURNING owner_id, contact_id, chat_id, created_at`,
		ownerID, contactID, chatID).StructScan(&contact); err != nil {
		return models.Contact{}, err
	}

	if err = tx.Commit(); err != nil {
		return models.Contact{}, err
	}
	return contact, nil
}

// ListContacts returns the user's contact edges, oldest first.
func (r *ContactRepo) ListContacts(ctx context.Context, ownerID int) ([]models.Contact, error) {
	var contacts []models.Contact
	err := r.db.SelectContext(ctx, &contacts, `SELECT owner_id, contact_id, chat_id, created_at FROM contacts WHERE owner_id=$1 ORDER BY created_at ASC`, ownerID)
	return contacts, err
}
