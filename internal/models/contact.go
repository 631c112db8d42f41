package models

import "time"

// Contact is a directed edge from owner to contact. Creating it also creates
// (or reuses) the underlying 1:1 chat in the same transaction.
type Contact struct {
	OwnerID   int       `db:"owner_id" json:"owner_id"`
	ContactID int       `db:"contact_id" json:"contact_id"`
	ChatID    int       `db:"chat_id" json:"chat_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Presence mirrors the online state this service owns for a user; the rest
// of the user record lives in the identity provider.
type Presence struct {
	UserID   int       `db:"user_id" json:"user_id"`
	IsOnline bool      `db:"is_online" json:"is_online"`
	LastSeen time.Time `db:"last_seen" json:"last_seen"`
}
