package models

import "time"

// Role of a user inside a chat. Privileged operations (pin, rename,
// member management, deleting others' messages) require admin or owner.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
)

// Privileged reports whether the role gates destructive operations.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleOwner
}

// Chat is either a 1:1 chat (is_group=false, name derived from the other
// member) or a named group.
type Chat struct {
	ID        int       `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	IsGroup   bool      `db:"is_group" json:"is_group"`
	CreatedBy int       `db:"created_by" json:"created_by"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// ChatMember is the membership join row.
type ChatMember struct {
	ChatID   int       `db:"chat_id" json:"chat_id"`
	UserID   int       `db:"user_id" json:"user_id"`
	Role     Role      `db:"role" json:"role"`
	JoinedAt time.Time `db:"joined_at" json:"joined_at"`
}

// ChatSummary is the per-user chat list view: derived display name,
// last message preview (decrypted by the caller) and unread counter.
type ChatSummary struct {
	ChatID      int       `db:"id" json:"chat_id"`
	Name        string    `db:"name" json:"name"`
	IsGroup     bool      `db:"is_group" json:"is_group"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	LastMessage *Message  `db:"-" json:"last_message,omitempty"`
	UnreadCount int       `db:"unread_count" json:"unread_count"`
}
