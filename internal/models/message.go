package models

import "time"

// Content types a message may carry.
const (
	ContentTypeText  = "text"
	ContentTypeImage = "image"
	ContentTypeFile  = "file"
	ContentTypeAudio = "audio"
	ContentTypeVideo = "video"
	ContentTypeVoice = "voice"
)

// TombstoneContent replaces the body of a deleted message. Deleted rows are
// kept and are immutable from that point on.
const TombstoneContent = "Message deleted"

// ValidContentType reports whether t is part of the content-type vocabulary.
func ValidContentType(t string) bool {
	switch t {
	case ContentTypeText, ContentTypeImage, ContentTypeFile, ContentTypeAudio, ContentTypeVideo, ContentTypeVoice:
		return true
	}
	return false
}

// Message is a persisted chat message. Content holds ciphertext when
// IsEncrypted is set; legacy rows may still carry plaintext.
type Message struct {
	ID          int        `db:"id" json:"id"`
	ChatID      int        `db:"chat_id" json:"chat_id"`
	SenderID    int        `db:"sender_id" json:"sender_id"`
	Content     string     `db:"content" json:"content"`
	ContentType string     `db:"content_type" json:"content_type"`
	IsEncrypted bool       `db:"is_encrypted" json:"is_encrypted"`
	IsRead      bool       `db:"is_read" json:"is_read"`
	IsEdited    bool       `db:"is_edited" json:"is_edited"`
	IsDeleted   bool       `db:"is_deleted" json:"is_deleted"`
	IsPinned    bool       `db:"is_pinned" json:"is_pinned"`
	ReplyToID   *int       `db:"reply_to_id" json:"reply_to_id,omitempty"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	EditedAt    *time.Time `db:"edited_at" json:"edited_at,omitempty"`
}

// Reaction is at most one per (message, user). Re-submitting the same emoji
// removes it, a different emoji replaces it.
type Reaction struct {
	MessageID int       `db:"message_id" json:"message_id"`
	UserID    int       `db:"user_id" json:"user_id"`
	Emoji     string    `db:"emoji" json:"emoji"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Reaction toggle outcomes.
const (
	ReactionAdded   = "added"
	ReactionUpdated = "updated"
	ReactionRemoved = "removed"
)

// Attachment records file metadata for non-text messages. The bytes live in
// the external blob store; this service never reads them.
type Attachment struct {
	ID         int       `db:"id" json:"id"`
	MessageID  int       `db:"message_id" json:"message_id"`
	FileName   string    `db:"file_name" json:"file_name"`
	FileSize   int64     `db:"file_size" json:"file_size"`
	MimeType   string    `db:"mime_type" json:"mime_type"`
	UploadedBy int       `db:"uploaded_by" json:"uploaded_by"`
	UploadedAt time.Time `db:"uploaded_at" json:"uploaded_at"`
}
