package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"messenger-service/internal/models"
)

// AttachmentRepository stores file metadata for non-text messages. The file
// bytes themselves live in the external blob store.
type AttachmentRepository interface {
	Create(ctx context.Context, messageID int, fileName string, fileSize int64, mimeType string, uploadedBy int) (models.Attachment, error)
	GetForMessage(ctx context.Context, messageID int) ([]models.Attachment, error)
}

// AttachmentRepo is a sqlx implementation of AttachmentRepository.
type AttachmentRepo struct {
	db *sqlx.DB
}

// NewAttachmentRepo constructs an AttachmentRepo.
func NewAttachmentRepo(db *sqlx.DB) *AttachmentRepo {
	return &AttachmentRepo{db: db}
}

// Create persists attachment metadata for a message.
func (r *AttachmentRepo) Create(ctx context.Context, messageID int, fileName string, fileSize int64, mimeType string, uploadedBy int) (models.Attachment, error) {
	var att models.Attachment
	err := r.db.QueryRowxContext(ctx,
		`INSERT INTO attachments (message_id, file_name, file_size, mime_type, uploaded_by)
         VALUES ($1, $2, $3, $4, $5) RETURNING id, message_id, file_name, file_size, mime_type, uploaded_by, uploaded_at`,
		messageID, fileName, fileSize, mimeType, uploadedBy).StructScan(&att)
	return att, err
}

// GetForMessage returns attachment metadata for a message.
func (r *AttachmentRepo) GetForMessage(ctx context.Context, messageID int) ([]models.Attachment, error) {
	var atts []models.Attachment
	err := r.db.SelectContext(ctx, &atts, `SELECT id, message_id, file_name, file_size, mime_type, uploaded_by, uploaded_at FROM attachments WHERE message_id=$1 ORDER BY id ASC`, messageID)
	return atts, err
}
