package delivery

import (
	"context"
	"errors"
	"log"
	"time"
	"unicode/utf8"

	"messenger-service/internal/crypto"
	"messenger-service/internal/models"
	"messenger-service/internal/observability"
	"messenger-service/internal/repositories"
	"messenger-service/internal/ws"
)

var (
	// ErrForbidden means the membership or role check failed. Nothing was
	// persisted and nothing was broadcast.
	ErrForbidden = errors.New("not allowed")
	// ErrValidation covers empty/oversized content and malformed references,
	// reported before any side effect.
	ErrValidation = errors.New("invalid message")
	// ErrEditWindowExpired rejects edits past the allowed window.
	ErrEditWindowExpired = errors.New("edit window expired")
	// ErrMessageDeleted rejects mutations of a tombstoned message.
	ErrMessageDeleted = errors.New("message is deleted")
)

const (
	maxContentLength = 4000
	editWindow       = 48 * time.Hour

	// DecryptPlaceholder replaces bodies that cannot be decrypted. The
	// failure is recovered per message so one bad row never aborts a fetch.
	DecryptPlaceholder = "[Unable to decrypt message]"
)

// Cipher is the at-rest encryption boundary.
type Cipher interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// Broadcaster is the fan-out slice the pipeline needs. The pipeline never
// excludes the sender; exclusion exists for typing indicators only.
type Broadcaster interface {
	BroadcastRoom(chatID int, event models.Event, exclude *ws.Client)
}

// Pipeline orchestrates message operations: authorize against fresh
// membership, encrypt before persisting, and only after a successful write
// fan the plaintext out to the chat's room. A persistence failure therefore
// never produces a broadcast.
type Pipeline struct {
	chats     repositories.ChatRepository
	messages  repositories.MessageRepository
	reactions repositories.ReactionRepository
	cipher    Cipher
	hub       Broadcaster
}

// NewPipeline constructs a Pipeline.
func NewPipeline(chats repositories.ChatRepository, messages repositories.MessageRepository, reactions repositories.ReactionRepository, cipher Cipher, hub Broadcaster) *Pipeline {
	return &Pipeline{
		chats:     chats,
		messages:  messages,
		reactions: reactions,
		cipher:    cipher,
		hub:       hub,
	}
}

// SendMessage validates, encrypts, persists and broadcasts a message. The
// returned message carries the plaintext body for the HTTP response; the
// stored row holds ciphertext with is_encrypted set.
func (p *Pipeline) SendMessage(ctx context.Context, chatID, senderID int, content, contentType string, replyToID *int) (models.Message, error) {
	if err := validateContent(content); err != nil {
		return models.Message{}, err
	}
	if contentType == "" {
		contentType = models.ContentTypeText
	}
	if !models.ValidContentType(contentType) {
		return models.Message{}, ErrValidation
	}

	if _, member, err := p.chats.RoleOf(ctx, chatID, senderID); err != nil {
		return models.Message{}, err
	} else if !member {
		return models.Message{}, ErrForbidden
	}

	if replyToID != nil {
		parent, err := p.messages.GetMessage(ctx, *replyToID)
		if err != nil {
			return models.Message{}, ErrValidation
		}
		if parent.ChatID != chatID {
			return models.Message{}, ErrValidation
		}
	}

	encrypted, err := p.cipher.Encrypt(content)
	if err != nil {
		return models.Message{}, err
	}

	msg, err := p.messages.CreateMessage(ctx, chatID, senderID, encrypted, contentType, true, replyToID)
	if err != nil {
		return models.Message{}, err
	}

	createdAt := msg.CreatedAt
	p.hub.BroadcastRoom(chatID, models.Event{
		Type:        models.EventNewMessage,
		ID:          msg.ID,
		Content:     content,
		ContentType: msg.ContentType,
		SenderID:    msg.SenderID,
		ChatID:      chatID,
		ReplyToID:   msg.ReplyToID,
		CreatedAt:   &createdAt,
	}, nil)

	_ = observability.PublishEvent(ctx, "chat.message.new", observability.EventEnvelope{
		EventType: "chat",
		EventName: models.EventNewMessage,
		Payload:   map[string]interface{}{"chat_id": chatID, "message_id": msg.ID, "sender_id": senderID},
	})

	msg.Content = content
	msg.IsEncrypted = false
	return msg, nil
}

// FetchMessages returns one page of a chat's history with bodies decrypted,
// and marks foreign unread messages read as a side effect of the fetch.
func (p *Pipeline) FetchMessages(ctx context.Context, chatID, userID, page, perPage int) ([]models.Message, error) {
	if _, member, err := p.chats.RoleOf(ctx, chatID, userID); err != nil {
		return nil, err
	} else if !member {
		return nil, ErrForbidden
	}

	msgs, err := p.messages.ListMessages(ctx, chatID, page, perPage)
	if err != nil {
		return nil, err
	}
	for i := range msgs {
		msgs[i] = p.Reveal(msgs[i])
	}

	if err := p.messages.MarkRead(ctx, chatID, userID); err != nil {
		log.Printf("mark read failed chat_id=%d user_id=%d: %v", chatID, userID, err)
	}
	return msgs, nil
}

// EditMessage replaces a message body. Only the sender may edit, only within
// the edit window, and never after deletion.
func (p *Pipeline) EditMessage(ctx context.Context, chatID, messageID, userID int, content string) (models.Message, error) {
	if err := validateContent(content); err != nil {
		return models.Message{}, err
	}

	msg, err := p.authorizeMessageOp(ctx, chatID, messageID, userID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.SenderID != userID {
		return models.Message{}, ErrForbidden
	}
	if msg.IsDeleted {
		return models.Message{}, ErrMessageDeleted
	}
	if time.Since(msg.CreatedAt) > editWindow {
		return models.Message{}, ErrEditWindowExpired
	}

	encrypted, err := p.cipher.Encrypt(content)
	if err != nil {
		return models.Message{}, err
	}
	if err := p.messages.UpdateContent(ctx, messageID, encrypted, true); err != nil {
		return models.Message{}, err
	}

	p.hub.BroadcastRoom(chatID, models.Event{
		Type:      models.EventMessageEdited,
		MessageID: messageID,
		Content:   content,
		ChatID:    chatID,
	}, nil)
	_ = observability.PublishEvent(ctx, "chat.message.edited", observability.EventEnvelope{
		EventType: "chat",
		EventName: models.EventMessageEdited,
		Payload:   map[string]interface{}{"chat_id": chatID, "message_id": messageID},
	})

	msg.Content = content
	msg.IsEncrypted = false
	msg.IsEdited = true
	return msg, nil
}

// DeleteMessage tombstones a message. The sender may delete their own
// message; admins and owners may delete anyone's. A second delete of the
// same message is a no-op.
func (p *Pipeline) DeleteMessage(ctx context.Context, chatID, messageID, userID int) error {
	role, member, err := p.chats.RoleOf(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !member {
		return ErrForbidden
	}

	msg, err := p.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ChatID != chatID {
		return ErrValidation
	}
	if msg.SenderID != userID && !role.Privileged() {
		return ErrForbidden
	}
	if msg.IsDeleted {
		return nil
	}

	if err := p.messages.Tombstone(ctx, messageID); err != nil {
		return err
	}

	p.hub.BroadcastRoom(chatID, models.Event{
		Type:      models.EventMessageDeleted,
		MessageID: messageID,
		ChatID:    chatID,
	}, nil)
	_ = observability.PublishEvent(ctx, "chat.message.deleted", observability.EventEnvelope{
		EventType: "chat",
		EventName: models.EventMessageDeleted,
		Payload:   map[string]interface{}{"chat_id": chatID, "message_id": messageID},
	})
	return nil
}

// SetPinned pins or unpins a message; admin or owner only.
func (p *Pipeline) SetPinned(ctx context.Context, chatID, messageID, userID int, pinned bool) error {
	role, member, err := p.chats.RoleOf(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !member || !role.Privileged() {
		return ErrForbidden
	}

	msg, err := p.messages.GetMessage(ctx, messageID)
	if err != nil {
		return err
	}
	if msg.ChatID != chatID {
		return ErrValidation
	}
	if msg.IsDeleted {
		return ErrMessageDeleted
	}

	if err := p.messages.SetPinned(ctx, messageID, pinned); err != nil {
		return err
	}

	p.hub.BroadcastRoom(chatID, models.Event{
		Type:      models.EventMessagePinned,
		MessageID: messageID,
		ChatID:    chatID,
		Pinned:    &pinned,
	}, nil)
	return nil
}

// ToggleReaction applies the reaction toggle law and broadcasts the outcome.
func (p *Pipeline) ToggleReaction(ctx context.Context, chatID, messageID, userID int, emoji string) (string, error) {
	if emoji == "" || utf8.RuneCountInString(emoji) > 8 {
		return "", ErrValidation
	}

	msg, err := p.authorizeMessageOp(ctx, chatID, messageID, userID)
	if err != nil {
		return "", err
	}
	if msg.IsDeleted {
		return "", ErrMessageDeleted
	}

	action, err := p.reactions.Toggle(ctx, messageID, userID, emoji)
	if err != nil {
		return "", err
	}

	p.hub.BroadcastRoom(chatID, models.Event{
		Type:      models.EventMessageReaction,
		MessageID: messageID,
		UserID:    userID,
		Emoji:     emoji,
		Action:    action,
		ChatID:    chatID,
	}, nil)
	return action, nil
}

// Reveal returns the message with its body decrypted for presentation.
// Legacy plaintext rows pass through unchanged; undecryptable bodies are
// replaced by the placeholder instead of failing the caller.
func (p *Pipeline) Reveal(msg models.Message) models.Message {
	if !msg.IsEncrypted {
		return msg
	}
	plaintext, err := p.cipher.Decrypt(msg.Content)
	if err != nil {
		if !errors.Is(err, crypto.ErrDecrypt) {
			log.Printf("unexpected decrypt failure message_id=%d: %v", msg.ID, err)
		} else {
			log.Printf("undecryptable message message_id=%d", msg.ID)
		}
		msg.Content = DecryptPlaceholder
		return msg
	}
	msg.Content = plaintext
	msg.IsEncrypted = false
	return msg
}

func (p *Pipeline) authorizeMessageOp(ctx context.Context, chatID, messageID, userID int) (models.Message, error) {
	if _, member, err := p.chats.RoleOf(ctx, chatID, userID); err != nil {
		return models.Message{}, err
	} else if !member {
		return models.Message{}, ErrForbidden
	}

	msg, err := p.messages.GetMessage(ctx, messageID)
	if err != nil {
		return models.Message{}, err
	}
	if msg.ChatID != chatID {
		return models.Message{}, ErrValidation
	}
	return msg, nil
}

func validateContent(content string) error {
	if content == "" {
		return ErrValidation
	}
	if utf8.RuneCountInString(content) > maxContentLength {
		return ErrValidation
	}
	return nil
}
