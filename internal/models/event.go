package models

import "time"

// Server->client websocket event types. Room-scoped unless noted.
const (
	EventNewMessage      = "new_message"
	EventMessageEdited   = "message_edited"
	EventMessageDeleted  = "message_deleted"
	EventMessagePinned   = "message_pinned"
	EventMessageReaction = "message_reaction"
	EventUserTyping      = "user_typing"         // sender excluded
	EventUserStopTyping  = "user_stopped_typing" // sender excluded
	EventUserJoined      = "user_joined"
	EventUserLeft        = "user_left"
	EventUserOnline      = "user_online"  // global
	EventUserOffline     = "user_offline" // global
)

// Client->server websocket request types.
const (
	RequestJoinChat    = "join_chat"
	RequestLeaveChat   = "leave_chat"
	RequestTypingStart = "typing_start"
	RequestTypingStop  = "typing_stop"
)

// Event is the envelope written to websocket clients. Only the fields
// relevant to the event type are set; deltas never carry full history.
type Event struct {
	Type        string     `json:"type"`
	ChatID      int        `json:"chat_id,omitempty"`
	MessageID   int        `json:"message_id,omitempty"`
	UserID      int        `json:"user_id,omitempty"`
	SenderID    int        `json:"sender_id,omitempty"`
	Content     string     `json:"content,omitempty"`
	ContentType string     `json:"content_type,omitempty"`
	Emoji       string     `json:"emoji,omitempty"`
	Action      string     `json:"action,omitempty"`
	Pinned      *bool      `json:"pinned,omitempty"`
	ID          int        `json:"id,omitempty"`
	ReplyToID   *int       `json:"reply_to_id,omitempty"`
	CreatedAt   *time.Time `json:"created_at,omitempty"`
}

// ClientRequest is a parsed client->server websocket frame.
type ClientRequest struct {
	Type   string `json:"type"`
	ChatID int    `json:"chat_id"`
}
