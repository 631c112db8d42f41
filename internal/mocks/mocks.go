package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"messenger-service/internal/models"
	authpb "messenger-service/pb/auth"
)

type ChatRepositoryMock struct {
	mock.Mock
}

func (m *ChatRepositoryMock) CreateGroupChat(ctx context.Context, ownerID int, name string, memberIDs []int) (models.Chat, error) {
	args := m.Called(ctx, ownerID, name, memberIDs)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) GetChat(ctx context.Context, chatID int) (models.Chat, error) {
	args := m.Called(ctx, chatID)
	var chat models.Chat
	if val := args.Get(0); val != nil {
		chat = val.(models.Chat)
	}
	return chat, args.Error(1)
}

func (m *ChatRepositoryMock) RoleOf(ctx context.Context, chatID int, userID int) (models.Role, bool, error) {
	args := m.Called(ctx, chatID, userID)
	var role models.Role
	if val := args.Get(0); val != nil {
		role = val.(models.Role)
	}
	return role, args.Bool(1), args.Error(2)
}

func (m *ChatRepositoryMock) ListChatSummaries(ctx context.Context, userID int) ([]models.ChatSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ChatSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ChatSummary)
	}
	return list, args.Error(1)
}

func (m *ChatRepositoryMock) ListMemberIDs(ctx context.Context, chatID int) ([]int, error) {
	args := m.Called(ctx, chatID)
	var ids []int
	if val := args.Get(0); val != nil {
		ids = val.([]int)
	}
	return ids, args.Error(1)
}

func (m *ChatRepositoryMock) RenameChat(ctx context.Context, chatID int, name string) error {
	args := m.Called(ctx, chatID, name)
	return args.Error(0)
}

func (m *ChatRepositoryMock) AddMember(ctx context.Context, chatID int, userID int, role models.Role) error {
	args := m.Called(ctx, chatID, userID, role)
	return args.Error(0)
}

func (m *ChatRepositoryMock) RemoveMember(ctx context.Context, chatID int, userID int) error {
	args := m.Called(ctx, chatID, userID)
	return args.Error(0)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) CreateMessage(ctx context.Context, chatID int, senderID int, content string, contentType string, encrypted bool, replyToID *int) (models.Message, error) {
	args := m.Called(ctx, chatID, senderID, content, contentType, encrypted, replyToID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListMessages(ctx context.Context, chatID int, page int, perPage int) ([]models.Message, error) {
	args := m.Called(ctx, chatID, page, perPage)
	var msgs []models.Message
	if val := args.Get(0); val != nil {
		msgs = val.([]models.Message)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, messageID int) (models.Message, error) {
	args := m.Called(ctx, messageID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) LastMessage(ctx context.Context, chatID int) (models.Message, error) {
	args := m.Called(ctx, chatID)
	var msg models.Message
	if val := args.Get(0); val != nil {
		msg = val.(models.Message)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) UpdateContent(ctx context.Context, messageID int, content string, encrypted bool) error {
	args := m.Called(ctx, messageID, content, encrypted)
	return args.Error(0)
}

func (m *MessageRepositoryMock) Tombstone(ctx context.Context, messageID int) error {
	args := m.Called(ctx, messageID)
	return args.Error(0)
}

func (m *MessageRepositoryMock) SetPinned(ctx context.Context, messageID int, pinned bool) error {
	args := m.Called(ctx, messageID, pinned)
	return args.Error(0)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, chatID int, readerID int) error {
	args := m.Called(ctx, chatID, readerID)
	return args.Error(0)
}

type ReactionRepositoryMock struct {
	mock.Mock
}

func (m *ReactionRepositoryMock) Toggle(ctx context.Context, messageID int, userID int, emoji string) (string, error) {
	args := m.Called(ctx, messageID, userID, emoji)
	return args.String(0), args.Error(1)
}

func (m *ReactionRepositoryMock) ListForMessage(ctx context.Context, messageID int) ([]models.Reaction, error) {
	args := m.Called(ctx, messageID)
	var list []models.Reaction
	if val := args.Get(0); val != nil {
		list = val.([]models.Reaction)
	}
	return list, args.Error(1)
}

type ContactRepositoryMock struct {
	mock.Mock
}

func (m *ContactRepositoryMock) AddContact(ctx context.Context, ownerID int, contactID int) (models.Contact, error) {
	args := m.Called(ctx, ownerID, contactID)
	var contact models.Contact
	if val := args.Get(0); val != nil {
		contact = val.(models.Contact)
	}
	return contact, args.Error(1)
}

func (m *ContactRepositoryMock) ListContacts(ctx context.Context, ownerID int) ([]models.Contact, error) {
	args := m.Called(ctx, ownerID)
	var list []models.Contact
	if val := args.Get(0); val != nil {
		list = val.([]models.Contact)
	}
	return list, args.Error(1)
}

type PresenceRepositoryMock struct {
	mock.Mock
}

func (m *PresenceRepositoryMock) SetOnline(ctx context.Context, userID int, online bool, lastSeen time.Time) error {
	args := m.Called(ctx, userID, online, lastSeen)
	return args.Error(0)
}

func (m *PresenceRepositoryMock) GetMany(ctx context.Context, userIDs []int) (map[int]models.Presence, error) {
	args := m.Called(ctx, userIDs)
	var res map[int]models.Presence
	if val := args.Get(0); val != nil {
		res = val.(map[int]models.Presence)
	}
	return res, args.Error(1)
}

type AttachmentRepositoryMock struct {
	mock.Mock
}

func (m *AttachmentRepositoryMock) Create(ctx context.Context, messageID int, fileName string, fileSize int64, mimeType string, uploadedBy int) (models.Attachment, error) {
	args := m.Called(ctx, messageID, fileName, fileSize, mimeType, uploadedBy)
	var att models.Attachment
	if val := args.Get(0); val != nil {
		att = val.(models.Attachment)
	}
	return att, args.Error(1)
}

func (m *AttachmentRepositoryMock) GetForMessage(ctx context.Context, messageID int) ([]models.Attachment, error) {
	args := m.Called(ctx, messageID)
	var list []models.Attachment
	if val := args.Get(0); val != nil {
		list = val.([]models.Attachment)
	}
	return list, args.Error(1)
}

type IdentityClientMock struct {
	mock.Mock
}

func (m *IdentityClientMock) ValidateToken(ctx context.Context, token string) (int, error) {
	args := m.Called(ctx, token)
	return args.Int(0), args.Error(1)
}

func (m *IdentityClientMock) GetUser(ctx context.Context, userID int) (*authpb.User, error) {
	args := m.Called(ctx, userID)
	var user *authpb.User
	if val := args.Get(0); val != nil {
		user = val.(*authpb.User)
	}
	return user, args.Error(1)
}

func (m *IdentityClientMock) BulkUsers(ctx context.Context, userIDs []int) ([]*authpb.User, error) {
	args := m.Called(ctx, userIDs)
	var users []*authpb.User
	if val := args.Get(0); val != nil {
		users = val.([]*authpb.User)
	}
	return users, args.Error(1)
}

func (m *IdentityClientMock) ListUsers(ctx context.Context, excludeID int) ([]*authpb.User, error) {
	args := m.Called(ctx, excludeID)
	var users []*authpb.User
	if val := args.Get(0); val != nil {
		users = val.([]*authpb.User)
	}
	return users, args.Error(1)
}
