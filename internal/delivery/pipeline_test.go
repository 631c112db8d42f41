package delivery

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/crypto"
	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
)

func newTestPipeline(t *testing.T) (*Pipeline, *mocks.ChatRepositoryMock, *mocks.MessageRepositoryMock, *mocks.ReactionRepositoryMock, *mocks.RoomBroadcasterMock, *crypto.Cipher) {
	t.Helper()
	cipher, err := crypto.New("pipeline-test-secret")
	require.NoError(t, err)

	chats := new(mocks.ChatRepositoryMock)
	messages := new(mocks.MessageRepositoryMock)
	reactions := new(mocks.ReactionRepositoryMock)
	hub := new(mocks.RoomBroadcasterMock)
	return NewPipeline(chats, messages, reactions, cipher, hub), chats, messages, reactions, hub, cipher
}

func TestSendMessageEncryptsAtRestAndBroadcastsPlaintext(t *testing.T) {
	p, chats, messages, _, hub, cipher := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.RoleMember, true, nil)

	var stored string
	messages.On("CreateMessage", ctx, 7, 42, mock.AnythingOfType("string"), models.ContentTypeText, true, (*int)(nil)).
		Run(func(args mock.Arguments) { stored = args.String(3) }).
		Return(models.Message{ID: 100, ChatID: 7, SenderID: 42, ContentType: models.ContentTypeText, IsEncrypted: true, CreatedAt: time.Now()}, nil)

	hub.On("BroadcastRoom", 7, mock.MatchedBy(func(ev models.Event) bool {
		return ev.Type == models.EventNewMessage && ev.Content == "hello there" && ev.ID == 100
	}), mock.Anything).Return()

	msg, err := p.SendMessage(ctx, 7, 42, "hello there", models.ContentTypeText, nil)
	require.NoError(t, err)

	assert.Equal(t, "hello there", msg.Content)
	assert.NotEqual(t, "hello there", stored, "persisted content must be ciphertext")
	plaintext, err := cipher.Decrypt(stored)
	require.NoError(t, err)
	assert.Equal(t, "hello there", plaintext)

	hub.AssertExpectations(t)
	messages.AssertExpectations(t)
}

func TestSendMessageRejectsNonMember(t *testing.T) {
	p, chats, messages, _, hub, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.Role(""), false, nil)

	_, err := p.SendMessage(ctx, 7, 42, "hi", models.ContentTypeText, nil)
	assert.ErrorIs(t, err, ErrForbidden)

	messages.AssertNotCalled(t, "CreateMessage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	hub.AssertNotCalled(t, "BroadcastRoom", mock.Anything, mock.Anything, mock.Anything)
}

func TestSendMessageValidatesContent(t *testing.T) {
	p, _, _, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	_, err := p.SendMessage(ctx, 7, 42, "", models.ContentTypeText, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = p.SendMessage(ctx, 7, 42, strings.Repeat("x", 4001), models.ContentTypeText, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = p.SendMessage(ctx, 7, 42, "hi", "carrier-pigeon", nil)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendMessageAcceptsMaxLengthContent(t *testing.T) {
	p, chats, messages, _, hub, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.RoleMember, true, nil)
	messages.On("CreateMessage", ctx, 7, 42, mock.AnythingOfType("string"), models.ContentTypeText, true, (*int)(nil)).
		Return(models.Message{ID: 1, ChatID: 7, SenderID: 42, CreatedAt: time.Now()}, nil)
	hub.On("BroadcastRoom", 7, mock.Anything, mock.Anything).Return()

	_, err := p.SendMessage(ctx, 7, 42, strings.Repeat("я", 4000), models.ContentTypeText, nil)
	assert.NoError(t, err)
}

func TestSendMessageRejectsCrossChatReply(t *testing.T) {
	p, chats, messages, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.RoleMember, true, nil)
	messages.On("GetMessage", ctx, 55).Return(models.Message{ID: 55, ChatID: 8}, nil)

	replyTo := 55
	_, err := p.SendMessage(ctx, 7, 42, "hi", models.ContentTypeText, &replyTo)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestSendMessagePersistFailurePreventsBroadcast(t *testing.T) {
	p, chats, messages, _, hub, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.RoleMember, true, nil)
	messages.On("CreateMessage", ctx, 7, 42, mock.AnythingOfType("string"), models.ContentTypeText, true, (*int)(nil)).
		Return(models.Message{}, assert.AnError)

	_, err := p.SendMessage(ctx, 7, 42, "hello", models.ContentTypeText, nil)
	assert.Error(t, err)
	hub.AssertNotCalled(t, "BroadcastRoom", mock.Anything, mock.Anything, mock.Anything)
}

func TestEditMessageOutsideWindow(t *testing.T) {
	p, chats, messages, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.RoleMember, true, nil)
	messages.On("GetMessage", ctx, 100).Return(models.Message{
		ID: 100, ChatID: 7, SenderID: 42, CreatedAt: time.Now().Add(-49 * time.Hour),
	}, nil)

	_, err := p.EditMessage(ctx, 7, 100, 42, "revised")
	assert.ErrorIs(t, err, ErrEditWindowExpired)
	messages.AssertNotCalled(t, "UpdateContent", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestEditMessageSenderOnly(t *testing.T) {
	p, chats, messages, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 43).Return(models.RoleOwner, true, nil)
	messages.On("GetMessage", ctx, 100).Return(models.Message{
		ID: 100, ChatID: 7, SenderID: 42, CreatedAt: time.Now(),
	}, nil)

	_, err := p.EditMessage(ctx, 7, 100, 43, "revised")
	assert.ErrorIs(t, err, ErrForbidden, "owners cannot edit other users' messages")
}

func TestEditMessageRejectsTombstone(t *testing.T) {
	p, chats, messages, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.RoleMember, true, nil)
	messages.On("GetMessage", ctx, 100).Return(models.Message{
		ID: 100, ChatID: 7, SenderID: 42, IsDeleted: true, CreatedAt: time.Now(),
	}, nil)

	_, err := p.EditMessage(ctx, 7, 100, 42, "revised")
	assert.ErrorIs(t, err, ErrMessageDeleted)
}

func TestEditMessageHappyPath(t *testing.T) {
	p, chats, messages, _, hub, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.RoleMember, true, nil)
	messages.On("GetMessage", ctx, 100).Return(models.Message{
		ID: 100, ChatID: 7, SenderID: 42, CreatedAt: time.Now().Add(-time.Hour),
	}, nil)
	messages.On("UpdateContent", ctx, 100, mock.AnythingOfType("string"), true).Return(nil)
	hub.On("BroadcastRoom", 7, mock.MatchedBy(func(ev models.Event) bool {
		return ev.Type == models.EventMessageEdited && ev.MessageID == 100 && ev.Content == "revised"
	}), mock.Anything).Return()

	msg, err := p.EditMessage(ctx, 7, 100, 42, "revised")
	require.NoError(t, err)
	assert.True(t, msg.IsEdited)
	assert.Equal(t, "revised", msg.Content)
	hub.AssertExpectations(t)
}

func TestDeleteMessageForeignRequiresPrivilege(t *testing.T) {
	p, chats, messages, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 43).Return(models.RoleMember, true, nil)
	messages.On("GetMessage", ctx, 100).Return(models.Message{ID: 100, ChatID: 7, SenderID: 42}, nil)

	err := p.DeleteMessage(ctx, 7, 100, 43)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestDeleteMessageAdminDeletesForeign(t *testing.T) {
	p, chats, messages, _, hub, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 43).Return(models.RoleAdmin, true, nil)
	messages.On("GetMessage", ctx, 100).Return(models.Message{ID: 100, ChatID: 7, SenderID: 42}, nil)
	messages.On("Tombstone", ctx, 100).Return(nil)
	hub.On("BroadcastRoom", 7, mock.MatchedBy(func(ev models.Event) bool {
		return ev.Type == models.EventMessageDeleted && ev.MessageID == 100
	}), mock.Anything).Return()

	require.NoError(t, p.DeleteMessage(ctx, 7, 100, 43))
	hub.AssertExpectations(t)
}

func TestDeleteMessageTwiceIsNoop(t *testing.T) {
	p, chats, messages, _, hub, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.RoleMember, true, nil)
	messages.On("GetMessage", ctx, 100).Return(models.Message{ID: 100, ChatID: 7, SenderID: 42, IsDeleted: true}, nil)

	require.NoError(t, p.DeleteMessage(ctx, 7, 100, 42))
	messages.AssertNotCalled(t, "Tombstone", mock.Anything, mock.Anything)
	hub.AssertNotCalled(t, "BroadcastRoom", mock.Anything, mock.Anything, mock.Anything)
}

func TestSetPinnedRequiresPrivilege(t *testing.T) {
	p, chats, _, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.RoleMember, true, nil)

	err := p.SetPinned(ctx, 7, 100, 42, true)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestToggleReactionBroadcastsAction(t *testing.T) {
	p, chats, messages, reactions, hub, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.RoleMember, true, nil)
	messages.On("GetMessage", ctx, 100).Return(models.Message{ID: 100, ChatID: 7}, nil)
	reactions.On("Toggle", ctx, 100, 42, "👍").Return(models.ReactionAdded, nil)
	hub.On("BroadcastRoom", 7, mock.MatchedBy(func(ev models.Event) bool {
		return ev.Type == models.EventMessageReaction && ev.Emoji == "👍" && ev.Action == models.ReactionAdded
	}), mock.Anything).Return()

	action, err := p.ToggleReaction(ctx, 7, 100, 42, "👍")
	require.NoError(t, err)
	assert.Equal(t, models.ReactionAdded, action)
	hub.AssertExpectations(t)
}

func TestFetchMessagesDecryptsWithPlaceholderRecovery(t *testing.T) {
	p, chats, messages, _, _, cipher := newTestPipeline(t)
	ctx := context.Background()

	good, err := cipher.Encrypt("readable")
	require.NoError(t, err)

	chats.On("RoleOf", ctx, 7, 42).Return(models.RoleMember, true, nil)
	messages.On("ListMessages", ctx, 7, 1, 50).Return([]models.Message{
		{ID: 1, ChatID: 7, Content: good, IsEncrypted: true},
		{ID: 2, ChatID: 7, Content: "not-a-ciphertext", IsEncrypted: true},
		{ID: 3, ChatID: 7, Content: "legacy plaintext", IsEncrypted: false},
	}, nil)
	messages.On("MarkRead", ctx, 7, 42).Return(nil)

	got, err := p.FetchMessages(ctx, 7, 42, 1, 50)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "readable", got[0].Content)
	assert.Equal(t, DecryptPlaceholder, got[1].Content)
	assert.Equal(t, "legacy plaintext", got[2].Content)
	messages.AssertCalled(t, "MarkRead", ctx, 7, 42)
}

func TestFetchMessagesForbiddenSkipsMarkRead(t *testing.T) {
	p, chats, messages, _, _, _ := newTestPipeline(t)
	ctx := context.Background()

	chats.On("RoleOf", ctx, 7, 42).Return(models.Role(""), false, nil)

	_, err := p.FetchMessages(ctx, 7, 42, 1, 50)
	assert.ErrorIs(t, err, ErrForbidden)
	messages.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}
