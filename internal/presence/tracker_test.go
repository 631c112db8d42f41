package presence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
)

func onlineEvent(eventType string, userID int) interface{} {
	return mock.MatchedBy(func(ev models.Event) bool {
		return ev.Type == eventType && ev.UserID == userID
	})
}

func TestFirstConnectionAnnouncesOnlineOnce(t *testing.T) {
	repo := new(mocks.PresenceRepositoryMock)
	hub := new(mocks.GlobalBroadcasterMock)
	tracker := NewTracker(repo, hub)
	ctx := context.Background()

	repo.On("SetOnline", ctx, 7, true, mock.Anything).Return(nil).Once()
	hub.On("BroadcastAll", onlineEvent(models.EventUserOnline, 7)).Return().Once()

	tracker.Connected(ctx, 7)
	tracker.Connected(ctx, 7)

	assert.True(t, tracker.Online(7))
	hub.AssertNumberOfCalls(t, "BroadcastAll", 1)
	repo.AssertExpectations(t)
}

func TestLastDisconnectFlipsOfflineExactlyOnce(t *testing.T) {
	repo := new(mocks.PresenceRepositoryMock)
	hub := new(mocks.GlobalBroadcasterMock)
	tracker := NewTracker(repo, hub)
	ctx := context.Background()

	repo.On("SetOnline", ctx, 7, true, mock.Anything).Return(nil).Once()
	hub.On("BroadcastAll", onlineEvent(models.EventUserOnline, 7)).Return().Once()
	tracker.Connected(ctx, 7)
	tracker.Connected(ctx, 7)

	repo.On("SetOnline", ctx, 7, false, mock.Anything).Return(nil).Once()
	hub.On("BroadcastAll", onlineEvent(models.EventUserOffline, 7)).Return().Once()

	tracker.Disconnected(ctx, 7)
	require.True(t, tracker.Online(7), "one connection still open")

	tracker.Disconnected(ctx, 7)
	assert.False(t, tracker.Online(7))

	// A stray extra disconnect must not announce again.
	tracker.Disconnected(ctx, 7)
	hub.AssertNumberOfCalls(t, "BroadcastAll", 2)
	repo.AssertExpectations(t)
}

func TestLogoutForcesOfflineWithOpenConnections(t *testing.T) {
	repo := new(mocks.PresenceRepositoryMock)
	hub := new(mocks.GlobalBroadcasterMock)
	tracker := NewTracker(repo, hub)
	ctx := context.Background()

	repo.On("SetOnline", ctx, 7, true, mock.Anything).Return(nil).Once()
	hub.On("BroadcastAll", onlineEvent(models.EventUserOnline, 7)).Return().Once()
	tracker.Connected(ctx, 7)

	repo.On("SetOnline", ctx, 7, false, mock.Anything).Return(nil).Once()
	hub.On("BroadcastAll", onlineEvent(models.EventUserOffline, 7)).Return().Once()

	tracker.Logout(ctx, 7)

	assert.False(t, tracker.Online(7))
	repo.AssertExpectations(t)
	hub.AssertExpectations(t)
}

func TestPersistFailureDoesNotBlockAnnouncement(t *testing.T) {
	repo := new(mocks.PresenceRepositoryMock)
	hub := new(mocks.GlobalBroadcasterMock)
	tracker := NewTracker(repo, hub)
	ctx := context.Background()

	repo.On("SetOnline", ctx, 7, true, mock.Anything).Return(assert.AnError).Once()
	hub.On("BroadcastAll", onlineEvent(models.EventUserOnline, 7)).Return().Once()

	tracker.Connected(ctx, 7)

	hub.AssertExpectations(t)
}
