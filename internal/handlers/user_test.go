package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messenger-service/internal/mocks"
	"messenger-service/internal/models"
	authpb "messenger-service/pb/auth"
)

type trackerStub struct {
	online    map[int]bool
	loggedOut []int
}

func (s *trackerStub) Online(userID int) bool {
	return s.online[userID]
}

func (s *trackerStub) Logout(_ context.Context, userID int) {
	s.loggedOut = append(s.loggedOut, userID)
}

func setupUserRouter(handler *UserHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.GET("/users", handler.ListUsers)
	r.POST("/presence/offline", handler.Logout)
	return r
}

func TestListUsersLiveConnectionWins(t *testing.T) {
	identity := new(mocks.IdentityClientMock)
	presence := new(mocks.PresenceRepositoryMock)
	tracker := &trackerStub{online: map[int]bool{2: true}}
	router := setupUserRouter(NewUserHandler(identity, presence, tracker))

	identity.On("ListUsers", mock.Anything, 1).Return([]*authpb.User{
		{Id: 2, Username: "bob"},
		{Id: 3, Username: "carol"},
	}, nil).Once()
	presence.On("GetMany", mock.Anything, []int{2, 3}).Return(map[int]models.Presence{
		3: {UserID: 3, IsOnline: false},
	}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/users", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"user_id":2,"username":"bob","is_online":true`)
	identity.AssertExpectations(t)
}

func TestLogoutForcesOffline(t *testing.T) {
	identity := new(mocks.IdentityClientMock)
	tracker := &trackerStub{online: map[int]bool{}}
	router := setupUserRouter(NewUserHandler(identity, new(mocks.PresenceRepositoryMock), tracker))

	req := httptest.NewRequest(http.MethodPost, "/presence/offline", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []int{1}, tracker.loggedOut)
}
