package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"messenger-service/internal/delivery"
	"messenger-service/internal/repositories"
	authpb "messenger-service/pb/auth"
)

// identityClient is the slice of the auth service the handlers need.
type identityClient interface {
	GetUser(ctx context.Context, userID int) (*authpb.User, error)
	BulkUsers(ctx context.Context, userIDs []int) ([]*authpb.User, error)
	ListUsers(ctx context.Context, excludeID int) ([]*authpb.User, error)
}

func chatIDParam(c *gin.Context) (int, bool) {
	chatID, err := strconv.Atoi(c.Param("chat_id"))
	if err != nil || chatID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid chat id"})
		return 0, false
	}
	return chatID, true
}

func messageIDParam(c *gin.Context) (int, bool) {
	messageID, err := strconv.Atoi(c.Param("message_id"))
	if err != nil || messageID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message id"})
		return 0, false
	}
	return messageID, true
}

// respondPipelineError maps delivery errors onto HTTP statuses.
func respondPipelineError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, delivery.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "access denied"})
	case errors.Is(err, delivery.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
	case errors.Is(err, delivery.ErrEditWindowExpired):
		c.JSON(http.StatusConflict, gin.H{"error": "edit window expired"})
	case errors.Is(err, delivery.ErrMessageDeleted):
		c.JSON(http.StatusConflict, gin.H{"error": "message is deleted"})
	case errors.Is(err, repositories.ErrMessageNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "message not found"})
	case errors.Is(err, repositories.ErrChatNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "chat not found"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func usernamesByID(users []*authpb.User) map[int]string {
	byID := make(map[int]string, len(users))
	for _, u := range users {
		byID[int(u.GetId())] = u.GetUsername()
	}
	return byID
}
