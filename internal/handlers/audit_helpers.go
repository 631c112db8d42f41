package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const requestIDContextKey = "request_id"

// requestIDFromContext returns the request id for audit records, minting one
// when neither the context nor the X-Request-ID header carries it.
func requestIDFromContext(c *gin.Context) string {
	if id := c.GetString(requestIDContextKey); id != "" {
		return id
	}

	id := c.GetHeader("X-Request-ID")
	if id == "" {
		id = uuid.NewString()
	}
	c.Set(requestIDContextKey, id)
	return id
}

// userIDFromContext reads the user id the auth middleware stored on the
// context. The X-User-ID header is a fallback for internal callers that
// bypass token auth.
func userIDFromContext(c *gin.Context) *int64 {
	if id := int64(c.GetInt("userID")); id != 0 {
		return &id
	}

	if header := c.GetHeader("X-User-ID"); header != "" {
		if parsed, err := strconv.ParseInt(header, 10, 64); err == nil {
			return &parsed
		}
	}

	return nil
}
