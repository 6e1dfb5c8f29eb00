package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/models"
)

// contextWithoutRequest detaches fire-and-forget work from the request
// lifetime so it is not cancelled when the response is written.
func contextWithoutRequest() context.Context {
	return context.Background()
}

// pathID parses a positive int64 path parameter, replying 400 on failure.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// actorFromContext rebuilds the identity snapshot the auth middleware stored.
func actorFromContext(c *gin.Context) models.Identity {
	actor := models.Identity{Role: models.RoleNone}
	if val, ok := c.Get("userID"); ok {
		if id, ok := val.(int64); ok {
			actor.UserID = id
		}
	}
	if val, ok := c.Get("role"); ok {
		if role, ok := val.(string); ok && role != "" {
			actor.Role = models.Role(role)
		}
	}
	return actor
}
