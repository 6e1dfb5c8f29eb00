package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/LIAG-ORGANISATION/lupi-sub001/internal/identity"
)

// AuthMiddleware validates the Authorization header and attaches the
// resolved identity to the request context. Role resolution runs on every
// request so a session change is picked up immediately.
func AuthMiddleware(verifier *identity.Verifier, resolver *identity.Resolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization"})
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization header"})
			return
		}

		session, err := verifier.Verify(parts[1])
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		actor := resolver.Resolve(c.Request.Context(), session.UserID)
		c.Set("userID", actor.UserID)
		c.Set("role", string(actor.Role))
		c.Next()
	}
}
