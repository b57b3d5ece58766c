package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/practice-backend-go/pkg/response"
)

// ContextUserID is the gin context key holding the authenticated device user id
const ContextUserID = "user_id"

// TokenVerifier checks bearer tokens
type TokenVerifier interface {
	Enabled() bool
	VerifyToken(token string) (string, error)
}

// AuthRequired rejects requests without a valid bearer token. It passes
// everything through when token authentication is disabled.
func AuthRequired(verifier TokenVerifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !verifier.Enabled() {
			c.Next()
			return
		}

		header := c.GetHeader("Authorization")
		token, found := strings.CutPrefix(header, "Bearer ")
		if !found || token == "" {
			response.Error(c, http.StatusUnauthorized, "Missing bearer token", nil)
			return
		}

		userID, err := verifier.VerifyToken(token)
		if err != nil {
			response.Error(c, http.StatusUnauthorized, "Invalid token", err)
			return
		}

		c.Set(ContextUserID, userID)
		c.Next()
	}
}
