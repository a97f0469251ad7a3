package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/reloadggg/chatbot-rag/internal/auth"
	"github.com/reloadggg/chatbot-rag/internal/common"
)

// ClaimsKey is the gin context key holding the verified *auth.Claims.
const ClaimsKey = "auth_claims"

// AuthRequired verifies the bearer token and stores the claims in the
// context. Every failure is the same opaque 401.
func AuthRequired(mgr *auth.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || strings.TrimSpace(token) == "" {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}

		claims, err := mgr.Verify(strings.TrimSpace(token))
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40101, "unauthorized")
			c.Abort()
			return
		}

		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// ClaimsFromContext returns the verified claims stored by AuthRequired.
func ClaimsFromContext(c *gin.Context) (*auth.Claims, bool) {
	v, ok := c.Get(ClaimsKey)
	if !ok {
		return nil, false
	}
	claims, ok := v.(*auth.Claims)
	return claims, ok
}
