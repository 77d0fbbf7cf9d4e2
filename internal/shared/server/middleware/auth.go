package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kimola/kimola-go/internal/shared/server/respond"
)

const principalKey = "principal"

// Auth guards operator endpoints with a static bearer token. An empty token
// disables the check, which is only allowed outside production.
func Auth(token string) gin.HandlerFunc {
	want := []byte(strings.TrimSpace(token))
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}
		if len(want) == 0 {
			c.Set(principalKey, "anonymous")
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(authHeader, "Bearer ") {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}
		got := []byte(strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer")))
		if len(got) == 0 || subtle.ConstantTimeCompare(got, want) != 1 {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
			return
		}

		c.Set(principalKey, "operator")
		c.Next()
	}
}

// PrincipalFromContext fetches the caller identity set by the auth middleware.
func PrincipalFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(principalKey)
	if p, ok := val.(string); ok {
		return p
	}
	return ""
}
