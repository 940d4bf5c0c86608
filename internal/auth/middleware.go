package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

type Options struct {
	Secret []byte
	// HeaderIdentity trusts X-User-Id / X-User-Role when no bearer token is
	// sent. Use this ONLY for development/testing.
	HeaderIdentity bool
}

// Identify resolves the caller from the Authorization header and stores it in
// the context. Requests without credentials pass through anonymously; a bad
// token is rejected.
func Identify(opt Options) gin.HandlerFunc {
	return func(c *gin.Context) {
		if raw := strings.TrimSpace(c.GetHeader("Authorization")); raw != "" {
			token, ok := strings.CutPrefix(raw, "Bearer ")
			if !ok || len(opt.Secret) == 0 {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid authorization header"})
				return
			}
			claims, err := Parse(opt.Secret, strings.TrimSpace(token))
			if err != nil {
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "invalid token"})
				return
			}
			c.Set(CtxUserID, claims.Subject)
			c.Set(CtxRole, claims.Role)
			c.Next()
			return
		}

		if opt.HeaderIdentity {
			if uid := strings.TrimSpace(c.GetHeader("X-User-Id")); uid != "" {
				c.Set(CtxUserID, uid)
				c.Set(CtxRole, strings.TrimSpace(c.GetHeader("X-User-Role")))
			}
		}
		c.Next()
	}
}

// RequireUser rejects anonymous requests.
func RequireUser() gin.HandlerFunc {
	return func(c *gin.Context) {
		if UserID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "authentication required"})
			return
		}
		c.Next()
	}
}

// RequireRole rejects callers that are anonymous or lack role.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := FromContext(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "authentication required"})
			return
		}
		if !strings.EqualFold(id.Role, role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "forbidden"})
			return
		}
		c.Next()
	}
}
