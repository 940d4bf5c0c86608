package auth

import (
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "user_role"
)

// Identity is the caller resolved by Identify.
type Identity struct {
	UserID string
	Role   string
}

// UserID returns the authenticated caller's id, or "" for anonymous requests.
func UserID(c *gin.Context) string {
	return strings.TrimSpace(c.GetString(CtxUserID))
}

// FromContext returns the caller identity stored by Identify.
func FromContext(c *gin.Context) (Identity, bool) {
	uid := UserID(c)
	if uid == "" {
		return Identity{}, false
	}
	return Identity{UserID: uid, Role: c.GetString(CtxRole)}, true
}
