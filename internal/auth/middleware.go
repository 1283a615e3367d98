// Package auth resolves the acting principal on each request.
//
// Credential checks happen upstream; the authenticating proxy forwards the
// verified member id in the X-Member-ID header and this package trusts it.
// Admin routes are additionally guarded by a shared secret header.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	// MemberIDHeader carries the authenticated member id set upstream.
	MemberIDHeader = "X-Member-ID"
	// AdminSecretHeader carries the shared admin secret.
	AdminSecretHeader = "X-Admin-Secret"

	// ContextKeyMemberID is the gin context key for the acting member.
	ContextKeyMemberID = "authMemberID"
)

// Middleware extracts the member id from the request headers, if present.
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(MemberIDHeader)); id != "" {
			c.Set(ContextKeyMemberID, id)
		}
		c.Next()
	}
}

// RequireMember rejects requests that carry no authenticated member id.
func RequireMember() gin.HandlerFunc {
	return func(c *gin.Context) {
		if MemberID(c) == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error":   "unauthenticated",
				"message": "Authenticated member required. Include the X-Member-ID header.",
			})
			return
		}
		c.Next()
	}
}

// RequireAdmin rejects requests whose admin secret does not match. The
// comparison is constant time.
func RequireAdmin(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		supplied := c.GetHeader(AdminSecretHeader)
		if secret == "" || subtle.ConstantTimeCompare([]byte(supplied), []byte(secret)) != 1 {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "forbidden",
				"message": "Admin access required.",
			})
			return
		}
		c.Next()
	}
}

// MemberID returns the acting member id, or "" when unauthenticated.
func MemberID(c *gin.Context) string {
	id, exists := c.Get(ContextKeyMemberID)
	if !exists {
		return ""
	}
	return id.(string)
}
