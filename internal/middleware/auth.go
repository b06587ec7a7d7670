package middleware

import (
	"net/http"
	"net/url"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"appointment-portal/internal/model"
	"appointment-portal/internal/session"
)

// CookieName holds the session token for browsers; API clients may send
// the same token as a bearer token instead.
const CookieName = "portal_session"

const (
	sessionKey = "session"
	tokenKey   = "token"
)

func tokenFrom(c *gin.Context) string {
	if v, err := c.Cookie(CookieName); err == nil && v != "" {
		return v
	}
	h := c.GetHeader("Authorization")
	if strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// LoadSession attaches the caller's session, if any. It never rejects.
func LoadSession(m *session.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		tok := tokenFrom(c)
		if tok != "" {
			c.Set(tokenKey, tok)
			if s, err := m.Resolve(c.Request.Context(), tok); err == nil {
				c.Set(sessionKey, s)
			}
		}
		c.Next()
	}
}

// Current is the session LoadSession found, or nil.
func Current(c *gin.Context) *session.Session {
	v, ok := c.Get(sessionKey)
	if !ok {
		return nil
	}
	s, _ := v.(*session.Session)
	return s
}

// Token is the raw token the request carried, valid or not.
func Token(c *gin.Context) string {
	return c.GetString(tokenKey)
}

// RequireSession rejects anonymous callers. Views are sent to the login
// page with the requested path as returnUrl; API calls get 401.
func RequireSession(view bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		if Current(c) != nil {
			c.Next()
			return
		}
		if view {
			c.Redirect(http.StatusFound, "/login?returnUrl="+url.QueryEscape(c.Request.URL.RequestURI()))
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "login required"})
	}
}

// RequireRole must run after RequireSession. Views send other roles to
// their own home page; API calls get 403.
func RequireRole(view bool, roles ...model.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		s := Current(c)
		if s != nil && slices.Contains(roles, s.User.Role) {
			c.Next()
			return
		}
		if view && s != nil {
			c.Redirect(http.StatusFound, s.User.Role.Home())
			c.Abort()
			return
		}
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	}
}

// SafeReturnURL returns raw when it is a path on this site and "" otherwise.
func SafeReturnURL(raw string) string {
	if !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.HasPrefix(raw, "/\\") {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Scheme != "" || u.Host != "" {
		return ""
	}
	return raw
}
