package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/tshirt-backend/config"
	"github.com/ikkim/tshirt-backend/pkg/util"
)

const (
	SessionKeyKey     = "session_key"
	sessionHandlerKey = "session_middleware"
	sessionCookieSet  = "session_cookie_set"
)

// SessionMiddleware carries the anonymous session handle in a cookie.
// Handles are issued lazily by EnsureSessionKey, so read-only visitors
// never get a cookie. Every write path re-sends the cookie so its Max-Age
// slides along with the server-side expiry.
type SessionMiddleware struct {
	cookieName string
	ttl        time.Duration
	secure     bool
}

func NewSessionMiddleware(cfg *config.SessionConfig) *SessionMiddleware {
	name := cfg.CookieName
	if name == "" {
		name = "sessionid"
	}
	return &SessionMiddleware{
		cookieName: name,
		ttl:        cfg.TTL,
		secure:     cfg.Secure,
	}
}

// Load reads the session cookie. Values we could not have issued are ignored.
func (m *SessionMiddleware) Load() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(sessionHandlerKey, m)

		key, err := c.Cookie(m.cookieName)
		if err == nil {
			if util.IsValidSessionKey(key) {
				c.Set(SessionKeyKey, key)
			} else {
				GetLoggerFromContext(c).Debug("Ignoring invalid session cookie", map[string]interface{}{
					"path": c.Request.URL.Path,
				})
			}
		}

		c.Next()
	}
}

func (m *SessionMiddleware) issue(c *gin.Context) string {
	key := util.NewSessionKey()
	m.setCookie(c, key)
	c.Set(SessionKeyKey, key)

	GetLoggerFromContext(c).Debug("Issued session key", map[string]interface{}{
		"path": c.Request.URL.Path,
	})
	return key
}

// setCookie writes the session cookie at most once per request
func (m *SessionMiddleware) setCookie(c *gin.Context, key string) {
	if c.GetBool(sessionCookieSet) {
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(m.cookieName, key, int(m.ttl.Seconds()), "/", "", m.secure, true)
	c.Set(sessionCookieSet, true)
}

// GetSessionKey returns the request's session handle, or "" when it has none
func GetSessionKey(c *gin.Context) string {
	return c.GetString(SessionKeyKey)
}

// EnsureSessionKey returns the request's session handle, issuing one when
// the request has none yet. Either way the cookie is (re)sent with a fresh
// Max-Age.
func EnsureSessionKey(c *gin.Context) string {
	v, ok := c.Get(sessionHandlerKey)
	m, _ := v.(*SessionMiddleware)
	if !ok || m == nil {
		// Without the middleware there is no cookie to carry a handle
		return GetSessionKey(c)
	}

	if key := GetSessionKey(c); key != "" {
		m.setCookie(c, key)
		return key
	}
	return m.issue(c)
}
