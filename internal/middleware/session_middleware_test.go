package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/tshirt-backend/config"
	"github.com/ikkim/tshirt-backend/pkg/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupSessionTest() *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	sessions := NewSessionMiddleware(&config.SessionConfig{
		CookieName: "sessionid",
		TTL:        time.Hour,
	})
	router.Use(sessions.Load())

	router.GET("/peek", func(c *gin.Context) {
		c.String(http.StatusOK, GetSessionKey(c))
	})
	router.POST("/ensure", func(c *gin.Context) {
		first := EnsureSessionKey(c)
		second := EnsureSessionKey(c)
		if first != second {
			c.Status(http.StatusInternalServerError)
			return
		}
		c.String(http.StatusOK, first)
	})
	return router
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, cookie := range w.Result().Cookies() {
		if cookie.Name == "sessionid" {
			return cookie
		}
	}
	return nil
}

func TestSessionMiddleware_NoCookie(t *testing.T) {
	router := setupSessionTest()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/peek", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Body.String())
	assert.Nil(t, sessionCookie(w), "reading must not issue a session")
}

func TestSessionMiddleware_ValidCookie(t *testing.T) {
	router := setupSessionTest()
	key := util.NewSessionKey()

	req := httptest.NewRequest("GET", "/peek", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: key})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, key, w.Body.String())
}

func TestSessionMiddleware_InvalidCookieIgnored(t *testing.T) {
	router := setupSessionTest()

	req := httptest.NewRequest("GET", "/peek", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: "not-a-uuid"})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Empty(t, w.Body.String())
}

func TestSessionMiddleware_EnsureIssuesCookie(t *testing.T) {
	router := setupSessionTest()

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("POST", "/ensure", nil))

	require.Equal(t, http.StatusOK, w.Code)
	key := w.Body.String()
	assert.True(t, util.IsValidSessionKey(key))

	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.Equal(t, key, cookie.Value)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, 3600, cookie.MaxAge)
}

func TestSessionMiddleware_EnsureKeepsExistingKey(t *testing.T) {
	router := setupSessionTest()
	key := util.NewSessionKey()

	req := httptest.NewRequest("POST", "/ensure", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: key})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, key, w.Body.String())

	cookie := sessionCookie(w)
	require.NotNil(t, cookie, "writes refresh the cookie lifetime")
	assert.Equal(t, key, cookie.Value)
	assert.Equal(t, 3600, cookie.MaxAge)
	assert.Len(t, w.Result().Header.Values("Set-Cookie"), 1)
}

func TestSessionMiddleware_ReadDoesNotRefreshCookie(t *testing.T) {
	router := setupSessionTest()

	req := httptest.NewRequest("GET", "/peek", nil)
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: util.NewSessionKey()})
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Nil(t, sessionCookie(w))
}

func TestEnsureSessionKey_WithoutMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("POST", "/", nil)

	assert.Empty(t, EnsureSessionKey(c))
}
