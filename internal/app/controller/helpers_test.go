package controller

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/tshirt-backend/config"
	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/internal/db"
	"github.com/ikkim/tshirt-backend/internal/middleware"
	"github.com/ikkim/tshirt-backend/pkg/logger"
	"github.com/ikkim/tshirt-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	testJWTSecret  = "test-secret"
	testSessionKey = "0d6a7c3e-2b1f-4c5d-9e8f-a1b2c3d4e5f6"
)

func init() {
	util.BcryptCost = bcrypt.MinCost
	logger.Initialize(logger.Config{Level: "disabled"})
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	testDB, err := db.SetupTestDB()
	require.NoError(t, err)
	t.Cleanup(func() { db.CleanupTestDB(testDB) })
	return testDB
}

// newTestRouter loads the session cookie and, for userID != 0, acts as that
// user the way OptionalAuthenticate would after validating a token.
func newTestRouter(userID uint) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(middleware.NewSessionMiddleware(&config.SessionConfig{
		CookieName: "sessionid",
		TTL:        time.Hour,
	}).Load())
	if userID != 0 {
		router.Use(func(c *gin.Context) {
			c.Set(middleware.UserIDKey, userID)
		})
	}
	return router
}

func withSession(req *http.Request, key string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "sessionid", Value: key})
	return req
}

func createTestUser(t *testing.T, conn *gorm.DB, email string) *model.User {
	t.Helper()
	user := &model.User{
		Email:        email,
		PasswordHash: "hash",
		Name:         "Test User",
		Role:         model.RoleUser,
	}
	require.NoError(t, conn.Create(user).Error)
	return user
}

func createTestDesign(t *testing.T, conn *gorm.DB, product model.ProductCategory) *model.Design {
	t.Helper()
	design := &model.Design{Product: product, Color: "#ffffff"}
	require.NoError(t, conn.Create(design).Error)
	return design
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
