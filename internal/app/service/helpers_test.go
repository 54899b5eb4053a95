package service

import (
	"testing"

	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/internal/db"
	"github.com/ikkim/tshirt-backend/pkg/logger"
	"github.com/ikkim/tshirt-backend/pkg/util"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	sessionKeyA = "3f1d2c4b-5a69-4e8f-9d0c-1b2a3c4d5e6f"
	sessionKeyB = "7a8b9c0d-1e2f-4a3b-8c4d-5e6f7a8b9c0d"
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

func createTestDesign(t *testing.T, conn *gorm.DB, userID *uint, product model.ProductCategory) *model.Design {
	t.Helper()
	design := &model.Design{
		UserID:  userID,
		Product: product,
		Color:   "#ffffff",
	}
	require.NoError(t, conn.Create(design).Error)
	return design
}
