package db

import (
	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Models lists every table owned by the application, parents first
func Models() []interface{} {
	return []interface{}{
		&model.User{},
		&model.Product{},
		&model.Design{},
		&model.DesignDecal{},
		&model.DesignText{},
		&model.Cart{},
		&model.CartItem{},
		&model.Session{},
	}
}

// DefaultProducts is the catalog seeded on an empty database
func DefaultProducts() []model.Product {
	return []model.Product{
		{Category: model.CategoryTShirt, Name: "T-Shirt", Price: decimal.RequireFromString("19.99")},
		{Category: model.CategoryBaggy, Name: "Baggy", Price: decimal.RequireFromString("24.99")},
		{Category: model.CategoryHoodie, Name: "Hoodie", Price: decimal.RequireFromString("39.99")},
		{Category: model.CategoryJumper, Name: "Jumper", Price: decimal.RequireFromString("34.99")},
	}
}

// Migrate runs database migrations on the global connection
func Migrate() error {
	return MigrateDB(DB)
}

// MigrateDB creates or updates the schema and seeds the catalog
func MigrateDB(conn *gorm.DB) error {
	logger.Info("Running database migrations...")

	models := Models()
	if err := conn.AutoMigrate(models...); err != nil {
		logger.Error("Failed to run migrations", err)
		return err
	}

	if err := SeedProducts(conn); err != nil {
		logger.Error("Failed to seed product catalog during migration", err)
		return err
	}

	logger.Info("Database migrations completed successfully", map[string]interface{}{
		"models_count": len(models),
	})
	return nil
}

// SeedProducts inserts the default catalog rows that are missing. Existing
// prices are left alone so imported prices survive restarts.
func SeedProducts(conn *gorm.DB) error {
	products := DefaultProducts()
	result := conn.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}},
		DoNothing: true,
	}).Create(&products)
	if result.Error != nil {
		return result.Error
	}

	logger.Info("Product catalog seeded", map[string]interface{}{
		"inserted": result.RowsAffected,
	})
	return nil
}
