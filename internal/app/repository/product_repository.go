package repository

import (
	"context"

	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/pkg/logger"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProductRepository interface {
	FindByCategory(ctx context.Context, category model.ProductCategory) (*model.Product, error)
	FindAll(ctx context.Context) ([]model.Product, error)
	Upsert(ctx context.Context, products []model.Product) error
}

type productRepository struct {
	db *gorm.DB
}

func NewProductRepository(db *gorm.DB) ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) FindByCategory(ctx context.Context, category model.ProductCategory) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("category = ?", category).First(&product).Error
	if err != nil {
		logFindError("Failed to find product by category in database", err, map[string]interface{}{
			"category": category,
		})
		return nil, err
	}
	return &product, nil
}

func (r *productRepository) FindAll(ctx context.Context) ([]model.Product, error) {
	var products []model.Product
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&products).Error; err != nil {
		logger.Error("Failed to list products in database", err)
		return nil, err
	}
	return products, nil
}

// Upsert inserts catalog rows, replacing name and price of existing categories
func (r *productRepository) Upsert(ctx context.Context, products []model.Product) error {
	if len(products) == 0 {
		return nil
	}

	logger.Debug("Upserting products in database", map[string]interface{}{
		"count": len(products),
	})

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "price", "updated_at"}),
	}).Create(&products).Error
	if err != nil {
		logger.Error("Failed to upsert products in database", err, map[string]interface{}{
			"count": len(products),
		})
		return err
	}
	return nil
}
