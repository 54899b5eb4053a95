package repository

import (
	"context"

	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/pkg/logger"
	"gorm.io/gorm"
)

type DesignRepository interface {
	Create(ctx context.Context, design *model.Design) error
	FindByID(ctx context.Context, id uint) (*model.Design, error)
	FindLatestByUserID(ctx context.Context, userID uint) (*model.Design, error)
	FindAllWithParts(ctx context.Context) ([]model.Design, error)
}

type designRepository struct {
	db *gorm.DB
}

func NewDesignRepository(db *gorm.DB) DesignRepository {
	return &designRepository{db: db}
}

// Create inserts the design together with its decals and texts in one transaction
func (r *designRepository) Create(ctx context.Context, design *model.Design) error {
	logger.Debug("Creating design in database", map[string]interface{}{
		"user_id": design.UserID,
		"product": design.Product,
		"decals":  len(design.Decals),
		"texts":   len(design.Texts),
	})

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(design).Error
	})
	if err != nil {
		logger.Error("Failed to create design in database", err, map[string]interface{}{
			"user_id": design.UserID,
			"product": design.Product,
		})
		return err
	}

	logger.Debug("Design created in database", map[string]interface{}{
		"design_id": design.ID,
	})
	return nil
}

func (r *designRepository) FindByID(ctx context.Context, id uint) (*model.Design, error) {
	var design model.Design
	if err := r.db.WithContext(ctx).First(&design, id).Error; err != nil {
		logFindError("Failed to find design by ID in database", err, map[string]interface{}{
			"design_id": id,
		})
		return nil, err
	}
	return &design, nil
}

// FindLatestByUserID returns the newest design of a user with its parts
func (r *designRepository) FindLatestByUserID(ctx context.Context, userID uint) (*model.Design, error) {
	var design model.Design
	err := r.withParts(r.db.WithContext(ctx)).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Order("id DESC").
		First(&design).Error
	if err != nil {
		logFindError("Failed to find latest design in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}

	logger.Debug("Latest design found in database", map[string]interface{}{
		"user_id":   userID,
		"design_id": design.ID,
	})
	return &design, nil
}

func (r *designRepository) FindAllWithParts(ctx context.Context) ([]model.Design, error) {
	var designs []model.Design
	err := r.withParts(r.db.WithContext(ctx)).
		Preload("User").
		Order("created_at DESC").
		Find(&designs).Error
	if err != nil {
		logger.Error("Failed to list designs in database", err)
		return nil, err
	}
	return designs, nil
}

func (r *designRepository) withParts(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Decals", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Texts", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") })
}
