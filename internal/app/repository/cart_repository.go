package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CartRepository interface {
	// WithTx returns a repository bound to an open transaction
	WithTx(tx *gorm.DB) CartRepository

	GetOrCreateForUser(ctx context.Context, userID uint) (*model.Cart, error)
	GetOrCreateForSession(ctx context.Context, sessionKey string) (*model.Cart, error)
	FindByID(ctx context.Context, cartID uint) (*model.Cart, error)
	FindByUserID(ctx context.Context, userID uint) (*model.Cart, error)
	FindBySessionKey(ctx context.Context, sessionKey string) (*model.Cart, error)
	FindBySessionKeyForUpdate(ctx context.Context, sessionKey string) (*model.Cart, error)
	DeleteCart(ctx context.Context, cartID uint) (int64, error)
	DeleteStaleAnonymous(ctx context.Context, before time.Time) (int64, error)

	FindItems(ctx context.Context, cartID uint) ([]model.CartItem, error)
	FindItemsForUpdate(ctx context.Context, cartID uint) ([]model.CartItem, error)
	FindItemByDesign(ctx context.Context, cartID, designID uint) (*model.CartItem, error)
	UpsertItem(ctx context.Context, cartID, designID uint, unitPrice decimal.Decimal, quantity int) error
	IncrementItemQuantity(ctx context.Context, itemID uint, delta int) error
	MoveItem(ctx context.Context, itemID, toCartID uint) error
	DeleteItem(ctx context.Context, cartID, itemID uint) (int64, error)
	DeleteItemByID(ctx context.Context, itemID uint) error
	DeleteItemsByIDs(ctx context.Context, cartID uint, itemIDs []uint) (int64, error)
	SumQuantity(ctx context.Context, cartID uint) (int, error)
}

type cartRepository struct {
	db *gorm.DB
}

func NewCartRepository(db *gorm.DB) CartRepository {
	return &cartRepository{db: db}
}

func (r *cartRepository) WithTx(tx *gorm.DB) CartRepository {
	return &cartRepository{db: tx}
}

func (r *cartRepository) GetOrCreateForUser(ctx context.Context, userID uint) (*model.Cart, error) {
	id := userID
	return r.getOrCreate(ctx, &model.Cart{UserID: &id}, "user_id", userID)
}

func (r *cartRepository) GetOrCreateForSession(ctx context.Context, sessionKey string) (*model.Cart, error) {
	key := sessionKey
	return r.getOrCreate(ctx, &model.Cart{SessionKey: &key}, "session_key", sessionKey)
}

// getOrCreate looks the cart up by its owner column and inserts it on a miss.
// The insert ignores unique conflicts so two racing requests end up on the
// same row.
func (r *cartRepository) getOrCreate(ctx context.Context, cart *model.Cart, column string, owner interface{}) (*model.Cart, error) {
	db := r.db.WithContext(ctx)

	var found model.Cart
	err := db.Where(column+" = ?", owner).First(&found).Error
	if err == nil {
		return &found, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		logger.Error("Failed to look up cart in database", err, map[string]interface{}{
			column: owner,
		})
		return nil, err
	}

	logger.Debug("Creating cart in database", map[string]interface{}{
		column: owner,
	})
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: column}},
		DoNothing: true,
	}).Create(cart).Error; err != nil {
		logger.Error("Failed to create cart in database", err, map[string]interface{}{
			column: owner,
		})
		return nil, err
	}

	found = model.Cart{}
	if err := db.Where(column+" = ?", owner).First(&found).Error; err != nil {
		logger.Error("Failed to reload cart after create", err, map[string]interface{}{
			column: owner,
		})
		return nil, err
	}

	logger.Debug("Cart ready in database", map[string]interface{}{
		"cart_id": found.ID,
		column:    owner,
	})
	return &found, nil
}

func (r *cartRepository) FindByID(ctx context.Context, cartID uint) (*model.Cart, error) {
	var cart model.Cart
	if err := r.db.WithContext(ctx).First(&cart, cartID).Error; err != nil {
		logFindError("Failed to find cart by ID in database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindByUserID(ctx context.Context, userID uint) (*model.Cart, error) {
	var cart model.Cart
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&cart).Error; err != nil {
		logFindError("Failed to find cart by user ID in database", err, map[string]interface{}{
			"user_id": userID,
		})
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) FindBySessionKey(ctx context.Context, sessionKey string) (*model.Cart, error) {
	var cart model.Cart
	if err := r.db.WithContext(ctx).Where("session_key = ?", sessionKey).First(&cart).Error; err != nil {
		logFindError("Failed to find cart by session key in database", err, map[string]interface{}{
			"session_key": sessionKey,
		})
		return nil, err
	}
	return &cart, nil
}

// FindBySessionKeyForUpdate locks the session cart row until the surrounding
// transaction ends. Must be called on a repository from WithTx.
func (r *cartRepository) FindBySessionKeyForUpdate(ctx context.Context, sessionKey string) (*model.Cart, error) {
	var cart model.Cart
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("session_key = ?", sessionKey).
		First(&cart).Error
	if err != nil {
		logFindError("Failed to lock cart by session key in database", err, map[string]interface{}{
			"session_key": sessionKey,
		})
		return nil, err
	}
	return &cart, nil
}

func (r *cartRepository) DeleteCart(ctx context.Context, cartID uint) (int64, error) {
	logger.Debug("Deleting cart from database", map[string]interface{}{
		"cart_id": cartID,
	})

	result := r.db.WithContext(ctx).Delete(&model.Cart{}, cartID)
	if result.Error != nil {
		logger.Error("Failed to delete cart from database", result.Error, map[string]interface{}{
			"cart_id": cartID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// DeleteStaleAnonymous removes session carts untouched since before, items first
func (r *cartRepository) DeleteStaleAnonymous(ctx context.Context, before time.Time) (int64, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stale := tx.Model(&model.Cart{}).
			Select("id").
			Where("user_id IS NULL AND updated_at < ?", before)

		if err := tx.Where("cart_id IN (?)", stale).Delete(&model.CartItem{}).Error; err != nil {
			return err
		}
		result := tx.Where("user_id IS NULL AND updated_at < ?", before).Delete(&model.Cart{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected
		return nil
	})
	if err != nil {
		logger.Error("Failed to delete stale anonymous carts", err, map[string]interface{}{
			"before": before,
		})
		return 0, err
	}
	return deleted, nil
}

func (r *cartRepository) FindItems(ctx context.Context, cartID uint) ([]model.CartItem, error) {
	logger.Debug("Finding cart items in database", map[string]interface{}{
		"cart_id": cartID,
	})

	var items []model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ?", cartID).
		Preload("Design").
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		logger.Error("Failed to find cart items in database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, err
	}

	logger.Debug("Cart items found in database", map[string]interface{}{
		"cart_id": cartID,
		"count":   len(items),
	})
	return items, nil
}

// FindItemsForUpdate locks the cart's current item rows until the surrounding
// transaction ends. Must be called on a repository from WithTx.
func (r *cartRepository) FindItemsForUpdate(ctx context.Context, cartID uint) ([]model.CartItem, error) {
	var items []model.CartItem
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("cart_id = ?", cartID).
		Order("id ASC").
		Find(&items).Error
	if err != nil {
		logger.Error("Failed to lock cart items in database", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return nil, err
	}
	return items, nil
}

func (r *cartRepository) FindItemByDesign(ctx context.Context, cartID, designID uint) (*model.CartItem, error) {
	var item model.CartItem
	err := r.db.WithContext(ctx).
		Where("cart_id = ? AND design_id = ?", cartID, designID).
		First(&item).Error
	if err != nil {
		logFindError("Failed to find cart item by design in database", err, map[string]interface{}{
			"cart_id":   cartID,
			"design_id": designID,
		})
		return nil, err
	}
	return &item, nil
}

// UpsertItem inserts the (cart, design) line or adds quantity to the existing
// one in a single statement.
func (r *cartRepository) UpsertItem(ctx context.Context, cartID, designID uint, unitPrice decimal.Decimal, quantity int) error {
	logger.Debug("Upserting cart item in database", map[string]interface{}{
		"cart_id":    cartID,
		"design_id":  designID,
		"quantity":   quantity,
		"unit_price": unitPrice.String(),
	})

	item := model.CartItem{
		CartID:    cartID,
		DesignID:  designID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "cart_id"}, {Name: "design_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"quantity":   gorm.Expr("cart_items.quantity + ?", quantity),
			"updated_at": time.Now(),
		}),
	}).Create(&item).Error
	if err != nil {
		logger.Error("Failed to upsert cart item in database", err, map[string]interface{}{
			"cart_id":   cartID,
			"design_id": designID,
		})
		return err
	}

	return r.touchCart(ctx, cartID)
}

func (r *cartRepository) IncrementItemQuantity(ctx context.Context, itemID uint, delta int) error {
	err := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", itemID).
		Update("quantity", gorm.Expr("quantity + ?", delta)).Error
	if err != nil {
		logger.Error("Failed to increment cart item quantity", err, map[string]interface{}{
			"cart_item_id": itemID,
			"delta":        delta,
		})
	}
	return err
}

func (r *cartRepository) MoveItem(ctx context.Context, itemID, toCartID uint) error {
	err := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("id = ?", itemID).
		Update("cart_id", toCartID).Error
	if err != nil {
		logger.Error("Failed to move cart item", err, map[string]interface{}{
			"cart_item_id": itemID,
			"to_cart_id":   toCartID,
		})
	}
	return err
}

// DeleteItem deletes the item only when it belongs to cartID
func (r *cartRepository) DeleteItem(ctx context.Context, cartID, itemID uint) (int64, error) {
	logger.Debug("Deleting cart item from database", map[string]interface{}{
		"cart_id":      cartID,
		"cart_item_id": itemID,
	})

	result := r.db.WithContext(ctx).
		Where("id = ? AND cart_id = ?", itemID, cartID).
		Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart item from database", result.Error, map[string]interface{}{
			"cart_id":      cartID,
			"cart_item_id": itemID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *cartRepository) DeleteItemByID(ctx context.Context, itemID uint) error {
	if err := r.db.WithContext(ctx).Delete(&model.CartItem{}, itemID).Error; err != nil {
		logger.Error("Failed to delete cart item by ID", err, map[string]interface{}{
			"cart_item_id": itemID,
		})
		return err
	}
	return nil
}

// DeleteItemsByIDs deletes the listed items of cartID and nothing else
func (r *cartRepository) DeleteItemsByIDs(ctx context.Context, cartID uint, itemIDs []uint) (int64, error) {
	if len(itemIDs) == 0 {
		return 0, nil
	}
	logger.Debug("Deleting cart items by ID from database", map[string]interface{}{
		"cart_id": cartID,
		"count":   len(itemIDs),
	})

	result := r.db.WithContext(ctx).
		Where("cart_id = ? AND id IN ?", cartID, itemIDs).
		Delete(&model.CartItem{})
	if result.Error != nil {
		logger.Error("Failed to delete cart items by ID", result.Error, map[string]interface{}{
			"cart_id": cartID,
		})
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

func (r *cartRepository) SumQuantity(ctx context.Context, cartID uint) (int, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&model.CartItem{}).
		Where("cart_id = ?", cartID).
		Select("COALESCE(SUM(quantity), 0)").
		Scan(&total).Error
	if err != nil {
		logger.Error("Failed to sum cart quantities", err, map[string]interface{}{
			"cart_id": cartID,
		})
		return 0, err
	}
	return int(total), nil
}

// touchCart bumps updated_at so stale-cart cleanup sees recent activity
func (r *cartRepository) touchCart(ctx context.Context, cartID uint) error {
	err := r.db.WithContext(ctx).
		Model(&model.Cart{}).
		Where("id = ?", cartID).
		Update("updated_at", time.Now()).Error
	if err != nil {
		logger.Error("Failed to touch cart", err, map[string]interface{}{
			"cart_id": cartID,
		})
	}
	return err
}
