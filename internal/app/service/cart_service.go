package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/internal/app/repository"
	"github.com/ikkim/tshirt-backend/pkg/logger"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var (
	ErrDesignNotFound         = errors.New("design not found")
	ErrCartItemNotFound       = errors.New("cart item not found")
	ErrEmptyCart              = errors.New("cart is empty")
	ErrAuthenticationRequired = errors.New("authentication required")

	// errSessionCartGone aborts a merge whose session cart was consumed by a
	// concurrent login
	errSessionCartGone = errors.New("session cart already merged")
)

type CartService interface {
	ResolveCart(ctx context.Context, actor Actor) (*model.Cart, error)
	AddItem(ctx context.Context, actor Actor, designID uint) error
	RemoveItem(ctx context.Context, actor Actor, itemID uint) error
	ViewCart(ctx context.Context, actor Actor) (*CartSummary, error)
	Checkout(ctx context.Context, actor Actor) (*CheckoutResult, error)
	MergeOnLogin(ctx context.Context, sessionKey string, userID uint) error
	ItemCount(ctx context.Context, actor Actor) (int, error)
}

type CartLine struct {
	ID        uint                  `json:"id"`
	DesignID  uint                  `json:"design_id"`
	Product   model.ProductCategory `json:"product"`
	Color     string                `json:"color"`
	Quantity  int                   `json:"quantity"`
	UnitPrice decimal.Decimal       `json:"unit_price"`
	LineTotal decimal.Decimal       `json:"line_total"`
}

type CartSummary struct {
	Cart       *model.Cart     `json:"cart"`
	Items      []CartLine      `json:"items"`
	TotalPrice decimal.Decimal `json:"total_price"`
	ItemCount  int             `json:"item_count"`
}

// CheckoutResult reports what the cart held before it was emptied
type CheckoutResult struct {
	Cart       *model.Cart     `json:"cart"`
	ItemCount  int             `json:"item_count"`
	TotalPrice decimal.Decimal `json:"total_price"`
}

type cartService struct {
	db          *gorm.DB
	cartRepo    repository.CartRepository
	designRepo  repository.DesignRepository
	productRepo repository.ProductRepository
}

func NewCartService(
	db *gorm.DB,
	cartRepo repository.CartRepository,
	designRepo repository.DesignRepository,
	productRepo repository.ProductRepository,
) CartService {
	return &cartService{
		db:          db,
		cartRepo:    cartRepo,
		designRepo:  designRepo,
		productRepo: productRepo,
	}
}

func (s *cartService) ResolveCart(ctx context.Context, actor Actor) (*model.Cart, error) {
	if actor.IsAuthenticated() {
		return s.cartRepo.GetOrCreateForUser(ctx, actor.UserID)
	}
	if actor.SessionKey == "" {
		return nil, ErrSessionRequired
	}
	return s.cartRepo.GetOrCreateForSession(ctx, actor.SessionKey)
}

// findCart looks the actor's cart up without creating one. A nil cart with a
// nil error means there is none.
func (s *cartService) findCart(ctx context.Context, actor Actor) (*model.Cart, error) {
	var (
		cart *model.Cart
		err  error
	)
	switch {
	case actor.IsAuthenticated():
		cart, err = s.cartRepo.FindByUserID(ctx, actor.UserID)
	case actor.SessionKey != "":
		cart, err = s.cartRepo.FindBySessionKey(ctx, actor.SessionKey)
	default:
		return nil, nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	return cart, err
}

func (s *cartService) AddItem(ctx context.Context, actor Actor, designID uint) error {
	fields := actor.logFields()
	fields["design_id"] = designID
	logger.Info("Adding design to cart", fields)

	design, err := s.designRepo.FindByID(ctx, designID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Warn("Cannot add to cart: design not found", fields)
			return ErrDesignNotFound
		}
		return err
	}

	product, err := s.productRepo.FindByCategory(ctx, design.Product)
	if err != nil {
		logger.Error("Failed to look up price for design", err, map[string]interface{}{
			"design_id": designID,
			"product":   design.Product,
		})
		return fmt.Errorf("price lookup for %s: %w", design.Product, err)
	}

	cart, err := s.ResolveCart(ctx, actor)
	if err != nil {
		return err
	}

	if err := s.cartRepo.UpsertItem(ctx, cart.ID, design.ID, product.Price, 1); err != nil {
		logger.Error("Failed to add design to cart", err, fields)
		return err
	}

	logger.Info("Design added to cart", map[string]interface{}{
		"cart_id":    cart.ID,
		"design_id":  design.ID,
		"unit_price": product.Price.String(),
	})
	return nil
}

func (s *cartService) RemoveItem(ctx context.Context, actor Actor, itemID uint) error {
	fields := actor.logFields()
	fields["cart_item_id"] = itemID

	cart, err := s.findCart(ctx, actor)
	if err != nil {
		return err
	}
	if cart == nil {
		logger.Debug("Remove from cart skipped: no cart", fields)
		return nil
	}

	affected, err := s.cartRepo.DeleteItem(ctx, cart.ID, itemID)
	if err != nil {
		logger.Error("Failed to remove cart item", err, fields)
		return err
	}
	if affected == 0 {
		logger.Warn("Cannot remove: item not in actor's cart", fields)
		return ErrCartItemNotFound
	}

	logger.Info("Cart item removed", fields)
	return nil
}

func (s *cartService) ViewCart(ctx context.Context, actor Actor) (*CartSummary, error) {
	cart, err := s.ResolveCart(ctx, actor)
	if err != nil {
		return nil, err
	}

	items, err := s.cartRepo.FindItems(ctx, cart.ID)
	if err != nil {
		return nil, err
	}

	summary := summarize(items)
	summary.Cart = cart
	return summary, nil
}

func summarize(items []model.CartItem) *CartSummary {
	summary := &CartSummary{
		Items:      make([]CartLine, 0, len(items)),
		TotalPrice: decimal.Zero,
	}
	for _, item := range items {
		line := CartLine{
			ID:        item.ID,
			DesignID:  item.DesignID,
			Quantity:  item.Quantity,
			UnitPrice: item.UnitPrice,
			LineTotal: item.LineTotal(),
		}
		if item.Design != nil {
			line.Product = item.Design.Product
			line.Color = item.Design.Color
		}
		summary.Items = append(summary.Items, line)
		summary.TotalPrice = summary.TotalPrice.Add(line.LineTotal)
		summary.ItemCount += item.Quantity
	}
	return summary
}

func (s *cartService) Checkout(ctx context.Context, actor Actor) (*CheckoutResult, error) {
	if !actor.IsAuthenticated() {
		logger.Warn("Checkout rejected: anonymous actor", actor.logFields())
		return nil, ErrAuthenticationRequired
	}

	var result *CheckoutResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)

		cart, err := repo.GetOrCreateForUser(ctx, actor.UserID)
		if err != nil {
			return err
		}
		// Locked rows cannot change under us; items added after this read
		// stay in the cart for the next checkout.
		items, err := repo.FindItemsForUpdate(ctx, cart.ID)
		if err != nil {
			return err
		}
		if len(items) == 0 {
			return ErrEmptyCart
		}

		summary := summarize(items)
		itemIDs := make([]uint, len(items))
		for i, item := range items {
			itemIDs[i] = item.ID
		}
		if _, err := repo.DeleteItemsByIDs(ctx, cart.ID, itemIDs); err != nil {
			return err
		}

		cart.Items = nil
		result = &CheckoutResult{
			Cart:       cart,
			ItemCount:  summary.ItemCount,
			TotalPrice: summary.TotalPrice,
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrEmptyCart) {
			logger.Warn("Checkout rejected: empty cart", actor.logFields())
		} else {
			logger.Error("Checkout failed", err, actor.logFields())
		}
		return nil, err
	}

	logger.Info("Checkout completed", map[string]interface{}{
		"user_id":     actor.UserID,
		"cart_id":     result.Cart.ID,
		"item_count":  result.ItemCount,
		"total_price": result.TotalPrice.String(),
	})
	return result, nil
}

// MergeOnLogin moves the anonymous cart of sessionKey into the user's cart.
// The session cart row is locked for the duration and deleted with a
// rows-affected check, so of two racing logins only one transfers items.
func (s *cartService) MergeOnLogin(ctx context.Context, sessionKey string, userID uint) error {
	if sessionKey == "" {
		return nil
	}
	fields := map[string]interface{}{
		"session_key": sessionKey,
		"user_id":     userID,
	}

	if _, err := s.cartRepo.FindBySessionKey(ctx, sessionKey); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.Debug("No session cart to merge", fields)
			return nil
		}
		return err
	}

	moved, combined := 0, 0
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repo := s.cartRepo.WithTx(tx)

		sessionCart, err := repo.FindBySessionKeyForUpdate(ctx, sessionKey)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return errSessionCartGone
			}
			return err
		}

		userCart, err := repo.GetOrCreateForUser(ctx, userID)
		if err != nil {
			return err
		}

		items, err := repo.FindItems(ctx, sessionCart.ID)
		if err != nil {
			return err
		}

		for _, item := range items {
			existing, err := repo.FindItemByDesign(ctx, userCart.ID, item.DesignID)
			switch {
			case err == nil:
				if err := repo.IncrementItemQuantity(ctx, existing.ID, item.Quantity); err != nil {
					return err
				}
				if err := repo.DeleteItemByID(ctx, item.ID); err != nil {
					return err
				}
				combined++
			case errors.Is(err, gorm.ErrRecordNotFound):
				if err := repo.MoveItem(ctx, item.ID, userCart.ID); err != nil {
					return err
				}
				moved++
			default:
				return err
			}
		}

		affected, err := repo.DeleteCart(ctx, sessionCart.ID)
		if err != nil {
			return err
		}
		if affected == 0 {
			return errSessionCartGone
		}
		return nil
	})
	if errors.Is(err, errSessionCartGone) {
		logger.Info("Session cart already merged by another login", fields)
		return nil
	}
	if err != nil {
		logger.Error("Failed to merge session cart", err, fields)
		return err
	}

	fields["moved"] = moved
	fields["combined"] = combined
	logger.Info("Session cart merged into user cart", fields)
	return nil
}

func (s *cartService) ItemCount(ctx context.Context, actor Actor) (int, error) {
	cart, err := s.findCart(ctx, actor)
	if err != nil || cart == nil {
		return 0, err
	}
	return s.cartRepo.SumQuantity(ctx, cart.ID)
}
