package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/tshirt-backend/internal/app/service"
	apperrors "github.com/ikkim/tshirt-backend/internal/errors"
	"github.com/ikkim/tshirt-backend/internal/middleware"
)

const cartPath = "/cart"

type CartController struct {
	cartService service.CartService
}

func NewCartController(cartService service.CartService) *CartController {
	return &CartController{
		cartService: cartService,
	}
}

// GetCart returns the actor's cart with line totals, creating it on first view
// GET /cart
func (ctrl *CartController) GetCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	summary, err := ctrl.cartService.ViewCart(c.Request.Context(), sessionActor(c))
	if err != nil {
		log.Error("Failed to view cart", err, nil)
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "cart")
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetCartCount returns the navbar badge count without creating a cart
// GET /cart/count
func (ctrl *CartController) GetCartCount(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	count, err := ctrl.cartService.ItemCount(c.Request.Context(), currentActor(c))
	if err != nil {
		log.Error("Failed to count cart items", err, nil)
		apperrors.InternalError(c, "Failed to count cart items")
		return
	}

	c.JSON(http.StatusOK, gin.H{"cart_item_count": count})
}

// AddToCart adds one unit of a saved design and sends the client to the cart
// POST /cart/add/:design_id
func (ctrl *CartController) AddToCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	designID, ok := parseIDParam(c, "design_id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid design ID")
		return
	}

	if err := ctrl.cartService.AddItem(c.Request.Context(), sessionActor(c), designID); err != nil {
		if errors.Is(err, service.ErrDesignNotFound) {
			apperrors.NotFound(c, apperrors.DesignNotFound, "Design not found")
			return
		}
		log.Error("Failed to add to cart", err, map[string]interface{}{
			"design_id": designID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "add design to cart")
		return
	}

	c.Redirect(http.StatusSeeOther, cartPath)
}

// RemoveFromCart deletes a line from the actor's own cart
// POST /cart/remove/:item_id
func (ctrl *CartController) RemoveFromCart(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	itemID, ok := parseIDParam(c, "item_id")
	if !ok {
		apperrors.BadRequest(c, apperrors.ValidationInvalidID, "Invalid cart item ID")
		return
	}

	if err := ctrl.cartService.RemoveItem(c.Request.Context(), currentActor(c), itemID); err != nil {
		if errors.Is(err, service.ErrCartItemNotFound) {
			apperrors.NotFound(c, apperrors.CartItemNotFound, "Cart item not found")
			return
		}
		log.Error("Failed to remove from cart", err, map[string]interface{}{
			"cart_item_id": itemID,
		})
		apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "remove cart item")
		return
	}

	c.Redirect(http.StatusSeeOther, cartPath)
}

// Checkout empties a logged-in user's cart. There is no order or payment.
// POST /checkout
func (ctrl *CartController) Checkout(c *gin.Context) {
	log := middleware.GetLoggerFromContext(c)

	result, err := ctrl.cartService.Checkout(c.Request.Context(), currentActor(c))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAuthenticationRequired):
			apperrors.Unauthorized(c, "Login required to check out")
		case errors.Is(err, service.ErrEmptyCart):
			apperrors.BadRequest(c, apperrors.CartEmpty, "Cart is empty")
		default:
			log.Error("Checkout failed", err, nil)
			apperrors.ParseAndRespond(c, http.StatusInternalServerError, err, "checkout")
		}
		return
	}

	c.JSON(http.StatusOK, result)
}
