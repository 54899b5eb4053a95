package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/tshirt-backend/internal/app/model"
	"github.com/ikkim/tshirt-backend/internal/app/service"
	"github.com/ikkim/tshirt-backend/internal/middleware"
)

type PageController struct {
	cartService service.CartService
}

func NewPageController(cartService service.CartService) *PageController {
	return &PageController{
		cartService: cartService,
	}
}

type pageData struct {
	Title         string
	CartItemCount int
	Products      []model.ProductCategory
}

// newPageData fills the fields every page's navbar needs
func (ctrl *PageController) newPageData(c *gin.Context, title string) pageData {
	count, err := ctrl.cartService.ItemCount(c.Request.Context(), currentActor(c))
	if err != nil {
		// The badge is cosmetic; render the page anyway
		middleware.GetLoggerFromContext(c).Warn("Failed to count cart items for page", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return pageData{
		Title:         title,
		CartItemCount: count,
	}
}

// About renders the landing page
// GET /
func (ctrl *PageController) About(c *gin.Context) {
	c.HTML(http.StatusOK, "about.html", ctrl.newPageData(c, "Custom Apparel"))
}

// Create renders the customizer page
// GET /create
func (ctrl *PageController) Create(c *gin.Context) {
	data := ctrl.newPageData(c, "Create your design")
	data.Products = model.ProductCategories
	c.HTML(http.StatusOK, "create.html", data)
}
