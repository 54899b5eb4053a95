package router

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/ikkim/tshirt-backend/config"
	"github.com/ikkim/tshirt-backend/internal/app/controller"
	"github.com/ikkim/tshirt-backend/internal/middleware"
	"github.com/ikkim/tshirt-backend/internal/web"
)

type Router struct {
	authController    *controller.AuthController
	designController  *controller.DesignController
	cartController    *controller.CartController
	pageController    *controller.PageController
	authMiddleware    *middleware.AuthMiddleware
	sessionMiddleware *middleware.SessionMiddleware
	config            *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	designController *controller.DesignController,
	cartController *controller.CartController,
	pageController *controller.PageController,
	authMiddleware *middleware.AuthMiddleware,
	sessionMiddleware *middleware.SessionMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:    authController,
		designController:  designController,
		cartController:    cartController,
		pageController:    pageController,
		authMiddleware:    authMiddleware,
		sessionMiddleware: sessionMiddleware,
		config:            cfg,
	}
}

func (r *Router) Setup() (*gin.Engine, error) {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	templates, err := web.Templates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	router.SetHTMLTemplate(templates)

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Apparel storefront API is running",
		})
	})

	// Uploaded decals. S3 deployments serve them from the bucket URL.
	if r.config.Storage.Backend == "local" {
		router.Static(mediaMount(r.config.Storage.MediaURL), r.config.Storage.MediaRoot)
	}

	// Every storefront route may act for a logged-in user or an anonymous
	// session, so both identities are loaded up front.
	site := router.Group("")
	site.Use(r.sessionMiddleware.Load())
	site.Use(r.authMiddleware.OptionalAuthenticate())
	{
		site.GET("/", r.pageController.About)
		site.GET("/create", r.pageController.Create)

		site.POST("/upload_decal", r.designController.UploadDecal)
		site.POST("/save_design", r.designController.SaveDesign)
		site.GET("/load_design", r.designController.LoadDesign)

		cart := site.Group("/cart")
		{
			cart.GET("", r.cartController.GetCart)
			cart.GET("/count", r.cartController.GetCartCount)
			cart.POST("/add/:design_id", r.cartController.AddToCart)
			cart.POST("/remove/:item_id", r.cartController.RemoveFromCart)
		}

		site.POST("/checkout", r.cartController.Checkout)

		auth := site.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
		}
	}

	return router, nil
}

// mediaMount turns a MEDIA_URL such as "/media/" into a route prefix
func mediaMount(mediaURL string) string {
	mount := "/" + strings.Trim(mediaURL, "/")
	if mount == "/" {
		return "/media"
	}
	return mount
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
