package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ikkim/tshirt-backend/config"
	"github.com/ikkim/tshirt-backend/internal/app/controller"
	"github.com/ikkim/tshirt-backend/internal/app/repository"
	"github.com/ikkim/tshirt-backend/internal/app/service"
	"github.com/ikkim/tshirt-backend/internal/db"
	"github.com/ikkim/tshirt-backend/internal/middleware"
	"github.com/ikkim/tshirt-backend/internal/router"
	"github.com/ikkim/tshirt-backend/internal/scheduler"
	"github.com/ikkim/tshirt-backend/internal/session"
	"github.com/ikkim/tshirt-backend/internal/storage"
	"github.com/ikkim/tshirt-backend/pkg/logger"
	"github.com/ikkim/tshirt-backend/pkg/redis"
)

const shutdownTimeout = 10 * time.Second

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", err)
	}

	// Initialize logger
	logLevel := "info"
	logFormat := "json"
	if cfg.Server.Environment == "development" {
		logLevel = "debug"
		logFormat = "console"
	}
	logger.Initialize(logger.Config{
		Level:       logLevel,
		Format:      logFormat,
		EnableColor: true,
	})

	logger.Info("Starting apparel storefront server", map[string]interface{}{
		"environment":     cfg.Server.Environment,
		"port":            cfg.Server.Port,
		"session_backend": cfg.Session.Backend,
		"storage_backend": cfg.Storage.Backend,
	})

	// Initialize database
	if err := db.Initialize(&cfg.Database); err != nil {
		logger.Fatal("Failed to initialize database", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("Failed to close database connection", err)
		}
	}()

	// Run migrations (also seeds missing catalog rows)
	if err := db.Migrate(); err != nil {
		logger.Fatal("Failed to run migrations", err)
	}

	// Redis is only needed by the redis session backend
	var rdb *goredis.Client
	if cfg.Session.Backend == "redis" {
		rdb, err = redis.Init(&cfg.Redis)
		if err != nil {
			logger.Fatal("Failed to connect to Redis", err)
		}
		defer func() {
			if err := redis.Close(); err != nil {
				logger.Error("Failed to close Redis connection", err)
			}
		}()
	}

	// Initialize repositories
	conn := db.GetDB()
	userRepo := repository.NewUserRepository(conn)
	productRepo := repository.NewProductRepository(conn)
	designRepo := repository.NewDesignRepository(conn)
	cartRepo := repository.NewCartRepository(conn)
	sessionRepo := repository.NewSessionRepository(conn)

	// Session and file stores
	sessions, err := session.NewStore(&cfg.Session, sessionRepo, rdb)
	if err != nil {
		logger.Fatal("Failed to initialize session store", err)
	}
	files, err := storage.New(&cfg.Storage)
	if err != nil {
		logger.Fatal("Failed to initialize file storage", err)
	}

	// Initialize services
	cartService := service.NewCartService(conn, cartRepo, designRepo, productRepo)
	authService := service.NewAuthService(
		userRepo,
		cartService,
		cfg.JWT.Secret,
		cfg.JWT.AccessTokenExpiry,
		cfg.JWT.RefreshTokenExpiry,
	)
	designService := service.NewDesignService(designRepo, sessions, files, cfg.Design)
	uploadService := service.NewUploadService(files, cfg.Upload.MaxBytes)

	// Initialize controllers
	authController := controller.NewAuthController(authService)
	designController := controller.NewDesignController(designService, uploadService)
	cartController := controller.NewCartController(cartService)
	pageController := controller.NewPageController(cartService)

	// Initialize middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWT.Secret)
	sessionMiddleware := middleware.NewSessionMiddleware(&cfg.Session)

	// Setup router
	r := router.NewRouter(
		authController,
		designController,
		cartController,
		pageController,
		authMiddleware,
		sessionMiddleware,
		cfg,
	)
	engine, err := r.Setup()
	if err != nil {
		logger.Fatal("Failed to set up router", err)
	}

	// Background cleanup of expired sessions and abandoned anonymous carts
	cleanup := scheduler.NewCleanupScheduler(cfg.Cleanup.Schedule, sessions, cartRepo, cfg.Cleanup.AnonCartMaxAge)
	if err := cleanup.Start(); err != nil {
		logger.Fatal("Failed to start cleanup scheduler", err)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Server started successfully", map[string]interface{}{
			"address": srv.Addr,
			"pid":     os.Getpid(),
		})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server gracefully...")

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", err)
	}
	cleanup.Stop()

	logger.Info("Server stopped successfully")
}
