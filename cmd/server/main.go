package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"genieq-api/internal/adapters/gateway"
	"genieq-api/internal/adapters/http/middleware"
	"genieq-api/internal/adapters/http/routes"
	"genieq-api/internal/adapters/persistence/models"
	"genieq-api/internal/adapters/persistence/repositories"
	"genieq-api/internal/adapters/staging"
	"genieq-api/internal/config"
	"genieq-api/internal/core/services"
	"genieq-api/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"

	_ "genieq-api/docs" // Swagger docs
)

// @title GenieQ API
// @version 1.0
// @description GenieQ identity, ticket payment and balance API

// @contact.name API Support
// @contact.email support@genieq.app

// @BasePath /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("❌ Failed to load configuration: %v", err)
	}

	// Connect to database
	db, err := config.ConnectDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	defer config.CloseDatabase()

	if err := models.AutoMigrate(db); err != nil {
		log.Fatalf("❌ Failed to auto migrate: %v", err)
	}
	log.Println("✅ Database migration completed")

	if cfg.SeedData {
		if err := config.NewSeeder(db).Run(); err != nil {
			log.Printf("⚠️ Warning: Failed to seed data: %v", err)
		}
	}

	// Staging store: Redis when configured, in-process otherwise
	var stagingStore services.StagingStore
	if cfg.Redis.Addr != "" {
		client, err := config.ConnectRedis(cfg)
		if err != nil {
			log.Fatalf("❌ Failed to connect to redis: %v", err)
		}
		defer client.Close()
		stagingStore = staging.NewRedisStore(client)
	} else {
		if cfg.IsProd() {
			log.Println("⚠️ REDIS_ADDR not set: staged payments live in process memory")
		}
		memoryStore := staging.NewMemoryStore()
		defer memoryStore.Close()
		stagingStore = memoryStore
	}

	tokens, err := jwt.NewAuthority(cfg.JWT.Secret, cfg.JWT.AccessTTL(), cfg.JWT.RefreshTTL())
	if err != nil {
		log.Fatalf("❌ Failed to create token authority: %v", err)
	}

	tossClient := gateway.NewTossClient(gateway.Config{
		BaseURL:   cfg.Gateway.BaseURL,
		SecretKey: cfg.Gateway.SecretKey,
		Timeout:   cfg.Gateway.Timeout(),
	})

	store := repositories.NewStore(db)
	paymentService := services.NewPaymentService(store, stagingStore, tossClient)

	// Reconciliation sweep for captures that never got recorded
	if cfg.Reconcile.Enabled {
		reconciler := services.NewReconcileService(paymentService, cfg.Reconcile.MinAge())
		if err := reconciler.Start(cfg.Reconcile.Schedule); err != nil {
			log.Fatalf("❌ Failed to start reconcile sweep: %v", err)
		}
		defer reconciler.Stop()
	}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "GenieQ API v1.0",
		ErrorHandler: middleware.CustomErrorHandler,
	})

	// Setup middlewares
	middleware.Setup(app, cfg)

	routes.Setup(app, &routes.Deps{
		Config:   cfg,
		Store:    store,
		Tokens:   tokens,
		Auth:     services.NewAuthService(store.Members(), tokens),
		Payments: paymentService,
		Ledger:   services.NewLedgerService(store.Ledger()),
		Webhooks: services.NewWebhookService(store, cfg.Gateway.WebhookSecret),
	})

	// Graceful shutdown
	go gracefulShutdown(app)

	// Start server
	log.Printf("🚀 Server starting on port %s [MODE: %s]", cfg.Port, cfg.AppMode)
	if err := app.Listen(":" + cfg.Port); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

// gracefulShutdown handles graceful shutdown
func gracefulShutdown(app *fiber.App) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("🛑 Shutting down server...")
	if err := app.Shutdown(); err != nil {
		log.Printf("❌ Error during shutdown: %v", err)
	}
	log.Println("✅ Server stopped gracefully")
}
