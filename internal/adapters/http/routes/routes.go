package routes

import (
	"genieq-api/internal/adapters/http/handlers"
	"genieq-api/internal/adapters/http/middleware"
	"genieq-api/internal/adapters/persistence/repositories"
	"genieq-api/internal/config"
	"genieq-api/internal/core/services"
	"genieq-api/internal/pkg/jwt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// Deps are the services the HTTP surface is built on
type Deps struct {
	Config   *config.Config
	Store    repositories.Store
	Tokens   *jwt.Authority
	Auth     *services.AuthService
	Payments *services.PaymentService
	Ledger   *services.LedgerService
	Webhooks *services.WebhookService
}

// Setup configures all routes for the application
func Setup(app *fiber.App, deps *Deps) {
	healthHandler := handlers.NewHealthHandler(deps.Store, deps.Payments, deps.Config.AppMode)
	authHandler := handlers.NewAuthHandler(deps.Auth, deps.Config)
	paymentHandler := handlers.NewPaymentHandler(deps.Payments)
	webhookHandler := handlers.NewWebhookHandler(deps.Webhooks)
	ledgerHandler := handlers.NewLedgerHandler(deps.Ledger)

	// Identity extraction only; routes decide who gets in
	app.Use(middleware.Authenticate(deps.Tokens))

	// Health check & root routes
	app.Get("/", healthHandler.Root)
	app.Get("/health", healthHandler.HealthCheck)
	app.Get("/health/storage-test", middleware.NoCacheHeaders(), healthHandler.StorageTest)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	apiV1 := app.Group("/api/v1")

	// Auth routes
	auth := apiV1.Group("/auth")
	auth.Post("/register", middleware.AuthRateLimiter(), authHandler.Register)
	auth.Post("/login", middleware.AuthRateLimiter(), authHandler.Login)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/logout", authHandler.Logout)
	auth.Get("/me", middleware.RequireAuth(), authHandler.Me)

	// Catalog (public)
	apiV1.Get("/tickets", middleware.CatalogCache(), paymentHandler.ListTickets)

	// Payments
	payments := apiV1.Group("/payments")
	payments.Post("/webhook", webhookHandler.Handle)
	payments.Use(middleware.RequireAuth(), middleware.NoCacheHeaders())
	payments.Get("/", paymentHandler.ListPayments)
	payments.Post("/stage", paymentHandler.Stage)
	payments.Post("/verify", paymentHandler.Verify)
	payments.Post("/confirm", paymentHandler.Confirm)

	// Ledger (own balance only)
	ledger := apiV1.Group("/ledger", middleware.RequireAuth(), middleware.NoCacheHeaders())
	ledger.Get("/", ledgerHandler.Summary)
	ledger.Get("/entries", ledgerHandler.Entries)
	ledger.Post("/consume", ledgerHandler.Consume)

	// Admin
	admin := apiV1.Group("/admin", middleware.AdminOnly())
	admin.Post("/ledger/grant", ledgerHandler.Grant)
}
