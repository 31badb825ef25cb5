package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/zinibot/internal/config"
	"github.com/example/zinibot/internal/handlers"
	"github.com/example/zinibot/internal/middleware"
	"github.com/example/zinibot/internal/store"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, cfg *config.Config, st *store.Store, gateway handlers.PaymentVerifier, notifier handlers.NotificationScheduler) {
	webhookHandler := handlers.NewWebhookHandler(st, gateway, notifier)
	pagesHandler := handlers.NewPagesHandler(st, notifier)

	app.Post("/webhook", middleware.SignatureMiddleware(cfg.WebhookSecret), webhookHandler.Handle)
	app.Get("/success", pagesHandler.Success)
	app.Get("/cancel", pagesHandler.Cancel)
	app.Get("/health", pagesHandler.Health)
}
