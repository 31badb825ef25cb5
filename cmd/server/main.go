package main

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/example/zinibot/internal/bot"
	"github.com/example/zinibot/internal/config"
	"github.com/example/zinibot/internal/routes"
	"github.com/example/zinibot/internal/services"
	"github.com/example/zinibot/internal/store"
)

func main() {
	cfg := config.Load()

	st := store.New()
	gateway := services.NewZiniPayService(cfg.ZiniAPIKey, cfg.ZiniBaseURL)

	tgBot, err := bot.New(cfg, st, gateway)
	if err != nil {
		log.Fatalf("failed to initialize Telegram bot: %v", err)
	}

	notifier := bot.NewNotifier(tgBot.API(), st)
	go notifier.Run(context.Background())

	app := fiber.New(fiber.Config{
		AppName: "ZiniPay Bot",
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, cfg, st, gateway, notifier)

	go func() {
		log.Printf("Starting webhook server on :%s", cfg.AppPort)
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			log.Fatalf("fiber.Listen error: %v", err)
		}
	}()

	tgBot.Run()
}
