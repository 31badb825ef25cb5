package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration values.
type Config struct {
	AppPort          string
	TelegramBotToken string
	TelegramAPIURL   string
	ZiniAPIKey       string
	ZiniBaseURL      string
	WebhookSecret    string
	WebhookURL       string
	SuccessURL       string
	CancelURL        string
	SendTimeout      time.Duration
}

// Load reads environment variables and returns a populated Config.
func Load() *Config {
	_ = godotenv.Load()

	cfg := &Config{
		AppPort:          getEnv("APP_PORT", "8080"),
		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramAPIURL:   getEnv("TELEGRAM_API_URL", ""),
		ZiniAPIKey:       getEnv("ZINIPAY_API_KEY", ""),
		ZiniBaseURL:      getEnv("ZINIPAY_BASE_URL", "https://api.zinipay.com"),
		WebhookSecret:    getEnv("ZINIPAY_WEBHOOK_SECRET", ""),
		WebhookURL:       getEnv("WEBHOOK_URL", "https://yourdomain.com/webhook"),
		SuccessURL:       getEnv("SUCCESS_URL", "https://yourdomain.com/success"),
		CancelURL:        getEnv("CANCEL_URL", "https://yourdomain.com/cancel"),
		SendTimeout:      getEnvDuration("TELEGRAM_SEND_TIMEOUT_SECONDS", 30) * time.Second,
	}

	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN must be set")
	}

	if cfg.WebhookSecret == "" {
		log.Fatal("ZINIPAY_WEBHOOK_SECRET must be set")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvDuration(key string, fallback int) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return time.Duration(parsed)
		}
	}
	return time.Duration(fallback)
}
