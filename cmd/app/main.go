package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/app"
	"github.com/NastyaGoryachaya/exchange-rates-bot/internal/config"
	"github.com/NastyaGoryachaya/exchange-rates-bot/pkg/logger"
	"github.com/joho/godotenv"
)

func main() {
	// .env только вне production
	if os.Getenv("APP_ENV") != "production" {
		if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
			slog.Warn("failed to load .env", slog.String("error", err.Error()))
		}
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		slog.Error("config load failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	log := logger.New(&cfg.Logger)

	// context + signals
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// build application
	application, err := app.NewApp(ctx, *cfg, log)
	if err != nil {
		log.Error("app init failed", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// run application
	if err := application.Run(ctx); err != nil {
		log.Error("application stopped with error", slog.String("error", err.Error()))
	}

	log.Info("exchange-rates-bot stopped")
}
