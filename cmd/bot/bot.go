package main

import (
	"log"

	"github.com/abelzeko/aqualim-harvester/internal/api"
	"github.com/abelzeko/aqualim-harvester/internal/config"
	"github.com/abelzeko/aqualim-harvester/internal/logger"
	"github.com/abelzeko/aqualim-harvester/internal/repository"
	"github.com/abelzeko/aqualim-harvester/internal/usecases"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if cfg.DatabaseDSN == "" {
		log.Fatal("AQUALIM_DATABASE_DSN environment variable is not set")
	}
	if cfg.TelegramBotToken == "" {
		log.Fatal("TELEGRAM_BOT_TOKEN environment variable is not set")
	}

	zlog := logger.New(cfg.Debug)
	defer zlog.Sync()
	zlog.Info("Starting Aqualim bot...")

	// Initialize measurement store
	measurements, err := repository.NewPostgresMeasurementRepository(cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatalw("Failed to initialize measurement repository", "error", err)
	}
	defer measurements.Close()

	// Initialize use case
	useCase := usecases.NewStationQueryUseCase(measurements, zlog)

	// Initialize Telegram bot
	telegramBot, err := api.NewTelegramBot(cfg.TelegramBotToken, useCase, zlog)
	if err != nil {
		zlog.Fatalw("Failed to initialize Telegram bot", "error", err)
	}

	// Start the bot
	telegramBot.Start()
}
