package main

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/abelzeko/aqualim-harvester/internal/config"
	"github.com/abelzeko/aqualim-harvester/internal/integration"
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

	zlog := logger.New(cfg.Debug)
	defer zlog.Sync()
	zlog.Info("Starting Aqualim harvester...")

	// Initialize measurement store
	measurements, err := repository.NewPostgresMeasurementRepository(cfg.DatabaseDSN)
	if err != nil {
		zlog.Fatalw("Failed to initialize measurement repository", "error", err)
	}
	defer measurements.Close()

	// Initialize coverage tracker
	coverage, err := repository.NewSQLiteCoverageRepository(cfg.CoverageDBPath)
	if err != nil {
		zlog.Fatalw("Failed to initialize coverage repository", "error", err)
	}
	defer coverage.Close()

	// Initialize scraper
	scraper := integration.NewAqualimScraper(cfg, zlog)

	// Initialize use case
	useCase := usecases.NewHarvestUseCase(cfg, scraper, measurements, coverage, zlog)

	// Report what a previous run left behind before overwriting it.
	if prior, err := repository.LoadSnapshot(cfg.SnapshotPath); err != nil {
		zlog.Warnw("Failed to read previous snapshot", "path", cfg.SnapshotPath, "error", err)
	} else if len(prior) > 0 {
		zlog.Infow("Recovered snapshot from previous run", "path", cfg.SnapshotPath, "records", len(prior))
	}

	ctx := context.Background()

	// Run a full harvest immediately on startup
	if err := useCase.HarvestAll(ctx); err != nil {
		zlog.Errorw("Initial harvest failed", "error", err)
	}

	// Schedule periodic refreshes; covered chunks are skipped, so a refresh
	// only re-downloads bare and incomplete ones.
	c := cron.New()
	_, err = c.AddFunc(cfg.CronSpec, func() {
		if err := useCase.HarvestAll(ctx); err != nil {
			zlog.Errorw("Scheduled harvest failed", "error", err)
		}
	})
	if err != nil {
		zlog.Fatalw("Failed to set up cron job", "spec", cfg.CronSpec, "error", err)
	}

	zlog.Infow("Harvester scheduled", "spec", cfg.CronSpec)
	c.Start()

	// Keep the program running
	select {}
}
