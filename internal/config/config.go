// Package config loads the harvester configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/abelzeko/aqualim-harvester/internal/entities"
)

// Config carries everything the harvester needs. It is built once in main
// and passed down explicitly; nothing reads the environment after Load.
type Config struct {
	// BaseURL of the Aqualim website.
	BaseURL string

	// DatabaseDSN is the PostgreSQL connection string for measurements.
	DatabaseDSN string

	// CoverageDBPath is the SQLite file tracking per-chunk retrieval state.
	CoverageDBPath string

	// SnapshotPath is where the JSON snapshot of the last harvest is written.
	SnapshotPath string

	// EarliestYear bounds how deep into the archive a harvest reaches.
	EarliestYear int

	// RequestDelay is the courtesy pause between requests to the website.
	RequestDelay time.Duration

	// RequestTimeout applies to every HTTP request.
	RequestTimeout time.Duration

	// Personalia submitted on the station form that unlocks export links.
	ContactName    string
	ContactEmail   string
	ContactPurpose string

	// WantCovered lists coverage statuses a run will (re)download.
	WantCovered []entities.CoverageStatus

	// CronSpec schedules the periodic refresh in the harvester daemon.
	CronSpec string

	// TelegramBotToken is only required by the bot entrypoint.
	TelegramBotToken string

	// Debug switches the logger to development output.
	Debug bool
}

// Load reads the configuration from the environment, honoring a .env file
// in the working directory when present.
func Load() (*Config, error) {
	// Missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		BaseURL:          getEnv("AQUALIM_BASE_URL", "https://aqualim.environnement.wallonie.be"),
		DatabaseDSN:      os.Getenv("AQUALIM_DATABASE_DSN"),
		CoverageDBPath:   getEnv("AQUALIM_COVERAGE_DB", "data/coverage.db"),
		SnapshotPath:     getEnv("AQUALIM_SNAPSHOT_PATH", "data/snapshot.json"),
		ContactName:      getEnv("AQUALIM_CONTACT_NAME", "Data Harvester"),
		ContactEmail:     getEnv("AQUALIM_CONTACT_EMAIL", "harvester@example.org"),
		ContactPurpose:   getEnv("AQUALIM_CONTACT_PURPOSE", "research"),
		WantCovered:      entities.DefaultWantCovered,
		CronSpec:         getEnv("AQUALIM_CRON_SPEC", "0 3 * * *"),
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		Debug:            os.Getenv("AQUALIM_DEBUG") != "",
	}

	var err error
	cfg.EarliestYear, err = getEnvInt("AQUALIM_EARLIEST_YEAR", 2011)
	if err != nil {
		return nil, err
	}

	cfg.RequestDelay, err = getEnvDuration("AQUALIM_REQUEST_DELAY", 100*time.Millisecond)
	if err != nil {
		return nil, err
	}
	cfg.RequestTimeout, err = getEnvDuration("AQUALIM_REQUEST_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %v", key, v, err)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %v", key, v, err)
	}
	return d, nil
}
