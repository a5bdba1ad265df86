package repository

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/abelzeko/aqualim-harvester/internal/entities"
)

// coverageDateKey is how chunk boundaries are stored in coverage keys.
const coverageDateKey = "2006-01-02"

// CoverageRepository tracks which station/date-range chunks have already
// been retrieved, so re-runs only fetch what is missing or stale.
type CoverageRepository interface {
	GetStatus(stationCode string, chunk entities.DateRange) (entities.CoverageStatus, error)
	SetStatus(stationCode string, chunk entities.DateRange, status entities.CoverageStatus) error
	Close() error
}

// SQLiteCoverageRepository implements CoverageRepository using SQLite.
type SQLiteCoverageRepository struct {
	db     *sql.DB
	DBPath string
}

// NewSQLiteCoverageRepository creates and initializes a new SQLite coverage store
func NewSQLiteCoverageRepository(dbPath string) (*SQLiteCoverageRepository, error) {
	if dbPath == "" {
		dbDir := "data"
		if err := os.MkdirAll(dbDir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
		dbPath = filepath.Join(dbDir, "coverage.db")
	} else if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %v", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open coverage database: %v", err)
	}

	createTableSQL := `
	CREATE TABLE IF NOT EXISTS coverage (
		station_code TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		status TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (station_code, start_date, end_date)
	);
	CREATE INDEX IF NOT EXISTS idx_coverage_status ON coverage(status);`

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create coverage table: %v", err)
	}

	return &SQLiteCoverageRepository{
		db:     db,
		DBPath: dbPath,
	}, nil
}

// Close closes the database connection
func (r *SQLiteCoverageRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// GetStatus returns the tracked status of a chunk, CoverageUnknown when the
// chunk was never seen before.
func (r *SQLiteCoverageRepository) GetStatus(stationCode string, chunk entities.DateRange) (entities.CoverageStatus, error) {
	var status string
	err := r.db.QueryRow(
		`SELECT status FROM coverage WHERE station_code = ? AND start_date = ? AND end_date = ?`,
		stationCode,
		chunk.Start.Format(coverageDateKey),
		chunk.End.Format(coverageDateKey),
	).Scan(&status)
	if err == sql.ErrNoRows {
		return entities.CoverageUnknown, nil
	}
	if err != nil {
		return entities.CoverageUnknown, fmt.Errorf("failed to query coverage for %s %s: %v", stationCode, chunk, err)
	}
	return entities.CoverageStatus(status), nil
}

// SetStatus records the status of a chunk, overwriting any previous value.
func (r *SQLiteCoverageRepository) SetStatus(stationCode string, chunk entities.DateRange, status entities.CoverageStatus) error {
	_, err := r.db.Exec(`
		INSERT INTO coverage(station_code, start_date, end_date, status)
		VALUES(?, ?, ?, ?)
		ON CONFLICT(station_code, start_date, end_date) DO UPDATE SET
		status=excluded.status,
		updated_at=CURRENT_TIMESTAMP`,
		stationCode,
		chunk.Start.Format(coverageDateKey),
		chunk.End.Format(coverageDateKey),
		string(status),
	)
	if err != nil {
		return fmt.Errorf("failed to set coverage for %s %s: %v", stationCode, chunk, err)
	}
	return nil
}
