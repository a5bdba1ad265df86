// Package repository provides data access implementations
package repository

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/abelzeko/aqualim-harvester/internal/entities"
)

// MeasurementRepository defines the persistence operations for stations and
// their measurements.
type MeasurementRepository interface {
	SaveStations(stations []entities.Station) error
	SaveMeasurements(records []entities.MeasurementRecord) error
	GetRivers() ([]string, error)
	GetStationsByRiver(river string) ([]entities.Station, error)
	GetLatestMeasurement(stationCode string) (*entities.MeasurementRecord, error)
	GetLastUpdateTime() (time.Time, error)
	Close() error
}

type stationModel struct {
	Code    string  `gorm:"column:code;primaryKey"`
	Name    string  `gorm:"column:name"`
	River   string  `gorm:"column:river;index"`
	X       float64 `gorm:"column:x"`
	Y       float64 `gorm:"column:y"`
	PageURL string  `gorm:"column:page_url"`
}

func (stationModel) TableName() string { return "stations" }

type measurementModel struct {
	StationCode string    `gorm:"column:station_code;primaryKey"`
	Timestamp   time.Time `gorm:"column:timestamp;primaryKey"`
	WaterLevel  float64   `gorm:"column:water_level"`
	Flow        float64   `gorm:"column:flow"`
	SourceStart time.Time `gorm:"column:source_start"`
	SourceEnd   time.Time `gorm:"column:source_end"`
}

func (measurementModel) TableName() string { return "measurements" }

// PostgresMeasurementRepository implements MeasurementRepository on top of
// PostgreSQL (TimescaleDB works unchanged, the schema is hypertable-ready).
type PostgresMeasurementRepository struct {
	db *gorm.DB
}

// NewPostgresMeasurementRepository connects to PostgreSQL and creates the
// tables when missing.
func NewPostgresMeasurementRepository(dsn string) (*PostgresMeasurementRepository, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("%w: connect to postgres: %v", entities.ErrStorage, err)
	}

	if err := db.AutoMigrate(&stationModel{}, &measurementModel{}); err != nil {
		return nil, fmt.Errorf("%w: migrate schema: %v", entities.ErrStorage, err)
	}

	return &PostgresMeasurementRepository{db: db}, nil
}

// Close closes the underlying connection pool.
func (r *PostgresMeasurementRepository) Close() error {
	sqlDB, err := r.db.DB()
	if err != nil {
		return fmt.Errorf("%w: %v", entities.ErrStorage, err)
	}
	return sqlDB.Close()
}

// SaveStations upserts the station directory, keyed by station code.
func (r *PostgresMeasurementRepository) SaveStations(stations []entities.Station) error {
	if len(stations) == 0 {
		return nil
	}

	models := make([]stationModel, len(stations))
	for i, st := range stations {
		models[i] = stationModel{
			Code:    st.Code,
			Name:    st.Name,
			River:   st.River,
			X:       st.X,
			Y:       st.Y,
			PageURL: st.PageURL,
		}
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "code"}},
		DoUpdates: clause.AssignmentColumns([]string{"name", "river", "x", "y", "page_url"}),
	}).Create(&models).Error
	if err != nil {
		return fmt.Errorf("%w: save %d stations: %v", entities.ErrStorage, len(stations), err)
	}
	return nil
}

// SaveMeasurements upserts measurement rows keyed by (station_code,
// timestamp), so re-running a harvest never duplicates rows.
func (r *PostgresMeasurementRepository) SaveMeasurements(records []entities.MeasurementRecord) error {
	if len(records) == 0 {
		return nil
	}

	models := make([]measurementModel, len(records))
	for i, rec := range records {
		models[i] = measurementModel{
			StationCode: rec.StationCode,
			Timestamp:   rec.Timestamp,
			WaterLevel:  rec.WaterLevel,
			Flow:        rec.Flow,
			SourceStart: rec.SourceRange.Start,
			SourceEnd:   rec.SourceRange.End,
		}
	}

	err := r.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "station_code"}, {Name: "timestamp"}},
		DoUpdates: clause.AssignmentColumns([]string{"water_level", "flow", "source_start", "source_end"}),
	}).CreateInBatches(&models, 500).Error
	if err != nil {
		return fmt.Errorf("%w: save %d measurements: %v", entities.ErrStorage, len(records), err)
	}
	return nil
}

// GetRivers returns all distinct river names, sorted.
func (r *PostgresMeasurementRepository) GetRivers() ([]string, error) {
	var rivers []string
	err := r.db.Model(&stationModel{}).
		Distinct("river").
		Order("river").
		Pluck("river", &rivers).Error
	if err != nil {
		return nil, fmt.Errorf("%w: query rivers: %v", entities.ErrStorage, err)
	}
	return rivers, nil
}

// GetStationsByRiver returns the stations of one river, sorted by name.
func (r *PostgresMeasurementRepository) GetStationsByRiver(river string) ([]entities.Station, error) {
	var models []stationModel
	err := r.db.Where("river = ?", river).Order("name").Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("%w: query stations for river %s: %v", entities.ErrStorage, river, err)
	}

	stations := make([]entities.Station, len(models))
	for i, m := range models {
		stations[i] = entities.Station{
			Code:    m.Code,
			Name:    m.Name,
			River:   m.River,
			X:       m.X,
			Y:       m.Y,
			PageURL: m.PageURL,
		}
	}
	return stations, nil
}

// GetLatestMeasurement returns the most recent record for a station, or
// nil when the station has no data yet.
func (r *PostgresMeasurementRepository) GetLatestMeasurement(stationCode string) (*entities.MeasurementRecord, error) {
	var m measurementModel
	err := r.db.Where("station_code = ?", stationCode).
		Order("timestamp DESC").
		First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: query latest measurement for %s: %v", entities.ErrStorage, stationCode, err)
	}

	return &entities.MeasurementRecord{
		StationCode: m.StationCode,
		Timestamp:   m.Timestamp,
		WaterLevel:  m.WaterLevel,
		Flow:        m.Flow,
		SourceRange: entities.DateRange{Start: m.SourceStart, End: m.SourceEnd},
	}, nil
}

// GetLastUpdateTime returns the newest measurement timestamp in the store,
// or the zero time when the store is empty.
func (r *PostgresMeasurementRepository) GetLastUpdateTime() (time.Time, error) {
	var latest sql.NullTime
	row := r.db.Model(&measurementModel{}).Select("MAX(timestamp)").Row()
	if err := row.Scan(&latest); err != nil {
		return time.Time{}, fmt.Errorf("%w: query last update time: %v", entities.ErrStorage, err)
	}
	if !latest.Valid {
		return time.Time{}, nil
	}
	return latest.Time, nil
}
