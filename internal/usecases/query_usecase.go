package usecases

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/abelzeko/aqualim-harvester/internal/entities"
	"github.com/abelzeko/aqualim-harvester/internal/repository"
)

// StationQueryUseCase answers read-only questions about persisted data.
// It backs the Telegram bot.
type StationQueryUseCase struct {
	repo repository.MeasurementRepository
	log  *zap.SugaredLogger
}

// NewStationQueryUseCase creates a new query use case.
func NewStationQueryUseCase(repo repository.MeasurementRepository, log *zap.SugaredLogger) *StationQueryUseCase {
	return &StationQueryUseCase{
		repo: repo,
		log:  log,
	}
}

// GetAvailableRivers returns a list of all river names with stations.
func (uc *StationQueryUseCase) GetAvailableRivers() ([]string, error) {
	uc.log.Debug("Retrieving list of available rivers")
	return uc.repo.GetRivers()
}

// GetLastUpdateTime returns the newest measurement timestamp in the store.
func (uc *StationQueryUseCase) GetLastUpdateTime() (time.Time, error) {
	return uc.repo.GetLastUpdateTime()
}

// GetStationsByRiver returns the stations monitoring one river.
func (uc *StationQueryUseCase) GetStationsByRiver(river string) ([]entities.Station, error) {
	uc.log.Debugw("Retrieving stations", "river", river)
	return uc.repo.GetStationsByRiver(strings.ToUpper(strings.TrimSpace(river)))
}

// FormatRiverInfo formats the latest measurement of every station on a
// river for display.
func (uc *StationQueryUseCase) FormatRiverInfo(river string, stations []entities.Station) string {
	if len(stations) == 0 {
		return "No information available for this river."
	}

	var result strings.Builder
	result.WriteString(fmt.Sprintf("Information for river %s:\n\n", river))

	for _, station := range stations {
		result.WriteString(fmt.Sprintf("📍 Station: %s (%s)\n", station.Name, station.Code))

		latest, err := uc.repo.GetLatestMeasurement(station.Code)
		if err != nil {
			uc.log.Warnw("Failed to fetch latest measurement", "code", station.Code, "error", err)
			result.WriteString("No measurements available.\n\n")
			continue
		}
		if latest == nil {
			result.WriteString("No measurements available.\n\n")
			continue
		}

		result.WriteString(fmt.Sprintf("💧 Water Level: %.2f m\n", latest.WaterLevel))
		result.WriteString(fmt.Sprintf("🌊 Flow: %.1f m³/s\n", latest.Flow))
		result.WriteString(fmt.Sprintf("🕒 Measured at: %s\n\n", latest.Timestamp.Format("2006-01-02 15:04")))
	}

	return result.String()
}
