// Package usecases contains the application's business logic
package usecases

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/abelzeko/aqualim-harvester/internal/config"
	"github.com/abelzeko/aqualim-harvester/internal/entities"
	"github.com/abelzeko/aqualim-harvester/internal/integration"
	"github.com/abelzeko/aqualim-harvester/internal/repository"
)

// HarvestUseCase orchestrates a harvest run: directory → per-station
// session → chunked downloads → parse → upsert, with coverage bookkeeping
// and a JSON snapshot at the end.
type HarvestUseCase struct {
	cfg          *config.Config
	scraper      *integration.AqualimScraper
	measurements repository.MeasurementRepository
	coverage     repository.CoverageRepository
	log          *zap.SugaredLogger

	now func() time.Time
}

// NewHarvestUseCase creates a new harvest use case.
func NewHarvestUseCase(
	cfg *config.Config,
	scraper *integration.AqualimScraper,
	measurements repository.MeasurementRepository,
	coverage repository.CoverageRepository,
	log *zap.SugaredLogger,
) *HarvestUseCase {
	return &HarvestUseCase{
		cfg:          cfg,
		scraper:      scraper,
		measurements: measurements,
		coverage:     coverage,
		log:          log,
		now:          time.Now,
	}
}

// HarvestAll runs one sequential harvest over every Meuse watershed
// station. Per-station and per-chunk failures are logged and skipped;
// a storage failure aborts the run (re-running is safe, every write is an
// idempotent upsert).
func (uc *HarvestUseCase) HarvestAll(ctx context.Context) error {
	uc.log.Info("Starting harvest run")

	stations, err := uc.scraper.FetchStationDirectory(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch station directory: %v", err)
	}

	meuse := entities.FilterMeuseWatershed(stations)
	uc.log.Infow("Station directory fetched", "total", len(stations), "meuse", len(meuse))

	if err := uc.measurements.SaveStations(meuse); err != nil {
		return fmt.Errorf("failed to save stations: %v", err)
	}

	var harvested []entities.MeasurementRecord
	for _, station := range meuse {
		records, err := uc.harvestStation(ctx, station)
		harvested = append(harvested, records...)
		if err != nil {
			if errors.Is(err, entities.ErrStorage) {
				return fmt.Errorf("harvest aborted at station %s: %v", station.Code, err)
			}
			uc.log.Warnw("Skipping station", "code", station.Code, "error", err)
			continue
		}
	}

	if err := repository.SaveSnapshot(uc.cfg.SnapshotPath, harvested); err != nil {
		uc.log.Warnw("Failed to write snapshot", "path", uc.cfg.SnapshotPath, "error", err)
	} else {
		uc.log.Infow("Snapshot written", "path", uc.cfg.SnapshotPath, "records", len(harvested))
	}

	uc.log.Infow("Harvest run finished", "stations", len(meuse), "records", len(harvested))
	return nil
}

// harvestStation downloads every wanted chunk of one station. Returns the
// records persisted so far even when a later chunk fails.
func (uc *HarvestUseCase) harvestStation(ctx context.Context, station entities.Station) ([]entities.MeasurementRecord, error) {
	sess, err := uc.scraper.OpenStationSession(ctx, station)
	if err != nil {
		return nil, err
	}

	now := uc.now()
	start := sess.Period.Start
	earliest := time.Date(uc.cfg.EarliestYear, time.January, 1, 0, 0, 0, 0, start.Location())
	if start.Before(earliest) {
		start = earliest
	}
	end := sess.Period.End
	if end.After(now) {
		end = now
	}

	chunks := entities.SplitDateRange(start, end)
	uc.log.Infow("Harvesting station", "code", station.Code, "range",
		entities.DateRange{Start: start, End: end}.String(), "chunks", len(chunks))

	var all []entities.MeasurementRecord
	for _, chunk := range chunks {
		records, err := uc.harvestChunk(ctx, sess, chunk, now)
		if err != nil {
			if errors.Is(err, entities.ErrStorage) {
				return all, err
			}
			// Failed chunks are skipped, not retried; the next run picks
			// them up via their "bare" coverage status.
			uc.log.Warnw("Skipping chunk", "code", station.Code, "range", chunk.String(), "error", err)
			continue
		}
		all = append(all, records...)
	}
	return all, nil
}

// harvestChunk fetches, parses and persists one date-range chunk, then
// records its coverage status.
func (uc *HarvestUseCase) harvestChunk(ctx context.Context, sess *integration.StationSession, chunk entities.DateRange, now time.Time) ([]entities.MeasurementRecord, error) {
	code := sess.Station.Code

	status, err := uc.coverage.GetStatus(code, chunk)
	if err != nil {
		uc.log.Warnw("Failed to read coverage, assuming unknown", "code", code, "range", chunk.String(), "error", err)
		status = entities.CoverageUnknown
	}
	if !uc.wantCovered(status) {
		uc.log.Debugw("Chunk already covered, skipping", "code", code, "range", chunk.String(), "status", status)
		return nil, nil
	}

	raw, err := uc.scraper.FetchMeasurementTable(ctx, sess, chunk)
	if err != nil {
		uc.markBare(code, chunk)
		return nil, err
	}

	records, err := uc.scraper.ParseMeasurementTable(raw, code, chunk)
	if err != nil {
		uc.markBare(code, chunk)
		return nil, err
	}

	if err := uc.measurements.SaveMeasurements(records); err != nil {
		return nil, err
	}

	newStatus := entities.CoverageCovered
	if !chunk.End.Before(now) {
		// The chunk reaches into the present; the table is still filling up.
		newStatus = entities.CoverageIncomplete
	}
	if err := uc.coverage.SetStatus(code, chunk, newStatus); err != nil {
		uc.log.Warnw("Failed to record coverage", "code", code, "range", chunk.String(), "error", err)
	}

	return records, nil
}

func (uc *HarvestUseCase) wantCovered(status entities.CoverageStatus) bool {
	for _, want := range uc.cfg.WantCovered {
		if status == want {
			return true
		}
	}
	return false
}

func (uc *HarvestUseCase) markBare(code string, chunk entities.DateRange) {
	if err := uc.coverage.SetStatus(code, chunk, entities.CoverageBare); err != nil {
		uc.log.Warnw("Failed to mark chunk bare", "code", code, "range", chunk.String(), "error", err)
	}
}
