package integration

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/abelzeko/aqualim-harvester/internal/entities"
)

// tableTimestamp is the dd/mm/yyyy hh:mm format used in export rows.
const tableTimestamp = "02/01/2006 15:04"

// sentinelFloor: values at or below this are website placeholders for
// missing data and are stored as 0.
const sentinelFloor = -9000

// ParseMeasurementTable converts a raw export (an HTML table, despite the
// xls name the website gives it) into normalized measurement records.
// Malformed rows are dropped with a warning; a document without any table
// is a parse error.
func (s *AqualimScraper) ParseMeasurementTable(raw []byte, stationCode string, chunk entities.DateRange) ([]entities.MeasurementRecord, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: export for %s %s: %v", entities.ErrParse, stationCode, chunk, err)
	}
	if doc.Find("table").Length() == 0 {
		return nil, fmt.Errorf("%w: export for %s %s has no table", entities.ErrParse, stationCode, chunk)
	}

	var records []entities.MeasurementRecord
	dropped := 0

	doc.Find("table tr").Each(func(index int, row *goquery.Selection) {
		cells := row.Find("td")
		if cells.Length() < 3 {
			return
		}

		tsStr := strings.TrimSpace(cells.Eq(0).Text())
		// Header and separator rows carry no date.
		if !strings.Contains(tsStr, "/") || !strings.Contains(tsStr, ":") {
			return
		}

		timestamp, err := time.ParseInLocation(tableTimestamp, tsStr, siteZone)
		if err != nil {
			s.log.Warnw("Dropping row with invalid timestamp", "station", stationCode, "value", tsStr)
			dropped++
			return
		}

		level, err := parseNumericCell(cells.Eq(1).Text())
		if err != nil {
			s.log.Warnw("Dropping row with non-numeric water level", "station", stationCode, "timestamp", tsStr, "value", cells.Eq(1).Text())
			dropped++
			return
		}
		flow, err := parseNumericCell(cells.Eq(2).Text())
		if err != nil {
			s.log.Warnw("Dropping row with non-numeric flow", "station", stationCode, "timestamp", tsStr, "value", cells.Eq(2).Text())
			dropped++
			return
		}

		records = append(records, entities.MeasurementRecord{
			StationCode: stationCode,
			Timestamp:   timestamp,
			WaterLevel:  level,
			Flow:        flow,
			SourceRange: chunk,
		})
	})

	s.log.Infow("Parsed export table", "station", stationCode, "range", chunk.String(), "records", len(records), "dropped", dropped)
	return records, nil
}

// parseNumericCell normalizes one numeric table cell. Annotation asterisks
// are stripped, decimal commas accepted, and sentinel values clamped to 0.
func parseNumericCell(text string) (float64, error) {
	cleaned := strings.TrimSpace(text)
	cleaned = strings.ReplaceAll(cleaned, "*", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	if cleaned == "" {
		return 0, fmt.Errorf("empty cell")
	}

	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, err
	}
	if v <= sentinelFloor {
		return 0, nil
	}
	return v, nil
}
