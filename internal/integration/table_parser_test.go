package integration

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/abelzeko/aqualim-harvester/internal/entities"
)

func testChunk() entities.DateRange {
	return entities.DateRange{
		Start: time.Date(2015, time.January, 1, 0, 0, 0, 0, siteZone),
		End:   time.Date(2016, time.January, 1, 0, 0, 0, 0, siteZone),
	}
}

func exportTable(rows ...string) []byte {
	var b strings.Builder
	b.WriteString(`<html><body><table>`)
	b.WriteString(`<tr><th>Date</th><th>Hauteur (m)</th><th>Débit (m³/s)</th></tr>`)
	for _, row := range rows {
		b.WriteString(row)
	}
	b.WriteString(`</table></body></html>`)
	return []byte(b.String())
}

func TestParseMeasurementTableTenRows(t *testing.T) {
	var rows []string
	for i := 1; i <= 10; i++ {
		rows = append(rows, fmt.Sprintf(
			`<tr><td>%02d/01/2015 08:00</td><td>1.%02d</td><td>4%d.5</td></tr>`, i, i, i))
	}

	scraper := newTestScraper("http://example.invalid")
	records, err := scraper.ParseMeasurementTable(exportTable(rows...), "6526", testChunk())
	if err != nil {
		t.Fatalf("Failed to parse table: %v", err)
	}

	if len(records) != 10 {
		t.Fatalf("Expected 10 records, got %d", len(records))
	}

	first := records[0]
	if first.StationCode != "6526" {
		t.Errorf("Unexpected station code %s", first.StationCode)
	}
	wantTs := time.Date(2015, time.January, 1, 8, 0, 0, 0, siteZone)
	if !first.Timestamp.Equal(wantTs) {
		t.Errorf("Expected timestamp %s, got %s", wantTs, first.Timestamp)
	}
	if first.WaterLevel != 1.01 {
		t.Errorf("Expected water level 1.01, got %v", first.WaterLevel)
	}
	if first.Flow != 41.5 {
		t.Errorf("Expected flow 41.5, got %v", first.Flow)
	}
	if !first.SourceRange.Start.Equal(testChunk().Start) {
		t.Errorf("Record does not carry its source range: %+v", first.SourceRange)
	}
}

func TestParseMeasurementTableDropsMalformedRows(t *testing.T) {
	scraper := newTestScraper("http://example.invalid")
	records, err := scraper.ParseMeasurementTable(exportTable(
		`<tr><td>01/01/2015 08:00</td><td>1.10</td><td>40.0</td></tr>`,
		`<tr><td>01/01/2015 09:00</td><td>1.11</td><td>n/a</td></tr>`,
		`<tr><td>pas une date</td><td>1.12</td><td>41.0</td></tr>`,
		`<tr><td>01/01/2015 10:00</td><td>1.13</td><td>42.0</td></tr>`,
	), "6526", testChunk())
	if err != nil {
		t.Fatalf("Malformed rows must not fail the batch: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 valid records, got %d", len(records))
	}
	if records[1].Flow != 42.0 {
		t.Errorf("Parsing did not continue past malformed rows: %+v", records[1])
	}
}

func TestParseMeasurementTableAnnotationsAndSentinels(t *testing.T) {
	scraper := newTestScraper("http://example.invalid")
	records, err := scraper.ParseMeasurementTable(exportTable(
		`<tr><td>01/01/2015 08:00</td><td>1,25*</td><td>40.0</td></tr>`,
		`<tr><td>01/01/2015 09:00</td><td>-9999</td><td>38.5</td></tr>`,
	), "6526", testChunk())
	if err != nil {
		t.Fatalf("Failed to parse table: %v", err)
	}

	if len(records) != 2 {
		t.Fatalf("Expected 2 records, got %d", len(records))
	}
	// Annotated value: asterisk stripped, decimal comma accepted.
	if records[0].WaterLevel != 1.25 {
		t.Errorf("Expected annotated level 1.25, got %v", records[0].WaterLevel)
	}
	// Sentinel placeholder stored as 0.
	if records[1].WaterLevel != 0 {
		t.Errorf("Expected sentinel level clamped to 0, got %v", records[1].WaterLevel)
	}
}

func TestParseMeasurementTableNoTable(t *testing.T) {
	scraper := newTestScraper("http://example.invalid")
	_, err := scraper.ParseMeasurementTable([]byte(`<html><body><p>Aucune donnée</p></body></html>`), "6526", testChunk())
	if !errors.Is(err, entities.ErrParse) {
		t.Fatalf("Expected parse error for table-less export, got %v", err)
	}
}

func TestParseNumericCell(t *testing.T) {
	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{"1.23", 1.23, false},
		{" 45,6 ", 45.6, false},
		{"1.23*", 1.23, false},
		{"-9999", 0, false},
		{"", 0, true},
		{"n/a", 0, true},
	}

	for _, c := range cases {
		got, err := parseNumericCell(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("parseNumericCell(%q): expected error, got %v", c.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("parseNumericCell(%q): unexpected error %v", c.in, err)
			continue
		}
		if got != c.want {
			t.Errorf("parseNumericCell(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}
