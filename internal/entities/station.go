// Package entities contains the core domain objects for the Aqualim harvester
package entities

import (
	"time"
)

// Station is a fixed measurement point of the Aqualim network.
// Stations are identified uniquely by their code and are immutable
// once parsed from the directory page.
type Station struct {
	Code    string
	Name    string
	River   string // Name of the river the station monitors
	X       float64
	Y       float64
	PageURL string // Absolute URL of the station detail page
}

// MeasurementRecord is a single normalized measurement row for a station.
type MeasurementRecord struct {
	StationCode string    `json:"station_code"`
	Timestamp   time.Time `json:"timestamp"`
	WaterLevel  float64   `json:"water_level"` // meters
	Flow        float64   `json:"flow"`        // m³/s
	SourceRange DateRange `json:"source_range"`
}
