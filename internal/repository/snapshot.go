package repository

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/abelzeko/aqualim-harvester/internal/entities"
)

// SaveSnapshot serializes records to a JSON file for crash recovery. The
// file is written to a temp path first and renamed, so a crash mid-write
// never leaves a truncated snapshot behind.
func SaveSnapshot(path string, records []entities.MeasurementRecord) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create snapshot directory: %v", err)
		}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %v", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot: %v", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("failed to replace snapshot: %v", err)
	}
	return nil
}

// LoadSnapshot reads a previously saved snapshot. A missing file is not an
// error; it just means there is nothing to recover.
func LoadSnapshot(path string) ([]entities.MeasurementRecord, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot: %v", err)
	}

	var records []entities.MeasurementRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %v", err)
	}
	return records, nil
}
