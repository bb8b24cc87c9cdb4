// ABOUTME: Data migration between fatigue storage backends.
// ABOUTME: Copies subjects and their series from source to destination.

package storage

import (
	"fmt"
	"os"
)

// MigrateSummary holds counts of migrated entities.
type MigrateSummary struct {
	Subjects     int
	HeartRates   int
	Observations int
	Activities   int
}

// MigrateData copies all data from src to dst storage.
// The destination should be empty before calling this function.
func MigrateData(src, dst Repository) (*MigrateSummary, error) {
	data, err := src.GetAllData()
	if err != nil {
		return nil, fmt.Errorf("read source: %w", err)
	}

	if err := dst.ImportData(data); err != nil {
		return nil, fmt.Errorf("write destination: %w", err)
	}

	return &MigrateSummary{
		Subjects:     len(data.Subjects),
		HeartRates:   len(data.HeartRates),
		Observations: len(data.Observations),
		Activities:   len(data.Activities),
	}, nil
}

// IsDirNonEmpty checks whether a directory exists and contains any files or subdirectories.
// Returns false if the directory does not exist or is empty.
func IsDirNonEmpty(path string) (bool, error) {
	entries, err := os.ReadDir(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read directory %q: %w", path, err)
	}
	return len(entries) > 0, nil
}
