package snapshots

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// File is the JSON document written by WriteFile.
type File struct {
	CreatedAt time.Time   `json:"created_at"`
	Snapshots []*Snapshot `json:"snapshots"`
}

// WriteFile writes snapshots to a JSON file, creating parent directories.
func WriteFile(path string, snaps []*Snapshot) error {
	// Ensure the target directory exists
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create snapshot directory: %w", err)
	}

	if snaps == nil {
		snaps = []*Snapshot{}
	}
	data, err := json.MarshalIndent(&File{CreatedAt: time.Now().UTC(), Snapshots: snaps}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshots: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	return nil
}

// ReadFile reads snapshots written by WriteFile.
func ReadFile(path string) ([]*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var f File
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("failed to parse snapshot JSON: %w", err)
	}
	return f.Snapshots, nil
}
