// Package persistence periodically snapshots the engine's in-memory state
// to disk as JSON, atomically, so a restart resumes from the last known
// balance and open position instead of re-paper-trading from scratch —
// mirroring a Python paper-trading engine's _save_state/_load_state pair.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/sdibella/btc15m/internal/strategy"
)

// Snapshot is everything the engine needs to resume cleanly after a
// restart: the account rollup, any open position, and the win-rate
// posterior's sufficient statistics.
type Snapshot struct {
	SavedAt   time.Time          `json:"saved_at"`
	Portfolio strategy.Portfolio `json:"portfolio"`
	Open      *strategy.Position `json:"open_position,omitempty"`
	Alpha     int64              `json:"posterior_alpha"`
	Beta      int64              `json:"posterior_beta"`
}

// Save atomically writes snap to path: it writes to a temp file in the
// same directory and renames it into place, so a crash mid-write never
// leaves a half-written snapshot for the next startup to load.
func Save(path string, snap Snapshot) error {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("persistence: marshal snapshot: %w", err)
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("persistence: create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("persistence: write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persistence: close temp file: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("persistence: rename temp file: %w", err)
	}
	return nil
}

// Load reads a snapshot from path. A missing file is not an error — it
// just means there's nothing to resume from — and returns the zero
// Snapshot with ok=false.
func Load(path string) (Snapshot, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Snapshot{}, false, nil
		}
		return Snapshot{}, false, fmt.Errorf("persistence: read snapshot: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return Snapshot{}, false, fmt.Errorf("persistence: parse snapshot: %w", err)
	}
	return snap, true, nil
}
