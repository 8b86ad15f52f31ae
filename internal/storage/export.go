package storage

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/san-kum/marblesim/internal/physics"
)

// Snapshot is a full system state at simulated time Time (seconds).
type Snapshot struct {
	Time   float64        `json:"time"`
	Ticks  uint64         `json:"ticks"`
	Bodies []physics.Body `json:"bodies"`
}

func WriteSnapshot(w io.Writer, snap Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(snap)
}

func ExportSnapshot(path string, snap Snapshot) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	defer file.Close()
	return WriteSnapshot(file, snap)
}

// ImportSnapshot reads a snapshot and rejects one that cannot seed a run.
func ImportSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", path, err)
	}
	if len(snap.Bodies) == 0 {
		return nil, fmt.Errorf("snapshot %s: no bodies", path)
	}
	for i, b := range snap.Bodies {
		if !(b.Radius > 0) {
			return nil, fmt.Errorf("snapshot %s: body %d has radius %g", path, i, b.Radius)
		}
	}
	return &snap, nil
}
