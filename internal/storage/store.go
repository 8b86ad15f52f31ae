package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

func (s *Store) Dir() string { return s.baseDir }

type RunMetadata struct {
	ID        string             `json:"id"`
	Preset    string             `json:"preset"`
	Timestamp time.Time          `json:"timestamp"`
	Seed      int64              `json:"seed"`
	Bodies    int                `json:"bodies"`
	Backend   string             `json:"backend"`
	Dt        float64            `json:"dt"`
	Duration  float64            `json:"duration"`
	Ticks     uint64             `json:"ticks"`
	Anomalies uint64             `json:"anomalies"`
	Metrics   map[string]float64 `json:"metrics"`
}

// Sample is one row of samples.csv, taken at simulated time Time (seconds).
type Sample struct {
	Time      float64
	Ticks     uint64
	Momentum  float64
	Energy    float64
	Spread    float64
	Anomalies uint64
}

var sampleHeader = []string{"time", "ticks", "momentum", "energy", "spread", "anomalies"}

// Save writes metadata.json and samples.csv under a new run directory and
// returns the run id. An empty meta.ID is derived from preset and timestamp.
func (s *Store) Save(meta RunMetadata, samples []Sample) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = fmt.Sprintf("%s_%d", meta.Preset, meta.Timestamp.UnixMilli())
	}
	runDir := filepath.Join(s.baseDir, meta.ID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	metaFile, err := os.Create(filepath.Join(runDir, "metadata.json"))
	if err != nil {
		return "", err
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return "", err
	}

	csvFile, err := os.Create(filepath.Join(runDir, "samples.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(sampleHeader); err != nil {
		return "", err
	}
	for _, sm := range samples {
		row := []string{
			strconv.FormatFloat(sm.Time, 'f', 6, 64),
			strconv.FormatUint(sm.Ticks, 10),
			strconv.FormatFloat(sm.Momentum, 'g', -1, 64),
			strconv.FormatFloat(sm.Energy, 'g', -1, 64),
			strconv.FormatFloat(sm.Spread, 'g', -1, 64),
			strconv.FormatUint(sm.Anomalies, 10),
		}
		if err := w.Write(row); err != nil {
			return "", err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	return meta.ID, nil
}

// List returns every readable run, oldest first. Directories without valid
// metadata are skipped.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}

	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.Before(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadSamples(runID string) ([]Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "samples.csv"))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = len(sampleHeader)

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("run %s samples: %w", runID, err)
	}
	if len(records) < 2 {
		return []Sample{}, nil
	}

	samples := make([]Sample, 0, len(records)-1)
	for i, rec := range records[1:] {
		sm, err := parseSample(rec)
		if err != nil {
			return nil, fmt.Errorf("run %s samples row %d: %w", runID, i+1, err)
		}
		samples = append(samples, sm)
	}
	return samples, nil
}

func parseSample(rec []string) (Sample, error) {
	var (
		sm  Sample
		err error
	)
	if sm.Time, err = strconv.ParseFloat(rec[0], 64); err != nil {
		return sm, err
	}
	if sm.Ticks, err = strconv.ParseUint(rec[1], 10, 64); err != nil {
		return sm, err
	}
	if sm.Momentum, err = strconv.ParseFloat(rec[2], 64); err != nil {
		return sm, err
	}
	if sm.Energy, err = strconv.ParseFloat(rec[3], 64); err != nil {
		return sm, err
	}
	if sm.Spread, err = strconv.ParseFloat(rec[4], 64); err != nil {
		return sm, err
	}
	sm.Anomalies, err = strconv.ParseUint(rec[5], 10, 64)
	return sm, err
}
