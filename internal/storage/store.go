package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/dimreduce/internal/metrics"
	"github.com/san-kum/dimreduce/internal/schedule"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID        string             `json:"id"`
	Timestamp time.Time          `json:"timestamp"`
	Source    string             `json:"source"`
	Rows      int                `json:"rows"`
	Dims      int                `json:"dims"`
	Retain    int                `json:"retain"`
	Seed      uint64             `json:"seed"`
	Schedule  schedule.Config    `json:"schedule"`
	Metrics   map[string]float64 `json:"metrics"`
}

var historyHeader = []string{"iter", "phase", "rate", "max_force", "movement_scaler", "squeeze_force"}

// NewRunID returns run_<unix seconds>_<first 8 hex digits of a random UUID>.
func NewRunID(now time.Time) string {
	return fmt.Sprintf("run_%d_%s", now.Unix(), uuid.NewString()[:8])
}

// Save writes a new run directory and returns its ID. ID and Timestamp are
// filled in when empty.
func (s *Store) Save(meta RunMetadata, history []metrics.Sample) (string, error) {
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	if meta.ID == "" {
		meta.ID = NewRunID(meta.Timestamp)
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

	csvFile, err := os.Create(filepath.Join(runDir, "history.csv"))
	if err != nil {
		return "", err
	}
	defer csvFile.Close()

	w := csv.NewWriter(csvFile)
	if err := w.Write(historyHeader); err != nil {
		return "", err
	}
	for _, h := range history {
		row := []string{
			strconv.Itoa(h.Iter),
			h.Phase,
			strconv.FormatFloat(h.Rate, 'g', -1, 64),
			strconv.FormatFloat(h.MaxForce, 'g', -1, 64),
			strconv.FormatFloat(h.MovementScaler, 'g', -1, 64),
			strconv.FormatFloat(h.SqueezeForce, 'g', -1, 64),
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

// List returns every readable run, newest first.
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
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadHistory(runID string) ([]metrics.Sample, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, "history.csv"))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return []metrics.Sample{}, nil
	}

	samples := make([]metrics.Sample, 0, len(records)-1)
	for i, record := range records[1:] {
		if len(record) != len(historyHeader) {
			return nil, fmt.Errorf("history line %d: expected %d fields, got %d", i+2, len(historyHeader), len(record))
		}
		iter, err := strconv.Atoi(record[0])
		if err != nil {
			return nil, fmt.Errorf("history line %d: %w", i+2, err)
		}
		var nums [4]float64
		for j := range nums {
			nums[j], err = strconv.ParseFloat(record[j+2], 64)
			if err != nil {
				return nil, fmt.Errorf("history line %d: %w", i+2, err)
			}
		}
		samples = append(samples, metrics.Sample{
			Iter:           iter,
			Phase:          record[1],
			Rate:           nums[0],
			MaxForce:       nums[1],
			MovementScaler: nums[2],
			SqueezeForce:   nums[3],
		})
	}
	return samples, nil
}
