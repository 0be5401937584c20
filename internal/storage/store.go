// Package storage persists training runs: metadata and metrics as JSON,
// the loss curve as CSV and network weights as a JSON checkpoint.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/san-kum/ringsim/internal/ctrnn"
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

type RunMetadata struct {
	ID         string             `json:"id"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       int64              `json:"seed"`
	HiddenSize int                `json:"hidden_size"`
	SeqLen     int                `json:"seq_len"`
	Epochs     int                `json:"epochs"`
	FinalLoss  float64            `json:"final_loss"`
	Metrics    map[string]float64 `json:"metrics"`
}

type checkpoint struct {
	Config ctrnn.Config `json:"config"`
	Win    []float64    `json:"win"`
	Wrec   []float64    `json:"wrec"`
	Bias   []float64    `json:"bias"`
	Wout   []float64    `json:"wout"`
}

// Save writes one completed run under a fresh run directory and returns
// its ID.
func (s *Store) Save(meta RunMetadata, losses []float64, net *ctrnn.Network) (string, error) {
	runID := fmt.Sprintf("run_%d", time.Now().Unix())
	runDir := filepath.Join(s.baseDir, runID)

	if err := os.MkdirAll(runDir, 0755); err != nil {
		return "", err
	}

	meta.ID = runID
	meta.Timestamp = time.Now()

	if err := writeJSON(filepath.Join(runDir, "metadata.json"), meta); err != nil {
		return "", err
	}

	if err := writeLossCSV(filepath.Join(runDir, "loss.csv"), losses); err != nil {
		return "", err
	}

	if net != nil {
		ck := checkpoint{
			Config: net.Config(),
			Win:    net.Win.RawMatrix().Data,
			Wrec:   net.Wrec.RawMatrix().Data,
			Bias:   net.Bias.RawVector().Data,
			Wout:   net.Wout.RawMatrix().Data,
		}
		if err := writeJSON(filepath.Join(runDir, "weights.json"), ck); err != nil {
			return "", err
		}
	}

	return runID, nil
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeLossCSV(path string, losses []float64) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"epoch", "loss"}); err != nil {
		return err
	}
	for i, loss := range losses {
		row := []string{strconv.Itoa(i), strconv.FormatFloat(loss, 'g', -1, 64)}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

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

	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "metadata.json"))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// LoadLosses reads a run's loss curve.
func (s *Store) LoadLosses(runID string) ([]float64, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, "loss.csv"))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	losses := make([]float64, 0, len(records))
	for i, record := range records {
		if i == 0 || len(record) < 2 {
			continue
		}
		loss, err := strconv.ParseFloat(record[1], 64)
		if err != nil {
			continue
		}
		losses = append(losses, loss)
	}
	return losses, nil
}

// LoadNetwork restores a run's trained network. rng feeds state noise
// in subsequent forward passes.
func (s *Store) LoadNetwork(runID string, rng *rand.Rand) (*ctrnn.Network, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, "weights.json"))
	if err != nil {
		return nil, err
	}

	var ck checkpoint
	if err := json.Unmarshal(data, &ck); err != nil {
		return nil, err
	}

	return ctrnn.NewFromParams(ck.Config, ck.Win, ck.Wrec, ck.Bias, ck.Wout, rng)
}
