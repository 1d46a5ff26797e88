package suitability

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"gonum.org/v1/gonum/mat"
)

const fileVersion = 1

// snapshot is the on-disk model layout. Weight matrices are row-major.
type snapshot struct {
	Version      int       `json:"version"`
	Inputs       int       `json:"inputs"`
	Hidden       int       `json:"hidden"`
	LearningRate float64   `json:"learningRate"`
	W1           []float64 `json:"w1"`
	B1           []float64 `json:"b1"`
	W2           []float64 `json:"w2"`
	B2           float64   `json:"b2"`
	Mean         []float64 `json:"mean"`
	Std          []float64 `json:"std"`
	Trained      bool      `json:"trained"`
	TrainedAt    time.Time `json:"trainedAt"`
	SavedAt      time.Time `json:"savedAt"`
}

// Save writes the network to path. The file is written to a temporary
// sibling and renamed, so readers never see a partial model.
func (nw *Network) Save(path string) error {
	data, err := json.MarshalIndent(nw.snapshot(), "", "  ")
	if err != nil {
		return fmt.Errorf("encode model: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create model dir: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp model file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		// no-op after a successful rename
		_ = os.Remove(tmpName)
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write model: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync model: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close model: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace model: %w", err)
	}
	return nil
}

// Load reads a network written by Save. A missing file yields an error
// matching os.ErrNotExist; anything unreadable yields ErrCorruptModel.
func Load(path string) (*Network, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptModel, path, err)
	}
	if err := s.validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrCorruptModel, path, err)
	}

	return &Network{
		inputs:       s.Inputs,
		hidden:       s.Hidden,
		learningRate: s.LearningRate,
		w1:           mat.NewDense(s.Inputs, s.Hidden, s.W1),
		b1:           s.B1,
		w2:           mat.NewDense(s.Hidden, 1, s.W2),
		b2:           s.B2,
		mean:         s.Mean,
		std:          s.Std,
		trained:      s.Trained,
		trainedAt:    s.TrainedAt,
	}, nil
}

func (nw *Network) snapshot() snapshot {
	return snapshot{
		Version:      fileVersion,
		Inputs:       nw.inputs,
		Hidden:       nw.hidden,
		LearningRate: nw.learningRate,
		W1:           append([]float64(nil), nw.w1.RawMatrix().Data...),
		B1:           append([]float64(nil), nw.b1...),
		W2:           append([]float64(nil), nw.w2.RawMatrix().Data...),
		B2:           nw.b2,
		Mean:         append([]float64(nil), nw.mean...),
		Std:          append([]float64(nil), nw.std...),
		Trained:      nw.trained,
		TrainedAt:    nw.trainedAt,
		SavedAt:      time.Now().UTC(),
	}
}

func (s snapshot) validate() error {
	switch {
	case s.Version != fileVersion:
		return fmt.Errorf("unsupported version %d", s.Version)
	case s.Inputs <= 0 || s.Hidden <= 0:
		return fmt.Errorf("bad layer sizes %dx%d", s.Inputs, s.Hidden)
	case s.LearningRate <= 0:
		return fmt.Errorf("bad learning rate %v", s.LearningRate)
	case len(s.W1) != s.Inputs*s.Hidden:
		return fmt.Errorf("w1 has %d weights, want %d", len(s.W1), s.Inputs*s.Hidden)
	case len(s.B1) != s.Hidden:
		return fmt.Errorf("b1 has %d biases, want %d", len(s.B1), s.Hidden)
	case len(s.W2) != s.Hidden:
		return fmt.Errorf("w2 has %d weights, want %d", len(s.W2), s.Hidden)
	case len(s.Mean) != s.Inputs || len(s.Std) != s.Inputs:
		return fmt.Errorf("scaler has %d/%d entries, want %d", len(s.Mean), len(s.Std), s.Inputs)
	}
	if !allFinite(s.W1, s.B1, s.W2, s.Mean, s.Std, []float64{s.B2}) {
		return fmt.Errorf("non-finite parameter")
	}
	for _, v := range s.Std {
		if v == 0 {
			return fmt.Errorf("zero scale")
		}
	}
	return nil
}
