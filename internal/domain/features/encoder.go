// Package features turns performance records into numeric training samples.
package features

import (
	"github.com/okian/selector/internal/domain/model"
)

// Count is the length of every feature vector.
const Count = 5

// Names lists the vector positions in order.
var Names = [Count]string{
	"average",
	"strikeRate",
	"bowlingAverage",
	"economyRate",
	"fieldingStats",
}

// Option applies a configuration option to the VectorEncoder.
type Option func(*VectorEncoder)

// WithLabelThreshold turns labels into 0/1 targets: values >= t become 1.
// Without it labels are passed through unchanged.
func WithLabelThreshold(t float64) Option {
	return func(e *VectorEncoder) {
		e.threshold = &t
	}
}

// VectorEncoder maps records to feature vectors and labels.
type VectorEncoder struct {
	threshold *float64
}

// NewEncoder creates an encoder with the given options.
func NewEncoder(opts ...Option) *VectorEncoder {
	e := &VectorEncoder{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Vector returns the input features of p in Names order.
func Vector(p model.Performance) []float64 {
	return []float64{
		p.Average,
		p.StrikeRate,
		p.BowlingAverage,
		p.EconomyRate,
		p.FieldingStats,
	}
}

// Encode converts one record into a sample.
func (e *VectorEncoder) Encode(p model.Performance) model.Sample {
	label := p.Label
	if e.threshold != nil {
		if label >= *e.threshold {
			label = 1
		} else {
			label = 0
		}
	}
	return model.Sample{Inputs: Vector(p), Label: label}
}

// Dataset converts every record, preserving order.
func (e *VectorEncoder) Dataset(records []model.Performance) []model.Sample {
	out := make([]model.Sample, len(records))
	for i, r := range records {
		out[i] = e.Encode(r)
	}
	return out
}
