// Package suitability holds the feed-forward classifier that decides whether
// a player is suitable for selection.
//
// The network has one tanh hidden layer and a single sigmoid output. Inputs
// are standardised with the mean and standard deviation of the last training
// set, and those statistics travel with the weights when the model is saved.
package suitability

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/okian/selector/internal/domain/features"
	"github.com/okian/selector/internal/domain/model"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

const (
	defaultHiddenUnits  = 10
	defaultLearningRate = 0.1

	// Threshold is the probability at or above which a player is suitable.
	Threshold = 0.5

	probEpsilon = 1e-12

	// clipZ bounds standardised inputs so one far outlier cannot saturate
	// the hidden layer sums.
	clipZ = 1e3
)

// FitReport summarises a training run.
type FitReport struct {
	Samples  int
	Epochs   int
	Loss     float64
	Accuracy float64
}

// Network is a two-layer perceptron. A Network is safe for concurrent
// Predict calls; Fit mutates it and must not overlap with anything else.
type Network struct {
	inputs       int
	hidden       int
	learningRate float64
	seed         uint64

	w1 *mat.Dense // inputs x hidden
	b1 []float64
	w2 *mat.Dense // hidden x 1
	b2 float64

	mean []float64
	std  []float64

	trained   bool
	trainedAt time.Time
}

// New creates a network with freshly initialised weights.
func New(opts ...Option) (*Network, error) {
	nw := &Network{
		inputs:       features.Count,
		hidden:       defaultHiddenUnits,
		learningRate: defaultLearningRate,
	}
	for _, opt := range opts {
		opt(nw)
	}
	if nw.inputs <= 0 || nw.hidden <= 0 {
		return nil, fmt.Errorf("%w: inputs=%d hidden=%d", ErrInvalidOptions, nw.inputs, nw.hidden)
	}
	if nw.learningRate <= 0 || math.IsNaN(nw.learningRate) || math.IsInf(nw.learningRate, 0) {
		return nil, fmt.Errorf("%w: learning rate %v", ErrInvalidOptions, nw.learningRate)
	}
	nw.initWeights()
	return nw, nil
}

// initWeights uses Xavier uniform initialisation.
func (nw *Network) initWeights() {
	seed := nw.seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	uniform := func(fanIn, fanOut int) float64 {
		limit := math.Sqrt(6 / float64(fanIn+fanOut))
		return (rng.Float64()*2 - 1) * limit
	}

	w1 := make([]float64, nw.inputs*nw.hidden)
	for i := range w1 {
		w1[i] = uniform(nw.inputs, nw.hidden)
	}
	w2 := make([]float64, nw.hidden)
	for i := range w2 {
		w2[i] = uniform(nw.hidden, 1)
	}

	nw.w1 = mat.NewDense(nw.inputs, nw.hidden, w1)
	nw.b1 = make([]float64, nw.hidden)
	nw.w2 = mat.NewDense(nw.hidden, 1, w2)
	nw.b2 = 0
	nw.mean = make([]float64, nw.inputs)
	nw.std = make([]float64, nw.inputs)
	for i := range nw.std {
		nw.std[i] = 1
	}
}

// Inputs returns the expected feature vector length.
func (nw *Network) Inputs() int { return nw.inputs }

// Hidden returns the hidden layer width.
func (nw *Network) Hidden() int { return nw.hidden }

// Trained reports whether Fit has run on a non-empty dataset.
func (nw *Network) Trained() bool { return nw.trained }

// TrainedAt is the completion time of the last non-empty Fit.
func (nw *Network) TrainedAt() time.Time { return nw.trainedAt }

// Finite reports whether every weight, bias and scaler entry is a finite
// number. A network that fails this must not serve or be saved.
func (nw *Network) Finite() bool {
	return allFinite(nw.w1.RawMatrix().Data, nw.b1, nw.w2.RawMatrix().Data, []float64{nw.b2}, nw.mean, nw.std)
}

// Clone returns a deep copy. Training a clone leaves the original untouched.
func (nw *Network) Clone() *Network {
	c := *nw
	c.w1 = mat.DenseCopyOf(nw.w1)
	c.w2 = mat.DenseCopyOf(nw.w2)
	c.b1 = append([]float64(nil), nw.b1...)
	c.mean = append([]float64(nil), nw.mean...)
	c.std = append([]float64(nil), nw.std...)
	return &c
}

// Fit runs full-batch gradient descent on samples for the given number of
// epochs, starting from the current weights. An empty sample set leaves the
// network unchanged. Labels are clamped to [0, 1]. On error the network may
// be partly updated, so callers fit a Clone.
func (nw *Network) Fit(ctx context.Context, samples []model.Sample, epochs int) (FitReport, error) {
	report := FitReport{Samples: len(samples)}
	if len(samples) == 0 {
		return report, nil
	}
	for i, s := range samples {
		if len(s.Inputs) != nw.inputs {
			return report, fmt.Errorf("%w: sample %d has %d features, want %d", ErrFeatureLength, i, len(s.Inputs), nw.inputs)
		}
	}

	n := len(samples)
	raw := mat.NewDense(n, nw.inputs, nil)
	y := mat.NewDense(n, 1, nil)
	for i, s := range samples {
		raw.SetRow(i, s.Inputs)
		y.Set(i, 0, clamp01(s.Label))
	}

	mean, std, err := columnStats(raw)
	if err != nil {
		return report, err
	}
	x := standardise(raw, mean, std)

	for epoch := 0; epoch < epochs; epoch++ {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		a1, p := nw.forward(x)
		nw.step(x, y, a1, p)
		report.Epochs++
	}

	nw.mean = mean
	nw.std = std
	if !nw.Finite() {
		return report, fmt.Errorf("%w: training diverged after %d epochs", ErrNonFinite, report.Epochs)
	}
	nw.trained = true
	nw.trainedAt = time.Now()

	_, p := nw.forward(x)
	report.Loss = crossEntropy(p, y)
	report.Accuracy = accuracy(p, y)
	return report, nil
}

// Predict returns the suitability verdict and probability for one vector.
func (nw *Network) Predict(in []float64) (bool, float64, error) {
	if len(in) != nw.inputs {
		return false, 0, fmt.Errorf("%w: got %d, want %d", ErrFeatureLength, len(in), nw.inputs)
	}
	if !allFinite(in) {
		return false, 0, fmt.Errorf("%w: input", ErrNonFinite)
	}
	row := mat.NewDense(1, nw.inputs, append([]float64(nil), in...))
	_, p := nw.forward(standardise(row, nw.mean, nw.std))
	prob := p.At(0, 0)
	if math.IsNaN(prob) {
		return false, 0, fmt.Errorf("%w: probability", ErrNonFinite)
	}
	return prob >= Threshold, prob, nil
}

func (nw *Network) forward(x mat.Matrix) (*mat.Dense, *mat.Dense) {
	var a1 mat.Dense
	a1.Mul(x, nw.w1)
	a1.Apply(func(_, j int, v float64) float64 {
		return math.Tanh(v + nw.b1[j])
	}, &a1)

	var p mat.Dense
	p.Mul(&a1, nw.w2)
	p.Apply(func(_, _ int, v float64) float64 {
		return sigmoid(v + nw.b2)
	}, &p)
	return &a1, &p
}

// step applies one gradient descent update for binary cross-entropy loss.
func (nw *Network) step(x, y, a1, p *mat.Dense) {
	n, _ := x.Dims()

	var dz2 mat.Dense
	dz2.Sub(p, y)
	dz2.Scale(1/float64(n), &dz2)

	var dw2 mat.Dense
	dw2.Mul(a1.T(), &dz2)
	db2 := mat.Sum(&dz2)

	var dz1 mat.Dense
	dz1.Mul(&dz2, nw.w2.T())
	dz1.Apply(func(i, j int, v float64) float64 {
		a := a1.At(i, j)
		return v * (1 - a*a)
	}, &dz1)

	var dw1 mat.Dense
	dw1.Mul(x.T(), &dz1)
	db1 := make([]float64, nw.hidden)
	col := make([]float64, n)
	for j := range db1 {
		db1[j] = floats.Sum(mat.Col(col, j, &dz1))
	}

	dw1.Scale(nw.learningRate, &dw1)
	nw.w1.Sub(nw.w1, &dw1)
	dw2.Scale(nw.learningRate, &dw2)
	nw.w2.Sub(nw.w2, &dw2)
	floats.AddScaled(nw.b1, -nw.learningRate, db1)
	nw.b2 -= nw.learningRate * db2
}

// columnStats returns per-column mean and standard deviation. Constant
// columns get a deviation of 1 so they standardise to zero. Each column is
// scaled by its largest magnitude first so sums of huge values cannot
// overflow.
func columnStats(m *mat.Dense) ([]float64, []float64, error) {
	rows, cols := m.Dims()
	mean := make([]float64, cols)
	std := make([]float64, cols)
	col := make([]float64, rows)
	for j := 0; j < cols; j++ {
		mat.Col(col, j, m)
		if !allFinite(col) {
			return nil, nil, fmt.Errorf("%w: column %d", ErrNonFinite, j)
		}
		scale := floats.Norm(col, math.Inf(1))
		if scale == 0 {
			scale = 1
		}
		for i := range col {
			col[i] /= scale
		}
		mu, sd := stat.MeanStdDev(col, nil)
		mu *= scale
		sd *= scale
		switch {
		case rows < 2 || sd == 0 || math.IsNaN(sd):
			sd = 1
		case math.IsInf(sd, 1):
			sd = math.MaxFloat64
		}
		mean[j], std[j] = mu, sd
	}
	if !allFinite(mean, std) {
		return nil, nil, fmt.Errorf("%w: scaler", ErrNonFinite)
	}
	return mean, std, nil
}

func standardise(m *mat.Dense, mean, std []float64) *mat.Dense {
	var out mat.Dense
	out.Apply(func(_, j int, v float64) float64 {
		return math.Max(-clipZ, math.Min(clipZ, (v-mean[j])/std[j]))
	}, m)
	return &out
}

func allFinite(groups ...[]float64) bool {
	for _, g := range groups {
		for _, v := range g {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return false
			}
		}
	}
	return true
}

func crossEntropy(p, y *mat.Dense) float64 {
	n, _ := p.Dims()
	var sum float64
	for i := 0; i < n; i++ {
		pi := math.Min(math.Max(p.At(i, 0), probEpsilon), 1-probEpsilon)
		yi := y.At(i, 0)
		sum -= yi*math.Log(pi) + (1-yi)*math.Log(1-pi)
	}
	return sum / float64(n)
}

func accuracy(p, y *mat.Dense) float64 {
	n, _ := p.Dims()
	var hits int
	for i := 0; i < n; i++ {
		if (p.At(i, 0) >= Threshold) == (y.At(i, 0) >= Threshold) {
			hits++
		}
	}
	return float64(hits) / float64(n)
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

func clamp01(v float64) float64 {
	switch {
	case math.IsNaN(v) || v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
