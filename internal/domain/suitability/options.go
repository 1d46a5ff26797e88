package suitability

// Option configures a Network.
type Option func(*Network)

// WithInputs sets the input layer width.
func WithInputs(n int) Option {
	return func(nw *Network) {
		nw.inputs = n
	}
}

// WithHiddenUnits sets the hidden layer width.
func WithHiddenUnits(n int) Option {
	return func(nw *Network) {
		nw.hidden = n
	}
}

// WithLearningRate sets the gradient descent step size.
func WithLearningRate(lr float64) Option {
	return func(nw *Network) {
		nw.learningRate = lr
	}
}

// WithSeed fixes the weight initialisation. Zero picks a time based seed.
func WithSeed(seed uint64) Option {
	return func(nw *Network) {
		nw.seed = seed
	}
}
