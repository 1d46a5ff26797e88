package suitability

import "errors"

var (
	// ErrFeatureLength is returned when an input vector has the wrong length.
	ErrFeatureLength = errors.New("feature vector length mismatch")
	// ErrCorruptModel is returned when a model file cannot be decoded.
	ErrCorruptModel = errors.New("corrupt model file")
	// ErrInvalidOptions is returned for non-positive layer sizes or learning rates.
	ErrInvalidOptions = errors.New("invalid network options")
	// ErrNonFinite is returned when inputs, scaler statistics or trained
	// weights are not finite numbers.
	ErrNonFinite = errors.New("non-finite value")
)
