package queue

import "errors"

// Sentinel kinds for queue errors.
var (
	ErrClosed = errors.New("retrain queue closed")
	ErrFull   = errors.New("retrain queue full")
)
