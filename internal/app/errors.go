package service

import "errors"

// Sentinel kinds for service errors.
var (
	ErrNotStarted          = errors.New("service not started")
	ErrRetrainBackpressure = errors.New("retrain queue full")
	ErrStopping            = errors.New("service stopping")
)
