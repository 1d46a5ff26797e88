package worker

import "errors"

// Sentinel kinds for trainer errors.
var (
	ErrStopped     = errors.New("trainer stopped")
	ErrModelSave   = errors.New("model save failed")
	ErrNoNetwork   = errors.New("trainer has no initial network")
	ErrRetrainList = errors.New("loading records for retrain failed")
	ErrDiverged    = errors.New("retrained model has non-finite parameters")
)
