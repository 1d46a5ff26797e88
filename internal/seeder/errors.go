package seeder

import "errors"

// Sentinel kinds for seeding errors.
var (
	ErrInvalidConfig = errors.New("invalid seeder config")
	ErrUnhealthy     = errors.New("service unhealthy")
	ErrUnexpected    = errors.New("unexpected response")
	ErrVerify        = errors.New("verification failed")
)
