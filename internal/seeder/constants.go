package seeder

// Worker configuration constants.
const (
	workerChannelMultiplier = 2
)

// Reporting constants.
const (
	percentageMultiplier = 100
	directoryPermission  = 0o750
	filePermission       = 0o600
)
