// Package model contains domain models passed between layers.
package model

// Performance is a stored performance record. Column names follow the
// player_performance table.
type Performance struct {
	ID             int64   `db:"id"`
	Average        float64 `db:"average"`
	StrikeRate     float64 `db:"strike_rate"`
	BowlingAverage float64 `db:"bowling_average"`
	EconomyRate    float64 `db:"economy_rate"`
	FieldingStats  float64 `db:"fielding_stats"`
	Label          float64 `db:"label"`
}

// Sample is one training example derived from a Performance.
type Sample struct {
	Inputs []float64
	Label  float64
}
