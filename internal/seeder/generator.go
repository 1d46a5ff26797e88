package seeder

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/okian/selector/pkg/logger"
)

// span is a closed range a feature is drawn from.
type span struct{ min, max float64 }

func (s span) draw(r *rand.Rand) float64 { return s.min + r.Float64()*(s.max-s.min) }
func (s span) mid() float64              { return (s.min + s.max) / 2 }

// profile describes one kind of player by the range of each feature.
type profile struct {
	name           string
	label          float64
	average        span
	strikeRate     span
	bowlingAverage span
	economyRate    span
	fieldingStats  span
}

// The two profiles do not overlap on any feature, so a trained model
// separates them.
var (
	suitableProfile = profile{
		name:           "suitable",
		label:          1,
		average:        span{35, 60},
		strikeRate:     span{120, 160},
		bowlingAverage: span{18, 30},
		economyRate:    span{4, 6.5},
		fieldingStats:  span{5, 10},
	}
	unsuitableProfile = profile{
		name:           "unsuitable",
		label:          0,
		average:        span{5, 25},
		strikeRate:     span{60, 100},
		bowlingAverage: span{35, 60},
		economyRate:    span{7, 10},
		fieldingStats:  span{0, 4},
	}
)

func (p profile) draw(r *rand.Rand) Record {
	return Record{
		Average:        p.average.draw(r),
		StrikeRate:     p.strikeRate.draw(r),
		BowlingAverage: p.bowlingAverage.draw(r),
		EconomyRate:    p.economyRate.draw(r),
		FieldingStats:  p.fieldingStats.draw(r),
		Label:          p.label,
	}
}

// typical is the centre of every range.
func (p profile) typical() Record {
	return Record{
		Average:        p.average.mid(),
		StrikeRate:     p.strikeRate.mid(),
		BowlingAverage: p.bowlingAverage.mid(),
		EconomyRate:    p.economyRate.mid(),
		FieldingStats:  p.fieldingStats.mid(),
		Label:          p.label,
	}
}

// generateRecords draws config.Records records, alternating profiles at
// random. The same seed yields the same records.
func generateRecords(ctx context.Context, config *Config, stats *Stats) []Record {
	seed := config.Seed
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	records := make([]Record, config.Records)
	for i := range records {
		p := unsuitableProfile
		if r.IntN(2) == 1 {
			p = suitableProfile
		}
		records[i] = p.draw(r)
	}

	stats.Generated = len(records)
	logger.Get().Info(ctx, "generated records",
		logger.Int("count", len(records)),
		logger.Uint64("seed", seed),
	)
	return records
}

func (c *Config) validate() error {
	switch {
	case c.BaseURL == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Records < 1:
		return fmt.Errorf("%w: records must be positive", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be positive", ErrInvalidConfig)
	case c.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidConfig)
	}
	return nil
}
