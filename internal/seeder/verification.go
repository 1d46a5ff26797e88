package seeder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/selector/internal/domain/types"
	"github.com/okian/selector/pkg/logger"
)

// verifyListing checks that every created id comes back from the listing
// and that the listing is in ascending id order.
func verifyListing(ctx context.Context, client *HTTPClient, ids []int64, stats *Stats) error {
	resp, err := client.Get(ctx, "/api/performances")
	if err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	var listed []types.Performance
	if err := decode(resp, http.StatusOK, &listed); err != nil {
		return fmt.Errorf("list records: %w", err)
	}
	stats.Listed = len(listed)

	seen := make(map[int64]struct{}, len(listed))
	for i, p := range listed {
		if i > 0 && p.ID <= listed[i-1].ID {
			return fmt.Errorf("%w: listing not in id order at %d", ErrVerify, i)
		}
		seen[p.ID] = struct{}{}
	}

	missing := 0
	for _, id := range ids {
		if _, ok := seen[id]; !ok {
			missing++
		}
	}
	stats.Missing = missing
	if missing > 0 {
		return fmt.Errorf("%w: %d created records missing from listing", ErrVerify, missing)
	}

	logger.Get().Info(ctx, "listing verified",
		logger.Int("listed", stats.Listed),
		logger.Int("created", len(ids)),
	)
	return nil
}

// retrainModel asks for a manual retrain so the probes see every record.
func retrainModel(ctx context.Context, client *HTTPClient) (types.ModelSync, error) {
	resp, err := client.Post(ctx, "/api/model/retrain", struct{}{})
	if err != nil {
		return types.ModelSync{}, fmt.Errorf("retrain: %w", err)
	}
	var ms types.ModelSync
	if err := decode(resp, http.StatusOK, &ms); err != nil {
		return types.ModelSync{}, fmt.Errorf("retrain: %w", err)
	}
	return ms, nil
}

// probeModel asks for a prediction on the centre of each profile.
func probeModel(ctx context.Context, client *HTTPClient, stats *Stats) error {
	for _, p := range []profile{suitableProfile, unsuitableProfile} {
		resp, err := client.Post(ctx, "/api/predict", map[string][]float64{
			"features": p.typical().Features(),
		})
		if err != nil {
			return fmt.Errorf("predict %s: %w", p.name, err)
		}
		var pred types.Prediction
		if err := decode(resp, http.StatusOK, &pred); err != nil {
			return fmt.Errorf("predict %s: %w", p.name, err)
		}

		probe := Probe{Name: p.name, Expected: p.label == 1, Prediction: pred}
		stats.Probes = append(stats.Probes, probe)
		if probe.Expected == pred.Suitable {
			stats.ProbesAgreeing++
		}
		logger.Get().Info(ctx, "probe",
			logger.String("profile", p.name),
			logger.Bool("suitable", pred.Suitable),
			logger.Float64("probability", pred.Probability),
			logger.Uint64("generation", pred.Generation),
		)
	}
	return nil
}
