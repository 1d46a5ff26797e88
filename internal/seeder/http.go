package seeder

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/goccy/go-json"

	"github.com/okian/selector/internal/domain/types"
	"github.com/okian/selector/pkg/logger"
)

// HTTPClient wraps http.Client with JSON helpers.
type HTTPClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(config *Config) *HTTPClient {
	return &HTTPClient{
		client:  &http.Client{Timeout: config.Timeout},
		baseURL: config.BaseURL,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return c.client.Do(req)
}

// Post performs a POST request with a JSON body.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.client.Do(req)
}

// decode reads a JSON body and closes it. Any status other than want is an
// error carrying the body.
func decode(resp *http.Response, want int, v any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%w: status %d: %s", ErrUnexpected, resp.StatusCode, bytes.TrimSpace(body))
	}
	if v == nil {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("%w: decode: %w", ErrUnexpected, err)
	}
	return nil
}

// submitRecords posts every record through a pool of workers and returns
// the ids the server assigned.
func submitRecords(ctx context.Context, config *Config, records []Record, stats *Stats) []int64 {
	log := logger.Get().Named("seeder")
	log.Info(ctx, "submitting records",
		logger.Int("records", len(records)),
		logger.Int("workers", config.Workers),
	)

	client := newHTTPClient(config)

	var (
		submitted, created, failed      atomic.Int64
		synced, syncFailed, syncPending atomic.Int64
		mu                              sync.Mutex
	)
	ids := make([]int64, 0, len(records))

	jobs := make(chan Record, config.Workers*workerChannelMultiplier)
	var wg sync.WaitGroup
	for range config.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for rec := range jobs {
				submitted.Add(1)
				got, status, err := submitRecord(ctx, client, rec)
				if err != nil {
					failed.Add(1)
					log.Warn(ctx, "record rejected", logger.Error(err))
					continue
				}
				created.Add(1)
				switch status {
				case types.SyncSynced:
					synced.Add(1)
				case types.SyncFailed:
					syncFailed.Add(1)
				case types.SyncPending:
					syncPending.Add(1)
				}

				mu.Lock()
				ids = append(ids, got.ID)
				mu.Unlock()

				if config.Verbose {
					log.Info(ctx, "record created",
						logger.Int64("id", got.ID),
						logger.String("modelSync", string(status)),
					)
				}
			}
		}()
	}

	go func() {
		defer close(jobs)
		for _, rec := range records {
			select {
			case <-ctx.Done():
				return
			case jobs <- rec:
			}
		}
	}()

	wg.Wait()

	stats.Submitted = int(submitted.Load())
	stats.Created = int(created.Load())
	stats.Failed = int(failed.Load())
	stats.SyncSynced = int(synced.Load())
	stats.SyncFailed = int(syncFailed.Load())
	stats.SyncPending = int(syncPending.Load())

	log.Info(ctx, "record submission completed",
		logger.Int("created", stats.Created),
		logger.Int("failed", stats.Failed),
		logger.Int("synced", stats.SyncSynced),
		logger.Int("syncFailed", stats.SyncFailed),
		logger.Int("syncPending", stats.SyncPending),
	)
	return ids
}

func submitRecord(ctx context.Context, client *HTTPClient, rec Record) (types.Performance, types.SyncStatus, error) {
	resp, err := client.Post(ctx, "/api/performances", rec)
	if err != nil {
		return types.Performance{}, "", err
	}
	status := types.SyncStatus(resp.Header.Get("X-Model-Sync"))

	var got types.Performance
	if err := decode(resp, http.StatusCreated, &got); err != nil {
		return types.Performance{}, "", err
	}
	return got, status, nil
}
