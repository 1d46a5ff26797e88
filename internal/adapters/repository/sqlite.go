package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3" // database/sql driver

	"github.com/okian/selector/internal/domain/model"
	"github.com/okian/selector/pkg/metrics"
)

const (
	table   = "player_performance"
	columns = "id, average, strike_rate, bowling_average, economy_rate, fielding_stats, label"
)

// SQLiteStore is a Store backed by a single SQLite file. All statements go
// through one connection, so writes are serialised by the driver.
type SQLiteStore struct {
	db *sqlx.DB

	metricsUpdateInterval time.Duration
	busyTimeout           time.Duration

	stopChan  chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Open opens (creating if needed) the database at path, migrates the schema
// and starts the background metrics updater.
func Open(ctx context.Context, path string, opts ...Option) (*SQLiteStore, error) {
	s := &SQLiteStore{
		metricsUpdateInterval: 5 * time.Second,
		busyTimeout:           5 * time.Second,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create database dir: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_busy_timeout=%d", path, s.busyTimeout.Milliseconds())
	db, err := sqlx.ConnectContext(ctx, "sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s.db = db
	s.startMetricsUpdater(ctx)
	return s, nil
}

// Close stops the metrics updater and closes the database.
func (s *SQLiteStore) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// Create implements Store.Create.
func (s *SQLiteStore) Create(ctx context.Context, p model.Performance) (model.Performance, error) {
	defer observe("create", time.Now())

	if err := validate(p); err != nil {
		return model.Performance{}, err
	}

	query, args, err := squirrel.Insert(table).SetMap(fieldMap(p)).ToSql()
	if err != nil {
		return model.Performance{}, err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return model.Performance{}, fmt.Errorf("insert performance: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return model.Performance{}, fmt.Errorf("insert performance: %w", err)
	}

	p.ID = id
	return p, nil
}

// Get implements Store.Get.
func (s *SQLiteStore) Get(ctx context.Context, id int64) (model.Performance, error) {
	defer observe("get", time.Now())

	query, args, err := squirrel.Select(columns).From(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return model.Performance{}, err
	}

	var ret model.Performance
	if err := s.db.GetContext(ctx, &ret, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.Performance{}, fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return model.Performance{}, fmt.Errorf("get performance: %w", err)
	}
	return ret, nil
}

// List implements Store.List.
func (s *SQLiteStore) List(ctx context.Context) ([]model.Performance, error) {
	defer observe("list", time.Now())

	query, args, err := squirrel.Select(columns).From(table).OrderBy("id ASC").ToSql()
	if err != nil {
		return nil, err
	}

	ret := []model.Performance{}
	if err := s.db.SelectContext(ctx, &ret, query, args...); err != nil {
		return nil, fmt.Errorf("list performances: %w", err)
	}
	return ret, nil
}

// Update implements Store.Update.
func (s *SQLiteStore) Update(ctx context.Context, id int64, p model.Performance) (model.Performance, error) {
	defer observe("update", time.Now())

	if err := validate(p); err != nil {
		return model.Performance{}, err
	}

	query, args, err := squirrel.Update(table).SetMap(fieldMap(p)).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return model.Performance{}, err
	}

	if err := s.execOne(ctx, query, args, id); err != nil {
		return model.Performance{}, err
	}

	p.ID = id
	return p, nil
}

// Delete implements Store.Delete.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	defer observe("delete", time.Now())

	query, args, err := squirrel.Delete(table).Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	return s.execOne(ctx, query, args, id)
}

// Count implements Store.Count.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	defer observe("count", time.Now())

	query, args, err := squirrel.Select("COUNT(*)").From(table).ToSql()
	if err != nil {
		return 0, err
	}

	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return 0, fmt.Errorf("count performances: %w", err)
	}
	return n, nil
}

// execOne runs a statement that must touch exactly the row with the given id.
func (s *SQLiteStore) execOne(ctx context.Context, query string, args []any, id int64) error {
	return s.transaction(ctx, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			return fmt.Errorf("%w: id %d", ErrNotFound, id)
		}
		return nil
	})
}

type transactionCallback func(*sqlx.Tx) error

func (s *SQLiteStore) transaction(ctx context.Context, cb transactionCallback) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}

	if err := cb(tx); err != nil {
		if err2 := tx.Rollback(); err2 != nil {
			return fmt.Errorf("rollback error: %s\noriginal error: %w", err2, err)
		}
		return err
	}

	return tx.Commit()
}

// startMetricsUpdater periodically publishes the table size.
func (s *SQLiteStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		s.updateMetrics(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics(ctx)
			}
		}
	}()
}

func (s *SQLiteStore) updateMetrics(ctx context.Context) {
	n, err := s.Count(ctx)
	if err != nil {
		metrics.RecordErrorByComponent("repository", "count")
		return
	}
	metrics.UpdateRecordsTotal(n)
}

func fieldMap(p model.Performance) map[string]any {
	return squirrel.Eq{
		"average":         p.Average,
		"strike_rate":     p.StrikeRate,
		"bowling_average": p.BowlingAverage,
		"economy_rate":    p.EconomyRate,
		"fielding_stats":  p.FieldingStats,
		"label":           p.Label,
	}
}

// validate rejects values SQLite cannot round-trip as REAL.
func validate(p model.Performance) error {
	for name, v := range fieldMap(p) {
		f, _ := v.(float64)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("%w: %s", ErrInvalidValue, name)
		}
	}
	return nil
}

func observe(op string, start time.Time) {
	metrics.RecordRepositoryQueryLatency(op, float64(time.Since(start).Microseconds())/1000)
}
