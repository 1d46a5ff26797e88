// Package repository persists performance records.
package repository

import (
	"context"

	"github.com/okian/selector/internal/domain/model"
)

// Store provides read/write access to performance records.
type Store interface {
	// Create inserts p, ignoring p.ID, and returns the stored record with
	// its assigned id.
	Create(ctx context.Context, p model.Performance) (model.Performance, error)

	// Get returns the record with the given id.
	// Returns ErrNotFound if there is none.
	Get(ctx context.Context, id int64) (model.Performance, error)

	// List returns every record ordered by id.
	List(ctx context.Context) ([]model.Performance, error)

	// Update overwrites the fields of an existing record.
	// Returns ErrNotFound if there is none.
	Update(ctx context.Context, id int64, p model.Performance) (model.Performance, error)

	// Delete removes the record with the given id.
	// Returns ErrNotFound if there is none.
	Delete(ctx context.Context, id int64) error

	// Count returns the number of stored records.
	Count(ctx context.Context) (int, error)

	// Close releases the underlying resources.
	Close() error
}
