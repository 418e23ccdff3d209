package treasury

import (
	"context"
)

type Store interface {
	// Save creates or updates a treasury record
	Save(ctx context.Context, record *Record) error

	// GetByAddress gets a treasury record by its account address
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetAllByTreasurer gets all treasury records owned by a treasurer
	GetAllByTreasurer(ctx context.Context, treasurer string) ([]*Record, error)

	// GetAllAutoCloseable gets treasury records flagged for auto close that
	// no longer have any streams attached.
	GetAllAutoCloseable(ctx context.Context, limit uint64) ([]*Record, error)

	// Delete destroys a treasury record. It's called as part of closing a
	// treasury, after accounting has settled.
	Delete(ctx context.Context, address string) error
}
