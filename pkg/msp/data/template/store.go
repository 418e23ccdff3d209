package template

import (
	"context"
)

type Store interface {
	// Save creates or updates a template record
	Save(ctx context.Context, record *Record) error

	// GetByAddress gets a template record by its account address
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetByTreasury gets the template record attached to a treasury
	GetByTreasury(ctx context.Context, treasury string) (*Record, error)

	// Delete destroys a template record
	Delete(ctx context.Context, address string) error
}
