package stream

import (
	"context"
)

type Store interface {
	// Save creates or updates a stream record
	Save(ctx context.Context, record *Record) error

	// GetByAddress gets a stream record by its account address
	GetByAddress(ctx context.Context, address string) (*Record, error)

	// GetAllByTreasury gets all stream records belonging to a treasury
	GetAllByTreasury(ctx context.Context, treasury string) ([]*Record, error)

	// GetAllByBeneficiary gets all stream records paying out to a beneficiary
	GetAllByBeneficiary(ctx context.Context, beneficiary string) ([]*Record, error)

	// CountByTreasury counts the stream records belonging to a treasury
	CountByTreasury(ctx context.Context, treasury string) (uint64, error)

	// Delete destroys a stream record. It's called as part of closing a
	// stream, after accounting has settled.
	Delete(ctx context.Context, address string) error
}
