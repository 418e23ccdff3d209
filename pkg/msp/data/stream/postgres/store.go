package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres backed stream.Store
func New(db *sql.DB) stream.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Save implements stream.Store.Save
func (s *store) Save(ctx context.Context, record *stream.Record) error {
	model, err := toModel(record)
	if err != nil {
		return err
	}

	if err := model.dbSave(ctx, s.db); err != nil {
		return err
	}

	fromModel(model).CopyTo(record)

	return nil
}

// GetByAddress implements stream.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*stream.Record, error) {
	model, err := dbGetByAddress(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetAllByTreasury implements stream.Store.GetAllByTreasury
func (s *store) GetAllByTreasury(ctx context.Context, treasury string) ([]*stream.Record, error) {
	models, err := dbGetAllByTreasury(ctx, s.db, treasury)
	if err != nil {
		return nil, err
	}

	res := make([]*stream.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

// GetAllByBeneficiary implements stream.Store.GetAllByBeneficiary
func (s *store) GetAllByBeneficiary(ctx context.Context, beneficiary string) ([]*stream.Record, error) {
	models, err := dbGetAllByBeneficiary(ctx, s.db, beneficiary)
	if err != nil {
		return nil, err
	}

	res := make([]*stream.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

// CountByTreasury implements stream.Store.CountByTreasury
func (s *store) CountByTreasury(ctx context.Context, treasury string) (uint64, error) {
	return dbCountByTreasury(ctx, s.db, treasury)
}

// Delete implements stream.Store.Delete
func (s *store) Delete(ctx context.Context, address string) error {
	return dbDelete(ctx, s.db, address)
}
