package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres backed treasury.Store
func New(db *sql.DB) treasury.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Save implements treasury.Store.Save
func (s *store) Save(ctx context.Context, record *treasury.Record) error {
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

// GetByAddress implements treasury.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*treasury.Record, error) {
	model, err := dbGetByAddress(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetAllByTreasurer implements treasury.Store.GetAllByTreasurer
func (s *store) GetAllByTreasurer(ctx context.Context, treasurer string) ([]*treasury.Record, error) {
	models, err := dbGetAllByTreasurer(ctx, s.db, treasurer)
	if err != nil {
		return nil, err
	}

	res := make([]*treasury.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

// GetAllAutoCloseable implements treasury.Store.GetAllAutoCloseable
func (s *store) GetAllAutoCloseable(ctx context.Context, limit uint64) ([]*treasury.Record, error) {
	models, err := dbGetAllAutoCloseable(ctx, s.db, limit)
	if err != nil {
		return nil, err
	}

	res := make([]*treasury.Record, len(models))
	for i, model := range models {
		res[i] = fromModel(model)
	}
	return res, nil
}

// Delete implements treasury.Store.Delete
func (s *store) Delete(ctx context.Context, address string) error {
	return dbDelete(ctx, s.db, address)
}
