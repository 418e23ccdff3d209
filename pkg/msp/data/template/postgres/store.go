package postgres

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/template"
)

type store struct {
	db *sqlx.DB
}

// New returns a new postgres backed template.Store
func New(db *sql.DB) template.Store {
	return &store{
		db: sqlx.NewDb(db, "pgx"),
	}
}

// Save implements template.Store.Save
func (s *store) Save(ctx context.Context, record *template.Record) error {
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

// GetByAddress implements template.Store.GetByAddress
func (s *store) GetByAddress(ctx context.Context, address string) (*template.Record, error) {
	model, err := dbGetByAddress(ctx, s.db, address)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// GetByTreasury implements template.Store.GetByTreasury
func (s *store) GetByTreasury(ctx context.Context, treasury string) (*template.Record, error) {
	model, err := dbGetByTreasury(ctx, s.db, treasury)
	if err != nil {
		return nil, err
	}
	return fromModel(model), nil
}

// Delete implements template.Store.Delete
func (s *store) Delete(ctx context.Context, address string) error {
	return dbDelete(ctx, s.db, address)
}
