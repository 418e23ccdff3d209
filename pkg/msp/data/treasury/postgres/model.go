package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mean-dao/payment-streaming-server/pkg/database/postgres"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
)

const (
	tableName = "msp__core_treasury"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Version uint `db:"version"`

	Address string `db:"address"`
	Name    string `db:"name"`

	TreasurerAddress string `db:"treasurer_address"`
	MintAddress      string `db:"mint_address"`

	BalanceUnits            uint64 `db:"balance_units"`
	AllocationAssignedUnits uint64 `db:"allocation_assigned_units"`
	TotalWithdrawalsUnits   uint64 `db:"total_withdrawals_units"`
	TotalStreams            uint64 `db:"total_streams"`

	TreasuryType uint `db:"treasury_type"`
	AutoClose    bool `db:"auto_close"`

	SolFeePaidByTreasury bool `db:"sol_fee_paid_by_treasury"`

	Category uint `db:"category"`

	CreatedAt     time.Time `db:"created_at"`
	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func toModel(obj *treasury.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Version: uint(obj.Version),

		Address: obj.Address,
		Name:    obj.Name,

		TreasurerAddress: obj.TreasurerAddress,
		MintAddress:      obj.MintAddress,

		BalanceUnits:            obj.BalanceUnits,
		AllocationAssignedUnits: obj.AllocationAssignedUnits,
		TotalWithdrawalsUnits:   obj.TotalWithdrawalsUnits,
		TotalStreams:            obj.TotalStreams,

		TreasuryType: uint(obj.Type),
		AutoClose:    obj.AutoClose,

		SolFeePaidByTreasury: obj.SolFeePaidByTreasury,

		Category: uint(obj.Category),

		CreatedAt:     obj.CreatedAt,
		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) *treasury.Record {
	return &treasury.Record{
		Id: uint64(obj.Id.Int64),

		Version: uint8(obj.Version),

		Address: obj.Address,
		Name:    obj.Name,

		TreasurerAddress: obj.TreasurerAddress,
		MintAddress:      obj.MintAddress,

		BalanceUnits:            obj.BalanceUnits,
		AllocationAssignedUnits: obj.AllocationAssignedUnits,
		TotalWithdrawalsUnits:   obj.TotalWithdrawalsUnits,
		TotalStreams:            obj.TotalStreams,

		Type:      treasury.Type(obj.TreasuryType),
		AutoClose: obj.AutoClose,

		SolFeePaidByTreasury: obj.SolFeePaidByTreasury,

		Category: uint8(obj.Category),

		CreatedAt:     obj.CreatedAt,
		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

const allColumns = `id, version, address, name, treasurer_address, mint_address,
		balance_units, allocation_assigned_units, total_withdrawals_units, total_streams,
		treasury_type, auto_close, sol_fee_paid_by_treasury, category, created_at, last_updated_at`

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pg.ExecuteInTx(ctx, db, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(version, address, name, treasurer_address, mint_address,
			balance_units, allocation_assigned_units, total_withdrawals_units, total_streams,
			treasury_type, auto_close, sol_fee_paid_by_treasury, category, created_at, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)

			ON CONFLICT (address)
			DO UPDATE
				SET version = $1, name = $3,
					balance_units = $6, allocation_assigned_units = $7, total_withdrawals_units = $8, total_streams = $9,
					auto_close = $11, sol_fee_paid_by_treasury = $12, category = $13, last_updated_at = $15
				WHERE ` + tableName + `.address = $2

			RETURNING ` + allColumns

		if m.CreatedAt.IsZero() {
			m.CreatedAt = time.Now()
		}
		m.LastUpdatedAt = time.Now()

		err := tx.QueryRowxContext(
			ctx,
			query,

			m.Version,

			m.Address,
			m.Name,

			m.TreasurerAddress,
			m.MintAddress,

			m.BalanceUnits,
			m.AllocationAssignedUnits,
			m.TotalWithdrawalsUnits,
			m.TotalStreams,

			m.TreasuryType,
			m.AutoClose,

			m.SolFeePaidByTreasury,

			m.Category,

			m.CreatedAt.UTC(),
			m.LastUpdatedAt.UTC(),
		).StructScan(m)

		return pg.CheckNoRows(err, treasury.ErrInvalidTreasury)
	})
}

func dbGetByAddress(ctx context.Context, db *sqlx.DB, address string) (*model, error) {
	res := &model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, address)
	if err != nil {
		return nil, pg.CheckNoRows(err, treasury.ErrTreasuryNotFound)
	}
	return res, nil
}

func dbGetAllByTreasurer(ctx context.Context, db *sqlx.DB, treasurer string) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE treasurer_address = $1
		ORDER BY id ASC`

	err := db.SelectContext(ctx, &res, query, treasurer)
	if err != nil {
		return nil, pg.CheckNoRows(err, treasury.ErrTreasuryNotFound)
	}
	if len(res) == 0 {
		return nil, treasury.ErrTreasuryNotFound
	}
	return res, nil
}

func dbGetAllAutoCloseable(ctx context.Context, db *sqlx.DB, limit uint64) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE auto_close = TRUE AND total_streams = 0
		ORDER BY id ASC
		LIMIT $1`

	err := db.SelectContext(ctx, &res, query, limit)
	if err != nil {
		return nil, pg.CheckNoRows(err, treasury.ErrTreasuryNotFound)
	}
	if len(res) == 0 {
		return nil, treasury.ErrTreasuryNotFound
	}
	return res, nil
}

func dbDelete(ctx context.Context, db *sqlx.DB, address string) error {
	return pg.ExecuteInTx(ctx, db, func(tx *sqlx.Tx) error {
		query := `DELETE FROM ` + tableName + ` WHERE address = $1`

		res, err := tx.ExecContext(ctx, query, address)
		if err != nil {
			return err
		}

		count, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if count == 0 {
			return treasury.ErrTreasuryNotFound
		}
		return nil
	})
}
