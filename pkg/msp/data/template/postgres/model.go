package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mean-dao/payment-streaming-server/pkg/database/postgres"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/template"
)

const (
	tableName = "msp__core_streamtemplate"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Version uint `db:"version"`

	Address         string `db:"address"`
	TreasuryAddress string `db:"treasury_address"`

	StartTime             uint64 `db:"start_time"`
	RateIntervalInSeconds uint64 `db:"rate_interval_in_seconds"`
	DurationNumberOfUnits uint64 `db:"duration_number_of_units"`
	CliffVestPercent      uint64 `db:"cliff_vest_percent"`

	FeePaidByTreasurer bool `db:"fee_paid_by_treasurer"`

	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func toModel(obj *template.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Version: uint(obj.Version),

		Address:         obj.Address,
		TreasuryAddress: obj.TreasuryAddress,

		StartTime:             obj.StartTime,
		RateIntervalInSeconds: obj.RateIntervalInSeconds,
		DurationNumberOfUnits: obj.DurationNumberOfUnits,
		CliffVestPercent:      obj.CliffVestPercent,

		FeePaidByTreasurer: obj.FeePaidByTreasurer,

		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) *template.Record {
	return &template.Record{
		Id: uint64(obj.Id.Int64),

		Version: uint8(obj.Version),

		Address:         obj.Address,
		TreasuryAddress: obj.TreasuryAddress,

		StartTime:             obj.StartTime,
		RateIntervalInSeconds: obj.RateIntervalInSeconds,
		DurationNumberOfUnits: obj.DurationNumberOfUnits,
		CliffVestPercent:      obj.CliffVestPercent,

		FeePaidByTreasurer: obj.FeePaidByTreasurer,

		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

const allColumns = `id, version, address, treasury_address, start_time, rate_interval_in_seconds,
		duration_number_of_units, cliff_vest_percent, fee_paid_by_treasurer, last_updated_at`

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pg.ExecuteInTx(ctx, db, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(version, address, treasury_address, start_time, rate_interval_in_seconds,
			duration_number_of_units, cliff_vest_percent, fee_paid_by_treasurer, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)

			ON CONFLICT (address)
			DO UPDATE
				SET version = $1, start_time = $4, rate_interval_in_seconds = $5,
					duration_number_of_units = $6, cliff_vest_percent = $7, fee_paid_by_treasurer = $8, last_updated_at = $9
				WHERE ` + tableName + `.address = $2

			RETURNING ` + allColumns

		m.LastUpdatedAt = time.Now()

		err := tx.QueryRowxContext(
			ctx,
			query,

			m.Version,

			m.Address,
			m.TreasuryAddress,

			m.StartTime,
			m.RateIntervalInSeconds,
			m.DurationNumberOfUnits,
			m.CliffVestPercent,

			m.FeePaidByTreasurer,

			m.LastUpdatedAt.UTC(),
		).StructScan(m)

		return pg.CheckNoRows(err, template.ErrInvalidTemplate)
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
		return nil, pg.CheckNoRows(err, template.ErrTemplateNotFound)
	}
	return res, nil
}

func dbGetByTreasury(ctx context.Context, db *sqlx.DB, treasury string) (*model, error) {
	res := &model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE treasury_address = $1
		LIMIT 1`

	err := db.GetContext(ctx, res, query, treasury)
	if err != nil {
		return nil, pg.CheckNoRows(err, template.ErrTemplateNotFound)
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
			return template.ErrTemplateNotFound
		}
		return nil
	})
}
