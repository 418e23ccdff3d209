package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/mean-dao/payment-streaming-server/pkg/database/postgres"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
)

const (
	tableName = "msp__core_stream"
)

type model struct {
	Id sql.NullInt64 `db:"id"`

	Version uint `db:"version"`

	Address string `db:"address"`
	Name    string `db:"name"`

	TreasurerAddress   string `db:"treasurer_address"`
	BeneficiaryAddress string `db:"beneficiary_address"`
	TreasuryAddress    string `db:"treasury_address"`
	MintAddress        string `db:"mint_address"`

	RateAmountUnits       uint64 `db:"rate_amount_units"`
	RateIntervalInSeconds uint64 `db:"rate_interval_in_seconds"`

	StartTime uint64 `db:"start_time"`

	CliffVestAmountUnits uint64 `db:"cliff_vest_amount_units"`
	CliffVestPercent     uint64 `db:"cliff_vest_percent"`

	AllocationAssignedUnits uint64 `db:"allocation_assigned_units"`
	TotalWithdrawalsUnits   uint64 `db:"total_withdrawals_units"`

	LastWithdrawalUnits uint64 `db:"last_withdrawal_units"`
	LastWithdrawalTime  uint64 `db:"last_withdrawal_time"`

	LastManualStopWithdrawableSnap uint64 `db:"last_manual_stop_withdrawable_snap"`
	LastManualStopTime             uint64 `db:"last_manual_stop_time"`

	LastManualResumeRemainingAllocationSnap uint64 `db:"last_manual_resume_remaining_allocation_snap"`
	LastManualResumeTime                    uint64 `db:"last_manual_resume_time"`

	TotalSecondsPaused uint64 `db:"total_seconds_paused"`
	LastAutoStopTime   uint64 `db:"last_auto_stop_time"`

	FeePaidByTreasurer bool `db:"fee_paid_by_treasurer"`

	Category    uint `db:"category"`
	SubCategory uint `db:"sub_category"`

	CreatedAt     time.Time `db:"created_at"`
	LastUpdatedAt time.Time `db:"last_updated_at"`
}

func toModel(obj *stream.Record) (*model, error) {
	if err := obj.Validate(); err != nil {
		return nil, err
	}

	return &model{
		Version: uint(obj.Version),

		Address: obj.Address,
		Name:    obj.Name,

		TreasurerAddress:   obj.TreasurerAddress,
		BeneficiaryAddress: obj.BeneficiaryAddress,
		TreasuryAddress:    obj.TreasuryAddress,
		MintAddress:        obj.MintAddress,

		RateAmountUnits:       obj.RateAmountUnits,
		RateIntervalInSeconds: obj.RateIntervalInSeconds,

		StartTime: obj.StartTime,

		CliffVestAmountUnits: obj.CliffVestAmountUnits,
		CliffVestPercent:     obj.CliffVestPercent,

		AllocationAssignedUnits: obj.AllocationAssignedUnits,
		TotalWithdrawalsUnits:   obj.TotalWithdrawalsUnits,

		LastWithdrawalUnits: obj.LastWithdrawalUnits,
		LastWithdrawalTime:  obj.LastWithdrawalTime,

		LastManualStopWithdrawableSnap: obj.LastManualStopWithdrawableSnap,
		LastManualStopTime:             obj.LastManualStopTime,

		LastManualResumeRemainingAllocationSnap: obj.LastManualResumeRemainingAllocationSnap,
		LastManualResumeTime:                    obj.LastManualResumeTime,

		TotalSecondsPaused: obj.TotalSecondsPaused,
		LastAutoStopTime:   obj.LastAutoStopTime,

		FeePaidByTreasurer: obj.FeePaidByTreasurer,

		Category:    uint(obj.Category),
		SubCategory: uint(obj.SubCategory),

		CreatedAt:     obj.CreatedAt,
		LastUpdatedAt: obj.LastUpdatedAt,
	}, nil
}

func fromModel(obj *model) *stream.Record {
	return &stream.Record{
		Id: uint64(obj.Id.Int64),

		Version: uint8(obj.Version),

		Address: obj.Address,
		Name:    obj.Name,

		TreasurerAddress:   obj.TreasurerAddress,
		BeneficiaryAddress: obj.BeneficiaryAddress,
		TreasuryAddress:    obj.TreasuryAddress,
		MintAddress:        obj.MintAddress,

		RateAmountUnits:       obj.RateAmountUnits,
		RateIntervalInSeconds: obj.RateIntervalInSeconds,

		StartTime: obj.StartTime,

		CliffVestAmountUnits: obj.CliffVestAmountUnits,
		CliffVestPercent:     obj.CliffVestPercent,

		AllocationAssignedUnits: obj.AllocationAssignedUnits,
		TotalWithdrawalsUnits:   obj.TotalWithdrawalsUnits,

		LastWithdrawalUnits: obj.LastWithdrawalUnits,
		LastWithdrawalTime:  obj.LastWithdrawalTime,

		LastManualStopWithdrawableSnap: obj.LastManualStopWithdrawableSnap,
		LastManualStopTime:             obj.LastManualStopTime,

		LastManualResumeRemainingAllocationSnap: obj.LastManualResumeRemainingAllocationSnap,
		LastManualResumeTime:                    obj.LastManualResumeTime,

		TotalSecondsPaused: obj.TotalSecondsPaused,
		LastAutoStopTime:   obj.LastAutoStopTime,

		FeePaidByTreasurer: obj.FeePaidByTreasurer,

		Category:    uint8(obj.Category),
		SubCategory: uint8(obj.SubCategory),

		CreatedAt:     obj.CreatedAt,
		LastUpdatedAt: obj.LastUpdatedAt,
	}
}

const allColumns = `id, version, address, name, treasurer_address, beneficiary_address, treasury_address, mint_address,
		rate_amount_units, rate_interval_in_seconds, start_time, cliff_vest_amount_units, cliff_vest_percent,
		allocation_assigned_units, total_withdrawals_units, last_withdrawal_units, last_withdrawal_time,
		last_manual_stop_withdrawable_snap, last_manual_stop_time, last_manual_resume_remaining_allocation_snap, last_manual_resume_time,
		total_seconds_paused, last_auto_stop_time, fee_paid_by_treasurer, category, sub_category, created_at, last_updated_at`

func (m *model) dbSave(ctx context.Context, db *sqlx.DB) error {
	return pg.ExecuteInTx(ctx, db, func(tx *sqlx.Tx) error {
		query := `INSERT INTO ` + tableName + `
			(version, address, name, treasurer_address, beneficiary_address, treasury_address, mint_address,
			rate_amount_units, rate_interval_in_seconds, start_time, cliff_vest_amount_units, cliff_vest_percent,
			allocation_assigned_units, total_withdrawals_units, last_withdrawal_units, last_withdrawal_time,
			last_manual_stop_withdrawable_snap, last_manual_stop_time, last_manual_resume_remaining_allocation_snap, last_manual_resume_time,
			total_seconds_paused, last_auto_stop_time, fee_paid_by_treasurer, category, sub_category, created_at, last_updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27)

			ON CONFLICT (address)
			DO UPDATE
				SET version = $1, name = $3, beneficiary_address = $5, rate_amount_units = $8, rate_interval_in_seconds = $9,
					start_time = $10, cliff_vest_amount_units = $11, cliff_vest_percent = $12,
					allocation_assigned_units = $13, total_withdrawals_units = $14, last_withdrawal_units = $15, last_withdrawal_time = $16,
					last_manual_stop_withdrawable_snap = $17, last_manual_stop_time = $18,
					last_manual_resume_remaining_allocation_snap = $19, last_manual_resume_time = $20,
					total_seconds_paused = $21, last_auto_stop_time = $22, fee_paid_by_treasurer = $23,
					category = $24, sub_category = $25, last_updated_at = $27
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
			m.BeneficiaryAddress,
			m.TreasuryAddress,
			m.MintAddress,

			m.RateAmountUnits,
			m.RateIntervalInSeconds,

			m.StartTime,

			m.CliffVestAmountUnits,
			m.CliffVestPercent,

			m.AllocationAssignedUnits,
			m.TotalWithdrawalsUnits,

			m.LastWithdrawalUnits,
			m.LastWithdrawalTime,

			m.LastManualStopWithdrawableSnap,
			m.LastManualStopTime,

			m.LastManualResumeRemainingAllocationSnap,
			m.LastManualResumeTime,

			m.TotalSecondsPaused,
			m.LastAutoStopTime,

			m.FeePaidByTreasurer,

			m.Category,
			m.SubCategory,

			m.CreatedAt.UTC(),
			m.LastUpdatedAt.UTC(),
		).StructScan(m)

		return pg.CheckNoRows(err, stream.ErrInvalidStream)
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
		return nil, pg.CheckNoRows(err, stream.ErrStreamNotFound)
	}
	return res, nil
}

func dbGetAllByTreasury(ctx context.Context, db *sqlx.DB, treasury string) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE treasury_address = $1
		ORDER BY id ASC`

	err := db.SelectContext(ctx, &res, query, treasury)
	if err != nil {
		return nil, pg.CheckNoRows(err, stream.ErrStreamNotFound)
	}
	if len(res) == 0 {
		return nil, stream.ErrStreamNotFound
	}
	return res, nil
}

func dbGetAllByBeneficiary(ctx context.Context, db *sqlx.DB, beneficiary string) ([]*model, error) {
	res := []*model{}

	query := `SELECT ` + allColumns + `
		FROM ` + tableName + `
		WHERE beneficiary_address = $1
		ORDER BY id ASC`

	err := db.SelectContext(ctx, &res, query, beneficiary)
	if err != nil {
		return nil, pg.CheckNoRows(err, stream.ErrStreamNotFound)
	}
	if len(res) == 0 {
		return nil, stream.ErrStreamNotFound
	}
	return res, nil
}

func dbCountByTreasury(ctx context.Context, db *sqlx.DB, treasury string) (uint64, error) {
	var res uint64

	query := `SELECT COUNT(*) FROM ` + tableName + ` WHERE treasury_address = $1`

	err := db.GetContext(ctx, &res, query, treasury)
	if err != nil {
		return 0, err
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
			return stream.ErrStreamNotFound
		}
		return nil
	})
}
