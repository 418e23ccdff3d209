// Package ledger implements the accounting transitions of the payment
// streaming protocol. Every operation takes record snapshots, validates the
// request against the protocol rules, and mutates the records in place.
// Nothing here touches storage. Callers are expected to pass clones and
// persist them atomically once the transition succeeds.
package ledger

import (
	"time"

	"github.com/pkg/errors"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/vesting"
)

// CreateTreasuryParams configures a new treasury.
type CreateTreasuryParams struct {
	Address          string
	Name             string
	TreasurerAddress string
	MintAddress      string

	Type      treasury.Type
	AutoClose bool

	SolFeePaidByTreasury bool

	Category uint8
}

// AddFundsReceipt reports the outcome of a deposit.
type AddFundsReceipt struct {
	DepositedUnits  uint64
	FlatFeeLamports uint64
}

// TreasuryWithdrawReceipt reports the outcome of an unallocated balance
// withdrawal. The fee is deducted from the withdrawn amount.
type TreasuryWithdrawReceipt struct {
	WithdrawnUnits   uint64
	NetToDestination uint64
	FeeUnits         uint64
}

// CloseTreasuryReceipt reports the funds released by closing a treasury.
type CloseTreasuryReceipt struct {
	ReturnedBalanceUnits uint64
}

// CreateTreasury builds the record for a new, empty treasury.
func CreateTreasury(params CreateTreasuryParams, now time.Time) (*treasury.Record, error) {
	record := &treasury.Record{
		Version: treasury.DataVersion,

		Address: params.Address,
		Name:    params.Name,

		TreasurerAddress: params.TreasurerAddress,
		MintAddress:      params.MintAddress,

		Type:      params.Type,
		AutoClose: params.AutoClose,

		SolFeePaidByTreasury: params.SolFeePaidByTreasury,

		Category: params.Category,

		CreatedAt:     now,
		LastUpdatedAt: now,
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// AddFunds credits a deposit to the treasury's unallocated balance.
func AddFunds(t *treasury.Record, amount uint64, fees *FeeSchedule, now time.Time) (*AddFundsReceipt, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}

	newBalance, err := vesting.CheckedAdd(t.BalanceUnits, amount)
	if err != nil {
		return nil, err
	}

	t.BalanceUnits = newBalance
	t.LastUpdatedAt = now

	return &AddFundsReceipt{
		DepositedUnits:  amount,
		FlatFeeLamports: fees.AddFundsFlatLamports,
	}, nil
}

// TreasuryWithdraw debits unallocated funds from the treasury. Funds already
// committed to streams stay untouched.
func TreasuryWithdraw(t *treasury.Record, amount uint64, fees *FeeSchedule, now time.Time) (*TreasuryWithdrawReceipt, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}

	unallocated, err := t.UnallocatedBalance()
	if err != nil {
		return nil, err
	}
	if amount > unallocated {
		return nil, ErrInsufficientBalance
	}

	fee, err := fees.treasuryWithdrawFee(amount)
	if err != nil {
		return nil, err
	}

	t.BalanceUnits -= amount
	t.LastUpdatedAt = now

	return &TreasuryWithdrawReceipt{
		WithdrawnUnits:   amount,
		NetToDestination: amount - fee,
		FeeUnits:         fee,
	}, nil
}

// CloseTreasury validates that a treasury can be closed and reports the
// balance to return to the treasurer. The caller deletes the record.
func CloseTreasury(t *treasury.Record) (*CloseTreasuryReceipt, error) {
	if t.TotalStreams > 0 {
		return nil, errors.Wrapf(ErrTreasuryContainsStreams, "treasury has %d streams", t.TotalStreams)
	}

	return &CloseTreasuryReceipt{
		ReturnedBalanceUnits: t.BalanceUnits,
	}, nil
}
