package ledger

import (
	"github.com/mean-dao/payment-streaming-server/pkg/msp/vesting"
)

// FeeSchedule defines the protocol fees charged on treasury and stream
// operations. Percent fees are numerators over vesting.PercentDenominator
// and apply to the token amount being moved. Flat fees are charged in
// lamports and reported on receipts for the caller to collect.
type FeeSchedule struct {
	WithdrawPercent         uint64
	CloseStreamPercent      uint64
	TreasuryWithdrawPercent uint64

	CreateTreasuryFlatLamports uint64
	CreateStreamFlatLamports   uint64
	AddFundsFlatLamports       uint64
	CloseStreamFlatLamports    uint64
	TransferStreamFlatLamports uint64
}

// DefaultFeeSchedule returns the protocol's standard fee schedule.
func DefaultFeeSchedule() *FeeSchedule {
	return &FeeSchedule{
		WithdrawPercent:         2500, // 0.25%
		CloseStreamPercent:      2500,
		TreasuryWithdrawPercent: 2500,

		CreateTreasuryFlatLamports: 10_000,
		CreateStreamFlatLamports:   10_000,
		AddFundsFlatLamports:       25_000,
		CloseStreamFlatLamports:    10_000,
		TransferStreamFlatLamports: 10_000,
	}
}

func (f *FeeSchedule) withdrawFee(amount uint64) (uint64, error) {
	return vesting.MulDiv(f.WithdrawPercent, amount, vesting.PercentDenominator)
}

func (f *FeeSchedule) closeStreamFee(amount uint64) (uint64, error) {
	return vesting.MulDiv(f.CloseStreamPercent, amount, vesting.PercentDenominator)
}

func (f *FeeSchedule) treasuryWithdrawFee(amount uint64) (uint64, error) {
	return vesting.MulDiv(f.TreasuryWithdrawPercent, amount, vesting.PercentDenominator)
}
