package vesting

import (
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
)

// StreamView is the read model consumed by listing and reporting layers. It
// is derived entirely from a stream snapshot and a reference time, without
// mutating anything.
type StreamView struct {
	Status           Status
	IsManuallyPaused bool

	CliffUnits        uint64
	SecondsSinceStart uint64

	// NonStopEarningUnits is what the stream would have earned had it
	// never been paused.
	NonStopEarningUnits uint64

	// MissedUnitsWhilePaused is the earning lost to time spent paused.
	MissedUnitsWhilePaused uint64

	WithdrawableUnits        uint64
	RemainingAllocationUnits uint64

	// FundsSentToBeneficiary is everything earned to date, withdrawn or
	// not.
	FundsSentToBeneficiary uint64

	// FundsLeftInAccount is the allocation neither withdrawn nor currently
	// withdrawable.
	FundsLeftInAccount uint64

	EstimatedDepletionTime uint64
}

// GetStreamView derives the full read model for a stream at the given
// reference time.
func GetStreamView(r *stream.Record, now uint64) (*StreamView, error) {
	status, err := GetStatus(r, now)
	if err != nil {
		return nil, err
	}

	cliffUnits, err := GetCliffUnits(r)
	if err != nil {
		return nil, err
	}

	withdrawable, err := GetWithdrawableAmount(r, now)
	if err != nil {
		return nil, err
	}

	remainingAllocation, err := GetRemainingAllocation(r)
	if err != nil {
		return nil, err
	}

	fundsSent, err := CheckedAdd(r.TotalWithdrawalsUnits, withdrawable)
	if err != nil {
		return nil, err
	}

	fundsLeft, err := CheckedSub(remainingAllocation, withdrawable)
	if err != nil {
		return nil, err
	}

	depletionTime, err := GetEstimatedDepletionTime(r)
	if err != nil {
		return nil, err
	}

	var secondsSinceStart uint64
	if now > r.StartTime {
		secondsSinceStart = now - r.StartTime
	}

	streamedSinceStart, err := GetStreamedUnits(r, secondsSinceStart)
	if err != nil {
		return nil, err
	}

	nonStopEarning, err := CheckedAdd(cliffUnits, streamedSinceStart)
	if err != nil {
		return nil, err
	}

	missedWhilePaused, err := GetStreamedUnits(r, r.TotalSecondsPaused)
	if err != nil {
		return nil, err
	}

	return &StreamView{
		Status:           status,
		IsManuallyPaused: r.IsManuallyPaused(),

		CliffUnits:        cliffUnits,
		SecondsSinceStart: secondsSinceStart,

		NonStopEarningUnits:    nonStopEarning,
		MissedUnitsWhilePaused: missedWhilePaused,

		WithdrawableUnits:        withdrawable,
		RemainingAllocationUnits: remainingAllocation,

		FundsSentToBeneficiary: fundsSent,
		FundsLeftInAccount:     fundsLeft,

		EstimatedDepletionTime: depletionTime,
	}, nil
}
