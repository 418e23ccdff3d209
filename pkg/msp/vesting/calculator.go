package vesting

import (
	"github.com/pkg/errors"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
)

const (
	// PercentDenominator is the scale of all stored percentages. A stored
	// value of 1_000_000 means 100%.
	PercentDenominator = 1_000_000

	// CliffPercentScale converts a user-facing percentage in [0, 100] into
	// the stored [0, PercentDenominator] range.
	CliffPercentScale = PercentDenominator / 100
)

// ErrMalformedStream indicates stream state that should never be reachable
// (for example a running stream with no rate). It's a hard failure, not a
// business rule rejection.
var ErrMalformedStream = errors.New("malformed stream state")

// Status is a stream's lifecycle state at a point in time. It's never
// persisted. Both call sites, the authoritative on-chain mutation and the
// off-chain read-only simulation, must derive it identically.
type Status uint8

const (
	StatusScheduled Status = iota
	StatusRunning
	StatusPaused
)

// GetCliffUnits calculates the effective cliff as an absolute amount.
//
// Current streams convert the percent into an amount at creation time and
// zero out the percent. Legacy streams may still carry a percent, which
// takes precedence and is recomputed from the assigned allocation.
func GetCliffUnits(r *stream.Record) (uint64, error) {
	if r.CliffVestPercent > 0 {
		return MulDiv(r.CliffVestPercent, r.AllocationAssignedUnits, PercentDenominator)
	}
	return r.CliffVestAmountUnits, nil
}

// GetStreamedUnits calculates the amount of units streamed during the given
// number of seconds, excluding the cliff. The result is capped at the
// non-cliff allocation once enough time has elapsed to stream all of it.
func GetStreamedUnits(r *stream.Record, seconds uint64) (uint64, error) {
	if r.RateIntervalInSeconds == 0 {
		// Cliff-only stream, nothing accrues over time
		return 0, nil
	}

	if r.RateAmountUnits == 0 {
		// A zero rate streams nothing regardless of elapsed time
		return 0, nil
	}

	cliffUnits, err := GetCliffUnits(r)
	if err != nil {
		return 0, err
	}

	streamableUnits, err := CheckedSub(r.AllocationAssignedUnits, cliffUnits)
	if err != nil {
		return 0, err
	}

	streamingSeconds, err := MulDiv(streamableUnits, r.RateIntervalInSeconds, r.RateAmountUnits)
	if err != nil {
		return 0, err
	}

	if seconds >= streamingSeconds {
		return streamableUnits, nil
	}

	return MulDiv(r.RateAmountUnits, seconds, r.RateIntervalInSeconds)
}

// GetStatus determines the stream status at the given reference time.
func GetStatus(r *stream.Record, now uint64) (Status, error) {
	if r.StartTime > now {
		return StatusScheduled, nil
	}

	if r.IsManuallyPaused() {
		return StatusPaused, nil
	}

	cliffUnits, err := GetCliffUnits(r)
	if err != nil {
		return StatusPaused, err
	}

	streamedUnits, err := activeStreamedUnits(r, now)
	if err != nil {
		return StatusPaused, err
	}

	earnedUnits, err := CheckedAdd(cliffUnits, streamedUnits)
	if err != nil {
		return StatusPaused, err
	}

	if r.AllocationAssignedUnits > earnedUnits {
		return StatusRunning, nil
	}

	// The allocation has been fully earned, so the stream stopped on its
	// own by running out of funds
	return StatusPaused, nil
}

// GetRemainingAllocation returns the allocation not yet withdrawn.
func GetRemainingAllocation(r *stream.Record) (uint64, error) {
	if r.TotalWithdrawalsUnits > r.AllocationAssignedUnits {
		return 0, errors.Wrap(ErrMalformedStream, "withdrawals exceed allocation")
	}
	return r.AllocationAssignedUnits - r.TotalWithdrawalsUnits, nil
}

// GetWithdrawableAmount calculates the amount the beneficiary can withdraw
// at the given reference time.
func GetWithdrawableAmount(r *stream.Record, now uint64) (uint64, error) {
	remainingAllocation, err := GetRemainingAllocation(r)
	if err != nil {
		return 0, err
	}
	if remainingAllocation == 0 {
		return 0, nil
	}

	status, err := GetStatus(r, now)
	if err != nil {
		return 0, err
	}

	if status == StatusScheduled {
		return 0, nil
	}

	if status == StatusPaused {
		if r.IsManuallyPaused() {
			// The withdrawable amount was frozen when the stream was
			// manually paused. The snapshot is rolled down on withdrawals
			// taken during the pause, but never allowed past the
			// remaining allocation.
			if r.LastManualStopWithdrawableSnap > remainingAllocation {
				return remainingAllocation, nil
			}
			return r.LastManualStopWithdrawableSnap, nil
		}

		// Auto-paused on depletion, everything earned is the full
		// remaining allocation
		return remainingAllocation, nil
	}

	// Running
	if r.RateIntervalInSeconds == 0 || r.RateAmountUnits == 0 {
		return 0, errors.Wrap(ErrMalformedStream, "running stream with no rate")
	}

	cliffUnits, err := GetCliffUnits(r)
	if err != nil {
		return 0, err
	}

	streamedUnits, err := activeStreamedUnits(r, now)
	if err != nil {
		return 0, err
	}

	earnedUnits, err := CheckedAdd(cliffUnits, streamedUnits)
	if err != nil {
		return 0, err
	}

	// Floor at prior withdrawals so clock skew or rounding can never
	// produce a negative withdrawable amount
	if earnedUnits < r.TotalWithdrawalsUnits {
		earnedUnits = r.TotalWithdrawalsUnits
	}

	withdrawableWhileRunning := earnedUnits - r.TotalWithdrawalsUnits

	if withdrawableWhileRunning > remainingAllocation {
		return remainingAllocation, nil
	}
	return withdrawableWhileRunning, nil
}

// GetEstimatedDepletionTime calculates the instant at which the stream will
// have streamed its entire allocation, accounting for time spent paused.
func GetEstimatedDepletionTime(r *stream.Record) (uint64, error) {
	if r.RateIntervalInSeconds == 0 || r.RateAmountUnits == 0 {
		// Cliff-only stream, fully vested at start
		return r.StartTime, nil
	}

	cliffUnits, err := GetCliffUnits(r)
	if err != nil {
		return 0, err
	}

	streamableUnits, err := CheckedSub(r.AllocationAssignedUnits, cliffUnits)
	if err != nil {
		return 0, err
	}

	streamingSeconds, err := MulDiv(streamableUnits, r.RateIntervalInSeconds, r.RateAmountUnits)
	if err != nil {
		return 0, err
	}

	spanSeconds, err := CheckedAdd(streamingSeconds, r.TotalSecondsPaused)
	if err != nil {
		return 0, err
	}

	return CheckedAdd(r.StartTime, spanSeconds)
}

// activeStreamedUnits returns the units streamed over the stream's active
// (non-paused) seconds up to now. Negative intermediates are clamped to
// zero so a stale clock can never panic the read path.
func activeStreamedUnits(r *stream.Record, now uint64) (uint64, error) {
	if now < r.StartTime {
		return 0, nil
	}
	secondsSinceStart := now - r.StartTime

	var activeSeconds uint64
	if secondsSinceStart > r.TotalSecondsPaused {
		activeSeconds = secondsSinceStart - r.TotalSecondsPaused
	}

	return GetStreamedUnits(r, activeSeconds)
}

func (s Status) String() string {
	switch s {
	case StatusScheduled:
		return "scheduled"
	case StatusRunning:
		return "running"
	case StatusPaused:
		return "paused"
	}
	return "unknown"
}
