package ledger

import (
	"time"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/vesting"
)

// AllocateReceipt reports the funds committed to a stream.
type AllocateReceipt struct {
	AllocatedUnits uint64

	// FeeUnits is charged against the treasury balance when the treasurer
	// covers withdrawal fees for the beneficiary.
	FeeUnits uint64

	// Resumed indicates the allocation restarted a stream that had paused
	// itself on depletion.
	Resumed bool
}

// WithdrawReceipt reports a beneficiary withdrawal. The fee, when not
// covered by the treasurer, is deducted from the withdrawn amount.
type WithdrawReceipt struct {
	WithdrawnUnits   uint64
	NetToBeneficiary uint64
	FeeUnits         uint64
}

// CloseStreamReceipt reports the final settlement of a closed stream: the
// vested remainder goes to the beneficiary, the unvested remainder returns
// to the treasury's unallocated balance.
type CloseStreamReceipt struct {
	NetToBeneficiary uint64
	FeeUnits         uint64

	ReturnedToUnallocatedUnits uint64

	FlatFeeLamports uint64
}

// Allocate commits additional unallocated treasury funds to a stream. If the
// stream had depleted its allocation and auto-paused, the new funds restart
// it, and the time spent depleted is recorded as paused time.
func Allocate(t *treasury.Record, s *stream.Record, amount uint64, fees *FeeSchedule, now time.Time) (*AllocateReceipt, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	if s.TreasuryAddress != t.Address {
		return nil, ErrStreamMismatch
	}

	nowTs := uint64(now.Unix())

	status, err := vesting.GetStatus(s, nowTs)
	if err != nil {
		return nil, err
	}
	if t.Type == treasury.TypeLocked && status != vesting.StatusScheduled {
		return nil, ErrLockedTreasury
	}

	var fee uint64
	if s.FeePaidByTreasurer {
		fee, err = fees.withdrawFee(amount)
		if err != nil {
			return nil, err
		}
	}

	required, err := vesting.CheckedAdd(amount, fee)
	if err != nil {
		return nil, err
	}
	unallocated, err := t.UnallocatedBalance()
	if err != nil {
		return nil, err
	}
	if required > unallocated {
		return nil, ErrInsufficientBalance
	}

	if err := saveEffectiveCliff(s); err != nil {
		return nil, err
	}

	resumed := status == vesting.StatusPaused && !s.IsManuallyPaused()
	if resumed {
		// The stream stopped when it ran dry. Backfill the stop time and
		// count the dry spell as paused so vesting doesn't jump forward.
		depletedAt, err := vesting.GetEstimatedDepletionTime(s)
		if err != nil {
			return nil, err
		}
		if depletedAt > nowTs {
			depletedAt = nowTs
		}

		pausedFor := nowTs - depletedAt
		totalPaused, err := vesting.CheckedAdd(s.TotalSecondsPaused, pausedFor)
		if err != nil {
			return nil, err
		}

		s.LastAutoStopTime = depletedAt
		s.TotalSecondsPaused = totalPaused
		s.LastManualResumeRemainingAllocationSnap = 0
		s.LastManualResumeTime = nowTs
	}

	newStreamAllocation, err := vesting.CheckedAdd(s.AllocationAssignedUnits, amount)
	if err != nil {
		return nil, err
	}
	newTreasuryAllocation, err := vesting.CheckedAdd(t.AllocationAssignedUnits, amount)
	if err != nil {
		return nil, err
	}

	s.AllocationAssignedUnits = newStreamAllocation
	s.LastUpdatedAt = now

	t.AllocationAssignedUnits = newTreasuryAllocation
	t.BalanceUnits -= fee
	t.LastUpdatedAt = now

	return &AllocateReceipt{
		AllocatedUnits: amount,
		FeeUnits:       fee,
		Resumed:        resumed,
	}, nil
}

// Withdraw pays out vested funds to the beneficiary. The amount must not
// exceed the stream's current withdrawable balance.
func Withdraw(t *treasury.Record, s *stream.Record, amount uint64, fees *FeeSchedule, now time.Time) (*WithdrawReceipt, error) {
	if amount == 0 {
		return nil, ErrZeroAmount
	}
	if s.TreasuryAddress != t.Address {
		return nil, ErrStreamMismatch
	}

	nowTs := uint64(now.Unix())

	status, err := vesting.GetStatus(s, nowTs)
	if err != nil {
		return nil, err
	}
	if status == vesting.StatusScheduled {
		return nil, ErrStreamScheduled
	}

	withdrawable, err := vesting.GetWithdrawableAmount(s, nowTs)
	if err != nil {
		return nil, err
	}
	if amount > withdrawable {
		return nil, ErrInsufficientWithdrawable
	}

	if err := saveEffectiveCliff(s); err != nil {
		return nil, err
	}

	var fee uint64
	if !s.FeePaidByTreasurer {
		fee, err = fees.withdrawFee(amount)
		if err != nil {
			return nil, err
		}
	}

	newWithdrawals, err := vesting.CheckedAdd(s.TotalWithdrawalsUnits, amount)
	if err != nil {
		return nil, err
	}

	s.TotalWithdrawalsUnits = newWithdrawals
	s.LastWithdrawalUnits = amount
	s.LastWithdrawalTime = nowTs

	// A withdrawal during a manual pause eats into the frozen withdrawable
	// snapshot.
	if s.IsManuallyPaused() {
		snap, err := vesting.CheckedSub(s.LastManualStopWithdrawableSnap, amount)
		if err != nil {
			snap = 0
		}
		s.LastManualStopWithdrawableSnap = snap
	}

	newTreasuryAllocation, err := vesting.CheckedSub(t.AllocationAssignedUnits, amount)
	if err != nil {
		return nil, err
	}
	newTreasuryBalance, err := vesting.CheckedSub(t.BalanceUnits, amount)
	if err != nil {
		return nil, err
	}
	newTreasuryWithdrawals, err := vesting.CheckedAdd(t.TotalWithdrawalsUnits, amount)
	if err != nil {
		return nil, err
	}

	t.AllocationAssignedUnits = newTreasuryAllocation
	t.BalanceUnits = newTreasuryBalance
	t.TotalWithdrawalsUnits = newTreasuryWithdrawals

	s.LastUpdatedAt = now
	t.LastUpdatedAt = now

	return &WithdrawReceipt{
		WithdrawnUnits:   amount,
		NetToBeneficiary: amount - fee,
		FeeUnits:         fee,
	}, nil
}

// PauseStream manually pauses a running stream, freezing its withdrawable
// amount at the current value.
func PauseStream(t *treasury.Record, s *stream.Record, now time.Time) error {
	if s.TreasuryAddress != t.Address {
		return ErrStreamMismatch
	}
	if t.Type == treasury.TypeLocked {
		return ErrLockedTreasury
	}

	nowTs := uint64(now.Unix())

	status, err := vesting.GetStatus(s, nowTs)
	if err != nil {
		return err
	}
	if status != vesting.StatusRunning {
		return ErrStreamAlreadyPaused
	}
	if s.LastManualResumeTime == nowTs {
		return ErrPauseResumeSameTime
	}

	if err := saveEffectiveCliff(s); err != nil {
		return err
	}

	withdrawable, err := vesting.GetWithdrawableAmount(s, nowTs)
	if err != nil {
		return err
	}

	s.LastManualStopWithdrawableSnap = withdrawable
	s.LastManualStopTime = nowTs
	s.LastUpdatedAt = now

	return nil
}

// ResumeStream restarts a manually paused stream. The pause duration is
// added to the stream's accumulated paused time, shifting vesting forward.
func ResumeStream(t *treasury.Record, s *stream.Record, now time.Time) error {
	if s.TreasuryAddress != t.Address {
		return ErrStreamMismatch
	}
	if t.Type == treasury.TypeLocked {
		return ErrLockedTreasury
	}

	nowTs := uint64(now.Unix())

	status, err := vesting.GetStatus(s, nowTs)
	if err != nil {
		return err
	}
	if status != vesting.StatusPaused {
		return ErrStreamAlreadyRunning
	}
	if !s.IsManuallyPaused() {
		return ErrCannotResumeAutoPaused
	}
	if s.LastManualStopTime == nowTs {
		return ErrPauseResumeSameTime
	}

	if err := saveEffectiveCliff(s); err != nil {
		return err
	}

	remaining, err := vesting.GetRemainingAllocation(s)
	if err != nil {
		return err
	}
	if remaining == 0 {
		return ErrNoRemainingAllocation
	}

	pausedFor, err := vesting.CheckedSub(nowTs, s.LastManualStopTime)
	if err != nil {
		return err
	}
	totalPaused, err := vesting.CheckedAdd(s.TotalSecondsPaused, pausedFor)
	if err != nil {
		return err
	}

	s.TotalSecondsPaused = totalPaused
	s.LastManualResumeRemainingAllocationSnap = remaining
	s.LastManualResumeTime = nowTs
	s.LastUpdatedAt = now

	return nil
}

// CloseStream settles a stream: vested funds go to the beneficiary, the
// unvested remainder is released back to the treasury's unallocated balance,
// and the stream is removed from the treasury's accounting. The caller
// deletes the stream record.
func CloseStream(t *treasury.Record, s *stream.Record, fees *FeeSchedule, now time.Time) (*CloseStreamReceipt, error) {
	if s.TreasuryAddress != t.Address {
		return nil, ErrStreamMismatch
	}

	nowTs := uint64(now.Unix())

	status, err := vesting.GetStatus(s, nowTs)
	if err != nil {
		return nil, err
	}
	if t.Type == treasury.TypeLocked && status == vesting.StatusRunning {
		return nil, ErrCloseLockedWhileRunning
	}

	if err := saveEffectiveCliff(s); err != nil {
		return nil, err
	}

	beneficiaryAmount, err := vesting.GetWithdrawableAmount(s, nowTs)
	if err != nil {
		return nil, err
	}

	remainder, err := vesting.CheckedSub(s.AllocationAssignedUnits, s.TotalWithdrawalsUnits)
	if err != nil {
		return nil, err
	}
	unvested, err := vesting.CheckedSub(remainder, beneficiaryAmount)
	if err != nil {
		return nil, err
	}

	var fee uint64
	if !s.FeePaidByTreasurer && beneficiaryAmount > 0 {
		fee, err = fees.closeStreamFee(beneficiaryAmount)
		if err != nil {
			return nil, err
		}
	}

	// Roll the stream out of the treasury aggregates. Values are clamped
	// rather than failed so a stream with slightly stale accounting can
	// still be closed.
	if t.AllocationAssignedUnits > remainder {
		t.AllocationAssignedUnits -= remainder
	} else {
		t.AllocationAssignedUnits = 0
	}
	if t.BalanceUnits > beneficiaryAmount {
		t.BalanceUnits -= beneficiaryAmount
	} else {
		t.BalanceUnits = 0
	}
	if t.TotalStreams > 0 {
		t.TotalStreams -= 1
	}
	t.LastUpdatedAt = now

	return &CloseStreamReceipt{
		NetToBeneficiary:           beneficiaryAmount - fee,
		FeeUnits:                   fee,
		ReturnedToUnallocatedUnits: unvested,
		FlatFeeLamports:            fees.CloseStreamFlatLamports,
	}, nil
}
