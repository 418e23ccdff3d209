package stream

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// MaxNameLength is the maximum length of a stream name, mirroring the
	// 32-byte fixed buffer used by the on-chain program.
	MaxNameLength = 32

	// DataVersion is the current stream account data version.
	DataVersion = 2
)

var (
	ErrStreamNotFound = errors.New("no stream records could be found")
	ErrInvalidStream  = errors.New("invalid stream")
	ErrStreamExists   = errors.New("stream already exists")
)

// Record is the server-side snapshot of a payment stream account. Addresses
// are stored as base58 strings. All amounts are in raw token units and all
// instants are unix seconds.
//
// Based off of the Stream account of the on-chain payment streaming program.
type Record struct {
	Id uint64

	Version uint8

	Address string
	Name    string

	TreasurerAddress   string
	BeneficiaryAddress string
	TreasuryAddress    string
	MintAddress        string

	RateAmountUnits       uint64
	RateIntervalInSeconds uint64

	StartTime uint64

	// CliffVestAmountUnits is the effective cliff as an absolute amount.
	// Current streams persist the cliff here at creation time and zero out
	// CliffVestPercent. Legacy streams may still carry a non-zero percent,
	// which takes precedence on the read path.
	CliffVestAmountUnits uint64
	CliffVestPercent     uint64

	AllocationAssignedUnits uint64
	TotalWithdrawalsUnits   uint64

	LastWithdrawalUnits uint64
	LastWithdrawalTime  uint64

	LastManualStopWithdrawableSnap uint64
	LastManualStopTime             uint64

	LastManualResumeRemainingAllocationSnap uint64
	LastManualResumeTime                    uint64

	// TotalSecondsPaused accumulates every pause duration since StartTime.
	// It's incremented on manual resume, and back-filled on allocate when a
	// stream recovers from an auto-pause.
	TotalSecondsPaused uint64
	LastAutoStopTime   uint64

	FeePaidByTreasurer bool

	Category    uint8
	SubCategory uint8

	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// IsManuallyPaused returns whether the stream is currently paused by an
// explicit pause operation, as opposed to an automatic pause on depletion.
func (r *Record) IsManuallyPaused() bool {
	if r.LastManualStopTime == 0 {
		return false
	}
	return r.LastManualStopTime > r.LastManualResumeTime
}

// LastKnownStopTime returns the most recent instant the stream stopped,
// whether manually or automatically.
func (r *Record) LastKnownStopTime() uint64 {
	if r.LastAutoStopTime > r.LastManualStopTime {
		return r.LastAutoStopTime
	}
	return r.LastManualStopTime
}

func (r *Record) Validate() error {
	if r == nil {
		return errors.Wrap(ErrInvalidStream, "record is nil")
	}

	if len(r.Address) == 0 {
		return errors.Wrap(ErrInvalidStream, "address is required")
	}

	if len(r.Name) > MaxNameLength {
		return errors.Wrap(ErrInvalidStream, "name exceeds max length")
	}

	if len(r.TreasurerAddress) == 0 {
		return errors.Wrap(ErrInvalidStream, "treasurer address is required")
	}

	if len(r.BeneficiaryAddress) == 0 {
		return errors.Wrap(ErrInvalidStream, "beneficiary address is required")
	}

	if len(r.TreasuryAddress) == 0 {
		return errors.Wrap(ErrInvalidStream, "treasury address is required")
	}

	if len(r.MintAddress) == 0 {
		return errors.Wrap(ErrInvalidStream, "mint address is required")
	}

	if r.TotalWithdrawalsUnits > r.AllocationAssignedUnits {
		return errors.Wrap(ErrInvalidStream, "total withdrawals exceed assigned allocation")
	}

	if r.CliffVestAmountUnits > r.AllocationAssignedUnits {
		return errors.Wrap(ErrInvalidStream, "cliff exceeds assigned allocation")
	}

	if r.CliffVestPercent > 1_000_000 {
		return errors.Wrap(ErrInvalidStream, "cliff percent out of range")
	}

	return nil
}

func (r *Record) Clone() *Record {
	return &Record{
		Id: r.Id,

		Version: r.Version,

		Address: r.Address,
		Name:    r.Name,

		TreasurerAddress:   r.TreasurerAddress,
		BeneficiaryAddress: r.BeneficiaryAddress,
		TreasuryAddress:    r.TreasuryAddress,
		MintAddress:        r.MintAddress,

		RateAmountUnits:       r.RateAmountUnits,
		RateIntervalInSeconds: r.RateIntervalInSeconds,

		StartTime: r.StartTime,

		CliffVestAmountUnits: r.CliffVestAmountUnits,
		CliffVestPercent:     r.CliffVestPercent,

		AllocationAssignedUnits: r.AllocationAssignedUnits,
		TotalWithdrawalsUnits:   r.TotalWithdrawalsUnits,

		LastWithdrawalUnits: r.LastWithdrawalUnits,
		LastWithdrawalTime:  r.LastWithdrawalTime,

		LastManualStopWithdrawableSnap: r.LastManualStopWithdrawableSnap,
		LastManualStopTime:             r.LastManualStopTime,

		LastManualResumeRemainingAllocationSnap: r.LastManualResumeRemainingAllocationSnap,
		LastManualResumeTime:                    r.LastManualResumeTime,

		TotalSecondsPaused: r.TotalSecondsPaused,
		LastAutoStopTime:   r.LastAutoStopTime,

		FeePaidByTreasurer: r.FeePaidByTreasurer,

		Category:    r.Category,
		SubCategory: r.SubCategory,

		CreatedAt:     r.CreatedAt,
		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Version = r.Version

	dst.Address = r.Address
	dst.Name = r.Name

	dst.TreasurerAddress = r.TreasurerAddress
	dst.BeneficiaryAddress = r.BeneficiaryAddress
	dst.TreasuryAddress = r.TreasuryAddress
	dst.MintAddress = r.MintAddress

	dst.RateAmountUnits = r.RateAmountUnits
	dst.RateIntervalInSeconds = r.RateIntervalInSeconds

	dst.StartTime = r.StartTime

	dst.CliffVestAmountUnits = r.CliffVestAmountUnits
	dst.CliffVestPercent = r.CliffVestPercent

	dst.AllocationAssignedUnits = r.AllocationAssignedUnits
	dst.TotalWithdrawalsUnits = r.TotalWithdrawalsUnits

	dst.LastWithdrawalUnits = r.LastWithdrawalUnits
	dst.LastWithdrawalTime = r.LastWithdrawalTime

	dst.LastManualStopWithdrawableSnap = r.LastManualStopWithdrawableSnap
	dst.LastManualStopTime = r.LastManualStopTime

	dst.LastManualResumeRemainingAllocationSnap = r.LastManualResumeRemainingAllocationSnap
	dst.LastManualResumeTime = r.LastManualResumeTime

	dst.TotalSecondsPaused = r.TotalSecondsPaused
	dst.LastAutoStopTime = r.LastAutoStopTime

	dst.FeePaidByTreasurer = r.FeePaidByTreasurer

	dst.Category = r.Category
	dst.SubCategory = r.SubCategory

	dst.CreatedAt = r.CreatedAt
	dst.LastUpdatedAt = r.LastUpdatedAt
}
