package treasury

import (
	"time"

	"github.com/pkg/errors"
)

const (
	// MaxNameLength is the maximum length of a treasury name, mirroring the
	// 32-byte fixed buffer used by the on-chain program.
	MaxNameLength = 32

	// DataVersion is the current treasury account data version.
	DataVersion = 2
)

// Type determines what a treasury allows once its streams are running.
type Type uint8

const (
	// TypeOpen treasuries can pause, resume, top up and close streams at
	// any point.
	TypeOpen Type = iota

	// TypeLocked treasuries fix every stream's schedule at creation time.
	// Streams cannot be paused, resumed, topped up or closed early. They
	// run until depletion.
	TypeLocked
)

var (
	ErrTreasuryNotFound = errors.New("no treasury records could be found")
	ErrInvalidTreasury  = errors.New("invalid treasury")
	ErrTreasuryExists   = errors.New("treasury already exists")
)

// Record is the server-side snapshot of a streaming treasury account. It
// holds the token balance backing one or more streams, all denominated in a
// single mint.
type Record struct {
	Id uint64

	Version uint8

	Address string
	Name    string

	TreasurerAddress string
	MintAddress      string

	// BalanceUnits is the last known token balance held by the treasury.
	BalanceUnits uint64

	// AllocationAssignedUnits is the sum of every child stream's assigned
	// allocation. It can never exceed BalanceUnits. The difference is the
	// unallocated balance, spendable on new streams and allocations.
	AllocationAssignedUnits uint64

	TotalWithdrawalsUnits uint64
	TotalStreams          uint64

	Type      Type
	AutoClose bool

	// SolFeePaidByTreasury indicates whether flat protocol fees are paid
	// from the treasury's lamport balance instead of by the transaction
	// payer.
	SolFeePaidByTreasury bool

	Category uint8

	CreatedAt     time.Time
	LastUpdatedAt time.Time
}

// UnallocatedBalance returns the portion of the balance not yet committed to
// any stream.
func (r *Record) UnallocatedBalance() (uint64, error) {
	if r.AllocationAssignedUnits > r.BalanceUnits {
		return 0, errors.Wrap(ErrInvalidTreasury, "allocation exceeds balance")
	}
	return r.BalanceUnits - r.AllocationAssignedUnits, nil
}

func (r *Record) Validate() error {
	if r == nil {
		return errors.Wrap(ErrInvalidTreasury, "record is nil")
	}

	if len(r.Address) == 0 {
		return errors.Wrap(ErrInvalidTreasury, "address is required")
	}

	if len(r.Name) > MaxNameLength {
		return errors.Wrap(ErrInvalidTreasury, "name exceeds max length")
	}

	if len(r.TreasurerAddress) == 0 {
		return errors.Wrap(ErrInvalidTreasury, "treasurer address is required")
	}

	if len(r.MintAddress) == 0 {
		return errors.Wrap(ErrInvalidTreasury, "mint address is required")
	}

	switch r.Type {
	case TypeOpen, TypeLocked:
	default:
		return errors.Wrap(ErrInvalidTreasury, "invalid treasury type")
	}

	if r.AllocationAssignedUnits > r.BalanceUnits {
		return errors.Wrap(ErrInvalidTreasury, "allocation exceeds balance")
	}

	return nil
}

func (r *Record) Clone() *Record {
	return &Record{
		Id: r.Id,

		Version: r.Version,

		Address: r.Address,
		Name:    r.Name,

		TreasurerAddress: r.TreasurerAddress,
		MintAddress:      r.MintAddress,

		BalanceUnits:            r.BalanceUnits,
		AllocationAssignedUnits: r.AllocationAssignedUnits,

		TotalWithdrawalsUnits: r.TotalWithdrawalsUnits,
		TotalStreams:          r.TotalStreams,

		Type:      r.Type,
		AutoClose: r.AutoClose,

		SolFeePaidByTreasury: r.SolFeePaidByTreasury,

		Category: r.Category,

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
	dst.MintAddress = r.MintAddress

	dst.BalanceUnits = r.BalanceUnits
	dst.AllocationAssignedUnits = r.AllocationAssignedUnits

	dst.TotalWithdrawalsUnits = r.TotalWithdrawalsUnits
	dst.TotalStreams = r.TotalStreams

	dst.Type = r.Type
	dst.AutoClose = r.AutoClose

	dst.SolFeePaidByTreasury = r.SolFeePaidByTreasury

	dst.Category = r.Category

	dst.CreatedAt = r.CreatedAt
	dst.LastUpdatedAt = r.LastUpdatedAt
}

func (t Type) String() string {
	switch t {
	case TypeOpen:
		return "open"
	case TypeLocked:
		return "locked"
	}
	return "unknown"
}
