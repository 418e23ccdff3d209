package template

import (
	"time"

	"github.com/pkg/errors"
)

// DataVersion is the current stream template account data version.
const DataVersion = 2

var (
	ErrTemplateNotFound = errors.New("no template records could be found")
	ErrInvalidTemplate  = errors.New("invalid template")
)

// Record is a factory configuration attached to a treasury, used to stamp
// out streams sharing a schedule. There is exactly one template per treasury
// and its address is derived from the treasury address.
type Record struct {
	Id uint64

	Version uint8

	Address         string
	TreasuryAddress string

	StartTime             uint64
	RateIntervalInSeconds uint64
	DurationNumberOfUnits uint64
	CliffVestPercent      uint64

	FeePaidByTreasurer bool

	LastUpdatedAt time.Time
}

func (r *Record) Validate() error {
	if r == nil {
		return errors.Wrap(ErrInvalidTemplate, "record is nil")
	}

	if len(r.Address) == 0 {
		return errors.Wrap(ErrInvalidTemplate, "address is required")
	}

	if len(r.TreasuryAddress) == 0 {
		return errors.Wrap(ErrInvalidTemplate, "treasury address is required")
	}

	if r.CliffVestPercent > 1_000_000 {
		return errors.Wrap(ErrInvalidTemplate, "cliff percent out of range")
	}

	return nil
}

func (r *Record) Clone() *Record {
	return &Record{
		Id: r.Id,

		Version: r.Version,

		Address:         r.Address,
		TreasuryAddress: r.TreasuryAddress,

		StartTime:             r.StartTime,
		RateIntervalInSeconds: r.RateIntervalInSeconds,
		DurationNumberOfUnits: r.DurationNumberOfUnits,
		CliffVestPercent:      r.CliffVestPercent,

		FeePaidByTreasurer: r.FeePaidByTreasurer,

		LastUpdatedAt: r.LastUpdatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.Version = r.Version

	dst.Address = r.Address
	dst.TreasuryAddress = r.TreasuryAddress

	dst.StartTime = r.StartTime
	dst.RateIntervalInSeconds = r.RateIntervalInSeconds
	dst.DurationNumberOfUnits = r.DurationNumberOfUnits
	dst.CliffVestPercent = r.CliffVestPercent

	dst.FeePaidByTreasurer = r.FeePaidByTreasurer

	dst.LastUpdatedAt = r.LastUpdatedAt
}
