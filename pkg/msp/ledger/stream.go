package ledger

import (
	"time"

	"github.com/pkg/errors"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/template"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/vesting"
)

// CreateStreamParams configures a new stream funded by a treasury.
type CreateStreamParams struct {
	Address string
	Name    string

	BeneficiaryAddress string

	// StartTime in unix seconds. Zero means start now.
	StartTime uint64

	RateAmountUnits       uint64
	RateIntervalInSeconds uint64

	AllocationAssignedUnits uint64

	// At most one of the cliff fields may be set. A percent is resolved to
	// an absolute amount at creation time.
	CliffVestAmountUnits uint64
	CliffVestPercent     uint64

	FeePaidByTreasurer bool

	Category    uint8
	SubCategory uint8
}

// CreateStreamReceipt reports the funds committed by a stream creation.
type CreateStreamReceipt struct {
	AllocatedUnits uint64

	// FeeUnits is charged upfront against the treasury balance when the
	// treasurer covers withdrawal fees for the beneficiary.
	FeeUnits uint64

	FlatFeeLamports uint64
}

// CreateStream validates a stream configuration against its funding
// treasury, commits the allocation, and returns the new stream record.
func CreateStream(t *treasury.Record, params CreateStreamParams, fees *FeeSchedule, now time.Time) (*stream.Record, *CreateStreamReceipt, error) {
	if len(params.BeneficiaryAddress) == 0 || params.BeneficiaryAddress == t.TreasurerAddress {
		return nil, nil, ErrInvalidBeneficiary
	}

	if err := validateRateAndCliff(params); err != nil {
		return nil, nil, err
	}

	cliff := params.CliffVestAmountUnits
	if params.CliffVestPercent > 0 {
		var err error
		cliff, err = vesting.MulDiv(params.CliffVestPercent, params.AllocationAssignedUnits, vesting.PercentDenominator)
		if err != nil {
			return nil, nil, err
		}
	}
	if cliff > params.AllocationAssignedUnits {
		return nil, nil, errors.Wrap(ErrInvalidCliff, "cliff exceeds allocation")
	}

	var fee uint64
	if params.FeePaidByTreasurer {
		var err error
		fee, err = fees.withdrawFee(params.AllocationAssignedUnits)
		if err != nil {
			return nil, nil, err
		}
	}

	required, err := vesting.CheckedAdd(params.AllocationAssignedUnits, fee)
	if err != nil {
		return nil, nil, err
	}
	unallocated, err := t.UnallocatedBalance()
	if err != nil {
		return nil, nil, err
	}
	if required > unallocated {
		return nil, nil, ErrInsufficientBalance
	}

	startTime := params.StartTime
	if startTime == 0 {
		startTime = uint64(now.Unix())
	}

	record := &stream.Record{
		Version: stream.DataVersion,

		Address: params.Address,
		Name:    params.Name,

		TreasurerAddress:   t.TreasurerAddress,
		BeneficiaryAddress: params.BeneficiaryAddress,
		TreasuryAddress:    t.Address,
		MintAddress:        t.MintAddress,

		RateAmountUnits:       params.RateAmountUnits,
		RateIntervalInSeconds: params.RateIntervalInSeconds,

		StartTime: startTime,

		CliffVestAmountUnits: cliff,

		AllocationAssignedUnits: params.AllocationAssignedUnits,

		FeePaidByTreasurer: params.FeePaidByTreasurer,

		Category:    params.Category,
		SubCategory: params.SubCategory,

		CreatedAt:     now,
		LastUpdatedAt: now,
	}
	if err := record.Validate(); err != nil {
		return nil, nil, err
	}

	newAllocation, err := vesting.CheckedAdd(t.AllocationAssignedUnits, params.AllocationAssignedUnits)
	if err != nil {
		return nil, nil, err
	}

	t.AllocationAssignedUnits = newAllocation
	t.BalanceUnits -= fee
	t.TotalStreams += 1
	t.LastUpdatedAt = now

	return record, &CreateStreamReceipt{
		AllocatedUnits:  params.AllocationAssignedUnits,
		FeeUnits:        fee,
		FlatFeeLamports: fees.CreateStreamFlatLamports,
	}, nil
}

// CreateStreamFromTemplate stamps out a stream using the treasury's
// template. The rate amount is derived so the allocation vests evenly over
// the template's configured duration, after the cliff.
func CreateStreamFromTemplate(t *treasury.Record, tmpl *template.Record, params CreateStreamParams, fees *FeeSchedule, now time.Time) (*stream.Record, *CreateStreamReceipt, error) {
	if tmpl.TreasuryAddress != t.Address {
		return nil, nil, errors.Wrap(template.ErrInvalidTemplate, "template does not belong to treasury")
	}

	cliff, err := vesting.MulDiv(tmpl.CliffVestPercent, params.AllocationAssignedUnits, vesting.PercentDenominator)
	if err != nil {
		return nil, nil, err
	}
	streamable, err := vesting.CheckedSub(params.AllocationAssignedUnits, cliff)
	if err != nil {
		return nil, nil, errors.Wrap(ErrInvalidCliff, "cliff exceeds allocation")
	}
	if tmpl.DurationNumberOfUnits == 0 {
		return nil, nil, errors.Wrap(template.ErrInvalidTemplate, "duration is zero")
	}
	rateAmount := streamable / tmpl.DurationNumberOfUnits

	params.StartTime = tmpl.StartTime
	params.RateAmountUnits = rateAmount
	params.RateIntervalInSeconds = tmpl.RateIntervalInSeconds
	params.CliffVestAmountUnits = 0
	params.CliffVestPercent = tmpl.CliffVestPercent
	params.FeePaidByTreasurer = tmpl.FeePaidByTreasurer

	return CreateStream(t, params, fees, now)
}

// TransferStreamReceipt reports a beneficiary change.
type TransferStreamReceipt struct {
	PreviousBeneficiary string
	NewBeneficiary      string
	FlatFeeLamports     uint64
}

// TransferStream reassigns the stream's beneficiary. Vested and unvested
// amounts carry over unchanged.
func TransferStream(s *stream.Record, newBeneficiary string, fees *FeeSchedule, now time.Time) (*TransferStreamReceipt, error) {
	if len(newBeneficiary) == 0 || newBeneficiary == s.TreasurerAddress {
		return nil, ErrInvalidBeneficiary
	}

	receipt := &TransferStreamReceipt{
		PreviousBeneficiary: s.BeneficiaryAddress,
		NewBeneficiary:      newBeneficiary,
		FlatFeeLamports:     fees.TransferStreamFlatLamports,
	}

	s.BeneficiaryAddress = newBeneficiary
	s.LastUpdatedAt = now

	return receipt, nil
}

func validateRateAndCliff(params CreateStreamParams) error {
	oneTimePayment := params.RateAmountUnits == 0 && params.RateIntervalInSeconds == 0 &&
		params.CliffVestAmountUnits > 0 && params.CliffVestAmountUnits == params.AllocationAssignedUnits
	rated := params.RateAmountUnits > 0 && params.RateIntervalInSeconds > 0
	if !oneTimePayment && !rated {
		return ErrInvalidRate
	}

	if params.CliffVestPercent > vesting.PercentDenominator {
		return errors.Wrap(ErrInvalidCliff, "cliff percent out of range")
	}
	if params.CliffVestAmountUnits > 0 && params.CliffVestPercent > 0 {
		return errors.Wrap(ErrInvalidCliff, "cliff amount and percent are mutually exclusive")
	}

	return nil
}

// saveEffectiveCliff resolves a legacy percent-based cliff into an absolute
// amount before any mutation, so later allocation changes don't retroactively
// move the cliff.
func saveEffectiveCliff(s *stream.Record) error {
	if s.CliffVestPercent == 0 {
		return nil
	}

	cliff, err := vesting.MulDiv(s.CliffVestPercent, s.AllocationAssignedUnits, vesting.PercentDenominator)
	if err != nil {
		return err
	}

	s.CliffVestAmountUnits = cliff
	s.CliffVestPercent = 0
	return nil
}
