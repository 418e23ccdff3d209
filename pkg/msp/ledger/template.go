package ledger

import (
	"time"

	"github.com/pkg/errors"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/template"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/vesting"
)

// TemplateParams configures a treasury's stream template.
type TemplateParams struct {
	Address string

	// StartTime in unix seconds. Zero means start now.
	StartTime uint64

	RateIntervalInSeconds uint64
	DurationNumberOfUnits uint64
	CliffVestPercent      uint64

	FeePaidByTreasurer bool
}

// CreateTemplate attaches a stream template to a treasury.
func CreateTemplate(t *treasury.Record, params TemplateParams, now time.Time) (*template.Record, error) {
	if params.RateIntervalInSeconds == 0 {
		return nil, ErrInvalidRate
	}
	if params.DurationNumberOfUnits == 0 {
		return nil, errors.Wrap(template.ErrInvalidTemplate, "duration is zero")
	}
	if params.CliffVestPercent > vesting.PercentDenominator {
		return nil, errors.Wrap(ErrInvalidCliff, "cliff percent out of range")
	}

	startTime := params.StartTime
	if startTime == 0 {
		startTime = uint64(now.Unix())
	}

	record := &template.Record{
		Version: template.DataVersion,

		Address:         params.Address,
		TreasuryAddress: t.Address,

		StartTime:             startTime,
		RateIntervalInSeconds: params.RateIntervalInSeconds,
		DurationNumberOfUnits: params.DurationNumberOfUnits,
		CliffVestPercent:      params.CliffVestPercent,

		FeePaidByTreasurer: params.FeePaidByTreasurer,

		LastUpdatedAt: now,
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

// ModifyTemplate updates a treasury's template in place. Only allowed before
// any stream has been created from the treasury, so existing schedules never
// change under a beneficiary.
func ModifyTemplate(t *treasury.Record, tmpl *template.Record, params TemplateParams, now time.Time) error {
	if tmpl.TreasuryAddress != t.Address {
		return errors.Wrap(template.ErrInvalidTemplate, "template does not belong to treasury")
	}
	if t.TotalStreams > 0 {
		return ErrTemplateInUse
	}

	if params.RateIntervalInSeconds == 0 {
		return ErrInvalidRate
	}
	if params.DurationNumberOfUnits == 0 {
		return errors.Wrap(template.ErrInvalidTemplate, "duration is zero")
	}
	if params.CliffVestPercent > vesting.PercentDenominator {
		return errors.Wrap(ErrInvalidCliff, "cliff percent out of range")
	}

	startTime := params.StartTime
	if startTime == 0 {
		startTime = uint64(now.Unix())
	}

	tmpl.StartTime = startTime
	tmpl.RateIntervalInSeconds = params.RateIntervalInSeconds
	tmpl.DurationNumberOfUnits = params.DurationNumberOfUnits
	tmpl.CliffVestPercent = params.CliffVestPercent
	tmpl.FeePaidByTreasurer = params.FeePaidByTreasurer
	tmpl.LastUpdatedAt = now

	return nil
}
