package streaming

import (
	"context"

	"github.com/mean-dao/payment-streaming-server/pkg/currency"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/vesting"
)

// Used when no mint decimals resolver is configured. Matches the common SPL
// stablecoin mints.
const defaultMintDecimals = uint8(6)

// Stream pairs a stored stream record with its derived state at read time.
type Stream struct {
	Record *stream.Record
	View   *vesting.StreamView

	// Decimal renderings of the view's unit amounts against the mint's
	// decimals.
	WithdrawableAmount        string
	RemainingAllocationAmount string
}

// Treasury pairs a stored treasury record with its derived state.
type Treasury struct {
	Record *treasury.Record

	UnallocatedBalanceUnits uint64

	BalanceAmount            string
	UnallocatedBalanceAmount string
}

// GetStream returns a stream with its state derived at the current time.
func (s *Service) GetStream(ctx context.Context, address string) (*Stream, error) {
	record, err := s.data.GetStreamByAddress(ctx, address)
	if err != nil {
		return nil, err
	}
	return s.toStream(record)
}

// GetStreamsByBeneficiary returns every stream paying out to a beneficiary.
func (s *Service) GetStreamsByBeneficiary(ctx context.Context, beneficiary string) ([]*Stream, error) {
	records, err := s.data.GetAllStreamsByBeneficiary(ctx, beneficiary)
	if err != nil {
		return nil, err
	}
	return s.toStreams(records)
}

// GetStreamsByTreasury returns every stream funded by a treasury.
func (s *Service) GetStreamsByTreasury(ctx context.Context, treasuryAddress string) ([]*Stream, error) {
	records, err := s.data.GetAllStreamsByTreasury(ctx, treasuryAddress)
	if err != nil {
		return nil, err
	}
	return s.toStreams(records)
}

// GetTreasury returns a treasury with its derived state.
func (s *Service) GetTreasury(ctx context.Context, address string) (*Treasury, error) {
	record, err := s.data.GetTreasuryByAddress(ctx, address)
	if err != nil {
		return nil, err
	}

	return s.toTreasury(record)
}

// GetTreasuriesByTreasurer returns every treasury owned by a treasurer.
func (s *Service) GetTreasuriesByTreasurer(ctx context.Context, treasurer string) ([]*Treasury, error) {
	records, err := s.data.GetAllTreasuriesByTreasurer(ctx, treasurer)
	if err != nil {
		return nil, err
	}

	res := make([]*Treasury, len(records))
	for i, record := range records {
		item, err := s.toTreasury(record)
		if err != nil {
			return nil, err
		}
		res[i] = item
	}
	return res, nil
}

func (s *Service) toStream(record *stream.Record) (*Stream, error) {
	view, err := vesting.GetStreamView(record, uint64(s.nowFunc().Unix()))
	if err != nil {
		return nil, err
	}

	decimals := s.decimalsFor(record.MintAddress)
	return &Stream{
		Record: record,
		View:   view,

		WithdrawableAmount:        currency.FormatUnits(view.WithdrawableUnits, decimals),
		RemainingAllocationAmount: currency.FormatUnits(view.RemainingAllocationUnits, decimals),
	}, nil
}

func (s *Service) toTreasury(record *treasury.Record) (*Treasury, error) {
	unallocated, err := record.UnallocatedBalance()
	if err != nil {
		return nil, err
	}

	decimals := s.decimalsFor(record.MintAddress)
	return &Treasury{
		Record: record,

		UnallocatedBalanceUnits: unallocated,

		BalanceAmount:            currency.FormatUnits(record.BalanceUnits, decimals),
		UnallocatedBalanceAmount: currency.FormatUnits(unallocated, decimals),
	}, nil
}

func (s *Service) decimalsFor(mintAddress string) uint8 {
	if s.mintDecimals != nil {
		return s.mintDecimals(mintAddress)
	}
	return defaultMintDecimals
}

func (s *Service) toStreams(records []*stream.Record) ([]*Stream, error) {
	res := make([]*Stream, len(records))
	for i, record := range records {
		item, err := s.toStream(record)
		if err != nil {
			return nil, err
		}
		res[i] = item
	}
	return res, nil
}
