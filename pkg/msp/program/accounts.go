package program

import (
	"strings"
	"time"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/template"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
)

// Account discriminators, the first 8 bytes of sha256("account:<Name>").
var (
	StreamDiscriminator         = bin.TypeID{166, 224, 59, 4, 202, 10, 186, 83}
	TreasuryDiscriminator       = bin.TypeID{238, 239, 123, 238, 89, 1, 168, 253}
	StreamTemplateDiscriminator = bin.TypeID{217, 219, 186, 252, 167, 111, 7, 50}
)

var (
	ErrUnexpectedDiscriminator = errors.New("unexpected account discriminator")
	ErrNameTooLong             = errors.New("name exceeds 32 bytes")
)

// StreamAccount is the on-chain stream account. Field order matches the
// program's borsh layout exactly and must not be changed.
type StreamAccount struct {
	Version                                      uint8
	Initialized                                  bool
	Name                                         [32]uint8
	TreasurerAddress                             solana.PublicKey
	RateAmountUnits                              uint64
	RateIntervalInSeconds                        uint64
	StartUtc                                     uint64
	CliffVestAmountUnits                         uint64
	CliffVestPercent                             uint64
	BeneficiaryAddress                           solana.PublicKey
	BeneficiaryAssociatedToken                   solana.PublicKey
	TreasuryAddress                              solana.PublicKey
	AllocationAssignedUnits                      uint64
	AllocationReservedUnits                      uint64
	TotalWithdrawalsUnits                        uint64
	LastWithdrawalUnits                          uint64
	LastWithdrawalSlot                           uint64
	LastWithdrawalBlockTime                      uint64
	LastManualStopWithdrawableUnitsSnap          uint64
	LastManualStopSlot                           uint64
	LastManualStopBlockTime                      uint64
	LastManualResumeRemainingAllocationUnitsSnap uint64
	LastManualResumeSlot                         uint64
	LastManualResumeBlockTime                    uint64
	LastKnownTotalSecondsInPausedStatus          uint64
	LastAutoStopBlockTime                        uint64
	FeePayedByTreasurer                          bool
	StartUtcInSeconds                            uint64
	CreatedOnUtc                                 uint64
}

// TreasuryAccount is the on-chain treasury account.
type TreasuryAccount struct {
	Initialized               bool
	Version                   uint8
	Bump                      uint8
	Slot                      uint64
	Name                      [32]uint8
	TreasurerAddress          solana.PublicKey
	AssociatedTokenAddress    solana.PublicKey
	MintAddress               solana.PublicKey
	Labels                    []string
	LastKnownBalanceUnits     uint64
	LastKnownBalanceSlot      uint64
	LastKnownBalanceBlockTime uint64
	AllocationAssignedUnits   uint64
	AllocationReservedUnits   uint64
	TotalWithdrawalsUnits     uint64
	TotalStreams              uint64
	CreatedOnUtc              uint64
	TreasuryType              uint8
	AutoClose                 bool
	SolFeePayedByTreasury     bool
	Category                  uint8
}

// StreamTemplateAccount is the on-chain stream template account.
type StreamTemplateAccount struct {
	Version               uint8
	Bump                  uint8
	StartUtcInSeconds     uint64
	CliffVestPercent      uint64
	RateIntervalInSeconds uint64
	DurationNumberOfUnits uint64
	FeePayedByTreasurer   bool
}

func (obj *StreamAccount) fields() []interface{} {
	return []interface{}{
		&obj.Version,
		&obj.Initialized,
		&obj.Name,
		&obj.TreasurerAddress,
		&obj.RateAmountUnits,
		&obj.RateIntervalInSeconds,
		&obj.StartUtc,
		&obj.CliffVestAmountUnits,
		&obj.CliffVestPercent,
		&obj.BeneficiaryAddress,
		&obj.BeneficiaryAssociatedToken,
		&obj.TreasuryAddress,
		&obj.AllocationAssignedUnits,
		&obj.AllocationReservedUnits,
		&obj.TotalWithdrawalsUnits,
		&obj.LastWithdrawalUnits,
		&obj.LastWithdrawalSlot,
		&obj.LastWithdrawalBlockTime,
		&obj.LastManualStopWithdrawableUnitsSnap,
		&obj.LastManualStopSlot,
		&obj.LastManualStopBlockTime,
		&obj.LastManualResumeRemainingAllocationUnitsSnap,
		&obj.LastManualResumeSlot,
		&obj.LastManualResumeBlockTime,
		&obj.LastKnownTotalSecondsInPausedStatus,
		&obj.LastAutoStopBlockTime,
		&obj.FeePayedByTreasurer,
		&obj.StartUtcInSeconds,
		&obj.CreatedOnUtc,
	}
}

func (obj *TreasuryAccount) fields() []interface{} {
	return []interface{}{
		&obj.Initialized,
		&obj.Version,
		&obj.Bump,
		&obj.Slot,
		&obj.Name,
		&obj.TreasurerAddress,
		&obj.AssociatedTokenAddress,
		&obj.MintAddress,
		&obj.Labels,
		&obj.LastKnownBalanceUnits,
		&obj.LastKnownBalanceSlot,
		&obj.LastKnownBalanceBlockTime,
		&obj.AllocationAssignedUnits,
		&obj.AllocationReservedUnits,
		&obj.TotalWithdrawalsUnits,
		&obj.TotalStreams,
		&obj.CreatedOnUtc,
		&obj.TreasuryType,
		&obj.AutoClose,
		&obj.SolFeePayedByTreasury,
		&obj.Category,
	}
}

func (obj *StreamTemplateAccount) fields() []interface{} {
	return []interface{}{
		&obj.Version,
		&obj.Bump,
		&obj.StartUtcInSeconds,
		&obj.CliffVestPercent,
		&obj.RateIntervalInSeconds,
		&obj.DurationNumberOfUnits,
		&obj.FeePayedByTreasurer,
	}
}

func (obj *StreamAccount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	return decodeAccount(decoder, StreamDiscriminator, obj.fields())
}

func (obj *StreamAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encodeAccount(encoder, StreamDiscriminator, obj.fields())
}

func (obj *TreasuryAccount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	return decodeAccount(decoder, TreasuryDiscriminator, obj.fields())
}

func (obj *TreasuryAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encodeAccount(encoder, TreasuryDiscriminator, obj.fields())
}

func (obj *StreamTemplateAccount) UnmarshalWithDecoder(decoder *bin.Decoder) error {
	return decodeAccount(decoder, StreamTemplateDiscriminator, obj.fields())
}

func (obj *StreamTemplateAccount) MarshalWithEncoder(encoder *bin.Encoder) error {
	return encodeAccount(encoder, StreamTemplateDiscriminator, obj.fields())
}

func decodeAccount(decoder *bin.Decoder, discriminator bin.TypeID, fields []interface{}) error {
	read, err := decoder.ReadTypeID()
	if err != nil {
		return errors.Wrap(err, "failed to read account discriminator")
	}

	if read != discriminator {
		return ErrUnexpectedDiscriminator
	}

	for _, field := range fields {
		if err := decoder.Decode(field); err != nil {
			return errors.Wrap(err, "failed to decode account field")
		}
	}
	return nil
}

func encodeAccount(encoder *bin.Encoder, discriminator bin.TypeID, fields []interface{}) error {
	if err := encoder.WriteBytes(discriminator[:], false); err != nil {
		return errors.Wrap(err, "failed to write account discriminator")
	}

	for _, field := range fields {
		if err := encoder.Encode(field); err != nil {
			return errors.Wrap(err, "failed to encode account field")
		}
	}
	return nil
}

// ParseStreamAccount deserializes a stream account from raw account data.
func ParseStreamAccount(data []byte) (*StreamAccount, error) {
	var account StreamAccount
	if err := account.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return &account, nil
}

// ParseTreasuryAccount deserializes a treasury account from raw account data.
func ParseTreasuryAccount(data []byte) (*TreasuryAccount, error) {
	var account TreasuryAccount
	if err := account.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return &account, nil
}

// ParseStreamTemplateAccount deserializes a stream template account from raw
// account data.
func ParseStreamTemplateAccount(data []byte) (*StreamTemplateAccount, error) {
	var account StreamTemplateAccount
	if err := account.UnmarshalWithDecoder(bin.NewBorshDecoder(data)); err != nil {
		return nil, err
	}
	return &account, nil
}

// ToRecord converts the on-chain account into a stream record. The account
// address isn't part of the account data, so the caller provides it. StartUtc
// is taken at face value; version specific normalization lives in the
// DecoderRegistry.
func (obj *StreamAccount) ToRecord(address solana.PublicKey) *stream.Record {
	return &stream.Record{
		Version: obj.Version,

		Address: address.String(),
		Name:    unpackName(obj.Name),

		TreasurerAddress:   obj.TreasurerAddress.String(),
		BeneficiaryAddress: obj.BeneficiaryAddress.String(),
		TreasuryAddress:    obj.TreasuryAddress.String(),
		// Version 2 streams persist the treasury mint here.
		MintAddress: obj.BeneficiaryAssociatedToken.String(),

		RateAmountUnits:       obj.RateAmountUnits,
		RateIntervalInSeconds: obj.RateIntervalInSeconds,

		StartTime: obj.StartUtc,

		CliffVestAmountUnits: obj.CliffVestAmountUnits,
		CliffVestPercent:     obj.CliffVestPercent,

		AllocationAssignedUnits: obj.AllocationAssignedUnits,
		TotalWithdrawalsUnits:   obj.TotalWithdrawalsUnits,

		LastWithdrawalUnits: obj.LastWithdrawalUnits,
		LastWithdrawalTime:  obj.LastWithdrawalBlockTime,

		LastManualStopWithdrawableSnap: obj.LastManualStopWithdrawableUnitsSnap,
		LastManualStopTime:             obj.LastManualStopBlockTime,

		LastManualResumeRemainingAllocationSnap: obj.LastManualResumeRemainingAllocationUnitsSnap,
		LastManualResumeTime:                    obj.LastManualResumeBlockTime,

		TotalSecondsPaused: obj.LastKnownTotalSecondsInPausedStatus,
		LastAutoStopTime:   obj.LastAutoStopBlockTime,

		FeePaidByTreasurer: obj.FeePayedByTreasurer,

		CreatedAt: time.Unix(int64(obj.CreatedOnUtc), 0),
	}
}

// ToRecord converts the on-chain account into a treasury record.
func (obj *TreasuryAccount) ToRecord(address solana.PublicKey) *treasury.Record {
	return &treasury.Record{
		Version: obj.Version,

		Address: address.String(),
		Name:    unpackName(obj.Name),

		TreasurerAddress: obj.TreasurerAddress.String(),
		MintAddress:      obj.MintAddress.String(),

		BalanceUnits:            obj.LastKnownBalanceUnits,
		AllocationAssignedUnits: obj.AllocationAssignedUnits,
		TotalWithdrawalsUnits:   obj.TotalWithdrawalsUnits,
		TotalStreams:            obj.TotalStreams,

		Type:      treasury.Type(obj.TreasuryType),
		AutoClose: obj.AutoClose,

		SolFeePaidByTreasury: obj.SolFeePayedByTreasury,

		Category: obj.Category,

		CreatedAt: time.Unix(int64(obj.CreatedOnUtc), 0),
	}
}

// ToRecord converts the on-chain account into a template record. Neither the
// template address nor its treasury are part of the account data, so the
// caller provides both.
func (obj *StreamTemplateAccount) ToRecord(address, treasuryAddress solana.PublicKey) *template.Record {
	return &template.Record{
		Version: obj.Version,

		Address:         address.String(),
		TreasuryAddress: treasuryAddress.String(),

		StartTime:             obj.StartUtcInSeconds,
		RateIntervalInSeconds: obj.RateIntervalInSeconds,
		DurationNumberOfUnits: obj.DurationNumberOfUnits,
		CliffVestPercent:      obj.CliffVestPercent,

		FeePaidByTreasurer: obj.FeePayedByTreasurer,
	}
}

// packName encodes a name into the program's fixed 32-byte buffer, which is
// space padded.
func packName(name string) ([32]uint8, error) {
	var packed [32]uint8
	if len(name) > len(packed) {
		return packed, ErrNameTooLong
	}

	for i := range packed {
		packed[i] = ' '
	}
	copy(packed[:], name)

	return packed, nil
}

func unpackName(packed [32]uint8) string {
	return strings.TrimRight(string(packed[:]), " \x00")
}
