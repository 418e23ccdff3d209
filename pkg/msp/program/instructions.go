package program

import (
	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

// InstructionType identifies a payment streaming program instruction.
type InstructionType uint8

const (
	InstructionTypeUnknown InstructionType = iota
	InstructionTypeCreateTreasury
	InstructionTypeCreateStream
	InstructionTypeCreateStreamTemplate
	InstructionTypeModifyStreamTemplate
	InstructionTypeCreateTreasuryAndTemplate
	InstructionTypeCreateStreamWithTemplate
	InstructionTypeWithdraw
	InstructionTypePauseStream
	InstructionTypeResumeStream
	InstructionTypeRefreshTreasuryData
	InstructionTypeTransferStream
	InstructionTypeGetStream
	InstructionTypeAddFunds
	InstructionTypeAllocate
	InstructionTypeCloseStream
	InstructionTypeCloseTreasury
	InstructionTypeTreasuryWithdraw
)

func (t InstructionType) String() string {
	switch t {
	case InstructionTypeCreateTreasury:
		return "create_treasury"
	case InstructionTypeCreateStream:
		return "create_stream"
	case InstructionTypeCreateStreamTemplate:
		return "create_stream_template"
	case InstructionTypeModifyStreamTemplate:
		return "modify_stream_template"
	case InstructionTypeCreateTreasuryAndTemplate:
		return "create_treasury_and_template"
	case InstructionTypeCreateStreamWithTemplate:
		return "create_stream_with_template"
	case InstructionTypeWithdraw:
		return "withdraw"
	case InstructionTypePauseStream:
		return "pause_stream"
	case InstructionTypeResumeStream:
		return "resume_stream"
	case InstructionTypeRefreshTreasuryData:
		return "refresh_treasury_data"
	case InstructionTypeTransferStream:
		return "transfer_stream"
	case InstructionTypeGetStream:
		return "get_stream"
	case InstructionTypeAddFunds:
		return "add_funds"
	case InstructionTypeAllocate:
		return "allocate"
	case InstructionTypeCloseStream:
		return "close_stream"
	case InstructionTypeCloseTreasury:
		return "close_treasury"
	case InstructionTypeTreasuryWithdraw:
		return "treasury_withdraw"
	}
	return "unknown"
}

// Instruction discriminators, the first 8 bytes of sha256("global:<name>").
var instructionDiscriminators = map[bin.TypeID]InstructionType{
	{254, 98, 217, 51, 25, 88, 140, 45}:     InstructionTypeCreateTreasury,
	{71, 188, 111, 127, 108, 40, 229, 158}:  InstructionTypeCreateStream,
	{70, 187, 0, 160, 255, 175, 100, 20}:    InstructionTypeCreateStreamTemplate,
	{66, 58, 99, 72, 196, 251, 195, 122}:    InstructionTypeModifyStreamTemplate,
	{226, 47, 170, 123, 225, 11, 111, 168}:  InstructionTypeCreateTreasuryAndTemplate,
	{219, 203, 72, 125, 110, 18, 202, 152}:  InstructionTypeCreateStreamWithTemplate,
	{183, 18, 70, 156, 148, 109, 161, 34}:   InstructionTypeWithdraw,
	{245, 31, 118, 229, 0, 108, 166, 82}:    InstructionTypePauseStream,
	{193, 187, 211, 115, 119, 76, 178, 68}:  InstructionTypeResumeStream,
	{92, 171, 49, 215, 235, 221, 96, 102}:   InstructionTypeRefreshTreasuryData,
	{247, 122, 103, 172, 236, 35, 228, 204}: InstructionTypeTransferStream,
	{34, 187, 165, 230, 65, 189, 220, 222}:  InstructionTypeGetStream,
	{132, 237, 76, 57, 80, 10, 179, 138}:    InstructionTypeAddFunds,
	{64, 38, 189, 129, 24, 157, 82, 136}:    InstructionTypeAllocate,
	{255, 241, 196, 212, 95, 93, 160, 89}:   InstructionTypeCloseStream,
	{113, 239, 0, 73, 12, 113, 171, 43}:     InstructionTypeCloseTreasury,
	{30, 233, 243, 18, 126, 208, 181, 212}:  InstructionTypeTreasuryWithdraw,
}

var ErrNotStreamingInstruction = errors.New("not a payment streaming instruction")

// CreateTreasuryArgs are the borsh-encoded arguments of create_treasury.
type CreateTreasuryArgs struct {
	IdlFileVersion        uint8
	Slot                  uint64
	Name                  string
	TreasuryType          uint8
	AutoClose             bool
	SolFeePayedByTreasury bool
	Category              uint8
	SubCategory           uint8
}

// CreateStreamArgs are the borsh-encoded arguments of create_stream.
type CreateStreamArgs struct {
	IdlFileVersion          uint8
	Name                    string
	StartUtc                uint64
	RateAmountUnits         uint64
	RateIntervalInSeconds   uint64
	AllocationAssignedUnits uint64
	CliffVestAmountUnits    uint64
	CliffVestPercent        uint64
	FeePayedByTreasurer     bool
}

// CreateTreasuryAndTemplateArgs are the borsh-encoded arguments of
// create_treasury_and_template.
type CreateTreasuryAndTemplateArgs struct {
	IdlFileVersion        uint8
	Name                  string
	TreasuryType          uint8
	AutoClose             bool
	SolFeePayedByTreasury bool
	Category              uint8
	SubCategory           uint8
	StartUtc              uint64
	RateIntervalInSeconds uint64
	DurationNumberOfUnits uint64
	CliffVestPercent      uint64
	FeePayedByTreasurer   bool
	Slot                  uint64
}

// StreamTemplateArgs are the borsh-encoded arguments shared by
// create_stream_template and modify_stream_template.
type StreamTemplateArgs struct {
	IdlFileVersion        uint8
	StartUtc              uint64
	RateIntervalInSeconds uint64
	DurationNumberOfUnits uint64
	CliffVestPercent      uint64
	FeePayedByTreasurer   bool
}

// CreateStreamWithTemplateArgs are the borsh-encoded arguments of
// create_stream_with_template.
type CreateStreamWithTemplateArgs struct {
	IdlFileVersion          uint8
	Name                    string
	RateAmountUnits         uint64
	AllocationAssignedUnits uint64
}

// TransferStreamArgs are the borsh-encoded arguments of transfer_stream.
type TransferStreamArgs struct {
	IdlFileVersion uint8
	NewBeneficiary solana.PublicKey
}

// AmountArgs are the borsh-encoded arguments shared by withdraw, add_funds,
// allocate and treasury_withdraw.
type AmountArgs struct {
	IdlFileVersion uint8
	Amount         uint64
}

// ParsedInstruction is a decoded payment streaming program instruction.
type ParsedInstruction struct {
	Type InstructionType

	// Args holds the decoded argument struct for instructions that carry
	// arguments beyond the IDL file version, and is nil otherwise.
	Args interface{}
}

// GetInstructionType returns the instruction identified by the leading
// discriminator, without decoding arguments.
func GetInstructionType(data []byte) InstructionType {
	if len(data) < 8 {
		return InstructionTypeUnknown
	}

	var discriminator bin.TypeID
	copy(discriminator[:], data)

	return instructionDiscriminators[discriminator]
}

// ParseInstruction decodes a payment streaming program instruction observed
// in a transaction.
func ParseInstruction(data []byte) (*ParsedInstruction, error) {
	instructionType := GetInstructionType(data)
	if instructionType == InstructionTypeUnknown {
		return nil, ErrNotStreamingInstruction
	}

	parsed := &ParsedInstruction{
		Type: instructionType,
	}

	switch instructionType {
	case InstructionTypeCreateTreasury:
		parsed.Args = new(CreateTreasuryArgs)
	case InstructionTypeCreateStream:
		parsed.Args = new(CreateStreamArgs)
	case InstructionTypeCreateStreamTemplate, InstructionTypeModifyStreamTemplate:
		parsed.Args = new(StreamTemplateArgs)
	case InstructionTypeCreateTreasuryAndTemplate:
		parsed.Args = new(CreateTreasuryAndTemplateArgs)
	case InstructionTypeCreateStreamWithTemplate:
		parsed.Args = new(CreateStreamWithTemplateArgs)
	case InstructionTypeTransferStream:
		parsed.Args = new(TransferStreamArgs)
	case InstructionTypeWithdraw, InstructionTypeAddFunds, InstructionTypeAllocate, InstructionTypeTreasuryWithdraw:
		parsed.Args = new(AmountArgs)
	default:
		return parsed, nil
	}

	if err := bin.NewBorshDecoder(data[8:]).Decode(parsed.Args); err != nil {
		return nil, errors.Wrapf(err, "failed to decode %s arguments", instructionType)
	}
	return parsed, nil
}
