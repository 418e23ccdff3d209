package program

import (
	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
)

// Stream account data versions the program has shipped.
const (
	StreamDataVersionLegacy = uint8(1)
	StreamDataVersionV2     = uint8(2)
)

var ErrUnsupportedDataVersion = errors.New("unsupported account data version")

type streamDecodeFunc func(address solana.PublicKey, account *StreamAccount) *stream.Record

// DecoderRegistry maps account data versions to the decoder that handles
// that version's layout quirks. Treasuries and templates have a single
// layout, so only streams are versioned. The registry is built once at
// startup and handed to whatever reads accounts.
type DecoderRegistry struct {
	streamDecoders map[uint8]streamDecodeFunc
}

// NewDecoderRegistry returns a registry covering every known data version.
func NewDecoderRegistry() *DecoderRegistry {
	return &DecoderRegistry{
		streamDecoders: map[uint8]streamDecodeFunc{
			StreamDataVersionLegacy: decodeLegacyStream,
			StreamDataVersionV2:     decodeStreamV2,
		},
	}
}

// DecodeStream deserializes raw stream account data and maps it into a
// record using the decoder registered for its version.
func (r *DecoderRegistry) DecodeStream(address solana.PublicKey, data []byte) (*stream.Record, error) {
	account, err := ParseStreamAccount(data)
	if err != nil {
		return nil, err
	}

	decode, ok := r.streamDecoders[account.Version]
	if !ok {
		return nil, errors.Wrapf(ErrUnsupportedDataVersion, "stream version %d", account.Version)
	}
	return decode(address, account), nil
}

// Version 1 streams persisted the start time in milliseconds. Accounts the
// program has since migrated carry StartUtcInSeconds > 0 and an already
// rewritten StartUtc, so only unmigrated ones need the conversion.
func decodeLegacyStream(address solana.PublicKey, account *StreamAccount) *stream.Record {
	record := account.ToRecord(address)
	if account.StartUtcInSeconds == 0 {
		record.StartTime = account.StartUtc / 1000
	}
	return record
}

func decodeStreamV2(address solana.PublicKey, account *StreamAccount) *stream.Record {
	return account.ToRecord(address)
}
