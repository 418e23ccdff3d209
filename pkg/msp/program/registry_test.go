package program

import (
	"bytes"
	"testing"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeStream_LegacyStartTime(t *testing.T) {
	registry := NewDecoderRegistry()
	address := solana.NewWallet().PublicKey()

	// Unmigrated version 1 streams persisted milliseconds.
	record, err := registry.DecodeStream(address, marshalStreamAccount(t, &StreamAccount{
		Version:  StreamDataVersionLegacy,
		StartUtc: 1_700_000_000_000,
	}))
	require.NoError(t, err)
	assert.EqualValues(t, 1_700_000_000, record.StartTime)

	// Migrated ones already carry seconds.
	record, err = registry.DecodeStream(address, marshalStreamAccount(t, &StreamAccount{
		Version:           StreamDataVersionLegacy,
		StartUtc:          1_700_000_000,
		StartUtcInSeconds: 1_700_000_000,
	}))
	require.NoError(t, err)
	assert.EqualValues(t, 1_700_000_000, record.StartTime)
}

func TestDecodeStream_V2(t *testing.T) {
	registry := NewDecoderRegistry()
	address := solana.NewWallet().PublicKey()

	record, err := registry.DecodeStream(address, marshalStreamAccount(t, &StreamAccount{
		Version:           StreamDataVersionV2,
		StartUtc:          1_700_000_000,
		StartUtcInSeconds: 1_700_000_000,
	}))
	require.NoError(t, err)
	assert.EqualValues(t, 1_700_000_000, record.StartTime)
	assert.Equal(t, address.String(), record.Address)
}

func TestDecodeStream_UnsupportedVersion(t *testing.T) {
	registry := NewDecoderRegistry()
	address := solana.NewWallet().PublicKey()

	_, err := registry.DecodeStream(address, marshalStreamAccount(t, &StreamAccount{
		Version: 3,
	}))
	assert.ErrorIs(t, err, ErrUnsupportedDataVersion)
}

func marshalStreamAccount(t *testing.T, account *StreamAccount) []byte {
	var buf bytes.Buffer
	require.NoError(t, account.MarshalWithEncoder(bin.NewBorshEncoder(&buf)))
	return buf.Bytes()
}
