package program

import (
	"encoding/binary"

	"github.com/gagliardetto/solana-go"
	"github.com/pkg/errors"
)

var (
	// ID is the address of the payment streaming program.
	ID = solana.MustPublicKeyFromBase58("MSPCUMbLfy2MeT6geLMMzrUkv1Tx88XRApaVRdyxTuu")

	// FeeTreasury is the protocol account that collects flat and percent fees.
	FeeTreasury = solana.MustPublicKeyFromBase58("3TD6SWY9M1mLY2kZWJNavPLhwXvcRsWdnZLRaMzERJBw")
)

var (
	templateSeedPrefix = []byte("template")
	streamSeedPrefix   = []byte("stream")
)

var ErrInvalidAddress = errors.New("invalid address")

// GetTreasuryAddress derives the treasury PDA for a treasurer and the slot
// captured at creation time.
func GetTreasuryAddress(treasurer solana.PublicKey, slot uint64) (solana.PublicKey, uint8, error) {
	slotBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(slotBytes, slot)

	return solana.FindProgramAddress(
		[][]byte{
			treasurer.Bytes(),
			slotBytes,
		},
		ID,
	)
}

// GetTemplateAddress derives the stream template PDA for a treasury. A
// treasury has at most one template.
func GetTemplateAddress(treasury solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			templateSeedPrefix,
			treasury.Bytes(),
		},
		ID,
	)
}

// GetStreamAddress derives the stream PDA for a treasury and the one-time
// seed account used at creation time.
func GetStreamAddress(treasury, seed solana.PublicKey) (solana.PublicKey, uint8, error) {
	return solana.FindProgramAddress(
		[][]byte{
			streamSeedPrefix,
			treasury.Bytes(),
			seed.Bytes(),
		},
		ID,
	)
}
