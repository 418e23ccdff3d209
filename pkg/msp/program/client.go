package program

import (
	"context"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/template"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
)

// Account data offsets used for memcmp filters. They include the 8-byte
// discriminator.
const (
	streamTreasurerOffset   = 42
	streamBeneficiaryOffset = 114
	streamTreasuryOffset    = 178

	treasuryTreasurerOffset = 51
)

// Client reads payment streaming accounts from the chain and maps them into
// records.
type Client struct {
	log      *logrus.Entry
	rpc      *rpc.Client
	decoders *DecoderRegistry
}

// NewClient returns a client for the provided RPC endpoint, decoding
// accounts through the given registry.
func NewClient(endpoint string, decoders *DecoderRegistry) *Client {
	return &Client{
		log:      logrus.StandardLogger().WithField("type", "msp/program/client"),
		rpc:      rpc.New(endpoint),
		decoders: decoders,
	}
}

// GetStream fetches and decodes a stream account.
func (c *Client) GetStream(ctx context.Context, address solana.PublicKey) (*stream.Record, error) {
	data, err := c.getAccountData(ctx, address)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, stream.ErrStreamNotFound
	}

	return c.decoders.DecodeStream(address, data)
}

// GetTreasury fetches and decodes a treasury account.
func (c *Client) GetTreasury(ctx context.Context, address solana.PublicKey) (*treasury.Record, error) {
	data, err := c.getAccountData(ctx, address)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, treasury.ErrTreasuryNotFound
	}

	account, err := ParseTreasuryAccount(data)
	if err != nil {
		return nil, err
	}
	return account.ToRecord(address), nil
}

// GetTemplate fetches and decodes the stream template attached to a
// treasury, deriving the template address from the treasury.
func (c *Client) GetTemplate(ctx context.Context, treasuryAddress solana.PublicKey) (*template.Record, error) {
	address, _, err := GetTemplateAddress(treasuryAddress)
	if err != nil {
		return nil, errors.Wrap(err, "failed to derive template address")
	}

	data, err := c.getAccountData(ctx, address)
	if err != nil {
		return nil, err
	}
	if data == nil {
		return nil, template.ErrTemplateNotFound
	}

	account, err := ParseStreamTemplateAccount(data)
	if err != nil {
		return nil, err
	}
	return account.ToRecord(address, treasuryAddress), nil
}

// GetStreamsByTreasury fetches every stream account funded by a treasury.
func (c *Client) GetStreamsByTreasury(ctx context.Context, treasuryAddress solana.PublicKey) ([]*stream.Record, error) {
	return c.getStreams(ctx, streamTreasuryOffset, treasuryAddress)
}

// GetStreamsByBeneficiary fetches every stream account paying a beneficiary.
func (c *Client) GetStreamsByBeneficiary(ctx context.Context, beneficiary solana.PublicKey) ([]*stream.Record, error) {
	return c.getStreams(ctx, streamBeneficiaryOffset, beneficiary)
}

// GetTreasuriesByTreasurer fetches every treasury account owned by a
// treasurer.
func (c *Client) GetTreasuriesByTreasurer(ctx context.Context, treasurer solana.PublicKey) ([]*treasury.Record, error) {
	resp, err := c.getProgramAccounts(ctx, TreasuryDiscriminator, treasuryTreasurerOffset, treasurer)
	if err != nil {
		return nil, err
	}

	var records []*treasury.Record
	for _, item := range resp {
		account, err := ParseTreasuryAccount(item.Account.Data.GetBinary())
		if err != nil {
			c.log.WithError(err).WithField("address", item.Pubkey.String()).Warn("failed to decode treasury account")
			continue
		}
		records = append(records, account.ToRecord(item.Pubkey))
	}
	return records, nil
}

func (c *Client) getStreams(ctx context.Context, offset uint64, address solana.PublicKey) ([]*stream.Record, error) {
	resp, err := c.getProgramAccounts(ctx, StreamDiscriminator, offset, address)
	if err != nil {
		return nil, err
	}

	var records []*stream.Record
	for _, item := range resp {
		record, err := c.decoders.DecodeStream(item.Pubkey, item.Account.Data.GetBinary())
		if err != nil {
			c.log.WithError(err).WithField("address", item.Pubkey.String()).Warn("failed to decode stream account")
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func (c *Client) getAccountData(ctx context.Context, address solana.PublicKey) ([]byte, error) {
	resp, err := c.rpc.GetAccountInfoWithOpts(ctx, address, &rpc.GetAccountInfoOpts{
		Commitment: rpc.CommitmentConfirmed,
	})
	if err != nil {
		if errors.Is(err, rpc.ErrNotFound) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get account info")
	}
	if resp.Value == nil {
		return nil, nil
	}
	return resp.Value.Data.GetBinary(), nil
}

func (c *Client) getProgramAccounts(ctx context.Context, discriminator bin.TypeID, offset uint64, address solana.PublicKey) (rpc.GetProgramAccountsResult, error) {
	resp, err := c.rpc.GetProgramAccountsWithOpts(ctx, ID, &rpc.GetProgramAccountsOpts{
		Commitment: rpc.CommitmentConfirmed,
		Filters: []rpc.RPCFilter{
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: 0,
					Bytes:  discriminator[:],
				},
			},
			{
				Memcmp: &rpc.RPCFilterMemcmp{
					Offset: offset,
					Bytes:  address.Bytes(),
				},
			},
		},
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to get program accounts")
	}
	return resp, nil
}
