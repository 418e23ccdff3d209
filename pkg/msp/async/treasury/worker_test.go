package async_treasury

import (
	"context"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/ledger"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/streaming"
)

type testEnv struct {
	ctx       context.Context
	data      data.Provider
	streaming *streaming.Service
	worker    *service
}

func setup(t *testing.T) *testEnv {
	data := data.NewTestProvider()
	streamingService := streaming.NewService(data, ledger.DefaultFeeSchedule())

	worker := &service{
		log:       logrus.StandardLogger().WithField("service", "treasury"),
		conf:      withManualTestOverrides(&testOverrides{})(),
		data:      data,
		streaming: streamingService,
	}

	return &testEnv{
		ctx:       context.Background(),
		data:      data,
		streaming: streamingService,
		worker:    worker,
	}
}

func (e *testEnv) createTreasury(t *testing.T, address string, autoClose bool) {
	_, err := e.streaming.CreateTreasury(e.ctx, ledger.CreateTreasuryParams{
		Address:          address,
		Name:             "treasury",
		TreasurerAddress: "treasurer",
		MintAddress:      "mint",
		AutoClose:        autoClose,
	})
	require.NoError(t, err)
}

func TestCloseAutoCloseableTreasuries(t *testing.T) {
	env := setup(t)

	env.createTreasury(t, "empty_auto_close", true)
	env.createTreasury(t, "funded_auto_close", true)
	env.createTreasury(t, "not_auto_close", false)

	// An auto close treasury still funding a stream must not be touched.
	_, err := env.streaming.AddFunds(env.ctx, "funded_auto_close", 1_000)
	require.NoError(t, err)
	_, _, err = env.streaming.CreateStream(env.ctx, "funded_auto_close", ledger.CreateStreamParams{
		Address:                 "stream1",
		Name:                    "stream",
		BeneficiaryAddress:      "beneficiary",
		RateAmountUnits:         10,
		RateIntervalInSeconds:   1,
		AllocationAssignedUnits: 1_000,
	})
	require.NoError(t, err)

	require.NoError(t, env.worker.closeAutoCloseableTreasuries(env.ctx))

	_, err = env.data.GetTreasuryByAddress(env.ctx, "empty_auto_close")
	assert.Equal(t, treasury.ErrTreasuryNotFound, err)

	_, err = env.data.GetTreasuryByAddress(env.ctx, "funded_auto_close")
	assert.NoError(t, err)

	_, err = env.data.GetTreasuryByAddress(env.ctx, "not_auto_close")
	assert.NoError(t, err)
}

func TestCloseAutoCloseableTreasuries_Empty(t *testing.T) {
	env := setup(t)
	assert.NoError(t, env.worker.closeAutoCloseableTreasuries(env.ctx))
}
