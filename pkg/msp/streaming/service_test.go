package streaming

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/ledger"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/vesting"
	rate_util "github.com/mean-dao/payment-streaming-server/pkg/rate"
)

type testEnv struct {
	ctx     context.Context
	service *Service
	now     time.Time
}

func setup(t *testing.T) *testEnv {
	env := &testEnv{
		ctx:     context.Background(),
		service: NewService(data.NewTestProvider(), ledger.DefaultFeeSchedule()),
		now:     time.Unix(1_700_000_000, 0),
	}
	env.service.nowFunc = func() time.Time {
		return env.now
	}
	return env
}

func (env *testEnv) advance(d time.Duration) {
	env.now = env.now.Add(d)
}

func TestTreasuryLifecycle(t *testing.T) {
	env := setup(t)

	created, err := env.service.CreateTreasury(env.ctx, ledger.CreateTreasuryParams{
		Address:          "treasury",
		Name:             "ops treasury",
		TreasurerAddress: "treasurer",
		MintAddress:      "mint",
	})
	require.NoError(t, err)
	assert.EqualValues(t, 0, created.BalanceUnits)

	_, err = env.service.CreateTreasury(env.ctx, ledger.CreateTreasuryParams{
		Address:          "treasury",
		TreasurerAddress: "treasurer",
		MintAddress:      "mint",
	})
	assert.Equal(t, treasury.ErrTreasuryExists, err)

	_, err = env.service.AddFunds(env.ctx, "treasury", 1_000_000)
	require.NoError(t, err)

	receipt, err := env.service.TreasuryWithdraw(env.ctx, "treasury", 400_000)
	require.NoError(t, err)
	assert.EqualValues(t, 399_000, receipt.NetToDestination)

	actual, err := env.service.GetTreasury(env.ctx, "treasury")
	require.NoError(t, err)
	assert.EqualValues(t, 600_000, actual.Record.BalanceUnits)
	assert.EqualValues(t, 600_000, actual.UnallocatedBalanceUnits)

	closeReceipt, err := env.service.CloseTreasury(env.ctx, "treasury")
	require.NoError(t, err)
	assert.EqualValues(t, 600_000, closeReceipt.ReturnedBalanceUnits)

	_, err = env.service.GetTreasury(env.ctx, "treasury")
	assert.Equal(t, treasury.ErrTreasuryNotFound, err)
}

func TestStreamLifecycle(t *testing.T) {
	env := setup(t)

	_, err := env.service.CreateTreasury(env.ctx, ledger.CreateTreasuryParams{
		Address:          "treasury",
		TreasurerAddress: "treasurer",
		MintAddress:      "mint",
	})
	require.NoError(t, err)

	_, err = env.service.AddFunds(env.ctx, "treasury", 10_000)
	require.NoError(t, err)

	created, _, err := env.service.CreateStream(env.ctx, "treasury", ledger.CreateStreamParams{
		Address:            "stream",
		Name:               "payroll",
		BeneficiaryAddress: "beneficiary",

		StartTime: uint64(env.now.Unix()),

		RateAmountUnits:       10,
		RateIntervalInSeconds: 1,

		AllocationAssignedUnits: 1000,
	})
	require.NoError(t, err)
	assert.Equal(t, "mint", created.MintAddress)

	_, _, err = env.service.CreateStream(env.ctx, "treasury", ledger.CreateStreamParams{
		Address:            "stream",
		BeneficiaryAddress: "beneficiary",

		RateAmountUnits:       10,
		RateIntervalInSeconds: 1,

		AllocationAssignedUnits: 1000,
	})
	assert.Equal(t, stream.ErrStreamExists, err)

	env.advance(5 * time.Second)

	actual, err := env.service.GetStream(env.ctx, "stream")
	require.NoError(t, err)
	assert.Equal(t, vesting.StatusRunning, actual.View.Status)
	assert.EqualValues(t, 50, actual.View.WithdrawableUnits)

	// Pause freezes the withdrawable amount
	require.NoError(t, env.service.PauseStream(env.ctx, "stream"))
	env.advance(10 * time.Second)

	actual, err = env.service.GetStream(env.ctx, "stream")
	require.NoError(t, err)
	assert.Equal(t, vesting.StatusPaused, actual.View.Status)
	assert.EqualValues(t, 50, actual.View.WithdrawableUnits)

	require.NoError(t, env.service.ResumeStream(env.ctx, "stream"))

	actual, err = env.service.GetStream(env.ctx, "stream")
	require.NoError(t, err)
	assert.EqualValues(t, 10, actual.Record.TotalSecondsPaused)

	// Withdraw what's vested so far
	env.advance(5 * time.Second)

	receipt, err := env.service.Withdraw(env.ctx, "stream", 100)
	require.NoError(t, err)
	assert.EqualValues(t, 100, receipt.WithdrawnUnits)

	treasuryActual, err := env.service.GetTreasury(env.ctx, "treasury")
	require.NoError(t, err)
	assert.EqualValues(t, 9_900, treasuryActual.Record.BalanceUnits)
	assert.EqualValues(t, 900, treasuryActual.Record.AllocationAssignedUnits)

	// Top up and hand the stream over
	_, err = env.service.Allocate(env.ctx, "stream", 500)
	require.NoError(t, err)

	_, err = env.service.TransferStream(env.ctx, "stream", "new_beneficiary")
	require.NoError(t, err)

	streams, err := env.service.GetStreamsByBeneficiary(env.ctx, "new_beneficiary")
	require.NoError(t, err)
	require.Len(t, streams, 1)
	assert.EqualValues(t, 1500, streams[0].Record.AllocationAssignedUnits)

	// Settle the stream and verify it's gone
	_, err = env.service.CloseStream(env.ctx, "stream")
	require.NoError(t, err)

	_, err = env.service.GetStream(env.ctx, "stream")
	assert.Equal(t, stream.ErrStreamNotFound, err)

	treasuryActual, err = env.service.GetTreasury(env.ctx, "treasury")
	require.NoError(t, err)
	assert.EqualValues(t, 0, treasuryActual.Record.AllocationAssignedUnits)
	assert.EqualValues(t, 0, treasuryActual.Record.TotalStreams)
}

func TestReadModelDisplayAmounts(t *testing.T) {
	env := setup(t)

	_, err := env.service.CreateTreasury(env.ctx, ledger.CreateTreasuryParams{
		Address:          "treasury",
		TreasurerAddress: "treasurer",
		MintAddress:      "mint",
	})
	require.NoError(t, err)

	_, err = env.service.AddFunds(env.ctx, "treasury", 2_500_000)
	require.NoError(t, err)

	_, _, err = env.service.CreateStream(env.ctx, "treasury", ledger.CreateStreamParams{
		Address:            "stream",
		BeneficiaryAddress: "beneficiary",

		StartTime: uint64(env.now.Unix()),

		RateAmountUnits:       10,
		RateIntervalInSeconds: 1,

		AllocationAssignedUnits: 1_000,
	})
	require.NoError(t, err)

	env.advance(5 * time.Second)

	actualTreasury, err := env.service.GetTreasury(env.ctx, "treasury")
	require.NoError(t, err)
	assert.Equal(t, "2.500000", actualTreasury.BalanceAmount)
	assert.Equal(t, "2.499000", actualTreasury.UnallocatedBalanceAmount)

	actualStream, err := env.service.GetStream(env.ctx, "stream")
	require.NoError(t, err)
	assert.Equal(t, "0.000050", actualStream.WithdrawableAmount)
	assert.Equal(t, "0.001000", actualStream.RemainingAllocationAmount)

	// Display precision follows the mint's configured decimals
	env.service.mintDecimals = func(mintAddress string) uint8 {
		return 9
	}

	actualTreasury, err = env.service.GetTreasury(env.ctx, "treasury")
	require.NoError(t, err)
	assert.Equal(t, "0.002500000", actualTreasury.BalanceAmount)
}

func TestAllocate_ConcurrentStreamsShareTreasury(t *testing.T) {
	env := setup(t)

	_, err := env.service.CreateTreasury(env.ctx, ledger.CreateTreasuryParams{
		Address:          "treasury",
		TreasurerAddress: "treasurer",
		MintAddress:      "mint",
	})
	require.NoError(t, err)

	_, err = env.service.AddFunds(env.ctx, "treasury", 1_000_000)
	require.NoError(t, err)

	streamAddresses := []string{"stream1", "stream2"}
	for _, address := range streamAddresses {
		_, _, err := env.service.CreateStream(env.ctx, "treasury", ledger.CreateStreamParams{
			Address:            address,
			BeneficiaryAddress: "beneficiary_" + address,

			StartTime: uint64(env.now.Unix()),

			RateAmountUnits:       10,
			RateIntervalInSeconds: 1,

			AllocationAssignedUnits: 100,
		})
		require.NoError(t, err)
	}

	// Allocations to different streams of the same treasury roll up into
	// one treasury record, so they must serialize on the treasury rather
	// than the stream address.
	rounds := 200
	start := make(chan struct{})
	var wg sync.WaitGroup
	for _, address := range streamAddresses {
		wg.Add(1)
		go func(address string) {
			defer wg.Done()
			<-start
			for i := 0; i < rounds; i++ {
				_, err := env.service.Allocate(env.ctx, address, 1)
				assert.NoError(t, err)
			}
		}(address)
	}
	close(start)
	wg.Wait()

	actual, err := env.service.GetTreasury(env.ctx, "treasury")
	require.NoError(t, err)
	assert.EqualValues(t, 200+2*rounds, actual.Record.AllocationAssignedUnits)
	assert.LessOrEqual(t, actual.Record.AllocationAssignedUnits, actual.Record.BalanceUnits)

	for _, address := range streamAddresses {
		actual, err := env.service.GetStream(env.ctx, address)
		require.NoError(t, err)
		assert.EqualValues(t, 100+rounds, actual.Record.AllocationAssignedUnits)
	}
}

func TestFailedAllocateLeavesStateUnchanged(t *testing.T) {
	env := setup(t)

	_, err := env.service.CreateTreasury(env.ctx, ledger.CreateTreasuryParams{
		Address:          "treasury",
		TreasurerAddress: "treasurer",
		MintAddress:      "mint",
	})
	require.NoError(t, err)

	_, err = env.service.AddFunds(env.ctx, "treasury", 1000)
	require.NoError(t, err)

	_, _, err = env.service.CreateStream(env.ctx, "treasury", ledger.CreateStreamParams{
		Address:            "stream",
		BeneficiaryAddress: "beneficiary",

		StartTime: uint64(env.now.Unix()),

		RateAmountUnits:       10,
		RateIntervalInSeconds: 1,

		AllocationAssignedUnits: 1000,
	})
	require.NoError(t, err)

	_, err = env.service.Allocate(env.ctx, "stream", 500)
	assert.Equal(t, ledger.ErrInsufficientBalance, err)

	streamActual, err := env.service.GetStream(env.ctx, "stream")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, streamActual.Record.AllocationAssignedUnits)

	treasuryActual, err := env.service.GetTreasury(env.ctx, "treasury")
	require.NoError(t, err)
	assert.EqualValues(t, 1000, treasuryActual.Record.BalanceUnits)
	assert.EqualValues(t, 1000, treasuryActual.Record.AllocationAssignedUnits)
}

func TestTemplateFlow(t *testing.T) {
	env := setup(t)

	_, templateRecord, err := env.service.CreateTreasuryWithTemplate(env.ctx,
		ledger.CreateTreasuryParams{
			Address:          "treasury",
			TreasurerAddress: "treasurer",
			MintAddress:      "mint",
		},
		ledger.TemplateParams{
			Address: "template",

			StartTime:             uint64(env.now.Unix()),
			RateIntervalInSeconds: 60,
			DurationNumberOfUnits: 10,
			CliffVestPercent:      100_000,
		},
	)
	require.NoError(t, err)
	assert.Equal(t, "treasury", templateRecord.TreasuryAddress)

	_, err = env.service.AddFunds(env.ctx, "treasury", 10_000)
	require.NoError(t, err)

	_, err = env.service.ModifyTemplate(env.ctx, "treasury", ledger.TemplateParams{
		Address: "template",

		StartTime:             uint64(env.now.Unix()),
		RateIntervalInSeconds: 60,
		DurationNumberOfUnits: 20,
	})
	require.NoError(t, err)

	created, _, err := env.service.CreateStreamFromTemplate(env.ctx, "treasury", ledger.CreateStreamParams{
		Address:            "stream",
		BeneficiaryAddress: "beneficiary",

		AllocationAssignedUnits: 1000,
	})
	require.NoError(t, err)
	assert.EqualValues(t, 50, created.RateAmountUnits) // 1000 over 20 intervals
	assert.EqualValues(t, 60, created.RateIntervalInSeconds)

	// The template locks once a stream was created from it
	_, err = env.service.ModifyTemplate(env.ctx, "treasury", ledger.TemplateParams{
		Address: "template",

		RateIntervalInSeconds: 60,
		DurationNumberOfUnits: 5,
	})
	assert.Equal(t, ledger.ErrTemplateInUse, err)
}

func TestCreateRateLimited(t *testing.T) {
	env := setup(t)
	env.service.createLimiter = rate_util.NewLocalRateLimiter(rate.Limit(1))

	_, err := env.service.CreateTreasury(env.ctx, ledger.CreateTreasuryParams{
		Address:          "treasury1",
		TreasurerAddress: "treasurer",
		MintAddress:      "mint",
	})
	require.NoError(t, err)

	_, err = env.service.CreateTreasury(env.ctx, ledger.CreateTreasuryParams{
		Address:          "treasury2",
		TreasurerAddress: "treasurer",
		MintAddress:      "mint",
	})
	assert.Equal(t, ErrRateLimited, err)

	// Another treasurer isn't affected
	_, err = env.service.CreateTreasury(env.ctx, ledger.CreateTreasuryParams{
		Address:          "treasury3",
		TreasurerAddress: "other",
		MintAddress:      "mint",
	})
	require.NoError(t, err)
}
