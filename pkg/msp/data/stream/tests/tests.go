package tests

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
)

func RunTests(t *testing.T, s stream.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s stream.Store){
		testHappyPath,
		testGetAllByTreasury,
		testGetAllByBeneficiary,
		testCountByTreasury,
		testDelete,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s stream.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()

		expected := &stream.Record{
			Version: stream.DataVersion,

			Address: "stream1",
			Name:    "payroll",

			TreasurerAddress:   "treasurer",
			BeneficiaryAddress: "beneficiary",
			TreasuryAddress:    "treasury",
			MintAddress:        "mint",

			RateAmountUnits:       10,
			RateIntervalInSeconds: 60,

			StartTime: 1700000000,

			CliffVestAmountUnits: 500,

			AllocationAssignedUnits: 10000,

			FeePaidByTreasurer: true,

			Category:    1,
			SubCategory: 2,
		}
		cloned := expected.Clone()

		_, err := s.GetByAddress(ctx, expected.Address)
		assert.Equal(t, stream.ErrStreamNotFound, err)

		require.NoError(t, s.Save(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)

		// Simulate a withdrawal and verify the mutable fields round trip

		expected.TotalWithdrawalsUnits = 100
		expected.LastWithdrawalUnits = 100
		expected.LastWithdrawalTime = 1700000100
		cloned = expected.Clone()

		require.NoError(t, s.Save(ctx, expected))

		actual, err = s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assert.EqualValues(t, expected.Id, actual.Id)
		assertEquivalentRecords(t, cloned, actual)
	})
}

func testGetAllByTreasury(t *testing.T, s stream.Store) {
	t.Run("testGetAllByTreasury", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByTreasury(ctx, "treasury")
		assert.Equal(t, stream.ErrStreamNotFound, err)

		for i := 0; i < 3; i++ {
			require.NoError(t, s.Save(ctx, newTestRecord(i, "treasury", "beneficiary")))
		}
		require.NoError(t, s.Save(ctx, newTestRecord(3, "other_treasury", "beneficiary")))

		actual, err := s.GetAllByTreasury(ctx, "treasury")
		require.NoError(t, err)
		require.Len(t, actual, 3)
		for i, record := range actual {
			assert.Equal(t, fmt.Sprintf("stream%d", i), record.Address)
			assert.Equal(t, "treasury", record.TreasuryAddress)
		}
	})
}

func testGetAllByBeneficiary(t *testing.T, s stream.Store) {
	t.Run("testGetAllByBeneficiary", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByBeneficiary(ctx, "beneficiary")
		assert.Equal(t, stream.ErrStreamNotFound, err)

		for i := 0; i < 2; i++ {
			require.NoError(t, s.Save(ctx, newTestRecord(i, "treasury", "beneficiary")))
		}
		require.NoError(t, s.Save(ctx, newTestRecord(2, "treasury", "other_beneficiary")))

		actual, err := s.GetAllByBeneficiary(ctx, "beneficiary")
		require.NoError(t, err)
		require.Len(t, actual, 2)
		for _, record := range actual {
			assert.Equal(t, "beneficiary", record.BeneficiaryAddress)
		}
	})
}

func testCountByTreasury(t *testing.T, s stream.Store) {
	t.Run("testCountByTreasury", func(t *testing.T) {
		ctx := context.Background()

		count, err := s.CountByTreasury(ctx, "treasury")
		require.NoError(t, err)
		assert.EqualValues(t, 0, count)

		for i := 0; i < 3; i++ {
			require.NoError(t, s.Save(ctx, newTestRecord(i, "treasury", "beneficiary")))

			count, err = s.CountByTreasury(ctx, "treasury")
			require.NoError(t, err)
			assert.EqualValues(t, i+1, count)
		}
	})
}

func testDelete(t *testing.T, s stream.Store) {
	t.Run("testDelete", func(t *testing.T) {
		ctx := context.Background()

		assert.Equal(t, stream.ErrStreamNotFound, s.Delete(ctx, "stream0"))

		require.NoError(t, s.Save(ctx, newTestRecord(0, "treasury", "beneficiary")))
		require.NoError(t, s.Delete(ctx, "stream0"))

		_, err := s.GetByAddress(ctx, "stream0")
		assert.Equal(t, stream.ErrStreamNotFound, err)
	})
}

func newTestRecord(i int, treasury, beneficiary string) *stream.Record {
	return &stream.Record{
		Version: stream.DataVersion,

		Address: fmt.Sprintf("stream%d", i),
		Name:    fmt.Sprintf("stream %d", i),

		TreasurerAddress:   "treasurer",
		BeneficiaryAddress: beneficiary,
		TreasuryAddress:    treasury,
		MintAddress:        "mint",

		RateAmountUnits:       10,
		RateIntervalInSeconds: 60,

		StartTime: 1700000000,

		AllocationAssignedUnits: 1000,
	}
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *stream.Record) {
	assert.Equal(t, obj1.Version, obj2.Version)
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Name, obj2.Name)
	assert.Equal(t, obj1.TreasurerAddress, obj2.TreasurerAddress)
	assert.Equal(t, obj1.BeneficiaryAddress, obj2.BeneficiaryAddress)
	assert.Equal(t, obj1.TreasuryAddress, obj2.TreasuryAddress)
	assert.Equal(t, obj1.MintAddress, obj2.MintAddress)
	assert.Equal(t, obj1.RateAmountUnits, obj2.RateAmountUnits)
	assert.Equal(t, obj1.RateIntervalInSeconds, obj2.RateIntervalInSeconds)
	assert.Equal(t, obj1.StartTime, obj2.StartTime)
	assert.Equal(t, obj1.CliffVestAmountUnits, obj2.CliffVestAmountUnits)
	assert.Equal(t, obj1.CliffVestPercent, obj2.CliffVestPercent)
	assert.Equal(t, obj1.AllocationAssignedUnits, obj2.AllocationAssignedUnits)
	assert.Equal(t, obj1.TotalWithdrawalsUnits, obj2.TotalWithdrawalsUnits)
	assert.Equal(t, obj1.LastWithdrawalUnits, obj2.LastWithdrawalUnits)
	assert.Equal(t, obj1.LastWithdrawalTime, obj2.LastWithdrawalTime)
	assert.Equal(t, obj1.LastManualStopWithdrawableSnap, obj2.LastManualStopWithdrawableSnap)
	assert.Equal(t, obj1.LastManualStopTime, obj2.LastManualStopTime)
	assert.Equal(t, obj1.LastManualResumeRemainingAllocationSnap, obj2.LastManualResumeRemainingAllocationSnap)
	assert.Equal(t, obj1.LastManualResumeTime, obj2.LastManualResumeTime)
	assert.Equal(t, obj1.TotalSecondsPaused, obj2.TotalSecondsPaused)
	assert.Equal(t, obj1.LastAutoStopTime, obj2.LastAutoStopTime)
	assert.Equal(t, obj1.FeePaidByTreasurer, obj2.FeePaidByTreasurer)
	assert.Equal(t, obj1.Category, obj2.Category)
	assert.Equal(t, obj1.SubCategory, obj2.SubCategory)
}
