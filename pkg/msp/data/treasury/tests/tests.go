package tests

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/treasury"
)

func RunTests(t *testing.T, s treasury.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s treasury.Store){
		testHappyPath,
		testGetAllByTreasurer,
		testGetAllAutoCloseable,
		testDelete,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s treasury.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()

		expected := &treasury.Record{
			Version: treasury.DataVersion,

			Address: "treasury1",
			Name:    "vesting treasury",

			TreasurerAddress: "treasurer",
			MintAddress:      "mint",

			BalanceUnits:            100000,
			AllocationAssignedUnits: 40000,
			TotalStreams:            2,

			Type: treasury.TypeLocked,

			SolFeePaidByTreasury: true,

			Category: 1,
		}
		cloned := expected.Clone()

		_, err := s.GetByAddress(ctx, expected.Address)
		assert.Equal(t, treasury.ErrTreasuryNotFound, err)

		require.NoError(t, s.Save(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)

		// Simulate a withdrawal and verify the mutable fields round trip

		expected.BalanceUnits = 90000
		expected.AllocationAssignedUnits = 30000
		expected.TotalWithdrawalsUnits = 10000
		cloned = expected.Clone()

		require.NoError(t, s.Save(ctx, expected))

		actual, err = s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assert.EqualValues(t, expected.Id, actual.Id)
		assertEquivalentRecords(t, cloned, actual)
	})
}

func testGetAllByTreasurer(t *testing.T, s treasury.Store) {
	t.Run("testGetAllByTreasurer", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllByTreasurer(ctx, "treasurer")
		assert.Equal(t, treasury.ErrTreasuryNotFound, err)

		for i := 0; i < 3; i++ {
			require.NoError(t, s.Save(ctx, newTestRecord(i, "treasurer")))
		}
		require.NoError(t, s.Save(ctx, newTestRecord(3, "other_treasurer")))

		actual, err := s.GetAllByTreasurer(ctx, "treasurer")
		require.NoError(t, err)
		require.Len(t, actual, 3)
		for i, record := range actual {
			assert.Equal(t, fmt.Sprintf("treasury%d", i), record.Address)
			assert.Equal(t, "treasurer", record.TreasurerAddress)
		}
	})
}

func testGetAllAutoCloseable(t *testing.T, s treasury.Store) {
	t.Run("testGetAllAutoCloseable", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetAllAutoCloseable(ctx, 10)
		assert.Equal(t, treasury.ErrTreasuryNotFound, err)

		// Auto close flagged, no streams left
		closeable := newTestRecord(0, "treasurer")
		closeable.AutoClose = true
		require.NoError(t, s.Save(ctx, closeable))

		// Auto close flagged, but still has streams
		withStreams := newTestRecord(1, "treasurer")
		withStreams.AutoClose = true
		withStreams.TotalStreams = 1
		withStreams.AllocationAssignedUnits = 100
		withStreams.BalanceUnits = 100
		require.NoError(t, s.Save(ctx, withStreams))

		// Not flagged
		require.NoError(t, s.Save(ctx, newTestRecord(2, "treasurer")))

		actual, err := s.GetAllAutoCloseable(ctx, 10)
		require.NoError(t, err)
		require.Len(t, actual, 1)
		assert.Equal(t, closeable.Address, actual[0].Address)

		// Limits are respected

		another := newTestRecord(3, "treasurer")
		another.AutoClose = true
		require.NoError(t, s.Save(ctx, another))

		actual, err = s.GetAllAutoCloseable(ctx, 1)
		require.NoError(t, err)
		require.Len(t, actual, 1)
	})
}

func testDelete(t *testing.T, s treasury.Store) {
	t.Run("testDelete", func(t *testing.T) {
		ctx := context.Background()

		assert.Equal(t, treasury.ErrTreasuryNotFound, s.Delete(ctx, "treasury0"))

		require.NoError(t, s.Save(ctx, newTestRecord(0, "treasurer")))
		require.NoError(t, s.Delete(ctx, "treasury0"))

		_, err := s.GetByAddress(ctx, "treasury0")
		assert.Equal(t, treasury.ErrTreasuryNotFound, err)
	})
}

func newTestRecord(i int, treasurer string) *treasury.Record {
	return &treasury.Record{
		Version: treasury.DataVersion,

		Address: fmt.Sprintf("treasury%d", i),
		Name:    fmt.Sprintf("treasury %d", i),

		TreasurerAddress: treasurer,
		MintAddress:      "mint",
	}
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *treasury.Record) {
	assert.Equal(t, obj1.Version, obj2.Version)
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.Name, obj2.Name)
	assert.Equal(t, obj1.TreasurerAddress, obj2.TreasurerAddress)
	assert.Equal(t, obj1.MintAddress, obj2.MintAddress)
	assert.Equal(t, obj1.BalanceUnits, obj2.BalanceUnits)
	assert.Equal(t, obj1.AllocationAssignedUnits, obj2.AllocationAssignedUnits)
	assert.Equal(t, obj1.TotalWithdrawalsUnits, obj2.TotalWithdrawalsUnits)
	assert.Equal(t, obj1.TotalStreams, obj2.TotalStreams)
	assert.Equal(t, obj1.Type, obj2.Type)
	assert.Equal(t, obj1.AutoClose, obj2.AutoClose)
	assert.Equal(t, obj1.SolFeePaidByTreasury, obj2.SolFeePaidByTreasury)
	assert.Equal(t, obj1.Category, obj2.Category)
}
