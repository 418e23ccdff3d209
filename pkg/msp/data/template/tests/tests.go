package tests

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/template"
)

func RunTests(t *testing.T, s template.Store, teardown func()) {
	for _, tf := range []func(t *testing.T, s template.Store){
		testHappyPath,
		testGetByTreasury,
		testDelete,
	} {
		tf(t, s)
		teardown()
	}
}

func testHappyPath(t *testing.T, s template.Store) {
	t.Run("testHappyPath", func(t *testing.T) {
		ctx := context.Background()

		expected := &template.Record{
			Version: template.DataVersion,

			Address:         "template1",
			TreasuryAddress: "treasury",

			StartTime:             1700000000,
			RateIntervalInSeconds: 60,
			DurationNumberOfUnits: 12,
			CliffVestPercent:      100_000,

			FeePaidByTreasurer: true,
		}
		cloned := expected.Clone()

		_, err := s.GetByAddress(ctx, expected.Address)
		assert.Equal(t, template.ErrTemplateNotFound, err)

		require.NoError(t, s.Save(ctx, expected))
		assert.True(t, expected.Id > 0)

		actual, err := s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assertEquivalentRecords(t, cloned, actual)

		// Templates can be modified before any stream uses them

		expected.DurationNumberOfUnits = 24
		expected.CliffVestPercent = 0
		cloned = expected.Clone()

		require.NoError(t, s.Save(ctx, expected))

		actual, err = s.GetByAddress(ctx, expected.Address)
		require.NoError(t, err)
		assert.EqualValues(t, expected.Id, actual.Id)
		assertEquivalentRecords(t, cloned, actual)
	})
}

func testGetByTreasury(t *testing.T, s template.Store) {
	t.Run("testGetByTreasury", func(t *testing.T) {
		ctx := context.Background()

		_, err := s.GetByTreasury(ctx, "treasury")
		assert.Equal(t, template.ErrTemplateNotFound, err)

		expected := &template.Record{
			Version: template.DataVersion,

			Address:         "template1",
			TreasuryAddress: "treasury",

			StartTime:             1700000000,
			RateIntervalInSeconds: 60,
			DurationNumberOfUnits: 12,
		}
		require.NoError(t, s.Save(ctx, expected))

		actual, err := s.GetByTreasury(ctx, "treasury")
		require.NoError(t, err)
		assert.Equal(t, expected.Address, actual.Address)
	})
}

func testDelete(t *testing.T, s template.Store) {
	t.Run("testDelete", func(t *testing.T) {
		ctx := context.Background()

		assert.Equal(t, template.ErrTemplateNotFound, s.Delete(ctx, "template1"))

		record := &template.Record{
			Version: template.DataVersion,

			Address:         "template1",
			TreasuryAddress: "treasury",

			StartTime:             1700000000,
			RateIntervalInSeconds: 60,
			DurationNumberOfUnits: 12,
		}
		require.NoError(t, s.Save(ctx, record))
		require.NoError(t, s.Delete(ctx, record.Address))

		_, err := s.GetByAddress(ctx, record.Address)
		assert.Equal(t, template.ErrTemplateNotFound, err)
	})
}

func assertEquivalentRecords(t *testing.T, obj1, obj2 *template.Record) {
	assert.Equal(t, obj1.Version, obj2.Version)
	assert.Equal(t, obj1.Address, obj2.Address)
	assert.Equal(t, obj1.TreasuryAddress, obj2.TreasuryAddress)
	assert.Equal(t, obj1.StartTime, obj2.StartTime)
	assert.Equal(t, obj1.RateIntervalInSeconds, obj2.RateIntervalInSeconds)
	assert.Equal(t, obj1.DurationNumberOfUnits, obj2.DurationNumberOfUnits)
	assert.Equal(t, obj1.CliffVestPercent, obj2.CliffVestPercent)
	assert.Equal(t, obj1.FeePaidByTreasurer, obj2.FeePaidByTreasurer)
}
