package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/stream"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/data/template"
	"github.com/mean-dao/payment-streaming-server/pkg/msp/vesting"
)

func TestCreateStream(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)

		actual, receipt, err := CreateStream(treasuryRecord, CreateStreamParams{
			Address:            "stream",
			Name:               "payroll",
			BeneficiaryAddress: "beneficiary",

			StartTime: uint64(testNow.Unix()),

			RateAmountUnits:       10,
			RateIntervalInSeconds: 1,

			AllocationAssignedUnits: 1000,
		}, DefaultFeeSchedule(), testNow)
		require.NoError(t, err)

		assert.EqualValues(t, stream.DataVersion, actual.Version)
		assert.Equal(t, "treasurer", actual.TreasurerAddress)
		assert.Equal(t, "treasury", actual.TreasuryAddress)
		assert.Equal(t, "mint", actual.MintAddress)
		assert.EqualValues(t, 1000, actual.AllocationAssignedUnits)

		assert.EqualValues(t, 1000, treasuryRecord.AllocationAssignedUnits)
		assert.EqualValues(t, 10_000, treasuryRecord.BalanceUnits)
		assert.EqualValues(t, 1, treasuryRecord.TotalStreams)

		assert.EqualValues(t, 1000, receipt.AllocatedUnits)
		assert.EqualValues(t, 0, receipt.FeeUnits)
	})

	t.Run("treasurer pays withdrawal fees upfront", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000_000)

		_, receipt, err := CreateStream(treasuryRecord, CreateStreamParams{
			Address:            "stream",
			BeneficiaryAddress: "beneficiary",

			RateAmountUnits:       10,
			RateIntervalInSeconds: 1,

			AllocationAssignedUnits: 1_000_000,

			FeePaidByTreasurer: true,
		}, DefaultFeeSchedule(), testNow)
		require.NoError(t, err)

		assert.EqualValues(t, 2_500, receipt.FeeUnits)
		assert.EqualValues(t, 10_000_000-2_500, treasuryRecord.BalanceUnits)
		assert.EqualValues(t, 1_000_000, treasuryRecord.AllocationAssignedUnits)
	})

	t.Run("insufficient unallocated balance", func(t *testing.T) {
		treasuryRecord := newTestTreasury(1_000_000)

		_, _, err := CreateStream(treasuryRecord, CreateStreamParams{
			Address:            "stream",
			BeneficiaryAddress: "beneficiary",

			RateAmountUnits:       10,
			RateIntervalInSeconds: 1,

			AllocationAssignedUnits: 1_000_000,

			FeePaidByTreasurer: true,
		}, DefaultFeeSchedule(), testNow)
		assert.Equal(t, ErrInsufficientBalance, err)

		assert.EqualValues(t, 1_000_000, treasuryRecord.BalanceUnits)
		assert.EqualValues(t, 0, treasuryRecord.AllocationAssignedUnits)
		assert.EqualValues(t, 0, treasuryRecord.TotalStreams)
	})

	t.Run("percent cliff resolved at creation", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)

		actual, _, err := CreateStream(treasuryRecord, CreateStreamParams{
			Address:            "stream",
			BeneficiaryAddress: "beneficiary",

			RateAmountUnits:       10,
			RateIntervalInSeconds: 1,

			AllocationAssignedUnits: 1000,

			CliffVestPercent: 100_000, // 10%
		}, DefaultFeeSchedule(), testNow)
		require.NoError(t, err)

		assert.EqualValues(t, 100, actual.CliffVestAmountUnits)
		assert.EqualValues(t, 0, actual.CliffVestPercent)
	})

	t.Run("one time payment", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)

		actual, _, err := CreateStream(treasuryRecord, CreateStreamParams{
			Address:            "stream",
			BeneficiaryAddress: "beneficiary",

			AllocationAssignedUnits: 1000,
			CliffVestAmountUnits:    1000,
		}, DefaultFeeSchedule(), testNow)
		require.NoError(t, err)

		assert.EqualValues(t, 1000, actual.CliffVestAmountUnits)
		assert.EqualValues(t, 0, actual.RateAmountUnits)
	})

	t.Run("invalid rate", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)

		_, _, err := CreateStream(treasuryRecord, CreateStreamParams{
			Address:            "stream",
			BeneficiaryAddress: "beneficiary",

			RateAmountUnits: 10,

			AllocationAssignedUnits: 1000,
		}, DefaultFeeSchedule(), testNow)
		assert.Equal(t, ErrInvalidRate, err)
	})

	t.Run("cliff amount and percent are exclusive", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)

		_, _, err := CreateStream(treasuryRecord, CreateStreamParams{
			Address:            "stream",
			BeneficiaryAddress: "beneficiary",

			RateAmountUnits:       10,
			RateIntervalInSeconds: 1,

			AllocationAssignedUnits: 1000,
			CliffVestAmountUnits:    100,
			CliffVestPercent:        100_000,
		}, DefaultFeeSchedule(), testNow)
		assert.ErrorIs(t, err, ErrInvalidCliff)
	})

	t.Run("cliff exceeds allocation", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)

		_, _, err := CreateStream(treasuryRecord, CreateStreamParams{
			Address:            "stream",
			BeneficiaryAddress: "beneficiary",

			RateAmountUnits:       10,
			RateIntervalInSeconds: 1,

			AllocationAssignedUnits: 1000,
			CliffVestAmountUnits:    2000,
		}, DefaultFeeSchedule(), testNow)
		assert.ErrorIs(t, err, ErrInvalidCliff)
	})

	t.Run("treasurer cannot be the beneficiary", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)

		_, _, err := CreateStream(treasuryRecord, CreateStreamParams{
			Address:            "stream",
			BeneficiaryAddress: "treasurer",

			RateAmountUnits:       10,
			RateIntervalInSeconds: 1,

			AllocationAssignedUnits: 1000,
		}, DefaultFeeSchedule(), testNow)
		assert.Equal(t, ErrInvalidBeneficiary, err)
	})
}

func TestCreateStreamFromTemplate(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)
		templateRecord := newTestTemplate()

		actual, _, err := CreateStreamFromTemplate(treasuryRecord, templateRecord, CreateStreamParams{
			Address:            "stream",
			Name:               "vesting contract",
			BeneficiaryAddress: "beneficiary",

			AllocationAssignedUnits: 1000,
		}, DefaultFeeSchedule(), testNow)
		require.NoError(t, err)

		// 10% cliff leaves 900 units vesting over 10 intervals
		assert.EqualValues(t, 100, actual.CliffVestAmountUnits)
		assert.EqualValues(t, 90, actual.RateAmountUnits)
		assert.EqualValues(t, 60, actual.RateIntervalInSeconds)
		assert.EqualValues(t, templateRecord.StartTime, actual.StartTime)
		assert.True(t, actual.FeePaidByTreasurer)
	})

	t.Run("template from another treasury", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)
		templateRecord := newTestTemplate()
		templateRecord.TreasuryAddress = "other_treasury"

		_, _, err := CreateStreamFromTemplate(treasuryRecord, templateRecord, CreateStreamParams{
			Address:            "stream",
			BeneficiaryAddress: "beneficiary",

			AllocationAssignedUnits: 1000,
		}, DefaultFeeSchedule(), testNow)
		assert.ErrorIs(t, err, template.ErrInvalidTemplate)
	})
}

func TestCreateTemplate(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)

		actual, err := CreateTemplate(treasuryRecord, TemplateParams{
			Address: "template",

			StartTime:             uint64(testNow.Unix()),
			RateIntervalInSeconds: 60,
			DurationNumberOfUnits: 10,
			CliffVestPercent:      100_000,
		}, testNow)
		require.NoError(t, err)

		assert.Equal(t, "treasury", actual.TreasuryAddress)
		assert.EqualValues(t, 10, actual.DurationNumberOfUnits)
	})

	t.Run("cliff percent out of range", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)

		_, err := CreateTemplate(treasuryRecord, TemplateParams{
			Address: "template",

			RateIntervalInSeconds: 60,
			DurationNumberOfUnits: 10,
			CliffVestPercent:      vesting.PercentDenominator + 1,
		}, testNow)
		assert.ErrorIs(t, err, ErrInvalidCliff)
	})
}

func TestModifyTemplate(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)
		templateRecord := newTestTemplate()

		err := ModifyTemplate(treasuryRecord, templateRecord, TemplateParams{
			Address: templateRecord.Address,

			StartTime:             uint64(testNow.Unix()) + 3600,
			RateIntervalInSeconds: 3600,
			DurationNumberOfUnits: 24,
		}, testNow)
		require.NoError(t, err)

		assert.EqualValues(t, 3600, templateRecord.RateIntervalInSeconds)
		assert.EqualValues(t, 24, templateRecord.DurationNumberOfUnits)
		assert.EqualValues(t, 0, templateRecord.CliffVestPercent)
	})

	t.Run("locked once streams exist", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)
		treasuryRecord.TotalStreams = 1
		treasuryRecord.AllocationAssignedUnits = 1000
		templateRecord := newTestTemplate()

		err := ModifyTemplate(treasuryRecord, templateRecord, TemplateParams{
			Address: templateRecord.Address,

			RateIntervalInSeconds: 3600,
			DurationNumberOfUnits: 24,
		}, testNow)
		assert.Equal(t, ErrTemplateInUse, err)
	})
}

func TestTransferStream(t *testing.T) {
	t.Run("happy path", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)
		streamRecord, _, err := CreateStream(treasuryRecord, CreateStreamParams{
			Address:            "stream",
			BeneficiaryAddress: "beneficiary",

			RateAmountUnits:       10,
			RateIntervalInSeconds: 1,

			AllocationAssignedUnits: 1000,
		}, DefaultFeeSchedule(), testNow)
		require.NoError(t, err)

		receipt, err := TransferStream(streamRecord, "new_beneficiary", DefaultFeeSchedule(), testNow)
		require.NoError(t, err)

		assert.Equal(t, "new_beneficiary", streamRecord.BeneficiaryAddress)
		assert.Equal(t, "beneficiary", receipt.PreviousBeneficiary)
	})

	t.Run("treasurer cannot be the beneficiary", func(t *testing.T) {
		treasuryRecord := newTestTreasury(10_000)
		streamRecord, _, err := CreateStream(treasuryRecord, CreateStreamParams{
			Address:            "stream",
			BeneficiaryAddress: "beneficiary",

			RateAmountUnits:       10,
			RateIntervalInSeconds: 1,

			AllocationAssignedUnits: 1000,
		}, DefaultFeeSchedule(), testNow)
		require.NoError(t, err)

		_, err = TransferStream(streamRecord, "treasurer", DefaultFeeSchedule(), testNow)
		assert.Equal(t, ErrInvalidBeneficiary, err)
	})
}

func newTestTemplate() *template.Record {
	return &template.Record{
		Version: template.DataVersion,

		Address:         "template",
		TreasuryAddress: "treasury",

		StartTime:             uint64(testNow.Unix()),
		RateIntervalInSeconds: 60,
		DurationNumberOfUnits: 10,
		CliffVestPercent:      100_000,

		FeePaidByTreasurer: true,

		LastUpdatedAt: testNow,
	}
}
