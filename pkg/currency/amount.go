// Package currency converts between raw token units and human readable
// decimal amounts. Raw units are the integers tracked by every accounting
// layer. Conversion only happens at the display and input boundaries.
package currency

import (
	"github.com/cockroachdb/apd/v3"
	"github.com/pkg/errors"
)

var (
	ErrInvalidAmount = errors.New("invalid decimal amount")

	// Enough precision for a u64 amount against any sane mint decimals
	decimalCtx = apd.BaseContext.WithPrecision(50)
)

// FormatUnits renders raw token units as a decimal string using the mint's
// configured decimals. It never loses precision.
func FormatUnits(units uint64, decimals uint8) string {
	var coeff apd.BigInt
	coeff.SetUint64(units)

	d := apd.NewWithBigInt(&coeff, -int32(decimals))
	return d.Text('f')
}

// ParseUnits converts a decimal amount string into raw token units. Amounts
// with more fractional digits than the mint supports are rejected rather
// than silently truncated.
func ParseUnits(value string, decimals uint8) (uint64, error) {
	d, _, err := apd.NewFromString(value)
	if err != nil {
		return 0, errors.Wrap(ErrInvalidAmount, err.Error())
	}
	if d.Negative {
		return 0, errors.Wrap(ErrInvalidAmount, "amount is negative")
	}

	var scaled apd.Decimal
	if _, err := decimalCtx.Mul(&scaled, d, apd.New(1, int32(decimals))); err != nil {
		return 0, errors.Wrap(ErrInvalidAmount, err.Error())
	}

	var integ, frac apd.Decimal
	scaled.Modf(&integ, &frac)
	if !frac.IsZero() {
		return 0, errors.Wrap(ErrInvalidAmount, "too many decimal places")
	}

	var quantized apd.Decimal
	if _, err := decimalCtx.Quantize(&quantized, &integ, 0); err != nil {
		return 0, errors.Wrap(ErrInvalidAmount, err.Error())
	}

	res := quantized.Coeff.MathBigInt()
	if !res.IsUint64() {
		return 0, errors.Wrap(ErrInvalidAmount, "amount out of range")
	}
	return res.Uint64(), nil
}
