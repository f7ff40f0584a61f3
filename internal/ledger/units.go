package ledger

import (
	"fmt"

	"github.com/shopspring/decimal"

	"cuops/internal/domain"
)

// UnitScale is the number of fractional digits a content unit amount may carry.
const UnitScale = 2

// ParseUnits parses a decimal string such as "0.5" into content units.
func ParseUnits(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: content units %q: %v", domain.ErrInvalidInput, s, err)
	}
	if err := ValidateUnits(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// UnitsFromFloat converts an API number into content units without rounding.
func UnitsFromFloat(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}

// MaxUnits bounds any single amount so sums of hundredths stay far inside int64.
var MaxUnits = decimal.New(1, 12)

// ValidateUnits checks a content unit amount against the rules of ValidateAmount.
func ValidateUnits(d decimal.Decimal) error {
	return ValidateAmount("content units", d)
}

// ValidateAmount rejects negative amounts and amounts above MaxUnits. At most
// UnitScale fractional digits are allowed. Monthly fees follow the same rules.
func ValidateAmount(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return fmt.Errorf("%w: %s must not be negative", domain.ErrInvalidInput, field)
	}
	if d.GreaterThan(MaxUnits) {
		return fmt.Errorf("%w: %s must not exceed %s", domain.ErrInvalidInput, field, MaxUnits.String())
	}
	if !d.Round(UnitScale).Equal(d) {
		return fmt.Errorf("%w: %s must have at most %d decimals", domain.ErrInvalidInput, field, UnitScale)
	}
	return nil
}

// ToCenti returns the amount in hundredths, the representation stored in the
// database. Amounts whose hundredths do not fit an int64 are rejected.
func ToCenti(d decimal.Decimal) (int64, error) {
	centi := d.Round(UnitScale).Shift(UnitScale).BigInt()
	if !centi.IsInt64() {
		return 0, fmt.Errorf("%w: amount %s is out of range", domain.ErrInvalidInput, d.String())
	}
	return centi.Int64(), nil
}

// FromCenti is the inverse of ToCenti.
func FromCenti(n int64) decimal.Decimal {
	return decimal.New(n, -UnitScale)
}
