package fee

import "github.com/shopspring/decimal"

// =============================================================================
// FEE TERMS
// =============================================================================

// Type is the fee-type discriminant of a contract.
type Type string

const (
	TypePercentage Type = "percentage"
	TypeFlat       Type = "flat"
)

// Terms is the fee-bearing part of a contract. PercentRate is a fraction
// (0.0075 means 0.75%); FlatRate is a currency amount per payment.
type Terms struct {
	Type        Type
	PercentRate decimal.NullDecimal
	FlatRate    decimal.NullDecimal
}

// Percentage builds percentage-of-assets terms.
func Percentage(rate decimal.Decimal) Terms {
	return Terms{Type: TypePercentage, PercentRate: decimal.NewNullDecimal(rate)}
}

// Flat builds flat-rate terms.
func Flat(amount decimal.Decimal) Terms {
	return Terms{Type: TypeFlat, FlatRate: decimal.NewNullDecimal(amount)}
}

// Valid reports whether the rate the discriminant selects is present and
// positive.
func (t Terms) Valid() bool {
	_, ok := t.Rate()
	return ok
}

// Rate returns the governing rate: the fraction for percentage terms or the
// amount for flat terms.
func (t Terms) Rate() (decimal.Decimal, bool) {
	var r decimal.NullDecimal
	switch t.Type {
	case TypePercentage:
		r = t.PercentRate
	case TypeFlat:
		r = t.FlatRate
	default:
		return decimal.Zero, false
	}
	if !r.Valid || !r.Decimal.IsPositive() {
		return decimal.Zero, false
	}
	return r.Decimal, true
}

// =============================================================================
// CALCULATOR
// =============================================================================

// ExpectedFee computes the fee a provider should remit. It reports false when
// the fee is unavailable: the selected rate is missing or zero, the discriminant
// is unknown, or (for percentage terms) assets do not parse.
//
// Flat terms ignore assets entirely.
func ExpectedFee(t Terms, assets any) (decimal.Decimal, bool) {
	rate, ok := t.Rate()
	if !ok {
		return decimal.Zero, false
	}
	if t.Type == TypeFlat {
		return rate, true
	}

	a, err := ParseAmount(assets)
	if err != nil {
		return decimal.Zero, false
	}
	return a.Mul(rate), true
}
