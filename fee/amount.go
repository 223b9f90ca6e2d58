/*
Package fee computes expected advisory fees from contract terms.

PURPOSE:
  A contract bills either a percentage of plan assets or a flat amount per
  period. This package turns those terms, plus an assets-under-management
  figure in whatever shape the form layer delivers it, into an expected fee.

PRECISION:
  All arithmetic uses decimal.Decimal. Values are never rounded during
  computation; rounding happens only at display time (Currency, Percent).

INPUT NORMALIZATION:
  Assets may arrive as a number, a decimal string ("1000000.5") or a
  display string ("$1,000,000.50"). ParseAmount accepts all three.

SEE ALSO:
  - calculator.go: ExpectedFee
  - rates.go: cadence conversions for rate display
*/
package fee

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/shopspring/decimal"
)

// ErrUnparseableAmount is returned when an amount does not normalize to a
// decimal number.
var ErrUnparseableAmount = errors.New("unparseable amount")

var currencySymbols = []string{"$", "€", "£", "¥"}

// ParseAmount normalizes a raw amount. Strings may carry one leading currency
// symbol and any number of thousands separators.
func ParseAmount(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case *decimal.Decimal:
		if x == nil {
			return decimal.Zero, ErrUnparseableAmount
		}
		return *x, nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case json.Number:
		return ParseAmount(x.String())
	case string:
		return parseAmountString(x)
	case nil:
		return decimal.Zero, ErrUnparseableAmount
	default:
		return decimal.Zero, fmt.Errorf("%w: unsupported type %T", ErrUnparseableAmount, v)
	}
}

func parseAmountString(s string) (decimal.Decimal, error) {
	residue := strings.TrimSpace(s)
	for _, sym := range currencySymbols {
		if strings.HasPrefix(residue, sym) {
			residue = residue[len(sym):]
			break
		}
	}
	residue = strings.ReplaceAll(residue, ",", "")
	if residue == "" {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparseableAmount, s)
	}

	d, err := decimal.NewFromString(residue)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrUnparseableAmount, s)
	}
	return d, nil
}

// ParsePositive is ParseAmount restricted to values greater than zero.
func ParsePositive(v any) (decimal.Decimal, error) {
	d, err := ParseAmount(v)
	if err != nil {
		return d, err
	}
	if !d.IsPositive() {
		return d, fmt.Errorf("%w: %s is not positive", ErrUnparseableAmount, d)
	}
	return d, nil
}

// =============================================================================
// DISPLAY
// =============================================================================

// Currency renders d with a dollar sign, thousands separators and two
// decimals: "$1,234,567.80".
func Currency(d decimal.Decimal) string {
	cents := d.Abs().Round(2)
	_, frac, _ := strings.Cut(cents.StringFixed(2), ".")
	out := "$" + humanize.BigComma(cents.BigInt()) + "." + frac
	if d.IsNegative() && !cents.IsZero() {
		return "-" + out
	}
	return out
}

// Percent renders a fractional rate as a percentage with three decimals:
// 0.0075 -> "0.750%".
func Percent(rate decimal.Decimal) string {
	return rate.Mul(decimal.NewFromInt(100)).StringFixed(3) + "%"
}
