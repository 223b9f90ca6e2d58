package fee

import "github.com/shopspring/decimal"

// Cadence is the billing frequency a rate is quoted at.
type Cadence string

const (
	CadenceMonthly   Cadence = "monthly"
	CadenceQuarterly Cadence = "quarterly"
	CadenceAnnual    Cadence = "annual"
)

var (
	three  = decimal.NewFromInt(3)
	four   = decimal.NewFromInt(4)
	twelve = decimal.NewFromInt(12)
)

// Rates is one rate expressed at all three cadences.
type Rates struct {
	Monthly   decimal.Decimal
	Quarterly decimal.Decimal
	Annual    decimal.Decimal
}

// Convert expresses rate, quoted at cadence from, at every cadence.
// Unknown cadences are treated as annual.
func Convert(rate decimal.Decimal, from Cadence) Rates {
	switch from {
	case CadenceMonthly:
		return Rates{Monthly: rate, Quarterly: rate.Mul(three), Annual: rate.Mul(twelve)}
	case CadenceQuarterly:
		return Rates{Monthly: rate.Div(three), Quarterly: rate, Annual: rate.Mul(four)}
	default:
		return Rates{Monthly: rate.Div(twelve), Quarterly: rate.Div(four), Annual: rate}
	}
}

// RateDisplay is the human rendering of Rates: three-decimal percentages for
// percentage terms, two-decimal currency for flat terms.
type RateDisplay struct {
	Monthly   string `json:"monthly"`
	Quarterly string `json:"quarterly"`
	Annual    string `json:"annual"`
}

// Display renders r for the given fee type.
func (r Rates) Display(t Type) RateDisplay {
	render := Currency
	if t == TypePercentage {
		render = Percent
	}
	return RateDisplay{
		Monthly:   render(r.Monthly),
		Quarterly: render(r.Quarterly),
		Annual:    render(r.Annual),
	}
}

// Alternates returns the two renderings at cadences other than from, keyed
// by cadence.
func Alternates(rate decimal.Decimal, from Cadence, t Type) map[Cadence]string {
	d := Convert(rate, from).Display(t)
	all := map[Cadence]string{
		CadenceMonthly:   d.Monthly,
		CadenceQuarterly: d.Quarterly,
		CadenceAnnual:    d.Annual,
	}
	if _, known := all[from]; !known {
		from = CadenceAnnual
	}
	delete(all, from)
	return all
}
