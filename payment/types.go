/*
Package payment records advisory fee payments received from plan providers.

PURPOSE:
  The engine turns a draft (what the operator typed into the payment form)
  into a stored Payment bound to the client's governing contract:

    1. DefaultsForNewPayment seeds a draft with the arrears default period
    2. StartPeriods / EndPeriods feed the period dropdowns
    3. Validate gates the draft on the arrears and ordering rules
    4. ExpectedFee suggests the fee from the contract terms
    5. Persist normalizes periods to quarters and writes the row

KEY TYPES (types.go):
  - Client:   the employer whose plan pays the fees
  - Contract: fee terms and schedule; one active contract per client
  - Payment:  a stored payment, periods at quarter granularity
  - Draft:    the form value; plain data, copied on every edit

QUARTER STORAGE:
  Payments keep only applied_*_quarter / applied_*_year. A monthly draft
  for Jan-Feb 2024 is written as Q1 2024 - Q1 2024. The contract row keeps
  the schedule so the original cadence is still known.

SEE ALSO:
  - engine.go: the engine operations
  - drafts.go: draft state machine and session registry
  - store.go: persistence interfaces
*/
package payment

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/fee-engine/fee"
	"github.com/warp/fee-engine/period"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type ClientID int64
type ContractID int64
type PaymentID int64
type ContactID int64

// =============================================================================
// CLIENT / CONTACT
// =============================================================================

// Client is an employer whose retirement plan pays advisory fees.
type Client struct {
	ID          ClientID
	DisplayName string
	FullName    string
	CreatedAt   time.Time
}

// Contact is a person at a client. Contacts take no part in fee tracking.
type Contact struct {
	ID       ContactID
	ClientID ClientID
	Type     string // "primary", "authorized", "provider"
	Name     string
	Email    string
	Phone    string
}

// =============================================================================
// CONTRACT
// =============================================================================

// Contract holds the fee terms a provider pays under.
type Contract struct {
	ID           ContractID
	ClientID     ClientID
	Active       bool
	Provider     string
	Number       string
	StartDate    string // YYYY-MM-DD, optional
	FeeType      fee.Type
	PercentRate  decimal.NullDecimal // fraction: 0.0075 is 0.75%
	FlatRate     decimal.NullDecimal
	Schedule     period.Schedule
	Participants int
	Notes        string
}

// Terms returns the fee-bearing part of the contract.
func (c Contract) Terms() fee.Terms {
	return fee.Terms{Type: c.FeeType, PercentRate: c.PercentRate, FlatRate: c.FlatRate}
}

// Problems lists the contract invariants c violates.
func (c Contract) Problems() []Code {
	var codes []Code
	if !c.Schedule.Valid() {
		codes = append(codes, CodeNoSchedule)
	}
	if !c.Terms().Valid() {
		codes = append(codes, CodeInvalidContract)
	}
	if c.StartDate != "" {
		if _, err := time.Parse(period.DateLayout, c.StartDate); err != nil {
			codes = append(codes, CodeInvalidContract)
		}
	}
	return dedupe(codes)
}

// =============================================================================
// PAYMENT
// =============================================================================

// Payment is a stored payment. Applied periods are always quarters, whatever
// the contract's schedule.
type Payment struct {
	ID           PaymentID
	ClientID     ClientID
	ContractID   ContractID
	ReceivedDate string // YYYY-MM-DD
	StartQuarter int
	StartYear    int
	EndQuarter   int
	EndYear      int
	TotalAssets  decimal.NullDecimal
	ExpectedFee  decimal.NullDecimal
	ActualFee    decimal.Decimal
	Method       string
	Notes        string
}

// Range returns the applied range in quarters.
func (p Payment) Range() period.Range {
	return period.Range{
		Start: period.Point{Period: p.StartQuarter, Year: p.StartYear},
		End:   period.Point{Period: p.EndQuarter, Year: p.EndYear},
	}
}

// PeriodLabel renders the applied range at quarter granularity:
// "Q1 2024" or "Q2 2023 - Q4 2023".
func (p Payment) PeriodLabel() string {
	return p.Range().Label(period.Quarterly)
}

// PeriodCount is the number of schedule periods the payment covers. Monthly
// contracts count three months for each stored quarter.
func (p Payment) PeriodCount(s period.Schedule) int {
	n := p.Range().Len(period.Quarterly)
	if s == period.Monthly {
		return n * 3
	}
	return n
}

// Variance is actual minus expected fee. It reports false when no expected
// fee was recorded.
func (p Payment) Variance() (decimal.Decimal, bool) {
	if !p.ExpectedFee.Valid {
		return decimal.Zero, false
	}
	return p.ActualFee.Sub(p.ExpectedFee.Decimal), true
}

// =============================================================================
// DRAFT
// =============================================================================

// Draft is the payment form value. Periods are in the draft's schedule:
// months for monthly, quarters for quarterly. Amount fields hold whatever the
// form produced ("$1,000.00", "1000", "").
type Draft struct {
	ClientID     ClientID
	Schedule     period.Schedule
	ReceivedDate string
	StartPeriod  int
	StartYear    int
	EndPeriod    int
	EndYear      int
	TotalAssets  string
	ExpectedFee  string
	ActualFee    string
	Method       string
	Notes        string
}

// Range returns the draft's applied range in its own schedule.
func (d Draft) Range() period.Range {
	return period.Range{
		Start: period.Point{Period: d.StartPeriod, Year: d.StartYear},
		End:   period.Point{Period: d.EndPeriod, Year: d.EndYear},
	}
}

// PeriodLabel renders the draft range in its own schedule.
func (d Draft) PeriodLabel() string {
	return d.Range().Label(d.Schedule)
}

// Summary is the per-client roll-up consumed by summary views.
type Summary struct {
	Client         Client
	Contract       *Contract
	PaymentCount   int
	TotalActual    decimal.Decimal
	TotalExpected  decimal.Decimal
	LastPaidPeriod string // quarter label of the newest applied end, "" when none
	DuePeriod      string // the arrears default under the active schedule
}

func dedupe(codes []Code) []Code {
	seen := make(map[Code]bool, len(codes))
	out := codes[:0]
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
