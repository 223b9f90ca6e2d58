/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. Field names follow the
  stored column names (applied_start_period, payment_schedule, ...) so the
  form layer can bind them directly.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Amount accepts a JSON string ("$1,000.00") or number (1000). Amounts are
  always rendered back as decimal strings.

VALIDATION:
  Request shape is checked with go-playground/validator struct tags. Domain
  rules (arrears, ordering, fee terms) are left to the payment engine so
  their codes reach the client unchanged.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/fee-engine/fee"
	"github.com/warp/fee-engine/payment"
	"github.com/warp/fee-engine/period"
)

// =============================================================================
// AMOUNT
// =============================================================================

// Amount is currency input as typed by the operator.
type Amount string

func (a *Amount) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*a = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*a = Amount(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(b, &n); err != nil {
			return err
		}
		*a = Amount(n.String())
		return nil
	}
}

func decimalPtr(d decimal.NullDecimal) *string {
	if !d.Valid {
		return nil
	}
	s := d.Decimal.String()
	return &s
}

// =============================================================================
// CLIENTS / CONTACTS
// =============================================================================

// ClientDTO represents a client in API responses.
type ClientDTO struct {
	ID          int64  `json:"client_id"`
	DisplayName string `json:"display_name"`
	FullName    string `json:"full_name,omitempty"`
	CreatedAt   string `json:"created_at,omitempty"`
}

// CreateClientRequest is the request to create a client.
type CreateClientRequest struct {
	DisplayName string `json:"display_name" validate:"required"`
	FullName    string `json:"full_name"`
}

func toClientDTO(c payment.Client) ClientDTO {
	dto := ClientDTO{ID: int64(c.ID), DisplayName: c.DisplayName, FullName: c.FullName}
	if !c.CreatedAt.IsZero() {
		dto.CreatedAt = c.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

// ContactDTO represents a contact in API responses.
type ContactDTO struct {
	ID       int64  `json:"contact_id"`
	ClientID int64  `json:"client_id"`
	Type     string `json:"contact_type,omitempty"`
	Name     string `json:"contact_name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

// CreateContactRequest is the request to add a contact.
type CreateContactRequest struct {
	Type  string `json:"contact_type" validate:"omitempty,oneof=primary authorized provider"`
	Name  string `json:"contact_name" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Phone string `json:"phone"`
}

func toContactDTO(c payment.Contact) ContactDTO {
	return ContactDTO{
		ID:       int64(c.ID),
		ClientID: int64(c.ClientID),
		Type:     c.Type,
		Name:     c.Name,
		Email:    c.Email,
		Phone:    c.Phone,
	}
}

// =============================================================================
// CONTRACTS
// =============================================================================

// ContractDTO represents a contract in API responses.
type ContractDTO struct {
	ID           int64            `json:"contract_id"`
	ClientID     int64            `json:"client_id"`
	Active       bool             `json:"is_active"`
	Provider     string           `json:"provider_name,omitempty"`
	Number       string           `json:"contract_number,omitempty"`
	StartDate    string           `json:"contract_start_date,omitempty"`
	FeeType      string           `json:"fee_type"`
	PercentRate  *string          `json:"percent_rate"`
	FlatRate     *string          `json:"flat_rate"`
	Schedule     string           `json:"payment_schedule"`
	Participants int              `json:"num_people"`
	Notes        string           `json:"notes,omitempty"`
	Rates        *fee.RateDisplay `json:"rates,omitempty"`
}

// ContractRequest creates or edits a contract.
type ContractRequest struct {
	Active       *bool  `json:"is_active"`
	Provider     string `json:"provider_name"`
	Number       string `json:"contract_number"`
	StartDate    string `json:"contract_start_date" validate:"omitempty,datetime=2006-01-02"`
	FeeType      string `json:"fee_type" validate:"required,oneof=percentage flat"`
	PercentRate  Amount `json:"percent_rate"`
	FlatRate     Amount `json:"flat_rate"`
	Schedule     string `json:"payment_schedule" validate:"required"`
	Participants int    `json:"num_people" validate:"min=0"`
	Notes        string `json:"notes"`
}

// contract converts the request. Rates that do not parse are left absent;
// the engine then rejects the terms as invalid_contract.
func (r ContractRequest) contract() payment.Contract {
	c := payment.Contract{
		Active:       r.Active == nil || *r.Active,
		Provider:     r.Provider,
		Number:       r.Number,
		StartDate:    r.StartDate,
		FeeType:      fee.Type(r.FeeType),
		Schedule:     period.ParseSchedule(r.Schedule),
		Participants: r.Participants,
		Notes:        r.Notes,
	}
	if d, err := fee.ParseAmount(string(r.PercentRate)); err == nil && r.PercentRate != "" {
		c.PercentRate = decimal.NewNullDecimal(d)
	}
	if d, err := fee.ParseAmount(string(r.FlatRate)); err == nil && r.FlatRate != "" {
		c.FlatRate = decimal.NewNullDecimal(d)
	}
	return c
}

func toContractDTO(c payment.Contract) ContractDTO {
	dto := ContractDTO{
		ID:           int64(c.ID),
		ClientID:     int64(c.ClientID),
		Active:       c.Active,
		Provider:     c.Provider,
		Number:       c.Number,
		StartDate:    c.StartDate,
		FeeType:      string(c.FeeType),
		PercentRate:  decimalPtr(c.PercentRate),
		FlatRate:     decimalPtr(c.FlatRate),
		Schedule:     string(c.Schedule),
		Participants: c.Participants,
		Notes:        c.Notes,
	}
	if rate, ok := c.Terms().Rate(); ok {
		display := fee.Convert(rate, scheduleCadence(c.Schedule)).Display(c.FeeType)
		dto.Rates = &display
	}
	return dto
}

// scheduleCadence is the cadence a contract's rate is quoted at.
func scheduleCadence(s period.Schedule) fee.Cadence {
	if s == period.Monthly {
		return fee.CadenceMonthly
	}
	return fee.CadenceQuarterly
}

// =============================================================================
// DRAFTS / PAYMENTS
// =============================================================================

// DraftDTO is the payment form value.
type DraftDTO struct {
	ClientID     int64  `json:"client_id,omitempty"`
	Schedule     string `json:"payment_schedule"`
	ReceivedDate string `json:"received_date"`
	StartPeriod  int    `json:"applied_start_period"`
	StartYear    int    `json:"applied_start_year"`
	EndPeriod    int    `json:"applied_end_period"`
	EndYear      int    `json:"applied_end_year"`
	TotalAssets  Amount `json:"total_assets,omitempty"`
	ExpectedFee  Amount `json:"expected_fee,omitempty"`
	ActualFee    Amount `json:"actual_fee,omitempty"`
	Method       string `json:"method,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

func (d DraftDTO) draft() payment.Draft {
	return payment.Draft{
		ClientID:     payment.ClientID(d.ClientID),
		Schedule:     period.ParseSchedule(d.Schedule),
		ReceivedDate: d.ReceivedDate,
		StartPeriod:  d.StartPeriod,
		StartYear:    d.StartYear,
		EndPeriod:    d.EndPeriod,
		EndYear:      d.EndYear,
		TotalAssets:  string(d.TotalAssets),
		ExpectedFee:  string(d.ExpectedFee),
		ActualFee:    string(d.ActualFee),
		Method:       d.Method,
		Notes:        d.Notes,
	}
}

func toDraftDTO(d payment.Draft) DraftDTO {
	return DraftDTO{
		ClientID:     int64(d.ClientID),
		Schedule:     string(d.Schedule),
		ReceivedDate: d.ReceivedDate,
		StartPeriod:  d.StartPeriod,
		StartYear:    d.StartYear,
		EndPeriod:    d.EndPeriod,
		EndYear:      d.EndYear,
		TotalAssets:  Amount(d.TotalAssets),
		ExpectedFee:  Amount(d.ExpectedFee),
		ActualFee:    Amount(d.ActualFee),
		Method:       d.Method,
		Notes:        d.Notes,
	}
}

// PaymentDTO represents a stored payment in API responses.
type PaymentDTO struct {
	ID           int64   `json:"payment_id"`
	ClientID     int64   `json:"client_id"`
	ContractID   int64   `json:"contract_id"`
	ReceivedDate string  `json:"received_date"`
	StartQuarter int     `json:"applied_start_quarter"`
	StartYear    int     `json:"applied_start_year"`
	EndQuarter   int     `json:"applied_end_quarter"`
	EndYear      int     `json:"applied_end_year"`
	Periods      string  `json:"periods"`
	PeriodCount  int     `json:"period_count"`
	TotalAssets  *string `json:"total_assets"`
	ExpectedFee  *string `json:"expected_fee"`
	ActualFee    string  `json:"actual_fee"`
	Variance     *string `json:"variance"`
	Method       string  `json:"method,omitempty"`
	Notes        string  `json:"notes,omitempty"`
}

// toPaymentDTO renders p. s is the schedule of the payment's contract.
func toPaymentDTO(p payment.Payment, s period.Schedule) PaymentDTO {
	dto := PaymentDTO{
		ID:           int64(p.ID),
		ClientID:     int64(p.ClientID),
		ContractID:   int64(p.ContractID),
		ReceivedDate: p.ReceivedDate,
		StartQuarter: p.StartQuarter,
		StartYear:    p.StartYear,
		EndQuarter:   p.EndQuarter,
		EndYear:      p.EndYear,
		Periods:      p.PeriodLabel(),
		PeriodCount:  p.PeriodCount(s),
		TotalAssets:  decimalPtr(p.TotalAssets),
		ExpectedFee:  decimalPtr(p.ExpectedFee),
		ActualFee:    p.ActualFee.String(),
		Method:       p.Method,
		Notes:        p.Notes,
	}
	if v, ok := p.Variance(); ok {
		s := v.String()
		dto.Variance = &s
	}
	return dto
}

// BulkPaymentsRequest submits several drafts for one client.
type BulkPaymentsRequest struct {
	Payments []DraftDTO `json:"payments" validate:"required,min=1"`
}

// BulkRowDTO is the outcome of one bulk row.
type BulkRowDTO struct {
	Row       int      `json:"row"`
	PaymentID *int64   `json:"payment_id,omitempty"`
	Codes     []string `json:"codes,omitempty"`
	Error     string   `json:"error,omitempty"`
}

// CreatedDTO is returned when a record is created.
type CreatedDTO struct {
	ID int64 `json:"id"`
}

// ValidateResponse lists the range codes for a draft. Empty means admissible.
type ValidateResponse struct {
	Codes []string `json:"codes"`
}

// PeriodsResponse lists selectable period tokens, newest first.
type PeriodsResponse struct {
	Schedule string   `json:"payment_schedule"`
	Periods  []string `json:"periods"`
}

// =============================================================================
// FEES
// =============================================================================

// ExpectedFeeRequest asks for the suggested fee under a client's active
// contract.
type ExpectedFeeRequest struct {
	ClientID    int64  `json:"client_id" validate:"required"`
	TotalAssets Amount `json:"total_assets"`
}

// ExpectedFeeDTO is the suggested fee. ExpectedFee is null when unavailable.
type ExpectedFeeDTO struct {
	ExpectedFee *string `json:"expected_fee"`
	Display     string  `json:"display,omitempty"`
}

// RatesDTO shows a rate at every cadence.
type RatesDTO struct {
	fee.RateDisplay
	Alternates map[fee.Cadence]string `json:"alternates"`
}

// =============================================================================
// SUMMARY
// =============================================================================

// SummaryDTO is the client rollup.
type SummaryDTO struct {
	Client         ClientDTO    `json:"client"`
	Contract       *ContractDTO `json:"contract"`
	PaymentCount   int          `json:"payment_count"`
	TotalActual    string       `json:"total_actual"`
	TotalExpected  string       `json:"total_expected"`
	LastPaidPeriod string       `json:"last_paid_period,omitempty"`
	DuePeriod      string       `json:"due_period,omitempty"`
}

func toSummaryDTO(s payment.Summary) SummaryDTO {
	dto := SummaryDTO{
		Client:         toClientDTO(s.Client),
		PaymentCount:   s.PaymentCount,
		TotalActual:    s.TotalActual.StringFixed(2),
		TotalExpected:  s.TotalExpected.StringFixed(2),
		LastPaidPeriod: s.LastPaidPeriod,
		DuePeriod:      s.DuePeriod,
	}
	if s.Contract != nil {
		c := toContractDTO(*s.Contract)
		dto.Contract = &c
	}
	return dto
}

// =============================================================================
// DRAFT SESSIONS
// =============================================================================

// SessionDTO represents an open draft session.
type SessionDTO struct {
	ID        string   `json:"id"`
	State     string   `json:"state"`
	Dirty     bool     `json:"dirty"`
	Errors    []string `json:"errors,omitempty"`
	PaymentID int64    `json:"payment_id,omitempty"`
	Draft     DraftDTO `json:"draft"`
}

// DraftEventRequest drives a session. check and commit run the engine;
// cancel, confirm and back are plain transitions.
type DraftEventRequest struct {
	Event string `json:"event" validate:"required,oneof=check commit cancel confirm back"`
}

func toSessionDTO(s payment.Session) SessionDTO {
	return SessionDTO{
		ID:        s.ID,
		State:     string(s.State),
		Dirty:     s.Dirty,
		Errors:    codeStrings(s.Errors),
		PaymentID: int64(s.PaymentID),
		Draft:     toDraftDTO(s.Draft),
	}
}

// =============================================================================
// ERRORS
// =============================================================================

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Code    string   `json:"code,omitempty"`
	Codes   []string `json:"codes,omitempty"`
	Fields  []string `json:"fields,omitempty"`
	Details any      `json:"details,omitempty"`
}

func codeStrings(codes []payment.Code) []string {
	if len(codes) == 0 {
		return nil
	}
	out := make([]string, len(codes))
	for i, c := range codes {
		out[i] = string(c)
	}
	return out
}
