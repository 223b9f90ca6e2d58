/*
handlers_test.go - Tests for API handlers

Tests for:
- Payment defaults and period enumeration
- Range validation and persistence (quarter normalization)
- Expected fee and rate display
- Error mapping (codes and statuses)
- Bulk entry, draft sessions, /metrics
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/fee-engine/payment"
	"github.com/warp/fee-engine/payment/store"
	"github.com/warp/fee-engine/period"
)

type testServer struct {
	t      *testing.T
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	clock := period.FixedDate(2024, 3, 15)
	reg := prometheus.NewRegistry()
	engine := payment.NewEngine(store.NewMemory(),
		payment.WithClock(clock),
		payment.WithMetrics(payment.NewMetrics(reg)),
	)
	h := NewHandler(engine, payment.NewDrafts(clock, 0), nil)
	return &testServer{t: t, router: NewRouter(h, RouterOptions{Gatherer: reg})}
}

func (s *testServer) do(method, path string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// client creates a client with an active contract and returns its id.
func (s *testServer) client(contract map[string]any) int64 {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/clients", map[string]any{"display_name": "Acme Corp"})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	id := decodeBody[CreatedDTO](s.t, rec).ID

	if contract != nil {
		rec = s.do(http.MethodPost, fmt.Sprintf("/api/clients/%d/contracts", id), contract)
		require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	return id
}

var quarterlyPercentage = map[string]any{
	"provider_name":    "Empower",
	"fee_type":         "percentage",
	"percent_rate":     "0.0075",
	"payment_schedule": "quarterly",
}

func paymentBody(schedule string, sp, sy, ep, ey int) map[string]any {
	return map[string]any{
		"payment_schedule":     schedule,
		"received_date":        "2024-03-15",
		"applied_start_period": sp,
		"applied_start_year":   sy,
		"applied_end_period":   ep,
		"applied_end_year":     ey,
		"total_assets":         "$1,000,000.00",
		"actual_fee":           7500,
		"method":               "ACH",
	}
}

// =============================================================================
// PERIODS
// =============================================================================

func TestPaymentDefaults_QuarterlyArrears(t *testing.T) {
	// GIVEN: A quarterly client on 2024-03-15
	s := newTestServer(t)
	id := s.client(quarterlyPercentage)

	// WHEN: Asking for new payment defaults
	rec := s.do(http.MethodGet, fmt.Sprintf("/api/clients/%d/payments/defaults", id), nil)

	// THEN: The draft falls on the previous quarter
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	d := decodeBody[DraftDTO](t, rec)
	assert.Equal(t, "quarterly", d.Schedule)
	assert.Equal(t, "2024-03-15", d.ReceivedDate)
	assert.Equal(t, [4]int{4, 2023, 4, 2023}, [4]int{d.StartPeriod, d.StartYear, d.EndPeriod, d.EndYear})
}

func TestPaymentDefaults_NoActiveContract(t *testing.T) {
	s := newTestServer(t)
	id := s.client(nil)

	rec := s.do(http.MethodGet, fmt.Sprintf("/api/clients/%d/payments/defaults", id), nil)

	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Equal(t, "no_active_contract", decodeBody[ErrorResponse](t, rec).Code)
}

func TestStartPeriods(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/periods?schedule=quarterly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody[PeriodsResponse](t, rec)
	require.Len(t, resp.Periods, 8)
	assert.Equal(t, "Q4 2023", resp.Periods[0])
	assert.Equal(t, "Q1 2022", resp.Periods[7])
	assert.NotContains(t, resp.Periods, "Q1 2024")

	rec = s.do(http.MethodGet, "/api/periods?schedule=Monthly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	resp = decodeBody[PeriodsResponse](t, rec)
	require.Len(t, resp.Periods, 24)
	assert.Equal(t, "Feb 2024", resp.Periods[0])
	assert.Equal(t, "Mar 2022", resp.Periods[23])

	rec = s.do(http.MethodGet, "/api/periods", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"no_schedule"}, decodeBody[ErrorResponse](t, rec).Codes)
}

func TestEndPeriods(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/periods/end?schedule=quarterly&start=Q2+2023", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Q4 2023", "Q3 2023", "Q2 2023"}, decodeBody[PeriodsResponse](t, rec).Periods)

	rec = s.do(http.MethodGet, "/api/periods/end?schedule=quarterly&start=Q5+2023", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "malformed_token", decodeBody[ErrorResponse](t, rec).Code)
}

func TestValidateDraft(t *testing.T) {
	s := newTestServer(t)

	// GIVEN: A monthly draft for the current month
	rec := s.do(http.MethodPost, "/api/payments/validate", paymentBody("monthly", 3, 2024, 3, 2024))

	// THEN: Both arrears codes come back
	require.Equal(t, http.StatusOK, rec.Code)
	assert.ElementsMatch(t, []string{"start_not_in_arrears", "end_not_in_arrears"}, decodeBody[ValidateResponse](t, rec).Codes)

	// GIVEN: A valid multi-quarter range
	rec = s.do(http.MethodPost, "/api/payments/validate", paymentBody("quarterly", 2, 2023, 4, 2023))

	// THEN: The code list is empty, not null
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"codes":[]}`, rec.Body.String())
}

// =============================================================================
// FEES
// =============================================================================

func TestExpectedFee(t *testing.T) {
	s := newTestServer(t)
	pct := s.client(quarterlyPercentage)
	flat := s.client(map[string]any{"fee_type": "flat", "flat_rate": 5000, "payment_schedule": "monthly"})

	tests := []struct {
		name     string
		clientID int64
		assets   any
		want     string
	}{
		{"percentage currency string", pct, "$1,000,000.00", "7500.00"},
		{"percentage number", pct, 1000000, "7500.00"},
		{"percentage plain string", pct, "1000000", "7500.00"},
		{"flat ignores assets", flat, 0, "5000.00"},
		{"flat without assets", flat, nil, "5000.00"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(http.MethodPost, "/api/expected-fee", map[string]any{"client_id": tt.clientID, "total_assets": tt.assets})
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			got := decodeBody[ExpectedFeeDTO](t, rec)
			require.NotNil(t, got.ExpectedFee)
			assert.Equal(t, tt.want, *got.ExpectedFee)
		})
	}

	t.Run("percentage without assets", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/expected-fee", map[string]any{"client_id": pct})
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Nil(t, decodeBody[ExpectedFeeDTO](t, rec).ExpectedFee)
	})

	t.Run("missing client id", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/expected-fee", map[string]any{"total_assets": 1})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		resp := decodeBody[ErrorResponse](t, rec)
		assert.Equal(t, "missing_required_field", resp.Code)
		assert.Equal(t, []string{"client_id"}, resp.Fields)
	})
}

func TestRates(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodGet, "/api/rates?rate=0.0075&cadence=quarterly&fee_type=percentage", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[RatesDTO](t, rec)
	assert.Equal(t, "0.750%", got.Quarterly)
	assert.Equal(t, "3.000%", got.Annual)
	assert.Len(t, got.Alternates, 2)

	rec = s.do(http.MethodGet, "/api/rates?rate=abc", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// PAYMENTS
// =============================================================================

func TestCreatePayment_MultiQuarterRange(t *testing.T) {
	// GIVEN: A quarterly client
	s := newTestServer(t)
	id := s.client(quarterlyPercentage)

	// WHEN: Persisting Q2-Q4 2023
	rec := s.do(http.MethodPost, fmt.Sprintf("/api/clients/%d/payments", id), paymentBody("quarterly", 2, 2023, 4, 2023))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	paymentID := decodeBody[CreatedDTO](t, rec).ID

	// THEN: The stored quarters match the draft
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/payments/%d", paymentID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	p := decodeBody[PaymentDTO](t, rec)
	assert.Equal(t, 2, p.StartQuarter)
	assert.Equal(t, 2023, p.StartYear)
	assert.Equal(t, 4, p.EndQuarter)
	assert.Equal(t, 2023, p.EndYear)
	assert.Equal(t, "Q2 2023 - Q4 2023", p.Periods)
	assert.Equal(t, 3, p.PeriodCount)
	assert.Equal(t, "7500", p.ActualFee)
	require.NotNil(t, p.ExpectedFee)
	assert.Equal(t, "7500", *p.ExpectedFee)
}

func TestCreatePayment_MonthlyNormalizedToQuarters(t *testing.T) {
	// GIVEN: A monthly client
	s := newTestServer(t)
	id := s.client(map[string]any{"fee_type": "flat", "flat_rate": "5000", "payment_schedule": "monthly"})

	// WHEN: Persisting Jan-Feb 2024
	rec := s.do(http.MethodPost, fmt.Sprintf("/api/clients/%d/payments", id), paymentBody("monthly", 1, 2024, 2, 2024))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: Both months land in Q1 2024
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/clients/%d/payments", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payments := decodeBody[[]PaymentDTO](t, rec)
	require.Len(t, payments, 1)
	assert.Equal(t, [4]int{1, 2024, 1, 2024}, [4]int{payments[0].StartQuarter, payments[0].StartYear, payments[0].EndQuarter, payments[0].EndYear})
	assert.Equal(t, 3, payments[0].PeriodCount, "a stored quarter spans three months")
}

func TestCreatePayment_ValidationErrors(t *testing.T) {
	s := newTestServer(t)
	id := s.client(quarterlyPercentage)

	body := paymentBody("quarterly", 1, 2024, 1, 2024)
	body["actual_fee"] = nil
	rec := s.do(http.MethodPost, fmt.Sprintf("/api/clients/%d/payments", id), body)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeBody[ErrorResponse](t, rec)
	assert.Subset(t, resp.Codes, []string{"missing_required_field", "start_not_in_arrears", "end_not_in_arrears"})
	assert.Contains(t, resp.Fields, "actual_fee")
}

func TestCreatePayment_InvalidID(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(http.MethodPost, "/api/clients/abc/payments", paymentBody("quarterly", 2, 2023, 4, 2023))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/payments/999", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "not_found", decodeBody[ErrorResponse](t, rec).Code)
}

func TestBulkPayments_RowsFailIndependently(t *testing.T) {
	s := newTestServer(t)
	id := s.client(quarterlyPercentage)

	rec := s.do(http.MethodPost, fmt.Sprintf("/api/clients/%d/payments/bulk", id), map[string]any{
		"payments": []any{
			paymentBody("quarterly", 3, 2023, 3, 2023),
			paymentBody("quarterly", 1, 2024, 1, 2024),
		},
	})

	assert.Equal(t, http.StatusMultiStatus, rec.Code)
	rows := decodeBody[[]BulkRowDTO](t, rec)
	require.Len(t, rows, 2)
	assert.NotNil(t, rows[0].PaymentID)
	assert.Empty(t, rows[0].Codes)
	assert.Nil(t, rows[1].PaymentID)
	assert.Contains(t, rows[1].Codes, "start_not_in_arrears")

	rec = s.do(http.MethodPost, fmt.Sprintf("/api/clients/%d/payments/bulk", id), map[string]any{"payments": []any{}})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateAndDeletePayment(t *testing.T) {
	s := newTestServer(t)
	id := s.client(quarterlyPercentage)
	rec := s.do(http.MethodPost, fmt.Sprintf("/api/clients/%d/payments", id), paymentBody("quarterly", 4, 2023, 4, 2023))
	require.Equal(t, http.StatusCreated, rec.Code)
	paymentID := decodeBody[CreatedDTO](t, rec).ID
	path := fmt.Sprintf("/api/payments/%d", paymentID)

	body := paymentBody("quarterly", 3, 2023, 4, 2023)
	body["notes"] = "corrected"
	rec = s.do(http.MethodPut, path, body)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	p := decodeBody[PaymentDTO](t, rec)
	assert.Equal(t, 3, p.StartQuarter)
	assert.Equal(t, "corrected", p.Notes)

	rec = s.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSummary(t *testing.T) {
	s := newTestServer(t)
	id := s.client(quarterlyPercentage)
	rec := s.do(http.MethodPost, fmt.Sprintf("/api/clients/%d/payments", id), paymentBody("quarterly", 3, 2023, 3, 2023))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/clients/%d/summary", id), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sum := decodeBody[SummaryDTO](t, rec)
	assert.Equal(t, 1, sum.PaymentCount)
	assert.Equal(t, "7500.00", sum.TotalActual)
	assert.Equal(t, "Q3 2023", sum.LastPaidPeriod)
	assert.Equal(t, "Q4 2023", sum.DuePeriod)
	require.NotNil(t, sum.Contract)
	require.NotNil(t, sum.Contract.Rates)
	assert.Equal(t, "0.750%", sum.Contract.Rates.Quarterly)
}

// =============================================================================
// CLIENTS AND CONTRACTS
// =============================================================================

func TestContracts_ArchiveAndGuards(t *testing.T) {
	s := newTestServer(t)
	id := s.client(quarterlyPercentage)

	// GIVEN: A payment against the first contract
	rec := s.do(http.MethodPost, fmt.Sprintf("/api/clients/%d/payments", id), paymentBody("quarterly", 4, 2023, 4, 2023))
	require.Equal(t, http.StatusCreated, rec.Code)

	// WHEN: A new contract is added
	rec = s.do(http.MethodPost, fmt.Sprintf("/api/clients/%d/contracts", id),
		map[string]any{"fee_type": "flat", "flat_rate": "$5,000", "payment_schedule": "monthly"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// THEN: The old one is archived and still referenced
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/clients/%d/contracts", id), nil)
	contracts := decodeBody[[]ContractDTO](t, rec)
	require.Len(t, contracts, 2)
	assert.True(t, contracts[0].Active)
	assert.Equal(t, "monthly", contracts[0].Schedule)
	assert.False(t, contracts[1].Active)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/contracts/%d", contracts[1].ID), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "contract_in_use", decodeBody[ErrorResponse](t, rec).Code)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/clients/%d", id), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "client_has_payments", decodeBody[ErrorResponse](t, rec).Code)
}

func TestCreateContract_Invalid(t *testing.T) {
	s := newTestServer(t)
	id := s.client(nil)
	path := fmt.Sprintf("/api/clients/%d/contracts", id)

	rec := s.do(http.MethodPost, path, map[string]any{"fee_type": "hourly", "payment_schedule": "quarterly"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid_request", decodeBody[ErrorResponse](t, rec).Code)

	rec = s.do(http.MethodPost, path, map[string]any{"fee_type": "percentage", "payment_schedule": "quarterly"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeBody[ErrorResponse](t, rec).Codes, "invalid_contract")
}

func TestUpdateContract(t *testing.T) {
	s := newTestServer(t)
	id := s.client(quarterlyPercentage)
	rec := s.do(http.MethodGet, fmt.Sprintf("/api/clients/%d/contracts", id), nil)
	contractID := decodeBody[[]ContractDTO](t, rec)[0].ID

	body := map[string]any{"fee_type": "percentage", "percent_rate": 0.01, "payment_schedule": "quarterly", "num_people": 40}
	rec = s.do(http.MethodPut, fmt.Sprintf("/api/contracts/%d", contractID), body)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c := decodeBody[ContractDTO](t, rec)
	require.NotNil(t, c.PercentRate)
	assert.Equal(t, "0.01", *c.PercentRate)
	assert.Equal(t, 40, c.Participants)
	assert.True(t, c.Active)
}

func TestClientsAndContacts(t *testing.T) {
	s := newTestServer(t)
	id := s.client(nil)

	rec := s.do(http.MethodPost, "/api/clients", map[string]any{"full_name": "No Display"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, []string{"display_name"}, decodeBody[ErrorResponse](t, rec).Fields)

	contacts := fmt.Sprintf("/api/clients/%d/contacts", id)
	rec = s.do(http.MethodPost, contacts, map[string]any{"contact_name": "Jane Doe", "contact_type": "primary", "email": "jane@acme.test"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, contacts, map[string]any{"contact_name": "Bad Email", "email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, contacts, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ContactDTO](t, rec), 1)

	rec = s.do(http.MethodGet, "/api/clients", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]ClientDTO](t, rec), 1)

	rec = s.do(http.MethodDelete, fmt.Sprintf("/api/clients/%d", id), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, fmt.Sprintf("/api/clients/%d", id), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// DRAFT SESSIONS
// =============================================================================

func TestDraftSession_CheckAndCommit(t *testing.T) {
	// GIVEN: A session opened from the client's defaults
	s := newTestServer(t)
	id := s.client(quarterlyPercentage)
	rec := s.do(http.MethodPost, "/api/drafts", map[string]any{"client_id": id})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decodeBody[SessionDTO](t, rec)
	assert.Equal(t, "draft", session.State)
	assert.Equal(t, 4, session.Draft.StartPeriod)
	path := "/api/drafts/" + session.ID

	// WHEN: Checking without an actual fee
	rec = s.do(http.MethodPost, path+"/events", map[string]any{"event": "check"})
	require.Equal(t, http.StatusOK, rec.Code)
	session = decodeBody[SessionDTO](t, rec)

	// THEN: The range passes but fields are incomplete
	assert.Equal(t, "range_checked", session.State)
	assert.Contains(t, session.Errors, "missing_required_field")

	// WHEN: The fee is filled in and checked again
	d := session.Draft
	d.ActualFee = "$7,500.00"
	rec = s.do(http.MethodPut, path, d)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.True(t, decodeBody[SessionDTO](t, rec).Dirty)
	rec = s.do(http.MethodPost, path+"/events", map[string]any{"event": "check"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ready", decodeBody[SessionDTO](t, rec).State)

	// THEN: Commit writes the payment
	rec = s.do(http.MethodPost, path+"/events", map[string]any{"event": "commit"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	session = decodeBody[SessionDTO](t, rec)
	assert.Equal(t, "committed", session.State)
	assert.NotZero(t, session.PaymentID)

	rec = s.do(http.MethodGet, fmt.Sprintf("/api/payments/%d", session.PaymentID), nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestDraftSession_Errors(t *testing.T) {
	s := newTestServer(t)
	id := s.client(quarterlyPercentage)
	rec := s.do(http.MethodPost, "/api/drafts", map[string]any{"client_id": id})
	path := "/api/drafts/" + decodeBody[SessionDTO](t, rec).ID

	rec = s.do(http.MethodPost, path+"/events", map[string]any{"event": "commit"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, path+"/events", map[string]any{"event": "explode"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodDelete, path, nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = s.do(http.MethodGet, path, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// OPERATIONS
// =============================================================================

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	id := s.client(quarterlyPercentage)
	s.do(http.MethodPost, fmt.Sprintf("/api/clients/%d/payments", id), paymentBody("quarterly", 4, 2023, 4, 2023))

	rec := s.do(http.MethodGet, "/metrics", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), `fee_engine_payments_persisted_total{schedule="quarterly"} 1`), rec.Body.String())
}

func TestInvalidJSON(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodPost, "/api/clients", strings.NewReader("{"))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid request body", decodeBody[ErrorResponse](t, rec).Error)
}
