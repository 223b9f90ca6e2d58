/*
handlers.go - HTTP API handlers for the payment period engine

PURPOSE:
  Exposes the payment engine to the form layer, the bulk entry layer and
  the summary views. Handles HTTP request/response and JSON serialization,
  and delegates to payment.Engine.

ENDPOINTS:
  Clients:
    GET    /api/clients                      List clients
    POST   /api/clients                      Create client
    GET    /api/clients/{id}                 Get client
    DELETE /api/clients/{id}                 Delete client (no payments)

  Contracts:
    GET    /api/clients/{id}/contracts       List contracts, active first
    POST   /api/clients/{id}/contracts       Create contract (archives prior)
    PUT    /api/contracts/{id}               Edit contract terms
    DELETE /api/contracts/{id}               Delete unreferenced contract

  Periods and fees:
    GET    /api/clients/{id}/payments/defaults  Draft for a new payment
    GET    /api/periods?schedule=               Start periods
    GET    /api/periods/end?schedule=&start=    End periods for a start
    POST   /api/payments/validate               Range codes for a draft
    POST   /api/expected-fee                    Suggested fee
    GET    /api/rates?rate=&cadence=&fee_type=  Rate at every cadence

  Payments:
    POST   /api/clients/{id}/payments        Persist a draft
    POST   /api/clients/{id}/payments/bulk   Persist many drafts
    GET    /api/clients/{id}/payments        List payments, newest first
    GET    /api/clients/{id}/summary         Client rollup
    GET    /api/payments/{id}                Get payment
    PUT    /api/payments/{id}                Edit payment
    DELETE /api/payments/{id}                Delete payment

  Drafts:
    POST   /api/drafts                       Open draft session
    GET    /api/drafts/{id}                  Get session
    PUT    /api/drafts/{id}                  Replace draft
    POST   /api/drafts/{id}/events           check | commit | cancel | confirm | back
    DELETE /api/drafts/{id}                  Discard session

ERROR HANDLING:
  Errors are returned as ErrorResponse with the engine codes:
  - 400: Validation errors (every code at once), invalid input
  - 404: Client, contract, payment or draft not found
  - 409: Contract in use, client has payments, illegal draft transition
  - 422: No active contract, contract without a schedule
  - 500: Storage failure

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/warp/fee-engine/fee"
	"github.com/warp/fee-engine/payment"
	"github.com/warp/fee-engine/period"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	engine   *payment.Engine
	drafts   *payment.Drafts
	validate *validator.Validate
	log      *zap.Logger
}

// NewHandler creates a handler over engine. Draft sessions are kept in
// drafts.
func NewHandler(engine *payment.Engine, drafts *payment.Drafts, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return &Handler{engine: engine, drafts: drafts, validate: v, log: log.Named("api")}
}

// =============================================================================
// CLIENT HANDLERS
// =============================================================================

// ListClients returns all clients.
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.engine.Clients(r.Context())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	dtos := make([]ClientDTO, len(clients))
	for i, c := range clients {
		dtos[i] = toClientDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateClient creates a new client.
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req CreateClientRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.engine.CreateClient(r.Context(), payment.Client{
		DisplayName: req.DisplayName,
		FullName:    req.FullName,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: int64(id)})
}

// GetClient returns one client.
func (h *Handler) GetClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.engine.Client(r.Context(), payment.ClientID(id))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toClientDTO(c))
}

// DeleteClient removes a client that has no payments.
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.DeleteClient(r.Context(), payment.ClientID(id)); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// CONTACT HANDLERS
// =============================================================================

// ListContacts returns a client's contacts.
func (h *Handler) ListContacts(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	contacts, err := h.engine.Contacts(r.Context(), payment.ClientID(id))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	dtos := make([]ContactDTO, len(contacts))
	for i, c := range contacts {
		dtos[i] = toContactDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateContact adds a contact to a client.
func (h *Handler) CreateContact(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req CreateContactRequest
	if !h.decode(w, r, &req) {
		return
	}

	contactID, err := h.engine.CreateContact(r.Context(), payment.Contact{
		ClientID: payment.ClientID(id),
		Type:     req.Type,
		Name:     req.Name,
		Email:    req.Email,
		Phone:    req.Phone,
	})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: int64(contactID)})
}

// =============================================================================
// CONTRACT HANDLERS
// =============================================================================

// ListContracts returns a client's contracts, active first.
func (h *Handler) ListContracts(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	contracts, err := h.engine.Contracts(r.Context(), payment.ClientID(id))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	dtos := make([]ContractDTO, len(contracts))
	for i, c := range contracts {
		dtos[i] = toContractDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateContract adds a contract. An active contract archives the client's
// previous one.
func (h *Handler) CreateContract(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req ContractRequest
	if !h.decode(w, r, &req) {
		return
	}

	c := req.contract()
	c.ClientID = payment.ClientID(id)
	contractID, err := h.engine.CreateContract(r.Context(), c)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: int64(contractID)})
}

// UpdateContract edits a contract's terms.
func (h *Handler) UpdateContract(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req ContractRequest
	if !h.decode(w, r, &req) {
		return
	}

	c := req.contract()
	c.ID = payment.ContractID(id)
	if err := h.engine.UpdateContract(r.Context(), c); err != nil {
		h.writeEngineError(w, err)
		return
	}
	updated, err := h.engine.Contract(r.Context(), c.ID)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(updated))
}

// DeleteContract removes a contract no payment references.
func (h *Handler) DeleteContract(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.DeleteContract(r.Context(), payment.ContractID(id)); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// PERIOD AND FEE HANDLERS
// =============================================================================

// PaymentDefaults returns the draft for a new payment.
func (h *Handler) PaymentDefaults(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	d, err := h.engine.DefaultsForNewPayment(r.Context(), payment.ClientID(id))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toDraftDTO(d))
}

// StartPeriods lists the selectable start periods for a schedule.
func (h *Handler) StartPeriods(w http.ResponseWriter, r *http.Request) {
	s := period.ParseSchedule(r.URL.Query().Get("schedule"))
	if !s.Valid() {
		h.writeEngineError(w, &payment.ValidationError{Codes: []payment.Code{payment.CodeNoSchedule}, Fields: []string{"schedule"}})
		return
	}
	writeJSON(w, http.StatusOK, PeriodsResponse{Schedule: string(s), Periods: h.engine.StartPeriods(s)})
}

// EndPeriods lists the legal end periods for a start period.
func (h *Handler) EndPeriods(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	s := period.ParseSchedule(q.Get("schedule"))
	ends, err := h.engine.EndPeriods(q.Get("start"), s)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, PeriodsResponse{Schedule: string(s), Periods: ends})
}

// ValidateDraft returns the range codes for a draft.
func (h *Handler) ValidateDraft(w http.ResponseWriter, r *http.Request) {
	var req DraftDTO
	if !h.decode(w, r, &req) {
		return
	}
	codes := codeStrings(h.engine.Validate(req.draft()))
	if codes == nil {
		codes = []string{}
	}
	writeJSON(w, http.StatusOK, ValidateResponse{Codes: codes})
}

// ExpectedFee suggests the fee under the client's active contract.
func (h *Handler) ExpectedFee(w http.ResponseWriter, r *http.Request) {
	var req ExpectedFeeRequest
	if !h.decode(w, r, &req) {
		return
	}

	c, err := h.engine.ActiveContract(r.Context(), payment.ClientID(req.ClientID))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	var assets any
	if req.TotalAssets != "" {
		assets = string(req.TotalAssets)
	}
	var dto ExpectedFeeDTO
	if amount, ok := h.engine.ExpectedFee(c, assets); ok {
		s := amount.StringFixed(2)
		dto.ExpectedFee = &s
		dto.Display = fee.Currency(amount)
	}
	writeJSON(w, http.StatusOK, dto)
}

// Rates renders a rate at every cadence.
func (h *Handler) Rates(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	rate, err := fee.ParseAmount(q.Get("rate"))
	if err != nil {
		h.writeEngineError(w, &payment.ValidationError{Codes: []payment.Code{payment.CodeUnparseableAmount}, Fields: []string{"rate"}})
		return
	}

	cadence := fee.Cadence(strings.ToLower(q.Get("cadence")))
	if cadence == "" {
		cadence = fee.CadenceQuarterly
	}
	feeType := fee.Type(strings.ToLower(q.Get("fee_type")))
	if feeType == "" {
		feeType = fee.TypePercentage
	}

	writeJSON(w, http.StatusOK, RatesDTO{
		RateDisplay: fee.Convert(rate, cadence).Display(feeType),
		Alternates:  fee.Alternates(rate, cadence, feeType),
	})
}

// =============================================================================
// PAYMENT HANDLERS
// =============================================================================

// CreatePayment persists a draft for a client.
func (h *Handler) CreatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req DraftDTO
	if !h.decode(w, r, &req) {
		return
	}

	paymentID, err := h.engine.Persist(r.Context(), payment.ClientID(id), req.draft())
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, CreatedDTO{ID: int64(paymentID)})
}

// BulkPayments persists several drafts. Rows fail independently.
func (h *Handler) BulkPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req BulkPaymentsRequest
	if !h.decode(w, r, &req) {
		return
	}

	drafts := make([]payment.Draft, len(req.Payments))
	for i, d := range req.Payments {
		drafts[i] = d.draft()
	}

	results := h.engine.PersistBatch(r.Context(), payment.ClientID(id), drafts)
	rows := make([]BulkRowDTO, len(results))
	status := http.StatusCreated
	for i, res := range results {
		rows[i] = BulkRowDTO{Row: i}
		if res.Err != nil {
			rows[i].Codes = codeStrings(payment.Codes(res.Err))
			rows[i].Error = res.Err.Error()
			status = http.StatusMultiStatus
			continue
		}
		paymentID := int64(res.ID)
		rows[i].PaymentID = &paymentID
	}
	writeJSON(w, status, rows)
}

// ListPayments returns a client's payments, newest received first.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	payments, err := h.engine.Payments(r.Context(), payment.ClientID(id))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}

	dtos, err := h.paymentDTOs(r.Context(), payments)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos)
}

// Summary returns the client rollup.
func (h *Handler) Summary(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	s, err := h.engine.Summary(r.Context(), payment.ClientID(id))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSummaryDTO(s))
}

// GetPayment returns one payment.
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	p, err := h.engine.Payment(r.Context(), payment.PaymentID(id))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos, err := h.paymentDTOs(r.Context(), []payment.Payment{p})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos[0])
}

// UpdatePayment re-validates and rewrites a payment.
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req DraftDTO
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.engine.UpdatePayment(r.Context(), payment.PaymentID(id), req.draft()); err != nil {
		h.writeEngineError(w, err)
		return
	}
	p, err := h.engine.Payment(r.Context(), payment.PaymentID(id))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	dtos, err := h.paymentDTOs(r.Context(), []payment.Payment{p})
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dtos[0])
}

// DeletePayment removes a payment.
func (h *Handler) DeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	if err := h.engine.DeletePayment(r.Context(), payment.PaymentID(id)); err != nil {
		h.writeEngineError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// paymentDTOs renders payments with the schedule of each one's contract.
func (h *Handler) paymentDTOs(ctx context.Context, payments []payment.Payment) ([]PaymentDTO, error) {
	schedules := make(map[payment.ContractID]period.Schedule)
	dtos := make([]PaymentDTO, len(payments))
	for i, p := range payments {
		s, ok := schedules[p.ContractID]
		if !ok {
			c, err := h.engine.Contract(ctx, p.ContractID)
			if err != nil {
				return nil, err
			}
			s = c.Schedule
			schedules[p.ContractID] = s
		}
		dtos[i] = toPaymentDTO(p, s)
	}
	return dtos, nil
}

// =============================================================================
// DRAFT SESSION HANDLERS
// =============================================================================

// OpenDraftRequest opens a session. Without a draft the session starts
// from the client's defaults.
type OpenDraftRequest struct {
	ClientID int64     `json:"client_id" validate:"required"`
	Draft    *DraftDTO `json:"draft"`
}

// OpenDraft opens a draft session.
func (h *Handler) OpenDraft(w http.ResponseWriter, r *http.Request) {
	var req OpenDraftRequest
	if !h.decode(w, r, &req) {
		return
	}

	var d payment.Draft
	if req.Draft != nil {
		d = req.Draft.draft()
	} else {
		var err error
		d, err = h.engine.DefaultsForNewPayment(r.Context(), payment.ClientID(req.ClientID))
		if err != nil {
			h.writeEngineError(w, err)
			return
		}
	}
	d.ClientID = payment.ClientID(req.ClientID)

	writeJSON(w, http.StatusCreated, toSessionDTO(h.drafts.Open(d)))
}

// GetDraft returns a session.
func (h *Handler) GetDraft(w http.ResponseWriter, r *http.Request) {
	s, err := h.drafts.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// PutDraft replaces a session's draft.
func (h *Handler) PutDraft(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req DraftDTO
	if !h.decode(w, r, &req) {
		return
	}

	existing, err := h.drafts.Get(id)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	d := req.draft()
	d.ClientID = existing.Draft.ClientID

	s, err := h.drafts.Put(id, d)
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// DraftEvent drives a session through its state machine.
func (h *Handler) DraftEvent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req DraftEventRequest
	if !h.decode(w, r, &req) {
		return
	}

	var (
		s   payment.Session
		err error
	)
	switch req.Event {
	case "check":
		s, err = h.engine.CheckDraft(h.drafts, id)
	case "commit":
		s, err = h.engine.CommitDraft(r.Context(), h.drafts, id)
		if err != nil && s.ID != "" && !errors.Is(err, payment.ErrIllegalTransition) {
			writeJSON(w, statusFor(err), toSessionDTO(s))
			return
		}
	default:
		s, err = h.drafts.Apply(id, payment.DraftEvent(req.Event))
	}
	if err != nil {
		h.writeEngineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toSessionDTO(s))
}

// DiscardDraft drops a session.
func (h *Handler) DiscardDraft(w http.ResponseWriter, r *http.Request) {
	h.drafts.Discard(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HELPERS
// =============================================================================

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// decode reads and validates a JSON body into v. It writes the error
// response and returns false on failure.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	if err := h.validate.Struct(v); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeError(w, http.StatusBadRequest, "Invalid request body", err)
			return false
		}
		resp := ErrorResponse{Error: "Invalid request body", Code: string(payment.CodeMissingField)}
		for _, fe := range verrs {
			resp.Fields = append(resp.Fields, fe.Field())
			if fe.Tag() != "required" {
				resp.Code = "invalid_request"
			}
		}
		resp.Details = err.Error()
		writeJSON(w, http.StatusBadRequest, resp)
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	raw := chi.URLParam(r, "id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Invalid id %q", raw), err)
		return 0, false
	}
	return id, true
}

// statusFor maps an engine error onto an HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, payment.ErrDraftNotFound):
		return http.StatusNotFound
	case errors.Is(err, payment.ErrIllegalTransition):
		return http.StatusConflict
	}

	var verr *payment.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	switch payment.CodeOf(err) {
	case payment.CodeNotFound:
		return http.StatusNotFound
	case payment.CodeContractInUse, payment.CodeClientHasPayments:
		return http.StatusConflict
	case payment.CodeNoActiveContract, payment.CodeNoSchedule:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeEngineError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	codes := codeStrings(payment.Codes(err))
	resp := ErrorResponse{Error: http.StatusText(status), Codes: codes, Details: err.Error()}
	if len(codes) > 0 {
		resp.Code = codes[0]
	}
	var verr *payment.ValidationError
	if errors.As(err, &verr) {
		resp.Fields = verr.Fields
	}

	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.Strings("codes", codes), zap.Error(err))
		resp.Details = nil
	}
	writeJSON(w, status, resp)
}
