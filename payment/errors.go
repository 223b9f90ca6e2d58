/*
errors.go - Error codes for the payment engine

PURPOSE:
  The engine reports failure as values, never panics across its boundary.
  Every failure carries a Code so the form layer can phrase its own message.

ERROR CATEGORIES:
  1. Validation errors - collected and returned together (*ValidationError)
  2. Persistence errors - returned singly (*Error), wrapping the cause
  3. Store sentinels   - returned by Store implementations, use errors.Is

USAGE:
  id, err := engine.Persist(ctx, clientID, draft)
  var verr *payment.ValidationError
  if errors.As(err, &verr) {
      // show every verr.Codes entry at once
  }
  if payment.CodeOf(err) == payment.CodeNoActiveContract {
      // ...
  }

SEE ALSO:
  - period/validate.go: range reasons that become validation codes
  - api/handlers.go: Code to HTTP status mapping
*/
package payment

import (
	"errors"
	"fmt"
	"strings"

	"github.com/warp/fee-engine/period"
)

// =============================================================================
// CODES
// =============================================================================

// Code identifies one kind of failure.
type Code string

const (
	CodeNoSchedule        Code = Code(period.ReasonNoSchedule)
	CodeMalformedToken    Code = Code(period.ReasonMalformedToken)
	CodeStartNotInArrears Code = Code(period.ReasonStartNotInArrears)
	CodeEndNotInArrears   Code = Code(period.ReasonEndNotInArrears)
	CodeEndBeforeStart    Code = Code(period.ReasonEndBeforeStart)
	CodeMissingField      Code = "missing_required_field"
	CodeInvalidDate       Code = "invalid_date"
	CodeUnparseableAmount Code = "unparseable_amount"
	CodeScheduleMismatch  Code = "schedule_mismatch"
	CodeInvalidContract   Code = "invalid_contract"
	CodeNoActiveContract  Code = "no_active_contract"
	CodeStorageFailure    Code = "storage_failure"
	CodeNotFound          Code = "not_found"
	CodeContractInUse     Code = "contract_in_use"
	CodeClientHasPayments Code = "client_has_payments"
)

func codesFromReasons(reasons []period.Reason) []Code {
	codes := make([]Code, 0, len(reasons))
	for _, r := range reasons {
		codes = append(codes, Code(r))
	}
	return codes
}

// =============================================================================
// SENTINEL ERRORS - Returned by Store implementations
// =============================================================================

var (
	// ErrNotFound is returned when a client, contract or payment does not exist.
	ErrNotFound = errors.New("not found")

	// ErrContractInUse is returned when deleting a contract that payments
	// still reference.
	ErrContractInUse = errors.New("contract is referenced by payments")

	// ErrClientHasPayments is returned when deleting a client that still has
	// payments.
	ErrClientHasPayments = errors.New("client has payments")

	// ErrDraftNotFound is returned for unknown or expired draft sessions.
	ErrDraftNotFound = errors.New("draft not found")

	// ErrIllegalTransition is returned when a draft event does not apply to
	// the session's current state.
	ErrIllegalTransition = errors.New("illegal draft transition")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// ValidationError carries every validation-class code found in a draft.
// Fields names the draft fields that were missing or unparseable.
type ValidationError struct {
	Codes  []Code
	Fields []string
}

func (e *ValidationError) Error() string {
	parts := make([]string, len(e.Codes))
	for i, c := range e.Codes {
		parts[i] = string(c)
	}
	msg := "invalid payment: " + strings.Join(parts, ", ")
	if len(e.Fields) > 0 {
		msg += " (" + strings.Join(e.Fields, ", ") + ")"
	}
	return msg
}

// Error is a single persistence-class failure.
type Error struct {
	Code Code
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return string(e.Code)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// storeError classifies an error returned by a Store.
func storeError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return &Error{Code: CodeNotFound, Err: err}
	case errors.Is(err, ErrContractInUse):
		return &Error{Code: CodeContractInUse, Err: err}
	case errors.Is(err, ErrClientHasPayments):
		return &Error{Code: CodeClientHasPayments, Err: err}
	default:
		return &Error{Code: CodeStorageFailure, Err: err}
	}
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// Codes returns every code carried by err, or nil.
func Codes(err error) []Code {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Codes
	}
	var perr *Error
	if errors.As(err, &perr) {
		return []Code{perr.Code}
	}
	return nil
}

// CodeOf returns the first code carried by err, or "" when err is nil or
// carries none.
func CodeOf(err error) Code {
	codes := Codes(err)
	if len(codes) == 0 {
		return ""
	}
	return codes[0]
}

// IsClientError returns true if the error is due to invalid caller input.
func IsClientError(err error) bool {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return true
	}
	switch CodeOf(err) {
	case CodeContractInUse, CodeClientHasPayments, CodeNoActiveContract:
		return true
	}
	return false
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) || errors.Is(err, ErrDraftNotFound)
}
