package payment

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/fee-engine/fee"
	"github.com/warp/fee-engine/period"
	"go.uber.org/zap"
)

// =============================================================================
// ENGINE
// =============================================================================

// Engine is the payment period engine. It holds no per-draft state; drafts
// live in the caller or in a Drafts registry.
type Engine struct {
	store   Store
	cache   ContractCache
	clock   period.Clock
	log     *zap.Logger
	metrics *Metrics
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall-clock source.
func WithClock(c period.Clock) Option { return func(e *Engine) { e.clock = c } }

// WithCache sets the active-contract cache.
func WithCache(c ContractCache) Option { return func(e *Engine) { e.cache = c } }

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option { return func(e *Engine) { e.log = l } }

// WithMetrics enables prometheus counters.
func WithMetrics(m *Metrics) Option { return func(e *Engine) { e.metrics = m } }

// NewEngine builds an engine over store. Defaults: system clock, a
// process-local cache with DefaultCacheTTL, no logging.
func NewEngine(store Store, opts ...Option) *Engine {
	e := &Engine{
		store: store,
		clock: period.SystemClock{},
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cache == nil {
		e.cache = NewMemoryCache(DefaultCacheTTL, e.clock)
	}
	return e
}

// Clock returns the engine's wall-clock source.
func (e *Engine) Clock() period.Clock { return e.clock }

// =============================================================================
// PERIOD OPERATIONS
// =============================================================================

// DefaultsForNewPayment returns a draft for the client's active contract:
// start and end at the period before the current one, received today.
func (e *Engine) DefaultsForNewPayment(ctx context.Context, clientID ClientID) (Draft, error) {
	c, err := e.ActiveContract(ctx, clientID)
	if err != nil {
		return Draft{}, err
	}
	if !c.Schedule.Valid() {
		return Draft{}, &Error{Code: CodeNoSchedule}
	}

	now := e.clock.Now()
	due := period.Due(c.Schedule, now)
	return Draft{
		ClientID:     clientID,
		Schedule:     c.Schedule,
		ReceivedDate: now.Format(period.DateLayout),
		StartPeriod:  due.Period,
		StartYear:    due.Year,
		EndPeriod:    due.Period,
		EndYear:      due.Year,
	}, nil
}

// StartPeriods lists the selectable start tokens, newest first.
func (e *Engine) StartPeriods(s period.Schedule) []string {
	return period.Strings(period.Enumerate(s, e.clock.Now()))
}

// EndPeriods lists the legal end tokens for a start token.
func (e *Engine) EndPeriods(startToken string, s period.Schedule) ([]string, error) {
	if !s.Valid() {
		return nil, &ValidationError{Codes: []Code{CodeNoSchedule}}
	}
	start, err := period.Parse(startToken, s)
	if err != nil {
		return nil, &ValidationError{Codes: []Code{CodeMalformedToken}, Fields: []string{"start"}}
	}
	return period.Strings(period.EndCandidates(start.Point, s, e.clock.Now())), nil
}

// Validate applies the range rules to d at the current instant. An empty
// result means the range is admissible. Calls on an unchanged draft within
// one period return equal results.
func (e *Engine) Validate(d Draft) []Code {
	return validateRange(d, e.clock.Now())
}

// Check applies every persist precondition: the range rules plus required
// and parseable fields.
func (e *Engine) Check(d Draft) []Code {
	codes, _ := check(d, e.clock.Now())
	return codes
}

func validateRange(d Draft, now time.Time) []Code {
	return codesFromReasons(period.Validate(d.Range(), d.Schedule, now))
}

func check(d Draft, now time.Time) ([]Code, []string) {
	var (
		codes  []Code
		fields []string
	)
	fail := func(c Code, field string) {
		codes = append(codes, c)
		fields = append(fields, field)
	}

	receivedOK := false
	if d.ReceivedDate == "" {
		fail(CodeMissingField, "received_date")
	} else if _, err := time.Parse(period.DateLayout, d.ReceivedDate); err != nil {
		fail(CodeInvalidDate, "received_date")
	} else {
		receivedOK = true
	}

	if d.ActualFee == "" {
		fail(CodeMissingField, "actual_fee")
	} else if _, err := fee.ParsePositive(d.ActualFee); err != nil {
		fail(CodeUnparseableAmount, "actual_fee")
	}

	for _, opt := range []struct {
		name, value string
	}{{"total_assets", d.TotalAssets}, {"expected_fee", d.ExpectedFee}} {
		if opt.value == "" {
			continue
		}
		if _, err := fee.ParseAmount(opt.value); err != nil {
			fail(CodeUnparseableAmount, opt.name)
		}
	}

	missingPeriod := false
	for _, f := range []struct {
		name  string
		value int
	}{
		{"applied_start_period", d.StartPeriod},
		{"applied_start_year", d.StartYear},
		{"applied_end_period", d.EndPeriod},
		{"applied_end_year", d.EndYear},
	} {
		if f.value == 0 {
			fail(CodeMissingField, f.name)
			missingPeriod = true
		}
	}
	if !missingPeriod || !d.Schedule.Valid() {
		codes = append(codes, validateRange(d, now)...)
	}

	// The applied range must end before the period the payment was received in.
	if receivedOK && !missingPeriod && d.Schedule.Valid() {
		last := period.ProjectFromDate(d.ReceivedDate, d.Schedule, now)
		if period.Ordinal(d.EndPeriod, d.EndYear, d.Schedule) > period.Ordinal(last.Period, last.Year, d.Schedule) {
			fail(CodeEndNotInArrears, "received_date")
		}
	}

	return dedupe(codes), fields
}

// =============================================================================
// FEES
// =============================================================================

// ExpectedFee suggests the fee for c given assets under management.
func (e *Engine) ExpectedFee(c Contract, assets any) (decimal.Decimal, bool) {
	return fee.ExpectedFee(c.Terms(), assets)
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// ActiveContract resolves the client's governing contract, through the cache.
func (e *Engine) ActiveContract(ctx context.Context, clientID ClientID) (Contract, error) {
	if c, ok := e.cache.Get(ctx, clientID); ok {
		e.metrics.observeCache(true)
		return c, nil
	}
	e.metrics.observeCache(false)

	c, err := e.store.ActiveContract(ctx, clientID)
	if errors.Is(err, ErrNotFound) {
		return Contract{}, &Error{Code: CodeNoActiveContract, Err: err}
	}
	if err != nil {
		return Contract{}, storeError(err)
	}
	e.cache.Set(ctx, c)
	return c, nil
}

// Persist validates d, binds it to the client's active contract, normalizes
// its periods to quarters and writes it. Nothing is written on failure.
func (e *Engine) Persist(ctx context.Context, clientID ClientID, d Draft) (PaymentID, error) {
	d.ClientID = clientID
	now := e.clock.Now()

	if codes, fields := check(d, now); len(codes) > 0 {
		return 0, e.reject(clientID, &ValidationError{Codes: codes, Fields: fields})
	}

	c, err := e.ActiveContract(ctx, clientID)
	if err != nil {
		return 0, e.reject(clientID, err)
	}
	if d.Schedule != c.Schedule {
		return 0, e.reject(clientID, &ValidationError{Codes: []Code{CodeScheduleMismatch}, Fields: []string{"payment_schedule"}})
	}

	p := Normalize(d, c)
	id, err := e.store.InsertPayment(ctx, p)
	if err != nil {
		return 0, e.reject(clientID, &Error{Code: CodeStorageFailure, Err: err})
	}

	e.metrics.observePersisted(string(c.Schedule))
	e.log.Info("payment persisted",
		zap.Int64("payment_id", int64(id)),
		zap.Int64("client_id", int64(clientID)),
		zap.Int64("contract_id", int64(c.ID)),
		zap.String("schedule", string(c.Schedule)),
		zap.String("periods", d.PeriodLabel()),
	)
	return id, nil
}

func (e *Engine) reject(clientID ClientID, err error) error {
	codes := Codes(err)
	e.metrics.observeRejected(codes)
	names := make([]string, len(codes))
	for i, c := range codes {
		names[i] = string(c)
	}
	e.log.Info("persist rejected",
		zap.Int64("client_id", int64(clientID)),
		zap.Strings("codes", names),
		zap.Error(err),
	)
	return err
}

// Normalize maps a validated draft onto the stored representation under
// contract c. Monthly periods become ceil(month/3); quarterly periods are
// copied. A blank expected fee is filled from the contract terms when they
// yield one, rounded to cents.
func Normalize(d Draft, c Contract) Payment {
	start := period.NewToken(d.Schedule, d.StartPeriod, d.StartYear)
	end := period.NewToken(d.Schedule, d.EndPeriod, d.EndYear)

	p := Payment{
		ClientID:     d.ClientID,
		ContractID:   c.ID,
		ReceivedDate: d.ReceivedDate,
		StartQuarter: start.Quarter(),
		StartYear:    start.Year,
		EndQuarter:   end.Quarter(),
		EndYear:      end.Year,
		Method:       d.Method,
		Notes:        d.Notes,
	}
	p.ActualFee, _ = fee.ParseAmount(d.ActualFee)
	p.TotalAssets = optionalAmount(d.TotalAssets)
	p.ExpectedFee = optionalAmount(d.ExpectedFee)

	if !p.ExpectedFee.Valid {
		var assets any = d.TotalAssets
		if d.TotalAssets == "" {
			assets = nil
		}
		if suggested, ok := fee.ExpectedFee(c.Terms(), assets); ok {
			p.ExpectedFee = decimal.NewNullDecimal(suggested.Round(2))
		}
	}
	return p
}

func optionalAmount(s string) decimal.NullDecimal {
	if s == "" {
		return decimal.NullDecimal{}
	}
	d, err := fee.ParseAmount(s)
	if err != nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(d)
}

// BatchResult is the outcome of one bulk-entry row.
type BatchResult struct {
	ID  PaymentID
	Err error
}

// PersistBatch persists each draft in order. Rows fail independently; a
// failed row does not undo the rows before it.
func (e *Engine) PersistBatch(ctx context.Context, clientID ClientID, drafts []Draft) []BatchResult {
	results := make([]BatchResult, len(drafts))
	for i, d := range drafts {
		id, err := e.Persist(ctx, clientID, d)
		results[i] = BatchResult{ID: id, Err: err}
	}
	return results
}

// UpdatePayment re-validates d against the payment's bound contract and
// rewrites the stored row. The client and contract references never change.
func (e *Engine) UpdatePayment(ctx context.Context, id PaymentID, d Draft) error {
	existing, err := e.store.GetPayment(ctx, id)
	if err != nil {
		return storeError(err)
	}
	c, err := e.store.GetContract(ctx, existing.ContractID)
	if err != nil {
		return storeError(err)
	}

	d.ClientID = existing.ClientID
	if codes, fields := check(d, e.clock.Now()); len(codes) > 0 {
		return &ValidationError{Codes: codes, Fields: fields}
	}
	if d.Schedule != c.Schedule {
		return &ValidationError{Codes: []Code{CodeScheduleMismatch}, Fields: []string{"payment_schedule"}}
	}

	p := Normalize(d, c)
	p.ID = id
	if err := e.store.UpdatePayment(ctx, p); err != nil {
		return storeError(err)
	}
	e.log.Info("payment updated", zap.Int64("payment_id", int64(id)))
	return nil
}

// DeletePayment removes a payment.
func (e *Engine) DeletePayment(ctx context.Context, id PaymentID) error {
	return storeError(e.store.DeletePayment(ctx, id))
}

// Payment loads one payment.
func (e *Engine) Payment(ctx context.Context, id PaymentID) (Payment, error) {
	p, err := e.store.GetPayment(ctx, id)
	return p, storeError(err)
}

// Payments lists a client's payments, newest received first.
func (e *Engine) Payments(ctx context.Context, clientID ClientID) ([]Payment, error) {
	ps, err := e.store.ListPayments(ctx, clientID)
	return ps, storeError(err)
}
