package payment

import (
	"context"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/warp/fee-engine/period"
	"go.uber.org/zap"
)

// =============================================================================
// CLIENTS
// =============================================================================

// CreateClient adds a client. DisplayName is required.
func (e *Engine) CreateClient(ctx context.Context, c Client) (ClientID, error) {
	if strings.TrimSpace(c.DisplayName) == "" {
		return 0, &ValidationError{Codes: []Code{CodeMissingField}, Fields: []string{"display_name"}}
	}
	id, err := e.store.CreateClient(ctx, c)
	return id, storeError(err)
}

func (e *Engine) Client(ctx context.Context, id ClientID) (Client, error) {
	c, err := e.store.GetClient(ctx, id)
	return c, storeError(err)
}

func (e *Engine) Clients(ctx context.Context) ([]Client, error) {
	cs, err := e.store.ListClients(ctx)
	return cs, storeError(err)
}

// DeleteClient removes a client that has no payments.
func (e *Engine) DeleteClient(ctx context.Context, id ClientID) error {
	if err := e.store.DeleteClient(ctx, id); err != nil {
		return storeError(err)
	}
	e.cache.Invalidate(ctx, id)
	return nil
}

// =============================================================================
// CONTRACTS
// =============================================================================

// CreateContract adds a contract for its client. An active contract archives
// the client's previous active contract.
func (e *Engine) CreateContract(ctx context.Context, c Contract) (ContractID, error) {
	if codes := c.Problems(); len(codes) > 0 {
		return 0, &ValidationError{Codes: codes}
	}
	if _, err := e.store.GetClient(ctx, c.ClientID); err != nil {
		return 0, storeError(err)
	}

	id, err := e.store.CreateContract(ctx, c)
	if err != nil {
		return 0, storeError(err)
	}
	e.cache.Invalidate(ctx, c.ClientID)
	e.log.Info("contract created",
		zap.Int64("contract_id", int64(id)),
		zap.Int64("client_id", int64(c.ClientID)),
		zap.Bool("active", c.Active),
		zap.String("schedule", string(c.Schedule)),
	)
	return id, nil
}

// UpdateContract edits a contract's terms. Expected fees already stored on
// payments are not recomputed.
func (e *Engine) UpdateContract(ctx context.Context, c Contract) error {
	if codes := c.Problems(); len(codes) > 0 {
		return &ValidationError{Codes: codes}
	}
	existing, err := e.store.GetContract(ctx, c.ID)
	if err != nil {
		return storeError(err)
	}
	c.ClientID = existing.ClientID
	c.Active = existing.Active

	if err := e.store.UpdateContract(ctx, c); err != nil {
		return storeError(err)
	}
	e.cache.Invalidate(ctx, c.ClientID)
	return nil
}

// DeleteContract removes a contract no payment references.
func (e *Engine) DeleteContract(ctx context.Context, id ContractID) error {
	existing, err := e.store.GetContract(ctx, id)
	if err != nil {
		return storeError(err)
	}
	if err := e.store.DeleteContract(ctx, id); err != nil {
		return storeError(err)
	}
	e.cache.Invalidate(ctx, existing.ClientID)
	return nil
}

func (e *Engine) Contract(ctx context.Context, id ContractID) (Contract, error) {
	c, err := e.store.GetContract(ctx, id)
	return c, storeError(err)
}

func (e *Engine) Contracts(ctx context.Context, clientID ClientID) ([]Contract, error) {
	cs, err := e.store.ListContracts(ctx, clientID)
	return cs, storeError(err)
}

// =============================================================================
// CONTACTS
// =============================================================================

func (e *Engine) CreateContact(ctx context.Context, c Contact) (ContactID, error) {
	if strings.TrimSpace(c.Name) == "" {
		return 0, &ValidationError{Codes: []Code{CodeMissingField}, Fields: []string{"name"}}
	}
	if _, err := e.store.GetClient(ctx, c.ClientID); err != nil {
		return 0, storeError(err)
	}
	id, err := e.store.CreateContact(ctx, c)
	return id, storeError(err)
}

func (e *Engine) Contacts(ctx context.Context, clientID ClientID) ([]Contact, error) {
	cs, err := e.store.ListContacts(ctx, clientID)
	return cs, storeError(err)
}

// =============================================================================
// SUMMARY
// =============================================================================

// Summary rolls up a client's payments. Contract is nil when the client has
// no active contract.
func (e *Engine) Summary(ctx context.Context, clientID ClientID) (Summary, error) {
	client, err := e.store.GetClient(ctx, clientID)
	if err != nil {
		return Summary{}, storeError(err)
	}
	s := Summary{Client: client, TotalActual: decimal.Zero, TotalExpected: decimal.Zero}

	c, err := e.ActiveContract(ctx, clientID)
	switch {
	case err == nil:
		s.Contract = &c
		if c.Schedule.Valid() {
			s.DuePeriod = period.Due(c.Schedule, e.clock.Now()).String()
		}
	case CodeOf(err) != CodeNoActiveContract:
		return Summary{}, err
	}

	payments, err := e.store.ListPayments(ctx, clientID)
	if err != nil {
		return Summary{}, storeError(err)
	}
	s.PaymentCount = len(payments)

	last := -1
	for _, p := range payments {
		s.TotalActual = s.TotalActual.Add(p.ActualFee)
		if p.ExpectedFee.Valid {
			s.TotalExpected = s.TotalExpected.Add(p.ExpectedFee.Decimal)
		}
		if ord := period.Ordinal(p.EndQuarter, p.EndYear, period.Quarterly); ord > last {
			last = ord
			s.LastPaidPeriod = period.Format(p.EndQuarter, p.EndYear, period.Quarterly)
		}
	}
	return s, nil
}
