// Package store provides payment.Store implementations.
package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/warp/fee-engine/payment"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Memory struct {
	mu        sync.RWMutex
	clients   map[payment.ClientID]payment.Client
	contracts map[payment.ContractID]payment.Contract
	payments  map[payment.PaymentID]payment.Payment
	contacts  map[payment.ContactID]payment.Contact
	nextID    int64

	// FailInserts makes InsertPayment fail, for exercising storage errors.
	FailInserts error
}

var _ payment.Store = (*Memory)(nil)

func NewMemory() *Memory {
	return &Memory{
		clients:   make(map[payment.ClientID]payment.Client),
		contracts: make(map[payment.ContractID]payment.Contract),
		payments:  make(map[payment.PaymentID]payment.Payment),
		contacts:  make(map[payment.ContactID]payment.Contact),
	}
}

func (m *Memory) id() int64 {
	m.nextID++
	return m.nextID
}

// =============================================================================
// CLIENTS
// =============================================================================

func (m *Memory) CreateClient(_ context.Context, c payment.Client) (payment.ClientID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = payment.ClientID(m.id())
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	m.clients[c.ID] = c
	return c.ID, nil
}

func (m *Memory) GetClient(_ context.Context, id payment.ClientID) (payment.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.clients[id]
	if !ok {
		return payment.Client{}, fmt.Errorf("client %d: %w", id, payment.ErrNotFound)
	}
	return c, nil
}

func (m *Memory) ListClients(_ context.Context) ([]payment.Client, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]payment.Client, 0, len(m.clients))
	for _, c := range m.clients {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DisplayName < out[j].DisplayName })
	return out, nil
}

func (m *Memory) DeleteClient(_ context.Context, id payment.ClientID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.clients[id]; !ok {
		return fmt.Errorf("client %d: %w", id, payment.ErrNotFound)
	}
	for _, p := range m.payments {
		if p.ClientID == id {
			return payment.ErrClientHasPayments
		}
	}
	for cid, c := range m.contracts {
		if c.ClientID == id {
			delete(m.contracts, cid)
		}
	}
	for cid, c := range m.contacts {
		if c.ClientID == id {
			delete(m.contacts, cid)
		}
	}
	delete(m.clients, id)
	return nil
}

// =============================================================================
// CONTRACTS
// =============================================================================

func (m *Memory) CreateContract(_ context.Context, c payment.Contract) (payment.ContractID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c.Active {
		for id, other := range m.contracts {
			if other.ClientID == c.ClientID && other.Active {
				other.Active = false
				m.contracts[id] = other
			}
		}
	}
	c.ID = payment.ContractID(m.id())
	m.contracts[c.ID] = c
	return c.ID, nil
}

func (m *Memory) UpdateContract(_ context.Context, c payment.Contract) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.contracts[c.ID]
	if !ok {
		return fmt.Errorf("contract %d: %w", c.ID, payment.ErrNotFound)
	}
	c.ClientID = existing.ClientID
	c.Active = existing.Active
	m.contracts[c.ID] = c
	return nil
}

func (m *Memory) GetContract(_ context.Context, id payment.ContractID) (payment.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	c, ok := m.contracts[id]
	if !ok {
		return payment.Contract{}, fmt.Errorf("contract %d: %w", id, payment.ErrNotFound)
	}
	return c, nil
}

func (m *Memory) ActiveContract(_ context.Context, clientID payment.ClientID) (payment.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, c := range m.contracts {
		if c.ClientID == clientID && c.Active {
			return c, nil
		}
	}
	return payment.Contract{}, fmt.Errorf("active contract for client %d: %w", clientID, payment.ErrNotFound)
}

func (m *Memory) ListContracts(_ context.Context, clientID payment.ClientID) ([]payment.Contract, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payment.Contract
	for _, c := range m.contracts {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Active != out[j].Active {
			return out[i].Active
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) DeleteContract(_ context.Context, id payment.ContractID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.contracts[id]; !ok {
		return fmt.Errorf("contract %d: %w", id, payment.ErrNotFound)
	}
	for _, p := range m.payments {
		if p.ContractID == id {
			return payment.ErrContractInUse
		}
	}
	delete(m.contracts, id)
	return nil
}

// =============================================================================
// PAYMENTS
// =============================================================================

func (m *Memory) InsertPayment(_ context.Context, p payment.Payment) (payment.PaymentID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInserts != nil {
		return 0, m.FailInserts
	}
	if _, ok := m.clients[p.ClientID]; !ok {
		return 0, fmt.Errorf("client %d: %w", p.ClientID, payment.ErrNotFound)
	}
	if _, ok := m.contracts[p.ContractID]; !ok {
		return 0, fmt.Errorf("contract %d: %w", p.ContractID, payment.ErrNotFound)
	}
	p.ID = payment.PaymentID(m.id())
	m.payments[p.ID] = p
	return p.ID, nil
}

func (m *Memory) UpdatePayment(_ context.Context, p payment.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	existing, ok := m.payments[p.ID]
	if !ok {
		return fmt.Errorf("payment %d: %w", p.ID, payment.ErrNotFound)
	}
	p.ClientID = existing.ClientID
	p.ContractID = existing.ContractID
	m.payments[p.ID] = p
	return nil
}

func (m *Memory) GetPayment(_ context.Context, id payment.PaymentID) (payment.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	p, ok := m.payments[id]
	if !ok {
		return payment.Payment{}, fmt.Errorf("payment %d: %w", id, payment.ErrNotFound)
	}
	return p, nil
}

func (m *Memory) ListPayments(_ context.Context, clientID payment.ClientID) ([]payment.Payment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payment.Payment
	for _, p := range m.payments {
		if p.ClientID == clientID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ReceivedDate != out[j].ReceivedDate {
			return out[i].ReceivedDate > out[j].ReceivedDate
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (m *Memory) DeletePayment(_ context.Context, id payment.PaymentID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.payments[id]; !ok {
		return fmt.Errorf("payment %d: %w", id, payment.ErrNotFound)
	}
	delete(m.payments, id)
	return nil
}

// =============================================================================
// CONTACTS
// =============================================================================

func (m *Memory) CreateContact(_ context.Context, c payment.Contact) (payment.ContactID, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	c.ID = payment.ContactID(m.id())
	m.contacts[c.ID] = c
	return c.ID, nil
}

func (m *Memory) ListContacts(_ context.Context, clientID payment.ClientID) ([]payment.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []payment.Contact
	for _, c := range m.contacts {
		if c.ClientID == clientID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
