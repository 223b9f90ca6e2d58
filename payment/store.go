package payment

import "context"

// =============================================================================
// STORE - Persistence interfaces
// =============================================================================
//
// Implementations:
//   - store/sqlite: production relational store
//   - payment/store: in-memory store for tests
//
// Lookups of missing rows return ErrNotFound. Implementations hold a
// connection only for the duration of one call.

// ClientStore persists clients.
type ClientStore interface {
	CreateClient(ctx context.Context, c Client) (ClientID, error)
	GetClient(ctx context.Context, id ClientID) (Client, error)
	ListClients(ctx context.Context) ([]Client, error)

	// DeleteClient fails with ErrClientHasPayments while payments exist.
	DeleteClient(ctx context.Context, id ClientID) error
}

// ContractStore persists contracts.
type ContractStore interface {
	// CreateContract inserts c. When c.Active is set, every other active
	// contract of the client is archived in the same transaction.
	CreateContract(ctx context.Context, c Contract) (ContractID, error)

	// UpdateContract rewrites the terms of an existing contract. The active
	// flag and owning client are left untouched.
	UpdateContract(ctx context.Context, c Contract) error

	GetContract(ctx context.Context, id ContractID) (Contract, error)

	// ActiveContract returns the client's contract in force, or ErrNotFound.
	ActiveContract(ctx context.Context, clientID ClientID) (Contract, error)

	// ListContracts returns the client's contracts, active first.
	ListContracts(ctx context.Context, clientID ClientID) ([]Contract, error)

	// DeleteContract fails with ErrContractInUse while payments reference it.
	DeleteContract(ctx context.Context, id ContractID) error
}

// PaymentStore persists payments.
type PaymentStore interface {
	// InsertPayment writes p in a single statement and returns its new id.
	InsertPayment(ctx context.Context, p Payment) (PaymentID, error)

	// UpdatePayment rewrites everything but the client and contract
	// references.
	UpdatePayment(ctx context.Context, p Payment) error

	GetPayment(ctx context.Context, id PaymentID) (Payment, error)

	// ListPayments returns the client's payments, newest received first.
	ListPayments(ctx context.Context, clientID ClientID) ([]Payment, error)

	DeletePayment(ctx context.Context, id PaymentID) error
}

// ContactStore persists client contacts.
type ContactStore interface {
	CreateContact(ctx context.Context, c Contact) (ContactID, error)
	ListContacts(ctx context.Context, clientID ClientID) ([]Contact, error)
}

// Store is everything the engine needs from the backing store.
type Store interface {
	ClientStore
	ContractStore
	PaymentStore
	ContactStore
}
