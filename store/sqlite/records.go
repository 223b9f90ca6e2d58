package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/fee-engine/fee"
	"github.com/warp/fee-engine/payment"
	"github.com/warp/fee-engine/period"
)

// =============================================================================
// CLIENT STORE
// =============================================================================

// CreateClient inserts a client.
func (s *Store) CreateClient(ctx context.Context, c payment.Client) (payment.ClientID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO clients (display_name, full_name, created_at) VALUES (?, ?, ?)",
		c.DisplayName, nullString(c.FullName), c.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert client: %w", err)
	}
	id, err := res.LastInsertId()
	return payment.ClientID(id), err
}

// GetClient retrieves a client by ID.
func (s *Store) GetClient(ctx context.Context, id payment.ClientID) (payment.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT client_id, display_name, full_name, created_at FROM clients WHERE client_id = ?",
		id,
	)
	c, err := scanClient(row)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Client{}, notFound("client", int64(id))
	}
	return c, err
}

// ListClients returns all clients by display name.
func (s *Store) ListClients(ctx context.Context) ([]payment.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT client_id, display_name, full_name, created_at FROM clients ORDER BY display_name",
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query clients: %w", err)
	}
	defer rows.Close()

	var clients []payment.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		clients = append(clients, c)
	}
	return clients, rows.Err()
}

// DeleteClient removes a client with its contracts and contacts.
func (s *Store) DeleteClient(ctx context.Context, id payment.ClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := count(ctx, tx, "SELECT COUNT(*) FROM payments WHERE client_id = ?", id)
		if err != nil {
			return err
		}
		if n > 0 {
			return payment.ErrClientHasPayments
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM clients WHERE client_id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete client: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return notFound("client", int64(id))
		}
		return nil
	})
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(row scanner) (payment.Client, error) {
	var (
		c         payment.Client
		fullName  sql.NullString
		createdAt string
	)
	if err := row.Scan(&c.ID, &c.DisplayName, &fullName, &createdAt); err != nil {
		return c, err
	}
	c.FullName = fullName.String
	c.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return c, nil
}

// =============================================================================
// CONTRACT STORE
// =============================================================================

const contractColumns = `contract_id, client_id, is_active, provider_name, contract_number,
	contract_start_date, fee_type, percent_rate, flat_rate, payment_schedule, num_people, notes`

// CreateContract inserts a contract. An active contract archives the
// client's other active contracts in the same transaction.
func (s *Store) CreateContract(ctx context.Context, c payment.Contract) (payment.ContractID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if c.Active {
			if _, err := tx.ExecContext(ctx,
				"UPDATE contracts SET is_active = 0 WHERE client_id = ? AND is_active = 1",
				c.ClientID,
			); err != nil {
				return fmt.Errorf("failed to archive contracts: %w", err)
			}
		}
		res, err := tx.ExecContext(ctx, `
			INSERT INTO contracts
			(client_id, is_active, provider_name, contract_number, contract_start_date,
			 fee_type, percent_rate, flat_rate, payment_schedule, num_people, notes)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			c.ClientID, c.Active, nullString(c.Provider), nullString(c.Number), nullString(c.StartDate),
			string(c.FeeType), c.PercentRate, c.FlatRate, string(c.Schedule), c.Participants, nullString(c.Notes),
		)
		if isForeignKeyError(err) {
			return notFound("client", int64(c.ClientID))
		}
		if err != nil {
			return fmt.Errorf("failed to insert contract: %w", err)
		}
		id, err = res.LastInsertId()
		return err
	})
	return payment.ContractID(id), err
}

// UpdateContract rewrites a contract's terms.
func (s *Store) UpdateContract(ctx context.Context, c payment.Contract) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE contracts SET
			provider_name = ?, contract_number = ?, contract_start_date = ?,
			fee_type = ?, percent_rate = ?, flat_rate = ?,
			payment_schedule = ?, num_people = ?, notes = ?
		WHERE contract_id = ?
	`,
		nullString(c.Provider), nullString(c.Number), nullString(c.StartDate),
		string(c.FeeType), c.PercentRate, c.FlatRate,
		string(c.Schedule), c.Participants, nullString(c.Notes),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update contract: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return notFound("contract", int64(c.ID))
	}
	return nil
}

// GetContract retrieves a contract by ID.
func (s *Store) GetContract(ctx context.Context, id payment.ContractID) (payment.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+contractColumns+" FROM contracts WHERE contract_id = ?", id)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Contract{}, notFound("contract", int64(id))
	}
	return c, err
}

// ActiveContract returns the client's contract in force.
func (s *Store) ActiveContract(ctx context.Context, clientID payment.ClientID) (payment.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+contractColumns+" FROM contracts WHERE client_id = ? AND is_active = 1", clientID)
	c, err := scanContract(row)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Contract{}, fmt.Errorf("active contract for client %d: %w", clientID, payment.ErrNotFound)
	}
	return c, err
}

// ListContracts returns the client's contracts, active first.
func (s *Store) ListContracts(ctx context.Context, clientID payment.ClientID) ([]payment.Contract, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+contractColumns+" FROM contracts WHERE client_id = ? ORDER BY is_active DESC, contract_id DESC",
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query contracts: %w", err)
	}
	defer rows.Close()

	var contracts []payment.Contract
	for rows.Next() {
		c, err := scanContract(rows)
		if err != nil {
			return nil, err
		}
		contracts = append(contracts, c)
	}
	return contracts, rows.Err()
}

// DeleteContract removes a contract no payment references.
func (s *Store) DeleteContract(ctx context.Context, id payment.ContractID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withTx(ctx, func(tx *sql.Tx) error {
		n, err := count(ctx, tx, "SELECT COUNT(*) FROM payments WHERE contract_id = ?", id)
		if err != nil {
			return err
		}
		if n > 0 {
			return payment.ErrContractInUse
		}
		res, err := tx.ExecContext(ctx, "DELETE FROM contracts WHERE contract_id = ?", id)
		if err != nil {
			return fmt.Errorf("failed to delete contract: %w", err)
		}
		if affected, _ := res.RowsAffected(); affected == 0 {
			return notFound("contract", int64(id))
		}
		return nil
	})
}

func scanContract(row scanner) (payment.Contract, error) {
	var (
		c                       payment.Contract
		provider, number, start sql.NullString
		feeType, schedule       string
		notes                   sql.NullString
	)
	err := row.Scan(
		&c.ID, &c.ClientID, &c.Active, &provider, &number,
		&start, &feeType, &c.PercentRate, &c.FlatRate, &schedule, &c.Participants, &notes,
	)
	if err != nil {
		return c, err
	}
	c.Provider = provider.String
	c.Number = number.String
	c.StartDate = start.String
	c.FeeType = fee.Type(feeType)
	c.Schedule = period.Schedule(schedule)
	c.Notes = notes.String
	return c, nil
}

// =============================================================================
// PAYMENT STORE
// =============================================================================

const paymentColumns = `payment_id, client_id, contract_id, received_date,
	applied_start_quarter, applied_start_year, applied_end_quarter, applied_end_year,
	total_assets, expected_fee, actual_fee, method, notes`

// InsertPayment writes a payment in a single statement.
func (s *Store) InsertPayment(ctx context.Context, p payment.Payment) (payment.PaymentID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO payments
		(client_id, contract_id, received_date,
		 applied_start_quarter, applied_start_year, applied_end_quarter, applied_end_year,
		 total_assets, expected_fee, actual_fee, method, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		p.ClientID, p.ContractID, p.ReceivedDate,
		p.StartQuarter, p.StartYear, p.EndQuarter, p.EndYear,
		p.TotalAssets, p.ExpectedFee, p.ActualFee, nullString(p.Method), nullString(p.Notes),
	)
	if isForeignKeyError(err) {
		return 0, fmt.Errorf("client %d or contract %d: %w", p.ClientID, p.ContractID, payment.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert payment: %w", err)
	}
	id, err := res.LastInsertId()
	return payment.PaymentID(id), err
}

// UpdatePayment rewrites a payment, keeping its client and contract.
func (s *Store) UpdatePayment(ctx context.Context, p payment.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE payments SET
			received_date = ?,
			applied_start_quarter = ?, applied_start_year = ?,
			applied_end_quarter = ?, applied_end_year = ?,
			total_assets = ?, expected_fee = ?, actual_fee = ?,
			method = ?, notes = ?
		WHERE payment_id = ?
	`,
		p.ReceivedDate,
		p.StartQuarter, p.StartYear, p.EndQuarter, p.EndYear,
		p.TotalAssets, p.ExpectedFee, p.ActualFee,
		nullString(p.Method), nullString(p.Notes),
		p.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update payment: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return notFound("payment", int64(p.ID))
	}
	return nil
}

// GetPayment retrieves a payment by ID.
func (s *Store) GetPayment(ctx context.Context, id payment.PaymentID) (payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE payment_id = ?", id)
	p, err := scanPayment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return payment.Payment{}, notFound("payment", int64(id))
	}
	return p, err
}

// ListPayments returns the client's payments, newest received first.
func (s *Store) ListPayments(ctx context.Context, clientID payment.ClientID) ([]payment.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+paymentColumns+" FROM payments WHERE client_id = ? ORDER BY received_date DESC, payment_id DESC",
		clientID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	var payments []payment.Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// DeletePayment removes a payment.
func (s *Store) DeletePayment(ctx context.Context, id payment.PaymentID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, "DELETE FROM payments WHERE payment_id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete payment: %w", err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return notFound("payment", int64(id))
	}
	return nil
}

func scanPayment(row scanner) (payment.Payment, error) {
	var (
		p             payment.Payment
		actual        string
		method, notes sql.NullString
	)
	err := row.Scan(
		&p.ID, &p.ClientID, &p.ContractID, &p.ReceivedDate,
		&p.StartQuarter, &p.StartYear, &p.EndQuarter, &p.EndYear,
		&p.TotalAssets, &p.ExpectedFee, &actual, &method, &notes,
	)
	if err != nil {
		return p, err
	}
	p.ActualFee, err = decimal.NewFromString(actual)
	if err != nil {
		return p, fmt.Errorf("payment %d: bad actual_fee %q: %w", p.ID, actual, err)
	}
	p.Method = method.String
	p.Notes = notes.String
	return p, nil
}

// =============================================================================
// CONTACT STORE
// =============================================================================

// CreateContact inserts a contact.
func (s *Store) CreateContact(ctx context.Context, c payment.Contact) (payment.ContactID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO contacts (client_id, contact_type, contact_name, email, phone)
		VALUES (?, ?, ?, ?, ?)
	`, c.ClientID, nullString(c.Type), c.Name, nullString(c.Email), nullString(c.Phone))
	if isForeignKeyError(err) {
		return 0, notFound("client", int64(c.ClientID))
	}
	if err != nil {
		return 0, fmt.Errorf("failed to insert contact: %w", err)
	}
	id, err := res.LastInsertId()
	return payment.ContactID(id), err
}

// ListContacts returns the client's contacts.
func (s *Store) ListContacts(ctx context.Context, clientID payment.ClientID) ([]payment.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT contact_id, client_id, contact_type, contact_name, email, phone
		FROM contacts WHERE client_id = ? ORDER BY contact_id
	`, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contacts: %w", err)
	}
	defer rows.Close()

	var contacts []payment.Contact
	for rows.Next() {
		var (
			c                  payment.Contact
			kind, email, phone sql.NullString
		)
		if err := rows.Scan(&c.ID, &c.ClientID, &kind, &c.Name, &email, &phone); err != nil {
			return nil, err
		}
		c.Type = kind.String
		c.Email = email.String
		c.Phone = phone.String
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}
