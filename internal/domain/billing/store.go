package billing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopledger/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return db.WithTx(ctx, s.DB, fn)
}

func (s *Store) q(ctx context.Context) db.Querier {
	return db.From(ctx, s.DB)
}

const clientColumns = `
  id::text, shop_name, name, contact_person, phone, email, address, business_type, notes,
  total_payments_due, received_payments, pending_payments, payment_status,
  lifetime_orders, lifetime_editing_projects, lifetime_value, created_at, updated_at`

func scanClient(row pgx.Row) (Client, error) {
	var c Client
	err := row.Scan(
		&c.ID, &c.ShopName, &c.Name, &c.ContactPerson, &c.Phone, &c.Email, &c.Address, &c.BusinessType, &c.Notes,
		&c.TotalPaymentsDue, &c.ReceivedPayments, &c.PendingPayments, &c.PaymentStatus,
		&c.LifetimeOrders, &c.LifetimeEditingProjects, &c.LifetimeValue, &c.CreatedAt, &c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Client{}, ErrClientNotFound
	}
	return c, err
}

func (s *Store) CreateClient(ctx context.Context, shopName string, p ClientProfile) (Client, error) {
	if p.BusinessType == "" {
		p.BusinessType = BusinessIndividual
	}
	row := s.q(ctx).QueryRow(ctx, `
    INSERT INTO clients (shop_name, name, contact_person, phone, email, address, business_type, notes)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
    RETURNING `+clientColumns,
		shopName, p.Name, p.ContactPerson, p.Phone, p.Email, p.Address, p.BusinessType, p.Notes)
	c, err := scanClient(row)
	if err != nil {
		return Client{}, fmt.Errorf("failed to create client: %w", err)
	}
	return c, nil
}

func (s *Store) GetClient(ctx context.Context, shopName, clientID string) (Client, error) {
	row := s.q(ctx).QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE shop_name = $1 AND id = $2`, shopName, clientID)
	return scanClient(row)
}

// LockClient reads the client row FOR UPDATE; call it inside WithTx.
func (s *Store) LockClient(ctx context.Context, shopName, clientID string) (Client, error) {
	row := s.q(ctx).QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE shop_name = $1 AND id = $2 FOR UPDATE`, shopName, clientID)
	return scanClient(row)
}

func (s *Store) ListClients(ctx context.Context, shopName string) ([]Client, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT `+clientColumns+` FROM clients WHERE shop_name = $1 ORDER BY name`, shopName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) UpdateClientProfile(ctx context.Context, shopName, clientID string, p ClientProfile) error {
	if p.BusinessType == "" {
		p.BusinessType = BusinessIndividual
	}
	tag, err := s.q(ctx).Exec(ctx, `
    UPDATE clients
    SET name = $3, contact_person = $4, phone = $5, email = $6, address = $7, business_type = $8, notes = $9, updated_at = now()
    WHERE shop_name = $1 AND id = $2
  `, shopName, clientID, p.Name, p.ContactPerson, p.Phone, p.Email, p.Address, p.BusinessType, p.Notes)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrClientNotFound
	}
	return nil
}

func (s *Store) SaveClientTotals(ctx context.Context, clientID string, t Totals) error {
	_, err := s.q(ctx).Exec(ctx, `
    UPDATE clients
    SET total_payments_due = $2, received_payments = $3, pending_payments = $4, payment_status = $5, updated_at = now()
    WHERE id = $1
  `, clientID, t.Due, t.Received, t.Pending, t.Status)
	return err
}

func (s *Store) BumpClientLifetime(ctx context.Context, clientID string, orders, projects int, value int64) error {
	_, err := s.q(ctx).Exec(ctx, `
    UPDATE clients
    SET lifetime_orders = GREATEST(0, lifetime_orders + $2),
        lifetime_editing_projects = GREATEST(0, lifetime_editing_projects + $3),
        lifetime_value = GREATEST(0, lifetime_value + $4),
        updated_at = now()
    WHERE id = $1
  `, clientID, orders, projects, value)
	return err
}

func (s *Store) AppendPaymentHistory(ctx context.Context, clientID string, e PaymentHistoryEntry) error {
	_, err := s.q(ctx).Exec(ctx, `
    INSERT INTO client_payment_history (client_id, amount, previous_amount, notes, updated_by, updated_at)
    VALUES ($1,$2,$3,$4,NULLIF($5,'')::uuid,$6)
  `, clientID, e.Amount, e.PreviousAmount, e.Notes, e.UpdatedBy, e.UpdatedAt)
	return err
}

func (s *Store) ListPaymentHistory(ctx context.Context, clientID string) ([]PaymentHistoryEntry, error) {
	rows, err := s.q(ctx).Query(ctx, `
    SELECT amount, previous_amount, notes, COALESCE(updated_by::text, ''), updated_at
    FROM client_payment_history
    WHERE client_id = $1
    ORDER BY updated_at
  `, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PaymentHistoryEntry
	for rows.Next() {
		var e PaymentHistoryEntry
		if err := rows.Scan(&e.Amount, &e.PreviousAmount, &e.Notes, &e.UpdatedBy, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
