package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = `
  id::text, shop_name, order_id::text, client_id::text, amount, payment_date, payment_method,
  COALESCE(received_by::text, ''), notes, created_at`

func scanPayment(row pgx.Row) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.ShopName, &p.OrderID, &p.ClientID, &p.Amount, &p.PaymentDate, &p.PaymentMethod,
		&p.ReceivedBy, &p.Notes, &p.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	return p, err
}

func (s *Store) CreatePayment(ctx context.Context, p Payment) (Payment, error) {
	row := s.q(ctx).QueryRow(ctx, `
    INSERT INTO payments (shop_name, order_id, client_id, amount, payment_date, payment_method, received_by, notes)
    VALUES ($1,$2,$3,$4,$5,$6,NULLIF($7,'')::uuid,$8)
    RETURNING `+paymentColumns,
		p.ShopName, p.OrderID, p.ClientID, p.Amount, p.PaymentDate, p.PaymentMethod, p.ReceivedBy, p.Notes)
	created, err := scanPayment(row)
	if err != nil {
		return Payment{}, fmt.Errorf("failed to create payment: %w", err)
	}
	return created, nil
}

func (s *Store) GetPayment(ctx context.Context, shopName, paymentID string) (Payment, error) {
	return scanPayment(s.q(ctx).QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE shop_name = $1 AND id = $2`, shopName, paymentID))
}

func (s *Store) ListPayments(ctx context.Context, shopName string, f PaymentFilter) ([]Payment, error) {
	where := []string{"shop_name = $1"}
	args := []any{shopName}
	if f.OrderID != "" {
		args = append(args, f.OrderID)
		where = append(where, fmt.Sprintf("order_id = $%d", len(args)))
	}
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	rows, err := s.q(ctx).Query(ctx, `SELECT `+paymentColumns+` FROM payments WHERE `+strings.Join(where, " AND ")+` ORDER BY payment_date DESC, created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) DeletePayment(ctx context.Context, shopName, paymentID string) error {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM payments WHERE shop_name = $1 AND id = $2`, shopName, paymentID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrPaymentNotFound
	}
	return nil
}

func (s *Store) ShopStats(ctx context.Context, shopName string) (ShopStats, error) {
	var st ShopStats
	err := s.q(ctx).QueryRow(ctx, `
    SELECT
      (SELECT COUNT(*) FROM clients WHERE shop_name = $1),
      (SELECT COUNT(*) FROM orders WHERE shop_name = $1),
      (SELECT COUNT(*) FROM editing_projects WHERE shop_name = $1),
      (SELECT COUNT(*) FROM orders WHERE shop_name = $1 AND status = 'completed'),
      (SELECT COALESCE(SUM(total_payments_due), 0)::bigint FROM clients WHERE shop_name = $1),
      (SELECT COALESCE(SUM(received_payments), 0)::bigint FROM clients WHERE shop_name = $1),
      (SELECT COALESCE(SUM(pending_payments), 0)::bigint FROM clients WHERE shop_name = $1),
      (SELECT COALESCE(SUM(remaining_salary), 0)::bigint FROM users WHERE shop_name = $1)
  `, shopName).Scan(&st.Clients, &st.Orders, &st.Projects, &st.CompletedOrders,
		&st.TotalDue, &st.TotalReceived, &st.TotalPending, &st.SalaryOutstanding)
	return st, err
}
