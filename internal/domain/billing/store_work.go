package billing

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"shopledger/internal/domain/work"
)

const orderColumns = `
  id::text, shop_name, client_id::text, order_name, order_date, location, products, workers, transporters,
  total_amount, received_payment, remaining_payment, status, completion_date, notes,
  COALESCE(created_by::text, ''), created_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(
		&o.ID, &o.ShopName, &o.ClientID, &o.OrderName, &o.OrderDate, &o.Location, &o.Products, &o.Workers, &o.Transporters,
		&o.TotalAmount, &o.ReceivedPayment, &o.RemainingPayment, &o.Status, &o.CompletionDate, &o.Notes,
		&o.CreatedBy, &o.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func (s *Store) CreateOrder(ctx context.Context, o Order) (Order, error) {
	o.Normalize()
	if o.Workers == nil {
		o.Workers = []Assignment{}
	}
	if o.Transporters == nil {
		o.Transporters = []Assignment{}
	}
	row := s.q(ctx).QueryRow(ctx, `
    INSERT INTO orders (shop_name, client_id, order_name, order_date, location, products, workers, transporters,
      total_amount, received_payment, remaining_payment, status, notes, created_by)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,NULLIF($14,'')::uuid)
    RETURNING `+orderColumns,
		o.ShopName, o.ClientID, o.OrderName, o.OrderDate, o.Location, o.Products, o.Workers, o.Transporters,
		o.TotalAmount, o.ReceivedPayment, o.RemainingPayment, o.Status, o.Notes, o.CreatedBy)
	created, err := scanOrder(row)
	if err != nil {
		return Order{}, fmt.Errorf("failed to create order: %w", err)
	}
	return created, nil
}

func (s *Store) GetOrder(ctx context.Context, shopName, orderID string) (Order, error) {
	return scanOrder(s.q(ctx).QueryRow(ctx, `SELECT `+orderColumns+` FROM orders WHERE shop_name = $1 AND id = $2`, shopName, orderID))
}

func (s *Store) ListOrders(ctx context.Context, shopName string, f OrderFilter) ([]Order, error) {
	where := []string{"shop_name = $1"}
	args := []any{shopName}
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.AssignedTo != "" {
		args = append(args, f.AssignedTo)
		n := len(args)
		where = append(where, fmt.Sprintf(
			"(workers @> jsonb_build_array(jsonb_build_object('userId', $%d::text)) OR transporters @> jsonb_build_array(jsonb_build_object('userId', $%d::text)))", n, n))
	}
	if f.On != nil {
		args = append(args, f.On.Format(time.DateOnly))
		where = append(where, fmt.Sprintf("order_date = $%d::date", len(args)))
	}
	if f.Open {
		where = append(where, "status <> 'completed'")
	}
	rows, err := s.q(ctx).Query(ctx, `SELECT `+orderColumns+` FROM orders WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at, seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

const projectColumns = `
  id::text, shop_name, client_id::text, COALESCE(editor_id::text, ''), project_name, description, start_date, end_date,
  editing_value, pendrive_included, pendrive_value, commission_percentage::float8, commission_amount,
  total_amount, received_payment, remaining_payment, status, completion_date,
  COALESCE(created_by::text, ''), created_at`

func scanProject(row pgx.Row) (EditingProject, error) {
	var p EditingProject
	err := row.Scan(
		&p.ID, &p.ShopName, &p.ClientID, &p.EditorID, &p.ProjectName, &p.Description, &p.StartDate, &p.EndDate,
		&p.EditingValue, &p.PendriveIncluded, &p.PendriveValue, &p.CommissionPercentage, &p.CommissionAmount,
		&p.TotalAmount, &p.ReceivedPayment, &p.RemainingPayment, &p.Status, &p.CompletionDate,
		&p.CreatedBy, &p.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return EditingProject{}, ErrProjectNotFound
	}
	return p, err
}

func (s *Store) CreateProject(ctx context.Context, p EditingProject) (EditingProject, error) {
	p.Normalize()
	row := s.q(ctx).QueryRow(ctx, `
    INSERT INTO editing_projects (shop_name, client_id, editor_id, project_name, description, start_date, end_date,
      editing_value, pendrive_included, pendrive_value, commission_percentage, commission_amount,
      total_amount, received_payment, remaining_payment, status, created_by)
    VALUES ($1,$2,NULLIF($3,'')::uuid,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,NULLIF($17,'')::uuid)
    RETURNING `+projectColumns,
		p.ShopName, p.ClientID, p.EditorID, p.ProjectName, p.Description, p.StartDate, p.EndDate,
		p.EditingValue, p.PendriveIncluded, p.PendriveValue, p.CommissionPercentage, p.CommissionAmount,
		p.TotalAmount, p.ReceivedPayment, p.RemainingPayment, p.Status, p.CreatedBy)
	created, err := scanProject(row)
	if err != nil {
		return EditingProject{}, fmt.Errorf("failed to create editing project: %w", err)
	}
	return created, nil
}

func (s *Store) GetProject(ctx context.Context, shopName, projectID string) (EditingProject, error) {
	return scanProject(s.q(ctx).QueryRow(ctx, `SELECT `+projectColumns+` FROM editing_projects WHERE shop_name = $1 AND id = $2`, shopName, projectID))
}

func (s *Store) ListProjects(ctx context.Context, shopName string, f ProjectFilter) ([]EditingProject, error) {
	where := []string{"shop_name = $1"}
	args := []any{shopName}
	if f.ClientID != "" {
		args = append(args, f.ClientID)
		where = append(where, fmt.Sprintf("client_id = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.EditorID != "" {
		args = append(args, f.EditorID)
		where = append(where, fmt.Sprintf("editor_id = $%d", len(args)))
	}
	if f.EndsOn != nil {
		args = append(args, f.EndsOn.Format(time.DateOnly))
		where = append(where, fmt.Sprintf("end_date = $%d::date", len(args)))
	}
	if f.Open {
		where = append(where, "status <> 'completed'")
	}
	rows, err := s.q(ctx).Query(ctx, `SELECT `+projectColumns+` FROM editing_projects WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at, seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []EditingProject
	for rows.Next() {
		p, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanWorkItem(row pgx.Row) (WorkItem, error) {
	var w WorkItem
	var kind string
	err := row.Scan(&kind, &w.Ref.ID, &w.ClientID, &w.Name, &w.Date, &w.TotalAmount, &w.ReceivedPayment,
		&w.RemainingPayment, &w.Status, &w.CompletionDate, &w.CreatedAt)
	w.Ref.Kind = work.Kind(kind)
	return w, err
}

// ListClientWork returns orders then projects, each in creation order.
func (s *Store) ListClientWork(ctx context.Context, shopName, clientID string) ([]WorkItem, error) {
	rows, err := s.q(ctx).Query(ctx, `
    SELECT kind, id, client_id, name, work_date, total_amount, received_payment, remaining_payment, status, completion_date, created_at
    FROM (
      SELECT 'order' AS kind, 0 AS rank, seq, id::text, client_id::text, order_name AS name, order_date AS work_date,
        total_amount, received_payment, remaining_payment, status, completion_date, created_at
      FROM orders WHERE shop_name = $1 AND client_id = $2
      UNION ALL
      SELECT 'project', 1, seq, id::text, client_id::text, project_name, start_date,
        total_amount, received_payment, remaining_payment, status, completion_date, created_at
      FROM editing_projects WHERE shop_name = $1 AND client_id = $2
    ) w
    ORDER BY rank, created_at, seq
  `, shopName, clientID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []WorkItem
	for rows.Next() {
		w, err := scanWorkItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

func (s *Store) GetWorkItem(ctx context.Context, shopName string, ref work.Ref) (WorkItem, error) {
	var query string
	var notFound error
	switch ref.Kind {
	case work.KindOrder:
		query = `SELECT 'order', id::text, client_id::text, order_name, order_date, total_amount, received_payment, remaining_payment, status, completion_date, created_at
      FROM orders WHERE shop_name = $1 AND id = $2`
		notFound = ErrOrderNotFound
	case work.KindProject:
		query = `SELECT 'project', id::text, client_id::text, project_name, start_date, total_amount, received_payment, remaining_payment, status, completion_date, created_at
      FROM editing_projects WHERE shop_name = $1 AND id = $2`
		notFound = ErrProjectNotFound
	default:
		return WorkItem{}, work.ErrInvalidKind
	}
	w, err := scanWorkItem(s.q(ctx).QueryRow(ctx, query, shopName, ref.ID))
	if errors.Is(err, pgx.ErrNoRows) {
		return WorkItem{}, notFound
	}
	return w, err
}

// workTable maps a kind onto its table and its not-found error.
func workTable(kind work.Kind) (string, error, bool) {
	switch kind {
	case work.KindOrder:
		return "orders", ErrOrderNotFound, true
	case work.KindProject:
		return "editing_projects", ErrProjectNotFound, true
	default:
		return "", nil, false
	}
}

func (s *Store) SaveWorkPayment(ctx context.Context, shopName string, item WorkItem) error {
	item.Normalize()
	table, notFound, ok := workTable(item.Ref.Kind)
	if !ok {
		return work.ErrInvalidKind
	}
	tag, err := s.q(ctx).Exec(ctx, `UPDATE `+table+` SET received_payment = $3, remaining_payment = $4 WHERE shop_name = $1 AND id = $2`,
		shopName, item.Ref.ID, item.ReceivedPayment, item.RemainingPayment)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func (s *Store) SetWorkStatus(ctx context.Context, shopName string, ref work.Ref, status string, completedAt *time.Time) error {
	table, notFound, ok := workTable(ref.Kind)
	if !ok {
		return work.ErrInvalidKind
	}
	tag, err := s.q(ctx).Exec(ctx, `UPDATE `+table+` SET status = $3, completion_date = $4 WHERE shop_name = $1 AND id = $2`,
		shopName, ref.ID, status, completedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}

func (s *Store) DeleteWork(ctx context.Context, shopName string, ref work.Ref) error {
	table, notFound, ok := workTable(ref.Kind)
	if !ok {
		return work.ErrInvalidKind
	}
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM `+table+` WHERE shop_name = $1 AND id = $2`, shopName, ref.ID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return notFound
	}
	return nil
}
