package salary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopledger/internal/domain/work"
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

const employeeColumns = `id::text, shop_name, first_name, last_name, email, role, total_earnings, paid_salary, remaining_salary`

func scanEmployee(row pgx.Row) (Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.ShopName, &e.FirstName, &e.LastName, &e.Email, &e.Role,
		&e.Earnings.TotalEarnings, &e.Earnings.PaidSalary, &e.Earnings.RemainingSalary)
	if errors.Is(err, pgx.ErrNoRows) {
		return Employee{}, ErrEmployeeNotFound
	}
	return e, err
}

func (s *Store) GetEmployee(ctx context.Context, shopName, employeeID string) (Employee, error) {
	return scanEmployee(s.q(ctx).QueryRow(ctx, `SELECT `+employeeColumns+` FROM users WHERE shop_name = $1 AND id = $2`, shopName, employeeID))
}

// LockEmployee reads the user row FOR UPDATE; call it inside WithTx.
func (s *Store) LockEmployee(ctx context.Context, shopName, employeeID string) (Employee, error) {
	return scanEmployee(s.q(ctx).QueryRow(ctx, `SELECT `+employeeColumns+` FROM users WHERE shop_name = $1 AND id = $2 FOR UPDATE`, shopName, employeeID))
}

func (s *Store) ListEmployees(ctx context.Context, shopName string) ([]Employee, error) {
	rows, err := s.q(ctx).Query(ctx, `SELECT `+employeeColumns+` FROM users WHERE shop_name = $1 ORDER BY first_name, last_name, id`, shopName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Employee
	for rows.Next() {
		e, err := scanEmployee(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) SaveEarnings(ctx context.Context, employeeID string, e Earnings) error {
	_, err := s.q(ctx).Exec(ctx, `
    UPDATE users SET total_earnings = $2, paid_salary = $3, remaining_salary = $4 WHERE id = $1
  `, employeeID, e.TotalEarnings, e.PaidSalary, e.RemainingSalary)
	return err
}

const entryColumns = `
  id::text, shop_name, employee_id::text, amount, salary_type, work_kind, work_id::text,
  description, work_date, is_paid, paid_date, created_at`

func scanEntry(row pgx.Row) (Entry, error) {
	var e Entry
	var kind, workID *string
	err := row.Scan(&e.ID, &e.ShopName, &e.EmployeeID, &e.Amount, &e.Type, &kind, &workID,
		&e.Description, &e.WorkDate, &e.IsPaid, &e.PaidDate, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Entry{}, ErrEntryNotFound
	}
	if err != nil {
		return Entry{}, err
	}
	if kind != nil && workID != nil {
		e.Work = &work.Ref{Kind: work.Kind(*kind), ID: *workID}
	}
	return e, nil
}

func workColumns(ref *work.Ref) (*string, *string) {
	if ref == nil {
		return nil, nil
	}
	kind := string(ref.Kind)
	id := ref.ID
	return &kind, &id
}

func (s *Store) CreateEntry(ctx context.Context, e Entry) (Entry, error) {
	kind, workID := workColumns(e.Work)
	row := s.q(ctx).QueryRow(ctx, `
    INSERT INTO salary_entries (shop_name, employee_id, amount, salary_type, work_kind, work_id, description, work_date, is_paid, paid_date)
    VALUES ($1,$2,$3,$4,$5,$6::uuid,$7,$8,$9,$10)
    RETURNING `+entryColumns,
		e.ShopName, e.EmployeeID, e.Amount, e.Type, kind, workID, e.Description, e.WorkDate, e.IsPaid, e.PaidDate)
	created, err := scanEntry(row)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to create salary entry: %w", err)
	}
	return created, nil
}

func (s *Store) GetEntry(ctx context.Context, shopName, entryID string) (Entry, error) {
	return scanEntry(s.q(ctx).QueryRow(ctx, `SELECT `+entryColumns+` FROM salary_entries WHERE shop_name = $1 AND id = $2`, shopName, entryID))
}

func (s *Store) ListEntries(ctx context.Context, shopName string, f EntryFilter) ([]Entry, error) {
	where := []string{"shop_name = $1"}
	args := []any{shopName}
	if f.EmployeeID != "" {
		args = append(args, f.EmployeeID)
		where = append(where, fmt.Sprintf("employee_id = $%d", len(args)))
	}
	if f.UnpaidOnly {
		where = append(where, "is_paid = false")
	}
	if f.Work != nil {
		args = append(args, string(f.Work.Kind), f.Work.ID)
		where = append(where, fmt.Sprintf("work_kind = $%d AND work_id = $%d", len(args)-1, len(args)))
	}
	if f.Type != "" {
		args = append(args, f.Type)
		where = append(where, fmt.Sprintf("salary_type = $%d", len(args)))
	}
	rows, err := s.q(ctx).Query(ctx, `SELECT `+entryColumns+` FROM salary_entries WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at, seq`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *Store) EntryExists(ctx context.Context, key AccrualKey) (bool, error) {
	var exists bool
	err := s.q(ctx).QueryRow(ctx, `
    SELECT EXISTS (
      SELECT 1 FROM salary_entries
      WHERE employee_id = $1 AND work_kind = $2 AND work_id = $3 AND salary_type = $4
    )
  `, key.EmployeeID, string(key.Work.Kind), key.Work.ID, key.Type).Scan(&exists)
	return exists, err
}

func (s *Store) MarkEntryPaid(ctx context.Context, entryID string, paidAt time.Time) error {
	tag, err := s.q(ctx).Exec(ctx, `UPDATE salary_entries SET is_paid = true, paid_date = $2 WHERE id = $1 AND is_paid = false`, entryID, paidAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyPaid
	}
	return nil
}

func (s *Store) UpdateEntryAmount(ctx context.Context, entryID string, amount int64) error {
	tag, err := s.q(ctx).Exec(ctx, `UPDATE salary_entries SET amount = $2 WHERE id = $1 AND is_paid = false`, entryID, amount)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrEntryNotFound
	}
	return nil
}

func (s *Store) DeleteEntriesForWork(ctx context.Context, shopName string, ref work.Ref) (int, error) {
	tag, err := s.q(ctx).Exec(ctx, `DELETE FROM salary_entries WHERE shop_name = $1 AND work_kind = $2 AND work_id = $3`,
		shopName, string(ref.Kind), ref.ID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
