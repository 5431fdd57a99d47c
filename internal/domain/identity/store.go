package identity

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopledger/internal/platform/db"
)

type StoreAPI interface {
	GetUser(ctx context.Context, userID string) (User, error)
	FindByExternal(ctx context.Context, provider, subject string) (User, error)
	ListUsers(ctx context.Context, shopName string) ([]User, error)
	CreateUser(ctx context.Context, shopName string, in UserInput) (User, error)
	LinkIdentity(ctx context.Context, provider, subject, userID string) error
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const userColumns = `u.id::text, u.shop_name, u.first_name, u.last_name, u.email, u.role,
  u.total_earnings, u.paid_salary, u.remaining_salary, u.created_at`

func scanUser(row pgx.Row, notFound error) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.ShopName, &u.FirstName, &u.LastName, &u.Email, &u.Role,
		&u.TotalEarnings, &u.PaidSalary, &u.RemainingSalary, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, notFound
	}
	return u, err
}

func (s *Store) GetUser(ctx context.Context, userID string) (User, error) {
	return scanUser(db.From(ctx, s.DB).QueryRow(ctx, `SELECT `+userColumns+` FROM users u WHERE u.id = $1`, userID), ErrUserNotFound)
}

func (s *Store) FindByExternal(ctx context.Context, provider, subject string) (User, error) {
	return scanUser(db.From(ctx, s.DB).QueryRow(ctx, `
    SELECT `+userColumns+`
    FROM external_identities ei
    JOIN users u ON u.id = ei.user_id
    WHERE ei.provider = $1 AND ei.subject = $2
  `, provider, subject), ErrIdentityNotFound)
}

func (s *Store) ListUsers(ctx context.Context, shopName string) ([]User, error) {
	rows, err := db.From(ctx, s.DB).Query(ctx, `SELECT `+userColumns+` FROM users u WHERE u.shop_name = $1 ORDER BY u.first_name, u.last_name`, shopName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []User
	for rows.Next() {
		u, err := scanUser(rows, ErrUserNotFound)
		if err != nil {
			return nil, err
		}
		out = append(out, u)
	}
	return out, rows.Err()
}

func (s *Store) CreateUser(ctx context.Context, shopName string, in UserInput) (User, error) {
	u, err := scanUser(db.From(ctx, s.DB).QueryRow(ctx, `
    INSERT INTO users AS u (shop_name, first_name, last_name, email, role)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING `+userColumns,
		shopName, in.FirstName, in.LastName, in.Email, in.Role), ErrUserNotFound)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return User{}, ErrEmailTaken
	}
	return u, err
}

func (s *Store) LinkIdentity(ctx context.Context, provider, subject, userID string) error {
	_, err := db.From(ctx, s.DB).Exec(ctx, `
    INSERT INTO external_identities (provider, subject, user_id)
    VALUES ($1,$2,$3)
    ON CONFLICT (provider, subject) DO UPDATE SET user_id = EXCLUDED.user_id
  `, provider, subject, userID)
	return err
}
