package catalog

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
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

const productColumns = `id::text, shop_name, name, type, active, created_at, updated_at`

func scanProduct(row pgx.Row) (Product, error) {
	var p Product
	err := row.Scan(&p.ID, &p.ShopName, &p.Name, &p.Type, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func uniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func (s *Store) ListProducts(ctx context.Context, shopName string, activeOnly bool) ([]Product, error) {
	rows, err := db.From(ctx, s.DB).Query(ctx, `
    SELECT `+productColumns+` FROM products
    WHERE shop_name = $1 AND ($2 = false OR active)
    ORDER BY name
  `, shopName, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetProduct(ctx context.Context, shopName, id string) (Product, error) {
	return scanProduct(db.From(ctx, s.DB).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE shop_name = $1 AND id = $2`, shopName, id))
}

func (s *Store) FindProduct(ctx context.Context, shopName, name string) (Product, error) {
	return scanProduct(db.From(ctx, s.DB).QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE shop_name = $1 AND lower(name) = lower($2)`, shopName, name))
}

func (s *Store) CreateProduct(ctx context.Context, p Product) (Product, error) {
	out, err := scanProduct(db.From(ctx, s.DB).QueryRow(ctx, `
    INSERT INTO products (shop_name, name, type, active)
    VALUES ($1,$2,$3,$4)
    RETURNING `+productColumns,
		p.ShopName, p.Name, p.Type, p.Active))
	if uniqueViolation(err) {
		return Product{}, ErrDuplicateProduct
	}
	return out, err
}

func (s *Store) SaveProduct(ctx context.Context, p Product) (Product, error) {
	out, err := scanProduct(db.From(ctx, s.DB).QueryRow(ctx, `
    UPDATE products SET name = $3, type = $4, active = $5, updated_at = now()
    WHERE shop_name = $1 AND id = $2
    RETURNING `+productColumns,
		p.ShopName, p.ID, p.Name, p.Type, p.Active))
	if uniqueViolation(err) {
		return Product{}, ErrDuplicateProduct
	}
	return out, err
}
