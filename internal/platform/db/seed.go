package db

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"shopledger/internal/platform/config"
)

// Seed makes sure the configured shop has an owner account and, when a
// subject is configured, the external identity that maps onto it.
func Seed(ctx context.Context, pool *pgxpool.Pool, cfg config.Config) error {
	ownerID, err := ensureOwner(ctx, pool, cfg.SeedShopName, cfg.SeedOwnerEmail)
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.SeedOwnerSubject) == "" {
		return nil
	}
	_, err = pool.Exec(ctx, `
    INSERT INTO external_identities (provider, subject, user_id)
    VALUES ($1,$2,$3)
    ON CONFLICT (provider, subject) DO NOTHING
  `, cfg.SeedOwnerProvider, cfg.SeedOwnerSubject, ownerID)
	return err
}

func ensureOwner(ctx context.Context, pool *pgxpool.Pool, shopName, email string) (string, error) {
	var id string
	err := pool.QueryRow(ctx, "SELECT id FROM users WHERE shop_name = $1 AND email = $2", shopName, email).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return "", err
	}
	err = pool.QueryRow(ctx, `
    INSERT INTO users (shop_name, first_name, last_name, email, role)
    VALUES ($1, 'Shop', 'Owner', $2, 'owner')
    RETURNING id
  `, shopName, email).Scan(&id)
	return id, err
}
