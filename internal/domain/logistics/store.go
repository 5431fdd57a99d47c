package logistics

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"shopledger/internal/domain/work"
	"shopledger/internal/platform/db"
)

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

const transportColumns = `
  id::text, shop_name, COALESCE(work_kind, ''), COALESCE(work_id::text, ''), COALESCE(client_id::text, ''),
  COALESCE(transporter_id::text, ''), pickup_location, delivery_location, distance_km::text, transport_fee,
  equipment_list, transport_date, status, instructions, COALESCE(created_by::text, ''), completed_at, created_at`

func scanTransport(row pgx.Row) (Transport, error) {
	var (
		t                Transport
		kind, workID, km string
	)
	err := row.Scan(
		&t.ID, &t.ShopName, &kind, &workID, &t.ClientID,
		&t.TransporterID, &t.PickupLocation, &t.DeliveryLocation, &km, &t.TransportFee,
		&t.EquipmentList, &t.TransportDate, &t.Status, &t.Instructions, &t.CreatedBy, &t.CompletedAt, &t.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Transport{}, ErrTransportNotFound
	}
	if err != nil {
		return Transport{}, err
	}
	if kind != "" {
		t.Work = &work.Ref{Kind: work.Kind(kind), ID: workID}
	}
	if t.DistanceKm, err = decimal.NewFromString(km); err != nil {
		return Transport{}, fmt.Errorf("distance %q: %w", km, err)
	}
	return t, nil
}

func (s *Store) CreateTransport(ctx context.Context, t Transport) (Transport, error) {
	var kind, workID string
	if t.Work != nil {
		kind, workID = string(t.Work.Kind), t.Work.ID
	}
	return scanTransport(db.From(ctx, s.DB).QueryRow(ctx, `
    INSERT INTO transports (shop_name, work_kind, work_id, client_id, transporter_id, pickup_location, delivery_location,
      distance_km, transport_fee, equipment_list, transport_date, status, instructions, created_by)
    VALUES ($1, NULLIF($2,''), NULLIF($3,'')::uuid, NULLIF($4,'')::uuid, NULLIF($5,'')::uuid, $6, $7,
      $8::numeric, $9, $10, $11, $12, $13, NULLIF($14,'')::uuid)
    RETURNING `+transportColumns,
		t.ShopName, kind, workID, t.ClientID, t.TransporterID, t.PickupLocation, t.DeliveryLocation,
		t.DistanceKm.String(), t.TransportFee, t.EquipmentList, t.TransportDate, t.Status, t.Instructions, t.CreatedBy))
}

func (s *Store) GetTransport(ctx context.Context, shopName, id string) (Transport, error) {
	return scanTransport(db.From(ctx, s.DB).QueryRow(ctx,
		`SELECT `+transportColumns+` FROM transports WHERE shop_name = $1 AND id = $2`, shopName, id))
}

func (s *Store) ListTransports(ctx context.Context, shopName string, f TransportFilter) ([]Transport, error) {
	where := []string{"shop_name = $1"}
	args := []any{shopName}
	if f.TransporterID != "" {
		args = append(args, f.TransporterID)
		where = append(where, fmt.Sprintf("transporter_id = $%d", len(args)))
	}
	rows, err := db.From(ctx, s.DB).Query(ctx,
		`SELECT `+transportColumns+` FROM transports WHERE `+strings.Join(where, " AND ")+` ORDER BY created_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Transport
	for rows.Next() {
		t, err := scanTransport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) SaveTransport(ctx context.Context, t Transport) error {
	tag, err := db.From(ctx, s.DB).Exec(ctx, `
    UPDATE transports SET status = $3, completed_at = $4, transporter_id = NULLIF($5,'')::uuid
    WHERE shop_name = $1 AND id = $2
  `, t.ShopName, t.ID, t.Status, t.CompletedAt, t.TransporterID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrTransportNotFound
	}
	return nil
}
