package notifications

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"shopledger/internal/platform/db"
)

type Notification struct {
	ID        string     `json:"id"`
	ShopName  string     `json:"shopName"`
	UserID    string     `json:"userId"`
	Type      string     `json:"type"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	ReadAt    *time.Time `json:"readAt,omitempty"`
	CreatedAt time.Time  `json:"createdAt"`
}

type Store struct {
	DB *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{DB: pool}
}

func (s *Store) CreateNotification(ctx context.Context, n Notification) (Notification, error) {
	err := db.From(ctx, s.DB).QueryRow(ctx, `
    INSERT INTO notifications (shop_name, user_id, type, title, body)
    VALUES ($1,$2,$3,$4,$5)
    RETURNING id::text, created_at
  `, n.ShopName, n.UserID, n.Type, n.Title, n.Body).Scan(&n.ID, &n.CreatedAt)
	return n, err
}

func (s *Store) ListNotifications(ctx context.Context, shopName, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	rows, err := db.From(ctx, s.DB).Query(ctx, `
    SELECT id::text, shop_name, user_id::text, type, title, body, read_at, created_at
    FROM notifications
    WHERE shop_name = $1 AND user_id = $2 AND ($3 = false OR read_at IS NULL)
    ORDER BY created_at DESC
    LIMIT $4 OFFSET $5
  `, shopName, userID, unreadOnly, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Notification
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.ShopName, &n.UserID, &n.Type, &n.Title, &n.Body, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) CountUnread(ctx context.Context, shopName, userID string) (int, error) {
	var total int
	err := db.From(ctx, s.DB).QueryRow(ctx,
		"SELECT COUNT(1) FROM notifications WHERE shop_name = $1 AND user_id = $2 AND read_at IS NULL",
		shopName, userID).Scan(&total)
	return total, err
}

func (s *Store) MarkRead(ctx context.Context, shopName, userID, notificationID string) error {
	tag, err := db.From(ctx, s.DB).Exec(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, now())
    WHERE shop_name = $1 AND user_id = $2 AND id = $3
  `, shopName, userID, notificationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotificationNotFound
	}
	return nil
}
