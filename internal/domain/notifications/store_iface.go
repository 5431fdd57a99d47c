package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, n Notification) (Notification, error)
	ListNotifications(ctx context.Context, shopName, userID string, unreadOnly bool, limit, offset int) ([]Notification, error)
	CountUnread(ctx context.Context, shopName, userID string) (int, error)
	MarkRead(ctx context.Context, shopName, userID, notificationID string) error
}
