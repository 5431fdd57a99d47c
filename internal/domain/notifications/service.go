package notifications

import (
	"context"
	"log/slog"
	"strings"
)

// Mail is the copy of one notification addressed to a user.
type Mail struct {
	From     string
	To       string
	ShopName string
	Type     string
	Title    string
	Body     string
}

type Mailer interface {
	Send(ctx context.Context, m Mail) error
}

// Directory looks up the address a user's mail goes to.
type Directory interface {
	Email(ctx context.Context, shopName, userID string) (string, error)
}

type Service struct {
	store     StoreAPI
	mailer    Mailer
	directory Directory
	from      string
}

func New(store StoreAPI) *Service {
	return &Service{store: store}
}

// WithMail copies every notification to the user's email address.
func (s *Service) WithMail(mailer Mailer, directory Directory, from string) *Service {
	s.mailer = mailer
	s.directory = directory
	s.from = from
	return s
}

// Notify stores a notification for one user and mails a copy when mail is
// configured. It satisfies the salary ledger's notifier.
func (s *Service) Notify(ctx context.Context, shopName, userID, ntype, title, body string) error {
	if _, err := s.Create(ctx, shopName, userID, ntype, title, body); err != nil {
		return err
	}
	s.mail(ctx, userID, Mail{ShopName: shopName, Type: ntype, Title: title, Body: body})
	return nil
}

// mail failures never fail the notification.
func (s *Service) mail(ctx context.Context, userID string, m Mail) {
	if s.mailer == nil || s.directory == nil {
		return
	}
	to, err := s.directory.Email(ctx, m.ShopName, userID)
	if err != nil {
		slog.Warn("notification recipient lookup failed", "userId", userID, "err", err)
		return
	}
	if strings.TrimSpace(to) == "" {
		return
	}
	m.From, m.To = s.from, to
	if err := s.mailer.Send(ctx, m); err != nil {
		slog.Warn("notification mail failed", "userId", userID, "err", err)
	}
}

func (s *Service) Create(ctx context.Context, shopName, userID, ntype, title, body string) (Notification, error) {
	if strings.TrimSpace(ntype) == "" {
		ntype = TypeGeneral
	}
	return s.store.CreateNotification(ctx, Notification{
		ShopName: shopName,
		UserID:   userID,
		Type:     ntype,
		Title:    title,
		Body:     body,
	})
}

func (s *Service) List(ctx context.Context, shopName, userID string, unreadOnly bool, limit, offset int) ([]Notification, error) {
	if limit <= 0 {
		limit = defaultLimit
	}
	limit = min(limit, maxLimit)
	offset = max(offset, 0)
	return s.store.ListNotifications(ctx, shopName, userID, unreadOnly, limit, offset)
}

func (s *Service) CountUnread(ctx context.Context, shopName, userID string) (int, error) {
	return s.store.CountUnread(ctx, shopName, userID)
}

func (s *Service) MarkRead(ctx context.Context, shopName, userID, notificationID string) error {
	return s.store.MarkRead(ctx, shopName, userID, notificationID)
}
