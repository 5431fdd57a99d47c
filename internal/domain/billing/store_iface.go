package billing

import (
	"context"
	"time"

	"shopledger/internal/domain/work"
)

type StoreAPI interface {
	// WithTx runs fn in one transaction; store calls made with the ctx it
	// passes to fn join that transaction.
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	CreateClient(ctx context.Context, shopName string, profile ClientProfile) (Client, error)
	GetClient(ctx context.Context, shopName, clientID string) (Client, error)
	LockClient(ctx context.Context, shopName, clientID string) (Client, error)
	ListClients(ctx context.Context, shopName string) ([]Client, error)
	UpdateClientProfile(ctx context.Context, shopName, clientID string, profile ClientProfile) error
	SaveClientTotals(ctx context.Context, clientID string, totals Totals) error
	BumpClientLifetime(ctx context.Context, clientID string, orders, projects int, value int64) error
	AppendPaymentHistory(ctx context.Context, clientID string, entry PaymentHistoryEntry) error
	ListPaymentHistory(ctx context.Context, clientID string) ([]PaymentHistoryEntry, error)

	CreateOrder(ctx context.Context, order Order) (Order, error)
	GetOrder(ctx context.Context, shopName, orderID string) (Order, error)
	ListOrders(ctx context.Context, shopName string, filter OrderFilter) ([]Order, error)

	CreateProject(ctx context.Context, project EditingProject) (EditingProject, error)
	GetProject(ctx context.Context, shopName, projectID string) (EditingProject, error)
	ListProjects(ctx context.Context, shopName string, filter ProjectFilter) ([]EditingProject, error)

	ListClientWork(ctx context.Context, shopName, clientID string) ([]WorkItem, error)
	GetWorkItem(ctx context.Context, shopName string, ref work.Ref) (WorkItem, error)
	SaveWorkPayment(ctx context.Context, shopName string, item WorkItem) error
	SetWorkStatus(ctx context.Context, shopName string, ref work.Ref, status string, completedAt *time.Time) error
	DeleteWork(ctx context.Context, shopName string, ref work.Ref) error

	CreatePayment(ctx context.Context, payment Payment) (Payment, error)
	GetPayment(ctx context.Context, shopName, paymentID string) (Payment, error)
	ListPayments(ctx context.Context, shopName string, filter PaymentFilter) ([]Payment, error)
	DeletePayment(ctx context.Context, shopName, paymentID string) error

	ShopStats(ctx context.Context, shopName string) (ShopStats, error)
}
