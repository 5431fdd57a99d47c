package salary

import (
	"context"
	"time"

	"shopledger/internal/domain/billing"
	"shopledger/internal/domain/work"
)

type StoreAPI interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error

	GetEmployee(ctx context.Context, shopName, employeeID string) (Employee, error)
	LockEmployee(ctx context.Context, shopName, employeeID string) (Employee, error)
	ListEmployees(ctx context.Context, shopName string) ([]Employee, error)
	SaveEarnings(ctx context.Context, employeeID string, earnings Earnings) error

	CreateEntry(ctx context.Context, entry Entry) (Entry, error)
	GetEntry(ctx context.Context, shopName, entryID string) (Entry, error)
	// ListEntries returns entries oldest created first.
	ListEntries(ctx context.Context, shopName string, filter EntryFilter) ([]Entry, error)
	EntryExists(ctx context.Context, key AccrualKey) (bool, error)
	MarkEntryPaid(ctx context.Context, entryID string, paidAt time.Time) error
	UpdateEntryAmount(ctx context.Context, entryID string, amount int64) error
	DeleteEntriesForWork(ctx context.Context, shopName string, ref work.Ref) (int, error)
}

// WorkSource lists the work items sync scans.
type WorkSource interface {
	ListOrders(ctx context.Context, shopName string, filter billing.OrderFilter) ([]billing.Order, error)
	ListProjects(ctx context.Context, shopName string, filter billing.ProjectFilter) ([]billing.EditingProject, error)
}

type Notifier interface {
	Notify(ctx context.Context, shopName, userID, ntype, title, body string) error
}
