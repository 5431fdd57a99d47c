package billing

import (
	"context"
	"log/slog"
	"time"

	"shopledger/internal/domain/work"
	"shopledger/internal/platform/metrics"
)

// SalaryLedger is the salary side of work-item creation and deletion.
type SalaryLedger interface {
	AccrueForOrder(ctx context.Context, order Order) error
	AccrueForProject(ctx context.Context, project EditingProject) error
	HasPaidEntries(ctx context.Context, shopName string, ref work.Ref) (bool, error)
	ReverseForWork(ctx context.Context, shopName string, ref work.Ref) error
}

type Service struct {
	store   StoreAPI
	salary  SalaryLedger
	metrics *metrics.Collector
	now     func() time.Time
}

func NewService(store StoreAPI, salary SalaryLedger, collector *metrics.Collector) *Service {
	return &Service{store: store, salary: salary, metrics: collector, now: time.Now}
}

// recomputeLocked rewrites the client's aggregate from its work items. The
// caller holds the client lock.
func (s *Service) recomputeLocked(ctx context.Context, shopName string, client *Client) error {
	items, err := s.store.ListClientWork(ctx, shopName, client.ID)
	if err != nil {
		return err
	}
	totals := ComputeTotals(items)
	if err := s.store.SaveClientTotals(ctx, client.ID, totals); err != nil {
		return err
	}
	client.ApplyTotals(totals)
	return nil
}

// lockWork loads a work item and locks its client, re-reading the item
// once the lock is held.
func (s *Service) lockWork(ctx context.Context, shopName string, ref work.Ref) (WorkItem, Client, error) {
	item, err := s.store.GetWorkItem(ctx, shopName, ref)
	if err != nil {
		return WorkItem{}, Client{}, err
	}
	client, err := s.store.LockClient(ctx, shopName, item.ClientID)
	if err != nil {
		return WorkItem{}, Client{}, err
	}
	item, err = s.store.GetWorkItem(ctx, shopName, ref)
	if err != nil {
		return WorkItem{}, Client{}, err
	}
	return item, client, nil
}

// accrue runs the second phase of work-item creation. A failure is reported,
// never returned: the work item stays and sync repairs the ledger.
func (s *Service) accrue(ctx context.Context, ref work.Ref, fn func(context.Context) error) (bool, string) {
	if s.salary == nil {
		return false, ""
	}
	if err := fn(ctx); err != nil {
		slog.Warn("salary accrual failed", "workKind", ref.Kind, "workId", ref.ID, "err", err)
		s.metrics.AccrualFailed(string(ref.Kind))
		return false, err.Error()
	}
	return true, ""
}

func (s *Service) Stats(ctx context.Context, shopName string) (ShopStats, error) {
	return s.store.ShopStats(ctx, shopName)
}
