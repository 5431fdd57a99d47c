package salary

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"shopledger/internal/domain/billing"
	"shopledger/internal/domain/work"
	"shopledger/internal/platform/metrics"
)

type Service struct {
	store    StoreAPI
	works    WorkSource
	notifier Notifier
	metrics  *metrics.Collector
	currency string
	now      func() time.Time
}

func NewService(store StoreAPI, works WorkSource, notifier Notifier, collector *metrics.Collector, currency string) *Service {
	if currency == "" {
		currency = "₹"
	}
	return &Service{
		store:    store,
		works:    works,
		notifier: notifier,
		metrics:  collector,
		currency: currency,
		now:      time.Now,
	}
}

// recomputeEarnings rewrites the employee's running totals from all of their
// entries. The caller holds the employee lock.
func (s *Service) recomputeEarnings(ctx context.Context, shopName, employeeID string) (Earnings, error) {
	entries, err := s.store.ListEntries(ctx, shopName, EntryFilter{EmployeeID: employeeID})
	if err != nil {
		return Earnings{}, err
	}
	earnings := SumEntries(entries)
	if err := s.store.SaveEarnings(ctx, employeeID, earnings); err != nil {
		return Earnings{}, fmt.Errorf("failed to save earnings: %w", err)
	}
	return earnings, nil
}

// lockEmployees locks every id in sorted order so two transactions touching
// the same employees cannot deadlock.
func (s *Service) lockEmployees(ctx context.Context, shopName string, ids []string) error {
	sorted := slices.Clone(ids)
	slices.Sort(sorted)
	for _, id := range slices.Compact(sorted) {
		if _, err := s.store.LockEmployee(ctx, shopName, id); err != nil {
			return fmt.Errorf("employee %s: %w", id, err)
		}
	}
	return nil
}

func (s *Service) notifyPaid(ctx context.Context, shopName, employeeID string, amount int64) {
	if s.notifier == nil || amount <= 0 {
		return
	}
	body := fmt.Sprintf("Salary of %s has been paid. Please collect it.", billing.FormatMoney(s.currency, amount))
	if err := s.notifier.Notify(ctx, shopName, employeeID, NotificationType, "Salary paid", body); err != nil {
		slog.Warn("salary notification failed", "employeeId", employeeID, "err", err)
	}
}

func (s *Service) CreateManualEntry(ctx context.Context, shopName string, in ManualEntryInput) (Entry, error) {
	if in.Amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	if !slices.Contains(Types, in.Type) {
		return Entry{}, ErrInvalidType
	}
	if in.Work != nil && !in.Work.Valid() {
		return Entry{}, work.ErrInvalidKind
	}
	workDate := in.WorkDate
	if workDate.IsZero() {
		workDate = s.now()
	}
	var created Entry
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.LockEmployee(ctx, shopName, in.EmployeeID); err != nil {
			return err
		}
		entry, err := s.store.CreateEntry(ctx, Entry{
			ShopName:    shopName,
			EmployeeID:  in.EmployeeID,
			Amount:      in.Amount,
			Type:        in.Type,
			Work:        in.Work,
			Description: in.Description,
			WorkDate:    workDate,
		})
		if err != nil {
			return err
		}
		if _, err := s.recomputeEarnings(ctx, shopName, in.EmployeeID); err != nil {
			return err
		}
		created = entry
		return nil
	})
	return created, err
}

func (s *Service) List(ctx context.Context, shopName string, filter EntryFilter) ([]Entry, error) {
	return s.store.ListEntries(ctx, shopName, filter)
}

func (s *Service) Employees(ctx context.Context, shopName string) ([]Employee, error) {
	return s.store.ListEmployees(ctx, shopName)
}

// Summary derives the employee's totals from their entries on read, next to
// the stored running totals.
func (s *Service) Summary(ctx context.Context, shopName, employeeID string) (Summary, error) {
	employee, err := s.store.GetEmployee(ctx, shopName, employeeID)
	if err != nil {
		return Summary{}, err
	}
	entries, err := s.store.ListEntries(ctx, shopName, EntryFilter{EmployeeID: employeeID})
	if err != nil {
		return Summary{}, err
	}
	return Summary{Employee: employee, Derived: SumEntries(entries), Entries: entries}, nil
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrEmployeeNotFound) || errors.Is(err, ErrEntryNotFound)
}
