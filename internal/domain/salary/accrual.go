package salary

import (
	"context"
	"fmt"
	"log/slog"

	"shopledger/internal/domain/billing"
	"shopledger/internal/domain/work"
)

// OrderAccruals lists the entries an order owes: one per worker and one per
// transporter with a payment. A user listed twice under the same role gets a
// single entry for the combined payment.
func OrderAccruals(order billing.Order) []Entry {
	ref := order.Ref()
	var out []Entry
	add := func(userID, typ, desc string, amount int64) {
		if userID == "" || amount <= 0 {
			return
		}
		for i := range out {
			if out[i].EmployeeID == userID && out[i].Type == typ {
				out[i].Amount += amount
				return
			}
		}
		out = append(out, Entry{
			ShopName:    order.ShopName,
			EmployeeID:  userID,
			Amount:      amount,
			Type:        typ,
			Work:        &ref,
			Description: desc,
			WorkDate:    order.OrderDate,
		})
	}
	for _, w := range order.Workers {
		add(w.UserID, TypeOrderWork, "Order work: "+order.OrderName, w.Payment)
	}
	for _, t := range order.Transporters {
		add(t.UserID, TypeTransportWork, "Transport work: "+order.OrderName, t.Payment)
	}
	return out
}

// ProjectAccruals lists the editor's commission entry, if any.
func ProjectAccruals(project billing.EditingProject) []Entry {
	project.Normalize()
	if project.EditorID == "" || project.CommissionAmount <= 0 {
		return nil
	}
	ref := project.Ref()
	return []Entry{{
		ShopName:    project.ShopName,
		EmployeeID:  project.EditorID,
		Amount:      project.CommissionAmount,
		Type:        TypeEditingWork,
		Work:        &ref,
		Description: "Editing project: " + project.ProjectName,
		WorkDate:    project.StartDate,
	}}
}

func (s *Service) AccrueForOrder(ctx context.Context, order billing.Order) error {
	_, err := s.accrue(ctx, order.ShopName, OrderAccruals(order))
	return err
}

func (s *Service) AccrueForProject(ctx context.Context, project billing.EditingProject) error {
	_, err := s.accrue(ctx, project.ShopName, ProjectAccruals(project))
	return err
}

// accrue creates the missing entries of one work item in one transaction and
// recomputes the touched employees. Keys that already exist are skipped.
func (s *Service) accrue(ctx context.Context, shopName string, entries []Entry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.EmployeeID)
	}
	created := 0
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		created = 0
		if err := s.lockEmployees(ctx, shopName, ids); err != nil {
			return err
		}
		touched := map[string]bool{}
		for _, e := range entries {
			exists, err := s.store.EntryExists(ctx, AccrualKey{EmployeeID: e.EmployeeID, Work: *e.Work, Type: e.Type})
			if err != nil {
				return err
			}
			if exists {
				continue
			}
			if _, err := s.store.CreateEntry(ctx, e); err != nil {
				return err
			}
			created++
			touched[e.EmployeeID] = true
		}
		for id := range touched {
			if _, err := s.recomputeEarnings(ctx, shopName, id); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (s *Service) HasPaidEntries(ctx context.Context, shopName string, ref work.Ref) (bool, error) {
	entries, err := s.store.ListEntries(ctx, shopName, EntryFilter{Work: &ref})
	if err != nil {
		return false, err
	}
	for _, e := range entries {
		if e.IsPaid {
			return true, nil
		}
	}
	return false, nil
}

// ReverseForWork deletes every entry linked to ref and recomputes the
// affected employees. It joins the caller's transaction when there is one.
// The paid check is repeated once the employees are locked, since a
// settlement may have paid an entry after the caller last looked.
func (s *Service) ReverseForWork(ctx context.Context, shopName string, ref work.Ref) error {
	return s.store.WithTx(ctx, func(ctx context.Context) error {
		entries, err := s.store.ListEntries(ctx, shopName, EntryFilter{Work: &ref})
		if err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		ids := make([]string, 0, len(entries))
		for _, e := range entries {
			ids = append(ids, e.EmployeeID)
		}
		if err := s.lockEmployees(ctx, shopName, ids); err != nil {
			return err
		}
		locked, err := s.store.ListEntries(ctx, shopName, EntryFilter{Work: &ref})
		if err != nil {
			return err
		}
		for _, e := range locked {
			if e.IsPaid {
				return billing.ErrWorkHasPaidSalary
			}
		}
		if _, err := s.store.DeleteEntriesForWork(ctx, shopName, ref); err != nil {
			return fmt.Errorf("failed to delete salary entries: %w", err)
		}
		seen := map[string]bool{}
		for _, id := range ids {
			if seen[id] {
				continue
			}
			seen[id] = true
			if _, err := s.recomputeEarnings(ctx, shopName, id); err != nil {
				return err
			}
		}
		return nil
	})
}

// Sync creates any missing entries for every order and project of the shop,
// each work item in its own transaction, then recomputes every employee.
func (s *Service) Sync(ctx context.Context, shopName string) (SyncSummary, error) {
	summary := SyncSummary{ShopName: shopName}
	orders, err := s.works.ListOrders(ctx, shopName, billing.OrderFilter{})
	if err != nil {
		return summary, fmt.Errorf("failed to list orders: %w", err)
	}
	projects, err := s.works.ListProjects(ctx, shopName, billing.ProjectFilter{})
	if err != nil {
		return summary, fmt.Errorf("failed to list projects: %w", err)
	}

	run := func(ref work.Ref, entries []Entry) {
		summary.Scanned++
		n, err := s.accrue(ctx, shopName, entries)
		if err != nil {
			slog.Warn("salary sync failed for work item", "shop", shopName, "work", ref.String(), "err", err)
			summary.Failures = append(summary.Failures, SyncFailure{Work: ref, Error: err.Error()})
			return
		}
		summary.Created += n
	}
	for _, o := range orders {
		run(o.Ref(), OrderAccruals(o))
	}
	for _, p := range projects {
		run(p.Ref(), ProjectAccruals(p))
	}

	employees, err := s.store.ListEmployees(ctx, shopName)
	if err != nil {
		return summary, fmt.Errorf("failed to list employees: %w", err)
	}
	for _, e := range employees {
		err := s.store.WithTx(ctx, func(ctx context.Context) error {
			if _, err := s.store.LockEmployee(ctx, shopName, e.ID); err != nil {
				return err
			}
			_, err := s.recomputeEarnings(ctx, shopName, e.ID)
			return err
		})
		if err != nil {
			slog.Warn("salary sync recompute failed", "shop", shopName, "employeeId", e.ID, "err", err)
			continue
		}
		summary.UsersRecomputed++
	}
	s.metrics.SyncCreated(summary.Created)
	return summary, nil
}
