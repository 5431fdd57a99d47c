package salary

import (
	"context"
	"fmt"
)

// Pay settles amount against the employee's unpaid entries oldest first.
// Whatever exceeds the outstanding total is left unallocated.
func (s *Service) Pay(ctx context.Context, shopName, employeeID string, amount int64) (Settlement, error) {
	if amount <= 0 {
		return Settlement{}, ErrInvalidAmount
	}
	result := Settlement{EmployeeID: employeeID, Requested: amount}
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		result = Settlement{EmployeeID: employeeID, Requested: amount}
		if _, err := s.store.LockEmployee(ctx, shopName, employeeID); err != nil {
			return err
		}
		unpaid, err := s.store.ListEntries(ctx, shopName, EntryFilter{EmployeeID: employeeID, UnpaidOnly: true})
		if err != nil {
			return err
		}
		plan, allocated := PlanSettlement(unpaid, amount)
		paidAt := s.now()
		for _, a := range plan {
			if !a.Partial {
				if err := s.store.MarkEntryPaid(ctx, a.Entry.ID, paidAt); err != nil {
					return fmt.Errorf("failed to mark entry %s paid: %w", a.Entry.ID, err)
				}
				paid := a.Entry
				paid.IsPaid = true
				paid.PaidDate = &paidAt
				result.Paid = append(result.Paid, paid)
				continue
			}
			part, err := s.store.CreateEntry(ctx, Entry{
				ShopName:    shopName,
				EmployeeID:  employeeID,
				Amount:      a.Amount,
				Type:        a.Entry.Type,
				Work:        a.Entry.Work,
				Description: partialPrefix + a.Entry.Description,
				WorkDate:    a.Entry.WorkDate,
				IsPaid:      true,
				PaidDate:    &paidAt,
			})
			if err != nil {
				return err
			}
			residual := a.Entry.Amount - a.Amount
			if err := s.store.UpdateEntryAmount(ctx, a.Entry.ID, residual); err != nil {
				return fmt.Errorf("failed to reduce entry %s: %w", a.Entry.ID, err)
			}
			split := a.Entry
			split.Amount = residual
			result.Paid = append(result.Paid, part)
			result.Split = &split
		}
		earnings, err := s.recomputeEarnings(ctx, shopName, employeeID)
		if err != nil {
			return err
		}
		result.Allocated = allocated
		result.Unallocated = amount - allocated
		result.Earnings = earnings
		return nil
	})
	if err != nil {
		return Settlement{}, err
	}
	s.metrics.SalarySettled(PathOldestFirst, result.Allocated)
	s.notifyPaid(ctx, shopName, employeeID, result.Allocated)
	return result, nil
}

// PayOne marks a single entry fully paid regardless of its age.
func (s *Service) PayOne(ctx context.Context, shopName, entryID string) (Entry, Earnings, error) {
	var (
		paid     Entry
		earnings Earnings
	)
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		entry, err := s.store.GetEntry(ctx, shopName, entryID)
		if err != nil {
			return err
		}
		if _, err := s.store.LockEmployee(ctx, shopName, entry.EmployeeID); err != nil {
			return err
		}
		// Re-read under the lock; a concurrent Pay may have settled or split it.
		entry, err = s.store.GetEntry(ctx, shopName, entryID)
		if err != nil {
			return err
		}
		if entry.IsPaid {
			return ErrAlreadyPaid
		}
		paidAt := s.now()
		if err := s.store.MarkEntryPaid(ctx, entry.ID, paidAt); err != nil {
			return err
		}
		entry.IsPaid = true
		entry.PaidDate = &paidAt
		earnings, err = s.recomputeEarnings(ctx, shopName, entry.EmployeeID)
		if err != nil {
			return err
		}
		paid = entry
		return nil
	})
	if err != nil {
		return Entry{}, Earnings{}, err
	}
	s.metrics.SalarySettled(PathSingle, paid.Amount)
	s.notifyPaid(ctx, shopName, paid.EmployeeID, paid.Amount)
	return paid, earnings, nil
}
