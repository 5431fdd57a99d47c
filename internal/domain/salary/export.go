package salary

import (
	"context"
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	registerSummarySheet = "Employees"
	registerEntriesSheet = "Entries"
)

// Register exports the shop's salary ledger as an XLSX workbook with one
// sheet of employee totals and one of entries.
func (s *Service) Register(ctx context.Context, shopName string) ([]byte, error) {
	employees, err := s.store.ListEmployees(ctx, shopName)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, shopName, EntryFilter{})
	if err != nil {
		return nil, err
	}
	return renderRegister(employees, entries)
}

func renderRegister(employees []Employee, entries []Entry) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(registerSummarySheet)
	if err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(registerEntriesSheet); err != nil {
		return nil, err
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)

	names := make(map[string]string, len(employees))
	if err := writeRow(f, registerSummarySheet, 1, "Employee", "Email", "Role", "Total earnings", "Paid", "Remaining"); err != nil {
		return nil, err
	}
	for i, e := range employees {
		names[e.ID] = e.DisplayName()
		err := writeRow(f, registerSummarySheet, i+2, e.DisplayName(), e.Email, e.Role,
			e.Earnings.TotalEarnings, e.Earnings.PaidSalary, e.Earnings.RemainingSalary)
		if err != nil {
			return nil, err
		}
	}

	if err := writeRow(f, registerEntriesSheet, 1, "Work date", "Employee", "Type", "Description", "Amount", "Paid", "Paid date"); err != nil {
		return nil, err
	}
	for i, e := range entries {
		paidDate := ""
		if e.PaidDate != nil {
			paidDate = e.PaidDate.Format("2006-01-02")
		}
		name := names[e.EmployeeID]
		if name == "" {
			name = e.EmployeeID
		}
		err := writeRow(f, registerEntriesSheet, i+2, e.WorkDate.Format("2006-01-02"), name, e.Type,
			e.Description, e.Amount, e.IsPaid, paidDate)
		if err != nil {
			return nil, err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write register: %w", err)
	}
	return buf.Bytes(), nil
}

func writeRow(f *excelize.File, sheet string, row int, values ...any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
