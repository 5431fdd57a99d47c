package salary

import (
	"bytes"
	"context"
	"fmt"
	"strconv"

	"github.com/jung-kurt/gofpdf"
)

// Statement renders the employee's salary entries and totals as a PDF.
func (s *Service) Statement(ctx context.Context, shopName, employeeID string) ([]byte, error) {
	summary, err := s.Summary(ctx, shopName, employeeID)
	if err != nil {
		return nil, err
	}
	return renderStatement(shopName, summary, pdfCurrency(s.currency))
}

// pdfCurrency swaps symbols the core PDF fonts cannot draw.
func pdfCurrency(symbol string) string {
	for _, r := range symbol {
		if r > 0xff {
			if symbol == "₹" {
				return "Rs. "
			}
			return ""
		}
	}
	return symbol
}

func renderStatement(shopName string, summary Summary, currency string) ([]byte, error) {
	money := func(v int64) string { return currency + strconv.FormatInt(v, 10) }

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Salary statement")
	pdf.Ln(12)
	pdf.SetFont("Helvetica", "", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Shop: %s", shopName))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Employee: %s", summary.Employee.DisplayName()))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Total earnings: %s", money(summary.Derived.TotalEarnings)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Paid: %s", money(summary.Derived.PaidSalary)))
	pdf.Ln(7)
	pdf.Cell(0, 8, fmt.Sprintf("Remaining: %s", money(summary.Derived.RemainingSalary)))
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "B", 10)
	widths := []float64{25, 30, 85, 25, 25}
	for i, h := range []string{"Date", "Type", "Description", "Amount", "Status"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 9)
	for _, e := range summary.Entries {
		status := "Unpaid"
		if e.IsPaid {
			status = "Paid"
		}
		desc := e.Description
		if len(desc) > 55 {
			desc = desc[:52] + "..."
		}
		pdf.CellFormat(widths[0], 6, e.WorkDate.Format("2006-01-02"), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, e.Type, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[2], 6, desc, "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[3], 6, money(e.Amount), "1", 0, "R", false, 0, "")
		pdf.CellFormat(widths[4], 6, status, "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("failed to render statement: %w", err)
	}
	return buf.Bytes(), nil
}
