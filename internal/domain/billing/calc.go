package billing

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// Commission returns round(editingValue * percentage / 100), halves rounded away from zero.
func Commission(editingValue int64, percentage float64) int64 {
	if editingValue == 0 || percentage == 0 {
		return 0
	}
	return decimal.NewFromInt(editingValue).
		Mul(decimal.NewFromFloat(percentage)).
		Div(hundred).
		Round(0).
		IntPart()
}

// Remaining is deliberately unclamped: an overpaid item goes negative.
func Remaining(total, received int64) int64 {
	return total - received
}

// Pending is the client-level outstanding amount, clamped at zero.
func Pending(due, received int64) int64 {
	return max(0, due-received)
}

func PaymentStatus(due, received int64) string {
	switch {
	case due == 0:
		return PaymentPending
	case received >= due:
		return PaymentPaid
	case received > 0:
		return PaymentPartial
	default:
		return PaymentPending
	}
}

// DeriveTotals builds client totals from the raw due and received sums.
func DeriveTotals(due, received int64) Totals {
	return Totals{
		Due:      due,
		Received: received,
		Pending:  Pending(due, received),
		Status:   PaymentStatus(due, received),
	}
}

// ComputeTotals sums every work item of a client.
func ComputeTotals(items []WorkItem) Totals {
	var due, received int64
	for _, item := range items {
		due += item.TotalAmount
		received += item.ReceivedPayment
	}
	return DeriveTotals(due, received)
}

// FormatMoney renders a whole-unit amount with the given currency symbol.
func FormatMoney(symbol string, amount int64) string {
	return symbol + decimal.NewFromInt(amount).String()
}
