package salary

// PlanSettlement walks unpaid entries oldest first. Entries that fit in what
// is left are paid whole; the first one that does not fit is split and the
// walk stops. It returns the plan and the total it allocates.
func PlanSettlement(unpaid []Entry, amount int64) ([]Allocation, int64) {
	left := amount
	var plan []Allocation
	for _, entry := range unpaid {
		if left <= 0 {
			break
		}
		if entry.IsPaid || entry.Amount <= 0 {
			continue
		}
		if entry.Amount <= left {
			plan = append(plan, Allocation{Entry: entry, Amount: entry.Amount})
			left -= entry.Amount
			continue
		}
		plan = append(plan, Allocation{Entry: entry, Amount: left, Partial: true})
		left = 0
	}
	return plan, amount - left
}

// SumEntries derives earnings from a full set of one employee's entries.
func SumEntries(entries []Entry) Earnings {
	var e Earnings
	for _, entry := range entries {
		e.TotalEarnings += entry.Amount
		if entry.IsPaid {
			e.PaidSalary += entry.Amount
		}
	}
	e.RemainingSalary = e.TotalEarnings - e.PaidSalary
	return e
}
