package billing

import (
	"sort"

	"shopledger/internal/domain/work"
)

// OrderWork puts orders before projects, keeping creation order within each kind.
func OrderWork(items []WorkItem) []WorkItem {
	out := make([]WorkItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool {
		return kindRank(out[i].Ref.Kind) < kindRank(out[j].Ref.Kind)
	})
	return out
}

func kindRank(k work.Kind) int {
	if k == work.KindOrder {
		return 0
	}
	return 1
}

// DistributePayment spreads amount over unpaid items, orders first, each
// absorbing min(unpaid, left). It returns the items it changed and whatever
// could not be placed.
func DistributePayment(items []WorkItem, amount int64) ([]WorkItem, int64) {
	left := amount
	var changed []WorkItem
	for _, item := range OrderWork(items) {
		if left <= 0 {
			break
		}
		unpaid := item.Unpaid()
		if unpaid == 0 {
			continue
		}
		take := min(unpaid, left)
		item.ReceivedPayment += take
		item.Normalize()
		changed = append(changed, item)
		left -= take
	}
	return changed, left
}

// MarkAllPaid settles every under-paid item in full.
func MarkAllPaid(items []WorkItem) []WorkItem {
	var changed []WorkItem
	for _, item := range OrderWork(items) {
		if item.ReceivedPayment >= item.TotalAmount {
			continue
		}
		item.ReceivedPayment = item.TotalAmount
		item.Normalize()
		changed = append(changed, item)
	}
	return changed
}

// ClearPayments zeroes every item that has received anything.
func ClearPayments(items []WorkItem) []WorkItem {
	var changed []WorkItem
	for _, item := range OrderWork(items) {
		if item.ReceivedPayment <= 0 {
			continue
		}
		item.ReceivedPayment = 0
		item.Normalize()
		changed = append(changed, item)
	}
	return changed
}
