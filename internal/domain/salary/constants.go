package salary

const (
	TypeOrderWork     = "order_work"
	TypeEditingWork   = "editing_work"
	TypeTransportWork = "transport_work"
	TypeBonus         = "bonus"
	TypeCommission    = "commission"
)

var Types = []string{TypeOrderWork, TypeEditingWork, TypeTransportWork, TypeBonus, TypeCommission}

const (
	PathOldestFirst = "oldest_first"
	PathSingle      = "single"
)

const NotificationType = "salary"

const partialPrefix = "Partial payment: "
