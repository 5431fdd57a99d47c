package billing

const (
	StatusPending    = "pending"
	StatusInProgress = "in_progress"
	StatusCompleted  = "completed"
)

const (
	PaymentPaid    = "paid"
	PaymentPending = "pending"
	PaymentPartial = "partial"
)

const (
	ActionMarkAllPaid   = "mark-all-paid"
	ActionClearPayments = "clear-payments"
	ActionAddPayment    = "add-payment"
)

const (
	BusinessIndividual = "individual"
	BusinessCompany    = "company"
	BusinessAgency     = "agency"
)

var WorkStatuses = []string{StatusPending, StatusInProgress, StatusCompleted}

var QuickActions = []string{ActionMarkAllPaid, ActionClearPayments, ActionAddPayment}

var BusinessTypes = []string{BusinessIndividual, BusinessCompany, BusinessAgency}

var PaymentMethods = []string{"cash", "upi", "bank_transfer", "cheque", "other"}
