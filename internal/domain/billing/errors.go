package billing

import "errors"

var (
	ErrClientNotFound     = errors.New("client not found")
	ErrOrderNotFound      = errors.New("order not found")
	ErrProjectNotFound    = errors.New("editing project not found")
	ErrPaymentNotFound    = errors.New("payment not found")
	ErrInvalidAmount      = errors.New("amount is out of range")
	ErrAmountExceedsTotal = errors.New("received payment cannot exceed total amount")
	ErrInvalidAssignment  = errors.New("assignment needs a user and a non-negative payment")
	ErrInvalidPercentage  = errors.New("commission percentage must be between 0 and 100")
	ErrInvalidStatus      = errors.New("invalid work status")
	ErrInvalidAction      = errors.New("invalid quick payment action")
	ErrInvalidMethod      = errors.New("invalid payment method")
	ErrEmptyBatch         = errors.New("no payments to apply")
	ErrInvalidWorkID      = errors.New("work id must be a uuid")
	ErrWorkMismatch       = errors.New("work item does not belong to client")
	ErrWorkHasPaidSalary  = errors.New("work item has paid salary entries and cannot be deleted")
)
