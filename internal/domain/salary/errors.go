package salary

import "errors"

var (
	ErrEmployeeNotFound = errors.New("employee not found")
	ErrEntryNotFound    = errors.New("salary entry not found")
	ErrAlreadyPaid      = errors.New("salary entry is already paid")
	ErrInvalidAmount    = errors.New("amount must be greater than zero")
	ErrInvalidType      = errors.New("invalid salary type")
)
