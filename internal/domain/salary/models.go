package salary

import (
	"time"

	"shopledger/internal/domain/work"
)

type Entry struct {
	ID          string     `json:"id"`
	ShopName    string     `json:"shopName"`
	EmployeeID  string     `json:"employeeId"`
	Amount      int64      `json:"amount"`
	Type        string     `json:"salaryType"`
	Work        *work.Ref  `json:"work,omitempty"`
	Description string     `json:"description"`
	WorkDate    time.Time  `json:"workDate"`
	IsPaid      bool       `json:"isPaid"`
	PaidDate    *time.Time `json:"paidDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Earnings are the running salary totals kept on the user record.
type Earnings struct {
	TotalEarnings   int64 `json:"totalEarnings"`
	PaidSalary      int64 `json:"paidSalary"`
	RemainingSalary int64 `json:"remainingSalary"`
}

type Employee struct {
	ID        string   `json:"id"`
	ShopName  string   `json:"shopName"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Role      string   `json:"role"`
	Earnings  Earnings `json:"earnings"`
}

func (e Employee) DisplayName() string {
	name := e.FirstName
	if e.LastName != "" {
		name += " " + e.LastName
	}
	if name == "" {
		return e.Email
	}
	return name
}

type EntryFilter struct {
	EmployeeID string
	UnpaidOnly bool
	Work       *work.Ref
	Type       string
}

// AccrualKey identifies the entry an assignment produces; sync never creates
// a second entry for the same key.
type AccrualKey struct {
	EmployeeID string
	Work       work.Ref
	Type       string
}

type Allocation struct {
	Entry   Entry
	Amount  int64
	Partial bool
}

type Settlement struct {
	EmployeeID  string   `json:"employeeId"`
	Requested   int64    `json:"requested"`
	Allocated   int64    `json:"allocated"`
	Unallocated int64    `json:"unallocated"`
	Paid        []Entry  `json:"paid"`
	Split       *Entry   `json:"split,omitempty"`
	Earnings    Earnings `json:"earnings"`
}

type ManualEntryInput struct {
	EmployeeID  string    `json:"employeeId" validate:"required,uuid"`
	Amount      int64     `json:"amount" validate:"gt=0"`
	Type        string    `json:"salaryType" validate:"required"`
	Work        *work.Ref `json:"work,omitempty"`
	Description string    `json:"description" validate:"max=500"`
	WorkDate    time.Time `json:"workDate"`
}

type SyncFailure struct {
	Work  work.Ref `json:"work"`
	Error string   `json:"error"`
}

type SyncSummary struct {
	ShopName        string        `json:"shopName"`
	Scanned         int           `json:"scanned"`
	Created         int           `json:"created"`
	UsersRecomputed int           `json:"usersRecomputed"`
	Failures        []SyncFailure `json:"failures,omitempty"`
}

type Summary struct {
	Employee Employee `json:"employee"`
	// Derived is computed from the entries on read; Employee.Earnings is what is stored.
	Derived Earnings `json:"derived"`
	Entries []Entry  `json:"entries"`
}
