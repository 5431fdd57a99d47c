package billing

import (
	"time"

	"shopledger/internal/domain/work"
)

type Client struct {
	ID                      string                `json:"id"`
	ShopName                string                `json:"shopName"`
	Name                    string                `json:"name"`
	ContactPerson           string                `json:"contactPerson"`
	Phone                   string                `json:"phone"`
	Email                   string                `json:"email"`
	Address                 string                `json:"address"`
	BusinessType            string                `json:"businessType"`
	Notes                   string                `json:"notes"`
	TotalPaymentsDue        int64                 `json:"totalPaymentsDue"`
	ReceivedPayments        int64                 `json:"receivedPayments"`
	PendingPayments         int64                 `json:"pendingPayments"`
	PaymentStatus           string                `json:"paymentStatus"`
	LifetimeOrders          int                   `json:"lifetimeOrders"`
	LifetimeEditingProjects int                   `json:"lifetimeEditingProjects"`
	LifetimeValue           int64                 `json:"lifetimeValue"`
	PaymentHistory          []PaymentHistoryEntry `json:"paymentHistory,omitempty"`
	CreatedAt               time.Time             `json:"createdAt"`
	UpdatedAt               time.Time             `json:"updatedAt"`
}

func (c Client) Totals() Totals {
	return Totals{
		Due:      c.TotalPaymentsDue,
		Received: c.ReceivedPayments,
		Pending:  c.PendingPayments,
		Status:   c.PaymentStatus,
	}
}

func (c *Client) ApplyTotals(t Totals) {
	c.TotalPaymentsDue = t.Due
	c.ReceivedPayments = t.Received
	c.PendingPayments = t.Pending
	c.PaymentStatus = t.Status
}

type ClientProfile struct {
	Name          string `json:"name" validate:"required,max=200"`
	ContactPerson string `json:"contactPerson" validate:"max=200"`
	Phone         string `json:"phone" validate:"max=40"`
	Email         string `json:"email" validate:"omitempty,email"`
	Address       string `json:"address" validate:"max=500"`
	BusinessType  string `json:"businessType" validate:"omitempty,oneof=individual company agency"`
	Notes         string `json:"notes" validate:"max=2000"`
}

// Totals is the aggregate a client carries over its work items.
type Totals struct {
	Due      int64  `json:"totalPaymentsDue"`
	Received int64  `json:"receivedPayments"`
	Pending  int64  `json:"pendingPayments"`
	Status   string `json:"paymentStatus"`
}

type PaymentHistoryEntry struct {
	Amount         int64     `json:"amount"`
	PreviousAmount int64     `json:"previousAmount"`
	Notes          string    `json:"notes"`
	UpdatedBy      string    `json:"updatedBy,omitempty"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type Product struct {
	Name     string `json:"name" validate:"required"`
	Quantity int    `json:"quantity" validate:"gte=0"`
	Price    int64  `json:"price" validate:"gte=0"`
	SizeInfo string `json:"sizeInfo"`
}

// Assignment is a flat payment owed to one worker or transporter for an order.
type Assignment struct {
	UserID  string `json:"userId" validate:"required,uuid"`
	Payment int64  `json:"payment" validate:"gte=0"`
}

type Order struct {
	ID               string       `json:"id"`
	ShopName         string       `json:"shopName"`
	ClientID         string       `json:"clientId"`
	OrderName        string       `json:"orderName"`
	OrderDate        time.Time    `json:"orderDate"`
	Location         string       `json:"location"`
	Products         []Product    `json:"products"`
	Workers          []Assignment `json:"workers"`
	Transporters     []Assignment `json:"transporters"`
	TotalAmount      int64        `json:"totalAmount"`
	ReceivedPayment  int64        `json:"receivedPayment"`
	RemainingPayment int64        `json:"remainingPayment"`
	Status           string       `json:"status"`
	CompletionDate   *time.Time   `json:"completionDate,omitempty"`
	Notes            string       `json:"notes"`
	CreatedBy        string       `json:"createdBy,omitempty"`
	CreatedAt        time.Time    `json:"createdAt"`
}

// Normalize re-derives remainingPayment. Stores call it before every write.
func (o *Order) Normalize() {
	o.RemainingPayment = Remaining(o.TotalAmount, o.ReceivedPayment)
	if o.Status == "" {
		o.Status = StatusPending
	}
	if len(o.Products) == 0 {
		o.Products = []Product{{Name: o.OrderName, Quantity: 1, Price: o.TotalAmount}}
	}
}

func (o Order) Ref() work.Ref { return work.Order(o.ID) }

type EditingProject struct {
	ID                   string     `json:"id"`
	ShopName             string     `json:"shopName"`
	ClientID             string     `json:"clientId"`
	EditorID             string     `json:"editorId"`
	ProjectName          string     `json:"projectName"`
	Description          string     `json:"description"`
	StartDate            time.Time  `json:"startDate"`
	EndDate              time.Time  `json:"endDate"`
	EditingValue         int64      `json:"editingValue"`
	PendriveIncluded     bool       `json:"pendriveIncluded"`
	PendriveValue        int64      `json:"pendriveValue"`
	CommissionPercentage float64    `json:"commissionPercentage"`
	CommissionAmount     int64      `json:"commissionAmount"`
	TotalAmount          int64      `json:"totalAmount"`
	ReceivedPayment      int64      `json:"receivedPayment"`
	RemainingPayment     int64      `json:"remainingPayment"`
	Status               string     `json:"status"`
	CompletionDate       *time.Time `json:"completionDate,omitempty"`
	CreatedBy            string     `json:"createdBy,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
}

// Normalize re-derives commissionAmount and remainingPayment. The pendrive
// value never enters the commission base.
func (p *EditingProject) Normalize() {
	p.CommissionAmount = Commission(p.EditingValue, p.CommissionPercentage)
	p.RemainingPayment = Remaining(p.TotalAmount, p.ReceivedPayment)
	if p.Status == "" {
		p.Status = StatusPending
	}
	if !p.PendriveIncluded {
		p.PendriveValue = 0
	}
}

func (p EditingProject) Ref() work.Ref { return work.Project(p.ID) }

// WorkItem is the billing view of an order or a project.
type WorkItem struct {
	Ref              work.Ref   `json:"ref"`
	ClientID         string     `json:"clientId"`
	Name             string     `json:"name"`
	Date             time.Time  `json:"date"`
	TotalAmount      int64      `json:"totalAmount"`
	ReceivedPayment  int64      `json:"receivedPayment"`
	RemainingPayment int64      `json:"remainingPayment"`
	Status           string     `json:"status"`
	CompletionDate   *time.Time `json:"completionDate,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (w *WorkItem) Normalize() {
	w.RemainingPayment = Remaining(w.TotalAmount, w.ReceivedPayment)
}

// Unpaid is the amount still owed on the item, never negative.
func (w WorkItem) Unpaid() int64 {
	return max(0, w.TotalAmount-w.ReceivedPayment)
}

type Payment struct {
	ID            string    `json:"id"`
	ShopName      string    `json:"shopName"`
	OrderID       string    `json:"orderId"`
	ClientID      string    `json:"clientId"`
	Amount        int64     `json:"amount"`
	PaymentDate   time.Time `json:"paymentDate"`
	PaymentMethod string    `json:"paymentMethod"`
	ReceivedBy    string    `json:"receivedBy,omitempty"`
	Notes         string    `json:"notes"`
	CreatedAt     time.Time `json:"createdAt"`
}

type OrderFilter struct {
	ClientID string
	Status   string
	// AssignedTo limits the list to orders where the user works or transports.
	AssignedTo string
	// On limits the list to orders dated that calendar day.
	On *time.Time
	// Open drops completed orders.
	Open bool
}

type ProjectFilter struct {
	ClientID string
	Status   string
	EditorID string
	// EndsOn limits the list to projects whose end date is that calendar day.
	EndsOn *time.Time
	Open   bool
}

type PaymentFilter struct {
	OrderID  string
	ClientID string
}

type WorkHistory struct {
	Client   Client     `json:"client"`
	Items    []WorkItem `json:"items"`
	Computed Totals     `json:"computed"`
}

type ShopStats struct {
	Clients           int   `json:"clients"`
	Orders            int   `json:"orders"`
	Projects          int   `json:"projects"`
	CompletedOrders   int   `json:"completedOrders"`
	TotalDue          int64 `json:"totalDue"`
	TotalReceived     int64 `json:"totalReceived"`
	TotalPending      int64 `json:"totalPending"`
	SalaryOutstanding int64 `json:"salaryOutstanding"`
}
