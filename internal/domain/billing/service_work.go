package billing

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"shopledger/internal/domain/work"
)

type OrderInput struct {
	ClientID        string       `json:"clientId" validate:"required,uuid"`
	OrderName       string       `json:"orderName" validate:"required,max=200"`
	OrderDate       time.Time    `json:"orderDate"`
	Location        string       `json:"location" validate:"max=300"`
	Products        []Product    `json:"products" validate:"dive"`
	Workers         []Assignment `json:"workers" validate:"dive"`
	Transporters    []Assignment `json:"transporters" validate:"dive"`
	TotalAmount     int64        `json:"totalAmount" validate:"gte=0"`
	ReceivedPayment int64        `json:"receivedPayment" validate:"gte=0"`
	Notes           string       `json:"notes" validate:"max=2000"`
	CreatedBy       string       `json:"-"`
}

type ProjectInput struct {
	ClientID             string    `json:"clientId" validate:"required,uuid"`
	EditorID             string    `json:"editorId" validate:"required,uuid"`
	ProjectName          string    `json:"projectName" validate:"required,max=200"`
	Description          string    `json:"description" validate:"max=2000"`
	StartDate            time.Time `json:"startDate"`
	EndDate              time.Time `json:"endDate"`
	EditingValue         int64     `json:"editingValue" validate:"gte=0"`
	PendriveIncluded     bool      `json:"pendriveIncluded"`
	PendriveValue        int64     `json:"pendriveValue" validate:"gte=0"`
	CommissionPercentage float64   `json:"commissionPercentage" validate:"gte=0,lte=100"`
	TotalAmount          int64     `json:"totalAmount" validate:"gte=0"`
	ReceivedPayment      int64     `json:"receivedPayment" validate:"gte=0"`
	CreatedBy            string    `json:"-"`
}

type OrderCreated struct {
	Order         Order  `json:"order"`
	Client        Client `json:"client"`
	SalaryAccrued bool   `json:"salaryAccrued"`
	AccrualError  string `json:"accrualError,omitempty"`
}

type ProjectCreated struct {
	Project       EditingProject `json:"project"`
	Client        Client         `json:"client"`
	SalaryAccrued bool           `json:"salaryAccrued"`
	AccrualError  string         `json:"accrualError,omitempty"`
}

func validateAmounts(total, received int64) error {
	if total < 0 || received < 0 {
		return ErrInvalidAmount
	}
	if received > total {
		return ErrAmountExceedsTotal
	}
	return nil
}

func validateAssignments(list []Assignment) error {
	for _, a := range list {
		if strings.TrimSpace(a.UserID) == "" || a.Payment < 0 {
			return ErrInvalidAssignment
		}
	}
	return nil
}

// CreateOrder stores the order and refreshes its client in one transaction,
// then accrues salary for the assignments as a separate step.
func (s *Service) CreateOrder(ctx context.Context, shopName string, in OrderInput) (OrderCreated, error) {
	if err := validateAmounts(in.TotalAmount, in.ReceivedPayment); err != nil {
		return OrderCreated{}, err
	}
	if err := validateAssignments(in.Workers); err != nil {
		return OrderCreated{}, err
	}
	if err := validateAssignments(in.Transporters); err != nil {
		return OrderCreated{}, err
	}
	if in.OrderDate.IsZero() {
		in.OrderDate = s.now()
	}
	order := Order{
		ShopName:        shopName,
		ClientID:        in.ClientID,
		OrderName:       strings.TrimSpace(in.OrderName),
		OrderDate:       in.OrderDate,
		Location:        in.Location,
		Products:        in.Products,
		Workers:         in.Workers,
		Transporters:    in.Transporters,
		TotalAmount:     in.TotalAmount,
		ReceivedPayment: in.ReceivedPayment,
		Status:          StatusPending,
		Notes:           in.Notes,
		CreatedBy:       in.CreatedBy,
	}
	order.Normalize()

	var out OrderCreated
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		client, err := s.store.LockClient(ctx, shopName, in.ClientID)
		if err != nil {
			return err
		}
		created, err := s.store.CreateOrder(ctx, order)
		if err != nil {
			return err
		}
		if err := s.store.BumpClientLifetime(ctx, client.ID, 1, 0, created.TotalAmount); err != nil {
			return err
		}
		client.LifetimeOrders++
		client.LifetimeValue += created.TotalAmount
		if err := s.recomputeLocked(ctx, shopName, &client); err != nil {
			return err
		}
		out.Order = created
		out.Client = client
		return nil
	})
	if err != nil {
		return OrderCreated{}, err
	}
	out.SalaryAccrued, out.AccrualError = s.accrue(ctx, out.Order.Ref(), func(ctx context.Context) error {
		return s.salary.AccrueForOrder(ctx, out.Order)
	})
	return out, nil
}

func (s *Service) CreateProject(ctx context.Context, shopName string, in ProjectInput) (ProjectCreated, error) {
	if err := validateAmounts(in.TotalAmount, in.ReceivedPayment); err != nil {
		return ProjectCreated{}, err
	}
	if in.EditingValue < 0 || in.PendriveValue < 0 {
		return ProjectCreated{}, ErrInvalidAmount
	}
	if in.CommissionPercentage < 0 || in.CommissionPercentage > 100 {
		return ProjectCreated{}, ErrInvalidPercentage
	}
	if in.StartDate.IsZero() {
		in.StartDate = s.now()
	}
	if in.EndDate.IsZero() {
		in.EndDate = in.StartDate
	}
	project := EditingProject{
		ShopName:             shopName,
		ClientID:             in.ClientID,
		EditorID:             in.EditorID,
		ProjectName:          strings.TrimSpace(in.ProjectName),
		Description:          in.Description,
		StartDate:            in.StartDate,
		EndDate:              in.EndDate,
		EditingValue:         in.EditingValue,
		PendriveIncluded:     in.PendriveIncluded,
		PendriveValue:        in.PendriveValue,
		CommissionPercentage: in.CommissionPercentage,
		TotalAmount:          in.TotalAmount,
		ReceivedPayment:      in.ReceivedPayment,
		Status:               StatusPending,
		CreatedBy:            in.CreatedBy,
	}
	project.Normalize()

	var out ProjectCreated
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		client, err := s.store.LockClient(ctx, shopName, in.ClientID)
		if err != nil {
			return err
		}
		created, err := s.store.CreateProject(ctx, project)
		if err != nil {
			return err
		}
		if err := s.store.BumpClientLifetime(ctx, client.ID, 0, 1, created.TotalAmount); err != nil {
			return err
		}
		client.LifetimeEditingProjects++
		client.LifetimeValue += created.TotalAmount
		if err := s.recomputeLocked(ctx, shopName, &client); err != nil {
			return err
		}
		out.Project = created
		out.Client = client
		return nil
	})
	if err != nil {
		return ProjectCreated{}, err
	}
	out.SalaryAccrued, out.AccrualError = s.accrue(ctx, out.Project.Ref(), func(ctx context.Context) error {
		return s.salary.AccrueForProject(ctx, out.Project)
	})
	return out, nil
}

func (s *Service) GetOrder(ctx context.Context, shopName, orderID string) (Order, error) {
	return s.store.GetOrder(ctx, shopName, orderID)
}

func (s *Service) ListOrders(ctx context.Context, shopName string, filter OrderFilter) ([]Order, error) {
	return s.store.ListOrders(ctx, shopName, filter)
}

func (s *Service) GetProject(ctx context.Context, shopName, projectID string) (EditingProject, error) {
	return s.store.GetProject(ctx, shopName, projectID)
}

func (s *Service) ListProjects(ctx context.Context, shopName string, filter ProjectFilter) ([]EditingProject, error) {
	return s.store.ListProjects(ctx, shopName, filter)
}

// UpdateWorkStatus moves an order or project between statuses, stamping the
// completion date when it becomes completed.
func (s *Service) UpdateWorkStatus(ctx context.Context, shopName string, ref work.Ref, status string) (WorkItem, error) {
	if !slices.Contains(WorkStatuses, status) {
		return WorkItem{}, ErrInvalidStatus
	}
	var completedAt *time.Time
	if status == StatusCompleted {
		now := s.now()
		completedAt = &now
	}
	if err := s.store.SetWorkStatus(ctx, shopName, ref, status, completedAt); err != nil {
		return WorkItem{}, err
	}
	return s.store.GetWorkItem(ctx, shopName, ref)
}

// DeleteWork removes an order or project, its salary entries and its share of
// the client aggregate in one transaction. Work with paid salary is refused.
func (s *Service) DeleteWork(ctx context.Context, shopName string, ref work.Ref) (WorkItem, error) {
	var deleted WorkItem
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		item, client, err := s.lockWork(ctx, shopName, ref)
		if err != nil {
			return err
		}
		if s.salary != nil {
			paid, err := s.salary.HasPaidEntries(ctx, shopName, ref)
			if err != nil {
				return fmt.Errorf("failed to check salary entries: %w", err)
			}
			if paid {
				return ErrWorkHasPaidSalary
			}
			if err := s.salary.ReverseForWork(ctx, shopName, ref); err != nil {
				return fmt.Errorf("failed to reverse salary: %w", err)
			}
		}
		if err := s.store.DeleteWork(ctx, shopName, ref); err != nil {
			return err
		}
		orders, projects := -1, 0
		if ref.Kind == work.KindProject {
			orders, projects = 0, -1
		}
		if err := s.store.BumpClientLifetime(ctx, client.ID, orders, projects, -item.TotalAmount); err != nil {
			return err
		}
		if err := s.recomputeLocked(ctx, shopName, &client); err != nil {
			return err
		}
		deleted = item
		return nil
	})
	return deleted, err
}
