package billing

import (
	"context"
	"fmt"
	"slices"
	"time"

	"shopledger/internal/domain/work"
)

const (
	TeamRoleWorker      = "worker"
	TeamRoleTransporter = "transporter"
	TeamRoleEditor      = "editor"
)

// Viewer is who the alerts are built for. Owners see the whole shop, everyone
// else only the work they are assigned to.
type Viewer struct {
	UserID string
	Owner  bool
}

type TeamMember struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
}

// DueWork is an open order dated today or an open project ending today.
type DueWork struct {
	Ref              work.Ref     `json:"ref"`
	Name             string       `json:"name"`
	ClientID         string       `json:"clientId"`
	ClientName       string       `json:"clientName"`
	Location         string       `json:"location,omitempty"`
	DueDate          time.Time    `json:"dueDate"`
	TotalAmount      int64        `json:"totalAmount"`
	RemainingPayment int64        `json:"remainingPayment"`
	CommissionAmount int64        `json:"commissionAmount,omitempty"`
	Status           string       `json:"status"`
	Products         []Product    `json:"products,omitempty"`
	Team             []TeamMember `json:"team"`
}

type Alerts struct {
	Day         string       `json:"day"`
	OrdersDue   []DueWork    `json:"ordersDue"`
	ProjectsDue []DueWork    `json:"projectsDue"`
	Outstanding int64        `json:"outstanding"`
	Team        []TeamMember `json:"team"`
	AllClear    bool         `json:"allClear"`
}

// Alerts lists the open orders and projects due today with what is still
// owed on them, and everyone assigned to that work.
func (s *Service) Alerts(ctx context.Context, shopName string, viewer Viewer) (Alerts, error) {
	today := s.now().UTC().Truncate(24 * time.Hour)
	out := Alerts{Day: today.Format(time.DateOnly), OrdersDue: []DueWork{}, ProjectsDue: []DueWork{}, Team: []TeamMember{}}
	if !viewer.Owner && viewer.UserID == "" {
		out.AllClear = true
		return out, nil
	}

	orderFilter := OrderFilter{On: &today, Open: true}
	projectFilter := ProjectFilter{EndsOn: &today, Open: true}
	if !viewer.Owner {
		orderFilter.AssignedTo = viewer.UserID
		projectFilter.EditorID = viewer.UserID
	}
	orders, err := s.store.ListOrders(ctx, shopName, orderFilter)
	if err != nil {
		return out, fmt.Errorf("failed to list orders due: %w", err)
	}
	projects, err := s.store.ListProjects(ctx, shopName, projectFilter)
	if err != nil {
		return out, fmt.Errorf("failed to list projects due: %w", err)
	}
	names, err := s.clientNames(ctx, shopName)
	if err != nil {
		return out, err
	}

	seen := map[string]bool{}
	addTeam := func(due *DueWork, userID, role string) {
		if userID == "" {
			return
		}
		member := TeamMember{UserID: userID, Role: role}
		if !slices.Contains(due.Team, member) {
			due.Team = append(due.Team, member)
		}
		if !seen[userID] {
			seen[userID] = true
			out.Team = append(out.Team, member)
		}
	}

	for _, o := range orders {
		due := DueWork{
			Ref: o.Ref(), Name: o.OrderName, ClientID: o.ClientID, ClientName: names[o.ClientID],
			Location: o.Location, DueDate: o.OrderDate, TotalAmount: o.TotalAmount,
			RemainingPayment: o.RemainingPayment, Status: o.Status, Products: o.Products, Team: []TeamMember{},
		}
		for _, a := range o.Workers {
			addTeam(&due, a.UserID, TeamRoleWorker)
		}
		for _, a := range o.Transporters {
			addTeam(&due, a.UserID, TeamRoleTransporter)
		}
		out.Outstanding += due.RemainingPayment
		out.OrdersDue = append(out.OrdersDue, due)
	}
	for _, p := range projects {
		due := DueWork{
			Ref: p.Ref(), Name: p.ProjectName, ClientID: p.ClientID, ClientName: names[p.ClientID],
			DueDate: p.EndDate, TotalAmount: p.TotalAmount, RemainingPayment: p.RemainingPayment,
			CommissionAmount: p.CommissionAmount, Status: p.Status, Team: []TeamMember{},
		}
		addTeam(&due, p.EditorID, TeamRoleEditor)
		out.Outstanding += due.RemainingPayment
		out.ProjectsDue = append(out.ProjectsDue, due)
	}
	out.AllClear = len(out.OrdersDue) == 0 && len(out.ProjectsDue) == 0
	return out, nil
}

func (s *Service) clientNames(ctx context.Context, shopName string) (map[string]string, error) {
	clients, err := s.store.ListClients(ctx, shopName)
	if err != nil {
		return nil, fmt.Errorf("failed to list clients: %w", err)
	}
	names := make(map[string]string, len(clients))
	for _, c := range clients {
		names[c.ID] = c.Name
	}
	return names, nil
}
