package billing

import (
	"context"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopledger/internal/domain/work"
)

type memTxKey struct{}

// memStore is an in-memory StoreAPI. WithTx serializes transactions and
// restores a snapshot when fn fails.
type memStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex
	seq    int
	base   time.Time

	clients  map[string]Client
	history  map[string][]PaymentHistoryEntry
	orders   map[string]Order
	projects map[string]EditingProject
	payments map[string]Payment
}

func newMemStore() *memStore {
	return &memStore{
		base:     time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC),
		clients:  map[string]Client{},
		history:  map[string][]PaymentHistoryEntry{},
		orders:   map[string]Order{},
		projects: map[string]EditingProject{},
		payments: map[string]Payment{},
	}
}

type memSnapshot struct {
	clients  map[string]Client
	history  map[string][]PaymentHistoryEntry
	orders   map[string]Order
	projects map[string]EditingProject
	payments map[string]Payment
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.dataMu.Lock()
	snap := memSnapshot{
		clients:  maps.Clone(m.clients),
		history:  maps.Clone(m.history),
		orders:   maps.Clone(m.orders),
		projects: maps.Clone(m.projects),
		payments: maps.Clone(m.payments),
	}
	m.dataMu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.dataMu.Lock()
		m.clients, m.history, m.orders, m.projects, m.payments = snap.clients, snap.history, snap.orders, snap.projects, snap.payments
		m.dataMu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) nextStamp() time.Time {
	m.seq++
	return m.base.Add(time.Duration(m.seq) * time.Second)
}

func (m *memStore) CreateClient(_ context.Context, shopName string, p ClientProfile) (Client, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	if p.BusinessType == "" {
		p.BusinessType = BusinessIndividual
	}
	now := m.nextStamp()
	c := Client{
		ID: uuid.NewString(), ShopName: shopName, Name: p.Name, ContactPerson: p.ContactPerson, Phone: p.Phone,
		Email: p.Email, Address: p.Address, BusinessType: p.BusinessType, Notes: p.Notes,
		PaymentStatus: PaymentPending, CreatedAt: now, UpdatedAt: now,
	}
	m.clients[c.ID] = c
	return c, nil
}

func (m *memStore) GetClient(_ context.Context, shopName, clientID string) (Client, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	c, ok := m.clients[clientID]
	if !ok || c.ShopName != shopName {
		return Client{}, ErrClientNotFound
	}
	return c, nil
}

func (m *memStore) LockClient(ctx context.Context, shopName, clientID string) (Client, error) {
	return m.GetClient(ctx, shopName, clientID)
}

func (m *memStore) ListClients(_ context.Context, shopName string) ([]Client, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	var out []Client
	for _, c := range m.clients {
		if c.ShopName == shopName {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memStore) UpdateClientProfile(_ context.Context, shopName, clientID string, p ClientProfile) error {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	c, ok := m.clients[clientID]
	if !ok || c.ShopName != shopName {
		return ErrClientNotFound
	}
	c.Name, c.ContactPerson, c.Phone, c.Email, c.Address, c.Notes = p.Name, p.ContactPerson, p.Phone, p.Email, p.Address, p.Notes
	if p.BusinessType != "" {
		c.BusinessType = p.BusinessType
	}
	m.clients[clientID] = c
	return nil
}

func (m *memStore) SaveClientTotals(_ context.Context, clientID string, t Totals) error {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	c := m.clients[clientID]
	c.ApplyTotals(t)
	m.clients[clientID] = c
	return nil
}

func (m *memStore) BumpClientLifetime(_ context.Context, clientID string, orders, projects int, value int64) error {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	c := m.clients[clientID]
	c.LifetimeOrders = max(0, c.LifetimeOrders+orders)
	c.LifetimeEditingProjects = max(0, c.LifetimeEditingProjects+projects)
	c.LifetimeValue = max(0, c.LifetimeValue+value)
	m.clients[clientID] = c
	return nil
}

func (m *memStore) AppendPaymentHistory(_ context.Context, clientID string, e PaymentHistoryEntry) error {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	m.history[clientID] = append(slices.Clone(m.history[clientID]), e)
	return nil
}

func (m *memStore) ListPaymentHistory(_ context.Context, clientID string) ([]PaymentHistoryEntry, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	return slices.Clone(m.history[clientID]), nil
}

func (m *memStore) CreateOrder(_ context.Context, o Order) (Order, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	o.Normalize()
	o.ID = uuid.NewString()
	o.CreatedAt = m.nextStamp()
	m.orders[o.ID] = o
	return o, nil
}

func (m *memStore) GetOrder(_ context.Context, shopName, orderID string) (Order, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	o, ok := m.orders[orderID]
	if !ok || o.ShopName != shopName {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (m *memStore) ListOrders(_ context.Context, shopName string, f OrderFilter) ([]Order, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	var out []Order
	for _, o := range m.orders {
		if o.ShopName != shopName || (f.ClientID != "" && o.ClientID != f.ClientID) || (f.Status != "" && o.Status != f.Status) {
			continue
		}
		if f.AssignedTo != "" && !assigned(o, f.AssignedTo) {
			continue
		}
		if (f.On != nil && !sameDay(o.OrderDate, *f.On)) || (f.Open && o.Status == StatusCompleted) {
			continue
		}
		out = append(out, o)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func sameDay(a, b time.Time) bool {
	return a.Format(time.DateOnly) == b.Format(time.DateOnly)
}

func assigned(o Order, userID string) bool {
	for _, a := range append(slices.Clone(o.Workers), o.Transporters...) {
		if a.UserID == userID {
			return true
		}
	}
	return false
}

func (m *memStore) CreateProject(_ context.Context, p EditingProject) (EditingProject, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	p.Normalize()
	p.ID = uuid.NewString()
	p.CreatedAt = m.nextStamp()
	m.projects[p.ID] = p
	return p, nil
}

func (m *memStore) GetProject(_ context.Context, shopName, projectID string) (EditingProject, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	p, ok := m.projects[projectID]
	if !ok || p.ShopName != shopName {
		return EditingProject{}, ErrProjectNotFound
	}
	return p, nil
}

func (m *memStore) ListProjects(_ context.Context, shopName string, f ProjectFilter) ([]EditingProject, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	var out []EditingProject
	for _, p := range m.projects {
		if p.ShopName != shopName || (f.ClientID != "" && p.ClientID != f.ClientID) ||
			(f.Status != "" && p.Status != f.Status) || (f.EditorID != "" && p.EditorID != f.EditorID) {
			continue
		}
		if (f.EndsOn != nil && !sameDay(p.EndDate, *f.EndsOn)) || (f.Open && p.Status == StatusCompleted) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func projectItem(p EditingProject) WorkItem {
	return WorkItem{
		Ref: p.Ref(), ClientID: p.ClientID, Name: p.ProjectName, Date: p.StartDate,
		TotalAmount: p.TotalAmount, ReceivedPayment: p.ReceivedPayment, RemainingPayment: p.RemainingPayment,
		Status: p.Status, CompletionDate: p.CompletionDate, CreatedAt: p.CreatedAt,
	}
}

func (m *memStore) ListClientWork(ctx context.Context, shopName, clientID string) ([]WorkItem, error) {
	orders, _ := m.ListOrders(ctx, shopName, OrderFilter{ClientID: clientID})
	projects, _ := m.ListProjects(ctx, shopName, ProjectFilter{ClientID: clientID})
	var out []WorkItem
	for _, o := range orders {
		out = append(out, orderItem(o))
	}
	for _, p := range projects {
		out = append(out, projectItem(p))
	}
	return out, nil
}

func (m *memStore) GetWorkItem(ctx context.Context, shopName string, ref work.Ref) (WorkItem, error) {
	switch ref.Kind {
	case work.KindOrder:
		o, err := m.GetOrder(ctx, shopName, ref.ID)
		return orderItem(o), err
	case work.KindProject:
		p, err := m.GetProject(ctx, shopName, ref.ID)
		return projectItem(p), err
	}
	return WorkItem{}, work.ErrInvalidKind
}

func (m *memStore) SaveWorkPayment(_ context.Context, shopName string, item WorkItem) error {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	switch item.Ref.Kind {
	case work.KindOrder:
		o, ok := m.orders[item.Ref.ID]
		if !ok || o.ShopName != shopName {
			return ErrOrderNotFound
		}
		o.ReceivedPayment = item.ReceivedPayment
		o.Normalize()
		m.orders[o.ID] = o
	case work.KindProject:
		p, ok := m.projects[item.Ref.ID]
		if !ok || p.ShopName != shopName {
			return ErrProjectNotFound
		}
		p.ReceivedPayment = item.ReceivedPayment
		p.Normalize()
		m.projects[p.ID] = p
	default:
		return work.ErrInvalidKind
	}
	return nil
}

func (m *memStore) SetWorkStatus(_ context.Context, shopName string, ref work.Ref, status string, completedAt *time.Time) error {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	switch ref.Kind {
	case work.KindOrder:
		o, ok := m.orders[ref.ID]
		if !ok || o.ShopName != shopName {
			return ErrOrderNotFound
		}
		o.Status, o.CompletionDate = status, completedAt
		m.orders[o.ID] = o
	case work.KindProject:
		p, ok := m.projects[ref.ID]
		if !ok || p.ShopName != shopName {
			return ErrProjectNotFound
		}
		p.Status, p.CompletionDate = status, completedAt
		m.projects[p.ID] = p
	default:
		return work.ErrInvalidKind
	}
	return nil
}

func (m *memStore) DeleteWork(_ context.Context, shopName string, ref work.Ref) error {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	switch ref.Kind {
	case work.KindOrder:
		o, ok := m.orders[ref.ID]
		if !ok || o.ShopName != shopName {
			return ErrOrderNotFound
		}
		delete(m.orders, ref.ID)
		for id, p := range m.payments {
			if p.OrderID == ref.ID {
				delete(m.payments, id)
			}
		}
	case work.KindProject:
		p, ok := m.projects[ref.ID]
		if !ok || p.ShopName != shopName {
			return ErrProjectNotFound
		}
		delete(m.projects, ref.ID)
	default:
		return work.ErrInvalidKind
	}
	return nil
}

func (m *memStore) CreatePayment(_ context.Context, p Payment) (Payment, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = m.nextStamp()
	m.payments[p.ID] = p
	return p, nil
}

func (m *memStore) GetPayment(_ context.Context, shopName, paymentID string) (Payment, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.ShopName != shopName {
		return Payment{}, ErrPaymentNotFound
	}
	return p, nil
}

func (m *memStore) ListPayments(_ context.Context, shopName string, f PaymentFilter) ([]Payment, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	var out []Payment
	for _, p := range m.payments {
		if p.ShopName != shopName || (f.OrderID != "" && p.OrderID != f.OrderID) || (f.ClientID != "" && p.ClientID != f.ClientID) {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) DeletePayment(_ context.Context, shopName, paymentID string) error {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	p, ok := m.payments[paymentID]
	if !ok || p.ShopName != shopName {
		return ErrPaymentNotFound
	}
	delete(m.payments, paymentID)
	return nil
}

func (m *memStore) ShopStats(ctx context.Context, shopName string) (ShopStats, error) {
	clients, _ := m.ListClients(ctx, shopName)
	orders, _ := m.ListOrders(ctx, shopName, OrderFilter{})
	projects, _ := m.ListProjects(ctx, shopName, ProjectFilter{})
	st := ShopStats{Clients: len(clients), Orders: len(orders), Projects: len(projects)}
	for _, o := range orders {
		if o.Status == StatusCompleted {
			st.CompletedOrders++
		}
	}
	for _, c := range clients {
		st.TotalDue += c.TotalPaymentsDue
		st.TotalReceived += c.ReceivedPayments
		st.TotalPending += c.PendingPayments
	}
	return st, nil
}

// fakeLedger records the salary side of work-item lifecycle calls.
type fakeLedger struct {
	mu        sync.Mutex
	accrueErr error
	paid      map[work.Ref]bool
	accrued   []work.Ref
	reversed  []work.Ref
}

func (f *fakeLedger) AccrueForOrder(_ context.Context, o Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accrueErr != nil {
		return f.accrueErr
	}
	f.accrued = append(f.accrued, o.Ref())
	return nil
}

func (f *fakeLedger) AccrueForProject(_ context.Context, p EditingProject) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.accrueErr != nil {
		return f.accrueErr
	}
	f.accrued = append(f.accrued, p.Ref())
	return nil
}

func (f *fakeLedger) HasPaidEntries(_ context.Context, _ string, ref work.Ref) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.paid[ref], nil
}

func (f *fakeLedger) ReverseForWork(_ context.Context, _ string, ref work.Ref) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reversed = append(f.reversed, ref)
	return nil
}
