package salary

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"shopledger/internal/domain/billing"
	"shopledger/internal/domain/work"
)

type memTxKey struct{}

var errInjected = errors.New("injected store failure")

type memStore struct {
	txMu   sync.Mutex
	dataMu sync.Mutex
	seq    int
	base   time.Time

	employees map[string]Employee
	entries   map[string]Entry
	order     map[string]int

	// failCreateFor makes CreateEntry fail for one employee.
	failCreateFor string
}

func newMemStore() *memStore {
	return &memStore{
		base:      time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC),
		employees: map[string]Employee{},
		entries:   map[string]Entry{},
		order:     map[string]int{},
	}
}

func (m *memStore) addEmployee(shopName, first string) Employee {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	e := Employee{ID: uuid.NewString(), ShopName: shopName, FirstName: first, Email: first + "@example.com", Role: "worker"}
	m.employees[e.ID] = e
	return e
}

func (m *memStore) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(memTxKey{}) != nil {
		return fn(ctx)
	}
	m.txMu.Lock()
	defer m.txMu.Unlock()

	m.dataMu.Lock()
	employees, entries, order := maps.Clone(m.employees), maps.Clone(m.entries), maps.Clone(m.order)
	m.dataMu.Unlock()

	if err := fn(context.WithValue(ctx, memTxKey{}, true)); err != nil {
		m.dataMu.Lock()
		m.employees, m.entries, m.order = employees, entries, order
		m.dataMu.Unlock()
		return err
	}
	return nil
}

func (m *memStore) GetEmployee(_ context.Context, shopName, id string) (Employee, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	e, ok := m.employees[id]
	if !ok || e.ShopName != shopName {
		return Employee{}, ErrEmployeeNotFound
	}
	return e, nil
}

func (m *memStore) LockEmployee(ctx context.Context, shopName, id string) (Employee, error) {
	return m.GetEmployee(ctx, shopName, id)
}

func (m *memStore) ListEmployees(_ context.Context, shopName string) ([]Employee, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	var out []Employee
	for _, e := range m.employees {
		if e.ShopName == shopName {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FirstName < out[j].FirstName })
	return out, nil
}

func (m *memStore) SaveEarnings(_ context.Context, id string, earnings Earnings) error {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	e, ok := m.employees[id]
	if !ok {
		return ErrEmployeeNotFound
	}
	e.Earnings = earnings
	m.employees[id] = e
	return nil
}

func (m *memStore) CreateEntry(_ context.Context, entry Entry) (Entry, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	if m.failCreateFor != "" && entry.EmployeeID == m.failCreateFor {
		return Entry{}, errInjected
	}
	m.seq++
	entry.ID = uuid.NewString()
	entry.CreatedAt = m.base.Add(time.Duration(m.seq) * time.Minute)
	m.entries[entry.ID] = entry
	m.order[entry.ID] = m.seq
	return entry, nil
}

func (m *memStore) GetEntry(_ context.Context, shopName, id string) (Entry, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.ShopName != shopName {
		return Entry{}, ErrEntryNotFound
	}
	return e, nil
}

func (m *memStore) ListEntries(_ context.Context, shopName string, f EntryFilter) ([]Entry, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	var out []Entry
	for _, e := range m.entries {
		if e.ShopName != shopName {
			continue
		}
		if f.EmployeeID != "" && e.EmployeeID != f.EmployeeID {
			continue
		}
		if f.UnpaidOnly && e.IsPaid {
			continue
		}
		if f.Work != nil && (e.Work == nil || *e.Work != *f.Work) {
			continue
		}
		if f.Type != "" && e.Type != f.Type {
			continue
		}
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b Entry) int { return m.order[a.ID] - m.order[b.ID] })
	return out, nil
}

func (m *memStore) EntryExists(_ context.Context, key AccrualKey) (bool, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	for _, e := range m.entries {
		if e.EmployeeID == key.EmployeeID && e.Type == key.Type && e.Work != nil && *e.Work == key.Work {
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) MarkEntryPaid(_ context.Context, id string, paidAt time.Time) error {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.IsPaid {
		return ErrAlreadyPaid
	}
	e.IsPaid = true
	e.PaidDate = &paidAt
	m.entries[id] = e
	return nil
}

func (m *memStore) UpdateEntryAmount(_ context.Context, id string, amount int64) error {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	e, ok := m.entries[id]
	if !ok || e.IsPaid {
		return ErrEntryNotFound
	}
	e.Amount = amount
	m.entries[id] = e
	return nil
}

func (m *memStore) DeleteEntriesForWork(_ context.Context, shopName string, ref work.Ref) (int, error) {
	m.dataMu.Lock()
	defer m.dataMu.Unlock()
	n := 0
	for id, e := range m.entries {
		if e.ShopName == shopName && e.Work != nil && *e.Work == ref {
			delete(m.entries, id)
			n++
		}
	}
	return n, nil
}

type fakeWorks struct {
	orders   []billing.Order
	projects []billing.EditingProject
}

func (f *fakeWorks) ListOrders(context.Context, string, billing.OrderFilter) ([]billing.Order, error) {
	return f.orders, nil
}

func (f *fakeWorks) ListProjects(context.Context, string, billing.ProjectFilter) ([]billing.EditingProject, error) {
	return f.projects, nil
}

type sentNotification struct {
	userID, ntype, body string
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []sentNotification
}

func (f *fakeNotifier) Notify(_ context.Context, _, userID, ntype, _, body string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentNotification{userID: userID, ntype: ntype, body: body})
	return nil
}
