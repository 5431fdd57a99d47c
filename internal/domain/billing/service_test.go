package billing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/domain/work"
)

const testShop = "Lumen Events"

func newTestService(t *testing.T) (*Service, *memStore, *fakeLedger) {
	t.Helper()
	store := newMemStore()
	ledger := &fakeLedger{paid: map[work.Ref]bool{}}
	svc := NewService(store, ledger, nil)
	svc.now = func() time.Time { return time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC) }
	return svc, store, ledger
}

func createClient(t *testing.T, svc *Service) Client {
	t.Helper()
	c, err := svc.CreateClient(context.Background(), testShop, ClientProfile{Name: "Aster Weddings"})
	require.NoError(t, err)
	return c
}

func createOrder(t *testing.T, svc *Service, clientID string, total, received int64) Order {
	t.Helper()
	out, err := svc.CreateOrder(context.Background(), testShop, OrderInput{
		ClientID:        clientID,
		OrderName:       "LED wall",
		TotalAmount:     total,
		ReceivedPayment: received,
		Workers:         []Assignment{{UserID: uuid.NewString(), Payment: 5000}},
	})
	require.NoError(t, err)
	return out.Order
}

func createProject(t *testing.T, svc *Service, clientID string, total int64) EditingProject {
	t.Helper()
	out, err := svc.CreateProject(context.Background(), testShop, ProjectInput{
		ClientID:             clientID,
		EditorID:             uuid.NewString(),
		ProjectName:          "Highlight reel",
		EditingValue:         total,
		CommissionPercentage: 30,
		TotalAmount:          total,
	})
	require.NoError(t, err)
	return out.Project
}

func assertClientInvariant(t *testing.T, c Client) {
	t.Helper()
	assert.Equal(t, max(0, c.TotalPaymentsDue-c.ReceivedPayments), c.PendingPayments)
	assert.Equal(t, PaymentStatus(c.TotalPaymentsDue, c.ReceivedPayments), c.PaymentStatus)
}

func TestCreateOrderRefreshesClientAndAccrues(t *testing.T) {
	svc, store, ledger := newTestService(t)
	client := createClient(t, svc)

	out, err := svc.CreateOrder(context.Background(), testShop, OrderInput{
		ClientID:        client.ID,
		OrderName:       "Drone show",
		TotalAmount:     50000,
		ReceivedPayment: 10000,
	})
	require.NoError(t, err)
	assert.True(t, out.SalaryAccrued)
	assert.Equal(t, int64(40000), out.Order.RemainingPayment)
	assert.Equal(t, []work.Ref{out.Order.Ref()}, ledger.accrued)

	stored := store.clients[client.ID]
	assert.Equal(t, int64(50000), stored.TotalPaymentsDue)
	assert.Equal(t, int64(10000), stored.ReceivedPayments)
	assert.Equal(t, PaymentPartial, stored.PaymentStatus)
	assert.Equal(t, 1, stored.LifetimeOrders)
	assert.Equal(t, int64(50000), stored.LifetimeValue)
	assertClientInvariant(t, stored)
}

func TestCreateOrderValidation(t *testing.T) {
	svc, store, _ := newTestService(t)
	client := createClient(t, svc)
	ctx := context.Background()

	_, err := svc.CreateOrder(ctx, testShop, OrderInput{ClientID: client.ID, OrderName: "x", TotalAmount: 100, ReceivedPayment: 101})
	assert.ErrorIs(t, err, ErrAmountExceedsTotal)

	_, err = svc.CreateOrder(ctx, testShop, OrderInput{ClientID: client.ID, OrderName: "x", TotalAmount: -1})
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = svc.CreateOrder(ctx, testShop, OrderInput{ClientID: client.ID, OrderName: "x", TotalAmount: 10,
		Workers: []Assignment{{UserID: "", Payment: 5}}})
	assert.ErrorIs(t, err, ErrInvalidAssignment)

	_, err = svc.CreateOrder(ctx, "Other Shop", OrderInput{ClientID: client.ID, OrderName: "x", TotalAmount: 10})
	assert.ErrorIs(t, err, ErrClientNotFound)

	assert.Empty(t, store.orders)
}

func TestCreateOrderSurvivesAccrualFailure(t *testing.T) {
	svc, store, ledger := newTestService(t)
	ledger.accrueErr = errors.New("users table unavailable")
	client := createClient(t, svc)

	out, err := svc.CreateOrder(context.Background(), testShop, OrderInput{ClientID: client.ID, OrderName: "Cameras", TotalAmount: 8000})
	require.NoError(t, err)
	assert.False(t, out.SalaryAccrued)
	assert.Equal(t, "users table unavailable", out.AccrualError)
	assert.Contains(t, store.orders, out.Order.ID)
	assert.Equal(t, int64(8000), store.clients[client.ID].TotalPaymentsDue)
}

func TestCreateProjectComputesCommission(t *testing.T) {
	svc, store, _ := newTestService(t)
	client := createClient(t, svc)

	out, err := svc.CreateProject(context.Background(), testShop, ProjectInput{
		ClientID:             client.ID,
		EditorID:             uuid.NewString(),
		ProjectName:          "Sangeet edit",
		EditingValue:         12345,
		PendriveIncluded:     true,
		PendriveValue:        800,
		CommissionPercentage: 15,
		TotalAmount:          13145,
		ReceivedPayment:      3145,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1852), out.Project.CommissionAmount)
	assert.Equal(t, int64(10000), out.Project.RemainingPayment)
	assert.Equal(t, 1, store.clients[client.ID].LifetimeEditingProjects)

	_, err = svc.CreateProject(context.Background(), testShop, ProjectInput{ClientID: client.ID, ProjectName: "x", CommissionPercentage: 120})
	assert.ErrorIs(t, err, ErrInvalidPercentage)
}

func TestQuickPaymentAddPaymentSplitsAcrossWork(t *testing.T) {
	svc, _, _ := newTestService(t)
	client := createClient(t, svc)
	project := createProject(t, svc, client.ID, 4000)
	order := createOrder(t, svc, client.ID, 5000, 0)

	res, err := svc.QuickPayment(context.Background(), testShop, client.ID, ActionAddPayment, 7000)
	require.NoError(t, err)
	require.Len(t, res.Updated, 2)
	assert.Equal(t, order.Ref(), res.Updated[0].Ref)
	assert.Equal(t, int64(5000), res.Updated[0].ReceivedPayment)
	assert.Equal(t, int64(0), res.Updated[0].RemainingPayment)
	assert.Equal(t, project.Ref(), res.Updated[1].Ref)
	assert.Equal(t, int64(2000), res.Updated[1].ReceivedPayment)
	assert.Equal(t, int64(2000), res.Updated[1].RemainingPayment)

	assert.Equal(t, int64(9000), res.Client.TotalPaymentsDue)
	assert.Equal(t, int64(7000), res.Client.ReceivedPayments)
	assert.Equal(t, int64(2000), res.Client.PendingPayments)
	assert.Equal(t, PaymentPartial, res.Client.PaymentStatus)
}

func TestQuickPaymentMarkAllPaidThenClear(t *testing.T) {
	svc, store, _ := newTestService(t)
	client := createClient(t, svc)
	createOrder(t, svc, client.ID, 5000, 1000)
	createProject(t, svc, client.ID, 4000)
	ctx := context.Background()

	res, err := svc.QuickPayment(ctx, testShop, client.ID, ActionMarkAllPaid, 0)
	require.NoError(t, err)
	assert.Len(t, res.Updated, 2)
	assert.Equal(t, PaymentPaid, res.Client.PaymentStatus)
	assert.Equal(t, int64(0), res.Client.PendingPayments)
	for _, o := range store.orders {
		assert.Equal(t, int64(0), o.RemainingPayment)
	}

	res, err = svc.QuickPayment(ctx, testShop, client.ID, ActionClearPayments, 0)
	require.NoError(t, err)
	assert.Equal(t, PaymentPending, res.Client.PaymentStatus)
	assert.Equal(t, int64(9000), res.Client.PendingPayments)
	for _, p := range store.projects {
		assert.Equal(t, p.TotalAmount, p.RemainingPayment)
	}
}

func TestQuickPaymentRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService(t)
	client := createClient(t, svc)
	ctx := context.Background()

	_, err := svc.QuickPayment(ctx, testShop, client.ID, "refund", 10)
	assert.ErrorIs(t, err, ErrInvalidAction)
	_, err = svc.QuickPayment(ctx, testShop, client.ID, ActionAddPayment, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.QuickPayment(ctx, testShop, uuid.NewString(), ActionMarkAllPaid, 0)
	assert.ErrorIs(t, err, ErrClientNotFound)
}

func TestBulkPaymentCollectsPerItemFailures(t *testing.T) {
	svc, store, _ := newTestService(t)
	client := createClient(t, svc)
	other := createClient(t, svc)
	order := createOrder(t, svc, client.ID, 5000, 0)
	project := createProject(t, svc, client.ID, 4000)
	foreign := createOrder(t, svc, other.ID, 1000, 0)

	res, err := svc.BulkPayment(context.Background(), testShop, client.ID, []BulkItem{
		{WorkID: order.ID, WorkType: "order", Amount: 5000},
		{WorkID: project.ID, WorkType: "editing", Amount: 9000},
		{WorkID: uuid.NewString(), WorkType: "order", Amount: 10},
		{WorkID: foreign.ID, WorkType: "order", Amount: 10},
		{WorkID: project.ID, WorkType: "transport", Amount: 10},
		{WorkID: project.ID, WorkType: "project", Amount: 1500},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 6)
	assert.Equal(t, 2, res.Succeeded)
	assert.True(t, res.Results[0].Success)
	assert.Equal(t, ErrAmountExceedsTotal.Error(), res.Results[1].Error)
	assert.Equal(t, ErrOrderNotFound.Error(), res.Results[2].Error)
	assert.Equal(t, ErrWorkMismatch.Error(), res.Results[3].Error)
	assert.Equal(t, work.ErrInvalidKind.Error(), res.Results[4].Error)
	assert.True(t, res.Results[5].Success)

	require.NotNil(t, res.Client)
	assert.Equal(t, int64(6500), res.Client.ReceivedPayments)
	assert.Equal(t, int64(2500), res.Client.PendingPayments)
	assert.Equal(t, int64(0), store.orders[foreign.ID].ReceivedPayment)
	assertClientInvariant(t, *res.Client)
}

func TestBulkPaymentMalformedItemDoesNotSinkBatch(t *testing.T) {
	svc, store, _ := newTestService(t)
	client := createClient(t, svc)
	order := createOrder(t, svc, client.ID, 3000, 0)

	res, err := svc.BulkPayment(context.Background(), testShop, client.ID, []BulkItem{
		{WorkID: order.ID, WorkType: "order", Amount: 1200},
		{WorkID: "", WorkType: "order", Amount: 10},
		{WorkID: "not-a-uuid", WorkType: "project", Amount: 10},
		{WorkID: uuid.NewString(), WorkType: "", Amount: 10},
	})
	require.NoError(t, err)
	require.Len(t, res.Results, 4)
	assert.Equal(t, 1, res.Succeeded)
	assert.True(t, res.Results[0].Success)
	assert.Equal(t, ErrInvalidWorkID.Error(), res.Results[1].Error)
	assert.Equal(t, ErrInvalidWorkID.Error(), res.Results[2].Error)
	assert.Equal(t, work.ErrInvalidKind.Error(), res.Results[3].Error)

	require.NotNil(t, res.Client)
	assert.Equal(t, int64(1200), res.Client.ReceivedPayments)
	assert.Equal(t, int64(1200), store.orders[order.ID].ReceivedPayment)
	assertClientInvariant(t, *res.Client)
}

func TestBulkPaymentEmptyBatch(t *testing.T) {
	svc, _, _ := newTestService(t)
	client := createClient(t, svc)
	_, err := svc.BulkPayment(context.Background(), testShop, client.ID, nil)
	assert.ErrorIs(t, err, ErrEmptyBatch)
}

func TestBulkPaymentAllFailedSkipsRecompute(t *testing.T) {
	svc, _, _ := newTestService(t)
	client := createClient(t, svc)
	res, err := svc.BulkPayment(context.Background(), testShop, client.ID, []BulkItem{{WorkID: uuid.NewString(), WorkType: "order", Amount: 1}})
	require.NoError(t, err)
	assert.Zero(t, res.Succeeded)
	assert.Nil(t, res.Client)
}

func TestSetWorkPayment(t *testing.T) {
	svc, _, _ := newTestService(t)
	client := createClient(t, svc)
	order := createOrder(t, svc, client.ID, 5000, 0)
	ctx := context.Background()

	_, err := svc.SetWorkPayment(ctx, testShop, order.Ref(), 6000)
	assert.ErrorIs(t, err, ErrAmountExceedsTotal)
	_, err = svc.SetWorkPayment(ctx, testShop, order.Ref(), -5)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	res, err := svc.SetWorkPayment(ctx, testShop, order.Ref(), 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(0), res.Item.RemainingPayment)
	assert.Equal(t, PaymentPaid, res.Client.PaymentStatus)
}

func TestRecordAndDeletePaymentStayConsistentWithRecompute(t *testing.T) {
	svc, store, _ := newTestService(t)
	client := createClient(t, svc)
	order := createOrder(t, svc, client.ID, 5000, 0)
	ctx := context.Background()

	applied, err := svc.RecordPayment(ctx, testShop, PaymentInput{OrderID: order.ID, ClientID: client.ID, Amount: 2000})
	require.NoError(t, err)
	assert.Equal(t, "cash", applied.Payment.PaymentMethod)
	assert.Equal(t, int64(2000), applied.Order.ReceivedPayment)
	assert.Equal(t, int64(3000), applied.Order.RemainingPayment)
	assert.Equal(t, int64(2000), applied.Client.ReceivedPayments)
	assert.Equal(t, int64(3000), applied.Client.PendingPayments)
	assert.Equal(t, PaymentPartial, applied.Client.PaymentStatus)

	incremental := store.clients[client.ID]
	recomputed, err := svc.RecomputeClientTotals(ctx, testShop, client.ID)
	require.NoError(t, err)
	assert.Equal(t, incremental.Totals(), recomputed.Totals())

	_, err = svc.RecordPayment(ctx, testShop, PaymentInput{OrderID: order.ID, ClientID: client.ID, Amount: 3001})
	assert.ErrorIs(t, err, ErrAmountExceedsTotal)
	assert.Len(t, store.payments, 1)

	reversed, err := svc.DeletePayment(ctx, testShop, applied.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reversed.Order.ReceivedPayment)
	assert.Equal(t, int64(5000), reversed.Order.RemainingPayment)
	assert.Equal(t, int64(0), reversed.Client.ReceivedPayments)
	assert.Equal(t, PaymentPending, reversed.Client.PaymentStatus)
	assert.Empty(t, store.payments)
}

func TestRecordPaymentValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	client := createClient(t, svc)
	other := createClient(t, svc)
	order := createOrder(t, svc, client.ID, 5000, 0)
	ctx := context.Background()

	_, err := svc.RecordPayment(ctx, testShop, PaymentInput{OrderID: order.ID, ClientID: client.ID, Amount: 0})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = svc.RecordPayment(ctx, testShop, PaymentInput{OrderID: order.ID, ClientID: client.ID, Amount: 10, PaymentMethod: "barter"})
	assert.ErrorIs(t, err, ErrInvalidMethod)
	_, err = svc.RecordPayment(ctx, testShop, PaymentInput{OrderID: order.ID, ClientID: other.ID, Amount: 10})
	assert.ErrorIs(t, err, ErrWorkMismatch)
	_, err = svc.RecordPayment(ctx, testShop, PaymentInput{OrderID: uuid.NewString(), ClientID: client.ID, Amount: 10})
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestDeletePaymentClampsAtZero(t *testing.T) {
	svc, store, _ := newTestService(t)
	client := createClient(t, svc)
	order := createOrder(t, svc, client.ID, 5000, 0)
	ctx := context.Background()

	applied, err := svc.RecordPayment(ctx, testShop, PaymentInput{OrderID: order.ID, ClientID: client.ID, Amount: 2000})
	require.NoError(t, err)

	// A manual override lowered the client's received amount below the payment.
	_, err = svc.AdjustClientPayment(ctx, testShop, client.ID, 500, "correction", "")
	require.NoError(t, err)
	o := store.orders[order.ID]
	o.ReceivedPayment = 1000
	o.Normalize()
	store.orders[order.ID] = o

	reversed, err := svc.DeletePayment(ctx, testShop, applied.Payment.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), reversed.Order.ReceivedPayment)
	assert.Equal(t, int64(5000), reversed.Order.RemainingPayment)
	assert.Equal(t, int64(0), reversed.Client.ReceivedPayments)
	assert.Equal(t, int64(5000), reversed.Client.PendingPayments)
}

func TestConcurrentPaymentsNeverOverpay(t *testing.T) {
	svc, store, _ := newTestService(t)
	client := createClient(t, svc)
	order := createOrder(t, svc, client.ID, 1000, 0)

	var wg sync.WaitGroup
	var mu sync.Mutex
	succeeded := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.RecordPayment(context.Background(), testShop, PaymentInput{OrderID: order.ID, ClientID: client.ID, Amount: 100})
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, succeeded)
	assert.Equal(t, int64(1000), store.orders[order.ID].ReceivedPayment)
	assert.Equal(t, int64(1000), store.clients[client.ID].ReceivedPayments)
	assert.Equal(t, PaymentPaid, store.clients[client.ID].PaymentStatus)
}

func TestDeleteOrderReversesClientAggregates(t *testing.T) {
	svc, store, ledger := newTestService(t)
	client := createClient(t, svc)
	keep := createOrder(t, svc, client.ID, 20000, 5000)
	drop := createOrder(t, svc, client.ID, 50000, 10000)

	before := store.clients[client.ID]
	require.Equal(t, int64(70000), before.TotalPaymentsDue)
	require.Equal(t, int64(55000), before.PendingPayments)

	deleted, err := svc.DeleteWork(context.Background(), testShop, drop.Ref())
	require.NoError(t, err)
	assert.Equal(t, drop.ID, deleted.Ref.ID)
	assert.Equal(t, []work.Ref{drop.Ref()}, ledger.reversed)

	after := store.clients[client.ID]
	assert.Equal(t, before.TotalPaymentsDue-drop.TotalAmount, after.TotalPaymentsDue)
	assert.Equal(t, before.PendingPayments-drop.RemainingPayment, after.PendingPayments)
	assert.Equal(t, 1, after.LifetimeOrders)
	assert.Equal(t, keep.TotalAmount, after.LifetimeValue)
	assertClientInvariant(t, after)
	assert.NotContains(t, store.orders, drop.ID)
}

func TestDeleteWorkWithPaidSalaryIsRefused(t *testing.T) {
	svc, store, ledger := newTestService(t)
	client := createClient(t, svc)
	project := createProject(t, svc, client.ID, 4000)
	ledger.paid[project.Ref()] = true

	_, err := svc.DeleteWork(context.Background(), testShop, project.Ref())
	assert.ErrorIs(t, err, ErrWorkHasPaidSalary)
	assert.Contains(t, store.projects, project.ID)
	assert.Empty(t, ledger.reversed)
	assert.Equal(t, int64(4000), store.clients[client.ID].TotalPaymentsDue)
}

func TestAdjustClientPaymentAppendsHistory(t *testing.T) {
	svc, _, _ := newTestService(t)
	client := createClient(t, svc)
	createOrder(t, svc, client.ID, 5000, 1000)
	ctx := context.Background()
	actor := uuid.NewString()

	_, err := svc.AdjustClientPayment(ctx, testShop, client.ID, 6000, "", actor)
	assert.ErrorIs(t, err, ErrAmountExceedsTotal)

	updated, err := svc.AdjustClientPayment(ctx, testShop, client.ID, 5000, " settled in cash ", actor)
	require.NoError(t, err)
	assert.Equal(t, PaymentPaid, updated.PaymentStatus)
	assert.Equal(t, int64(0), updated.PendingPayments)
	require.Len(t, updated.PaymentHistory, 1)
	assert.Equal(t, PaymentHistoryEntry{
		Amount:         5000,
		PreviousAmount: 1000,
		Notes:          "settled in cash",
		UpdatedBy:      actor,
		UpdatedAt:      svc.now(),
	}, updated.PaymentHistory[0])
}

func TestUpdateWorkStatus(t *testing.T) {
	svc, _, _ := newTestService(t)
	client := createClient(t, svc)
	order := createOrder(t, svc, client.ID, 5000, 0)
	ctx := context.Background()

	_, err := svc.UpdateWorkStatus(ctx, testShop, order.Ref(), "shipped")
	assert.ErrorIs(t, err, ErrInvalidStatus)

	item, err := svc.UpdateWorkStatus(ctx, testShop, order.Ref(), StatusCompleted)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, item.Status)
	require.NotNil(t, item.CompletionDate)
	assert.Equal(t, svc.now(), *item.CompletionDate)

	item, err = svc.UpdateWorkStatus(ctx, testShop, order.Ref(), StatusInProgress)
	require.NoError(t, err)
	assert.Nil(t, item.CompletionDate)
}

func TestWorkHistoryListsOrdersFirst(t *testing.T) {
	svc, _, _ := newTestService(t)
	client := createClient(t, svc)
	createProject(t, svc, client.ID, 4000)
	createOrder(t, svc, client.ID, 5000, 0)

	history, err := svc.WorkHistory(context.Background(), testShop, client.ID)
	require.NoError(t, err)
	require.Len(t, history.Items, 2)
	assert.Equal(t, work.KindOrder, history.Items[0].Ref.Kind)
	assert.Equal(t, work.KindProject, history.Items[1].Ref.Kind)
	assert.Equal(t, int64(9000), history.Computed.Due)
}

func TestRemainingInvariantAfterEveryMutation(t *testing.T) {
	svc, store, _ := newTestService(t)
	client := createClient(t, svc)
	order := createOrder(t, svc, client.ID, 5000, 0)
	project := createProject(t, svc, client.ID, 4000)
	ctx := context.Background()

	check := func() {
		for _, o := range store.orders {
			assert.Equal(t, o.TotalAmount-o.ReceivedPayment, o.RemainingPayment)
		}
		for _, p := range store.projects {
			assert.Equal(t, p.TotalAmount-p.ReceivedPayment, p.RemainingPayment)
			assert.Equal(t, Commission(p.EditingValue, p.CommissionPercentage), p.CommissionAmount)
		}
		assertClientInvariant(t, store.clients[client.ID])
	}

	_, err := svc.QuickPayment(ctx, testShop, client.ID, ActionAddPayment, 6000)
	require.NoError(t, err)
	check()
	_, err = svc.SetWorkPayment(ctx, testShop, project.Ref(), 100)
	require.NoError(t, err)
	check()
	_, err = svc.BulkPayment(ctx, testShop, client.ID, []BulkItem{{WorkID: order.ID, WorkType: "order", Amount: 10}})
	require.NoError(t, err)
	check()
	_, err = svc.QuickPayment(ctx, testShop, client.ID, ActionClearPayments, 0)
	require.NoError(t, err)
	check()
}
