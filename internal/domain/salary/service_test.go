package salary

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopledger/internal/domain/billing"
	"shopledger/internal/domain/work"
)

const testShop = "Lumen Events"

type fixture struct {
	store    *memStore
	works    *fakeWorks
	notifier *fakeNotifier
	svc      *Service
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	store := newMemStore()
	works := &fakeWorks{}
	notifier := &fakeNotifier{}
	svc := NewService(store, works, notifier, nil, "₹")
	svc.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	return fixture{store: store, works: works, notifier: notifier, svc: svc}
}

func testOrder(workers ...billing.Assignment) billing.Order {
	o := billing.Order{
		ID:          uuid.NewString(),
		ShopName:    testShop,
		ClientID:    uuid.NewString(),
		OrderName:   "Wedding LED wall",
		OrderDate:   time.Date(2026, 2, 14, 0, 0, 0, 0, time.UTC),
		TotalAmount: 50000,
		Workers:     workers,
	}
	o.Normalize()
	return o
}

func employee(t *testing.T, f fixture, id string) Employee {
	t.Helper()
	e, err := f.store.GetEmployee(context.Background(), testShop, id)
	require.NoError(t, err)
	return e
}

func assertConsistent(t *testing.T, f fixture, id string) {
	t.Helper()
	e := employee(t, f, id)
	entries, err := f.store.ListEntries(context.Background(), testShop, EntryFilter{EmployeeID: id})
	require.NoError(t, err)
	assert.Equal(t, SumEntries(entries), e.Earnings)
	assert.Equal(t, e.Earnings.TotalEarnings-e.Earnings.PaidSalary, e.Earnings.RemainingSalary)
}

func TestOrderAccrualAndSettlement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w1 := f.store.addEmployee(testShop, "Asha")
	w2 := f.store.addEmployee(testShop, "Ravi")

	order := testOrder(
		billing.Assignment{UserID: w1.ID, Payment: 5000},
		billing.Assignment{UserID: w2.ID, Payment: 3000},
	)
	require.NoError(t, f.svc.AccrueForOrder(ctx, order))

	ref := order.Ref()
	entries, err := f.svc.List(ctx, testShop, EntryFilter{Work: &ref})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.False(t, e.IsPaid)
		assert.Equal(t, TypeOrderWork, e.Type)
		assert.Equal(t, "Order work: Wedding LED wall", e.Description)
		assert.Equal(t, order.OrderDate, e.WorkDate)
	}
	assert.Equal(t, int64(5000), employee(t, f, w1.ID).Earnings.RemainingSalary)
	assert.Equal(t, int64(3000), employee(t, f, w2.ID).Earnings.RemainingSalary)

	s1, err := f.svc.Pay(ctx, testShop, w1.ID, 5000)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), s1.Allocated)
	assert.Nil(t, s1.Split)
	require.Len(t, s1.Paid, 1)
	assert.Zero(t, employee(t, f, w1.ID).Earnings.RemainingSalary)

	s2, err := f.svc.Pay(ctx, testShop, w2.ID, 2000)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), s2.Allocated)
	require.Len(t, s2.Paid, 1)
	assert.Equal(t, int64(2000), s2.Paid[0].Amount)
	assert.True(t, s2.Paid[0].IsPaid)
	assert.Equal(t, "Partial payment: Order work: Wedding LED wall", s2.Paid[0].Description)
	assert.Equal(t, &ref, s2.Paid[0].Work)
	require.NotNil(t, s2.Split)
	assert.Equal(t, int64(1000), s2.Split.Amount)

	rest, err := f.svc.List(ctx, testShop, EntryFilter{EmployeeID: w2.ID, UnpaidOnly: true})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, int64(1000), rest[0].Amount)

	e2 := employee(t, f, w2.ID)
	assert.Equal(t, Earnings{TotalEarnings: 3000, PaidSalary: 2000, RemainingSalary: 1000}, e2.Earnings)
	assertConsistent(t, f, w1.ID)
	assertConsistent(t, f, w2.ID)

	require.Len(t, f.notifier.sent, 2)
	assert.Equal(t, "Salary of ₹2000 has been paid. Please collect it.", f.notifier.sent[1].body)
	assert.Equal(t, NotificationType, f.notifier.sent[1].ntype)
}

func TestPayConservation(t *testing.T) {
	ctx := context.Background()

	t.Run("amount within outstanding", func(t *testing.T) {
		f := newFixture(t)
		w := f.store.addEmployee(testShop, "Meera")
		for _, amt := range []int64{1200, 800, 3000} {
			_, err := f.svc.CreateManualEntry(ctx, testShop, ManualEntryInput{EmployeeID: w.ID, Amount: amt, Type: TypeBonus})
			require.NoError(t, err)
		}
		before := employee(t, f, w.ID).Earnings.RemainingSalary

		s, err := f.svc.Pay(ctx, testShop, w.ID, 2500)
		require.NoError(t, err)
		assert.Equal(t, int64(2500), s.Allocated)
		assert.Zero(t, s.Unallocated)

		var paid int64
		splits := 0
		for _, e := range s.Paid {
			paid += e.Amount
		}
		if s.Split != nil {
			splits++
		}
		assert.Equal(t, int64(2500), paid)
		assert.LessOrEqual(t, splits, 1)
		assert.Equal(t, before-2500, employee(t, f, w.ID).Earnings.RemainingSalary)
		assertConsistent(t, f, w.ID)
	})

	t.Run("amount above outstanding", func(t *testing.T) {
		f := newFixture(t)
		w := f.store.addEmployee(testShop, "Kiran")
		for _, amt := range []int64{700, 300} {
			_, err := f.svc.CreateManualEntry(ctx, testShop, ManualEntryInput{EmployeeID: w.ID, Amount: amt, Type: TypeCommission})
			require.NoError(t, err)
		}

		s, err := f.svc.Pay(ctx, testShop, w.ID, 5000)
		require.NoError(t, err)
		assert.Equal(t, int64(1000), s.Allocated)
		assert.Equal(t, int64(4000), s.Unallocated)
		assert.Nil(t, s.Split)

		left, err := f.svc.List(ctx, testShop, EntryFilter{EmployeeID: w.ID, UnpaidOnly: true})
		require.NoError(t, err)
		assert.Empty(t, left)
		assert.Zero(t, employee(t, f, w.ID).Earnings.RemainingSalary)
	})

	t.Run("nothing outstanding sends no notification", func(t *testing.T) {
		f := newFixture(t)
		w := f.store.addEmployee(testShop, "Dev")
		s, err := f.svc.Pay(ctx, testShop, w.ID, 100)
		require.NoError(t, err)
		assert.Zero(t, s.Allocated)
		assert.Empty(t, f.notifier.sent)
	})
}

func TestPayValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.store.addEmployee(testShop, "Nila")

	_, err := f.svc.Pay(ctx, testShop, w.ID, 0)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.Pay(ctx, testShop, w.ID, -10)
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.Pay(ctx, testShop, uuid.NewString(), 100)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
	_, err = f.svc.Pay(ctx, "Other Shop", w.ID, 100)
	assert.ErrorIs(t, err, ErrEmployeeNotFound)
}

func TestPayOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.store.addEmployee(testShop, "Arun")
	first, err := f.svc.CreateManualEntry(ctx, testShop, ManualEntryInput{EmployeeID: w.ID, Amount: 400, Type: TypeBonus})
	require.NoError(t, err)
	second, err := f.svc.CreateManualEntry(ctx, testShop, ManualEntryInput{EmployeeID: w.ID, Amount: 600, Type: TypeBonus})
	require.NoError(t, err)

	paid, earnings, err := f.svc.PayOne(ctx, testShop, second.ID)
	require.NoError(t, err)
	assert.True(t, paid.IsPaid)
	assert.NotNil(t, paid.PaidDate)
	assert.Equal(t, Earnings{TotalEarnings: 1000, PaidSalary: 600, RemainingSalary: 400}, earnings)

	left, err := f.svc.List(ctx, testShop, EntryFilter{EmployeeID: w.ID, UnpaidOnly: true})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, first.ID, left[0].ID)

	_, _, err = f.svc.PayOne(ctx, testShop, second.ID)
	assert.ErrorIs(t, err, ErrAlreadyPaid)
	_, _, err = f.svc.PayOne(ctx, testShop, uuid.NewString())
	assert.ErrorIs(t, err, ErrEntryNotFound)
	assertConsistent(t, f, w.ID)
}

func TestProjectAccrual(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	editor := f.store.addEmployee(testShop, "Zoya")

	project := billing.EditingProject{
		ID:                   uuid.NewString(),
		ShopName:             testShop,
		EditorID:             editor.ID,
		ProjectName:          "Reception highlights",
		StartDate:            time.Date(2026, 2, 20, 0, 0, 0, 0, time.UTC),
		EditingValue:         12345,
		PendriveIncluded:     true,
		PendriveValue:        800,
		CommissionPercentage: 10,
		TotalAmount:          13145,
	}
	require.NoError(t, f.svc.AccrueForProject(ctx, project))

	entries, err := f.svc.List(ctx, testShop, EntryFilter{EmployeeID: editor.ID})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, int64(1235), entries[0].Amount)
	assert.Equal(t, TypeEditingWork, entries[0].Type)
	assert.Equal(t, "Editing project: Reception highlights", entries[0].Description)
	assert.Equal(t, project.StartDate, entries[0].WorkDate)

	t.Run("no editor or no commission accrues nothing", func(t *testing.T) {
		p := project
		p.ID = uuid.NewString()
		p.CommissionPercentage = 0
		require.NoError(t, f.svc.AccrueForProject(ctx, p))
		p.EditorID = ""
		p.CommissionPercentage = 10
		require.NoError(t, f.svc.AccrueForProject(ctx, p))
		all, err := f.svc.List(ctx, testShop, EntryFilter{})
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})
}

func TestOrderAccrualsCombinesRepeatedAssignments(t *testing.T) {
	user := uuid.NewString()
	order := testOrder(
		billing.Assignment{UserID: user, Payment: 1000},
		billing.Assignment{UserID: user, Payment: 500},
		billing.Assignment{UserID: uuid.NewString(), Payment: 0},
	)
	order.Transporters = []billing.Assignment{{UserID: user, Payment: 300}}

	entries := OrderAccruals(order)
	require.Len(t, entries, 2)
	assert.Equal(t, TypeOrderWork, entries[0].Type)
	assert.Equal(t, int64(1500), entries[0].Amount)
	assert.Equal(t, TypeTransportWork, entries[1].Type)
	assert.Equal(t, "Transport work: Wedding LED wall", entries[1].Description)
}

func TestAccrueIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.store.addEmployee(testShop, "Isha")
	order := testOrder(billing.Assignment{UserID: w.ID, Payment: 2500})

	require.NoError(t, f.svc.AccrueForOrder(ctx, order))
	require.NoError(t, f.svc.AccrueForOrder(ctx, order))

	entries, err := f.svc.List(ctx, testShop, EntryFilter{EmployeeID: w.ID})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Equal(t, int64(2500), employee(t, f, w.ID).Earnings.TotalEarnings)
}

func TestSyncIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w1 := f.store.addEmployee(testShop, "Asha")
	w2 := f.store.addEmployee(testShop, "Ravi")
	ed := f.store.addEmployee(testShop, "Zoya")

	order := testOrder(billing.Assignment{UserID: w1.ID, Payment: 5000})
	order.Transporters = []billing.Assignment{{UserID: w2.ID, Payment: 700}}
	f.works.orders = []billing.Order{order}
	f.works.projects = []billing.EditingProject{{
		ID: uuid.NewString(), ShopName: testShop, EditorID: ed.ID, ProjectName: "Teaser",
		EditingValue: 10000, CommissionPercentage: 15, TotalAmount: 10000,
	}}

	first, err := f.svc.Sync(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, 2, first.Scanned)
	assert.Equal(t, 3, first.Created)
	assert.Equal(t, 3, first.UsersRecomputed)
	assert.Empty(t, first.Failures)

	second, err := f.svc.Sync(ctx, testShop)
	require.NoError(t, err)
	assert.Zero(t, second.Created)

	all, err := f.svc.List(ctx, testShop, EntryFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)
	assert.Equal(t, int64(1500), employee(t, f, ed.ID).Earnings.RemainingSalary)
	for _, id := range []string{w1.ID, w2.ID, ed.ID} {
		assertConsistent(t, f, id)
	}
}

func TestSyncRecoversFailedAccrual(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w1 := f.store.addEmployee(testShop, "Asha")
	w2 := f.store.addEmployee(testShop, "Ravi")
	order := testOrder(
		billing.Assignment{UserID: w1.ID, Payment: 5000},
		billing.Assignment{UserID: w2.ID, Payment: 3000},
	)
	f.works.orders = []billing.Order{order}

	f.store.failCreateFor = w2.ID
	err := f.svc.AccrueForOrder(ctx, order)
	require.ErrorIs(t, err, errInjected)

	// The failed accrual rolled back as a unit.
	all, err := f.svc.List(ctx, testShop, EntryFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, employee(t, f, w1.ID).Earnings.TotalEarnings)

	summary, err := f.svc.Sync(ctx, testShop)
	require.NoError(t, err)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, work.Order(order.ID), summary.Failures[0].Work)

	f.store.failCreateFor = ""
	summary, err = f.svc.Sync(ctx, testShop)
	require.NoError(t, err)
	assert.Empty(t, summary.Failures)
	assert.Equal(t, 2, summary.Created)
	assert.Equal(t, int64(5000), employee(t, f, w1.ID).Earnings.RemainingSalary)
	assert.Equal(t, int64(3000), employee(t, f, w2.ID).Earnings.RemainingSalary)
}

func TestSyncRepairsDriftedEarnings(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.store.addEmployee(testShop, "Asha")
	_, err := f.svc.CreateManualEntry(ctx, testShop, ManualEntryInput{EmployeeID: w.ID, Amount: 900, Type: TypeBonus})
	require.NoError(t, err)
	require.NoError(t, f.store.SaveEarnings(ctx, w.ID, Earnings{TotalEarnings: 5, PaidSalary: 7, RemainingSalary: -2}))

	_, err = f.svc.Sync(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, Earnings{TotalEarnings: 900, RemainingSalary: 900}, employee(t, f, w.ID).Earnings)
}

func TestReverseForWork(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w1 := f.store.addEmployee(testShop, "Asha")
	w2 := f.store.addEmployee(testShop, "Ravi")
	keep := testOrder(billing.Assignment{UserID: w1.ID, Payment: 1000})
	gone := testOrder(
		billing.Assignment{UserID: w1.ID, Payment: 5000},
		billing.Assignment{UserID: w2.ID, Payment: 3000},
	)
	require.NoError(t, f.svc.AccrueForOrder(ctx, keep))
	require.NoError(t, f.svc.AccrueForOrder(ctx, gone))
	assert.Equal(t, int64(6000), employee(t, f, w1.ID).Earnings.TotalEarnings)

	paid, err := f.svc.HasPaidEntries(ctx, testShop, gone.Ref())
	require.NoError(t, err)
	assert.False(t, paid)

	require.NoError(t, f.svc.ReverseForWork(ctx, testShop, gone.Ref()))

	assert.Equal(t, Earnings{TotalEarnings: 1000, RemainingSalary: 1000}, employee(t, f, w1.ID).Earnings)
	assert.Equal(t, Earnings{}, employee(t, f, w2.ID).Earnings)
	ref := gone.Ref()
	left, err := f.svc.List(ctx, testShop, EntryFilter{Work: &ref})
	require.NoError(t, err)
	assert.Empty(t, left)

	t.Run("paid entries are reported", func(t *testing.T) {
		_, err := f.svc.Pay(ctx, testShop, w1.ID, 400)
		require.NoError(t, err)
		paid, err := f.svc.HasPaidEntries(ctx, testShop, keep.Ref())
		require.NoError(t, err)
		assert.True(t, paid)
	})
}

func TestReverseForWorkRefusesEntryPaidAfterCheck(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.store.addEmployee(testShop, "Meera")
	order := testOrder(billing.Assignment{UserID: w.ID, Payment: 2500})
	require.NoError(t, f.svc.AccrueForOrder(ctx, order))

	paid, err := f.svc.HasPaidEntries(ctx, testShop, order.Ref())
	require.NoError(t, err)
	require.False(t, paid)

	// A settlement lands between the delete guard and the reversal.
	_, err = f.svc.Pay(ctx, testShop, w.ID, 2500)
	require.NoError(t, err)

	err = f.svc.ReverseForWork(ctx, testShop, order.Ref())
	assert.ErrorIs(t, err, billing.ErrWorkHasPaidSalary)

	ref := order.Ref()
	left, err := f.svc.List(ctx, testShop, EntryFilter{Work: &ref})
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.True(t, left[0].IsPaid)
	assert.Equal(t, Earnings{TotalEarnings: 2500, PaidSalary: 2500}, employee(t, f, w.ID).Earnings)
	assertConsistent(t, f, w.ID)
}

func TestCreateManualEntryValidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.store.addEmployee(testShop, "Asha")

	_, err := f.svc.CreateManualEntry(ctx, testShop, ManualEntryInput{EmployeeID: w.ID, Amount: 0, Type: TypeBonus})
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = f.svc.CreateManualEntry(ctx, testShop, ManualEntryInput{EmployeeID: w.ID, Amount: 10, Type: "tip"})
	assert.ErrorIs(t, err, ErrInvalidType)
	_, err = f.svc.CreateManualEntry(ctx, testShop, ManualEntryInput{EmployeeID: uuid.NewString(), Amount: 10, Type: TypeBonus})
	assert.ErrorIs(t, err, ErrEmployeeNotFound)

	e, err := f.svc.CreateManualEntry(ctx, testShop, ManualEntryInput{EmployeeID: w.ID, Amount: 10, Type: TypeBonus})
	require.NoError(t, err)
	assert.Equal(t, f.svc.now(), e.WorkDate)
}

func TestConcurrentPayDoesNotDoubleAllocate(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.store.addEmployee(testShop, "Asha")
	for i := 0; i < 4; i++ {
		_, err := f.svc.CreateManualEntry(ctx, testShop, ManualEntryInput{EmployeeID: w.ID, Amount: 1000, Type: TypeBonus})
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	results := make([]Settlement, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := f.svc.Pay(ctx, testShop, w.ID, 700)
			assert.NoError(t, err)
			results[i] = s
		}(i)
	}
	wg.Wait()

	var total int64
	for _, s := range results {
		total += s.Allocated
	}
	assert.Equal(t, int64(4000), total)
	assert.Equal(t, Earnings{TotalEarnings: 4000, PaidSalary: 4000}, employee(t, f, w.ID).Earnings)
}

func TestSummaryAndExports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	w := f.store.addEmployee(testShop, "Asha")
	require.NoError(t, f.svc.AccrueForOrder(ctx, testOrder(billing.Assignment{UserID: w.ID, Payment: 5000})))
	_, err := f.svc.Pay(ctx, testShop, w.ID, 1500)
	require.NoError(t, err)

	summary, err := f.svc.Summary(ctx, testShop, w.ID)
	require.NoError(t, err)
	assert.Equal(t, Earnings{TotalEarnings: 5000, PaidSalary: 1500, RemainingSalary: 3500}, summary.Derived)
	assert.Len(t, summary.Entries, 2)

	pdf, err := f.svc.Statement(ctx, testShop, w.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))

	xlsx, err := f.svc.Register(ctx, testShop)
	require.NoError(t, err)
	assert.Equal(t, "PK", string(xlsx[:2]))

	_, err = f.svc.Summary(ctx, testShop, uuid.NewString())
	assert.True(t, IsNotFound(err))
}

func TestPDFCurrency(t *testing.T) {
	assert.Equal(t, "Rs. ", pdfCurrency("₹"))
	assert.Equal(t, "$", pdfCurrency("$"))
	assert.Equal(t, "", pdfCurrency("₩"))
}
