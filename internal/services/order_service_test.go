package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bakery_tracker/internal/models"
	"bakery_tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPIN = "00"

type recordingFeed struct {
	mu     sync.Mutex
	events []models.OrderEvent
}

func (f *recordingFeed) PublishOrderEvent(ctx context.Context, event models.OrderEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *recordingFeed) types() []models.OrderEventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.OrderEventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.Type)
	}
	return out
}

type mapCache struct {
	lists       map[string][]models.Order
	invalidated int
}

func (c *mapCache) GetOrderList(ctx context.Context, key string) ([]models.Order, bool) {
	orders, ok := c.lists[key]
	return orders, ok
}

func (c *mapCache) SetOrderList(ctx context.Context, key string, orders []models.Order) error {
	c.lists[key] = orders
	return nil
}

func (c *mapCache) InvalidateOrderLists(ctx context.Context) error {
	c.lists = make(map[string][]models.Order)
	c.invalidated++
	return nil
}

type fixture struct {
	svc      OrderService
	catalog  CatalogService
	orders   *repository.MemoryOrders
	feed     *recordingFeed
	cache    *mapCache
	products repository.ProductRepository
}

func setup(t *testing.T, gated ...Action) *fixture {
	t.Helper()
	if len(gated) == 0 {
		gated = DefaultGatedActions
	}
	store := repository.NewMemoryStore()
	orders := repository.NewMemoryOrders(store)
	products := repository.NewMemoryProducts(store)
	ctx := context.Background()
	for _, p := range []models.Product{
		{Name: "pan", UnitPrice: decimal.RequireFromString("5.00"), IsActive: true},
		{Name: "pastel", UnitPrice: decimal.RequireFromString("20.00"), IsActive: true},
	} {
		p := p
		require.NoError(t, products.Create(ctx, &p))
	}

	auth, err := NewPINAuthorizer(testPIN, gated)
	require.NoError(t, err)

	feed := &recordingFeed{}
	cache := &mapCache{lists: make(map[string][]models.Order)}
	clock := func() time.Time { return time.Date(2024, time.May, 3, 9, 15, 0, 0, time.UTC) }
	svc := NewOrderService(orders, products, auth,
		WithFeed(feed), WithCache(cache), WithClock(clock), WithLocation(time.UTC))

	return &fixture{
		svc:      svc,
		catalog:  NewCatalogService(products),
		orders:   orders,
		feed:     feed,
		cache:    cache,
		products: products,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "expected %s, got %s", want, got)
}

func assertInvariants(t *testing.T, o *models.Order) {
	t.Helper()
	assert.Equal(t, o.PaymentState == models.PaymentPaid, o.FullyPaid, "fully-paid flag out of sync")
	switch o.PaymentState {
	case models.PaymentUnpaid:
		assert.True(t, o.AmountPaid.IsZero(), "unpaid order carries %s", o.AmountPaid)
	case models.PaymentPaid:
		assert.True(t, o.AmountPaid.GreaterThanOrEqual(o.TotalAmount))
	}
}

func panAndPastel(method, advance string) OrderEntry {
	return OrderEntry{
		CustomerName: "  Doña Marta ",
		Note:         " sin azúcar ",
		Lines: []LineSelection{
			{ProductName: "pan", Quantity: 2},
			{ProductName: "pastel", Quantity: 1},
		},
		PaymentMethod: method,
		AdvanceAmount: advance,
	}
}

func TestCreateOrder_WithAdvance(t *testing.T) {
	f := setup(t)
	o, err := f.svc.CreateOrder(context.Background(), panAndPastel("anticipo", "10"))
	require.NoError(t, err)

	assert.Equal(t, int64(1), o.Sequence)
	assert.Equal(t, "Doña Marta", o.CustomerName)
	assert.Equal(t, "sin azúcar", o.Note)
	assertAmount(t, "30", o.TotalAmount)
	assertAmount(t, "10", o.AmountPaid)
	assertAmount(t, "20", o.Balance())
	assert.Equal(t, models.PaymentPartial, o.PaymentState)
	assert.False(t, o.FullyPaid)
	assert.False(t, o.Delivered)
	assert.Equal(t, "03/05 09:15", o.DisplayDate)
	require.Len(t, o.Items, 2)
	for _, item := range o.Items {
		assert.False(t, item.Delivered)
	}
	assert.Equal(t, []models.OrderEventType{models.OrderCreated}, f.feed.types())
}

func TestCreateOrder_PaymentMethods(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	unpaid, err := f.svc.CreateOrder(ctx, panAndPastel("", ""))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentUnpaid, unpaid.PaymentState)
	assert.True(t, unpaid.AmountPaid.IsZero())
	assertInvariants(t, unpaid)

	paid, err := f.svc.CreateOrder(ctx, panAndPastel("pagado", "ignored"))
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentState)
	assert.True(t, paid.FullyPaid)
	assertAmount(t, "30", paid.AmountPaid)
	assertInvariants(t, paid)
}

func TestCreateOrder_SkipsZeroQuantityLines(t *testing.T) {
	f := setup(t)
	entry := panAndPastel("pendiente", "")
	entry.Lines = append(entry.Lines, LineSelection{ProductName: "not-in-catalog", Quantity: 0})
	entry.Lines[0].Quantity = 0

	o, err := f.svc.CreateOrder(context.Background(), entry)
	require.NoError(t, err)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "pastel", o.Items[0].ProductName)
	assert.Equal(t, 0, o.Items[0].Position)
	assertAmount(t, "20", o.TotalAmount)
}

func TestCreateOrder_Validation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(e *OrderEntry)
		want   error
	}{
		{"empty customer", func(e *OrderEntry) { e.CustomerName = "" }, ErrCustomerRequired},
		{"blank customer", func(e *OrderEntry) { e.CustomerName = "   " }, ErrCustomerRequired},
		{"no items", func(e *OrderEntry) { e.Lines = nil }, ErrNoItems},
		{"all zero quantities", func(e *OrderEntry) {
			e.Lines = []LineSelection{{ProductName: "pan"}, {ProductName: "pastel"}}
		}, ErrNoItems},
		{"negative quantity", func(e *OrderEntry) { e.Lines[0].Quantity = -1 }, ErrInvalidQuantity},
		{"advance missing", func(e *OrderEntry) { e.PaymentMethod = "anticipo"; e.AdvanceAmount = " " }, ErrAdvanceRequired},
		{"advance not numeric", func(e *OrderEntry) { e.PaymentMethod = "anticipo"; e.AdvanceAmount = "diez" }, ErrInvalidAmount},
		{"advance negative", func(e *OrderEntry) { e.PaymentMethod = "anticipo"; e.AdvanceAmount = "-5" }, ErrInvalidAmount},
		{"unknown method", func(e *OrderEntry) { e.PaymentMethod = "fiado" }, ErrInvalidPaymentMethod},
		{"unknown product", func(e *OrderEntry) { e.Lines[0].ProductName = "baguette" }, ErrUnknownProduct},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			entry := panAndPastel("pendiente", "")
			tt.mutate(&entry)

			_, err := f.svc.CreateOrder(ctx, entry)
			assert.ErrorIs(t, err, tt.want)
			assert.True(t, IsValidation(err))

			orders, err := f.svc.ListOrders(ctx, repository.OrderFilter{})
			require.NoError(t, err)
			assert.Empty(t, orders)
			last, err := f.svc.LastSequence(ctx)
			require.NoError(t, err)
			assert.Zero(t, last)
			assert.Empty(t, f.feed.types())
		})
	}
}

func TestCreateOrder_SequentialNumbers(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.orders.SetLastSequence(120)

	for i := int64(1); i <= 10; i++ {
		o, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
		require.NoError(t, err)
		assert.Equal(t, 120+i, o.Sequence)
	}
}

func TestCreateOrder_PriceIsSnapshot(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	require.NoError(t, err)

	_, err = f.catalog.SetPrice(ctx, "pan", "7.50")
	require.NoError(t, err)

	stored, err := f.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assertAmount(t, "5", stored.Items[0].UnitPrice)
	assertAmount(t, "30", stored.TotalAmount)

	next, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	require.NoError(t, err)
	assertAmount(t, "35", next.TotalAmount)
}

func TestEditAmountPaid_Scenarios(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, panAndPastel("anticipo", "10"))
	require.NoError(t, err)

	paid, err := f.svc.EditAmountPaid(ctx, o.ID, "30", testPIN)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, paid.PaymentState)
	assert.True(t, paid.FullyPaid)
	assertAmount(t, "30", paid.AmountPaid)

	over, err := f.svc.EditAmountPaid(ctx, o.ID, "35", testPIN)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPaid, over.PaymentState)
	assert.True(t, over.FullyPaid)
	assertAmount(t, "35", over.AmountPaid)

	partial, err := f.svc.EditAmountPaid(ctx, o.ID, "12.5", testPIN)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPartial, partial.PaymentState)
	assert.False(t, partial.FullyPaid)

	zero, err := f.svc.EditAmountPaid(ctx, o.ID, "0", testPIN)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentUnpaid, zero.PaymentState)
	assert.False(t, zero.FullyPaid)
	assertInvariants(t, zero)
}

func TestEditAmountPaid_RejectsWithoutMutation(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, panAndPastel("anticipo", "10"))
	require.NoError(t, err)

	_, err = f.svc.EditAmountPaid(ctx, o.ID, "treinta", testPIN)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = f.svc.EditAmountPaid(ctx, o.ID, "30", "99")
	assert.ErrorIs(t, err, ErrUnauthorized)

	_, err = f.svc.EditAmountPaid(ctx, o.ID, "30", "")
	assert.ErrorIs(t, err, ErrUnauthorized)

	stored, err := f.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, models.PaymentPartial, stored.PaymentState)
	assertAmount(t, "10", stored.AmountPaid)
}

func TestToggleFullyPaid_Scenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	entry := panAndPastel("pendiente", "")
	entry.Lines = []LineSelection{{ProductName: "pan", Quantity: 3}}
	o, err := f.svc.CreateOrder(ctx, entry)
	require.NoError(t, err)
	assertAmount(t, "15", o.TotalAmount)

	on, err := f.svc.ToggleFullyPaid(ctx, o.ID, "")
	require.NoError(t, err)
	assertAmount(t, "15", on.AmountPaid)
	assert.Equal(t, models.PaymentPaid, on.PaymentState)
	assert.True(t, on.FullyPaid)

	off, err := f.svc.ToggleFullyPaid(ctx, o.ID, "")
	require.NoError(t, err)
	assert.True(t, off.AmountPaid.IsZero())
	assert.Equal(t, models.PaymentUnpaid, off.PaymentState)
	assert.False(t, off.FullyPaid)

	// setting the same target twice is harmless
	for i := 0; i < 2; i++ {
		again, err := f.svc.SetFullyPaid(ctx, o.ID, true, "")
		require.NoError(t, err)
		assertAmount(t, "15", again.AmountPaid)
		assertInvariants(t, again)
	}
}

func TestItemDelivery_Scenario(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	require.NoError(t, err)

	first, err := f.svc.ToggleItemDelivered(ctx, o.ID, 0, "")
	require.NoError(t, err)
	assert.True(t, first.Items[0].Delivered)
	assert.False(t, first.Delivered)

	second, err := f.svc.ToggleItemDelivered(ctx, o.ID, 1, "")
	require.NoError(t, err)
	assert.True(t, second.Delivered)

	back, err := f.svc.SetItemDelivered(ctx, o.ID, 0, false, "")
	require.NoError(t, err)
	assert.False(t, back.Delivered)
	assert.True(t, back.Items[1].Delivered)

	_, err = f.svc.ToggleItemDelivered(ctx, o.ID, 5, "")
	assert.ErrorIs(t, err, models.ErrItemIndex)
}

func TestWholeOrderDelivery_Cascades(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	require.NoError(t, err)
	_, err = f.svc.ToggleItemDelivered(ctx, o.ID, 0, "")
	require.NoError(t, err)

	on, err := f.svc.ToggleDelivered(ctx, o.ID, "")
	require.NoError(t, err)
	assert.True(t, on.Delivered)
	for _, item := range on.Items {
		assert.True(t, item.Delivered)
	}

	off, err := f.svc.SetDelivered(ctx, o.ID, false, "")
	require.NoError(t, err)
	assert.False(t, off.Delivered)
	for _, item := range off.Items {
		assert.False(t, item.Delivered)
	}

	delivered := false
	pending, err := f.svc.ListOrders(ctx, repository.OrderFilter{Delivered: &delivered})
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestEditNote(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	require.NoError(t, err)

	_, err = f.svc.EditNote(ctx, o.ID, "hacker", "01")
	assert.ErrorIs(t, err, ErrUnauthorized)

	edited, err := f.svc.EditNote(ctx, o.ID, "entregar a las 5", testPIN)
	require.NoError(t, err)
	assert.Equal(t, "entregar a las 5", edited.Note)

	cleared, err := f.svc.EditNote(ctx, o.ID, "", testPIN)
	require.NoError(t, err)
	assert.Empty(t, cleared.Note)
}

func TestDeleteOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	require.NoError(t, err)

	assert.ErrorIs(t, f.svc.DeleteOrder(ctx, o.ID, "wrong"), ErrUnauthorized)
	_, err = f.svc.GetOrder(ctx, o.ID)
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteOrder(ctx, o.ID, testPIN))
	_, err = f.svc.GetOrder(ctx, o.ID)
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.ErrorIs(t, f.svc.DeleteOrder(ctx, o.ID, testPIN), ErrOrderNotFound)

	next, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	require.NoError(t, err)
	assert.Equal(t, int64(2), next.Sequence)

	assert.Equal(t, []models.OrderEventType{models.OrderCreated, models.OrderDeleted, models.OrderCreated}, f.feed.types())
}

func TestGatingIsConfigurable(t *testing.T) {
	f := setup(t, ActionTogglePaid)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	require.NoError(t, err)

	_, err = f.svc.ToggleFullyPaid(ctx, o.ID, "")
	assert.ErrorIs(t, err, ErrUnauthorized)
	_, err = f.svc.ToggleFullyPaid(ctx, o.ID, testPIN)
	assert.NoError(t, err)

	// not gated in this configuration
	require.NoError(t, f.svc.DeleteOrder(ctx, o.ID, ""))
}

func TestMutationsOnMissingOrder(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.ToggleDelivered(ctx, uuid.New(), "")
	assert.ErrorIs(t, err, ErrOrderNotFound)
	_, err = f.svc.EditAmountPaid(ctx, uuid.New(), "5", testPIN)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestListOrders_UsesAndInvalidatesCache(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	_, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	require.NoError(t, err)

	first, err := f.svc.ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, first, 1)
	assert.Contains(t, f.cache.lists, "all")

	o, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	require.NoError(t, err)
	assert.NotContains(t, f.cache.lists, "all")

	second, err := f.svc.ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, second, 2)

	_, err = f.svc.ToggleDelivered(ctx, o.ID, "")
	require.NoError(t, err)
	assert.Empty(t, f.cache.lists)
}

type failingOrders struct {
	repository.OrderRepository
}

func (failingOrders) Create(ctx context.Context, order *models.Order) error {
	return errors.New("connection refused")
}

func TestCreateOrder_StoreUnavailable(t *testing.T) {
	f := setup(t)
	auth, err := NewPINAuthorizer(testPIN, DefaultGatedActions)
	require.NoError(t, err)
	svc := NewOrderService(failingOrders{f.orders}, f.products, auth)

	_, err = svc.CreateOrder(context.Background(), panAndPastel("pendiente", ""))
	assert.ErrorIs(t, err, ErrStoreUnavailable)
	assert.False(t, IsValidation(err))
}

// listHookOrders runs onList after reading the list and before it is returned.
type listHookOrders struct {
	repository.OrderRepository
	onList func()
}

func (r *listHookOrders) List(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	orders, err := r.OrderRepository.List(ctx, filter)
	if r.onList != nil {
		hook := r.onList
		r.onList = nil
		hook()
	}
	return orders, err
}

func TestListOrders_ChangeDuringReadIsNotCached(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	o, err := f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	require.NoError(t, err)

	auth, err := NewPINAuthorizer(testPIN, DefaultGatedActions)
	require.NoError(t, err)
	repo := &listHookOrders{OrderRepository: f.orders}
	svc := NewOrderService(repo, f.products, auth, WithCache(f.cache))
	repo.onList = func() {
		_, err := svc.ToggleDelivered(ctx, o.ID, "")
		require.NoError(t, err)
	}

	stale, err := svc.ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, stale, 1)
	assert.False(t, stale[0].Delivered)
	assert.NotContains(t, f.cache.lists, "all")

	fresh, err := svc.ListOrders(ctx, repository.OrderFilter{})
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.True(t, fresh[0].Delivered)
	assert.Contains(t, f.cache.lists, "all")
}

func TestCreateOrder_InactiveProductRejected(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	pastel, err := f.products.GetByName(ctx, "pastel")
	require.NoError(t, err)
	pastel.IsActive = false
	require.NoError(t, f.products.Update(ctx, pastel))

	_, err = f.svc.CreateOrder(ctx, panAndPastel("pendiente", ""))
	assert.ErrorIs(t, err, ErrUnknownProduct)
	assert.True(t, IsValidation(err))

	last, err := f.svc.LastSequence(ctx)
	require.NoError(t, err)
	assert.Zero(t, last)
}
