package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync/atomic"
	"time"

	"bakery_tracker/internal/models"
	"bakery_tracker/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LineSelection is one product row of the entry form.
type LineSelection struct {
	ProductName string
	Quantity    int
}

// OrderEntry is everything the entry form collects for a new order.
type OrderEntry struct {
	CustomerName  string
	Note          string
	Lines         []LineSelection
	PaymentMethod string
	AdvanceAmount string
}

type OrderService interface {
	CreateOrder(ctx context.Context, entry OrderEntry) (*models.Order, error)
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error)
	LastSequence(ctx context.Context) (int64, error)

	SetDelivered(ctx context.Context, id uuid.UUID, delivered bool, credential string) (*models.Order, error)
	ToggleDelivered(ctx context.Context, id uuid.UUID, credential string) (*models.Order, error)
	SetItemDelivered(ctx context.Context, id uuid.UUID, index int, delivered bool, credential string) (*models.Order, error)
	ToggleItemDelivered(ctx context.Context, id uuid.UUID, index int, credential string) (*models.Order, error)
	EditAmountPaid(ctx context.Context, id uuid.UUID, amount string, credential string) (*models.Order, error)
	SetFullyPaid(ctx context.Context, id uuid.UUID, paid bool, credential string) (*models.Order, error)
	ToggleFullyPaid(ctx context.Context, id uuid.UUID, credential string) (*models.Order, error)
	EditNote(ctx context.Context, id uuid.UUID, note string, credential string) (*models.Order, error)
	DeleteOrder(ctx context.Context, id uuid.UUID, credential string) error
}

// OrderFeed receives every committed change for live subscribers.
type OrderFeed interface {
	PublishOrderEvent(ctx context.Context, event models.OrderEvent) error
}

// OrderCache holds rendered order lists between changes.
type OrderCache interface {
	GetOrderList(ctx context.Context, key string) ([]models.Order, bool)
	SetOrderList(ctx context.Context, key string, orders []models.Order) error
	InvalidateOrderLists(ctx context.Context) error
}

type OrderServiceOption func(*orderService)

func WithFeed(feed OrderFeed) OrderServiceOption {
	return func(s *orderService) { s.feed = feed }
}

func WithCache(cache OrderCache) OrderServiceOption {
	return func(s *orderService) { s.cache = cache }
}

func WithClock(now func() time.Time) OrderServiceOption {
	return func(s *orderService) { s.now = now }
}

// WithLocation sets the zone used for the display timestamp.
func WithLocation(loc *time.Location) OrderServiceOption {
	return func(s *orderService) { s.location = loc }
}

type orderService struct {
	orderRepo   repository.OrderRepository
	productRepo repository.ProductRepository
	authorizer  Authorizer
	feed        OrderFeed
	cache       OrderCache
	now         func() time.Time
	location    *time.Location

	// bumped before every cache invalidation
	listGen atomic.Uint64
}

func NewOrderService(orderRepo repository.OrderRepository, productRepo repository.ProductRepository, authorizer Authorizer, opts ...OrderServiceOption) OrderService {
	s := &orderService{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		authorizer:  authorizer,
		now:         time.Now,
		location:    time.Local,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *orderService) CreateOrder(ctx context.Context, entry OrderEntry) (*models.Order, error) {
	customer := strings.TrimSpace(entry.CustomerName)
	if customer == "" {
		return nil, ErrCustomerRequired
	}

	selected := make([]LineSelection, 0, len(entry.Lines))
	for _, line := range entry.Lines {
		if line.Quantity < 0 {
			return nil, fmt.Errorf("%w: %s", ErrInvalidQuantity, line.ProductName)
		}
		if line.Quantity > 0 {
			selected = append(selected, line)
		}
	}
	if len(selected) == 0 {
		return nil, ErrNoItems
	}

	method := models.PaymentUnpaid
	if entry.PaymentMethod != "" {
		var ok bool
		if method, ok = models.ParsePaymentState(entry.PaymentMethod); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidPaymentMethod, entry.PaymentMethod)
		}
	}

	var advance decimal.Decimal
	if method == models.PaymentPartial {
		raw := strings.TrimSpace(entry.AdvanceAmount)
		if raw == "" {
			return nil, ErrAdvanceRequired
		}
		amount, err := parseAmount(raw)
		if err != nil {
			return nil, err
		}
		advance = amount
	}

	order := &models.Order{
		CustomerName: customer,
		Note:         strings.TrimSpace(entry.Note),
		Items:        make([]models.OrderItem, 0, len(selected)),
	}
	for i, line := range selected {
		product, err := s.productRepo.GetByName(ctx, line.ProductName)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, line.ProductName)
			}
			return nil, s.storeError("load product", err)
		}
		if !product.IsActive {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProduct, line.ProductName)
		}
		order.Items = append(order.Items, models.OrderItem{
			Position:    i,
			ProductName: product.Name,
			UnitPrice:   product.UnitPrice,
			Quantity:    line.Quantity,
		})
	}
	order.RecomputeTotal()

	switch method {
	case models.PaymentPaid:
		order.SetPayment(models.Paid(order.TotalAmount))
	case models.PaymentPartial:
		order.SetPayment(models.Partial(advance))
	default:
		order.SetPayment(models.Unpaid())
	}
	order.Delivered = false
	order.DisplayDate = s.now().In(s.location).Format(models.DisplayDateLayout)

	if err := s.orderRepo.Create(ctx, order); err != nil {
		return nil, s.storeError("create order", err)
	}

	log.Printf("Order #%d created for %s (total %s, %s)", order.Sequence, order.CustomerName, order.TotalAmount.StringFixed(2), order.PaymentState)
	s.publish(ctx, models.OrderCreated, order.ID, order)
	return order, nil
}

func (s *orderService) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.orderRepo.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError("get order", err)
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]models.Order, error) {
	key := listKey(filter)
	if s.cache != nil {
		if orders, ok := s.cache.GetOrderList(ctx, key); ok {
			return orders, nil
		}
	}

	gen := s.listGen.Load()
	orders, err := s.orderRepo.List(ctx, filter)
	if err != nil {
		return nil, s.storeError("list orders", err)
	}

	if s.cache != nil && s.listGen.Load() == gen {
		if err := s.cache.SetOrderList(ctx, key, orders); err != nil {
			log.Printf("Warning: failed to cache order list: %v", err)
		}
		// a change that landed during the write must not leave this list behind
		if s.listGen.Load() != gen {
			s.invalidateLists(ctx)
		}
	}
	return orders, nil
}

func (s *orderService) LastSequence(ctx context.Context) (int64, error) {
	last, err := s.orderRepo.LastSequence(ctx)
	if err != nil {
		return 0, s.storeError("read sequence", err)
	}
	return last, nil
}

func (s *orderService) SetDelivered(ctx context.Context, id uuid.UUID, delivered bool, credential string) (*models.Order, error) {
	return s.mutate(ctx, ActionToggleDelivery, id, credential, func(o *models.Order) error {
		o.SetDelivered(delivered)
		return nil
	})
}

func (s *orderService) ToggleDelivered(ctx context.Context, id uuid.UUID, credential string) (*models.Order, error) {
	return s.mutate(ctx, ActionToggleDelivery, id, credential, func(o *models.Order) error {
		o.ToggleDelivered()
		return nil
	})
}

func (s *orderService) SetItemDelivered(ctx context.Context, id uuid.UUID, index int, delivered bool, credential string) (*models.Order, error) {
	return s.mutate(ctx, ActionToggleItemDelivery, id, credential, func(o *models.Order) error {
		return o.SetItemDelivered(index, delivered)
	})
}

func (s *orderService) ToggleItemDelivered(ctx context.Context, id uuid.UUID, index int, credential string) (*models.Order, error) {
	return s.mutate(ctx, ActionToggleItemDelivery, id, credential, func(o *models.Order) error {
		return o.ToggleItemDelivered(index)
	})
}

func (s *orderService) EditAmountPaid(ctx context.Context, id uuid.UUID, amount string, credential string) (*models.Order, error) {
	if err := s.authorizer.Authorize(ctx, ActionEditPayment, credential); err != nil {
		return nil, err
	}
	value, err := parseAmount(amount)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, id, func(o *models.Order) error {
		o.EditAmountPaid(value)
		return nil
	})
}

func (s *orderService) SetFullyPaid(ctx context.Context, id uuid.UUID, paid bool, credential string) (*models.Order, error) {
	return s.mutate(ctx, ActionTogglePaid, id, credential, func(o *models.Order) error {
		o.SetFullyPaid(paid)
		return nil
	})
}

func (s *orderService) ToggleFullyPaid(ctx context.Context, id uuid.UUID, credential string) (*models.Order, error) {
	return s.mutate(ctx, ActionTogglePaid, id, credential, func(o *models.Order) error {
		o.ToggleFullyPaid()
		return nil
	})
}

// EditNote replaces the note verbatim; an empty note clears it.
func (s *orderService) EditNote(ctx context.Context, id uuid.UUID, note string, credential string) (*models.Order, error) {
	return s.mutate(ctx, ActionEditNote, id, credential, func(o *models.Order) error {
		o.Note = note
		return nil
	})
}

func (s *orderService) DeleteOrder(ctx context.Context, id uuid.UUID, credential string) error {
	if err := s.authorizer.Authorize(ctx, ActionDeleteOrder, credential); err != nil {
		return err
	}
	if err := s.orderRepo.Delete(ctx, id); err != nil {
		return s.storeError("delete order", err)
	}
	log.Printf("Order %s deleted", id)
	s.publish(ctx, models.OrderDeleted, id, nil)
	return nil
}

func (s *orderService) mutate(ctx context.Context, action Action, id uuid.UUID, credential string, fn func(*models.Order) error) (*models.Order, error) {
	if err := s.authorizer.Authorize(ctx, action, credential); err != nil {
		return nil, err
	}
	return s.apply(ctx, id, fn)
}

func (s *orderService) apply(ctx context.Context, id uuid.UUID, fn func(*models.Order) error) (*models.Order, error) {
	order, err := s.orderRepo.Mutate(ctx, id, fn)
	if err != nil {
		if errors.Is(err, models.ErrItemIndex) {
			return nil, err
		}
		return nil, s.storeError("update order", err)
	}
	s.publish(ctx, models.OrderUpdated, order.ID, order)
	return order, nil
}

func (s *orderService) storeError(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrOrderNotFound
	}
	log.Printf("Failed to %s: %v", op, err)
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// publish never fails the operation; the write is already committed.
func (s *orderService) publish(ctx context.Context, kind models.OrderEventType, id uuid.UUID, order *models.Order) {
	s.listGen.Add(1)
	s.invalidateLists(ctx)
	if s.feed == nil {
		return
	}
	event := models.OrderEvent{Type: kind, OrderID: id, Order: order, OccurredAt: s.now()}
	if err := s.feed.PublishOrderEvent(ctx, event); err != nil {
		log.Printf("Warning: failed to publish %s event for order %s: %v", kind, id, err)
	}
}

func (s *orderService) invalidateLists(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateOrderLists(ctx); err != nil {
		log.Printf("Warning: failed to invalidate order cache: %v", err)
	}
}

func parseAmount(raw string) (decimal.Decimal, error) {
	amount, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	if amount.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, raw)
	}
	return amount, nil
}

func listKey(filter repository.OrderFilter) string {
	if filter.Delivered == nil {
		return "all"
	}
	if *filter.Delivered {
		return "delivered"
	}
	return "pending"
}
