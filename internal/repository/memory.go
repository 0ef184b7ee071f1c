package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"bakery_tracker/internal/models"

	"github.com/google/uuid"
)

// MemoryStore keeps orders, products and the sequence counter in process.
// It backs the "memory" store driver and the service tests.
type MemoryStore struct {
	mu            sync.RWMutex
	lastSequence  int64
	nextProductID uint
	nextItemID    uint
	orders        map[uuid.UUID]models.Order
	products      map[string]models.Product
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		nextProductID: 1,
		nextItemID:    1,
		orders:        make(map[uuid.UUID]models.Order),
		products:      make(map[string]models.Product),
	}
}

// copies never share the items slice with the stored value
func cloneOrder(o models.Order) models.Order {
	cp := o
	cp.Items = append([]models.OrderItem(nil), o.Items...)
	return cp
}

type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *models.Order) error {
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()

	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	mo.store.lastSequence++
	o.Sequence = mo.store.lastSequence
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	for i := range o.Items {
		o.Items[i].ID = mo.store.nextItemID
		o.Items[i].OrderID = o.ID
		mo.store.nextItemID++
	}
	mo.store.orders[o.ID] = cloneOrder(*o)
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	o, ok := mo.store.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := cloneOrder(o)
	return &cp, nil
}

func (mo *MemoryOrders) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	out := make([]models.Order, 0, len(mo.store.orders))
	for _, o := range mo.store.orders {
		if filter.Delivered != nil && o.Delivered != *filter.Delivered {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	// newest first; sequence breaks ties between orders created in the same instant
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].Sequence > out[j].Sequence
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (mo *MemoryOrders) Mutate(ctx context.Context, id uuid.UUID, fn func(order *models.Order) error) (*models.Order, error) {
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	stored, ok := mo.store.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	o := cloneOrder(stored)
	if err := fn(&o); err != nil {
		return nil, err
	}
	o.UpdatedAt = time.Now().UTC()
	mo.store.orders[id] = cloneOrder(o)
	return &o, nil
}

func (mo *MemoryOrders) Delete(ctx context.Context, id uuid.UUID) error {
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	if _, ok := mo.store.orders[id]; !ok {
		return ErrNotFound
	}
	delete(mo.store.orders, id)
	return nil
}

func (mo *MemoryOrders) LastSequence(ctx context.Context) (int64, error) {
	mo.store.mu.RLock()
	defer mo.store.mu.RUnlock()
	return mo.store.lastSequence, nil
}

// SetLastSequence seeds the counter, as a restored config document would.
func (mo *MemoryOrders) SetLastSequence(last int64) {
	mo.store.mu.Lock()
	defer mo.store.mu.Unlock()
	mo.store.lastSequence = last
}

type MemoryProducts struct{ store *MemoryStore }

func NewMemoryProducts(store *MemoryStore) *MemoryProducts { return &MemoryProducts{store: store} }

var _ ProductRepository = (*MemoryProducts)(nil)

func (mp *MemoryProducts) Create(ctx context.Context, p *models.Product) error {
	mp.store.mu.Lock()
	defer mp.store.mu.Unlock()
	p.ID = mp.store.nextProductID
	mp.store.nextProductID++
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	mp.store.products[p.Name] = *p
	return nil
}

func (mp *MemoryProducts) GetByName(ctx context.Context, name string) (*models.Product, error) {
	mp.store.mu.RLock()
	defer mp.store.mu.RUnlock()
	p, ok := mp.store.products[name]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (mp *MemoryProducts) GetActive(ctx context.Context) ([]models.Product, error) {
	mp.store.mu.RLock()
	defer mp.store.mu.RUnlock()
	out := make([]models.Product, 0, len(mp.store.products))
	for _, p := range mp.store.products {
		if p.IsActive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (mp *MemoryProducts) Update(ctx context.Context, p *models.Product) error {
	mp.store.mu.Lock()
	defer mp.store.mu.Unlock()
	for name, existing := range mp.store.products {
		if existing.ID == p.ID {
			delete(mp.store.products, name)
			p.UpdatedAt = time.Now().UTC()
			mp.store.products[p.Name] = *p
			return nil
		}
	}
	return ErrNotFound
}
