package repository

import (
	"context"
	"errors"
	"fmt"

	"bakery_tracker/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var ErrNotFound = errors.New("record not found")

type OrderFilter struct {
	Delivered *bool
}

type OrderRepository interface {
	// Create assigns the next sequence number and inserts the order in one
	// transaction. A failed insert does not consume a number.
	Create(ctx context.Context, order *models.Order) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	List(ctx context.Context, filter OrderFilter) ([]models.Order, error)
	// Mutate loads the order with its items, applies fn and writes the whole
	// record back while holding the row.
	Mutate(ctx context.Context, id uuid.UUID, fn func(order *models.Order) error) (*models.Order, error)
	Delete(ctx context.Context, id uuid.UUID) error
	LastSequence(ctx context.Context) (int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

func itemsByPosition(db *gorm.DB) *gorm.DB {
	return db.Order("position ASC")
}

func (r *orderRepository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		counter := models.SequenceCounter{Name: models.OrderSequence}
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where(models.SequenceCounter{Name: models.OrderSequence}).
			FirstOrCreate(&counter).Error
		if err != nil {
			return fmt.Errorf("failed to lock sequence counter: %w", err)
		}

		next := counter.Last + 1
		order.Sequence = next
		if err := tx.Create(order).Error; err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}

		return tx.Model(&models.SequenceCounter{}).
			Where("name = ?", models.OrderSequence).
			Update("last", next).Error
	})
}

func (r *orderRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Preload("Items", itemsByPosition).First(&order, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) List(ctx context.Context, filter OrderFilter) ([]models.Order, error) {
	var orders []models.Order
	query := r.db.WithContext(ctx).Preload("Items", itemsByPosition)
	if filter.Delivered != nil {
		query = query.Where("delivered = ?", *filter.Delivered)
	}
	err := query.Order("created_at DESC").Find(&orders).Error
	return orders, err
}

func (r *orderRepository) Mutate(ctx context.Context, id uuid.UUID, fn func(order *models.Order) error) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Preload("Items", itemsByPosition).
			First(&order, "id = ?", id).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		if err := fn(&order); err != nil {
			return err
		}

		return tx.Session(&gorm.Session{FullSaveAssociations: true}).Save(&order).Error
	})
	if err != nil {
		return nil, err
	}
	return &order, nil
}

func (r *orderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.Order{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *orderRepository) LastSequence(ctx context.Context) (int64, error) {
	var counter models.SequenceCounter
	err := r.db.WithContext(ctx).First(&counter, "name = ?", models.OrderSequence).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return counter.Last, nil
}
