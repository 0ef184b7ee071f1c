package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderItem is one product line of an order. UnitPrice is copied from the
// catalog when the order is created and never follows later price changes.
type OrderItem struct {
	ID          uint            `json:"-" gorm:"primaryKey"`
	OrderID     uuid.UUID       `json:"-" gorm:"type:uuid;not null;index"`
	Position    int             `json:"position" gorm:"not null"`
	ProductName string          `json:"product_name" gorm:"not null"`
	UnitPrice   decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	Quantity    int             `json:"quantity" gorm:"not null"`
	Delivered   bool            `json:"delivered" gorm:"default:false"`
	CreatedAt   time.Time       `json:"-"`
	UpdatedAt   time.Time       `json:"-"`
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.UnitPrice.Mul(decimal.NewFromInt(int64(i.Quantity)))
}
