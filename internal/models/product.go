package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID        uint            `json:"id" gorm:"primaryKey"`
	Name      string          `json:"name" gorm:"unique;not null"`
	UnitPrice decimal.Decimal `json:"unit_price" gorm:"type:numeric(12,2);not null"`
	IsActive  bool            `json:"is_active" gorm:"default:true"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SequenceCounter holds the last sequence number handed out for a series.
type SequenceCounter struct {
	Name      string    `json:"name" gorm:"primaryKey"`
	Last      int64     `json:"last" gorm:"not null;default:0"`
	UpdatedAt time.Time `json:"updated_at"`
}

const OrderSequence = "orders"
