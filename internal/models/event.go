package models

import (
	"time"

	"github.com/google/uuid"
)

type OrderEventType string

const (
	OrderCreated OrderEventType = "created"
	OrderUpdated OrderEventType = "updated"
	OrderDeleted OrderEventType = "deleted"
)

// OrderEvent is pushed to live subscribers after every committed change.
// Order is nil for deletions.
type OrderEvent struct {
	Type       OrderEventType `json:"type"`
	OrderID    uuid.UUID      `json:"order_id"`
	Order      *Order         `json:"order,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}
