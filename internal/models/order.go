package models

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

var ErrItemIndex = errors.New("order item index out of range")

// DisplayDateLayout matches the day/month hour:minute stamp printed on cards.
const DisplayDateLayout = "02/01 15:04"

type Order struct {
	ID           uuid.UUID       `json:"id" gorm:"type:uuid;primaryKey"`
	Sequence     int64           `json:"sequence" gorm:"uniqueIndex;not null"`
	CustomerName string          `json:"customer_name" gorm:"not null"`
	Note         string          `json:"note" gorm:"type:text"`
	Items        []OrderItem     `json:"items" gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	TotalAmount  decimal.Decimal `json:"total_amount" gorm:"type:numeric(12,2);not null"`
	PaymentState PaymentState    `json:"payment_state" gorm:"type:varchar(16);not null;default:'pendiente'"`
	AmountPaid   decimal.Decimal `json:"amount_paid" gorm:"type:numeric(12,2);not null;default:0"`
	FullyPaid    bool            `json:"fully_paid" gorm:"default:false"`
	Delivered    bool            `json:"delivered" gorm:"default:false;index"`
	DisplayDate  string          `json:"display_date"`
	CreatedAt    time.Time       `json:"created_at" gorm:"index"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

func (o *Order) BeforeCreate(tx *gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	return nil
}

// Payment reads the stored payment columns back as a single value.
func (o *Order) Payment() Payment {
	switch o.PaymentState {
	case PaymentPaid:
		return Paid(o.AmountPaid)
	case PaymentPartial:
		return Partial(o.AmountPaid)
	default:
		return Payment{state: PaymentUnpaid, amount: o.AmountPaid}
	}
}

// SetPayment is the only writer of PaymentState, AmountPaid and FullyPaid.
func (o *Order) SetPayment(p Payment) {
	o.PaymentState = p.State()
	o.AmountPaid = p.Amount()
	o.FullyPaid = p.FullyPaid()
}

// EditAmountPaid applies an arbitrary amount entered by the operator.
func (o *Order) EditAmountPaid(amount decimal.Decimal) {
	o.SetPayment(PaymentForAmount(amount, o.TotalAmount))
}

// ToggleFullyPaid flips between paid in full and unpaid.
func (o *Order) ToggleFullyPaid() {
	o.SetFullyPaid(!o.Payment().FullyPaid())
}

func (o *Order) SetFullyPaid(paid bool) {
	if paid {
		o.SetPayment(Paid(o.TotalAmount))
		return
	}
	o.SetPayment(Unpaid())
}

// Balance is what is still owed. It goes negative on an overshoot.
func (o *Order) Balance() decimal.Decimal {
	return o.TotalAmount.Sub(o.AmountPaid)
}

// RecomputeTotal snapshots the sum of the line subtotals.
func (o *Order) RecomputeTotal() {
	total := decimal.Zero
	for _, item := range o.Items {
		total = total.Add(item.Subtotal())
	}
	o.TotalAmount = total
}

// SetDelivered marks the whole order and cascades to every line.
func (o *Order) SetDelivered(delivered bool) {
	o.Delivered = delivered
	for i := range o.Items {
		o.Items[i].Delivered = delivered
	}
}

func (o *Order) ToggleDelivered() {
	o.SetDelivered(!o.Delivered)
}

// SetItemDelivered marks one line and re-derives the order flag from all lines.
func (o *Order) SetItemDelivered(index int, delivered bool) error {
	if index < 0 || index >= len(o.Items) {
		return ErrItemIndex
	}
	o.Items[index].Delivered = delivered
	o.Delivered = o.AllItemsDelivered()
	return nil
}

func (o *Order) ToggleItemDelivered(index int) error {
	if index < 0 || index >= len(o.Items) {
		return ErrItemIndex
	}
	return o.SetItemDelivered(index, !o.Items[index].Delivered)
}

func (o *Order) AllItemsDelivered() bool {
	if len(o.Items) == 0 {
		return false
	}
	for _, item := range o.Items {
		if !item.Delivered {
			return false
		}
	}
	return true
}
