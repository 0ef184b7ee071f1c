package models

import "github.com/shopspring/decimal"

type PaymentState string

const (
	PaymentUnpaid  PaymentState = "pendiente"
	PaymentPartial PaymentState = "anticipo"
	PaymentPaid    PaymentState = "pagado"
)

// ParsePaymentState accepts the stored values only.
func ParsePaymentState(s string) (PaymentState, bool) {
	switch PaymentState(s) {
	case PaymentUnpaid, PaymentPartial, PaymentPaid:
		return PaymentState(s), true
	}
	return "", false
}

// Label is the badge text shown on cards and tickets.
func (s PaymentState) Label() string {
	switch s {
	case PaymentPaid:
		return "PAGADO TOTAL"
	case PaymentPartial:
		return "CON ANTICIPO"
	default:
		return "PENDIENTE PAGO"
	}
}

// Payment is the payment status of an order together with the amount it
// carries. Values are built with Unpaid, Partial or Paid so the state and
// the amount always agree.
type Payment struct {
	state  PaymentState
	amount decimal.Decimal
}

func Unpaid() Payment {
	return Payment{state: PaymentUnpaid, amount: decimal.Zero}
}

func Partial(amount decimal.Decimal) Payment {
	return Payment{state: PaymentPartial, amount: amount}
}

func Paid(amount decimal.Decimal) Payment {
	return Payment{state: PaymentPaid, amount: amount}
}

// PaymentForAmount derives the payment from an amount entered against the
// order total. The amount is kept verbatim, an overshoot is not clamped.
func PaymentForAmount(amount, total decimal.Decimal) Payment {
	switch {
	case amount.GreaterThanOrEqual(total):
		return Paid(amount)
	case amount.LessThanOrEqual(decimal.Zero):
		return Payment{state: PaymentUnpaid, amount: amount}
	default:
		return Partial(amount)
	}
}

func (p Payment) State() PaymentState {
	if p.state == "" {
		return PaymentUnpaid
	}
	return p.state
}

func (p Payment) Amount() decimal.Decimal { return p.amount }

func (p Payment) FullyPaid() bool { return p.State() == PaymentPaid }
