package services

import (
	"errors"

	"bakery_tracker/internal/models"
)

// Validation errors. Nothing is written when one of these is returned.
var (
	ErrCustomerRequired     = errors.New("customer name is required")
	ErrNoItems              = errors.New("order needs at least one product")
	ErrInvalidQuantity      = errors.New("quantity must not be negative")
	ErrAdvanceRequired      = errors.New("advance amount is required")
	ErrInvalidAmount        = errors.New("amount must be a non-negative number")
	ErrInvalidPaymentMethod = errors.New("unknown payment method")
	ErrUnknownProduct       = errors.New("product not in catalog")
)

var (
	ErrUnauthorized     = errors.New("authorization failed")
	ErrOrderNotFound    = errors.New("order not found")
	ErrStoreUnavailable = errors.New("could not reach the order store")
)

// IsValidation reports whether err is a local input error.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrCustomerRequired, ErrNoItems, ErrInvalidQuantity, ErrAdvanceRequired,
		ErrInvalidAmount, ErrInvalidPaymentMethod, ErrUnknownProduct, models.ErrItemIndex,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
