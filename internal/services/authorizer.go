package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

type Action string

const (
	ActionDeleteOrder        Action = "delete_order"
	ActionEditNote           Action = "edit_note"
	ActionEditPayment        Action = "edit_payment"
	ActionToggleDelivery     Action = "toggle_delivery"
	ActionToggleItemDelivery Action = "toggle_item_delivery"
	ActionTogglePaid         Action = "toggle_paid"
)

// DefaultGatedActions are the actions that ask for the PIN out of the box.
var DefaultGatedActions = []Action{ActionDeleteOrder, ActionEditNote, ActionEditPayment}

// Authorizer decides whether a credential may perform an action.
type Authorizer interface {
	Authorize(ctx context.Context, action Action, credential string) error
	IsGated(action Action) bool
}

type pinAuthorizer struct {
	hash  []byte
	gated map[Action]bool
}

// NewPINAuthorizer keeps only the bcrypt hash of the shared PIN.
func NewPINAuthorizer(pin string, gated []Action) (Authorizer, error) {
	if pin == "" {
		return nil, errors.New("authorization PIN must not be empty")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash PIN: %w", err)
	}

	set := make(map[Action]bool, len(gated))
	for _, action := range gated {
		set[action] = true
	}
	return &pinAuthorizer{hash: hash, gated: set}, nil
}

// ParseActions turns configuration values into actions, rejecting unknown names.
func ParseActions(names []string) ([]Action, error) {
	actions := make([]Action, 0, len(names))
	for _, name := range names {
		action := Action(strings.TrimSpace(name))
		switch action {
		case "":
			continue
		case ActionDeleteOrder, ActionEditNote, ActionEditPayment,
			ActionToggleDelivery, ActionToggleItemDelivery, ActionTogglePaid:
			actions = append(actions, action)
		default:
			return nil, fmt.Errorf("unknown action %q", name)
		}
	}
	return actions, nil
}

func (a *pinAuthorizer) IsGated(action Action) bool {
	return a.gated[action]
}

func (a *pinAuthorizer) Authorize(ctx context.Context, action Action, credential string) error {
	if !a.gated[action] {
		return nil
	}
	if credential == "" {
		return ErrUnauthorized
	}
	if err := bcrypt.CompareHashAndPassword(a.hash, []byte(credential)); err != nil {
		return ErrUnauthorized
	}
	return nil
}
