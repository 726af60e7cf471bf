package payment

import (
	"context"

	"github.com/google/uuid"
)

// Gateway defines the interface for card authorization
// This allows swapping the real processor with a sandbox one
type Gateway interface {
	// Authorize attempts to authorize the given amount against a card.
	// A decline is a successful call with Authorized=false; err is for
	// transport and processor failures only.
	Authorize(ctx context.Context, req *AuthorizationRequest) (*AuthorizationResult, error)

	// Name returns the gateway provider name
	Name() string
}

// AuthorizationRequest carries card details to the processor. The CVV is
// only ever held in memory for the duration of the call.
type AuthorizationRequest struct {
	OrderID      uuid.UUID `json:"order_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	AmountCents  int64     `json:"amount_cents"`
	Currency     string    `json:"currency"`
	CardNumber   string    `json:"card_number"`
	ExpiryMMYY   string    `json:"expiry_mmyy"`
	CVV          string    `json:"cvv"`
}

// AuthorizationResult is the processor's answer
type AuthorizationResult struct {
	Authorized      bool   `json:"authorized"`
	AuthorizationID string `json:"authorization_id,omitempty"`
	DeclineReason   string `json:"decline_reason,omitempty"`
}

// Decline reason constants
const (
	DeclineInsufficientFunds = "insufficient_funds"
	DeclineCardExpired       = "card_expired"
	DeclineGeneric           = "do_not_honor"
)
