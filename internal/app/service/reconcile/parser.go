package reconcile

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/getdigitalpayments/paybridge/pkg/types"
)

// ErrMalformedEvent means the body is not a webhook envelope at all.
var ErrMalformedEvent = errors.New("malformed webhook event")

// Envelope is the provider-neutral header of a delivery.
type Envelope struct {
	Provider types.PaymentProvider
	ID       string
	Type     string
	Created  time.Time
	Raw      json.RawMessage
}

// EventParser turns one verified delivery into store mutations. It does no I/O.
type EventParser interface {
	Envelope() Envelope
	// Mutations returns nil for event types that change nothing.
	Mutations() ([]Mutation, error)
}
