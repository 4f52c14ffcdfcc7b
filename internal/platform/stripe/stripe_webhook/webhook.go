// Package stripe_webhook verifies billing processor webhook deliveries and
// decodes the event objects the reconciler reads.
package stripe_webhook

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

var ErrInvalidSignature = errors.New("invalid stripe signature")

// Verify checks the Stripe-Signature header against secret and returns the
// decoded envelope. API version mismatches are accepted; the reconciler only
// reads fields that are stable across versions.
func Verify(payload []byte, sigHeader, secret string) (*stripe.Event, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, fmt.Errorf("%w: webhook secret is not configured", ErrInvalidSignature)
	}
	if strings.TrimSpace(sigHeader) == "" {
		return nil, fmt.Errorf("%w: missing header", ErrInvalidSignature)
	}
	event, err := webhook.ConstructEventWithOptions(payload, sigHeader, secret, webhook.ConstructEventOptions{
		IgnoreAPIVersionMismatch: true,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	return &event, nil
}

// Subscription is the part of a subscription object the reconciler uses.
type Subscription struct {
	ID                string `json:"id"`
	Status            string `json:"status"`
	CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
	// Legacy API versions put the period on the subscription.
	CurrentPeriodStart int64 `json:"current_period_start"`
	CurrentPeriodEnd   int64 `json:"current_period_end"`
	Items              struct {
		Data []struct {
			CurrentPeriodStart int64 `json:"current_period_start"`
			CurrentPeriodEnd   int64 `json:"current_period_end"`
			Price              struct {
				ID string `json:"id"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

// Period returns the billing period bounds in unix seconds, preferring the
// first item's values.
func (s *Subscription) Period() (start, end int64) {
	if len(s.Items.Data) > 0 && s.Items.Data[0].CurrentPeriodEnd > 0 {
		return s.Items.Data[0].CurrentPeriodStart, s.Items.Data[0].CurrentPeriodEnd
	}
	return s.CurrentPeriodStart, s.CurrentPeriodEnd
}

// PriceID is the first item's price, empty when the payload has no items.
func (s *Subscription) PriceID() string {
	if len(s.Items.Data) == 0 {
		return ""
	}
	return s.Items.Data[0].Price.ID
}

type Invoice struct {
	ID           string `json:"id"`
	AmountPaid   int64  `json:"amount_paid"`
	AmountDue    int64  `json:"amount_due"`
	Currency     string `json:"currency"`
	Subscription any    `json:"subscription"`
	Parent       *struct {
		SubscriptionDetails *struct {
			Subscription any `json:"subscription"`
		} `json:"subscription_details"`
	} `json:"parent"`
}

// SubscriptionID reads parent.subscription_details.subscription and falls
// back to the legacy top-level field. Either may be an id or an expanded object.
func (inv *Invoice) SubscriptionID() string {
	if inv.Parent != nil && inv.Parent.SubscriptionDetails != nil {
		if id := idOf(inv.Parent.SubscriptionDetails.Subscription); id != "" {
			return id
		}
	}
	return idOf(inv.Subscription)
}

func idOf(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case map[string]any:
		if id, ok := t["id"].(string); ok {
			return id
		}
	}
	return ""
}

// DecodeObject unmarshals event.data.object into out.
func DecodeObject(event *stripe.Event, out any) error {
	if event == nil || event.Data == nil || len(event.Data.Raw) == 0 {
		return errors.New("event has no data object")
	}
	if err := json.Unmarshal(event.Data.Raw, out); err != nil {
		return fmt.Errorf("failed to decode %s object: %w", event.Type, err)
	}
	return nil
}
