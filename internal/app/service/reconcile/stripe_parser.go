package reconcile

import (
	"encoding/json"
	"time"

	"github.com/samber/lo"
	"github.com/stripe/stripe-go/v82"

	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/stripe/stripe_webhook"
	"github.com/getdigitalpayments/paybridge/pkg/types"
)

const (
	stripeSubscriptionCreated  = "customer.subscription.created"
	stripeSubscriptionUpdated  = "customer.subscription.updated"
	stripeSubscriptionDeleted  = "customer.subscription.deleted"
	stripeInvoicePaymentPaid   = "invoice.payment_succeeded"
	stripeInvoicePaymentFailed = "invoice.payment_failed"
)

type StripeParser struct {
	event   *stripe.Event
	payload []byte
}

func NewStripeParser(event *stripe.Event, payload []byte) *StripeParser {
	return &StripeParser{event: event, payload: payload}
}

func (p *StripeParser) Envelope() Envelope {
	return Envelope{
		Provider: types.PaymentProviderStripe,
		ID:       p.event.ID,
		Type:     string(p.event.Type),
		Created:  time.Unix(p.event.Created, 0).UTC(),
		Raw:      json.RawMessage(p.payload),
	}
}

func (p *StripeParser) Mutations() ([]Mutation, error) {
	created := time.Unix(p.event.Created, 0).UTC()

	switch string(p.event.Type) {
	case stripeSubscriptionCreated, stripeSubscriptionUpdated, stripeSubscriptionDeleted:
		var sub stripe_webhook.Subscription
		if err := stripe_webhook.DecodeObject(p.event, &sub); err != nil {
			return nil, err
		}
		start, end := sub.Period()
		info := types.SubscriptionInfo{CurrentPeriodStart: start, CurrentPeriodEnd: end}
		status := types.SubscriptionStatus(sub.Status)
		patch := &models.SubscriptionPatch{
			PriceID:            lo.EmptyableToPtr(sub.PriceID()),
			Status:             &status,
			CurrentPeriodStart: info.PeriodStartTime(),
			CurrentPeriodEnd:   info.PeriodEndTime(),
			CancelAtPeriodEnd:  lo.ToPtr(sub.CancelAtPeriodEnd),
			StatusUpdatedAt:    &created,
		}
		return []Mutation{{Kind: MutationUpdateSubscription, SubscriptionID: sub.ID, Patch: patch}}, nil

	case stripeInvoicePaymentPaid, stripeInvoicePaymentFailed:
		var inv stripe_webhook.Invoice
		if err := stripe_webhook.DecodeObject(p.event, &inv); err != nil {
			return nil, err
		}
		rec := &models.PaymentRecord{
			InvoiceID:      lo.ToPtr(inv.ID),
			SubscriptionID: inv.SubscriptionID(),
			Currency:       inv.Currency,
			CreatedAt:      created,
		}
		if string(p.event.Type) == stripeInvoicePaymentPaid {
			rec.Amount = inv.AmountPaid
			rec.Status = types.PaymentRecordStatusSucceeded
		} else {
			rec.Amount = inv.AmountDue
			rec.Status = types.PaymentRecordStatusFailed
		}
		return []Mutation{{Kind: MutationAppendPayment, SubscriptionID: rec.SubscriptionID, Payment: rec}}, nil
	}
	return nil, nil
}
