package reconcile

import (
	"context"
	"fmt"

	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/store"
)

type MutationKind string

const (
	MutationUpdateSubscription MutationKind = "update_subscription"
	MutationAppendPayment      MutationKind = "append_payment"
	MutationSetPayoutAccount   MutationKind = "set_payout_account"
)

// Mutation is one store write derived from a webhook event.
type Mutation struct {
	Kind MutationKind `json:"kind"`

	SubscriptionID string                    `json:"subscription_id,omitempty"`
	Patch          *models.SubscriptionPatch `json:"-"`

	Payment *models.PaymentRecord `json:"payment,omitempty"`

	UserID        string `json:"user_id,omitempty"`
	AccountID     string `json:"account_id,omitempty"`
	AccountStatus string `json:"account_status,omitempty"`
}

// Apply writes the mutations in order and stops at the first failure.
func Apply(ctx context.Context, st store.Store, muts []Mutation) error {
	for i, m := range muts {
		var err error
		switch m.Kind {
		case MutationUpdateSubscription:
			if m.Patch.Empty() {
				continue
			}
			err = st.UpdateSubscription(ctx, m.SubscriptionID, m.Patch)
		case MutationAppendPayment:
			// copy so a replayed mutation list never shares ids
			rec := *m.Payment
			err = st.AppendPayment(ctx, &rec)
		case MutationSetPayoutAccount:
			err = st.SetUserPayoutAccount(ctx, m.UserID, m.AccountID, m.AccountStatus)
		default:
			err = fmt.Errorf("unknown mutation kind %q", m.Kind)
		}
		if err != nil {
			return fmt.Errorf("failed to apply mutation %d (%s): %w", i, m.Kind, err)
		}
	}
	return nil
}
