package reconcile

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/samber/lo"

	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/pkg/types"
)

const (
	moovAccountCreated       = "account.created"
	moovTransferCompleted    = "transfer.completed"
	moovTransferFailed       = "transfer.failed"
	moovPaymentMethodCreated = "payment_method.created"

	defaultFailureReason = "Payment failed"
)

type moovEnvelope struct {
	EventID   string          `json:"eventID"`
	Type      string          `json:"type"`
	CreatedOn *time.Time      `json:"createdOn"`
	Data      json.RawMessage `json:"data"`
}

type moovAccount struct {
	AccountID string `json:"accountID"`
	ForeignID string `json:"foreignId"`
	Status    string `json:"status"`
}

type moovTransfer struct {
	TransferID string `json:"transferID"`
	Amount     struct {
		Value    int64  `json:"value"`
		Currency string `json:"currency"`
	} `json:"amount"`
	FailureReason string            `json:"failureReason"`
	Metadata      map[string]string `json:"metadata"`
}

type MoovParser struct {
	env     moovEnvelope
	payload []byte
	created time.Time
}

// NewMoovParser decodes the envelope. Only a body that is not JSON at all
// is malformed; JSON that does not fit the envelope, or carries no type,
// parses as an unrecognized kind. Deliveries without a createdOn stamp are
// dated with receivedAt.
func NewMoovParser(payload []byte, receivedAt time.Time) (*MoovParser, error) {
	if !json.Valid(payload) {
		return nil, fmt.Errorf("%w: body is not json", ErrMalformedEvent)
	}
	var env moovEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		env = moovEnvelope{}
	}
	created := receivedAt.UTC()
	if env.CreatedOn != nil && !env.CreatedOn.IsZero() {
		created = env.CreatedOn.UTC()
	}
	return &MoovParser{env: env, payload: payload, created: created}, nil
}

func (p *MoovParser) Envelope() Envelope {
	return Envelope{
		Provider: types.PaymentProviderMoov,
		ID:       p.env.EventID,
		Type:     p.env.Type,
		Created:  p.created,
		Raw:      json.RawMessage(p.payload),
	}
}

func (p *MoovParser) decodeData(out any) error {
	if len(p.env.Data) == 0 {
		return fmt.Errorf("%s event has no data", p.env.Type)
	}
	if err := json.Unmarshal(p.env.Data, out); err != nil {
		return fmt.Errorf("failed to decode %s data: %w", p.env.Type, err)
	}
	return nil
}

func (p *MoovParser) Mutations() ([]Mutation, error) {
	switch p.env.Type {
	case moovAccountCreated:
		var acct moovAccount
		if err := p.decodeData(&acct); err != nil {
			return nil, err
		}
		if acct.ForeignID == "" {
			return nil, nil
		}
		return []Mutation{{
			Kind:          MutationSetPayoutAccount,
			UserID:        acct.ForeignID,
			AccountID:     acct.AccountID,
			AccountStatus: acct.Status,
		}}, nil

	case moovTransferCompleted, moovTransferFailed:
		var tr moovTransfer
		if err := p.decodeData(&tr); err != nil {
			return nil, err
		}
		subID := tr.Metadata["subscriptionId"]
		if subID == "" {
			return nil, nil
		}
		at := p.created
		if p.env.Type == moovTransferFailed {
			reason := lo.Ternary(tr.FailureReason != "", tr.FailureReason, defaultFailureReason)
			patch := &models.SubscriptionPatch{
				Status:               lo.ToPtr(types.SubscriptionStatusPaymentFailed),
				PaymentStatus:        lo.ToPtr(types.PaymentStatusFailed),
				TransferID:           lo.ToPtr(tr.TransferID),
				FailureReason:        &reason,
				LastPaymentAttemptAt: &at,
				StatusUpdatedAt:      &at,
			}
			return []Mutation{{Kind: MutationUpdateSubscription, SubscriptionID: subID, Patch: patch}}, nil
		}

		patch := &models.SubscriptionPatch{
			Status:          lo.ToPtr(types.SubscriptionStatusActive),
			PaymentStatus:   lo.ToPtr(types.PaymentStatusCompleted),
			TransferID:      lo.ToPtr(tr.TransferID),
			LastPaymentAt:   &at,
			StatusUpdatedAt: &at,
		}
		rec := &models.PaymentRecord{
			TransferID:     lo.ToPtr(tr.TransferID),
			SubscriptionID: subID,
			Amount:         tr.Amount.Value,
			Currency:       tr.Amount.Currency,
			Status:         types.PaymentRecordStatusCompleted,
			CreatedAt:      at,
		}
		if uid := tr.Metadata["userId"]; uid != "" {
			rec.UserID = &uid
		}
		return []Mutation{
			{Kind: MutationUpdateSubscription, SubscriptionID: subID, Patch: patch},
			{Kind: MutationAppendPayment, SubscriptionID: subID, Payment: rec},
		}, nil

	case moovPaymentMethodCreated:
		// payment methods are stored client side
		return nil, nil
	}
	return nil, nil
}
