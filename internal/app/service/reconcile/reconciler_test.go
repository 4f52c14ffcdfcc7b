package reconcile

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/samber/lo"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/app/service/webhook_log"
	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/store"
	"github.com/getdigitalpayments/paybridge/internal/platform/store/memstore"
	"github.com/getdigitalpayments/paybridge/internal/platform/stripe/stripe_webhook"
	"github.com/getdigitalpayments/paybridge/pkg/config"
	"github.com/getdigitalpayments/paybridge/pkg/types"
)

const testSecret = "whsec_test"

func newTestReconciler(t *testing.T) (*Reconciler, *memstore.Store, *webhook_log.Service) {
	t.Helper()
	st := memstore.New()
	logs := webhook_log.New(st, zap.NewNop().Sugar())
	cfg := &config.Config{Stripe: config.StripeConfig{WebhookSecret: testSecret}}
	r := NewReconciler(cfg, st, logs, zap.NewNop().Sugar())
	r.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return r, st, logs
}

func seedSubscription(t *testing.T, st store.Store, id string) {
	t.Helper()
	require.NoError(t, st.CreateSubscription(context.Background(), &models.Subscription{
		ID: id, UserID: "U1", Status: types.SubscriptionStatusIncomplete, PaymentStatus: types.PaymentStatusPending,
	}))
}

func signedStripe(t *testing.T, typ string, obj any) ([]byte, string) {
	t.Helper()
	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	payload, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        typ,
		"created":     1700000000,
		"api_version": stripe.APIVersion,
		"data":        map[string]json.RawMessage{"object": raw},
	})
	require.NoError(t, err)
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload: payload, Secret: testSecret, Timestamp: time.Now(),
	})
	return payload, sp.Header
}

func TestHandleStripe_RejectsBadSignature(t *testing.T) {
	r, st, logs := newTestReconciler(t)
	seedSubscription(t, st, "sub_1")
	payload, _ := signedStripe(t, "customer.subscription.deleted", map[string]any{"id": "sub_1", "status": "canceled"})

	err := r.HandleStripe(context.Background(), payload, "t=1,v1=bad")
	require.ErrorIs(t, err, stripe_webhook.ErrInvalidSignature)

	require.NoError(t, logs.Flush(context.Background()))
	require.Empty(t, st.WebhookLogs())
	sub, err := st.GetSubscription(context.Background(), "sub_1")
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusIncomplete, sub.Status)
}

func TestHandleStripe_SubscriptionReplayIsIdempotent(t *testing.T) {
	r, st, logs := newTestReconciler(t)
	ctx := context.Background()
	seedSubscription(t, st, "sub_1")
	payload, header := signedStripe(t, "customer.subscription.updated", map[string]any{
		"id": "sub_1", "status": "active", "cancel_at_period_end": false,
		"items": map[string]any{"data": []any{map[string]any{
			"current_period_start": 1700000000, "current_period_end": 1702592000,
		}}},
	})

	require.NoError(t, r.HandleStripe(ctx, payload, header))
	first, err := st.GetSubscription(ctx, "sub_1")
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusActive, first.Status)

	require.NoError(t, r.HandleStripe(ctx, payload, header))
	second, err := st.GetSubscription(ctx, "sub_1")
	require.NoError(t, err)
	require.Equal(t, first, second)

	require.NoError(t, logs.Flush(ctx))
	statuses := map[models.WebhookLogStatus]int{}
	for _, l := range st.WebhookLogs() {
		statuses[l.Status]++
	}
	require.Equal(t, map[models.WebhookLogStatus]int{
		models.WebhookLogStatusReceived: 2,
		models.WebhookLogStatusHandled:  2,
	}, statuses)
}

func TestHandleStripe_InvoiceAppendsPayment(t *testing.T) {
	r, st, _ := newTestReconciler(t)
	ctx := context.Background()
	payload, header := signedStripe(t, "invoice.payment_succeeded", map[string]any{
		"id": "in_1", "amount_paid": 999, "currency": "usd",
		"parent": map[string]any{"subscription_details": map[string]any{"subscription": "sub_1"}},
	})

	require.NoError(t, r.HandleStripe(ctx, payload, header))
	recs, err := st.ListPayments(ctx, store.PaymentQuery{SubscriptionID: "sub_1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, int64(999), recs[0].Amount)
	require.Equal(t, types.PaymentRecordStatusSucceeded, recs[0].Status)
}

func TestHandleStripe_ApplyFailureIsSwallowed(t *testing.T) {
	r, st, logs := newTestReconciler(t)
	payload, header := signedStripe(t, "customer.subscription.updated", map[string]any{"id": "sub_unknown", "status": "active"})

	require.NoError(t, r.HandleStripe(context.Background(), payload, header))
	require.NoError(t, logs.Flush(context.Background()))

	var failed []models.WebhookLog
	for _, l := range st.WebhookLogs() {
		if l.Status == models.WebhookLogStatusHandleFailed {
			failed = append(failed, l)
		}
	}
	require.Len(t, failed, 1)
	require.Equal(t, "evt_1", failed[0].EventID)
	require.Contains(t, string(*failed[0].Result), "not found")
}

func TestHandleMoov_TransferCompleted(t *testing.T) {
	r, st, _ := newTestReconciler(t)
	ctx := context.Background()
	seedSubscription(t, st, "S1")

	body := `{"type":"transfer.completed","data":{"transferID":"T1","amount":{"value":1234,"currency":"USD"},"metadata":{"subscriptionId":"S1","userId":"U1"}}}`
	require.NoError(t, r.HandleMoov(ctx, []byte(body)))

	sub, err := st.GetSubscription(ctx, "S1")
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusActive, sub.Status)
	require.Equal(t, types.PaymentStatusCompleted, sub.PaymentStatus)
	require.Equal(t, "T1", *sub.TransferID)
	require.Equal(t, r.now().UTC(), *sub.LastPaymentAt)

	recs, err := st.ListPayments(ctx, store.PaymentQuery{SubscriptionID: "S1"})
	require.NoError(t, err)
	require.Len(t, recs, 1)
	require.Equal(t, int64(1234), recs[0].Amount)
	require.Equal(t, "USD", recs[0].Currency)
	require.Equal(t, types.PaymentRecordStatusCompleted, recs[0].Status)
	require.Equal(t, "U1", *recs[0].UserID)
}

func TestHandleMoov_TransferFailed(t *testing.T) {
	r, st, _ := newTestReconciler(t)
	ctx := context.Background()
	seedSubscription(t, st, "S1")

	body := `{"type":"transfer.failed","data":{"transferID":"T2","metadata":{"subscriptionId":"S1"}}}`
	require.NoError(t, r.HandleMoov(ctx, []byte(body)))

	sub, err := st.GetSubscription(ctx, "S1")
	require.NoError(t, err)
	require.Equal(t, types.SubscriptionStatusPaymentFailed, sub.Status)
	require.Equal(t, types.PaymentStatusFailed, sub.PaymentStatus)
	require.Equal(t, "Payment failed", *sub.FailureReason)
	require.NotNil(t, sub.LastPaymentAttemptAt)
	require.Zero(t, st.PaymentCount())
}

func TestHandleMoov_AccountCreatedAndMalformed(t *testing.T) {
	r, st, _ := newTestReconciler(t)
	ctx := context.Background()

	require.NoError(t, r.HandleMoov(ctx, []byte(`{"type":"account.created","data":{"accountID":"acct_9","foreignId":"U9","status":"active"}}`)))
	u, err := st.GetUser(ctx, "U9")
	require.NoError(t, err)
	require.Equal(t, "acct_9", *u.PayoutAccountID)
	require.Equal(t, "active", u.PayoutAccountStatus)

	require.ErrorIs(t, r.HandleMoov(ctx, []byte(`{`)), ErrMalformedEvent)
}

func TestHandleMoov_UntypedEventIsIgnored(t *testing.T) {
	r, st, logs := newTestReconciler(t)
	ctx := context.Background()

	require.NoError(t, r.HandleMoov(ctx, []byte(`{"eventID":"e1","data":{}}`)))
	require.NoError(t, logs.Flush(ctx))

	rows := st.WebhookLogs()
	require.Len(t, rows, 2)
	handled, ok := lo.Find(rows, func(l models.WebhookLog) bool { return l.Status == models.WebhookLogStatusHandled })
	require.True(t, ok)
	require.Equal(t, "e1", handled.EventID)
	require.NotNil(t, handled.Result)
	require.Contains(t, string(*handled.Result), `"result":"ignored"`)
}

func TestApply_SkipsEmptyPatch(t *testing.T) {
	st := memstore.New()
	ctx := context.Background()

	// the subscription does not exist, so a store write would fail
	require.NoError(t, Apply(ctx, st, []Mutation{
		{Kind: MutationUpdateSubscription, SubscriptionID: "missing", Patch: &models.SubscriptionPatch{}},
		{Kind: MutationUpdateSubscription, SubscriptionID: "missing"},
	}))

	status := types.SubscriptionStatusActive
	require.Error(t, Apply(ctx, st, []Mutation{
		{Kind: MutationUpdateSubscription, SubscriptionID: "missing", Patch: &models.SubscriptionPatch{Status: &status}},
	}))
}
