package stripe_webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

const testSecret = "whsec_test"

func signed(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	sp := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   payload,
		Secret:    secret,
		Timestamp: time.Now(),
	})
	return sp.Header
}

func eventPayload(t *testing.T, typ string, obj any) []byte {
	t.Helper()
	raw, err := json.Marshal(obj)
	require.NoError(t, err)
	b, err := json.Marshal(map[string]any{
		"id":          "evt_1",
		"object":      "event",
		"type":        typ,
		"created":     1700000000,
		"api_version": stripe.APIVersion,
		"data":        map[string]json.RawMessage{"object": raw},
	})
	require.NoError(t, err)
	return b
}

func TestVerify(t *testing.T) {
	payload := eventPayload(t, "invoice.payment_succeeded", map[string]any{"id": "in_1"})

	ev, err := Verify(payload, signed(t, payload, testSecret), testSecret)
	require.NoError(t, err)
	require.Equal(t, "evt_1", ev.ID)
	require.Equal(t, stripe.EventType("invoice.payment_succeeded"), ev.Type)

	for name, header := range map[string]string{
		"wrong secret": signed(t, payload, "whsec_other"),
		"missing":      "",
		"garbage":      "t=1,v1=deadbeef",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := Verify(payload, header, testSecret)
			require.ErrorIs(t, err, ErrInvalidSignature)
		})
	}

	_, err = Verify(payload, signed(t, payload, testSecret), "")
	require.ErrorIs(t, err, ErrInvalidSignature)
}

func TestInvoice_SubscriptionID(t *testing.T) {
	cases := map[string]struct {
		raw  string
		want string
	}{
		"parent details": {raw: `{"id":"in_1","parent":{"subscription_details":{"subscription":"sub_new"}},"subscription":"sub_old"}`, want: "sub_new"},
		"legacy field":   {raw: `{"id":"in_1","subscription":"sub_old"}`, want: "sub_old"},
		"expanded":       {raw: `{"id":"in_1","subscription":{"id":"sub_obj"}}`, want: "sub_obj"},
		"none":           {raw: `{"id":"in_1","parent":{"subscription_details":null}}`, want: ""},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			var inv Invoice
			require.NoError(t, json.Unmarshal([]byte(tc.raw), &inv))
			require.Equal(t, tc.want, inv.SubscriptionID())
		})
	}
}

func TestSubscription_Period(t *testing.T) {
	var s Subscription
	require.NoError(t, json.Unmarshal([]byte(`{"id":"sub_1","current_period_start":1,"current_period_end":2,
		"items":{"data":[{"current_period_start":10,"current_period_end":20,"price":{"id":"price_m"}}]}}`), &s))
	start, end := s.Period()
	require.Equal(t, int64(10), start)
	require.Equal(t, int64(20), end)
	require.Equal(t, "price_m", s.PriceID())

	s = Subscription{CurrentPeriodStart: 1, CurrentPeriodEnd: 2}
	start, end = s.Period()
	require.Equal(t, int64(1), start)
	require.Equal(t, int64(2), end)
	require.Empty(t, s.PriceID())
}

func TestDecodeObject(t *testing.T) {
	require.Error(t, DecodeObject(&stripe.Event{}, &Invoice{}))

	ev := &stripe.Event{Type: "invoice.payment_failed", Data: &stripe.EventData{Raw: json.RawMessage(`{"id":"in_9","amount_due":500}`)}}
	var inv Invoice
	require.NoError(t, DecodeObject(ev, &inv))
	require.Equal(t, int64(500), inv.AmountDue)
}
