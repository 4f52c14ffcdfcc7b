package paymentsheet

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/pkg/config"
)

func newBridge(enabled bool) *Bridge {
	return New(&config.Config{GooglePay: config.GooglePayConfig{
		Enabled:             enabled,
		Gateway:             "moov",
		GatewayMerchantID:   "merchant_1",
		MerchantName:        "XPay Digital Payments",
		AllowedCardNetworks: []string{"VISA", "MASTERCARD"},
		AllowedAuthMethods:  []string{"PAN_ONLY", "CRYPTOGRAM_3DS"},
	}}, zap.NewNop().Sugar())
}

func TestBridge_Methods(t *testing.T) {
	require.Equal(t, []string{"initializeGooglePay", "isGooglePayAvailable", "processGooglePayment"}, newBridge(true).Methods())
}

func TestBridge_InitializeAndAvailability(t *testing.T) {
	ctx := context.Background()

	res, err := newBridge(true).Invoke(ctx, MethodInitializeGooglePay, nil)
	require.NoError(t, err)
	require.Equal(t, "Google Pay initialized", res)

	res, err = newBridge(true).Invoke(ctx, MethodIsGooglePayAvailable, nil)
	require.NoError(t, err)
	require.Equal(t, true, res)

	res, err = newBridge(false).Invoke(ctx, MethodIsGooglePayAvailable, nil)
	require.NoError(t, err)
	require.Equal(t, false, res)
}

func TestBridge_ProcessGooglePayment(t *testing.T) {
	res, err := newBridge(true).Invoke(context.Background(), MethodProcessGooglePayment, map[string]any{
		"amount": 12.5, "currency": "USD", "subscriptionId": "S1",
	})
	require.NoError(t, err)

	b, err := json.Marshal(res)
	require.NoError(t, err)
	require.JSONEq(t, `{
		"success": true,
		"paymentMethod": "google_pay",
		"subscriptionId": "S1",
		"paymentDataRequest": {
			"apiVersion": 2,
			"apiVersionMinor": 0,
			"allowedPaymentMethods": [{
				"type": "CARD",
				"parameters": {
					"allowedAuthMethods": ["PAN_ONLY", "CRYPTOGRAM_3DS"],
					"allowedCardNetworks": ["VISA", "MASTERCARD"]
				},
				"tokenizationSpecification": {
					"type": "PAYMENT_GATEWAY",
					"parameters": {"gateway": "moov", "gatewayMerchantId": "merchant_1"}
				}
			}],
			"transactionInfo": {"totalPrice": "12.50", "totalPriceStatus": "FINAL", "currencyCode": "USD"},
			"merchantInfo": {"merchantName": "XPay Digital Payments"}
		}
	}`, string(b))
}

func TestBridge_Errors(t *testing.T) {
	bridge := newBridge(true)

	cases := map[string]map[string]any{
		"missing amount":   {"currency": "USD", "subscriptionId": "S1"},
		"amount as string": {"amount": "12.50", "currency": "USD", "subscriptionId": "S1"},
		"missing currency": {"amount": 1.0, "subscriptionId": "S1"},
		"missing sub":      {"amount": 1.0, "currency": "USD"},
		"no args":          nil,
	}
	for name, args := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := bridge.Invoke(context.Background(), MethodProcessGooglePayment, args)
			var me *MethodError
			require.ErrorAs(t, err, &me)
			require.Equal(t, CodeInvalidArguments, me.Code)
			require.Equal(t, "Missing required arguments", me.Message)
		})
	}

	_, err := bridge.Invoke(context.Background(), "loadPaymentData", nil)
	var me *MethodError
	require.ErrorAs(t, err, &me)
	require.Equal(t, CodeNotImplemented, me.Code)
}
