// Package paymentsheet serves the payment-sheet method channel: a method name
// plus an argument map in, a result value or a coded error out.
package paymentsheet

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/pkg/config"
	"github.com/getdigitalpayments/paybridge/pkg/logctx"
)

const (
	MethodInitializeGooglePay  = "initializeGooglePay"
	MethodIsGooglePayAvailable = "isGooglePayAvailable"
	MethodProcessGooglePayment = "processGooglePayment"

	CodeInvalidArguments = "INVALID_ARGUMENTS"
	CodeNotImplemented   = "NOT_IMPLEMENTED"
)

// MethodError is the (code, message) pair returned across the channel.
type MethodError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *MethodError) Error() string { return fmt.Sprintf("%s: %s", e.Code, e.Message) }

type methodFunc func(ctx context.Context, args map[string]any) (any, error)

type Bridge struct {
	cfg     config.GooglePayConfig
	methods map[string]methodFunc
	log     *zap.SugaredLogger
}

func New(cfg *config.Config, log *zap.SugaredLogger) *Bridge {
	b := &Bridge{cfg: cfg.GooglePay, log: log}
	b.methods = map[string]methodFunc{
		MethodInitializeGooglePay:  b.initialize,
		MethodIsGooglePayAvailable: b.isAvailable,
		MethodProcessGooglePayment: b.processPayment,
	}
	return b
}

// Methods lists the registered method names, sorted.
func (b *Bridge) Methods() []string {
	names := make([]string, 0, len(b.methods))
	for name := range b.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (b *Bridge) Invoke(ctx context.Context, method string, args map[string]any) (any, error) {
	fn, ok := b.methods[method]
	if !ok {
		return nil, &MethodError{Code: CodeNotImplemented, Message: fmt.Sprintf("method %q is not implemented", method)}
	}
	if args == nil {
		args = map[string]any{}
	}
	res, err := fn(ctx, args)
	if err != nil {
		logctx.FromCtx(ctx, b.log).Infow("payment_sheet_method_failed", "method", method, "err", err)
		return nil, err
	}
	return res, nil
}

func (b *Bridge) initialize(context.Context, map[string]any) (any, error) {
	return "Google Pay initialized", nil
}

func (b *Bridge) isAvailable(context.Context, map[string]any) (any, error) {
	return b.cfg.Enabled, nil
}

type ProcessPaymentResult struct {
	Success            bool                `json:"success"`
	PaymentDataRequest *PaymentDataRequest `json:"paymentDataRequest"`
	PaymentMethod      string              `json:"paymentMethod"`
	SubscriptionID     string              `json:"subscriptionId"`
}

func (b *Bridge) processPayment(_ context.Context, args map[string]any) (any, error) {
	amount, okAmount := args["amount"].(float64)
	currency, okCurrency := args["currency"].(string)
	subscriptionID, okSub := args["subscriptionId"].(string)
	if !okAmount || !okCurrency || !okSub {
		return nil, &MethodError{Code: CodeInvalidArguments, Message: "Missing required arguments"}
	}
	return &ProcessPaymentResult{
		Success:            true,
		PaymentDataRequest: b.paymentDataRequest(amount, currency),
		PaymentMethod:      "google_pay",
		SubscriptionID:     subscriptionID,
	}, nil
}

type PaymentDataRequest struct {
	APIVersion            int                 `json:"apiVersion"`
	APIVersionMinor       int                 `json:"apiVersionMinor"`
	AllowedPaymentMethods []CardPaymentMethod `json:"allowedPaymentMethods"`
	TransactionInfo       TransactionInfo     `json:"transactionInfo"`
	MerchantInfo          MerchantInfo        `json:"merchantInfo"`
}

type CardPaymentMethod struct {
	Type       string `json:"type"`
	Parameters struct {
		AllowedAuthMethods  []string `json:"allowedAuthMethods"`
		AllowedCardNetworks []string `json:"allowedCardNetworks"`
	} `json:"parameters"`
	TokenizationSpecification struct {
		Type       string            `json:"type"`
		Parameters map[string]string `json:"parameters"`
	} `json:"tokenizationSpecification"`
}

type TransactionInfo struct {
	TotalPrice       string `json:"totalPrice"`
	TotalPriceStatus string `json:"totalPriceStatus"`
	CurrencyCode     string `json:"currencyCode"`
}

type MerchantInfo struct {
	MerchantName string `json:"merchantName"`
}

func (b *Bridge) paymentDataRequest(amount float64, currency string) *PaymentDataRequest {
	card := CardPaymentMethod{Type: "CARD"}
	card.Parameters.AllowedAuthMethods = b.cfg.AllowedAuthMethods
	card.Parameters.AllowedCardNetworks = b.cfg.AllowedCardNetworks
	card.TokenizationSpecification.Type = "PAYMENT_GATEWAY"
	card.TokenizationSpecification.Parameters = map[string]string{
		"gateway":           b.cfg.Gateway,
		"gatewayMerchantId": b.cfg.GatewayMerchantID,
	}
	return &PaymentDataRequest{
		APIVersion:            2,
		APIVersionMinor:       0,
		AllowedPaymentMethods: []CardPaymentMethod{card},
		TransactionInfo: TransactionInfo{
			TotalPrice:       strconv.FormatFloat(amount, 'f', 2, 64),
			TotalPriceStatus: "FINAL",
			CurrencyCode:     currency,
		},
		MerchantInfo: MerchantInfo{MerchantName: b.cfg.MerchantName},
	}
}
