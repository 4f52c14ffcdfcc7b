package handlers

import (
	"github.com/getdigitalpayments/paybridge/internal/app/service/billing"
	"github.com/getdigitalpayments/paybridge/internal/app/service/paymentsheet"
	"github.com/getdigitalpayments/paybridge/internal/app/service/payout"
	"github.com/getdigitalpayments/paybridge/internal/app/service/statistics"
	"github.com/getdigitalpayments/paybridge/internal/platform/stripe/stripe_billing"
	"github.com/getdigitalpayments/paybridge/pkg/apperr"
	"github.com/getdigitalpayments/paybridge/pkg/response"
	"github.com/getdigitalpayments/paybridge/pkg/types"
)

// RespOK is a generic OK envelope for endpoints returning no specific data.
type RespOK struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    interface{}              `json:"data"`
}

// RespError is the failure envelope.
type RespError struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Kind    apperr.Kind              `json:"kind"`
	Data    interface{}              `json:"data"`
}

type RespMethodError struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Kind    apperr.Kind              `json:"kind"`
	Data    paymentsheet.MethodError `json:"data"`
}

type RespCreateCustomer struct {
	Code    response.APIResponseCode     `json:"code"`
	Message string                       `json:"message"`
	Data    billing.CreateCustomerResult `json:"data"`
}

type RespCreateSubscription struct {
	Code    response.APIResponseCode         `json:"code"`
	Message string                           `json:"message"`
	Data    billing.CreateSubscriptionResult `json:"data"`
}

type RespListSubscriptions struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []types.SubscriptionInfo `json:"data"`
}

type RespSuccess struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    billing.SuccessResult    `json:"data"`
}

type RespSetupIntent struct {
	Code    response.APIResponseCode  `json:"code"`
	Message string                    `json:"message"`
	Data    billing.SetupIntentResult `json:"data"`
}

type RespListPaymentMethods struct {
	Code    response.APIResponseCode       `json:"code"`
	Message string                         `json:"message"`
	Data    []stripe_billing.PaymentMethod `json:"data"`
}

type RespCreatePayoutAccount struct {
	Code    response.APIResponseCode   `json:"code"`
	Message string                     `json:"message"`
	Data    payout.CreateAccountResult `json:"data"`
}

type RespTransfer struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    payout.TransferResult    `json:"data"`
}

type RespListPayments struct {
	Code    response.APIResponseCode        `json:"code"`
	Message string                          `json:"message"`
	Data    statistics.ListPaymentsResponse `json:"data"`
}

// RespPaymentStatistic wraps PaymentStatisticResponse in the standard envelope.
type RespPaymentStatistic struct {
	Code    response.APIResponseCode            `json:"code"`
	Message string                              `json:"message"`
	Data    statistics.PaymentStatisticResponse `json:"data"`
}

type RespPlans struct {
	Code    response.APIResponseCode `json:"code"`
	Message string                   `json:"message"`
	Data    []types.Plan             `json:"data"`
}
