package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/app/service/billing"
)

// @Summary      Create billing customer
// @Description  Returns the caller's card-processor customer, creating it on first use.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing.CreateCustomerRequest true "Customer details"
// @Success      200  {object}  handlers.RespCreateCustomer
// @Failure      400  {object}  handlers.RespError
// @Failure      401  {object}  handlers.RespError
// @Router       /api/v1/billing/customers [post]
func ApiCreateCustomer(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.CreateCustomer)
}

// @Summary      Create subscription
// @Description  Starts an incomplete subscription and returns the secrets the payment sheet needs.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing.CreateSubscriptionRequest true "Customer and price"
// @Success      200  {object}  handlers.RespCreateSubscription
// @Failure      400  {object}  handlers.RespError
// @Failure      401  {object}  handlers.RespError
// @Router       /api/v1/billing/subscriptions [post]
func ApiCreateSubscription(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.CreateSubscription)
}

// @Summary      List subscriptions
// @Description  Lists the caller's subscriptions, newest first, as reported by the processor.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing.ListSubscriptionsRequest false "User id, defaults to the caller"
// @Success      200  {object}  handlers.RespListSubscriptions
// @Router       /api/v1/billing/subscriptions/list [post]
func ApiListSubscriptions(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.ListSubscriptions)
}

// @Summary      Cancel subscription
// @Description  Cancels renewal at the end of the current period.
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing.SubscriptionIDRequest true "Subscription id"
// @Success      200  {object}  handlers.RespSuccess
// @Router       /api/v1/billing/subscriptions/cancel [post]
func ApiCancelSubscription(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.CancelSubscription)
}

// @Summary      Change subscription price
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing.UpdateSubscriptionRequest true "Subscription and new price"
// @Success      200  {object}  handlers.RespSuccess
// @Router       /api/v1/billing/subscriptions/update [post]
func ApiUpdateSubscription(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.UpdateSubscription)
}

// @Summary      Create setup intent
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing.SetupIntentRequest true "Customer id"
// @Success      200  {object}  handlers.RespSetupIntent
// @Router       /api/v1/billing/setup_intents [post]
func ApiCreateSetupIntent(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.CreateSetupIntent)
}

// @Summary      List saved cards
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing.ListPaymentMethodsRequest false "User id, defaults to the caller"
// @Success      200  {object}  handlers.RespListPaymentMethods
// @Router       /api/v1/billing/payment_methods/list [post]
func ApiListPaymentMethods(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.ListPaymentMethods)
}

// @Summary      Delete saved card
// @Tags         Billing
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body billing.DeletePaymentMethodRequest true "Payment method id"
// @Success      200  {object}  handlers.RespSuccess
// @Router       /api/v1/billing/payment_methods/delete [post]
func ApiDeletePaymentMethod(svc *billing.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.DeletePaymentMethod)
}

func RegisterBillingRoutes(r gin.IRouter, svc *billing.Service, log *zap.SugaredLogger) {
	r.POST("/customers", ApiCreateCustomer(svc, log))
	r.POST("/subscriptions", ApiCreateSubscription(svc, log))
	r.POST("/subscriptions/list", ApiListSubscriptions(svc, log))
	r.POST("/subscriptions/cancel", ApiCancelSubscription(svc, log))
	r.POST("/subscriptions/update", ApiUpdateSubscription(svc, log))
	r.POST("/setup_intents", ApiCreateSetupIntent(svc, log))
	r.POST("/payment_methods/list", ApiListPaymentMethods(svc, log))
	r.POST("/payment_methods/delete", ApiDeletePaymentMethod(svc, log))
}
