package billing

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/store"
	"github.com/getdigitalpayments/paybridge/internal/platform/stripe/stripe_billing"
	"github.com/getdigitalpayments/paybridge/pkg/apperr"
	"github.com/getdigitalpayments/paybridge/pkg/auth"
	"github.com/getdigitalpayments/paybridge/pkg/config"
	"github.com/getdigitalpayments/paybridge/pkg/logctx"
	"github.com/getdigitalpayments/paybridge/pkg/types"
)

// listFetchConcurrency caps parallel processor reads in ListSubscriptions.
const listFetchConcurrency = 4

// Service runs the card subscription use cases. Each operation checks the
// caller, validates input, makes its remote call and then writes the store.
type Service struct {
	cfg     *config.Config
	store   store.Store
	billing stripe_billing.Billing
	log     *zap.SugaredLogger
}

func NewService(cfg *config.Config, st store.Store, billing stripe_billing.Billing, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, store: st, billing: billing, log: log}
}

type CreateCustomerRequest struct {
	Email  string `json:"email"`
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	UserID string `json:"userId"`
}

type CreateCustomerResult struct {
	CustomerID string `json:"customerId"`
}

type CreateSubscriptionRequest struct {
	CustomerID string `json:"customerId"`
	PriceID    string `json:"priceId"`
	UserID     string `json:"userId"`
}

type CreateSubscriptionResult struct {
	SubscriptionID string `json:"subscriptionId"`
	ClientSecret   string `json:"clientSecret"`
	EphemeralKey   string `json:"ephemeralKey"`
}

type ListSubscriptionsRequest struct {
	UserID string `json:"userId"`
}

type SubscriptionIDRequest struct {
	SubscriptionID string `json:"subscriptionId"`
}

type UpdateSubscriptionRequest struct {
	SubscriptionID string `json:"subscriptionId"`
	NewPriceID     string `json:"newPriceId"`
}

type SetupIntentRequest struct {
	CustomerID string `json:"customerId"`
}

type SetupIntentResult struct {
	ClientSecret string `json:"clientSecret"`
}

type ListPaymentMethodsRequest struct {
	UserID string `json:"userId"`
}

type DeletePaymentMethodRequest struct {
	PaymentMethodID string `json:"paymentMethodId"`
}

type SuccessResult struct {
	Success bool `json:"success"`
}

func (s *Service) internal(ctx context.Context, event, msg string, err error, kv ...any) error {
	return apperr.LogInternal(logctx.FromCtx(ctx, s.log), event, msg, err, kv...)
}

// CreateCustomer returns the caller's billing customer, creating it on first use.
func (s *Service) CreateCustomer(ctx context.Context, req *CreateCustomerRequest) (*CreateCustomerResult, error) {
	id, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := id.ResolveUser(req.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Email) == "" {
		return nil, apperr.InvalidArgument("email is required")
	}

	user, err := s.store.EnsureUser(ctx, userID, req.Email)
	if err != nil {
		return nil, s.internal(ctx, "billing_customer_lookup_failed", "Failed to create customer", err, "user_id", userID)
	}
	if user.HasBillingCustomer() {
		return &CreateCustomerResult{CustomerID: *user.BillingCustomerID}, nil
	}

	customerID, err := s.billing.CreateCustomer(ctx, stripe_billing.CustomerInput{
		UserID: userID,
		Email:  req.Email,
		Name:   req.Name,
		Phone:  req.Phone,
	})
	if err != nil {
		return nil, s.internal(ctx, "billing_customer_create_failed", "Failed to create customer", err, "user_id", userID)
	}
	if err := s.store.SetUserBillingCustomer(ctx, userID, customerID); err != nil {
		return nil, s.internal(ctx, "billing_customer_persist_failed", "Failed to create customer", err,
			"user_id", userID, "customer_id", customerID)
	}
	logctx.FromCtx(ctx, s.log).Infow("billing_customer_created", "user_id", userID, "customer_id", customerID)
	return &CreateCustomerResult{CustomerID: customerID}, nil
}

// CreateSubscription starts an incomplete subscription whose first invoice is
// confirmed by the mobile payment sheet.
func (s *Service) CreateSubscription(ctx context.Context, req *CreateSubscriptionRequest) (*CreateSubscriptionResult, error) {
	id, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := id.ResolveUser(req.UserID)
	if err != nil {
		return nil, err
	}
	if req.CustomerID == "" || req.PriceID == "" {
		return nil, apperr.InvalidArgument("customerId and priceId are required")
	}
	if len(s.cfg.Plans) > 0 {
		if _, err := s.cfg.GetPlanByPriceID(req.PriceID); err != nil {
			return nil, apperr.InvalidArgument("unknown priceId %q", req.PriceID)
		}
	}

	ephemeralKey, err := s.billing.CreateEphemeralKey(ctx, req.CustomerID)
	if err != nil {
		return nil, s.internal(ctx, "billing_ephemeral_key_failed", "Failed to create subscription", err, "customer_id", req.CustomerID)
	}
	created, err := s.billing.CreateSubscription(ctx, req.CustomerID, req.PriceID, userID)
	if err != nil {
		return nil, s.internal(ctx, "billing_subscription_create_failed", "Failed to create subscription", err, "customer_id", req.CustomerID)
	}

	sub := &models.Subscription{
		ID:                 created.ID,
		UserID:             userID,
		CustomerID:         req.CustomerID,
		PriceID:            req.PriceID,
		Status:             created.Status,
		CurrentPeriodStart: created.PeriodStartTime(),
		CurrentPeriodEnd:   created.PeriodEndTime(),
		CancelAtPeriodEnd:  created.CancelAtPeriodEnd,
		PaymentStatus:      types.PaymentStatusPending,
	}
	if created.Created > 0 {
		sub.CreatedAt = time.Unix(created.Created, 0).UTC()
	}
	if err := s.store.CreateSubscription(ctx, sub); err != nil {
		return nil, s.internal(ctx, "billing_subscription_persist_failed", "Failed to create subscription", err, "subscription_id", created.ID)
	}

	logctx.FromCtx(ctx, s.log).Infow("billing_subscription_created",
		"user_id", userID, "subscription_id", created.ID, "status", created.Status)
	return &CreateSubscriptionResult{
		SubscriptionID: created.ID,
		ClientSecret:   created.ClientSecret,
		EphemeralKey:   ephemeralKey,
	}, nil
}

// ListSubscriptions re-fetches every stored subscription of the user from the
// processor, newest first.
func (s *Service) ListSubscriptions(ctx context.Context, req *ListSubscriptionsRequest) ([]*types.SubscriptionInfo, error) {
	id, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := id.ResolveUser(req.UserID)
	if err != nil {
		return nil, err
	}

	ids, err := s.store.ListSubscriptionIDsByUser(ctx, userID)
	if err != nil {
		return nil, s.internal(ctx, "billing_subscription_list_failed", "Failed to get subscriptions", err, "user_id", userID)
	}

	out := make([]*types.SubscriptionInfo, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(listFetchConcurrency)
	for i, subID := range ids {
		g.Go(func() error {
			info, err := s.billing.GetSubscription(gctx, subID)
			if err != nil {
				return err
			}
			out[i] = info
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, s.internal(ctx, "billing_subscription_fetch_failed", "Failed to get subscriptions", err, "user_id", userID)
	}
	return out, nil
}

// CancelSubscription stops renewal at the end of the current period.
func (s *Service) CancelSubscription(ctx context.Context, req *SubscriptionIDRequest) (*SuccessResult, error) {
	if _, err := auth.Require(ctx); err != nil {
		return nil, err
	}
	if req.SubscriptionID == "" {
		return nil, apperr.InvalidArgument("subscriptionId is required")
	}

	info, err := s.billing.CancelAtPeriodEnd(ctx, req.SubscriptionID)
	if err != nil {
		return nil, s.internal(ctx, "billing_subscription_cancel_failed", "Failed to cancel subscription", err, "subscription_id", req.SubscriptionID)
	}
	cancel := true
	patch := &models.SubscriptionPatch{Status: &info.Status, CancelAtPeriodEnd: &cancel}
	if err := s.store.UpdateSubscription(ctx, req.SubscriptionID, patch); err != nil {
		return nil, s.internal(ctx, "billing_subscription_cancel_persist_failed", "Failed to cancel subscription", err, "subscription_id", req.SubscriptionID)
	}
	logctx.FromCtx(ctx, s.log).Infow("billing_subscription_canceled", "subscription_id", req.SubscriptionID, "status", info.Status)
	return &SuccessResult{Success: true}, nil
}

// UpdateSubscription moves the subscription to a new price with prorations.
func (s *Service) UpdateSubscription(ctx context.Context, req *UpdateSubscriptionRequest) (*SuccessResult, error) {
	if _, err := auth.Require(ctx); err != nil {
		return nil, err
	}
	if req.SubscriptionID == "" || req.NewPriceID == "" {
		return nil, apperr.InvalidArgument("subscriptionId and newPriceId are required")
	}
	if len(s.cfg.Plans) > 0 {
		if _, err := s.cfg.GetPlanByPriceID(req.NewPriceID); err != nil {
			return nil, apperr.InvalidArgument("unknown newPriceId %q", req.NewPriceID)
		}
	}

	info, err := s.billing.ChangePrice(ctx, req.SubscriptionID, req.NewPriceID)
	if err != nil {
		return nil, s.internal(ctx, "billing_subscription_update_failed", "Failed to update subscription", err, "subscription_id", req.SubscriptionID)
	}
	patch := &models.SubscriptionPatch{PriceID: &req.NewPriceID, Status: &info.Status}
	if err := s.store.UpdateSubscription(ctx, req.SubscriptionID, patch); err != nil {
		return nil, s.internal(ctx, "billing_subscription_update_persist_failed", "Failed to update subscription", err, "subscription_id", req.SubscriptionID)
	}
	logctx.FromCtx(ctx, s.log).Infow("billing_subscription_price_changed",
		"subscription_id", req.SubscriptionID, "price_id", req.NewPriceID, "status", info.Status)
	return &SuccessResult{Success: true}, nil
}

func (s *Service) CreateSetupIntent(ctx context.Context, req *SetupIntentRequest) (*SetupIntentResult, error) {
	if _, err := auth.Require(ctx); err != nil {
		return nil, err
	}
	if req.CustomerID == "" {
		return nil, apperr.InvalidArgument("customerId is required")
	}
	secret, err := s.billing.CreateSetupIntent(ctx, req.CustomerID)
	if err != nil {
		return nil, s.internal(ctx, "billing_setup_intent_failed", "Failed to create setup intent", err, "customer_id", req.CustomerID)
	}
	return &SetupIntentResult{ClientSecret: secret}, nil
}

// ListPaymentMethods returns the user's saved cards, or an empty list when the
// user has no billing customer yet.
func (s *Service) ListPaymentMethods(ctx context.Context, req *ListPaymentMethodsRequest) ([]stripe_billing.PaymentMethod, error) {
	id, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := id.ResolveUser(req.UserID)
	if err != nil {
		return nil, err
	}

	user, err := s.store.GetUser(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return []stripe_billing.PaymentMethod{}, nil
	}
	if err != nil {
		return nil, s.internal(ctx, "billing_payment_methods_lookup_failed", "Failed to get payment methods", err, "user_id", userID)
	}
	if !user.HasBillingCustomer() {
		return []stripe_billing.PaymentMethod{}, nil
	}

	methods, err := s.billing.ListCardPaymentMethods(ctx, *user.BillingCustomerID)
	if err != nil {
		return nil, s.internal(ctx, "billing_payment_methods_list_failed", "Failed to get payment methods", err, "user_id", userID)
	}
	if methods == nil {
		methods = []stripe_billing.PaymentMethod{}
	}
	return methods, nil
}

func (s *Service) DeletePaymentMethod(ctx context.Context, req *DeletePaymentMethodRequest) (*SuccessResult, error) {
	if _, err := auth.Require(ctx); err != nil {
		return nil, err
	}
	if req.PaymentMethodID == "" {
		return nil, apperr.InvalidArgument("paymentMethodId is required")
	}
	if err := s.billing.DetachPaymentMethod(ctx, req.PaymentMethodID); err != nil {
		return nil, s.internal(ctx, "billing_payment_method_detach_failed", "Failed to delete payment method", err, "payment_method_id", req.PaymentMethodID)
	}
	return &SuccessResult{Success: true}, nil
}
