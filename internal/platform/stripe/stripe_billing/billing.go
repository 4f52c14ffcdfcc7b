// Package stripe_billing wraps the Stripe SDK calls the billing service makes.
// Every call goes through the shared retry policy; creation calls carry one
// idempotency key across attempts.
package stripe_billing

import (
	"context"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/client"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/pkg/config"
	"github.com/getdigitalpayments/paybridge/pkg/metrics"
	"github.com/getdigitalpayments/paybridge/pkg/retry"
	"github.com/getdigitalpayments/paybridge/pkg/tool"
	"github.com/getdigitalpayments/paybridge/pkg/types"
)

const processorName = "stripe"

// CustomerInput is the data sent when creating a billing customer.
type CustomerInput struct {
	UserID string
	Email  string
	Name   string
	Phone  string
}

// CreatedSubscription is a new subscription plus the secret the mobile
// payment sheet needs to confirm the first invoice.
type CreatedSubscription struct {
	types.SubscriptionInfo
	ClientSecret string
}

// PaymentMethod is a saved card.
type PaymentMethod struct {
	ID       string `json:"id"`
	Brand    string `json:"brand"`
	Last4    string `json:"last4"`
	ExpMonth int64  `json:"expMonth"`
	ExpYear  int64  `json:"expYear"`
}

// Billing is the subset of the card billing processor used by the service layer.
type Billing interface {
	CreateCustomer(ctx context.Context, in CustomerInput) (string, error)
	CreateEphemeralKey(ctx context.Context, customerID string) (string, error)
	CreateSubscription(ctx context.Context, customerID, priceID, userID string) (*CreatedSubscription, error)
	GetSubscription(ctx context.Context, id string) (*types.SubscriptionInfo, error)
	CancelAtPeriodEnd(ctx context.Context, id string) (*types.SubscriptionInfo, error)
	ChangePrice(ctx context.Context, id, newPriceID string) (*types.SubscriptionInfo, error)
	CreateSetupIntent(ctx context.Context, customerID string) (string, error)
	ListCardPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error)
	DetachPaymentMethod(ctx context.Context, id string) error
}

type Client struct {
	api              *client.API
	retry            *retry.Policy
	log              *zap.SugaredLogger
	ephemeralVersion string
}

// New builds a client with SDK-level retries disabled so that the shared
// policy is the only one in play.
func New(cfg *config.Config, policy *retry.Policy, log *zap.SugaredLogger) *Client {
	backendCfg := &stripe.BackendConfig{
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     log.With("component", "stripe_sdk"),
	}
	api := &client.API{}
	api.Init(cfg.Stripe.SecretKey, &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, backendCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, backendCfg),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, backendCfg),
	})
	return &Client{
		api:              api,
		retry:            policy,
		log:              log,
		ephemeralVersion: cfg.Stripe.EphemeralKeyVersion,
	}
}

// retryable treats transport failures, 429 and 5xx as transient.
func retryable(err error) bool {
	var se *stripe.Error
	if errors.As(err, &se) {
		if se.HTTPStatusCode == 0 {
			return true
		}
		return retry.RetryableStatus(se.HTTPStatusCode)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) call(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	start := time.Now()
	err := c.retry.Do(ctx, processorName+"."+name, retryable, fn)
	metrics.ObserveProcessorCall(processorName, name, start, err)
	return err
}

func (c *Client) CreateCustomer(ctx context.Context, in CustomerInput) (string, error) {
	key := tool.IdempotencyKey("cus-" + in.UserID)
	var id string
	err := c.call(ctx, "customers.create", func(ctx context.Context) error {
		params := &stripe.CustomerParams{
			Email: stripe.String(in.Email),
			Name:  stripe.String(in.Name),
			Phone: stripe.String(in.Phone),
		}
		params.Context = ctx
		params.AddMetadata("firebaseUserId", in.UserID)
		params.SetIdempotencyKey(key)
		cus, err := c.api.Customers.New(params)
		if err != nil {
			return err
		}
		id = cus.ID
		return nil
	})
	return id, err
}

func (c *Client) CreateEphemeralKey(ctx context.Context, customerID string) (string, error) {
	key := tool.IdempotencyKey("ephkey-" + customerID)
	var secret string
	err := c.call(ctx, "ephemeral_keys.create", func(ctx context.Context) error {
		params := &stripe.EphemeralKeyParams{
			Customer:      stripe.String(customerID),
			StripeVersion: stripe.String(c.ephemeralVersion),
		}
		params.Context = ctx
		params.SetIdempotencyKey(key)
		ek, err := c.api.EphemeralKeys.New(params)
		if err != nil {
			return err
		}
		secret = ek.Secret
		return nil
	})
	return secret, err
}

func (c *Client) CreateSubscription(ctx context.Context, customerID, priceID, userID string) (*CreatedSubscription, error) {
	key := tool.IdempotencyKey("sub-" + customerID)
	var out *CreatedSubscription
	err := c.call(ctx, "subscriptions.create", func(ctx context.Context) error {
		params := &stripe.SubscriptionParams{
			Customer: stripe.String(customerID),
			Items: []*stripe.SubscriptionItemsParams{
				{Price: stripe.String(priceID)},
			},
			PaymentBehavior: stripe.String("default_incomplete"),
			PaymentSettings: &stripe.SubscriptionPaymentSettingsParams{
				SaveDefaultPaymentMethod: stripe.String("on_subscription"),
			},
		}
		params.Context = ctx
		params.AddMetadata("firebaseUserId", userID)
		params.AddExpand("latest_invoice.confirmation_secret")
		params.SetIdempotencyKey(key)
		sub, err := c.api.Subscriptions.New(params)
		if err != nil {
			return err
		}
		out = &CreatedSubscription{SubscriptionInfo: *toInfo(sub)}
		if sub.LatestInvoice != nil && sub.LatestInvoice.ConfirmationSecret != nil {
			out.ClientSecret = sub.LatestInvoice.ConfirmationSecret.ClientSecret
		}
		return nil
	})
	return out, err
}

func (c *Client) GetSubscription(ctx context.Context, id string) (*types.SubscriptionInfo, error) {
	sub, err := c.getSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	return toInfo(sub), nil
}

func (c *Client) getSubscription(ctx context.Context, id string) (*stripe.Subscription, error) {
	var sub *stripe.Subscription
	err := c.call(ctx, "subscriptions.retrieve", func(ctx context.Context) error {
		params := &stripe.SubscriptionParams{}
		params.Context = ctx
		s, err := c.api.Subscriptions.Get(id, params)
		if err != nil {
			return err
		}
		sub = s
		return nil
	})
	return sub, err
}

func (c *Client) update(ctx context.Context, name, id string, build func() *stripe.SubscriptionParams) (*types.SubscriptionInfo, error) {
	var info *types.SubscriptionInfo
	err := c.call(ctx, name, func(ctx context.Context) error {
		params := build()
		params.Context = ctx
		sub, err := c.api.Subscriptions.Update(id, params)
		if err != nil {
			return err
		}
		info = toInfo(sub)
		return nil
	})
	return info, err
}

func (c *Client) CancelAtPeriodEnd(ctx context.Context, id string) (*types.SubscriptionInfo, error) {
	return c.update(ctx, "subscriptions.cancel_at_period_end", id, func() *stripe.SubscriptionParams {
		return &stripe.SubscriptionParams{CancelAtPeriodEnd: stripe.Bool(true)}
	})
}

// ChangePrice swaps the first item's price and prorates the difference.
func (c *Client) ChangePrice(ctx context.Context, id, newPriceID string) (*types.SubscriptionInfo, error) {
	sub, err := c.getSubscription(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Items == nil || len(sub.Items.Data) == 0 {
		return nil, errors.New("subscription has no items")
	}
	itemID := sub.Items.Data[0].ID
	return c.update(ctx, "subscriptions.change_price", id, func() *stripe.SubscriptionParams {
		return &stripe.SubscriptionParams{
			Items: []*stripe.SubscriptionItemsParams{
				{ID: stripe.String(itemID), Price: stripe.String(newPriceID)},
			},
			ProrationBehavior: stripe.String("create_prorations"),
		}
	})
}

func (c *Client) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	key := tool.IdempotencyKey("seti-" + customerID)
	var secret string
	err := c.call(ctx, "setup_intents.create", func(ctx context.Context) error {
		params := &stripe.SetupIntentParams{
			Customer:           stripe.String(customerID),
			PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
			Usage:              stripe.String("on_session"),
		}
		params.Context = ctx
		params.SetIdempotencyKey(key)
		si, err := c.api.SetupIntents.New(params)
		if err != nil {
			return err
		}
		secret = si.ClientSecret
		return nil
	})
	return secret, err
}

func (c *Client) ListCardPaymentMethods(ctx context.Context, customerID string) ([]PaymentMethod, error) {
	var out []PaymentMethod
	err := c.call(ctx, "payment_methods.list", func(ctx context.Context) error {
		out = out[:0]
		params := &stripe.PaymentMethodListParams{
			Customer: stripe.String(customerID),
			Type:     stripe.String("card"),
		}
		params.Context = ctx
		it := c.api.PaymentMethods.List(params)
		for it.Next() {
			if pm := toPaymentMethod(it.PaymentMethod()); pm != nil {
				out = append(out, *pm)
			}
		}
		return it.Err()
	})
	return out, err
}

func (c *Client) DetachPaymentMethod(ctx context.Context, id string) error {
	return c.call(ctx, "payment_methods.detach", func(ctx context.Context) error {
		params := &stripe.PaymentMethodDetachParams{}
		params.Context = ctx
		_, err := c.api.PaymentMethods.Detach(id, params)
		return err
	})
}

func toPaymentMethod(pm *stripe.PaymentMethod) *PaymentMethod {
	if pm == nil || pm.Card == nil {
		return nil
	}
	return &PaymentMethod{
		ID:       pm.ID,
		Brand:    string(pm.Card.Brand),
		Last4:    pm.Card.Last4,
		ExpMonth: pm.Card.ExpMonth,
		ExpYear:  pm.Card.ExpYear,
	}
}

// toInfo reads the period bounds from the first item; newer API versions
// no longer carry them on the subscription itself.
func toInfo(sub *stripe.Subscription) *types.SubscriptionInfo {
	info := &types.SubscriptionInfo{
		ID:                sub.ID,
		Status:            types.SubscriptionStatus(sub.Status),
		Created:           sub.Created,
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 {
		item := sub.Items.Data[0]
		info.CurrentPeriodStart = item.CurrentPeriodStart
		info.CurrentPeriodEnd = item.CurrentPeriodEnd
		if item.Price != nil {
			info.PriceID = item.Price.ID
		}
	}
	return info
}

var Module = fx.Options(
	fx.Provide(fx.Annotate(New, fx.As(new(Billing)))),
)
