package billing

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/store/memstore"
	"github.com/getdigitalpayments/paybridge/internal/platform/stripe/stripe_billing"
	"github.com/getdigitalpayments/paybridge/pkg/apperr"
	"github.com/getdigitalpayments/paybridge/pkg/auth"
	"github.com/getdigitalpayments/paybridge/pkg/config"
	"github.com/getdigitalpayments/paybridge/pkg/types"
)

type fakeBilling struct {
	mu          sync.Mutex
	inFlight    int
	maxInFlight int
	getDelay    time.Duration

	calls      []string
	customerID string
	subs       map[string]*types.SubscriptionInfo
	methods    []stripe_billing.PaymentMethod
	err        error
}

func newFakeBilling() *fakeBilling {
	return &fakeBilling{customerID: "cus_new", subs: map[string]*types.SubscriptionInfo{}}
}

func (f *fakeBilling) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.err
}

func (f *fakeBilling) CreateCustomer(ctx context.Context, in stripe_billing.CustomerInput) (string, error) {
	if err := f.record("CreateCustomer"); err != nil {
		return "", err
	}
	return f.customerID, nil
}

func (f *fakeBilling) CreateEphemeralKey(ctx context.Context, customerID string) (string, error) {
	if err := f.record("CreateEphemeralKey"); err != nil {
		return "", err
	}
	return "ek_secret", nil
}

func (f *fakeBilling) CreateSubscription(ctx context.Context, customerID, priceID, userID string) (*stripe_billing.CreatedSubscription, error) {
	if err := f.record("CreateSubscription"); err != nil {
		return nil, err
	}
	info := types.SubscriptionInfo{
		ID: "sub_1", Status: types.SubscriptionStatusIncomplete, PriceID: priceID,
		CurrentPeriodStart: 1700000000, CurrentPeriodEnd: 1702592000, Created: 1700000000,
	}
	f.subs[info.ID] = &info
	return &stripe_billing.CreatedSubscription{SubscriptionInfo: info, ClientSecret: "pi_secret"}, nil
}

func (f *fakeBilling) GetSubscription(ctx context.Context, id string) (*types.SubscriptionInfo, error) {
	if err := f.record("GetSubscription"); err != nil {
		return nil, err
	}
	f.mu.Lock()
	f.inFlight++
	f.maxInFlight = max(f.maxInFlight, f.inFlight)
	f.mu.Unlock()
	defer func() {
		f.mu.Lock()
		f.inFlight--
		f.mu.Unlock()
	}()
	time.Sleep(f.getDelay)

	if s, ok := f.subs[id]; ok {
		return s, nil
	}
	return nil, errors.New("no such subscription")
}

func (f *fakeBilling) CancelAtPeriodEnd(ctx context.Context, id string) (*types.SubscriptionInfo, error) {
	if err := f.record("CancelAtPeriodEnd"); err != nil {
		return nil, err
	}
	return &types.SubscriptionInfo{ID: id, Status: types.SubscriptionStatusActive, CancelAtPeriodEnd: true}, nil
}

func (f *fakeBilling) ChangePrice(ctx context.Context, id, newPriceID string) (*types.SubscriptionInfo, error) {
	if err := f.record("ChangePrice"); err != nil {
		return nil, err
	}
	return &types.SubscriptionInfo{ID: id, Status: types.SubscriptionStatusActive, PriceID: newPriceID}, nil
}

func (f *fakeBilling) CreateSetupIntent(ctx context.Context, customerID string) (string, error) {
	if err := f.record("CreateSetupIntent"); err != nil {
		return "", err
	}
	return "seti_secret", nil
}

func (f *fakeBilling) ListCardPaymentMethods(ctx context.Context, customerID string) ([]stripe_billing.PaymentMethod, error) {
	if err := f.record("ListCardPaymentMethods"); err != nil {
		return nil, err
	}
	return f.methods, nil
}

func (f *fakeBilling) DetachPaymentMethod(ctx context.Context, id string) error {
	return f.record("DetachPaymentMethod")
}

func newTestService(t *testing.T) (*Service, *memstore.Store, *fakeBilling) {
	t.Helper()
	st := memstore.New()
	fb := newFakeBilling()
	cfg := &config.Config{Plans: []*types.Plan{{ID: "basic", PriceID: "price_basic"}, {ID: "pro", PriceID: "price_pro"}}}
	return NewService(cfg, st, fb, zap.NewNop().Sugar()), st, fb
}

func authed(uid string) context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{UID: uid})
}

func TestCreateCustomer_Idempotent(t *testing.T) {
	svc, st, fb := newTestService(t)
	ctx := authed("U1")

	res, err := svc.CreateCustomer(ctx, &CreateCustomerRequest{Email: "a@b.c", UserID: "U1"})
	require.NoError(t, err)
	require.Equal(t, "cus_new", res.CustomerID)

	res, err = svc.CreateCustomer(ctx, &CreateCustomerRequest{Email: "a@b.c"})
	require.NoError(t, err)
	require.Equal(t, "cus_new", res.CustomerID)
	require.Equal(t, []string{"CreateCustomer"}, fb.calls)

	u, err := st.GetUser(ctx, "U1")
	require.NoError(t, err)
	require.Equal(t, "cus_new", *u.BillingCustomerID)
}

func TestCreateCustomer_ExistingReferenceSkipsRemote(t *testing.T) {
	svc, st, fb := newTestService(t)
	require.NoError(t, st.SetUserBillingCustomer(context.Background(), "U1", "cus_C1"))

	res, err := svc.CreateCustomer(authed("U1"), &CreateCustomerRequest{Email: "a@b.c", UserID: "U1"})
	require.NoError(t, err)
	require.Equal(t, "cus_C1", res.CustomerID)
	require.Empty(t, fb.calls)
}

func TestOperations_RejectUnauthenticated(t *testing.T) {
	svc, st, fb := newTestService(t)
	ctx := context.Background()

	ops := map[string]func() error{
		"create customer": func() error {
			_, err := svc.CreateCustomer(ctx, &CreateCustomerRequest{Email: "a@b.c", UserID: "U1"})
			return err
		},
		"create subscription": func() error {
			_, err := svc.CreateSubscription(ctx, &CreateSubscriptionRequest{CustomerID: "cus_1", PriceID: "price_basic"})
			return err
		},
		"list subscriptions": func() error {
			_, err := svc.ListSubscriptions(ctx, &ListSubscriptionsRequest{UserID: "U1"})
			return err
		},
		"cancel": func() error {
			_, err := svc.CancelSubscription(ctx, &SubscriptionIDRequest{SubscriptionID: "sub_1"})
			return err
		},
		"update": func() error {
			_, err := svc.UpdateSubscription(ctx, &UpdateSubscriptionRequest{SubscriptionID: "sub_1", NewPriceID: "price_pro"})
			return err
		},
		"setup intent": func() error {
			_, err := svc.CreateSetupIntent(ctx, &SetupIntentRequest{CustomerID: "cus_1"})
			return err
		},
		"list payment methods": func() error {
			_, err := svc.ListPaymentMethods(ctx, &ListPaymentMethodsRequest{UserID: "U1"})
			return err
		},
		"delete payment method": func() error {
			_, err := svc.DeletePaymentMethod(ctx, &DeletePaymentMethodRequest{PaymentMethodID: "pm_1"})
			return err
		},
	}
	for name, op := range ops {
		t.Run(name, func(t *testing.T) {
			require.ErrorIs(t, op(), apperr.ErrUnauthenticated)
		})
	}
	require.Empty(t, fb.calls)
	_, err := st.GetUser(ctx, "U1")
	require.Error(t, err)
}

func TestCreateSubscription(t *testing.T) {
	svc, st, fb := newTestService(t)
	ctx := authed("U1")

	res, err := svc.CreateSubscription(ctx, &CreateSubscriptionRequest{CustomerID: "cus_1", PriceID: "price_basic", UserID: "U1"})
	require.NoError(t, err)
	require.Equal(t, CreateSubscriptionResult{SubscriptionID: "sub_1", ClientSecret: "pi_secret", EphemeralKey: "ek_secret"}, *res)
	require.Equal(t, []string{"CreateEphemeralKey", "CreateSubscription"}, fb.calls)

	sub, err := st.GetSubscription(ctx, "sub_1")
	require.NoError(t, err)
	require.Equal(t, "U1", sub.UserID)
	require.Equal(t, types.SubscriptionStatusIncomplete, sub.Status)
	require.Equal(t, types.PaymentStatusPending, sub.PaymentStatus)
	require.Equal(t, int64(1702592000), sub.CurrentPeriodEnd.Unix())
	require.Equal(t, int64(1700000000), sub.CreatedAt.Unix())
}

func TestCreateSubscription_InvalidArguments(t *testing.T) {
	svc, _, fb := newTestService(t)
	ctx := authed("U1")

	cases := map[string]*CreateSubscriptionRequest{
		"missing price":  {CustomerID: "cus_1"},
		"unknown price":  {CustomerID: "cus_1", PriceID: "price_gold"},
		"someone else":   {CustomerID: "cus_1", PriceID: "price_basic", UserID: "U2"},
		"missing client": {PriceID: "price_basic"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.CreateSubscription(ctx, req)
			require.ErrorIs(t, err, apperr.ErrInvalidArgument)
		})
	}
	require.Empty(t, fb.calls)
}

func TestCreateSubscription_RemoteFailureIsInternal(t *testing.T) {
	svc, st, fb := newTestService(t)
	fb.err = errors.New("card processor down: secret detail")

	_, err := svc.CreateSubscription(authed("U1"), &CreateSubscriptionRequest{CustomerID: "cus_1", PriceID: "price_basic"})
	require.ErrorIs(t, err, apperr.ErrInternal)
	require.NotContains(t, err.Error(), "secret detail")

	ids, err := st.ListSubscriptionIDsByUser(context.Background(), "U1")
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestListSubscriptions_NewestFirst(t *testing.T) {
	svc, st, fb := newTestService(t)
	ctx := authed("U1")
	_, err := svc.CreateSubscription(ctx, &CreateSubscriptionRequest{CustomerID: "cus_1", PriceID: "price_basic"})
	require.NoError(t, err)
	fb.subs["sub_0"] = &types.SubscriptionInfo{ID: "sub_0", Status: types.SubscriptionStatusCanceled}
	require.NoError(t, st.CreateSubscription(ctx, &models.Subscription{ID: "sub_0", UserID: "U1"}))

	list, err := svc.ListSubscriptions(ctx, &ListSubscriptionsRequest{})
	require.NoError(t, err)
	require.Len(t, list, 2)
	// sub_0 was stored later with a wall-clock creation time.
	require.Equal(t, "sub_0", list[0].ID)
	require.Equal(t, types.SubscriptionStatusCanceled, list[0].Status)
	require.Equal(t, "sub_1", list[1].ID)
}

func TestListSubscriptions_BoundedFanOut(t *testing.T) {
	svc, st, fb := newTestService(t)
	ctx := authed("U1")
	fb.getDelay = 5 * time.Millisecond
	for i := 0; i < 3*listFetchConcurrency; i++ {
		id := fmt.Sprintf("sub_%02d", i)
		fb.subs[id] = &types.SubscriptionInfo{ID: id, Status: types.SubscriptionStatusActive}
		require.NoError(t, st.CreateSubscription(ctx, &models.Subscription{ID: id, UserID: "U1"}))
	}

	list, err := svc.ListSubscriptions(ctx, &ListSubscriptionsRequest{})
	require.NoError(t, err)
	require.Len(t, list, 3*listFetchConcurrency)
	require.LessOrEqual(t, fb.maxInFlight, listFetchConcurrency)
	require.GreaterOrEqual(t, fb.maxInFlight, 1)
}

func TestCancelAndUpdateSubscription(t *testing.T) {
	svc, st, _ := newTestService(t)
	ctx := authed("U1")
	_, err := svc.CreateSubscription(ctx, &CreateSubscriptionRequest{CustomerID: "cus_1", PriceID: "price_basic"})
	require.NoError(t, err)

	res, err := svc.CancelSubscription(ctx, &SubscriptionIDRequest{SubscriptionID: "sub_1"})
	require.NoError(t, err)
	require.True(t, res.Success)

	res, err = svc.UpdateSubscription(ctx, &UpdateSubscriptionRequest{SubscriptionID: "sub_1", NewPriceID: "price_pro"})
	require.NoError(t, err)
	require.True(t, res.Success)

	sub, err := st.GetSubscription(ctx, "sub_1")
	require.NoError(t, err)
	require.True(t, sub.CancelAtPeriodEnd)
	require.Equal(t, "price_pro", sub.PriceID)
	require.Equal(t, types.SubscriptionStatusActive, sub.Status)
}

func TestCancelSubscription_UnknownLocally(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.CancelSubscription(authed("U1"), &SubscriptionIDRequest{SubscriptionID: "sub_missing"})
	require.ErrorIs(t, err, apperr.ErrInternal)
}

func TestListPaymentMethods(t *testing.T) {
	svc, st, fb := newTestService(t)
	ctx := authed("U1")

	methods, err := svc.ListPaymentMethods(ctx, &ListPaymentMethodsRequest{})
	require.NoError(t, err)
	require.NotNil(t, methods)
	require.Empty(t, methods)
	require.Empty(t, fb.calls)

	require.NoError(t, st.SetUserBillingCustomer(ctx, "U1", "cus_1"))
	fb.methods = []stripe_billing.PaymentMethod{{ID: "pm_1", Brand: "visa", Last4: "4242", ExpMonth: 1, ExpYear: 2030}}
	methods, err = svc.ListPaymentMethods(ctx, &ListPaymentMethodsRequest{UserID: "U1"})
	require.NoError(t, err)
	require.Equal(t, fb.methods, methods)
}

func TestSetupIntentAndDetach(t *testing.T) {
	svc, _, fb := newTestService(t)
	ctx := authed("U1")

	_, err := svc.CreateSetupIntent(ctx, &SetupIntentRequest{})
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)

	si, err := svc.CreateSetupIntent(ctx, &SetupIntentRequest{CustomerID: "cus_1"})
	require.NoError(t, err)
	require.Equal(t, "seti_secret", si.ClientSecret)

	res, err := svc.DeletePaymentMethod(ctx, &DeletePaymentMethodRequest{PaymentMethodID: "pm_1"})
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, []string{"CreateSetupIntent", "DetachPaymentMethod"}, fb.calls)
}
