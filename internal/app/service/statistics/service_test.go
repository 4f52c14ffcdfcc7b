package statistics

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/store/memstore"
	"github.com/getdigitalpayments/paybridge/pkg/apperr"
	"github.com/getdigitalpayments/paybridge/pkg/types"
)

func seed(t *testing.T) *memstore.Store {
	t.Helper()
	st := memstore.New()
	add := func(sub string, amount int64, currency string, status types.PaymentRecordStatus, at string) {
		ts, err := time.Parse(time.RFC3339, at)
		require.NoError(t, err)
		require.NoError(t, st.AppendPayment(context.Background(), &models.PaymentRecord{
			SubscriptionID: sub, Amount: amount, Currency: currency, Status: status, CreatedAt: ts,
		}))
	}
	add("S1", 999, "usd", types.PaymentRecordStatusSucceeded, "2025-01-01T10:00:00Z")
	add("S2", 1234, "USD", types.PaymentRecordStatusCompleted, "2025-01-01T23:59:59Z")
	add("S1", 500, "eur", types.PaymentRecordStatusSucceeded, "2025-01-02T08:00:00Z")
	add("S1", 999, "usd", types.PaymentRecordStatusFailed, "2025-01-02T09:00:00Z")
	add("S1", 999, "usd", types.PaymentRecordStatusSucceeded, "2025-02-01T00:00:00Z")
	return st
}

func TestGetPaymentStatistic(t *testing.T) {
	svc := New(seed(t))

	res, err := svc.GetPaymentStatistic(context.Background(), &PaymentStatisticRequest{
		From: "2025-01-01",
		To:   "2025-01-31",
		DataItems: []*PaymentStatisticDataItem{
			{ID: StatisticTypeDailyPaymentCount},
			{ID: StatisticTypeDailyFailedPaymentCount},
			{ID: StatisticTypeDailyAmount},
			{ID: StatisticTypeTotalAmount},
		},
	})
	require.NoError(t, err)

	require.Equal(t, []PaymentStatisticResponseDataItem{
		{Date: "2025-01-01", Value: 2},
		{Date: "2025-01-02", Value: 1},
	}, res.DataItems[StatisticTypeDailyPaymentCount])
	require.Equal(t, []PaymentStatisticResponseDataItem{
		{Date: "2025-01-02", Value: 1},
	}, res.DataItems[StatisticTypeDailyFailedPaymentCount])
	require.Equal(t, []PaymentStatisticResponseDataItem{
		{Date: "2025-01-01", Label: "USD", Value: 1234},
		{Date: "2025-01-01", Label: "usd", Value: 999},
		{Date: "2025-01-02", Label: "eur", Value: 500},
	}, res.DataItems[StatisticTypeDailyAmount])
	require.Equal(t, []PaymentStatisticResponseDataItem{
		{Label: "USD", Value: 1234},
		{Label: "eur", Value: 500},
		{Label: "usd", Value: 999},
	}, res.DataItems[StatisticTypeTotalAmount])
}

func TestGetPaymentStatistic_InvalidRequests(t *testing.T) {
	svc := New(seed(t))
	items := []*PaymentStatisticDataItem{{ID: StatisticTypeTotalAmount}}

	cases := map[string]*PaymentStatisticRequest{
		"no items":     {From: "2025-01-01", To: "2025-01-02"},
		"bad from":     {From: "01/01/2025", To: "2025-01-02", DataItems: items},
		"reversed":     {From: "2025-02-01", To: "2025-01-01", DataItems: items},
		"too long":     {From: "2020-01-01", To: "2025-01-01", DataItems: items},
		"unknown item": {From: "2025-01-01", To: "2025-01-02", DataItems: []*PaymentStatisticDataItem{{ID: "gmv"}}},
		"null item":    {From: "2025-01-01", To: "2025-01-02", DataItems: []*PaymentStatisticDataItem{nil}},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.GetPaymentStatistic(context.Background(), req)
			require.ErrorIs(t, err, apperr.ErrInvalidArgument)
		})
	}
}

func TestGetPaymentStatistic_NullItemFromJSON(t *testing.T) {
	var req PaymentStatisticRequest
	require.NoError(t, json.Unmarshal([]byte(`{"from":"2025-01-01","to":"2025-01-02","data_items":[null]}`), &req))

	_, err := New(seed(t)).GetPaymentStatistic(context.Background(), &req)
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
	require.Contains(t, err.Error(), "data_items[0] is null")
}

func TestListPayments(t *testing.T) {
	svc := New(seed(t))

	res, err := svc.ListPayments(context.Background(), &ListPaymentsRequest{SubscriptionID: "S1", Size: 2})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	require.Equal(t, "2025-02-01", res.Items[0].CreatedAt.Format(time.DateOnly))

	res, err = svc.ListPayments(context.Background(), &ListPaymentsRequest{SubscriptionID: "S9"})
	require.NoError(t, err)
	require.NotNil(t, res.Items)
	require.Empty(t, res.Items)

	_, err = svc.ListPayments(context.Background(), &ListPaymentsRequest{})
	require.ErrorIs(t, err, apperr.ErrInvalidArgument)
}
