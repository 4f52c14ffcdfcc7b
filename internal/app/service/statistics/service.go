package statistics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/samber/lo"

	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/store"
	"github.com/getdigitalpayments/paybridge/pkg/apperr"
	"github.com/getdigitalpayments/paybridge/pkg/types"
)

type StatisticType string

const (
	StatisticTypeDailyPaymentCount       StatisticType = "daily_payment_count"
	StatisticTypeDailyFailedPaymentCount StatisticType = "daily_failed_payment_count"
	StatisticTypeDailyAmount             StatisticType = "daily_amount"
	StatisticTypeTotalAmount             StatisticType = "total_amount"
)

const maxRangeDays = 366

type PaymentStatisticDataItem struct {
	ID StatisticType `json:"id"`
}

// PaymentStatisticRequest covers [From, To] inclusive, both YYYY-MM-DD in UTC.
type PaymentStatisticRequest struct {
	From           string                      `json:"from"`
	To             string                      `json:"to"`
	SubscriptionID string                      `json:"subscription_id"`
	DataItems      []*PaymentStatisticDataItem `json:"data_items"`
}

type PaymentStatisticResponseDataItem struct {
	Date  string `json:"date,omitempty"`
	Label string `json:"label,omitempty"`
	Value int64  `json:"value"`
}

type PaymentStatisticResponse struct {
	DataItems map[StatisticType][]PaymentStatisticResponseDataItem `json:"data_items"`
}

type ListPaymentsRequest struct {
	SubscriptionID string `json:"subscription_id"`
	Size           int    `json:"size"`
}

type ListPaymentsResponse struct {
	Items []*models.PaymentRecord `json:"items"`
}

// Service aggregates the payment log for the admin endpoints.
type Service struct {
	store store.Store
}

func New(st store.Store) *Service { return &Service{store: st} }

// ListPayments returns the newest payments of one subscription.
func (s *Service) ListPayments(ctx context.Context, req *ListPaymentsRequest) (*ListPaymentsResponse, error) {
	if req.SubscriptionID == "" {
		return nil, apperr.InvalidArgument("subscription_id is required")
	}
	size := req.Size
	if size <= 0 || size > 200 {
		size = 50
	}
	items, err := s.store.ListPayments(ctx, store.PaymentQuery{SubscriptionID: req.SubscriptionID, Limit: size})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	if items == nil {
		items = []*models.PaymentRecord{}
	}
	return &ListPaymentsResponse{Items: items}, nil
}

func parseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(time.DateOnly, from)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.InvalidArgument("from must be YYYY-MM-DD")
	}
	end, err := time.Parse(time.DateOnly, to)
	if err != nil {
		return time.Time{}, time.Time{}, apperr.InvalidArgument("to must be YYYY-MM-DD")
	}
	end = end.AddDate(0, 0, 1)
	if !end.After(start) {
		return time.Time{}, time.Time{}, apperr.InvalidArgument("to is before from")
	}
	if end.Sub(start) > maxRangeDays*24*time.Hour {
		return time.Time{}, time.Time{}, apperr.InvalidArgument("range exceeds %d days", maxRangeDays)
	}
	return start, end, nil
}

func settled(p *models.PaymentRecord) bool {
	return p.Status == types.PaymentRecordStatusSucceeded || p.Status == types.PaymentRecordStatusCompleted
}

func day(p *models.PaymentRecord) string { return p.CreatedAt.UTC().Format(time.DateOnly) }

func dailyCount(payments []*models.PaymentRecord) []PaymentStatisticResponseDataItem {
	byDay := lo.CountValuesBy(payments, day)
	out := lo.MapToSlice(byDay, func(d string, n int) PaymentStatisticResponseDataItem {
		return PaymentStatisticResponseDataItem{Date: d, Value: int64(n)}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

func sumByCurrency(payments []*models.PaymentRecord, key func(*models.PaymentRecord) string) []PaymentStatisticResponseDataItem {
	groups := lo.GroupBy(payments, func(p *models.PaymentRecord) lo.Tuple2[string, string] {
		return lo.T2(key(p), p.Currency)
	})
	out := lo.MapToSlice(groups, func(k lo.Tuple2[string, string], ps []*models.PaymentRecord) PaymentStatisticResponseDataItem {
		return PaymentStatisticResponseDataItem{
			Date:  k.A,
			Label: k.B,
			Value: lo.SumBy(ps, func(p *models.PaymentRecord) int64 { return p.Amount }),
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func compute(id StatisticType, payments []*models.PaymentRecord) ([]PaymentStatisticResponseDataItem, error) {
	switch id {
	case StatisticTypeDailyPaymentCount:
		return dailyCount(lo.Filter(payments, func(p *models.PaymentRecord, _ int) bool { return settled(p) })), nil
	case StatisticTypeDailyFailedPaymentCount:
		return dailyCount(lo.Filter(payments, func(p *models.PaymentRecord, _ int) bool { return !settled(p) })), nil
	case StatisticTypeDailyAmount:
		return sumByCurrency(lo.Filter(payments, func(p *models.PaymentRecord, _ int) bool { return settled(p) }), day), nil
	case StatisticTypeTotalAmount:
		return sumByCurrency(lo.Filter(payments, func(p *models.PaymentRecord, _ int) bool { return settled(p) }),
			func(*models.PaymentRecord) string { return "" }), nil
	default:
		return nil, apperr.InvalidArgument("invalid data item id: %s", id)
	}
}

// GetPaymentStatistic reads the payment log once for the range and computes
// every requested data item from it.
func (s *Service) GetPaymentStatistic(ctx context.Context, req *PaymentStatisticRequest) (*PaymentStatisticResponse, error) {
	if len(req.DataItems) == 0 {
		return nil, apperr.InvalidArgument("data_items is required")
	}
	for i, item := range req.DataItems {
		if item == nil {
			return nil, apperr.InvalidArgument("data_items[%d] is null", i)
		}
	}
	from, to, err := parseRange(req.From, req.To)
	if err != nil {
		return nil, err
	}

	payments, err := s.store.ListPayments(ctx, store.PaymentQuery{SubscriptionID: req.SubscriptionID, From: from, To: to})
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	results := make(map[StatisticType][]PaymentStatisticResponseDataItem, len(req.DataItems))
	for _, item := range req.DataItems {
		res, err := compute(item.ID, payments)
		if err != nil {
			return nil, err
		}
		results[item.ID] = res
	}
	return &PaymentStatisticResponse{DataItems: results}, nil
}
