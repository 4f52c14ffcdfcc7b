// Package memstore is an in-process store.Store for development and tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/store"
	"github.com/getdigitalpayments/paybridge/pkg/tool"
)

type Store struct {
	mu            sync.RWMutex
	users         map[string]models.User
	subscriptions map[string]models.Subscription
	payments      []models.PaymentRecord
	webhookLogs   []models.WebhookLog
	now           func() time.Time
}

func New() *Store {
	return &Store{
		users:         map[string]models.User{},
		subscriptions: map[string]models.Subscription{},
		now:           func() time.Time { return time.Now().UTC() },
	}
}

var _ store.Store = (*Store)(nil)

func (s *Store) GetUser(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &u, nil
}

func (s *Store) EnsureUser(ctx context.Context, id, email string) (*models.User, error) {
	s.mu.Lock()
	if _, ok := s.users[id]; !ok {
		now := s.now()
		s.users[id] = models.User{ID: id, Email: email, CreatedAt: now, UpdatedAt: now}
	}
	s.mu.Unlock()
	return s.GetUser(ctx, id)
}

func (s *Store) mutateUser(id string, fn func(u *models.User)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	u, ok := s.users[id]
	if !ok {
		u = models.User{ID: id, CreatedAt: now}
	}
	fn(&u)
	u.UpdatedAt = now
	s.users[id] = u
}

func (s *Store) SetUserBillingCustomer(_ context.Context, userID, customerID string) error {
	s.mutateUser(userID, func(u *models.User) { u.BillingCustomerID = &customerID })
	return nil
}

func (s *Store) SetUserPayoutAccount(_ context.Context, userID, accountID, status string) error {
	s.mutateUser(userID, func(u *models.User) {
		u.PayoutAccountID = &accountID
		u.PayoutAccountStatus = status
	})
	return nil
}

func (s *Store) CreateSubscription(_ context.Context, sub *models.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now()
	}
	s.subscriptions[sub.ID] = *sub
	return nil
}

func (s *Store) GetSubscription(_ context.Context, id string) (*models.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &sub, nil
}

func (s *Store) ListSubscriptionIDsByUser(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	var subs []models.Subscription
	for _, sub := range s.subscriptions {
		if sub.UserID == userID {
			subs = append(subs, sub)
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(subs, func(i, j int) bool {
		if subs[i].CreatedAt.Equal(subs[j].CreatedAt) {
			return subs[i].ID > subs[j].ID
		}
		return subs[i].CreatedAt.After(subs[j].CreatedAt)
	})
	ids := make([]string, 0, len(subs))
	for _, sub := range subs {
		ids = append(ids, sub.ID)
	}
	return ids, nil
}

func (s *Store) UpdateSubscription(_ context.Context, id string, patch *models.SubscriptionPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subscriptions[id]
	if !ok {
		return store.ErrNotFound
	}
	patch.ApplyTo(&sub)
	s.subscriptions[id] = sub
	return nil
}

func (s *Store) AppendPayment(_ context.Context, rec *models.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if rec.ID == "" {
		rec.ID = tool.GenerateUUIDV7()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.payments = append(s.payments, *rec)
	return nil
}

func (s *Store) ListPayments(_ context.Context, q store.PaymentQuery) ([]*models.PaymentRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PaymentRecord
	for i := len(s.payments) - 1; i >= 0; i-- {
		rec := s.payments[i]
		if q.SubscriptionID != "" && rec.SubscriptionID != q.SubscriptionID {
			continue
		}
		if !q.From.IsZero() && rec.CreatedAt.Before(q.From) {
			continue
		}
		if !q.To.IsZero() && !rec.CreatedAt.Before(q.To) {
			continue
		}
		out = append(out, &rec)
		if q.Limit > 0 && len(out) == q.Limit {
			break
		}
	}
	return out, nil
}

func (s *Store) SaveWebhookLog(_ context.Context, log *models.WebhookLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if log.ID == "" {
		log.ID = tool.GenerateUUIDV7()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = s.now()
	}
	s.webhookLogs = append(s.webhookLogs, *log)
	return nil
}

// WebhookLogs returns a copy of the audit rows in insertion order.
func (s *Store) WebhookLogs() []models.WebhookLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.WebhookLog(nil), s.webhookLogs...)
}

// PaymentCount is the number of appended payment records.
func (s *Store) PaymentCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.payments)
}
