// Package gormstore implements store.Store on a relational database via gorm.
package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/store"
	"github.com/getdigitalpayments/paybridge/pkg/tool"
)

type Store struct {
	db  *gorm.DB
	now func() time.Time
}

func New(db *gorm.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

var _ store.Store = (*Store)(nil)

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&u).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &u, nil
}

func (s *Store) EnsureUser(ctx context.Context, id, email string) (*models.User, error) {
	now := s.now()
	u := &models.User{ID: id, Email: email, CreatedAt: now, UpdatedAt: now}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(u).Error; err != nil {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *Store) upsertUser(ctx context.Context, u *models.User, columns map[string]interface{}) error {
	now := s.now()
	u.CreatedAt, u.UpdatedAt = now, now
	columns["updated_at"] = now
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(columns),
	}).Create(u).Error
}

func (s *Store) SetUserBillingCustomer(ctx context.Context, userID, customerID string) error {
	u := &models.User{ID: userID, BillingCustomerID: &customerID}
	if err := s.upsertUser(ctx, u, map[string]interface{}{"billing_customer_id": customerID}); err != nil {
		return fmt.Errorf("failed to set billing customer: %w", err)
	}
	return nil
}

func (s *Store) SetUserPayoutAccount(ctx context.Context, userID, accountID, status string) error {
	u := &models.User{ID: userID, PayoutAccountID: &accountID, PayoutAccountStatus: status}
	err := s.upsertUser(ctx, u, map[string]interface{}{
		"payout_account_id":     accountID,
		"payout_account_status": status,
	})
	if err != nil {
		return fmt.Errorf("failed to set payout account: %w", err)
	}
	return nil
}

func (s *Store) CreateSubscription(ctx context.Context, sub *models.Subscription) error {
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(sub).Error; err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	var sub models.Subscription
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&sub).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return &sub, nil
}

func (s *Store) ListSubscriptionIDsByUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).Model(&models.Subscription{}).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Pluck("id", &ids).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions: %w", err)
	}
	return ids, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, id string, patch *models.SubscriptionPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	columns := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		columns[f.Column] = f.Value
	}
	res := s.db.WithContext(ctx).Model(&models.Subscription{}).Where("id = ?", id).Updates(columns)
	if res.Error != nil {
		return fmt.Errorf("failed to update subscription: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) AppendPayment(ctx context.Context, rec *models.PaymentRecord) error {
	if rec.ID == "" {
		rec.ID = tool.GenerateUUIDV7()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, q store.PaymentQuery) ([]*models.PaymentRecord, error) {
	tx := s.db.WithContext(ctx).Model(&models.PaymentRecord{})
	if q.SubscriptionID != "" {
		tx = tx.Where("subscription_id = ?", q.SubscriptionID)
	}
	if !q.From.IsZero() {
		tx = tx.Where("created_at >= ?", q.From)
	}
	if !q.To.IsZero() {
		tx = tx.Where("created_at < ?", q.To)
	}
	if q.Limit > 0 {
		tx = tx.Limit(q.Limit)
	}
	var out []*models.PaymentRecord
	if err := tx.Order("created_at DESC").Find(&out).Error; err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}
	return out, nil
}

func (s *Store) SaveWebhookLog(ctx context.Context, log *models.WebhookLog) error {
	if log.ID == "" {
		log.ID = tool.GenerateUUIDV7()
	}
	if err := s.db.WithContext(ctx).Create(log).Error; err != nil {
		return fmt.Errorf("failed to save webhook log: %w", err)
	}
	return nil
}
