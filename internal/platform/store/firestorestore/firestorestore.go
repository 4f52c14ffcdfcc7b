// Package firestorestore implements store.Store on Cloud Firestore, using the
// collection and field names the mobile app reads directly.
package firestorestore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/store"
	"github.com/getdigitalpayments/paybridge/pkg/config"
	"github.com/getdigitalpayments/paybridge/pkg/tool"
)

const (
	usersCollection         = "users"
	subscriptionsCollection = "subscriptions"
	paymentsCollection      = "payments"
	webhookLogsCollection   = "webhook_logs"
)

// NewClient opens a Firestore client from config.
func NewClient(ctx context.Context, cfg config.FirestoreConfig) (*firestore.Client, error) {
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("firestore project id not configured")
	}
	var opts []option.ClientOption
	if creds := strings.TrimSpace(cfg.CredentialsFile); creds != "" {
		opts = append(opts, option.WithCredentialsFile(creds))
	}
	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create firestore client: %w", err)
	}
	return client, nil
}

type Store struct {
	fs  *firestore.Client
	now func() time.Time
}

func New(fs *firestore.Client) *Store {
	return &Store{fs: fs, now: func() time.Time { return time.Now().UTC() }}
}

var _ store.Store = (*Store)(nil)

func isNotFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (s *Store) GetUser(ctx context.Context, id string) (*models.User, error) {
	snap, err := s.fs.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	var u models.User
	if err := snap.DataTo(&u); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	u.ID = snap.Ref.ID
	return &u, nil
}

func (s *Store) EnsureUser(ctx context.Context, id, email string) (*models.User, error) {
	now := s.now()
	_, err := s.fs.Collection(usersCollection).Doc(id).Create(ctx, &models.User{
		Email:     email,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil && status.Code(err) != codes.AlreadyExists {
		return nil, fmt.Errorf("failed to ensure user: %w", err)
	}
	return s.GetUser(ctx, id)
}

func (s *Store) mergeUser(ctx context.Context, userID string, fields map[string]interface{}) error {
	fields["updatedAt"] = s.now()
	_, err := s.fs.Collection(usersCollection).Doc(userID).Set(ctx, fields, firestore.MergeAll)
	return err
}

func (s *Store) SetUserBillingCustomer(ctx context.Context, userID, customerID string) error {
	if err := s.mergeUser(ctx, userID, map[string]interface{}{"stripeCustomerId": customerID}); err != nil {
		return fmt.Errorf("failed to set billing customer: %w", err)
	}
	return nil
}

func (s *Store) SetUserPayoutAccount(ctx context.Context, userID, accountID, accountStatus string) error {
	err := s.mergeUser(ctx, userID, map[string]interface{}{
		"moovAccountId":     accountID,
		"moovAccountStatus": accountStatus,
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
	if _, err := s.fs.Collection(subscriptionsCollection).Doc(sub.ID).Set(ctx, sub); err != nil {
		return fmt.Errorf("failed to create subscription: %w", err)
	}
	return nil
}

func (s *Store) GetSubscription(ctx context.Context, id string) (*models.Subscription, error) {
	snap, err := s.fs.Collection(subscriptionsCollection).Doc(id).Get(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, store.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	var sub models.Subscription
	if err := snap.DataTo(&sub); err != nil {
		return nil, fmt.Errorf("failed to decode subscription: %w", err)
	}
	sub.ID = snap.Ref.ID
	return &sub, nil
}

func (s *Store) ListSubscriptionIDsByUser(ctx context.Context, userID string) ([]string, error) {
	iter := s.fs.Collection(subscriptionsCollection).
		Where("userId", "==", userID).
		OrderBy("created", firestore.Desc).
		Select().
		Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		ids = append(ids, doc.Ref.ID)
	}
	return ids, nil
}

func (s *Store) UpdateSubscription(ctx context.Context, id string, patch *models.SubscriptionPatch) error {
	fields := patch.Fields()
	if len(fields) == 0 {
		return nil
	}
	updates := make([]firestore.Update, 0, len(fields))
	for _, f := range fields {
		updates = append(updates, firestore.Update{Path: f.DocField, Value: f.Value})
	}
	if _, err := s.fs.Collection(subscriptionsCollection).Doc(id).Update(ctx, updates); err != nil {
		if isNotFound(err) {
			return store.ErrNotFound
		}
		return fmt.Errorf("failed to update subscription: %w", err)
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
	if _, err := s.fs.Collection(paymentsCollection).Doc(rec.ID).Create(ctx, rec); err != nil {
		return fmt.Errorf("failed to append payment: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, q store.PaymentQuery) ([]*models.PaymentRecord, error) {
	query := s.fs.Collection(paymentsCollection).Query
	if q.SubscriptionID != "" {
		query = query.Where("subscriptionId", "==", q.SubscriptionID)
	}
	if !q.From.IsZero() {
		query = query.Where("created", ">=", q.From)
	}
	if !q.To.IsZero() {
		query = query.Where("created", "<", q.To)
	}
	query = query.OrderBy("created", firestore.Desc)
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()
	var out []*models.PaymentRecord
	for {
		doc, err := iter.Next()
		if errors.Is(err, iterator.Done) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to list payments: %w", err)
		}
		var rec models.PaymentRecord
		if err := doc.DataTo(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode payment %s: %w", doc.Ref.ID, err)
		}
		rec.ID = doc.Ref.ID
		out = append(out, &rec)
	}
	return out, nil
}

func (s *Store) SaveWebhookLog(ctx context.Context, log *models.WebhookLog) error {
	if log.ID == "" {
		log.ID = tool.GenerateUUIDV7()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = s.now()
	}
	if _, err := s.fs.Collection(webhookLogsCollection).Doc(log.ID).Set(ctx, log); err != nil {
		return fmt.Errorf("failed to save webhook log: %w", err)
	}
	return nil
}
