// Package store defines persistence for users, subscriptions, payment records
// and webhook audit logs. Implementations live in the sub-packages.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/getdigitalpayments/paybridge/internal/models"
)

var ErrNotFound = errors.New("store: not found")

// PaymentQuery filters ListPayments. Zero values do not filter.
type PaymentQuery struct {
	SubscriptionID string
	From           time.Time
	To             time.Time
	Limit          int
}

// Store has no cross-document transactions; every method is one write or
// one read.
type Store interface {
	// GetUser returns ErrNotFound when the user has never been seen.
	GetUser(ctx context.Context, id string) (*models.User, error)
	// EnsureUser creates the user on first contact and returns the stored row.
	EnsureUser(ctx context.Context, id, email string) (*models.User, error)
	SetUserBillingCustomer(ctx context.Context, userID, customerID string) error
	SetUserPayoutAccount(ctx context.Context, userID, accountID, status string) error

	// CreateSubscription writes the initial snapshot, replacing any row with the same id.
	CreateSubscription(ctx context.Context, sub *models.Subscription) error
	GetSubscription(ctx context.Context, id string) (*models.Subscription, error)
	// ListSubscriptionIDsByUser returns ids newest first.
	ListSubscriptionIDsByUser(ctx context.Context, userID string) ([]string, error)
	// UpdateSubscription returns ErrNotFound when no subscription has that id.
	UpdateSubscription(ctx context.Context, id string, patch *models.SubscriptionPatch) error

	AppendPayment(ctx context.Context, rec *models.PaymentRecord) error
	// ListPayments returns records newest first.
	ListPayments(ctx context.Context, q PaymentQuery) ([]*models.PaymentRecord, error)

	SaveWebhookLog(ctx context.Context, log *models.WebhookLog) error
}
