package payout

import (
	"context"
	"math"
	"strings"

	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/platform/moov/moov_transfer"
	"github.com/getdigitalpayments/paybridge/internal/platform/store"
	"github.com/getdigitalpayments/paybridge/pkg/apperr"
	"github.com/getdigitalpayments/paybridge/pkg/auth"
	"github.com/getdigitalpayments/paybridge/pkg/config"
	"github.com/getdigitalpayments/paybridge/pkg/logctx"
)

// Service creates payout accounts and pulls subscription payments through
// the transfer processor.
type Service struct {
	cfg     *config.Config
	store   store.Store
	payouts moov_transfer.Payouts
	log     *zap.SugaredLogger
}

func NewService(cfg *config.Config, st store.Store, payouts moov_transfer.Payouts, log *zap.SugaredLogger) *Service {
	return &Service{cfg: cfg, store: st, payouts: payouts, log: log}
}

type CreateAccountRequest struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
	UserID    string `json:"userId"`
}

type CreateAccountResult struct {
	AccountID string `json:"accountId"`
}

type TransferRequest struct {
	AccountID       string  `json:"accountId"`
	PaymentMethodID string  `json:"paymentMethodId"`
	Amount          float64 `json:"amount"`
	Currency        string  `json:"currency"`
	SubscriptionID  string  `json:"subscriptionId"`
}

type TransferResult struct {
	Success    bool   `json:"success"`
	TransferID string `json:"transferId"`
	Status     string `json:"status"`
}

const msgAccountFailed = "Failed to create payout account"

func (s *Service) internal(ctx context.Context, event, msg string, err error, kv ...any) error {
	return apperr.LogInternal(logctx.FromCtx(ctx, s.log), event, msg, err, kv...)
}

// ToMinorUnits converts a decimal major-unit amount to cents.
func ToMinorUnits(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// CreatePayoutAccount returns the caller's transfer account, creating it on
// first use.
func (s *Service) CreatePayoutAccount(ctx context.Context, req *CreateAccountRequest) (*CreateAccountResult, error) {
	id, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	userID, err := id.ResolveUser(req.UserID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(req.Email) == "" || req.FirstName == "" || req.LastName == "" {
		return nil, apperr.InvalidArgument("email, firstName and lastName are required")
	}

	user, err := s.store.EnsureUser(ctx, userID, req.Email)
	if err != nil {
		return nil, s.internal(ctx, "payout_account_lookup_failed", msgAccountFailed, err, "user_id", userID)
	}
	if user.HasPayoutAccount() {
		return &CreateAccountResult{AccountID: *user.PayoutAccountID}, nil
	}

	account, err := s.payouts.CreateAccount(ctx, moov_transfer.AccountInput{
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Phone:     req.Phone,
		ForeignID: userID,
	})
	if err != nil {
		return nil, s.internal(ctx, "payout_account_create_failed", msgAccountFailed, err, "user_id", userID)
	}
	if err := s.store.SetUserPayoutAccount(ctx, userID, account.AccountID, account.Status); err != nil {
		return nil, s.internal(ctx, "payout_account_persist_failed", msgAccountFailed, err,
			"user_id", userID, "account_id", account.AccountID)
	}
	logctx.FromCtx(ctx, s.log).Infow("payout_account_created", "user_id", userID, "account_id", account.AccountID, "status", account.Status)
	return &CreateAccountResult{AccountID: account.AccountID}, nil
}

// ProcessTransfer moves one subscription payment from the caller's payment
// method to the merchant account. The subscription is updated later by the
// transfer webhooks.
func (s *Service) ProcessTransfer(ctx context.Context, req *TransferRequest) (*TransferResult, error) {
	id, err := auth.Require(ctx)
	if err != nil {
		return nil, err
	}
	if req.PaymentMethodID == "" || req.Currency == "" || req.SubscriptionID == "" {
		return nil, apperr.InvalidArgument("paymentMethodId, currency and subscriptionId are required")
	}
	minor := ToMinorUnits(req.Amount)
	if minor <= 0 {
		return nil, apperr.InvalidArgument("amount must be positive")
	}
	transfer, err := s.payouts.CreateTransfer(ctx, moov_transfer.TransferInput{
		SourcePaymentMethodID: req.PaymentMethodID,
		DestinationAccountID:  s.cfg.Moov.MerchantAccountID,
		Amount:                minor,
		Currency:              req.Currency,
		Description:           s.cfg.Moov.TransferDescription,
		Metadata: map[string]string{
			"subscriptionId": req.SubscriptionID,
			"userId":         id.UID,
			"planType":       s.cfg.Moov.PlanType,
		},
	})
	if err != nil {
		return nil, s.internal(ctx, "payout_transfer_failed", "Failed to process subscription payment", err,
			"subscription_id", req.SubscriptionID, "account_id", req.AccountID)
	}
	logctx.FromCtx(ctx, s.log).Infow("payout_transfer_created",
		"subscription_id", req.SubscriptionID, "transfer_id", transfer.TransferID,
		"status", transfer.Status, "amount", minor, "currency", req.Currency)
	return &TransferResult{Success: true, TransferID: transfer.TransferID, Status: transfer.Status}, nil
}
