// Package moov_transfer is a small JSON client for the payout/transfer
// processor's accounts and transfers endpoints.
package moov_transfer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/pkg/config"
	"github.com/getdigitalpayments/paybridge/pkg/metrics"
	"github.com/getdigitalpayments/paybridge/pkg/retry"
	"github.com/getdigitalpayments/paybridge/pkg/tool"
)

const processorName = "moov"

const maxErrorBody = 4 << 10

// HTTPError is a non-2xx response.
type HTTPError struct {
	StatusCode int
	Body       string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("moov: unexpected status %d: %s", e.StatusCode, e.Body)
}

type AccountInput struct {
	Email     string
	FirstName string
	LastName  string
	Phone     string
	ForeignID string
}

type Account struct {
	AccountID string `json:"accountID"`
	Status    string `json:"status"`
}

type TransferInput struct {
	SourcePaymentMethodID string
	DestinationAccountID  string
	// Amount is in minor units.
	Amount      int64
	Currency    string
	Description string
	Metadata    map[string]string
}

type Transfer struct {
	TransferID string `json:"transferID"`
	Status     string `json:"status"`
}

// Payouts is the subset of the transfer processor used by the service layer.
type Payouts interface {
	CreateAccount(ctx context.Context, in AccountInput) (*Account, error)
	CreateTransfer(ctx context.Context, in TransferInput) (*Transfer, error)
}

type Client struct {
	baseURL             string
	apiKey              string
	termsOfServiceToken string
	http                *http.Client
	retry               *retry.Policy
	log                 *zap.SugaredLogger
}

func New(cfg *config.Config, policy *retry.Policy, log *zap.SugaredLogger) *Client {
	timeout := cfg.Moov.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:             strings.TrimRight(cfg.Moov.BaseURL, "/"),
		apiKey:              cfg.Moov.APIKey,
		termsOfServiceToken: cfg.Moov.TermsOfServiceToken,
		http:                &http.Client{Timeout: timeout},
		retry:               policy,
		log:                 log,
	}
}

type accountRequest struct {
	AccountType string `json:"accountType"`
	Profile     struct {
		Individual struct {
			Name struct {
				FirstName string `json:"firstName"`
				LastName  string `json:"lastName"`
			} `json:"name"`
			Email string `json:"email"`
			Phone struct {
				Number      string `json:"number"`
				CountryCode string `json:"countryCode"`
			} `json:"phone"`
		} `json:"individual"`
	} `json:"profile"`
	TermsOfService struct {
		Token string `json:"token"`
	} `json:"termsOfService"`
	Capabilities []string `json:"capabilities"`
	ForeignID    string   `json:"foreignId"`
}

type transferRequest struct {
	Source struct {
		PaymentMethodID string `json:"paymentMethodID"`
	} `json:"source"`
	Destination struct {
		Account struct {
			AccountID string `json:"accountID"`
		} `json:"account"`
	} `json:"destination"`
	Amount struct {
		Currency string `json:"currency"`
		Value    int64  `json:"value"`
	} `json:"amount"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata"`
}

func (c *Client) CreateAccount(ctx context.Context, in AccountInput) (*Account, error) {
	var req accountRequest
	req.AccountType = "individual"
	req.Profile.Individual.Name.FirstName = in.FirstName
	req.Profile.Individual.Name.LastName = in.LastName
	req.Profile.Individual.Email = in.Email
	req.Profile.Individual.Phone.Number = in.Phone
	req.Profile.Individual.Phone.CountryCode = "1"
	req.TermsOfService.Token = c.termsOfServiceToken
	req.Capabilities = []string{"transfers", "send-funds", "collect-funds"}
	req.ForeignID = in.ForeignID

	var out Account
	if err := c.post(ctx, "accounts.create", "/accounts", "", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateTransfer(ctx context.Context, in TransferInput) (*Transfer, error) {
	var req transferRequest
	req.Source.PaymentMethodID = in.SourcePaymentMethodID
	req.Destination.Account.AccountID = in.DestinationAccountID
	req.Amount.Currency = in.Currency
	req.Amount.Value = in.Amount
	req.Description = in.Description
	req.Metadata = in.Metadata

	var out Transfer
	key := tool.IdempotencyKey("transfer")
	if err := c.post(ctx, "transfers.create", "/transfers", key, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func retryable(err error) bool {
	var he *HTTPError
	if errors.As(err, &he) {
		return retry.RetryableStatus(he.StatusCode)
	}
	return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
}

func (c *Client) post(ctx context.Context, name, path, idempotencyKey string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", name, err)
	}
	start := time.Now()
	err = c.retry.Do(ctx, processorName+"."+name, retryable, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		if idempotencyKey != "" {
			req.Header.Set("X-Idempotency-Key", idempotencyKey)
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			return &HTTPError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(b))}
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode %s response: %w", name, err)
		}
		return nil
	})
	metrics.ObserveProcessorCall(processorName, name, start, err)
	return err
}

var Module = fx.Options(
	fx.Provide(fx.Annotate(New, fx.As(new(Payouts)))),
)
