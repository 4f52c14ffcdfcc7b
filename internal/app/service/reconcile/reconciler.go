package reconcile

import (
	"context"
	"encoding/json"
	"time"

	"github.com/samber/lo"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/getdigitalpayments/paybridge/internal/app/service/webhook_log"
	"github.com/getdigitalpayments/paybridge/internal/models"
	"github.com/getdigitalpayments/paybridge/internal/platform/store"
	"github.com/getdigitalpayments/paybridge/internal/platform/stripe/stripe_webhook"
	"github.com/getdigitalpayments/paybridge/pkg/config"
	"github.com/getdigitalpayments/paybridge/pkg/logctx"
	"github.com/getdigitalpayments/paybridge/pkg/metrics"
)

const (
	resultApplied  = "applied"
	resultIgnored  = "ignored"
	resultFailed   = "failed"
	resultRejected = "rejected"
)

// Reconciler applies processor webhooks to the store. A delivery is rejected
// only when its signature fails or its body is not JSON. Unknown kinds and
// failures while applying are logged and audited but never surfaced to the
// processor.
type Reconciler struct {
	cfg   *config.Config
	store store.Store
	logs  *webhook_log.Service
	log   *zap.SugaredLogger
	now   func() time.Time
}

func NewReconciler(cfg *config.Config, st store.Store, logs *webhook_log.Service, log *zap.SugaredLogger) *Reconciler {
	return &Reconciler{cfg: cfg, store: st, logs: logs, log: log, now: time.Now}
}

// HandleStripe verifies the signature header before reading the payload.
// The returned error wraps stripe_webhook.ErrInvalidSignature.
func (r *Reconciler) HandleStripe(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := stripe_webhook.Verify(payload, sigHeader, r.cfg.Stripe.WebhookSecret)
	if err != nil {
		logctx.FromCtx(ctx, r.log).Warnw("webhook_stripe_rejected", "err", err)
		metrics.IncWebhookEvent("stripe", "unknown", resultRejected)
		return err
	}
	r.handle(ctx, NewStripeParser(event, payload))
	return nil
}

// HandleMoov returns ErrMalformedEvent only when the body is not JSON.
func (r *Reconciler) HandleMoov(ctx context.Context, payload []byte) error {
	parser, err := NewMoovParser(payload, r.now())
	if err != nil {
		logctx.FromCtx(ctx, r.log).Warnw("webhook_moov_rejected", "err", err)
		metrics.IncWebhookEvent("moov", "unknown", resultRejected)
		return err
	}
	r.handle(ctx, parser)
	return nil
}

func (r *Reconciler) handle(ctx context.Context, parser EventParser) {
	env := parser.Envelope()
	l := logctx.FromCtx(ctx, r.log).With("provider", env.Provider, "event_id", env.ID, "event_type", env.Type)
	traceID, _ := ctx.Value(logctx.TraceIDKey).(string)

	data := datatypes.JSON(env.Raw)
	if !json.Valid(data) {
		data = datatypes.JSON("null")
	}
	row := func(status models.WebhookLogStatus, result *datatypes.JSON) *models.WebhookLog {
		return &models.WebhookLog{
			Provider:  env.Provider,
			EventID:   env.ID,
			EventType: env.Type,
			TraceID:   traceID,
			Data:      data,
			Result:    result,
			Status:    status,
		}
	}

	l.Infow("webhook_" + string(env.Provider) + "_received")
	r.logs.Save(ctx, row(models.WebhookLogStatusReceived, nil))

	muts, err := parser.Mutations()
	if err == nil {
		err = Apply(ctx, r.store, muts)
	}

	outcome := resultApplied
	switch {
	case err != nil:
		outcome = resultFailed
		l.Errorw("webhook_handle_failed", "err", err)
	case len(muts) == 0:
		outcome = resultIgnored
		l.Infow("webhook_event_ignored")
	default:
		l.Infow("webhook_event_applied", "mutations", len(muts))
	}
	metrics.IncWebhookEvent(string(env.Provider), lo.CoalesceOrEmpty(env.Type, "unknown"), outcome)

	res := map[string]any{"result": outcome, "mutations": muts}
	status := models.WebhookLogStatusHandled
	if err != nil {
		res["error"] = err.Error()
		status = models.WebhookLogStatusHandleFailed
	}
	resBytes, _ := json.Marshal(res)
	result := datatypes.JSON(resBytes)
	r.logs.Save(ctx, row(status, &result))
}
