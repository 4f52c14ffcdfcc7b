package app

import (
	"time"

	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/app/api/server"
	"github.com/getdigitalpayments/paybridge/internal/app/service/billing"
	"github.com/getdigitalpayments/paybridge/internal/app/service/paymentsheet"
	"github.com/getdigitalpayments/paybridge/internal/app/service/payout"
	"github.com/getdigitalpayments/paybridge/internal/app/service/reconcile"
	"github.com/getdigitalpayments/paybridge/internal/app/service/statistics"
	"github.com/getdigitalpayments/paybridge/internal/app/service/webhook_log"
	"github.com/getdigitalpayments/paybridge/internal/platform/db"
	"github.com/getdigitalpayments/paybridge/internal/platform/moov/moov_transfer"
	"github.com/getdigitalpayments/paybridge/internal/platform/stripe/stripe_billing"
	"github.com/getdigitalpayments/paybridge/pkg/auth"
	"github.com/getdigitalpayments/paybridge/pkg/config"
	"github.com/getdigitalpayments/paybridge/pkg/logger"
	"github.com/getdigitalpayments/paybridge/pkg/metrics"
	"github.com/getdigitalpayments/paybridge/pkg/readiness"
	"github.com/getdigitalpayments/paybridge/pkg/retry"
)

const (
	DefaultStartTimeout = 15 * time.Second
	DefaultStopTimeout  = 10 * time.Second
)

// trackReadiness mirrors every readiness change into the gauge and marks
// the process as initializing. The server moves it to ready once listening.
func trackReadiness(t *readiness.Tracker, log *zap.SugaredLogger) error {
	t.OnChange(func(s readiness.State) {
		metrics.SetReady(s == readiness.StateReady)
		log.Infow("readiness_changed", "state", s)
	})
	return t.Transition(readiness.StateInitializing)
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	readiness.Module,
	fx.Invoke(trackReadiness),
	auth.Module,
	retry.Module,
	db.Module,
	stripe_billing.Module,
	moov_transfer.Module,
	webhook_log.Module,
	billing.Module,
	payout.Module,
	reconcile.Module,
	statistics.Module,
	paymentsheet.Module,
	server.Module,
)
