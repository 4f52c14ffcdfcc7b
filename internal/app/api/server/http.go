package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/docs"
	"github.com/getdigitalpayments/paybridge/internal/app/api/handlers"
	mw "github.com/getdigitalpayments/paybridge/internal/app/api/middleware"
	"github.com/getdigitalpayments/paybridge/internal/app/service/billing"
	"github.com/getdigitalpayments/paybridge/internal/app/service/paymentsheet"
	"github.com/getdigitalpayments/paybridge/internal/app/service/payout"
	"github.com/getdigitalpayments/paybridge/internal/app/service/reconcile"
	"github.com/getdigitalpayments/paybridge/internal/app/service/statistics"
	"github.com/getdigitalpayments/paybridge/pkg/auth"
	cfgpkg "github.com/getdigitalpayments/paybridge/pkg/config"
	metrics "github.com/getdigitalpayments/paybridge/pkg/metrics"
	"github.com/getdigitalpayments/paybridge/pkg/readiness"
)

func newEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	// Add request tracing middleware only; request logger & access log are attached per group in registerRoutes
	r.Use(mw.TraceMiddleware())
	return r
}

type routeDeps struct {
	fx.In

	Log        *zap.SugaredLogger
	Cfg        *cfgpkg.Config
	Verifier   auth.TokenVerifier
	Readiness  *readiness.Tracker
	Billing    *billing.Service
	Payout     *payout.Service
	Reconciler *reconcile.Reconciler
	Stats      *statistics.Service
	Bridge     *paymentsheet.Bridge
}

func newPrometheus(log *zap.SugaredLogger) *metrics.Prometheus {
	return metrics.NewPrometheus(metrics.NewPrometheusOptions{
		Subsystem:   "paybridge",
		MetricsList: metrics.BusinessMetrics,
		URLLabelFn: func(c *gin.Context) string {
			if fp := c.FullPath(); fp != "" {
				return fp
			}
			return c.Request.URL.Path
		},
		Logger: log,
	})
}

func registerRoutes(lc fx.Lifecycle, r *gin.Engine, d routeDeps) {
	log := d.Log
	// Prometheus metrics
	if d.Cfg.MetricsAddr != "" {
		p := newPrometheus(log)
		p.Use(r, d.Cfg.MetricsAddr)
		lc.Append(fx.Hook{
			OnStart: func(context.Context) error {
				p.Start()
				log.Infow("metrics started", "addr", d.Cfg.MetricsAddr)
				return nil
			},
			OnStop: p.Shutdown,
		})
	}

	// Public group: request logger + access log
	pub := r.Group("/")
	pub.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log))
	handlers.RegisterHealthRoutes(pub, d.Readiness)
	handlers.RegisterWebhookRoutes(pub.Group("/webhooks"), d.Reconciler, log)
	// Swagger UI
	docs.SwaggerInfo.BasePath = "/"
	pub.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Callable group: the identity is resolved here and required by each service
	apiV1 := r.Group("/api/v1")
	apiV1.Use(mw.RequestLoggerMiddleware(log), mw.AccessLogMiddleware(log), mw.AuthMiddleware(d.Verifier, log))
	handlers.RegisterPlanRoutes(apiV1, d.Cfg)
	handlers.RegisterBillingRoutes(apiV1.Group("/billing"), d.Billing, log)
	handlers.RegisterPayoutRoutes(apiV1.Group("/payouts"), d.Payout, log)
	handlers.RegisterPaymentSheetRoutes(apiV1.Group("/payment_sheet"), d.Bridge, log)

	admin := apiV1.Group("/admin", mw.RequireAdmin(d.Cfg.Auth.AdminUIDs, log))
	handlers.RegisterAdminRoutes(admin, d.Stats, log)
}

func runServer(lc fx.Lifecycle, log *zap.SugaredLogger, cfg *cfgpkg.Config, r *gin.Engine, tracker *readiness.Tracker) {
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{Addr: addr, Handler: r, ReadHeaderTimeout: 5 * time.Second}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			ln, err := net.Listen("tcp", addr)
			if err != nil {
				return fmt.Errorf("failed to listen on %s: %w", addr, err)
			}
			log.Infow("starting HTTP server", "addr", addr)
			go func() {
				if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Errorw("server error", "err", err)
				}
			}()
			return tracker.Transition(readiness.StateReady)
		},
		OnStop: func(ctx context.Context) error {
			log.Infow("stopping HTTP server")
			if err := tracker.Transition(readiness.StateStopping); err != nil {
				log.Warnw("readiness_transition_failed", "err", err)
			}
			return srv.Shutdown(ctx)
		},
	})
}

var Module = fx.Options(
	fx.Provide(newEngine),
	fx.Invoke(registerRoutes),
	fx.Invoke(runServer),
)
