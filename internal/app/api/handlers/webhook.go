package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/app/service/reconcile"
	"github.com/getdigitalpayments/paybridge/pkg/logctx"
	"github.com/getdigitalpayments/paybridge/pkg/response"
)

// maxWebhookBody matches the card processor's documented payload cap.
const maxWebhookBody = 65536

type WebhookAck struct {
	Received bool `json:"received"`
}

func readBody(c *gin.Context) ([]byte, error) {
	return io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
}

func rejectWebhook(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, msg))
}

// @Summary      Stripe webhook
// @Description  Verifies the Stripe-Signature header and applies subscription and invoice events.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        Stripe-Signature header string true "Webhook signature"
// @Param        payload body string true "Event"
// @Success      200  {object}  handlers.WebhookAck
// @Failure      400  {object}  handlers.RespError
// @Router       /webhooks/stripe [post]
func ApiStripeWebhook(r *reconcile.Reconciler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := readBody(c)
		if err != nil {
			logctx.FromGin(c, log).Warnw("webhook_stripe_body_unreadable", "err", err)
			rejectWebhook(c, "unreadable body")
			return
		}
		if err := r.HandleStripe(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
			rejectWebhook(c, "Webhook signature verification failed")
			return
		}
		c.JSON(http.StatusOK, WebhookAck{Received: true})
	}
}

// @Summary      Moov webhook
// @Description  Applies account and transfer events. Deliveries are not signature-checked; any JSON body is acknowledged.
// @Tags         Webhook
// @Accept       json
// @Produce      json
// @Param        payload body string true "Event"
// @Success      200  {object}  handlers.WebhookAck
// @Failure      400  {object}  handlers.RespError
// @Router       /webhooks/moov [post]
func ApiMoovWebhook(r *reconcile.Reconciler, log *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		payload, err := readBody(c)
		if err != nil {
			logctx.FromGin(c, log).Warnw("webhook_moov_body_unreadable", "err", err)
			rejectWebhook(c, "unreadable body")
			return
		}
		if err := r.HandleMoov(c.Request.Context(), payload); err != nil {
			rejectWebhook(c, "malformed event")
			return
		}
		c.JSON(http.StatusOK, WebhookAck{Received: true})
	}
}

func RegisterWebhookRoutes(r gin.IRouter, rec *reconcile.Reconciler, log *zap.SugaredLogger) {
	r.POST("/stripe", ApiStripeWebhook(rec, log))
	r.POST("/moov", ApiMoovWebhook(rec, log))
}
