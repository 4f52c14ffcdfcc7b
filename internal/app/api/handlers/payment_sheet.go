package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/app/service/paymentsheet"
)

type InvokeRequest struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments"`
}

// @Summary      Invoke payment sheet method
// @Description  Runs one payment-sheet channel method. Channel errors come back as 400 with data {code, message}.
// @Tags         PaymentSheet
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body handlers.InvokeRequest true "Method and arguments"
// @Success      200  {object}  handlers.RespOK
// @Failure      400  {object}  handlers.RespMethodError
// @Router       /api/v1/payment_sheet/invoke [post]
func ApiInvokePaymentSheet(bridge *paymentsheet.Bridge, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, func(ctx context.Context, req *InvokeRequest) (any, error) {
		return bridge.Invoke(ctx, req.Method, req.Arguments)
	})
}

func RegisterPaymentSheetRoutes(r gin.IRouter, bridge *paymentsheet.Bridge, log *zap.SugaredLogger) {
	r.POST("/invoke", ApiInvokePaymentSheet(bridge, log))
}
