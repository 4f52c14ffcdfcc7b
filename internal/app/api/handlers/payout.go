package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/app/service/payout"
)

// @Summary      Create payout account
// @Description  Returns the caller's transfer-processor account, creating it on first use.
// @Tags         Payout
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payout.CreateAccountRequest true "Account holder"
// @Success      200  {object}  handlers.RespCreatePayoutAccount
// @Failure      400  {object}  handlers.RespError
// @Failure      401  {object}  handlers.RespError
// @Router       /api/v1/payouts/accounts [post]
func ApiCreatePayoutAccount(svc *payout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.CreatePayoutAccount)
}

// @Summary      Process subscription transfer
// @Description  Pulls one subscription payment from a payment method into the merchant account. Amount is in major units.
// @Tags         Payout
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body payout.TransferRequest true "Transfer"
// @Success      200  {object}  handlers.RespTransfer
// @Failure      400  {object}  handlers.RespError
// @Router       /api/v1/payouts/transfers [post]
func ApiProcessTransfer(svc *payout.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.ProcessTransfer)
}

func RegisterPayoutRoutes(r gin.IRouter, svc *payout.Service, log *zap.SugaredLogger) {
	r.POST("/accounts", ApiCreatePayoutAccount(svc, log))
	r.POST("/transfers", ApiProcessTransfer(svc, log))
}
