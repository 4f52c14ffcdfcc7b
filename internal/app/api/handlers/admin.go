package handlers

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/app/service/statistics"
)

// @Summary      List payments (Admin)
// @Description  Lists the newest payment records of one subscription.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.ListPaymentsRequest true "Subscription and page size"
// @Success      200  {object}  handlers.RespListPayments
// @Router       /api/v1/admin/payments/list [post]
func ApiListPayments(svc *statistics.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.ListPayments)
}

// @Summary      Get payment statistics (Admin)
// @Description  Daily payment counts and amounts per currency over a date range.
// @Tags         Admin
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request body statistics.PaymentStatisticRequest true "Statistic request parameters"
// @Success      200  {object}  handlers.RespPaymentStatistic
// @Router       /api/v1/admin/payment_statistic [post]
func ApiGetPaymentStatistic(svc *statistics.Service, log *zap.SugaredLogger) gin.HandlerFunc {
	return callable(log, svc.GetPaymentStatistic)
}

func RegisterAdminRoutes(r gin.IRouter, stats *statistics.Service, log *zap.SugaredLogger) {
	r.POST("/payments/list", ApiListPayments(stats, log))
	r.POST("/payment_statistic", ApiGetPaymentStatistic(stats, log))
}
