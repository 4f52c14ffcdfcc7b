package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/getdigitalpayments/paybridge/pkg/config"
	"github.com/getdigitalpayments/paybridge/pkg/response"
	"github.com/getdigitalpayments/paybridge/pkg/types"
)

// @Summary      List plans
// @Description  Returns the configured subscription plans.
// @Tags         Billing
// @Produce      json
// @Success      200  {object}  handlers.RespPlans
// @Router       /api/v1/plans [get]
func ApiListPlans(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		plans := cfg.Plans
		if plans == nil {
			plans = []*types.Plan{}
		}
		c.JSON(http.StatusOK, response.OKT(plans))
	}
}

func RegisterPlanRoutes(r gin.IRouter, cfg *config.Config) {
	r.GET("/plans", ApiListPlans(cfg))
}
