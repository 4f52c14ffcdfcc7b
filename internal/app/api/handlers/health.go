package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/getdigitalpayments/paybridge/pkg/readiness"
	"github.com/getdigitalpayments/paybridge/pkg/response"
)

// @Summary      Health check
// @Description  Returns service status
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /healthz [get]
func Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, response.OKT(map[string]string{"status": "ok"}))
}

// @Summary      Readiness check
// @Description  200 once startup has finished, 503 before that and while stopping.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /readyz [get]
func Readyz(t *readiness.Tracker) gin.HandlerFunc {
	return func(c *gin.Context) {
		state := t.State()
		body := map[string]string{"status": string(state)}
		if state != readiness.StateReady {
			c.JSON(http.StatusServiceUnavailable, response.ErrorT[any](response.APIResponseCodeError, body))
			return
		}
		c.JSON(http.StatusOK, response.OKT(body))
	}
}

func RegisterHealthRoutes(r gin.IRouter, t *readiness.Tracker) {
	r.GET("/healthz", Healthz)
	r.GET("/readyz", Readyz(t))
}
