package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/internal/app/service/paymentsheet"
	"github.com/getdigitalpayments/paybridge/pkg/apperr"
	"github.com/getdigitalpayments/paybridge/pkg/auth"
	"github.com/getdigitalpayments/paybridge/pkg/logctx"
	"github.com/getdigitalpayments/paybridge/pkg/response"
)

// callable adapts a service operation to a JSON endpoint. The caller is
// checked before the body is read; an empty body binds to the zero request.
func callable[Req any, Res any](log *zap.SugaredLogger, fn func(ctx context.Context, req *Req) (Res, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, err := auth.Require(c.Request.Context()); err != nil {
			writeError(c, log, err)
			return
		}
		var req Req
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			writeError(c, log, apperr.InvalidArgument("malformed request body: %v", err))
			return
		}
		res, err := fn(c.Request.Context(), &req)
		if err != nil {
			writeError(c, log, err)
			return
		}
		c.JSON(http.StatusOK, response.OKT(res))
	}
}

func writeError(c *gin.Context, log *zap.SugaredLogger, err error) {
	// channel errors carry their own code
	var me *paymentsheet.MethodError
	if errors.As(err, &me) {
		c.JSON(http.StatusBadRequest, response.ErrorT[any](response.APIResponseCodeBadRequest, me))
		return
	}
	status, body := response.FromError(err)
	if status >= http.StatusInternalServerError {
		logctx.FromGin(c, log).Errorw("api_request_failed", "path", c.FullPath(), "err", err)
	}
	c.JSON(status, body)
}
