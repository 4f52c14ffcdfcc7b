package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/pkg/apperr"
	"github.com/getdigitalpayments/paybridge/pkg/auth"
	"github.com/getdigitalpayments/paybridge/pkg/logctx"
	"github.com/getdigitalpayments/paybridge/pkg/response"
)

// AuthMiddleware resolves the bearer token into a caller identity. Requests
// without a valid token continue anonymously; the services reject them.
func AuthMiddleware(v auth.TokenVerifier, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := auth.BearerToken(c.GetHeader("Authorization"))
		if !ok {
			c.Next()
			return
		}
		id, err := v.Verify(c.Request.Context(), token)
		if err != nil {
			logctx.FromGin(c, base).Infow("auth_token_rejected", "err", err)
			c.Next()
			return
		}

		ctx := auth.WithIdentity(c.Request.Context(), id)
		c.Request = c.Request.WithContext(ctx)
		c.Set(string(logctx.UserIDKey), id.UID)
		setLogger(c, logctx.FromGin(c, base).With("user_id", id.UID))
		c.Next()
	}
}

// RequireAdmin aborts anonymous requests with 401 and callers outside
// adminUIDs with 403.
func RequireAdmin(adminUIDs []string, base *zap.SugaredLogger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := auth.FromContext(c.Request.Context())
		var err error
		switch {
		case id == nil:
			err = apperr.Unauthenticated()
		case !lo.Contains(adminUIDs, id.UID):
			logctx.FromGin(c, base).Warnw("admin_access_denied", "uid", id.UID)
			err = apperr.PermissionDenied()
		}
		if err != nil {
			status, body := response.FromError(err)
			c.AbortWithStatusJSON(status, body)
			return
		}
		c.Next()
	}
}
