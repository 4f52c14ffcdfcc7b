package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/getdigitalpayments/paybridge/pkg/auth"
	"github.com/getdigitalpayments/paybridge/pkg/logctx"
)

type staticVerifier map[string]string

func (v staticVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	if uid, ok := v[token]; ok {
		return &auth.Identity{UID: uid}, nil
	}
	return nil, auth.ErrInvalidToken
}

func newEngine() *gin.Engine {
	gin.SetMode(gin.TestMode)
	log := zap.NewNop().Sugar()
	r := gin.New()
	r.Use(TraceMiddleware(), RequestLoggerMiddleware(log), AccessLogMiddleware(log),
		AuthMiddleware(staticVerifier{"good": "U1", "admin": "A1"}, log))
	r.GET("/whoami", func(c *gin.Context) {
		uid := ""
		if id := auth.FromContext(c.Request.Context()); id != nil {
			uid = id.UID
		}
		trace, _ := c.Request.Context().Value(logctx.TraceIDKey).(string)
		c.JSON(http.StatusOK, gin.H{"uid": uid, "trace": trace})
	})
	r.GET("/admin", RequireAdmin([]string{"A1"}, log), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func TestTraceAndAuth(t *testing.T) {
	r := newEngine()

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("X-Request-ID", "trace-1")
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.JSONEq(t, `{"uid":"U1","trace":"trace-1"}`, w.Body.String())
	require.Equal(t, "trace-1", w.Header().Get("X-Request-ID"))

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/whoami", nil)
	req.Header.Set("Authorization", "Bearer bad")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"uid":""`)
	require.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestRequireAdmin(t *testing.T) {
	r := newEngine()

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/admin", nil))
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), `"kind":"unauthenticated"`)

	w = httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer good")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Contains(t, w.Body.String(), `"kind":"permission-denied"`)

	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer admin")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusNoContent, w.Code)
}
