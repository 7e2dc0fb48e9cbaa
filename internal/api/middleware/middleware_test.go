package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/timmy/ottgen/internal/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newEngine(mw ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(mw...)
	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, logger.GetRequestID(c.Request.Context()))
	})
	return r
}

func serve(r http.Handler, method string, header map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, "/ping", nil)
	for k, v := range header {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogger_RequestID(t *testing.T) {
	r := newEngine(Logger())

	w := serve(r, http.MethodGet, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	id := w.Header().Get(RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, w.Body.String())

	w = serve(r, http.MethodGet, map[string]string{RequestIDHeader: "caller-id"})
	assert.Equal(t, "caller-id", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "caller-id", w.Body.String())
}

func TestCORS(t *testing.T) {
	tests := []struct {
		name       string
		cfg        CORSConfig
		origin     string
		method     string
		wantOrigin string
		wantCode   int
	}{
		{"allow all", CORSConfig{AllowAllOrigins: true}, "https://a.example", http.MethodGet, "*", http.StatusOK},
		{"listed origin", CORSConfig{AllowedOrigins: []string{"https://a.example"}}, "https://A.example", http.MethodGet, "https://A.example", http.StatusOK},
		{"unlisted origin", CORSConfig{AllowedOrigins: []string{"https://a.example"}}, "https://b.example", http.MethodGet, "", http.StatusOK},
		{"preflight", CORSConfig{AllowAllOrigins: true}, "https://a.example", http.MethodOptions, "*", http.StatusNoContent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newEngine(CORS(tt.cfg))
			r.OPTIONS("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
			w := serve(r, tt.method, map[string]string{"Origin": tt.origin})
			assert.Equal(t, tt.wantCode, w.Code)
			assert.Equal(t, tt.wantOrigin, w.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}

func TestAdminToken(t *testing.T) {
	open := newEngine(AdminToken(""))
	assert.Equal(t, http.StatusOK, serve(open, http.MethodGet, nil).Code)

	guarded := newEngine(AdminToken("tok"))
	assert.Equal(t, http.StatusUnauthorized, serve(guarded, http.MethodGet, nil).Code)
	assert.Equal(t, http.StatusUnauthorized, serve(guarded, http.MethodGet, map[string]string{AdminTokenHeader: "nope"}).Code)
	assert.Equal(t, http.StatusOK, serve(guarded, http.MethodGet, map[string]string{AdminTokenHeader: "tok"}).Code)
}
