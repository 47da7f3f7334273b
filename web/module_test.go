package web_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/modhost/config"
	"github.com/skekre98/modhost/core"
	"github.com/skekre98/modhost/web"
)

func configureWeb(t *testing.T, opts ...web.Option) *web.Dispatcher {
	t.Helper()
	c := core.NewContainer()
	core.Put(c, config.Root{Server: config.ServerConfig{Addr: "127.0.0.1:0"}})
	core.Put(c, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, web.Module(opts...).Configure(c))

	d := web.DispatcherFrom(c)
	d.Mount(func(r web.Router) { r.GET("/ping", text("pong")) })
	require.NoError(t, d.ReloadDispatchSurface(context.Background()))
	return d
}

func TestModule_Middlewares(t *testing.T) {
	tag := func(c *gin.Context) {
		c.Header("X-Served-By", "modhost")
		c.Next()
	}
	d := configureWeb(t, web.WithMiddlewares(tag))

	rec := get(t, d, "/ping")
	assert.Equal(t, "pong", rec.Body.String())
	assert.Equal(t, "modhost", rec.Header().Get("X-Served-By"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"), "built-in middlewares still run")

	assert.Empty(t, get(t, configureWeb(t), "/ping").Header().Get("X-Served-By"))
}

func TestCORS(t *testing.T) {
	d := configureWeb(t, web.WithMiddlewares(web.CORS([]string{"https://console.example.com"})))

	tests := []struct {
		name       string
		method     string
		origin     string
		wantStatus int
		wantAllow  string
	}{
		{"allowed origin", http.MethodGet, "https://console.example.com", http.StatusOK, "https://console.example.com"},
		{"preflight", http.MethodOptions, "https://console.example.com", http.StatusNoContent, "https://console.example.com"},
		{"foreign origin", http.MethodGet, "https://evil.example.com", http.StatusForbidden, ""},
		{"same origin", http.MethodGet, "", http.StatusOK, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(tt.method, "/ping", nil)
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			if tt.method == http.MethodOptions {
				req.Header.Set("Access-Control-Request-Method", http.MethodGet)
			}
			rec := httptest.NewRecorder()
			d.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantAllow, rec.Header().Get("Access-Control-Allow-Origin"))
		})
	}
}
