package admin_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/modhost/admin"
	"github.com/skekre98/modhost/lifecycle"
	"github.com/skekre98/modhost/module"
	"github.com/skekre98/modhost/registry"
	"github.com/skekre98/modhost/web"
)

const token = "s3cret"

type fixture struct {
	handler http.Handler
	reg     *registry.Registry
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l := slog.New(slog.NewTextHandler(io.Discard, nil))

	catalog := registry.NewCatalog()
	catalog.Register("alpha", func(module.Descriptor) (registry.Extension, error) {
		return registry.Funcs{Handlers: []web.Route{{
			Method:  http.MethodGet,
			Path:    "/hello",
			Handler: func(c *gin.Context) { c.String(http.StatusOK, "hello from alpha") },
		}}}, nil
	})
	reg := registry.New(catalog, l)
	d := web.NewDispatcher(l, "")
	d.Bind(reg)
	orch := lifecycle.New(reg, d, lifecycle.WithLogger(l))

	d.Mount(admin.NewHandler(orch, token, 256, l).Mount("/admin/modules"))
	require.NoError(t, d.ReloadDispatchSurface(context.Background()))
	return &fixture{handler: d, reg: reg}
}

func (f *fixture) do(t *testing.T, method, path, body string, authorized bool) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if authorized {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	f.handler.ServeHTTP(rec, req)

	var out map[string]any
	if strings.Contains(rec.Header().Get("Content-Type"), "json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec, out
}

func manifest(id, version string, requires ...string) string {
	s := "id: " + id + "\nversion: " + version + "\n"
	if len(requires) > 0 {
		s += "requires: [" + strings.Join(requires, ", ") + "]\n"
	}
	return s
}

func TestUpload_RequiresToken(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/admin/modules", manifest("alpha", "1.0.0"), false)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "failed", body["status"])
	assert.Empty(t, f.reg.AllLoaded())

	req := httptest.NewRequest(http.MethodPost, "/admin/modules", strings.NewReader(manifest("alpha", "1.0.0")))
	req.Header.Set("Authorization", "Bearer wrong")
	wrong := httptest.NewRecorder()
	f.handler.ServeHTTP(wrong, req)
	assert.Equal(t, http.StatusForbidden, wrong.Code)
}

func TestUpload_InstallsAndServes(t *testing.T) {
	f := newFixture(t)

	rec, body := f.do(t, http.MethodPost, "/admin/modules", manifest("alpha", "1.0.0"), true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "succeeded", body["status"])
	assert.Equal(t, true, body["refreshed"])
	assert.Equal(t, module.StateStarted, f.reg.State("alpha"))

	served, _ := f.do(t, http.MethodGet, "/modules/alpha/hello", "", false)
	assert.Equal(t, "hello from alpha", served.Body.String())

	rec, body = f.do(t, http.MethodGet, "/admin/modules", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	mods := body["modules"].([]any)
	require.Len(t, mods, 1)
	assert.Equal(t, "STARTED", mods[0].(map[string]any)["state"])

	rec, _ = f.do(t, http.MethodGet, "/admin/modules/alpha", "", false)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = f.do(t, http.MethodGet, "/admin/modules/nope", "", false)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpload_Errors(t *testing.T) {
	f := newFixture(t)
	_, _ = f.do(t, http.MethodPost, "/admin/modules", manifest("alpha", "1.0.0"), true)

	tests := []struct {
		name string
		path string
		body string
		want int
	}{
		{"already installed", "/admin/modules", manifest("alpha", "1.0.1"), http.StatusConflict},
		{"unparsable", "/admin/modules", "id: [", http.StatusBadRequest},
		{"empty", "/admin/modules", "", http.StatusBadRequest},
		{"too large", "/admin/modules", manifest("alpha", "1.0.0") + "title: " + strings.Repeat("x", 300) + "\n", http.StatusRequestEntityTooLarge},
		{"bad query", "/admin/modules?update=maybe", manifest("alpha", "1.0.0"), http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, _ := f.do(t, http.MethodPost, tt.path, tt.body, true)
			assert.Equal(t, tt.want, rec.Code, rec.Body.String())
		})
	}
}

func TestUpdate(t *testing.T) {
	f := newFixture(t)
	_, _ = f.do(t, http.MethodPost, "/admin/modules", manifest("alpha", "1.0.0"), true)
	_, _ = f.do(t, http.MethodPost, "/admin/modules", manifest("beta", "1.0.0", "alpha"), true)

	rec, body := f.do(t, http.MethodPost, "/admin/modules?update=true", manifest("alpha", "2.0.0"), true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "update", body["operation"])

	d, ok := f.reg.FindByID("alpha")
	require.True(t, ok)
	assert.Equal(t, "2.0.0", d.Version)
	assert.Equal(t, module.StateStarted, f.reg.State("beta"))
}

func TestStopAndUnload(t *testing.T) {
	f := newFixture(t)
	_, _ = f.do(t, http.MethodPost, "/admin/modules", manifest("alpha", "1.0.0"), true)
	_, _ = f.do(t, http.MethodPost, "/admin/modules", manifest("beta", "1.0.0", "alpha"), true)

	rec, _ := f.do(t, http.MethodPost, "/admin/modules/alpha/stop", "", true)
	assert.Equal(t, http.StatusConflict, rec.Code, "started dependent without cascade")

	rec, _ = f.do(t, http.MethodPost, "/admin/modules/alpha/stop?cascade=true", "", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, module.StateStopped, f.reg.State("beta"))
	assert.Equal(t, module.StateStopped, f.reg.State("alpha"))

	served, _ := f.do(t, http.MethodGet, "/modules/alpha/hello", "", false)
	assert.Equal(t, http.StatusNotFound, served.Code)

	rec, _ = f.do(t, http.MethodPost, "/admin/modules/start-all", "", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, module.StateStarted, f.reg.State("beta"))

	rec, _ = f.do(t, http.MethodPost, "/admin/modules/beta/unload", "", true)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, module.StateUnloaded, f.reg.State("beta"))

	rec, _ = f.do(t, http.MethodPost, "/admin/modules/beta/start", "", true)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStatusCode(t *testing.T) {
	tests := []struct {
		name string
		res  lifecycle.Result
		want int
	}{
		{"succeeded", lifecycle.Result{Status: lifecycle.StatusSucceeded}, http.StatusOK},
		{"partial", lifecycle.Result{Status: lifecycle.StatusPartial, Err: errors.New("x")}, http.StatusMultiStatus},
		{"load failed", failed(module.KindLoadFailed), http.StatusBadRequest},
		{"denied", failed(module.KindPrivilegeDenied), http.StatusForbidden},
		{"not found", failed(module.KindNotFound), http.StatusNotFound},
		{"precondition", failed(module.KindPrecondition), http.StatusConflict},
		{"start failed", failed(module.KindStartFailed), http.StatusUnprocessableEntity},
		{"unclassified", lifecycle.Result{Status: lifecycle.StatusFailed, Err: errors.New("x")}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, admin.StatusCode(&tt.res))
		})
	}
}

func failed(kind module.Kind) lifecycle.Result {
	return lifecycle.Result{Status: lifecycle.StatusFailed, Err: module.Errorf(kind, "m", "boom")}
}
