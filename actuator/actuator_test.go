package actuator_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skekre98/modhost/actuator"
	"github.com/skekre98/modhost/config"
)

func newEngine(checks *actuator.Checks, reg *prometheus.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	cfg := config.Root{
		App:      config.AppInfo{Name: "modhost", Version: "1.2.3"},
		Actuator: config.ActuatorConfig{BasePath: "/actuator"},
	}
	e := gin.New()
	actuator.Routes(cfg, checks, reg, time.Now())(e)
	return e
}

func serve(e http.Handler, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealth(t *testing.T) {
	checks := actuator.NewChecks()
	e := newEngine(checks, nil)

	rec := serve(e, "/actuator/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"UP","checks":[]}`, rec.Body.String())

	checks.Register("modules", func(context.Context) error { return errors.New("1 module in ERROR: billing") })
	checks.Register("disk", func(context.Context) error { return nil })

	rec = serve(e, "/actuator/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	var h actuator.Health
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, actuator.StatusDown, h.Status)
	assert.Equal(t, []actuator.CheckResult{
		{Name: "disk", Status: actuator.StatusUp},
		{Name: "modules", Status: actuator.StatusDown, Error: "1 module in ERROR: billing"},
	}, h.Checks)
}

func TestChecks_Timeout(t *testing.T) {
	checks := actuator.NewChecks()
	checks.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	h := checks.Run(context.Background(), 10*time.Millisecond)
	assert.Equal(t, actuator.StatusDown, h.Status)
	assert.Contains(t, h.Checks[0].Error, "deadline")
}

func TestInfo(t *testing.T) {
	rec := serve(newEngine(actuator.NewChecks(), nil), "/actuator/info")
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, map[string]any{"name": "modhost", "version": "1.2.3"}, body["app"])
	assert.Contains(t, body, "uptime")
}

func TestMetrics(t *testing.T) {
	assert.Equal(t, http.StatusNotFound, serve(newEngine(actuator.NewChecks(), nil), "/actuator/metrics").Code)

	reg := prometheus.NewRegistry()
	c := prometheus.NewCounter(prometheus.CounterOpts{Name: "modhost_test_total", Help: "test"})
	reg.MustRegister(c)
	c.Inc()

	rec := serve(newEngine(actuator.NewChecks(), reg), "/actuator/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "modhost_test_total 1")
}
