package actuator

import (
	"context"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/skekre98/modhost/config"
	"github.com/skekre98/modhost/core"
	"github.com/skekre98/modhost/web"
)

const Name = "actuator"

const checkTimeout = 2 * time.Second

type module struct{}

func Module() core.Module { return &module{} }

func (m *module) Name() string        { return Name }
func (m *module) DependsOn() []string { return []string{web.Name} }

// Configure publishes *Checks and, when metrics are enabled, a
// prometheus.Registerer for other host modules, then mounts the actuator
// routes on the dispatcher.
func (m *module) Configure(c core.Container) error {
	cfg := core.Get[config.Root](c)
	checks := NewChecks()
	core.Put(c, checks)

	var reg *prometheus.Registry
	if cfg.Observability.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		core.Put[prometheus.Registerer](c, reg)
	}

	web.DispatcherFrom(c).Mount(Routes(cfg, checks, reg, time.Now()))
	return nil
}

// Routes returns the actuator mount. reg may be nil, in which case
// /metrics is not served.
func Routes(cfg config.Root, checks *Checks, reg *prometheus.Registry, started time.Time) func(web.Router) {
	return func(r web.Router) {
		group := r.Group(cfg.Actuator.BasePath)

		group.GET("/health", func(c *gin.Context) {
			h := checks.Run(c.Request.Context(), checkTimeout)
			status := http.StatusOK
			if h.Status != StatusUp {
				status = http.StatusServiceUnavailable
			}
			c.JSON(status, h)
		})

		group.GET("/info", func(c *gin.Context) {
			info := gin.H{
				"app": gin.H{
					"name":    cfg.App.Name,
					"version": cfg.App.Version,
				},
				"runtime": gin.H{
					"go":           runtime.Version(),
					"numGoroutine": runtime.NumGoroutine(),
					"time":         time.Now().UTC().Format(time.RFC3339),
					"pid":          os.Getpid(),
				},
				"uptime": time.Since(started).Round(time.Second).String(),
			}
			c.JSON(http.StatusOK, info)
		})

		if reg != nil {
			group.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})))
		}
	}
}

func (m *module) Start(_ context.Context, _ core.Container) error { return nil }
func (m *module) Stop(_ context.Context, _ core.Container) error { return nil }
