// Package host wires the lifecycle orchestrator into the application: it
// owns the module registry, loads the manifests found on disk at boot and
// stops every module on shutdown.
package host

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/skekre98/modhost/actuator"
	"github.com/skekre98/modhost/config"
	"github.com/skekre98/modhost/core"
	"github.com/skekre98/modhost/graph"
	"github.com/skekre98/modhost/lifecycle"
	"github.com/skekre98/modhost/module"
	"github.com/skekre98/modhost/registry"
	"github.com/skekre98/modhost/web"
)

const Name = "modules"

type hostModule struct {
	orch   *lifecycle.Orchestrator
	reg    *registry.Registry
	logger *slog.Logger
}

// Module returns the host module. Code for compiled-in modules is taken
// from a *registry.Catalog in the container, if one was put there.
func Module() core.Module { return &hostModule{} }

func (m *hostModule) Name() string        { return Name }
func (m *hostModule) DependsOn() []string { return []string{web.Name, actuator.Name} }

func (m *hostModule) Configure(c core.Container) error {
	m.logger = core.Get[*slog.Logger](c)
	catalog, _ := core.Lookup[*registry.Catalog](c)
	promReg, _ := core.Lookup[prometheus.Registerer](c)

	d := web.DispatcherFrom(c)
	m.reg = registry.New(catalog, m.logger)
	d.Bind(m.reg)
	m.orch = lifecycle.New(m.reg, d,
		lifecycle.WithLogger(m.logger),
		lifecycle.WithMetrics(lifecycle.NewMetrics(promReg)),
	)

	core.Put(c, m.reg)
	core.Put(c, m.orch)
	if checks, ok := core.Lookup[*actuator.Checks](c); ok {
		checks.Register(Name, HealthCheck(m.reg))
	}
	return nil
}

func (m *hostModule) Start(ctx context.Context, c core.Container) error {
	cfg := core.Get[config.Root](c)
	ctx = lifecycle.WithPrincipal(ctx, lifecycle.System)

	if cfg.Modules.Dir != "" {
		manifests, err := ReadDir(cfg.Modules.Dir)
		if err != nil {
			return err
		}
		LoadAll(ctx, m.orch, manifests, m.logger)
	}
	// one batch, so the dispatch surface is rebuilt at most once
	if cfg.Modules.AutoStart {
		res := m.orch.Execute(ctx, lifecycle.StartAll{})
		if res.Status != lifecycle.StatusSucceeded {
			m.logger.Warn("some modules did not start", "error", res.AsError())
		}
	}
	return nil
}

// Stop stops every started module, dependents first.
func (m *hostModule) Stop(ctx context.Context, _ core.Container) error {
	ctx = lifecycle.WithPrincipal(ctx, lifecycle.System)
	order, err := graph.ResolveShutdownOrder(m.reg.AllLoaded())
	if err != nil {
		m.logger.Warn("stopping modules in reverse load order", "error", err)
	}
	var failed []string
	for _, d := range order {
		if m.reg.State(d.ID) != module.StateStarted {
			continue
		}
		res := m.orch.Execute(ctx, lifecycle.Stop{ID: d.ID, Cascade: true})
		if res.Status != lifecycle.StatusSucceeded {
			failed = append(failed, d.ID)
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("modules did not stop cleanly: %s", strings.Join(failed, ", "))
	}
	return nil
}

// HealthCheck reports DOWN while any loaded module is in ERROR.
func HealthCheck(reg *registry.Registry) actuator.Check {
	return func(context.Context) error {
		var broken []string
		for _, d := range reg.AllLoaded() {
			if reg.State(d.ID) == module.StateError {
				broken = append(broken, d.ID)
			}
		}
		if len(broken) > 0 {
			return fmt.Errorf("modules in ERROR: %s", strings.Join(broken, ", "))
		}
		return nil
	}
}
