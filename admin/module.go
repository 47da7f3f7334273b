package admin

import (
	"context"
	"log/slog"

	"github.com/skekre98/modhost/config"
	"github.com/skekre98/modhost/core"
	"github.com/skekre98/modhost/host"
	"github.com/skekre98/modhost/lifecycle"
	"github.com/skekre98/modhost/web"
)

const Name = "admin"

type adminModule struct{}

// Module returns the host module serving the administration API.
func Module() core.Module { return adminModule{} }

func (adminModule) Name() string        { return Name }
func (adminModule) DependsOn() []string { return []string{web.Name, host.Name} }

func (adminModule) Configure(c core.Container) error {
	cfg := core.Get[config.Root](c)
	l := core.Get[*slog.Logger](c)
	if cfg.Admin.Token == "" {
		l.Warn("admin token not configured, module administration is read-only")
	}
	h := NewHandler(core.Get[*lifecycle.Orchestrator](c), cfg.Admin.Token, cfg.Admin.MaxArchiveBytes, l)
	web.DispatcherFrom(c).Mount(h.Mount(cfg.Admin.BasePath))
	return nil
}

func (adminModule) Start(context.Context, core.Container) error { return nil }
func (adminModule) Stop(context.Context, core.Container) error  { return nil }
