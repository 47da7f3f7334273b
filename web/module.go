package web

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/skekre98/modhost/config"
	"github.com/skekre98/modhost/core"
)

const Name = "web"

// Module returns the host module owning the HTTP server and the Dispatcher
// other host modules mount their routes on.
func Module(opts ...Option) core.Module {
	var options Options
	for _, o := range opts {
		o(&options)
	}
	return &webModule{opts: options}
}

// DispatcherFrom returns the Dispatcher published by the web module.
func DispatcherFrom(c core.Container) *Dispatcher {
	return core.Get[*Dispatcher](c)
}

type webModule struct {
	opts   Options
	server *http.Server
	done   chan struct{}
}

func (m *webModule) Name() string        { return Name }
func (m *webModule) DependsOn() []string { return nil }

func (m *webModule) Configure(c core.Container) error {
	cfg := core.Get[config.Root](c)
	l := core.Get[*slog.Logger](c)

	gin.SetMode(gin.ReleaseMode)
	middlewares := append([]Handler{RequestID(), RecoveryProblem(l), AccessLog(l)}, m.opts.Middlewares...)
	d := NewDispatcher(l, cfg.Modules.MountPrefix, middlewares...)

	m.server = &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      d,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	core.Put(c, d)
	core.Put(c, m.server)
	return nil
}

// Start builds the first dispatch surface and starts serving. The listener
// is opened synchronously so a busy port fails startup.
func (m *webModule) Start(ctx context.Context, c core.Container) error {
	cfg := core.Get[config.Root](c)
	l := core.Get[*slog.Logger](c)

	if err := DispatcherFrom(c).ReloadDispatchSurface(ctx); err != nil {
		return err
	}
	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}

	m.done = make(chan struct{})
	go func() {
		defer close(m.done)
		l.Info("http server starting", "addr", ln.Addr().String(), "tls", cfg.Server.TLS.Enabled)
		var err error
		if cfg.Server.TLS.Enabled {
			err = m.server.ServeTLS(ln, cfg.Server.TLS.CertFile, cfg.Server.TLS.KeyFile)
		} else {
			err = m.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			l.Error("http server error", "error", err)
		}
	}()
	return nil
}

func (m *webModule) Stop(ctx context.Context, c core.Container) error {
	if m.done == nil {
		return nil
	}
	shutdownCtx := ctx
	if t := core.Get[config.Root](c).Server.ShutdownTimeout; t > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, t)
		defer cancel()
	}
	if err := m.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	<-m.done
	return nil
}
