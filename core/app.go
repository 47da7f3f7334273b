package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/skekre98/modhost/graph"
)

// DefaultShutdownTimeout bounds how long Stop hooks may run in total.
const DefaultShutdownTimeout = 15 * time.Second

type App struct {
	Modules   []Module
	Container Container
	Logger    *slog.Logger
	// ShutdownTimeout overrides DefaultShutdownTimeout when positive.
	ShutdownTimeout time.Duration
}

func NewApp(logger *slog.Logger, mods ...Module) *App {
	return &App{
		Modules:   mods,
		Container: NewContainer(),
		Logger:    logger,
	}
}

// Order returns the host modules in start order. Host modules are compiled
// in, so a duplicate name, a missing dependency or a cycle is an error here
// rather than a warning.
func (a *App) Order() ([]Module, error) {
	seen := make(map[string]bool, len(a.Modules))
	for _, m := range a.Modules {
		if seen[m.Name()] {
			return nil, fmt.Errorf("duplicate module name %q", m.Name())
		}
		seen[m.Name()] = true
	}
	missing := graph.Missing(a.Modules)
	for _, m := range a.Modules {
		if deps, ok := missing[m.Name()]; ok {
			return nil, fmt.Errorf("module %q depends on unknown %v", m.Name(), deps)
		}
	}
	order, err := graph.ResolveStartupOrder(a.Modules)
	if err != nil {
		return nil, fmt.Errorf("ordering host modules: %w", err)
	}
	return order, nil
}

// Run configures and starts every module, blocks until ctx is done or the
// process receives SIGINT/SIGTERM, then stops the started modules in
// reverse order.
func (a *App) Run(ctx context.Context) error {
	order, err := a.Order()
	if err != nil {
		return err
	}

	for _, m := range order {
		if err := m.Configure(a.Container); err != nil {
			return fmt.Errorf("configure %s: %w", m.Name(), err)
		}
	}

	var started []Module
	for _, m := range order {
		a.Logger.Info("starting module", "module", m.Name())
		if err := m.Start(ctx, a.Container); err != nil {
			err = fmt.Errorf("start %s: %w", m.Name(), err)
			return errors.Join(err, a.stop(started))
		}
		started = append(started, m)
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sig)
	select {
	case <-ctx.Done():
	case s := <-sig:
		a.Logger.Info("received signal", "signal", s.String())
	}

	return a.stop(started)
}

func (a *App) stop(started []Module) error {
	timeout := a.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var errs []error
	for i := len(started) - 1; i >= 0; i-- {
		m := started[i]
		a.Logger.Info("stopping module", "module", m.Name())
		if err := m.Stop(ctx, a.Container); err != nil {
			a.Logger.Error("module stop failed", "module", m.Name(), "error", err)
			errs = append(errs, fmt.Errorf("stop %s: %w", m.Name(), err))
		}
	}
	return errors.Join(errs...)
}
