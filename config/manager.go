package config

import (
	"context"
	"fmt"
	"log/slog"
	"reflect"
	"sync"
)

// Manager loads configuration from ordered sources, validates it and keeps
// a caller-owned struct up to date.
//
// Later sources override earlier ones. A reload that fails to load, bind or
// validate leaves the current configuration untouched. All methods are safe
// for concurrent use.
type Manager struct {
	sources []ConfigSource
	config  any
	binder  *Binder
	logger  *slog.Logger

	mu   sync.RWMutex
	subs []chan Event

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Options configures a Manager.
type Options struct {
	// AutoReload starts a watcher per source and reloads on change.
	AutoReload bool
	// Strict rejects configuration keys that map to no field.
	Strict bool
	Logger *slog.Logger
}

// NewManager binds cfg, a pointer to a struct, from sources and returns the
// Manager that keeps it current.
//
//	var cfg config.Root
//	mgr, err := config.NewManager(&cfg, config.Options{AutoReload: true},
//	    source.Map("defaults", config.Defaults()),
//	    &source.FileSource{BasePath: "configs"},
//	    &source.EnvSource{},
//	    &source.CLISource{},
//	)
func NewManager(cfg any, opts Options, sources ...ConfigSource) (*Manager, error) {
	if v := reflect.ValueOf(cfg); v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return nil, fmt.Errorf("config target must be a pointer to a struct, got %T", cfg)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	binder := NewBinder()
	binder.Strict = opts.Strict

	m := &Manager{
		sources: sources,
		config:  cfg,
		binder:  binder,
		logger:  logger.With(slog.String("component", "config")),
	}
	if err := m.Reload(context.Background()); err != nil {
		return nil, err
	}
	if opts.AutoReload {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancel = cancel
		m.startWatchers(ctx)
	}
	return m, nil
}

// Reload loads every source, merges, binds and validates into a fresh value
// and then swaps it into the managed struct. Subscribers are notified when
// any field changed.
func (m *Manager) Reload(ctx context.Context) error {
	merged := map[string]any{}
	for _, src := range m.sources {
		if err := ctx.Err(); err != nil {
			return err
		}
		vals, err := src.Load(ctx)
		if err != nil {
			return fmt.Errorf("failed to load config from %s: %w", src.Name(), err)
		}
		Merge(merged, vals)
	}

	typ := reflect.TypeOf(m.config).Elem()
	next := reflect.New(typ)
	if err := m.binder.Bind(merged, next.Interface()); err != nil {
		return fmt.Errorf("failed to bind config: %w", err)
	}

	m.mu.Lock()
	prev := reflect.New(typ)
	prev.Elem().Set(reflect.ValueOf(m.config).Elem())
	reflect.ValueOf(m.config).Elem().Set(next.Elem())
	m.mu.Unlock()

	evt := diffEvent(prev.Interface(), next.Interface())
	if len(evt.ChangedKeys) > 0 {
		m.notify(evt)
	}
	return nil
}

// Snapshot copies the current configuration into out, which must be a
// pointer of the managed type.
func (m *Manager) Snapshot(out any) error {
	dst := reflect.ValueOf(out)
	if dst.Kind() != reflect.Pointer || dst.Type() != reflect.TypeOf(m.config) {
		return fmt.Errorf("snapshot target must be %T, got %T", m.config, out)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	dst.Elem().Set(reflect.ValueOf(m.config).Elem())
	return nil
}

// Subscribe registers ch for change events. Sends never block: an event is
// dropped for a subscriber whose buffer is full. ch is never closed.
func (m *Manager) Subscribe(ch chan Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subs = append(m.subs, ch)
}

func (m *Manager) notify(evt Event) {
	m.mu.RLock()
	subs := append([]chan Event(nil), m.subs...)
	m.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- evt:
		default:
			m.logger.Warn("config subscriber not keeping up, event dropped", "changed", evt.ChangedKeys)
		}
	}
}

func (m *Manager) startWatchers(ctx context.Context) {
	for _, src := range m.sources {
		changes := make(chan Event, 1)

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			if err := src.Watch(ctx, changes); err != nil && ctx.Err() == nil {
				m.logger.Warn("config watch stopped", "source", src.Name(), "error", err)
			}
		}()

		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case <-changes:
					if err := m.Reload(ctx); err != nil && ctx.Err() == nil {
						m.logger.Error("config reload failed, keeping previous configuration", "source", src.Name(), "error", err)
					}
				}
			}
		}()
	}
}

// Close stops the watchers started by AutoReload and waits for them.
func (m *Manager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	m.wg.Wait()
}
