package registry

import (
	"context"
	"sort"
	"sync"

	"github.com/skekre98/modhost/module"
	"github.com/skekre98/modhost/web"
)

// Extension is the code behind a module. Start runs when the module starts
// and Stop when it stops; neither runs while the module is merely loaded.
type Extension interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// RouteProvider is implemented by extensions that serve HTTP handlers. Paths
// are relative to the module's mount point.
type RouteProvider interface {
	Routes() []web.Route
}

// Factory builds the extension for a freshly loaded descriptor.
type Factory func(d module.Descriptor) (Extension, error)

// Catalog maps module ids to the compiled-in code that implements them.
// Modules without a catalog entry load as manifest-only modules.
type Catalog struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewCatalog returns an empty catalog.
func NewCatalog() *Catalog {
	return &Catalog{factories: map[string]Factory{}}
}

// Register binds id to f, replacing any previous binding.
func (c *Catalog) Register(id string, f Factory) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.factories[id] = f
}

// IDs lists the registered ids, sorted.
func (c *Catalog) IDs() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]string, 0, len(c.factories))
	for id := range c.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

func (c *Catalog) build(d module.Descriptor) (Extension, error) {
	if c == nil {
		return noop{}, nil
	}
	c.mu.RLock()
	f, ok := c.factories[d.ID]
	c.mu.RUnlock()
	if !ok {
		return noop{}, nil
	}
	return f(d)
}

type noop struct{}

func (noop) Start(context.Context) error { return nil }
func (noop) Stop(context.Context) error  { return nil }

// Funcs adapts plain functions and a route table to an Extension.
type Funcs struct {
	OnStart  func(ctx context.Context) error
	OnStop   func(ctx context.Context) error
	Handlers []web.Route
}

func (f Funcs) Start(ctx context.Context) error {
	if f.OnStart == nil {
		return nil
	}
	return f.OnStart(ctx)
}

func (f Funcs) Stop(ctx context.Context) error {
	if f.OnStop == nil {
		return nil
	}
	return f.OnStop(ctx)
}

func (f Funcs) Routes() []web.Route { return f.Handlers }
