package web

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"

	"github.com/skekre98/modhost/module"
)

// DefaultModulePrefix is where module routes are mounted.
const DefaultModulePrefix = "/modules"

// RouteSource supplies the handlers of a started module.
type RouteSource interface {
	Routes(id string) []Route
}

// Dispatcher is the HTTP entry point of the host. It serves a gin engine
// built from the host's own mounts plus the handler sets of registered
// modules. Registering or dropping handlers only records them; the engine is
// rebuilt and swapped in by ReloadDispatchSurface. Requests already being
// served finish on the engine they started on.
type Dispatcher struct {
	logger      *slog.Logger
	prefix      string
	middlewares []Handler

	mu      sync.Mutex
	source  RouteSource
	mounts  []func(Router)
	modules map[string][]Route
	order   []string

	engine     atomic.Pointer[gin.Engine]
	generation atomic.Uint64
}

// NewDispatcher returns a Dispatcher that serves 503 until the first reload.
func NewDispatcher(logger *slog.Logger, prefix string, middlewares ...Handler) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if prefix == "" {
		prefix = DefaultModulePrefix
	}
	return &Dispatcher{
		logger:      logger.With(slog.String("component", "dispatcher")),
		prefix:      prefix,
		middlewares: middlewares,
		modules:     map[string][]Route{},
	}
}

// Bind sets where module handlers come from.
func (d *Dispatcher) Bind(src RouteSource) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.source = src
}

// Mount adds host routes, such as the admin API. They are part of every
// engine built from the next reload on.
func (d *Dispatcher) Mount(f func(r Router)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.mounts = append(d.mounts, f)
}

// RegisterHandlers records the routes of a started module.
func (d *Dispatcher) RegisterHandlers(_ context.Context, desc module.Descriptor, forceReload bool) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	var routes []Route
	if d.source != nil {
		routes = d.source.Routes(desc.ID)
	}
	if err := validateRoutes(routes); err != nil {
		return false, fmt.Errorf("module %s: %w", desc.ID, err)
	}

	prev, had := d.modules[desc.ID]
	if len(routes) == 0 {
		d.drop(desc.ID)
		return had, nil
	}
	changed := forceReload || signature(prev) != signature(routes)
	if !had {
		d.order = append(d.order, desc.ID)
	}
	d.modules[desc.ID] = slices.Clone(routes)
	return changed, nil
}

// UnregisterHandlers forgets a module's routes.
func (d *Dispatcher) UnregisterHandlers(_ context.Context, desc module.Descriptor) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, had := d.modules[desc.ID]
	d.drop(desc.ID)
	return had
}

func (d *Dispatcher) drop(id string) {
	delete(d.modules, id)
	d.order = slices.DeleteFunc(d.order, func(s string) bool { return s == id })
}

// ReloadDispatchSurface builds a new engine from the current mounts and
// module routes and swaps it in. On error the previous engine keeps serving.
func (d *Dispatcher) ReloadDispatchSurface(_ context.Context) error {
	d.mu.Lock()
	engine, err := d.build()
	served := len(d.order)
	d.mu.Unlock()
	if err != nil {
		return err
	}
	d.engine.Store(engine)
	gen := d.generation.Add(1)
	d.logger.Info("dispatch surface reloaded", "generation", gen, "modules", served)
	return nil
}

func (d *Dispatcher) build() (engine *gin.Engine, err error) {
	// gin reports conflicting routes by panicking
	defer func() {
		if rec := recover(); rec != nil {
			engine, err = nil, fmt.Errorf("build dispatch surface: %v", rec)
		}
	}()

	engine = gin.New()
	engine.Use(d.middlewares...)
	engine.NoRoute(func(c *gin.Context) {
		Problem(c, http.StatusNotFound, "no handler for "+c.Request.Method+" "+c.Request.URL.Path)
	})
	for _, mount := range d.mounts {
		mount(engine)
	}
	group := engine.Group(d.prefix)
	for _, id := range d.order {
		g := group.Group("/" + id)
		for _, r := range d.modules[id] {
			g.Handle(strings.ToUpper(r.Method), r.Path, r.Handler)
		}
	}
	return engine, nil
}

// ServeHTTP implements http.Handler.
func (d *Dispatcher) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	engine := d.engine.Load()
	if engine == nil {
		http.Error(w, "dispatch surface not ready", http.StatusServiceUnavailable)
		return
	}
	engine.ServeHTTP(w, r)
}

// Generation counts successful reloads.
func (d *Dispatcher) Generation() uint64 {
	return d.generation.Load()
}

// Registered lists the modules whose handlers are recorded, in registration
// order.
func (d *Dispatcher) Registered() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.order)
}
