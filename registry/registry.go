// Package registry keeps the in-process catalog of loaded modules: their
// descriptors, lifecycle states and the extension code bound to them.
package registry

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/skekre98/modhost/graph"
	"github.com/skekre98/modhost/module"
	"github.com/skekre98/modhost/web"
)

type entry struct {
	desc    module.Descriptor
	state   module.State
	ext     Extension
	lastErr error
}

// Registry is an in-memory module catalog. Mutations are serialized among
// themselves; extension hooks run outside the data lock so reads never wait
// on a slow Start or Stop.
type Registry struct {
	catalog   *Catalog
	validator *module.Validator
	logger    *slog.Logger

	opMu sync.Mutex

	mu      sync.RWMutex
	entries map[string]*entry
	order   []string // load order
}

// New returns an empty registry that binds loaded modules to catalog code.
func New(catalog *Catalog, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		catalog:   catalog,
		validator: module.NewValidator(),
		logger:    logger.With(slog.String("component", "registry")),
		entries:   map[string]*entry{},
	}
}

// Describe parses and validates an archive's manifest.
func (r *Registry) Describe(archive []byte) (module.Descriptor, error) {
	d, err := module.ParseManifest(archive)
	if err != nil {
		return d, err
	}
	if err := r.validator.Validate(d); err != nil {
		return d, err
	}
	return d, nil
}

// Load accepts an archive. The module ends up LOADED; its extension is
// built but not started.
func (r *Registry) Load(ctx context.Context, archive []byte) (module.Descriptor, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	d, err := r.Describe(archive)
	if err != nil {
		return d, err
	}
	if _, ok := r.lookup(d.ID); ok {
		return d, module.Errorf(module.KindLoadFailed, d.ID, "a module with this id is already loaded")
	}
	ext, err := r.catalog.build(d)
	if err != nil {
		return d, &module.Error{Kind: module.KindLoadFailed, ModuleID: d.ID, Err: err}
	}
	state, err := module.Transition(module.StateUnloaded, module.EventLoad)
	if err != nil {
		return d, err
	}

	r.mu.Lock()
	r.entries[d.ID] = &entry{desc: d, state: state, ext: ext}
	r.order = append(r.order, d.ID)
	r.mu.Unlock()

	r.logger.Info("module loaded", "module", d.ID, "version", d.Version)
	return d, nil
}

// Start runs the module's extension. Every required module must already be
// started; otherwise, or when the extension fails, the module keeps its
// current state and a StartFailed error is returned.
func (r *Registry) Start(ctx context.Context, d module.Descriptor) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	e, ok := r.lookup(d.ID)
	if !ok {
		return module.Errorf(module.KindNotFound, d.ID, "not loaded")
	}
	if _, err := module.Transition(e.state, module.EventStart); err != nil {
		return module.WithModule(err, module.KindPrecondition, d.ID)
	}
	for _, req := range e.desc.Requires {
		if s := r.State(req); s != module.StateStarted {
			err := module.Errorf(module.KindStartFailed, d.ID, "required module %s is %s", req, s)
			r.setErr(d.ID, err)
			return err
		}
	}

	if err := e.ext.Start(ctx); err != nil {
		err = &module.Error{Kind: module.KindStartFailed, ModuleID: d.ID, Err: err}
		r.setErr(d.ID, err)
		return err
	}
	r.setState(d.ID, module.StateStarted, nil)
	return nil
}

// Stop stops a started module. See lifecycle.Registry for the cascade and
// force semantics. The returned dependents are in the order they were
// stopped.
func (r *Registry) Stop(ctx context.Context, d module.Descriptor, cascadeDependents, force bool) ([]module.Descriptor, error) {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	e, ok := r.lookup(d.ID)
	if !ok {
		return nil, module.Errorf(module.KindNotFound, d.ID, "not loaded")
	}
	if _, err := module.Transition(e.state, module.EventStop); err != nil {
		return nil, module.WithModule(err, module.KindPrecondition, d.ID)
	}

	var running []module.Descriptor
	for _, dep := range graph.TransitiveDependents(r.AllLoaded(), e.desc) {
		if r.State(dep.ID) == module.StateStarted {
			running = append(running, dep)
		}
	}

	var stopped []module.Descriptor
	switch {
	case len(running) == 0, force && !cascadeDependents:
	case cascadeDependents:
		order, err := graph.ResolveShutdownOrder(running)
		if err != nil {
			r.logger.Warn("stopping dependents without a safe order", "module", d.ID, "error", err)
		}
		for _, dep := range order {
			if err := r.stopOne(ctx, dep.ID); err != nil {
				return stopped, err
			}
			stopped = append(stopped, dep)
		}
	default:
		return nil, module.Errorf(module.KindPrecondition, d.ID,
			"started modules depend on it: %v; stop them first or request a cascade", graph.Names(running))
	}

	return stopped, r.stopOne(ctx, d.ID)
}

func (r *Registry) stopOne(ctx context.Context, id string) error {
	e, ok := r.lookup(id)
	if !ok {
		return module.Errorf(module.KindNotFound, id, "not loaded")
	}
	if err := e.ext.Stop(ctx); err != nil {
		err = &module.Error{Kind: module.KindStopFailed, ModuleID: id, Err: err}
		r.setState(id, module.StateError, err)
		r.logger.Error("module stop hook failed", "module", id, "error", err)
		return err
	}
	r.setState(id, module.StateStopped, nil)
	r.logger.Info("module stopped", "module", id)
	return nil
}

// Unload removes a module that is not started.
func (r *Registry) Unload(ctx context.Context, d module.Descriptor) error {
	r.opMu.Lock()
	defer r.opMu.Unlock()

	e, ok := r.lookup(d.ID)
	if !ok {
		return module.Errorf(module.KindNotFound, d.ID, "not loaded")
	}
	if _, err := module.Transition(e.state, module.EventUnload); err != nil {
		return module.WithModule(err, module.KindPrecondition, d.ID)
	}

	r.mu.Lock()
	delete(r.entries, d.ID)
	r.order = slices.DeleteFunc(r.order, func(id string) bool { return id == d.ID })
	r.mu.Unlock()

	r.logger.Info("module unloaded", "module", d.ID, "version", e.desc.Version)
	return nil
}

// FindByID returns the descriptor of a loaded module.
func (r *Registry) FindByID(id string) (module.Descriptor, bool) {
	e, ok := r.lookup(id)
	if !ok {
		return module.Descriptor{}, false
	}
	return e.desc, true
}

// AllLoaded returns every loaded module in load order.
func (r *Registry) AllLoaded() []module.Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]module.Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.entries[id].desc)
	}
	return out
}

// State returns the module's state, StateUnloaded when it is not loaded.
func (r *Registry) State(id string) module.State {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return e.state
	}
	return module.StateUnloaded
}

// LastError returns the error recorded by the module's last failed start or
// stop.
func (r *Registry) LastError(id string) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if e, ok := r.entries[id]; ok {
		return e.lastErr
	}
	return nil
}

// Routes returns the handlers a module serves. Only started modules serve
// anything.
func (r *Registry) Routes(id string) []web.Route {
	e, ok := r.lookup(id)
	if !ok || e.state != module.StateStarted {
		return nil
	}
	if rp, ok := e.ext.(RouteProvider); ok {
		return rp.Routes()
	}
	return nil
}

// lookup returns a snapshot of the entry.
func (r *Registry) lookup(id string) (entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entries[id]
	if !ok {
		return entry{}, false
	}
	return *e, true
}

func (r *Registry) setState(id string, s module.State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.state = s
		e.lastErr = err
	}
}

func (r *Registry) setErr(id string, err error) {
	r.logger.Warn("module failed to start", "module", id, "error", err)
	r.mu.Lock()
	defer r.mu.Unlock()
	if e, ok := r.entries[id]; ok {
		e.lastErr = err
	}
}
