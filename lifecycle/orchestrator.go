// Package lifecycle installs, updates, starts, stops and unloads modules in
// dependency-safe order.
//
// All mutating operations go through Orchestrator.Execute, which serializes
// them behind one lock held for the whole operation. Within an operation the
// registry is mutated strictly in the order computed by the graph package, and
// the web runtime's dispatch surface is reloaded at most once, after every
// module change of the operation has been applied.
package lifecycle

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/skekre98/modhost/graph"
	"github.com/skekre98/modhost/module"
)

// Orchestrator executes lifecycle operations against a Registry and keeps a
// WebRuntime in step with the set of started modules.
type Orchestrator struct {
	registry Registry
	web      WebRuntime
	logger   *slog.Logger
	metrics  *Metrics
	refresh  RefreshCoordinator

	// mu is held for the full duration of a mutating operation.
	mu sync.Mutex
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithMetrics sets the prometheus instruments.
func WithMetrics(m *Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// New returns an Orchestrator over reg and web.
func New(reg Registry, web WebRuntime, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		registry: reg,
		web:      web,
	}
	for _, opt := range opts {
		opt(o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	if o.metrics == nil {
		o.metrics = NewMetrics(nil)
	}
	o.logger = o.logger.With(slog.String("component", "lifecycle"))
	return o
}

// Execute runs op on behalf of the principal carried by ctx.
//
// The privilege check happens before the lock is taken and before anything
// is mutated. Once the operation has begun it runs to completion: ctx
// cancellation is ignored and there is no timeout.
func (o *Orchestrator) Execute(ctx context.Context, op Operation) *Result {
	if op == nil {
		res := &Result{Modules: []ModuleOutcome{}, started: time.Now()}
		res.halt(module.Errorf(module.KindPrecondition, "", "no operation given"))
		res.finish()
		return res
	}

	res := newResult(op)
	defer func() {
		res.finish()
		o.metrics.observe(res)
		o.logger.Info("lifecycle operation finished",
			"operation", res.Operation,
			"id", res.ID,
			"status", res.Status,
			"refreshed", res.Refreshed,
			"duration_ms", res.Duration.Milliseconds(),
		)
	}()

	if err := authorize(ctx); err != nil {
		o.logger.Warn("lifecycle operation denied", "operation", op.Kind(), "error", err)
		res.halt(err)
		return res
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	res.started = time.Now()
	ctx = context.WithoutCancel(ctx)

	o.refresh.Begin()
	o.dispatch(ctx, op, res)
	if o.refresh.Finish() {
		o.reloadDispatch(ctx, res)
	}
	o.metrics.setModules(o.registry)
	return res
}

func authorize(ctx context.Context) error {
	p, ok := PrincipalFrom(ctx)
	if ok && p.Has(CapabilityManageModules) {
		return nil
	}
	name := "anonymous caller"
	if ok && p.Name != "" {
		name = p.Name
	}
	return module.Errorf(module.KindPrivilegeDenied, "", "%s lacks the %s capability", name, CapabilityManageModules)
}

func (o *Orchestrator) dispatch(ctx context.Context, op Operation, res *Result) {
	defer func() {
		if rec := recover(); rec != nil {
			o.logger.Error("lifecycle operation panicked", "operation", op.Kind(), "panic", rec)
			res.halt(fmt.Errorf("internal error during %s: %v", op.Kind(), rec))
		}
	}()

	switch op := op.(type) {
	case Install:
		o.install(ctx, op, res)
	case Update:
		o.update(ctx, op, res)
	case Start:
		o.start(ctx, op, res)
	case Stop:
		o.stop(ctx, op, res)
	case Unload:
		o.unload(ctx, op, res)
	case StartAll:
		o.startAll(ctx, res)
	default:
		res.halt(module.Errorf(module.KindPrecondition, "", "unsupported operation %T", op))
	}
}

func (o *Orchestrator) install(ctx context.Context, op Install, res *Result) {
	desc, err := o.registry.Describe(op.Archive)
	if err != nil {
		res.halt(module.WithModule(err, module.KindLoadFailed, ""))
		return
	}
	if existing, ok := o.registry.FindByID(desc.ID); ok {
		res.halt(module.Errorf(module.KindPrecondition, desc.ID,
			"version %s is already installed; use update to replace it", existing.Version))
		return
	}
	d, err := o.load(ctx, op.Archive, res)
	if err != nil {
		res.halt(err)
		return
	}
	if op.LoadOnly {
		return
	}
	// a failed start leaves the module loaded; the outcome says so
	_ = o.startModule(ctx, d, false, res)
}

func (o *Orchestrator) update(ctx context.Context, op Update, res *Result) {
	desc, err := o.registry.Describe(op.Archive)
	if err != nil {
		res.halt(module.WithModule(err, module.KindLoadFailed, ""))
		return
	}
	existing, ok := o.registry.FindByID(desc.ID)
	if !ok {
		res.notef("module %s is not installed, installing version %s", desc.ID, desc.Version)
		o.install(ctx, Install{Archive: op.Archive}, res)
		return
	}

	var running []module.Descriptor
	for _, dep := range graph.TransitiveDependents(o.registry.AllLoaded(), existing) {
		if o.registry.State(dep.ID) == module.StateStarted {
			running = append(running, dep)
		}
	}
	order := o.order(running)

	// dependents of dependents go first
	var stopped []module.Descriptor
	for i := len(order) - 1; i >= 0; i-- {
		dep := order[i]
		if err := o.stopOne(ctx, dep, res); err != nil {
			o.haltUpdate(res, err, stopped)
			return
		}
		stopped = append(stopped, dep)
	}

	if o.registry.State(existing.ID) == module.StateStarted {
		if err := o.stopOne(ctx, existing, res); err != nil {
			o.haltUpdate(res, err, stopped)
			return
		}
	}
	if err := o.unloadOne(ctx, existing, res); err != nil {
		o.haltUpdate(res, err, stopped)
		return
	}

	d, err := o.load(ctx, op.Archive, res)
	if err != nil {
		o.haltUpdate(res, err, stopped)
		return
	}
	if err := o.startModule(ctx, d, true, res); err != nil {
		o.haltUpdate(res, err, stopped)
		return
	}

	for i, dep := range order {
		if err := o.startModule(ctx, dep, false, res); err != nil {
			o.haltUpdate(res, err, order[i:])
			return
		}
	}
	if existing.Version != d.Version {
		res.notef("module %s updated from %s to %s", d.ID, existing.Version, d.Version)
	}
}

// haltUpdate stops an update without trying to recover. Dependents stopped
// on the way stay stopped and are listed for the administrator.
func (o *Orchestrator) haltUpdate(res *Result, err error, leftStopped []module.Descriptor) {
	res.halt(err)
	if len(leftStopped) == 0 {
		return
	}
	ids := graph.Names(leftStopped)
	res.LeftStopped = append(res.LeftStopped, ids...)
	res.notef("update interrupted; dependents left stopped and need a manual start: %s", strings.Join(ids, ", "))
	o.logger.Error("update interrupted", "error", err, "left_stopped", ids)
}

func (o *Orchestrator) start(ctx context.Context, op Start, res *Result) {
	d, ok := o.registry.FindByID(op.ID)
	if !ok {
		res.halt(module.Errorf(module.KindNotFound, op.ID, "no such module"))
		return
	}
	if o.registry.State(d.ID) == module.StateStarted {
		res.record(ModuleOutcome{ID: d.ID, Version: d.Version, Action: "start", State: module.StateStarted, Message: "already started"})
		return
	}
	if err := o.startModule(ctx, d, false, res); err != nil {
		res.halt(err)
	}
}

func (o *Orchestrator) stop(ctx context.Context, op Stop, res *Result) {
	d, ok := o.registry.FindByID(op.ID)
	if !ok {
		res.halt(module.Errorf(module.KindNotFound, op.ID, "no such module"))
		return
	}
	if state := o.registry.State(d.ID); state != module.StateStarted {
		res.halt(module.Errorf(module.KindPrecondition, d.ID, "module is %s, not started", state))
		return
	}
	if err := o.stopWithDependents(ctx, d, op.Cascade, op.Force, res); err != nil {
		res.halt(err)
	}
}

func (o *Orchestrator) unload(ctx context.Context, op Unload, res *Result) {
	d, ok := o.registry.FindByID(op.ID)
	if !ok {
		res.halt(module.Errorf(module.KindNotFound, op.ID, "no such module"))
		return
	}
	if o.registry.State(d.ID) == module.StateStarted {
		if err := o.stopWithDependents(ctx, d, op.Cascade, op.Force, res); err != nil {
			res.halt(err)
			return
		}
	}
	if err := o.unloadOne(ctx, d, res); err != nil {
		res.halt(err)
	}
}

func (o *Orchestrator) startAll(ctx context.Context, res *Result) {
	var pending []module.Descriptor
	for _, d := range o.registry.AllLoaded() {
		if o.registry.State(d.ID).Startable() {
			pending = append(pending, d)
		}
	}
	if len(pending) == 0 {
		res.notef("no modules waiting to start")
		return
	}

	for _, d := range o.order(pending) {
		if o.registry.State(d.ID) == module.StateStarted {
			continue
		}
		// failures are recorded per module and do not stop the batch
		_ = o.startModule(ctx, d, false, res)
	}
	if failed := res.Failures(); len(failed) > 0 {
		ids := make([]string, len(failed))
		for i, f := range failed {
			ids[i] = f.ID
		}
		res.notef("%d of %d modules failed to start: %s", len(failed), len(pending), strings.Join(ids, ", "))
	}
}

func (o *Orchestrator) load(ctx context.Context, archive []byte, res *Result) (module.Descriptor, error) {
	d, err := o.registry.Load(ctx, archive)
	if err != nil {
		return d, module.WithModule(err, module.KindLoadFailed, "")
	}
	res.mutated = true
	res.record(ModuleOutcome{ID: d.ID, Version: d.Version, Action: "load", State: o.registry.State(d.ID)})
	return d, nil
}

// startModule starts d and registers its handlers. The outcome is recorded
// either way; the returned error is the StartFailed cause.
func (o *Orchestrator) startModule(ctx context.Context, d module.Descriptor, force bool, res *Result) error {
	if err := o.registry.Start(ctx, d); err != nil {
		err = module.WithModule(err, module.KindStartFailed, d.ID)
		o.logger.Warn("module failed to start", "module", d.ID, "error", err)
		res.record(ModuleOutcome{ID: d.ID, Version: d.Version, Action: "start", State: o.registry.State(d.ID), Err: err})
		return err
	}
	res.mutated = true

	out := ModuleOutcome{ID: d.ID, Version: d.Version, Action: "start", State: module.StateStarted}
	changed, err := o.web.RegisterHandlers(ctx, d, force)
	if err != nil {
		o.logger.Error("handler registration failed", "module", d.ID, "error", err)
		out.Message = "started, but its handlers could not be registered: " + err.Error()
	}
	if changed {
		o.refresh.MarkNeeded()
	}
	res.record(out)
	o.logger.Info("module started", "module", d.ID, "version", d.Version, "handlers_changed", changed)
	return nil
}

// stopOne stops d alone. Used by update, which has already stopped the
// dependents itself.
func (o *Orchestrator) stopOne(ctx context.Context, d module.Descriptor, res *Result) error {
	return o.stopWithDependents(ctx, d, false, false, res)
}

func (o *Orchestrator) stopWithDependents(ctx context.Context, d module.Descriptor, cascade, force bool, res *Result) error {
	stopped, err := o.registry.Stop(ctx, d, cascade, force)
	for _, dep := range stopped {
		res.mutated = true
		o.unregister(ctx, dep)
		res.record(ModuleOutcome{ID: dep.ID, Version: dep.Version, Action: "stop", State: o.registry.State(dep.ID), Message: "stopped as a dependent of " + d.ID})
	}
	if err != nil {
		err = module.WithModule(err, module.KindStopFailed, d.ID)
		res.record(ModuleOutcome{ID: d.ID, Version: d.Version, Action: "stop", State: o.registry.State(d.ID), Err: err})
		return err
	}
	res.mutated = true
	o.unregister(ctx, d)
	res.record(ModuleOutcome{ID: d.ID, Version: d.Version, Action: "stop", State: o.registry.State(d.ID)})
	o.logger.Info("module stopped", "module", d.ID, "dependents_stopped", graph.Names(stopped))
	return nil
}

func (o *Orchestrator) unloadOne(ctx context.Context, d module.Descriptor, res *Result) error {
	if err := o.registry.Unload(ctx, d); err != nil {
		err = module.WithModule(err, module.KindUnloadFailed, d.ID)
		res.record(ModuleOutcome{ID: d.ID, Version: d.Version, Action: "unload", State: o.registry.State(d.ID), Err: err})
		return err
	}
	res.mutated = true
	o.unregister(ctx, d)
	res.record(ModuleOutcome{ID: d.ID, Version: d.Version, Action: "unload", State: module.StateUnloaded})
	o.logger.Info("module unloaded", "module", d.ID, "version", d.Version)
	return nil
}

func (o *Orchestrator) unregister(ctx context.Context, d module.Descriptor) {
	if o.web.UnregisterHandlers(ctx, d) {
		o.refresh.MarkNeeded()
	}
}

// order returns ds in startup-safe order. Without one, the input order is
// kept and the cycle is only logged.
func (o *Orchestrator) order(ds []module.Descriptor) []module.Descriptor {
	ordered, err := graph.ResolveStartupOrder(ds)
	if err != nil {
		o.metrics.unresolved.Inc()
		o.logger.Warn("no dependency-safe order, keeping the given order",
			"error", &module.Error{Kind: module.KindDependencyUnresolved, Err: err},
			"modules", graph.Names(ds),
		)
	}
	return ordered
}

func (o *Orchestrator) reloadDispatch(ctx context.Context, res *Result) {
	err := o.web.ReloadDispatchSurface(ctx)
	o.metrics.reload(err)
	if err != nil {
		o.logger.Error("dispatch surface reload failed", "error", err)
		res.notef("dispatch surface reload failed: %v", err)
		return
	}
	res.Refreshed = true
}

// ModuleStatus is a read-only view of one loaded module.
type ModuleStatus struct {
	module.Descriptor
	State module.State `json:"state"`
}

// Modules lists loaded modules with their states. It does not take the
// operation lock and may observe an operation in progress.
func (o *Orchestrator) Modules() []ModuleStatus {
	loaded := o.registry.AllLoaded()
	out := make([]ModuleStatus, len(loaded))
	for i, d := range loaded {
		out[i] = ModuleStatus{Descriptor: d, State: o.registry.State(d.ID)}
	}
	return out
}

// State returns the current state of a module, StateUnloaded if unknown.
func (o *Orchestrator) State(id string) module.State {
	return o.registry.State(id)
}
