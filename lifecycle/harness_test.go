package lifecycle_test

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"

	"github.com/skekre98/modhost/lifecycle"
	"github.com/skekre98/modhost/module"
	"github.com/skekre98/modhost/registry"
)

// callLog is the shared, ordered record of extension hooks and web runtime
// calls.
type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) add(parts ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, strings.Join(parts, " "))
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *callLog) count(entry string) int {
	n := 0
	for _, e := range l.all() {
		if e == entry {
			n++
		}
	}
	return n
}

func (l *callLog) index(entry string) int {
	for i, e := range l.all() {
		if e == entry {
			return i
		}
	}
	return -1
}

// fakeWeb records handler registrations and reloads.
type fakeWeb struct {
	log        *callLog
	mu         sync.Mutex
	registered map[string]bool
	reloadErr  error
}

func (w *fakeWeb) RegisterHandlers(_ context.Context, d module.Descriptor, force bool) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	had := w.registered[d.ID]
	w.registered[d.ID] = true
	w.log.add("register", d.ID)
	return force || !had, nil
}

func (w *fakeWeb) UnregisterHandlers(_ context.Context, d module.Descriptor) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.registered[d.ID] {
		return false
	}
	delete(w.registered, d.ID)
	w.log.add("unregister", d.ID)
	return true
}

func (w *fakeWeb) ReloadDispatchSurface(context.Context) error {
	w.log.add("reload")
	return w.reloadErr
}

type harness struct {
	t       *testing.T
	log     *callLog
	catalog *registry.Catalog
	reg     *registry.Registry
	web     *fakeWeb
	orch    *lifecycle.Orchestrator
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	log := &callLog{}
	catalog := registry.NewCatalog()
	reg := registry.New(catalog, l)
	web := &fakeWeb{log: log, registered: map[string]bool{}}
	return &harness{
		t:       t,
		log:     log,
		catalog: catalog,
		reg:     reg,
		web:     web,
		orch:    lifecycle.New(reg, web, lifecycle.WithLogger(l)),
	}
}

type hooks struct {
	// startErr maps a version to the error its start hook returns.
	startErr map[string]error
	stopErr  error
	onStart  func()
}

// define binds id to an extension that records its load, start and stop.
func (h *harness) define(id string, hk hooks) {
	h.catalog.Register(id, func(d module.Descriptor) (registry.Extension, error) {
		h.log.add("load", d.ID)
		return registry.Funcs{
			OnStart: func(context.Context) error {
				h.log.add("start", d.ID)
				if hk.onStart != nil {
					hk.onStart()
				}
				return hk.startErr[d.Version]
			},
			OnStop: func(context.Context) error {
				h.log.add("stop", d.ID)
				return hk.stopErr
			},
		}, nil
	})
}

func (h *harness) exec(op lifecycle.Operation) *lifecycle.Result {
	return h.orch.Execute(lifecycle.WithPrincipal(context.Background(), lifecycle.System), op)
}

// preload loads modules straight into the registry, bypassing the
// orchestrator, and clears the log.
func (h *harness) preload(archives ...string) {
	h.t.Helper()
	for _, a := range archives {
		if _, err := h.reg.Load(context.Background(), []byte(a)); err != nil {
			h.t.Fatalf("preload: %v", err)
		}
	}
	h.resetLog()
}

func (h *harness) resetLog() {
	h.log.mu.Lock()
	h.log.entries = nil
	h.log.mu.Unlock()
}

func manifest(id, version string, requires ...string) string {
	s := "id: " + id + "\nversion: " + version + "\n"
	if len(requires) > 0 {
		s += "requires: [" + strings.Join(requires, ", ") + "]\n"
	}
	return s
}
