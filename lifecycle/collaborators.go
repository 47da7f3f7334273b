package lifecycle

import (
	"context"

	"github.com/skekre98/modhost/module"
)

// Registry is the module catalog the orchestrator mutates. Each method is
// expected to be atomic on its own; sequencing them safely is the
// orchestrator's job.
type Registry interface {
	// Describe parses and validates an archive without changing anything.
	Describe(archive []byte) (module.Descriptor, error)
	// Load accepts an archive and returns the descriptor in LOADED state.
	Load(ctx context.Context, archive []byte) (module.Descriptor, error)
	// Start moves a module to STARTED. On failure it stays LOADED.
	Start(ctx context.Context, d module.Descriptor) error
	// Stop moves a module to STOPPED. With cascadeDependents the started
	// modules depending on it are stopped first and returned. Without it,
	// started dependents are a precondition violation unless force is set.
	Stop(ctx context.Context, d module.Descriptor, cascadeDependents, force bool) ([]module.Descriptor, error)
	// Unload removes a non-started module.
	Unload(ctx context.Context, d module.Descriptor) error

	FindByID(id string) (module.Descriptor, bool)
	AllLoaded() []module.Descriptor
	State(id string) module.State
}

// WebRuntime is the adapter that exposes module handlers over HTTP.
type WebRuntime interface {
	// RegisterHandlers records the handlers of a started module and reports
	// whether the served handler set changed. forceReload treats the set as
	// changed even when the routes look identical.
	RegisterHandlers(ctx context.Context, d module.Descriptor, forceReload bool) (bool, error)
	// UnregisterHandlers drops a stopped module's handlers and reports
	// whether anything was being served for it.
	UnregisterHandlers(ctx context.Context, d module.Descriptor) bool
	// ReloadDispatchSurface rebuilds the dispatcher from the recorded
	// handler sets.
	ReloadDispatchSurface(ctx context.Context) error
}
