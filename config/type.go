package config

import "context"

// ConfigSource supplies configuration as a string-keyed, possibly nested map.
//
// Load must be safe for concurrent use and return data the caller may keep.
// Watch blocks, sending on ch whenever the source's data may have changed,
// until ctx is done. Sources that cannot change return nil right away.
type ConfigSource interface {
	Load(ctx context.Context) (map[string]any, error)
	Watch(ctx context.Context, ch chan<- Event) error
	// Name identifies the source in errors and logs, e.g. "file" or "env".
	Name() string
}

// Event describes a configuration change.
type Event struct {
	// ChangedKeys lists dotted field paths whose values differ, sorted.
	// A changed nested field also marks its parents, e.g. "Admin" and
	// "Admin.Token".
	ChangedKeys []string

	// OldConfig and NewConfig hold copies of the configuration before and
	// after the change, of the type passed to NewManager.
	OldConfig any
	NewConfig any
}
