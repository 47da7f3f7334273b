package core

import "context"

// Module is a host component taking part in the process lifecycle, such as
// the HTTP server or the admin API. Modules are configured and started in
// dependency order and stopped in reverse.
type Module interface {
	Name() string
	// DependsOn names modules that must be configured and started first.
	DependsOn() []string
	// Configure publishes the module's objects into the container. It must
	// not start background work.
	Configure(c Container) error
	Start(ctx context.Context, c Container) error
	Stop(ctx context.Context, c Container) error
}
