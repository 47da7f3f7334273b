package lifecycle

import (
	"context"
	"slices"
)

// CapabilityManageModules is required for every mutating operation.
const CapabilityManageModules = "manage-modules"

// Principal is the caller on whose behalf an operation runs.
type Principal struct {
	Name         string
	Capabilities []string
}

// Has reports whether p holds capability.
func (p Principal) Has(capability string) bool {
	return slices.Contains(p.Capabilities, capability)
}

// System is the principal used by the host itself, e.g. when installing
// modules found on disk at boot.
var System = Principal{Name: "system", Capabilities: []string{CapabilityManageModules}}

type principalKey struct{}

// WithPrincipal attaches p to ctx.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the principal attached to ctx.
func PrincipalFrom(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
