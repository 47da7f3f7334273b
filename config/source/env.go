package source

import (
	"context"
	"os"
	"strings"

	"github.com/skekre98/modhost/config"
)

// EnvPrefix marks environment variables that feed configuration.
const EnvPrefix = "MODHOST_"

// EnvSource loads configuration from MODHOST_ environment variables.
// Underscores separate levels and names are lower-cased:
//
//	MODHOST_SERVER_ADDR=:9090       -> {server: {addr: ":9090"}}
//	MODHOST_ADMIN_TOKEN=s3cret      -> {admin: {token: "s3cret"}}
//	MODHOST_MODULES_AUTOSTART=false -> {modules: {autostart: "false"}}
//
// When a leaf and a nested value collide, e.g. MODHOST_DB and
// MODHOST_DB_HOST, the first one seen wins.
type EnvSource struct {
	// Environ replaces os.Environ when set.
	Environ func() []string
}

func (e *EnvSource) Name() string { return "env" }

func (e *EnvSource) Load(ctx context.Context) (map[string]any, error) {
	environ := e.Environ
	if environ == nil {
		environ = os.Environ
	}
	result := make(map[string]any)
	for _, kv := range environ() {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(key, EnvPrefix) {
			continue
		}
		key = strings.ToLower(strings.TrimPrefix(key, EnvPrefix))
		setNestedValue(result, strings.Split(key, "_"), value)
	}
	return result, nil
}

// Watch returns immediately; the environment is fixed for the process.
func (e *EnvSource) Watch(ctx context.Context, ch chan<- config.Event) error {
	return nil
}

func setNestedValue(m map[string]any, segments []string, value string) {
	current := m
	for i, segment := range segments {
		if segment == "" {
			continue
		}
		if i == len(segments)-1 {
			current[segment] = value
			return
		}
		existing, ok := current[segment]
		if !ok {
			nested := make(map[string]any)
			current[segment] = nested
			current = nested
			continue
		}
		nested, ok := existing.(map[string]any)
		if !ok {
			// a leaf already sits at this path
			return
		}
		current = nested
	}
}
