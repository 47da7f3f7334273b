package source

import (
	"context"

	"github.com/skekre98/modhost/config"
)

// MapSource serves a fixed map, typically compiled-in defaults.
type MapSource struct {
	Label  string
	Values map[string]any
}

// Map returns a MapSource named label.
func Map(label string, values map[string]any) *MapSource {
	return &MapSource{Label: label, Values: values}
}

func (m *MapSource) Name() string { return m.Label }

// Load returns a deep copy of Values.
func (m *MapSource) Load(ctx context.Context) (map[string]any, error) {
	out := make(map[string]any, len(m.Values))
	config.Merge(out, m.Values)
	return out, nil
}

func (m *MapSource) Watch(ctx context.Context, ch chan<- config.Event) error {
	return nil
}
