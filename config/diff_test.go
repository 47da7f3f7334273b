package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffEvent(t *testing.T) {
	base := func() *Root {
		r := &Root{}
		r.Server.Addr = ":8080"
		r.Admin.Token = "a"
		r.Logging.Level = "info"
		return r
	}

	tests := []struct {
		name   string
		mutate func(*Root)
		want   []string
	}{
		{"no change", func(*Root) {}, []string{}},
		{"nested field marks parent", func(r *Root) { r.Admin.Token = "b" }, []string{"Admin", "Admin.Token"}},
		{
			name:   "deeply nested",
			mutate: func(r *Root) { r.Server.TLS.Enabled = true },
			want:   []string{"Server", "Server.TLS", "Server.TLS.Enabled"},
		},
		{
			name: "several sections sorted",
			mutate: func(r *Root) {
				r.Logging.Level = "debug"
				r.Admin.Token = "c"
			},
			want: []string{"Admin", "Admin.Token", "Logging", "Logging.Level"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			next := base()
			tt.mutate(next)
			evt := diffEvent(base(), next)
			assert.Equal(t, tt.want, evt.ChangedKeys)
		})
	}
}

func TestDiffEvent_MismatchedTypes(t *testing.T) {
	evt := diffEvent(&Root{}, &AdminConfig{})
	assert.NotNil(t, evt.ChangedKeys)
	assert.Empty(t, evt.ChangedKeys)

	evt = diffEvent(nil, &Root{})
	assert.Empty(t, evt.ChangedKeys)
}

func TestEvent_Changed(t *testing.T) {
	evt := Event{ChangedKeys: []string{"Logging", "Logging.Level"}}
	assert.True(t, evt.Changed("Logging.Level"))
	assert.False(t, evt.Changed("Logging.Format"))
}
