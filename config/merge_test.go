package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/skekre98/modhost/config"
)

func TestMerge(t *testing.T) {
	tests := []struct {
		name string
		dst  map[string]any
		src  map[string]any
		want map[string]any
	}{
		{
			name: "later scalar wins",
			dst:  map[string]any{"addr": ":8080"},
			src:  map[string]any{"addr": ":9090"},
			want: map[string]any{"addr": ":9090"},
		},
		{
			name: "nested maps merge",
			dst:  map[string]any{"server": map[string]any{"addr": ":8080", "tls": map[string]any{"enabled": false}}},
			src:  map[string]any{"server": map[string]any{"tls": map[string]any{"enabled": true}}},
			want: map[string]any{"server": map[string]any{"addr": ":8080", "tls": map[string]any{"enabled": true}}},
		},
		{
			name: "keys fold to lower case",
			dst:  map[string]any{"server": map[string]any{"readtimeout": "1s"}},
			src:  map[string]any{"Server": map[string]any{"readTimeout": "2s"}},
			want: map[string]any{"server": map[string]any{"readtimeout": "2s"}},
		},
		{
			name: "map replaces scalar",
			dst:  map[string]any{"db": "inline"},
			src:  map[string]any{"db": map[string]any{"host": "h"}},
			want: map[string]any{"db": map[string]any{"host": "h"}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config.Merge(tt.dst, tt.src)
			assert.Equal(t, tt.want, tt.dst)
		})
	}
}

func TestMerge_DoesNotAliasSource(t *testing.T) {
	src := map[string]any{"admin": map[string]any{"token": "a"}}
	dst := map[string]any{}
	config.Merge(dst, src)

	dst["admin"].(map[string]any)["token"] = "b"
	assert.Equal(t, "a", src["admin"].(map[string]any)["token"])
}
