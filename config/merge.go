package config

import "strings"

// Merge deep-merges src into dst. Keys are folded to lower case so that
// "readTimeout" from a file and "readtimeout" from the environment land on
// the same field. Nested maps from src are copied, so later merges never
// write into a source's own data.
func Merge(dst, src map[string]any) {
	for k, v := range src {
		k = strings.ToLower(k)
		mv, ok := v.(map[string]any)
		if !ok {
			dst[k] = v
			continue
		}
		existing, ok := dst[k].(map[string]any)
		if !ok {
			existing = make(map[string]any, len(mv))
			dst[k] = existing
		}
		Merge(existing, mv)
	}
}
