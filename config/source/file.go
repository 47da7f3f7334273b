package source

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"

	"github.com/skekre98/modhost/config"
)

// FileSource loads application.yaml (or .yml) from BasePath and, when
// Profile is set, deep-merges application.<Profile>.yaml over it.
//
//	configs/
//	  application.yaml
//	  application.prod.yaml
type FileSource struct {
	BasePath string
	Profile  string
	// Optional makes a missing base file load as empty instead of failing.
	Optional bool
}

func (f *FileSource) Name() string { return "file" }

func (f *FileSource) Load(ctx context.Context) (map[string]any, error) {
	data := map[string]any{}

	base := findYAMLFile(f.BasePath, "application")
	if base == "" {
		if f.Optional {
			return data, nil
		}
		return nil, fmt.Errorf("no application.yaml in %q: %w", f.BasePath, os.ErrNotExist)
	}
	if err := readYAML(base, data); err != nil {
		return nil, err
	}

	if f.Profile != "" {
		if p := findYAMLFile(f.BasePath, "application."+f.Profile); p != "" {
			overlay := map[string]any{}
			if err := readYAML(p, overlay); err != nil {
				return nil, err
			}
			config.Merge(data, overlay)
		}
	}
	return data, nil
}

// Watch signals ch whenever an application*.yaml file in BasePath is
// written, created, renamed or removed. It returns when ctx is done.
func (f *FileSource) Watch(ctx context.Context, ch chan<- config.Event) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(f.BasePath); err != nil {
		return fmt.Errorf("watch %q: %w", f.BasePath, err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isConfigFile(ev.Name) || ev.Op == fsnotify.Chmod {
				continue
			}
			select {
			case ch <- config.Event{}:
			default:
				// a reload is already pending
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		}
	}
}

func isConfigFile(path string) bool {
	name := filepath.Base(path)
	ext := filepath.Ext(name)
	return strings.HasPrefix(name, "application") && (ext == ".yaml" || ext == ".yml")
}

func findYAMLFile(dir, basename string) string {
	for _, ext := range []string{".yaml", ".yml"} {
		path := filepath.Join(dir, basename+ext)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

func readYAML(path string, out map[string]any) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return nil
}
