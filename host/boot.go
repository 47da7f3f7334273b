package host

import (
	"cmp"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/skekre98/modhost/graph"
	"github.com/skekre98/modhost/lifecycle"
	"github.com/skekre98/modhost/module"
)

// Manifest is a module archive read from disk.
type Manifest struct {
	Path       string
	Archive    []byte
	Descriptor module.Descriptor
}

func (m Manifest) Name() string        { return m.Descriptor.ID }
func (m Manifest) DependsOn() []string { return m.Descriptor.DependsOn() }

// ReadDir reads every *.yaml and *.yml file in dir, sorted by file name. A
// missing dir yields no manifests. Files that do not parse are still
// returned, with a zero Descriptor, so installing them reports the error.
func ReadDir(dir string) ([]Manifest, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read module dir: %w", err)
	}
	var out []Manifest
	for _, e := range entries {
		ext := filepath.Ext(e.Name())
		if e.IsDir() || (ext != ".yaml" && ext != ".yml") {
			continue
		}
		path := filepath.Join(dir, e.Name())
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		d, _ := module.ParseManifest(b)
		out = append(out, Manifest{Path: path, Archive: b, Descriptor: d})
	}
	slices.SortFunc(out, func(a, b Manifest) int { return cmp.Compare(a.Path, b.Path) })
	return out, nil
}

// Executor runs lifecycle operations; *lifecycle.Orchestrator is one.
type Executor interface {
	Execute(ctx context.Context, op lifecycle.Operation) *lifecycle.Result
}

// LoadAll loads manifests so that requirements come first, without starting
// them. Failures are logged and do not stop the remaining loads.
func LoadAll(ctx context.Context, exec Executor, manifests []Manifest, logger *slog.Logger) {
	ordered, err := graph.ResolveStartupOrder(manifests)
	if err != nil {
		logger.Warn("loading modules in file order", "kind", module.KindDependencyUnresolved, "error", err)
	}
	for _, m := range ordered {
		res := exec.Execute(ctx, lifecycle.Install{Archive: m.Archive, LoadOnly: true})
		if res.Status == lifecycle.StatusSucceeded {
			logger.Info("module loaded", "module", m.Descriptor.ID, "file", m.Path)
			continue
		}
		logger.Error("module load failed", "file", m.Path, "status", res.Status, "error", res.AsError())
	}
}
