// Package artifacts is the built-in plugin that manages compiler output
// directories.
package artifacts

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/runtime"
	"ChainForge/internal/task"
	"ChainForge/pkg/plugin"
)

// ID is the configuration key of the plugin.
const ID = "artifacts"

type artifactsPlugin struct {
	includeCache bool
	root         string
}

// New returns a fresh plugin instance.
func New() plugin.Plugin {
	return &artifactsPlugin{includeCache: true}
}

func (p *artifactsPlugin) Info() plugin.Info {
	return plugin.Info{
		ID:           ID,
		Name:         "Artifacts",
		Description:  "Removes compiled artifacts and the compiler cache.",
		Version:      "1.0.0",
		Category:     plugin.TypeTasks,
		Capabilities: []plugin.Capability{plugin.CapabilityFilesystem},
	}
}

func (p *artifactsPlugin) Configure(cfg map[string]any) error {
	raw, ok := cfg["include_cache"]
	if !ok {
		cfg["include_cache"] = p.includeCache
		return nil
	}
	include, ok := raw.(bool)
	if !ok {
		return fmt.Errorf("include_cache must be a boolean, got %T", raw)
	}
	p.includeCache = include
	return nil
}

func (p *artifactsPlugin) Init(ctx *plugin.ExecutionContext) error {
	reg, ok := plugin.Resource[*task.Registry](ctx, plugin.ResourceTaskRegistry)
	if !ok {
		return errors.New("task registry not provided")
	}
	root, ok := plugin.Resource[string](ctx, plugin.ResourceProjectRoot)
	if !ok || root == "" {
		return errors.New("project root not provided")
	}
	p.root = root
	return reg.Register(task.Definition{
		Name:        "clean",
		Description: "Clears the artifacts directory and the compiler cache",
		Action:      p.clean,
		Source:      ID,
	})
}

func (p *artifactsPlugin) Start(*plugin.ExecutionContext) error { return nil }

func (p *artifactsPlugin) Stop(*plugin.ExecutionContext) error { return nil }

func (p *artifactsPlugin) clean(_ context.Context, env *runtime.Env, _ []string) error {
	dirs := []string{env.Config.Paths.Artifacts}
	if p.includeCache {
		dirs = append(dirs, env.Config.Paths.Cache)
	}
	for _, dir := range dirs {
		rel, err := insideRoot(p.root, dir)
		if err != nil {
			return err
		}
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", rel, err)
		}
		env.Logger.Info("removed directory", "path", dir)
		fmt.Fprintf(env.Out, "removed %s\n", rel)
	}
	return nil
}

// insideRoot returns dir relative to root, refusing the root itself and
// anything outside it.
func insideRoot(root, dir string) (string, error) {
	if root == "" || dir == "" {
		return "", xerrors.New(xerrors.CodeInvalidConfig, "project root and directory are required")
	}
	rel, err := filepath.Rel(root, dir)
	if err != nil {
		return "", xerrors.Wrap(xerrors.CodeInvalidConfig, err, "resolve "+dir)
	}
	if rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", xerrors.Newf(xerrors.CodeInvalidConfig, "refusing to remove %s outside the project root", dir)
	}
	return rel, nil
}
