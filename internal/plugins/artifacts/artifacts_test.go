package artifacts

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"ChainForge/internal/config"
	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/runtime"
	"ChainForge/internal/task"
	"ChainForge/pkg/plugin"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T, root string, paths config.PathsConfig, pluginCfg map[string]any) (*task.Runner, *runtime.Env, *bytes.Buffer) {
	t.Helper()
	reg := task.NewRegistry()
	m, err := plugin.NewManager(plugin.ManagerConfig{
		Defaults: plugin.IsolationPolicy{AllowedCapabilities: []plugin.Capability{plugin.CapabilityFilesystem}},
		Plugins:  map[string]plugin.PluginConfig{ID: {Enabled: true, Config: pluginCfg}},
	},
		plugin.WithBuiltin(ID, New),
		plugin.WithResource(plugin.ResourceTaskRegistry, reg),
		plugin.WithResource(plugin.ResourceProjectRoot, root),
	)
	require.NoError(t, err)
	require.NoError(t, m.StartAll(context.Background()))

	cfg := &config.Config{
		Paths:          paths,
		DefaultNetwork: "devnet",
		Networks:       map[string]config.NetworkConfig{"devnet": {ChainID: 1337}},
	}
	var out bytes.Buffer
	env, err := runtime.New(cfg, "", runtime.WithOutput(&out))
	require.NoError(t, err)
	return task.NewRunner(reg), env, &out
}

func TestCleanRemovesArtifactsAndCache(t *testing.T) {
	root := t.TempDir()
	paths := config.PathsConfig{
		Sources:   filepath.Join(root, "contracts"),
		Artifacts: filepath.Join(root, "src", "artifacts"),
		Cache:     filepath.Join(root, "cache"),
	}
	for _, dir := range []string{paths.Sources, paths.Artifacts, paths.Cache} {
		require.NoError(t, os.MkdirAll(dir, 0o755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "x.json"), []byte("{}"), 0o644))
	}

	runner, env, out := setup(t, root, paths, nil)
	require.NoError(t, runner.Run(context.Background(), env, "clean", nil))

	assert.NoDirExists(t, paths.Artifacts)
	assert.NoDirExists(t, paths.Cache)
	assert.DirExists(t, paths.Sources)
	assert.Contains(t, out.String(), "removed "+filepath.Join("src", "artifacts"))

	require.NoError(t, runner.Run(context.Background(), env, "clean", nil))
}

func TestCleanCanKeepCache(t *testing.T) {
	root := t.TempDir()
	paths := config.PathsConfig{Artifacts: filepath.Join(root, "artifacts"), Cache: filepath.Join(root, "cache")}
	require.NoError(t, os.MkdirAll(paths.Cache, 0o755))

	runner, env, _ := setup(t, root, paths, map[string]any{"include_cache": false})
	require.NoError(t, runner.Run(context.Background(), env, "clean", nil))
	assert.DirExists(t, paths.Cache)
}

func TestCleanRefusesPathsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	for _, artifacts := range []string{root, outside} {
		runner, env, _ := setup(t, root, config.PathsConfig{Artifacts: artifacts, Cache: filepath.Join(root, "cache")}, nil)
		err := runner.Run(context.Background(), env, "clean", nil)
		assert.True(t, xerrors.HasCode(err, xerrors.CodeInvalidConfig), "artifacts=%s err=%v", artifacts, err)
		assert.DirExists(t, artifacts)
	}
}

func TestInitRequiresProjectRoot(t *testing.T) {
	m, err := plugin.NewManager(plugin.ManagerConfig{
		Plugins: map[string]plugin.PluginConfig{ID: {Enabled: true}},
	},
		plugin.WithBuiltin(ID, New),
		plugin.WithResource(plugin.ResourceTaskRegistry, task.NewRegistry()),
	)
	require.NoError(t, err)

	err = m.StartAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "project root not provided")
}

func TestConfigureRejectsNonBool(t *testing.T) {
	err := New().Configure(map[string]any{"include_cache": "yes"})
	assert.Error(t, err)
}
