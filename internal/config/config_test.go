package config

import (
	"os"
	"path/filepath"
	"testing"

	xerrors "ChainForge/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testKey     = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testAddress = "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"
)

const projectYAML = `
solidity:
  version: "0.8.10"
paths:
  artifacts: ./src/artifacts
secrets:
  path: secrets.json
default_network: hardhat
networks:
  hardhat:
    chain_id: 1337
  testnet:
    chain_id: 97
    url: https://speedy-nodes-nyc.example.io/a9679fa8/bsc/testnet
    accounts:
      - secret:key
plugins:
  defaults:
    allowed_capabilities: [filesystem, network]
  plugins:
    artifacts:
      enabled: true
`

func writeProject(t *testing.T, yaml string, secrets string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
	if secrets != "" {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "secrets.json"), []byte(secrets), 0o600))
	}
	return path
}

func TestLoadProjectFile(t *testing.T) {
	path := writeProject(t, projectYAML, `{"key": "`+testKey+`"}`)
	root := filepath.Dir(path)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, root, cfg.Root)
	assert.Equal(t, "0.8.10", cfg.Solidity.Version)
	assert.Equal(t, DefaultOptimizerRuns, cfg.Solidity.Optimizer.Runs)
	assert.Equal(t, filepath.Join(root, "src", "artifacts"), cfg.Paths.Artifacts)
	assert.Equal(t, filepath.Join(root, "contracts"), cfg.Paths.Sources)
	assert.Equal(t, filepath.Join(root, "cache"), cfg.Paths.Cache)
	assert.Equal(t, filepath.Join(root, "secrets.json"), cfg.Secrets.Path)
	assert.Equal(t, []string{"devnet", "hardhat", "testnet"}, cfg.NetworkNames())
	assert.Equal(t, "hardhat", cfg.DefaultNetwork)

	hardhat, err := cfg.Network("hardhat")
	require.NoError(t, err)
	assert.True(t, hardhat.InProcess())
	assert.Equal(t, DefaultDevAccounts, hardhat.DevAccounts)

	testnet, err := cfg.Network("testnet")
	require.NoError(t, err)
	assert.Equal(t, uint64(97), testnet.ChainID)
	assert.Equal(t, []string{testKey}, testnet.Accounts)
	assert.Zero(t, testnet.DevAccounts)

	devnet, err := cfg.Network(DevNetwork)
	require.NoError(t, err)
	assert.Equal(t, DevChainID, devnet.ChainID)

	assert.True(t, cfg.Plugins.Plugins["artifacts"].Enabled)

	_, err = cfg.Network("mainnet")
	assert.True(t, xerrors.HasCode(err, xerrors.CodeUnknownNetwork))
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	path := writeProject(t, projectYAML, `{"key": "`+testKey+`"}`)
	t.Setenv("FORGE_DEFAULT_NETWORK", "testnet")
	t.Setenv("FORGE_NETWORKS__TESTNET__CHAIN_ID", "98")
	t.Setenv("FORGE_SOLIDITY__VERSION", "0.8.24")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "testnet", cfg.DefaultNetwork)
	assert.Equal(t, uint64(98), cfg.Networks["testnet"].ChainID)
	assert.Equal(t, "0.8.24", cfg.Solidity.Version)

	require.NoError(t, os.Unsetenv("FORGE_NETWORKS__TESTNET__CHAIN_ID"))
	mixedCase := writeProject(t, "networks:\n  BSC:\n    chain_id: 97\n    url: https://a.example\n", "")
	t.Setenv("FORGE_DEFAULT_NETWORK", "BSC")
	t.Setenv("FORGE_NETWORKS__BSC__URL", "https://b.example")

	cfg, err = Load(mixedCase)
	require.NoError(t, err)
	assert.Equal(t, []string{"BSC", "devnet"}, cfg.NetworkNames())
	assert.Equal(t, "https://b.example", cfg.Networks["BSC"].URL)
	assert.Equal(t, uint64(97), cfg.Networks["BSC"].ChainID)
}

func TestEnvKey(t *testing.T) {
	names := map[string]string{"bsc": "BSC", "testnet": "testnet"}
	assert.Equal(t, "networks/BSC/url", envKey("NETWORKS__BSC__URL", names))
	assert.Equal(t, "networks/bsc/url", envKey("NETWORKS__bsc__URL", names))
	assert.Equal(t, "networks/mainnet/chain_id", envKey("NETWORKS__MAINNET__CHAIN_ID", names))
	assert.Equal(t, "solidity/optimizer/runs", envKey("SOLIDITY__OPTIMIZER__RUNS", names))
	assert.Equal(t, "default_network", envKey("DEFAULT_NETWORK", names))
}

func TestLoadMergesPluginConfigFile(t *testing.T) {
	path := writeProject(t, `
plugins:
  config_file: plugins.yaml
  plugins:
    artifacts:
      enabled: false
`, "")
	dir := filepath.Dir(path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "plugins.yaml"), []byte(`
plugin_dir: ./bin
defaults:
  allowed_capabilities: [network]
plugins:
  artifacts:
    enabled: true
  inspect:
    enabled: true
    config:
      concurrency: 4
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "plugins.yaml"), cfg.Plugins.ConfigFile)
	assert.Equal(t, filepath.Join(dir, "bin"), cfg.Plugins.PluginDir)
	assert.False(t, cfg.Plugins.Plugins["artifacts"].Enabled)
	assert.True(t, cfg.Plugins.Plugins["inspect"].Enabled)
	assert.Equal(t, 4, cfg.Plugins.Plugins["inspect"].Config["concurrency"])
}

func TestLoadIgnoresNonStringSecrets(t *testing.T) {
	path := writeProject(t, projectYAML, `{"key": "`+testKey+`", "port": 8545}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{testKey}, cfg.Networks["testnet"].Accounts)
}

func TestLoadConfigPathFromEnvironment(t *testing.T) {
	path := writeProject(t, projectYAML, `{"key": "`+testKey+`"}`)
	t.Setenv(EnvConfigPath, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Dir(path), cfg.Root)
}

func TestLoadWithoutProjectFileUsesDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, []string{DevNetwork}, cfg.NetworkNames())
	assert.Equal(t, DevNetwork, cfg.DefaultNetwork)
	assert.Equal(t, DefaultCompilerVersion, cfg.Solidity.Version)
	assert.Equal(t, filepath.Join(cfg.Root, "artifacts"), cfg.Paths.Artifacts)
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		secrets string
		code    xerrors.Code
		msg     string
	}{
		{
			name: "duplicate network name",
			yaml: "networks:\n  testnet:\n    chain_id: 97\n  testnet:\n    chain_id: 98\n",
			code: xerrors.CodeInvalidConfig,
		},
		{
			name: "partial compiler version",
			yaml: "solidity:\n  version: \"0.8\"\n",
			code: xerrors.CodeInvalidConfig,
		},
		{
			name: "optimizer without runs",
			yaml: "solidity:\n  optimizer:\n    enabled: true\n    runs: 0\n",
			code: xerrors.CodeInvalidConfig,
		},
		{
			name: "missing chain id",
			yaml: "networks:\n  testnet:\n    url: https://rpc.example.org\n",
			code: xerrors.CodeInvalidConfig,
		},
		{
			name: "unsupported url scheme",
			yaml: "networks:\n  testnet:\n    chain_id: 97\n    url: ftp://rpc.example.org\n",
			code: xerrors.CodeInvalidConfig,
		},
		{
			name: "invalid network name",
			yaml: "networks:\n  \"my net\":\n    chain_id: 97\n",
			code: xerrors.CodeInvalidConfig,
		},
		{
			name: "dotted network name",
			yaml: "networks:\n  bsc.testnet:\n    chain_id: 97\n    url: https://rpc.example.org\n",
			code: xerrors.CodeInvalidConfig,
			msg:  "may only contain",
		},
		{
			name: "missing plugin config file",
			yaml: "plugins:\n  config_file: plugins.yaml\n",
			code: xerrors.CodeInvalidConfig,
			msg:  "plugins.yaml",
		},
		{
			name: "unknown default network",
			yaml: "default_network: mainnet\n",
			code: xerrors.CodeInvalidConfig,
		},
		{
			name: "malformed account key",
			yaml: "networks:\n  testnet:\n    chain_id: 97\n    url: https://rpc.example.org\n    accounts: [\"0x1234\"]\n",
			code: xerrors.CodeInvalidAccount,
		},
		{
			name: "secret reference without secrets file",
			yaml: "networks:\n  testnet:\n    chain_id: 97\n    url: https://rpc.example.org\n    accounts: [\"secret:key\"]\n",
			code: xerrors.CodeSecretsUnavailable,
		},
		{
			name:    "secret field is not a string",
			yaml:    "secrets:\n  path: secrets.json\nnetworks:\n  testnet:\n    chain_id: 97\n    url: https://rpc.example.org\n    accounts: [\"secret:port\"]\n",
			secrets: `{"key": "` + testKey + `", "port": 8545}`,
			code:    xerrors.CodeSecretsUnavailable,
		},
		{
			name:    "unknown secret field",
			yaml:    "secrets:\n  path: secrets.json\nnetworks:\n  testnet:\n    chain_id: 97\n    url: https://rpc.example.org\n    accounts: [\"secret:other\"]\n",
			secrets: `{"key": "` + testKey + `"}`,
			code:    xerrors.CodeSecretNotFound,
		},
		{
			name: "missing secrets file",
			yaml: "secrets:\n  path: secrets.json\n",
			code: xerrors.CodeSecretsUnavailable,
		},
		{
			name: "unknown plugin capability",
			yaml: "plugins:\n  defaults:\n    allowed_capabilities: [root]\n",
			code: xerrors.CodeInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeProject(t, tt.yaml, tt.secrets)
			_, err := Load(path)
			require.Error(t, err)
			assert.True(t, xerrors.HasCode(err, tt.code), "want %s, got %v", tt.code, err)
			if tt.msg != "" {
				assert.Contains(t, err.Error(), tt.msg)
			}
		})
	}
}

func TestLoadExplicitMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.True(t, xerrors.HasCode(err, xerrors.CodeInvalidConfig))
}

func TestRedactedMasksKeys(t *testing.T) {
	cfg := &Config{Networks: map[string]NetworkConfig{
		"testnet": {ChainID: 97, Accounts: []string{testKey, "garbage"}},
		"devnet":  {ChainID: 1337},
	}}

	redacted := cfg.Redacted()
	assert.Equal(t, []string{"<redacted " + testAddress + ">", "<redacted>"}, redacted.Networks["testnet"].Accounts)
	assert.Equal(t, []string{testKey, "garbage"}, cfg.Networks["testnet"].Accounts)
	assert.Empty(t, redacted.Networks["devnet"].Accounts)
}
