package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/signer"
	"ChainForge/internal/task"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

const projectYAML = `
solidity:
  version: "0.8.10"
paths:
  artifacts: ./src/artifacts
secrets:
  path: secrets.json
networks:
  devnet:
    chain_id: 1337
    dev_accounts: 3
  testnet:
    chain_id: 97
    url: https://rpc.invalid/bsc/testnet
    accounts:
      - secret:key
plugins:
  defaults:
    allowed_capabilities: [filesystem, network]
  plugins:
    artifacts:
      enabled: true
    inspect:
      enabled: true
log:
  level: debug
  outputs: [logs/forge.log]
  audit:
    enabled: true
    path: logs/audit.log
`

func writeProject(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "forge.yaml"), []byte(projectYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secrets.json"), []byte(`{"key": "`+testKey+`"}`), 0o600))
	return filepath.Join(dir, "forge.yaml")
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAccountsOnDefaultNetwork(t *testing.T) {
	path := writeProject(t)

	out, err := execute(t, "--config", path, "accounts")
	require.NoError(t, err)

	devs, err := signer.DevSigners(3)
	require.NoError(t, err)
	want := make([]string, len(devs))
	for i, s := range devs {
		want[i] = s.Address.Hex()
	}
	assert.Equal(t, want, strings.Fields(out))
}

func TestAccountsFromSecretsFile(t *testing.T) {
	path := writeProject(t)

	out, err := execute(t, "--config", path, "--network", "testnet", "accounts")
	require.NoError(t, err)
	assert.Equal(t, "0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266\n", out)
}

func TestAuditLogRecordsExecution(t *testing.T) {
	path := writeProject(t)

	_, err := execute(t, "--config", path, "accounts")
	require.NoError(t, err)

	audit, err := os.ReadFile(filepath.Join(filepath.Dir(path), "logs", "audit.log"))
	require.NoError(t, err)
	assert.Contains(t, string(audit), `"msg":"task executed"`)
	assert.Contains(t, string(audit), `"task":"accounts"`)
	assert.Contains(t, string(audit), `"status":"succeeded"`)
}

func TestDefaultTaskListsPluginTasks(t *testing.T) {
	path := writeProject(t)

	out, err := execute(t, "--config", path)
	require.NoError(t, err)
	for _, name := range []string{"accounts", "networks", "config", "tasks", "clean", "chain-info", "balances"} {
		assert.Contains(t, out, name)
	}
}

func TestCleanThroughPlugin(t *testing.T) {
	path := writeProject(t)
	artifacts := filepath.Join(filepath.Dir(path), "src", "artifacts")
	require.NoError(t, os.MkdirAll(artifacts, 0o755))

	out, err := execute(t, "--config", path, "clean")
	require.NoError(t, err)
	assert.NoDirExists(t, artifacts)
	assert.Contains(t, out, "removed")
}

func TestConfigTaskRedactsKeys(t *testing.T) {
	path := writeProject(t)

	out, err := execute(t, "--config", path, "config")
	require.NoError(t, err)
	assert.NotContains(t, out, testKey)
	assert.Contains(t, out, "<redacted 0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266>")
}

func TestFailures(t *testing.T) {
	path := writeProject(t)

	_, err := execute(t, "--config", path, "deploy")
	assert.True(t, xerrors.HasCode(err, task.CodeTaskNotFound), "got %v", err)

	_, err = execute(t, "--config", path, "-n", "mainnet", "accounts")
	assert.True(t, xerrors.HasCode(err, xerrors.CodeUnknownNetwork), "got %v", err)

	_, err = execute(t, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "accounts")
	assert.True(t, xerrors.HasCode(err, xerrors.CodeInvalidConfig), "got %v", err)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "forge "+Version)
}
