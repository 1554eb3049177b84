package config

import (
	"fmt"
	"sort"

	xerrors "ChainForge/internal/errors"
	"ChainForge/pkg/plugin"
)

const (
	// DefaultFileName is looked up in the working directory when no path is given.
	DefaultFileName = "forge.yaml"
	// EnvConfigPath names the environment variable holding the config path.
	EnvConfigPath = "FORGE_CONFIG"
	// EnvPrefix prefixes environment overrides; "__" separates nested keys.
	EnvPrefix = "FORGE_"

	// DevNetwork is the built-in in-process network.
	DevNetwork        = "devnet"
	DevChainID uint64 = 1337

	DefaultCompilerVersion = "0.8.10"
	DefaultOptimizerRuns   = 200
	DefaultDevAccounts     = 10
)

// Config 描述了一个合约工程的完整配置，进程启动时加载一次，之后只读。
type Config struct {
	Root           string                   `koanf:"root" yaml:"root"`
	Solidity       SolidityConfig           `koanf:"solidity" yaml:"solidity"`
	Paths          PathsConfig              `koanf:"paths" yaml:"paths"`
	DefaultNetwork string                   `koanf:"default_network" yaml:"default_network"`
	Networks       map[string]NetworkConfig `koanf:"networks" yaml:"networks"`
	Secrets        SecretsConfig            `koanf:"secrets" yaml:"secrets"`
	Plugins        plugin.ManagerConfig     `koanf:"plugins" yaml:"plugins"`
	Log            LogConfig                `koanf:"log" yaml:"log"`
}

// SolidityConfig 描述编译器版本与优化参数。
type SolidityConfig struct {
	Version   string          `koanf:"version" yaml:"version"`
	Optimizer OptimizerConfig `koanf:"optimizer" yaml:"optimizer"`
}

// OptimizerConfig 控制编译器优化。
type OptimizerConfig struct {
	Enabled bool `koanf:"enabled" yaml:"enabled"`
	Runs    int  `koanf:"runs" yaml:"runs"`
}

// PathsConfig 中的相对路径均以工程根目录为基准。
type PathsConfig struct {
	Sources   string `koanf:"sources" yaml:"sources"`
	Artifacts string `koanf:"artifacts" yaml:"artifacts"`
	Cache     string `koanf:"cache" yaml:"cache"`
}

// NetworkConfig 是网络描述：链 ID、RPC 地址以及账户私钥。
// URL 为空时表示进程内模拟链。
type NetworkConfig struct {
	ChainID     uint64   `koanf:"chain_id" yaml:"chain_id"`
	URL         string   `koanf:"url" yaml:"url,omitempty"`
	Accounts    []string `koanf:"accounts" yaml:"accounts,omitempty"`
	DevAccounts int      `koanf:"dev_accounts" yaml:"dev_accounts,omitempty"`
	Description string   `koanf:"description" yaml:"description,omitempty"`
}

// InProcess reports whether the network is served inside the process.
func (n NetworkConfig) InProcess() bool {
	return n.URL == ""
}

// SecretsConfig 指向本地的 JSON 密钥文件。
type SecretsConfig struct {
	Path string `koanf:"path" yaml:"path,omitempty"`
}

// LogConfig 对应 pkg/logger 的配置。
type LogConfig struct {
	Level   string         `koanf:"level" yaml:"level"`
	Format  string         `koanf:"format" yaml:"format"`
	Outputs []string       `koanf:"outputs" yaml:"outputs,omitempty"`
	Audit   LogAuditConfig `koanf:"audit" yaml:"audit"`
}

// LogAuditConfig 控制任务审计日志。
type LogAuditConfig struct {
	Enabled    bool   `koanf:"enabled" yaml:"enabled"`
	Path       string `koanf:"path" yaml:"path,omitempty"`
	MaxSizeMB  int    `koanf:"max_size_mb" yaml:"max_size_mb,omitempty"`
	MaxBackups int    `koanf:"max_backups" yaml:"max_backups,omitempty"`
	MaxAgeDays int    `koanf:"max_age_days" yaml:"max_age_days,omitempty"`
}

// Network returns the descriptor registered under name.
func (c *Config) Network(name string) (NetworkConfig, error) {
	if c == nil {
		return NetworkConfig{}, xerrors.New(xerrors.CodeInvalidConfig, "configuration not loaded")
	}
	network, ok := c.Networks[name]
	if !ok {
		return NetworkConfig{}, xerrors.New(xerrors.CodeUnknownNetwork,
			fmt.Sprintf("network %q is not configured", name),
			xerrors.WithMetadata("network", name))
	}
	return network, nil
}

// NetworkNames returns the configured network names in sorted order.
func (c *Config) NetworkNames() []string {
	if c == nil {
		return nil
	}
	names := make([]string, 0, len(c.Networks))
	for name := range c.Networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
