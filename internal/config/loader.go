package config

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/secrets"
	"ChainForge/pkg/plugin"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// secretRefPrefix marks an account entry that names a field of the secrets file.
const secretRefPrefix = "secret:"

// keyDelim separates koanf key paths. Network names cannot contain it, so a
// name like "bsc.testnet" stays one key and is rejected by validation.
const keyDelim = "/"

// ResolvePath picks the config file: explicit path, then FORGE_CONFIG, then
// forge.yaml in the working directory. The boolean reports whether the file
// is required to exist.
func ResolvePath(explicit string) (string, bool) {
	if p := strings.TrimSpace(explicit); p != "" {
		return p, true
	}
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, true
	}
	return DefaultFileName, false
}

// Load 按 默认值 → YAML 文件 → 环境变量 的顺序加载配置，
// 随后解析相对路径、替换 secret 引用并校验。
func Load(path string) (*Config, error) {
	path, required := ResolvePath(path)

	k := koanf.New(keyDelim)
	if err := k.Load(confmap.Provider(defaults(), keyDelim), nil); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidConfig, err, "加载默认配置失败")
	}

	root, err := os.Getwd()
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidConfig, err, "获取工作目录失败")
	}

	switch _, statErr := os.Stat(path); {
	case statErr == nil:
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidConfig, err, "解析配置文件失败",
				xerrors.WithMetadata("path", path))
		}
		abs, err := filepath.Abs(path)
		if err != nil {
			return nil, xerrors.Wrap(xerrors.CodeInvalidConfig, err, "解析配置路径失败")
		}
		root = filepath.Dir(abs)
	case errors.Is(statErr, fs.ErrNotExist) && !required:
	default:
		return nil, xerrors.Wrap(xerrors.CodeInvalidConfig, statErr, "打开配置文件失败",
			xerrors.WithMetadata("path", path))
	}

	// FORGE_NETWORKS__TESTNET__URL -> networks/testnet/url
	networkNames := make(map[string]string)
	for _, name := range k.MapKeys("networks") {
		networkNames[strings.ToLower(name)] = name
	}
	if err := k.Load(env.Provider(EnvPrefix, keyDelim, func(s string) string {
		if s == EnvConfigPath {
			return ""
		}
		return envKey(strings.TrimPrefix(s, EnvPrefix), networkNames)
	}), nil); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidConfig, err, "加载环境变量失败")
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidConfig, err, "解码配置失败")
	}

	cfg.applyDefaults(root)

	if err := cfg.mergePluginFile(); err != nil {
		return nil, err
	}
	if err := cfg.resolveSecrets(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps the part of an environment variable after the prefix to a
// koanf key. Segments are lowercased except a network name that matches a
// network from the file, which keeps the file's spelling.
func envKey(name string, networkNames map[string]string) string {
	parts := strings.Split(strings.ToLower(name), "__")
	if len(parts) > 1 && parts[0] == "networks" {
		if original, ok := networkNames[parts[1]]; ok {
			parts[1] = original
		}
	}
	return strings.Join(parts, keyDelim)
}

func defaults() map[string]any {
	values := map[string]any{
		"solidity/version":        DefaultCompilerVersion,
		"solidity/optimizer/runs": DefaultOptimizerRuns,
		"paths/sources":           "contracts",
		"paths/artifacts":         "artifacts",
		"paths/cache":             "cache",
		"default_network":         DevNetwork,
		"log/level":               "info",
		"log/format":              "text",
	}
	values["networks/"+DevNetwork+"/chain_id"] = DevChainID
	values["networks/"+DevNetwork+"/description"] = "in-process development chain"
	return values
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值，并把相对路径转换为绝对路径。
func (c *Config) applyDefaults(baseDir string) {
	c.Root = baseDir
	c.Paths.Sources = resolveRelative(c.Paths.Sources, baseDir)
	c.Paths.Artifacts = resolveRelative(c.Paths.Artifacts, baseDir)
	c.Paths.Cache = resolveRelative(c.Paths.Cache, baseDir)
	c.Secrets.Path = resolveRelative(c.Secrets.Path, baseDir)
	c.Plugins.PluginDir = resolveRelative(c.Plugins.PluginDir, baseDir)
	c.Plugins.ConfigFile = resolveRelative(c.Plugins.ConfigFile, baseDir)
	for i, out := range c.Log.Outputs {
		if out != "stdout" && out != "stderr" {
			c.Log.Outputs[i] = resolveRelative(out, baseDir)
		}
	}
	if c.Log.Audit.Enabled {
		c.Log.Audit.Path = resolveRelative(c.Log.Audit.Path, baseDir)
	}

	if c.Networks == nil {
		c.Networks = map[string]NetworkConfig{}
	}
	for name, network := range c.Networks {
		network.URL = strings.TrimSpace(network.URL)
		if network.InProcess() && network.DevAccounts == 0 && len(network.Accounts) == 0 {
			network.DevAccounts = DefaultDevAccounts
		}
		c.Networks[name] = network
	}
	if c.Plugins.Plugins == nil {
		c.Plugins.Plugins = map[string]plugin.PluginConfig{}
	}
}

// mergePluginFile 读取 plugins.config_file 指向的插件配置文件，
// 内联配置中已有的条目优先。
func (c *Config) mergePluginFile() error {
	if c.Plugins.ConfigFile == "" {
		return nil
	}
	fromFile, err := plugin.LoadManagerConfig(c.Plugins.ConfigFile)
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidConfig, err, "加载插件配置文件失败",
			xerrors.WithMetadata("path", c.Plugins.ConfigFile))
	}
	c.Plugins = c.Plugins.Merge(fromFile)
	return nil
}

// resolveSecrets 将形如 "secret:key" 的账户替换为密钥文件中的对应字段。
func (c *Config) resolveSecrets() error {
	var store *secrets.Store
	if c.Secrets.Path != "" {
		loaded, err := secrets.Load(c.Secrets.Path)
		if err != nil {
			return err
		}
		store = loaded
	}

	for name, network := range c.Networks {
		if len(network.Accounts) == 0 {
			continue
		}
		resolved := make([]string, len(network.Accounts))
		for i, account := range network.Accounts {
			account = strings.TrimSpace(account)
			field, isRef := strings.CutPrefix(account, secretRefPrefix)
			if !isRef {
				resolved[i] = account
				continue
			}
			value, err := store.Lookup(strings.TrimSpace(field))
			if err != nil {
				if coded, ok := xerrors.From(err); ok {
					return xerrors.Wrap(coded.Code(), err, "resolve account of network "+name,
						xerrors.WithMetadata("network", name))
				}
				return err
			}
			resolved[i] = value
		}
		network.Accounts = resolved
		c.Networks[name] = network
	}
	return nil
}

func resolveRelative(path, baseDir string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(baseDir, path)
}
