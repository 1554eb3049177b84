package config

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/signer"

	"golang.org/x/mod/semver"
)

var networkNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

var rpcSchemes = map[string]bool{"http": true, "https": true, "ws": true, "wss": true}

// Validate 检查配置是否满足字段和类型约束。
func (c *Config) Validate() error {
	if c == nil {
		return xerrors.New(xerrors.CodeInvalidConfig, "configuration not loaded")
	}

	version := "v" + strings.TrimSpace(c.Solidity.Version)
	if !semver.IsValid(version) || semver.Canonical(version) != version {
		return invalid("solidity.version", "compiler version %q must look like 0.8.10", c.Solidity.Version)
	}
	if c.Solidity.Optimizer.Enabled && c.Solidity.Optimizer.Runs <= 0 {
		return invalid("solidity.optimizer.runs", "optimizer runs must be positive, got %d", c.Solidity.Optimizer.Runs)
	}

	for field, path := range map[string]string{
		"paths.sources":   c.Paths.Sources,
		"paths.artifacts": c.Paths.Artifacts,
		"paths.cache":     c.Paths.Cache,
	} {
		if path == "" {
			return invalid(field, "%s must not be empty", field)
		}
	}

	if len(c.Networks) == 0 {
		return invalid("networks", "at least one network must be configured")
	}
	for _, name := range c.NetworkNames() {
		if err := validateNetwork(name, c.Networks[name]); err != nil {
			return err
		}
	}

	if _, ok := c.Networks[c.DefaultNetwork]; !ok {
		return invalid("default_network", "default network %q is not configured", c.DefaultNetwork)
	}

	if err := c.Plugins.Validate(); err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidConfig, err, "invalid plugins block")
	}
	if c.Log.Audit.Enabled && c.Log.Audit.Path == "" {
		return invalid("log.audit.path", "audit log path is required when audit is enabled")
	}
	return nil
}

func validateNetwork(name string, network NetworkConfig) error {
	field := "networks." + name
	if !networkNamePattern.MatchString(name) {
		return invalid(field, "network name %q may only contain letters, digits, '-' and '_'", name)
	}
	if network.ChainID == 0 {
		return invalid(field+".chain_id", "network %q requires a positive chain_id", name)
	}
	if network.URL != "" {
		parsed, err := url.Parse(network.URL)
		if err != nil || parsed.Host == "" || !rpcSchemes[strings.ToLower(parsed.Scheme)] {
			return invalid(field+".url", "network %q has an invalid rpc url", name)
		}
	}
	if network.DevAccounts < 0 {
		return invalid(field+".dev_accounts", "network %q has negative dev_accounts", name)
	}
	if _, err := signer.FromHex(network.Accounts); err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidAccount, err, fmt.Sprintf("network %q has an invalid account", name),
			xerrors.WithMetadata("field", field+".accounts"))
	}
	return nil
}

func invalid(field, format string, args ...any) error {
	return xerrors.New(xerrors.CodeInvalidConfig, fmt.Sprintf(format, args...),
		xerrors.WithMetadata("field", field))
}

// Redacted 返回一份副本，其中账户私钥被替换为对应地址，用于展示。
func (c *Config) Redacted() Config {
	if c == nil {
		return Config{}
	}
	out := *c
	out.Networks = make(map[string]NetworkConfig, len(c.Networks))
	for name, network := range c.Networks {
		if len(network.Accounts) > 0 {
			masked := make([]string, len(network.Accounts))
			for i, account := range network.Accounts {
				masked[i] = "<redacted>"
				if key, err := signer.ParseKey(account); err == nil {
					masked[i] = "<redacted " + signer.FromKey(key).String() + ">"
				}
			}
			network.Accounts = masked
		}
		out.Networks[name] = network
	}
	return out
}
