package plugin

import (
	"errors"
	"fmt"
	"slices"
)

// IsolationStrategy enforces security restrictions for plugins at runtime.
type IsolationStrategy interface {
	Validate(info Info, policy IsolationPolicy) error
	Prepare(info Info) error
	Cleanup(info Info) error
}

// CapabilityIsolation only checks requested capabilities against the policy.
// Built-in plugins run in-process, so Prepare and Cleanup are no-ops.
type CapabilityIsolation struct{}

// Validate ensures the plugin requested capabilities are allowed.
func (CapabilityIsolation) Validate(info Info, policy IsolationPolicy) error {
	for _, c := range info.Capabilities {
		if !slices.Contains(KnownCapabilities, c) {
			return fmt.Errorf("plugin requests unknown capability %s", c)
		}
		if slices.Contains(policy.DeniedCapabilities, c) {
			return fmt.Errorf("capability %s is explicitly denied", c)
		}
	}
	if len(policy.AllowedCapabilities) == 0 {
		return nil
	}
	for _, c := range info.Capabilities {
		if !slices.Contains(policy.AllowedCapabilities, c) {
			return fmt.Errorf("capability %s not permitted", c)
		}
	}
	return nil
}

// Prepare implements IsolationStrategy.
func (CapabilityIsolation) Prepare(Info) error { return nil }

// Cleanup implements IsolationStrategy.
func (CapabilityIsolation) Cleanup(Info) error { return nil }

// NewIsolationStrategy returns the capability check if none is supplied.
func NewIsolationStrategy(strategy IsolationStrategy) IsolationStrategy {
	if strategy == nil {
		return CapabilityIsolation{}
	}
	return strategy
}

// MergePolicies combines the default and plugin specific isolation policies.
func MergePolicies(defaults IsolationPolicy, plugin *IsolationPolicy) IsolationPolicy {
	if plugin == nil {
		return defaults
	}
	merged := plugin.Merge(defaults)
	if len(merged.AllowedCapabilities) == 0 && len(merged.DeniedCapabilities) == 0 {
		return defaults
	}
	return merged
}

// EnsurePolicy returns an error when the isolation policy is empty and the plugin requests capabilities.
func EnsurePolicy(info Info, policy IsolationPolicy) error {
	if len(info.Capabilities) == 0 {
		return nil
	}
	if len(policy.AllowedCapabilities) == 0 && len(policy.DeniedCapabilities) == 0 {
		return errors.New("plugins declaring capabilities require an isolation policy")
	}
	return nil
}
