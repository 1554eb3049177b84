package plugin

// Type represents the functional category of a plugin.
type Type string

const (
	// TypeTasks plugins contribute tasks to the host task registry.
	TypeTasks Type = "tasks"
	// TypeExtension plugins extend the runtime without adding tasks.
	TypeExtension Type = "extension"
)

// Capability expresses optional features a plugin may request access to.
type Capability string

const (
	CapabilityFilesystem Capability = "filesystem"
	CapabilityNetwork    Capability = "network"
	CapabilityExecution  Capability = "execution"
)

// KnownCapabilities lists every capability a policy may reference.
var KnownCapabilities = []Capability{CapabilityFilesystem, CapabilityNetwork, CapabilityExecution}

// Info contains descriptive metadata for a plugin implementation.
type Info struct {
	ID           string
	Name         string
	Description  string
	Version      string
	Category     Type
	Capabilities []Capability
}

// State represents the lifecycle position of a plugin instance.
type State string

const (
	StateRegistered  State = "registered"
	StateInitialised State = "initialised"
	StateStarted     State = "started"
	StateStopped     State = "stopped"
)

// Resource keys shared between the host and plugins.
const (
	// ResourceTaskRegistry holds the host task registry plugins register into.
	ResourceTaskRegistry = "task:registry"
	// ResourceProjectRoot holds the absolute project root directory.
	ResourceProjectRoot = "project:root"
)
