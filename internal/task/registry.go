package task

import (
	"regexp"
	"sort"
	"sync"

	xerrors "ChainForge/internal/errors"
)

var taskNamePattern = regexp.MustCompile(`^[a-z][a-z0-9:-]*$`)

// Registry holds task definitions keyed by name.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]Definition
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]Definition)}
}

// Register adds a task. Registering a name twice is a conflict; use Override
// to replace an existing task on purpose.
func (r *Registry) Register(def Definition) error {
	if err := validate(def); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if existing, ok := r.tasks[def.Name]; ok {
		return xerrors.New(CodeTaskConflict,
			"task "+def.Name+" already registered by "+sourceOf(existing),
			xerrors.WithMetadata("task", def.Name))
	}
	r.tasks[def.Name] = def
	return nil
}

// Override replaces an existing task, or adds it when absent.
func (r *Registry) Override(def Definition) error {
	if err := validate(def); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[def.Name] = def
	return nil
}

// Lookup returns the task registered under name.
func (r *Registry) Lookup(name string) (Definition, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.tasks[name]
	if !ok {
		return Definition{}, xerrors.New(CodeTaskNotFound, "task "+name+" is not registered",
			xerrors.WithMetadata("task", name))
	}
	return def, nil
}

// List returns every task sorted by name.
func (r *Registry) List() []Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]Definition, 0, len(r.tasks))
	for _, def := range r.tasks {
		defs = append(defs, def)
	}
	sort.Slice(defs, func(i, j int) bool { return defs[i].Name < defs[j].Name })
	return defs
}

func validate(def Definition) error {
	if !taskNamePattern.MatchString(def.Name) {
		return xerrors.Newf(CodeTaskInvalid, "invalid task name %q", def.Name)
	}
	if def.Action == nil {
		return xerrors.New(CodeTaskInvalid, "task "+def.Name+" has no action")
	}
	return nil
}

func sourceOf(def Definition) string {
	if def.Source == "" {
		return "builtin"
	}
	return def.Source
}
