package task

import (
	"context"
	"errors"
	"log/slog"
	"time"

	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/runtime"
	"ChainForge/pkg/logger"

	"github.com/google/uuid"
)

// Runner looks up tasks and executes them with logging and auditing.
type Runner struct {
	registry *Registry
	logger   *slog.Logger
	audit    *slog.Logger
	now      func() time.Time
}

// RunnerOption customises a Runner.
type RunnerOption func(*Runner)

// WithRunnerLogger sets the operational logger.
func WithRunnerLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithAuditLogger sets the logger receiving one record per task execution.
func WithAuditLogger(l *slog.Logger) RunnerOption {
	return func(r *Runner) {
		if l != nil {
			r.audit = l
		}
	}
}

// NewRunner creates a runner over registry.
func NewRunner(registry *Registry, opts ...RunnerOption) *Runner {
	r := &Runner{
		registry: registry,
		logger:   logger.Named("task"),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.audit == nil {
		r.audit = r.logger
	}
	return r
}

// Registry exposes the underlying registry.
func (r *Runner) Registry() *Registry {
	return r.registry
}

// Run executes the named task once against env.
func (r *Runner) Run(ctx context.Context, env *runtime.Env, name string, args []string) error {
	def, err := r.registry.Lookup(name)
	if err != nil {
		return err
	}

	runID := uuid.NewString()
	log := r.logger.With("task", name, "run_id", runID, "network", env.NetworkName)
	started := r.now()
	log.Debug("task started", "args", len(args), "source", sourceOf(def))

	err = def.Action(ctx, env, args)
	elapsed := r.now().Sub(started)

	status := "succeeded"
	if err != nil {
		status = "failed"
		if errors.Is(err, context.Canceled) {
			status = "canceled"
		}
	}
	r.audit.Info("task executed",
		"task", name,
		"run_id", runID,
		"network", env.NetworkName,
		"status", status,
		"duration_ms", elapsed.Milliseconds(),
	)

	if err != nil {
		log.Error("task failed", "error", err, "code", xerrors.CodeOf(err))
		return xerrors.Wrap(CodeTaskFailed, err, "task "+name+" failed",
			xerrors.WithMetadata("task", name),
			xerrors.WithMetadata("run_id", runID))
	}
	log.Debug("task finished", "duration", elapsed)
	return nil
}
