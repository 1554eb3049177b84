// Package cli provides the forge command-line interface.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"ChainForge/internal/config"
	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/plugins/artifacts"
	"ChainForge/internal/plugins/inspect"
	"ChainForge/internal/runtime"
	"ChainForge/internal/task"
	"ChainForge/pkg/logger"
	"ChainForge/pkg/plugin"

	"github.com/spf13/cobra"
)

// Version information (set at build time).
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
)

// defaultTask runs when no task name is given.
const defaultTask = "tasks"

type rootOptions struct {
	configPath string
	network    string
	logLevel   string
}

// NewRootCmd creates the root command. The first positional argument names
// the task; the rest are handed to it untouched.
func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}
	rootCmd := &cobra.Command{
		Use:   "forge [task] [args...]",
		Short: "forge - contract project task runner",
		Long: `forge loads a contract project configuration (compiler, paths and
networks), starts the configured plugins and runs one task against the
selected network.

Run "forge tasks" to list the available tasks.`,
		Args:          cobra.ArbitraryArgs,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := defaultTask
			if len(args) > 0 {
				name, args = args[0], args[1:]
			}
			return runTask(cmd.Context(), cmd.OutOrStdout(), opts, name, args)
		},
	}
	rootCmd.SetVersionTemplate("{{.Name}} {{.Version}}\n")

	// Task arguments may look like flags.
	rootCmd.Flags().SetInterspersed(false)

	rootCmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "config file (default: $FORGE_CONFIG or ./forge.yaml)")
	rootCmd.PersistentFlags().StringVarP(&opts.network, "network", "n", "", "network to run against (default: default_network)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "log level (debug|info|warn|error)")

	_ = rootCmd.RegisterFlagCompletionFunc("log-level", func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		return []string{"debug", "info", "warn", "error"}, cobra.ShellCompDirectiveNoFileComp
	})

	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

// Execute runs the root command and prints the error, if any, to stderr.
func Execute(ctx context.Context) error {
	rootCmd := NewRootCmd()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return err
	}
	return nil
}

func runTask(ctx context.Context, out io.Writer, opts *rootOptions, name string, args []string) (err error) {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}
	if opts.logLevel != "" {
		cfg.Log.Level = opts.logLevel
	}

	log, err := logger.New(loggerConfig(cfg.Log))
	if err != nil {
		return xerrors.Wrap(xerrors.CodeInvalidConfig, err, "initialise logger")
	}
	defer log.Close()
	logger.SetDefault(log)
	defer logger.SetDefault(nil)

	registry := task.NewRegistry()
	if err := task.RegisterBuiltins(registry); err != nil {
		return err
	}

	manager, err := plugin.NewManager(cfg.Plugins,
		plugin.WithBuiltin(artifacts.ID, artifacts.New),
		plugin.WithBuiltin(inspect.ID, inspect.New),
		plugin.WithResource(plugin.ResourceTaskRegistry, registry),
		plugin.WithResource(plugin.ResourceProjectRoot, cfg.Root),
		plugin.WithLogger(log.Named("plugin")),
	)
	if err != nil {
		return xerrors.Wrap(xerrors.CodePluginFailure, err, "load plugins")
	}
	if err := manager.StartAll(ctx); err != nil {
		stopErr := manager.StopAll(context.WithoutCancel(ctx))
		return xerrors.Wrap(xerrors.CodePluginFailure, errors.Join(err, stopErr), "start plugins")
	}
	defer func() {
		if stopErr := manager.StopAll(context.WithoutCancel(ctx)); stopErr != nil {
			err = errors.Join(err, xerrors.Wrap(xerrors.CodePluginFailure, stopErr, "stop plugins"))
		}
	}()

	env, err := runtime.New(cfg, opts.network,
		runtime.WithOutput(out),
		runtime.WithLogger(log.Named("runtime")),
	)
	if err != nil {
		return err
	}
	defer env.Close()

	runner := task.NewRunner(registry,
		task.WithRunnerLogger(log.Named("task")),
		task.WithAuditLogger(log.Audit()),
	)
	return runner.Run(ctx, env, name, args)
}

func loggerConfig(cfg config.LogConfig) logger.Config {
	return logger.Config{
		Level:       cfg.Level,
		Format:      cfg.Format,
		OutputPaths: cfg.Outputs,
		Audit: logger.AuditConfig{
			Enabled:    cfg.Audit.Enabled,
			Path:       cfg.Audit.Path,
			MaxSizeMB:  cfg.Audit.MaxSizeMB,
			MaxBackups: cfg.Audit.MaxBackups,
			MaxAgeDays: cfg.Audit.MaxAgeDays,
		},
	}
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "forge %s (commit %s)\n", Version, GitCommit)
		},
	}
}
