package task

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strconv"

	"ChainForge/internal/config"
	"ChainForge/internal/runtime"

	"github.com/jedib0t/go-pretty/v6/table"
	"gopkg.in/yaml.v3"
)

// RegisterBuiltins adds the tasks every project has.
func RegisterBuiltins(reg *Registry) error {
	builtins := []Definition{
		{
			Name:        "accounts",
			Description: "Prints the list of accounts",
			Action:      printAccounts,
		},
		{
			Name:        "networks",
			Description: "Lists the configured networks",
			Action:      printNetworks,
		},
		{
			Name:        "config",
			Description: "Prints the resolved configuration with keys redacted",
			Action:      printConfig,
		},
		{
			Name:        "tasks",
			Description: "Lists the available tasks",
			Action: func(_ context.Context, env *runtime.Env, _ []string) error {
				return printTasks(env.Out, reg.List())
			},
		},
	}
	for _, def := range builtins {
		def.Source = "builtin"
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

// printAccounts retrieves the signers once and prints each address on its
// own line, in the order they were provided.
func printAccounts(ctx context.Context, env *runtime.Env, _ []string) error {
	signers, err := env.Signers(ctx)
	if err != nil {
		return err
	}
	for _, s := range signers {
		if _, err := fmt.Fprintln(env.Out, s.Address.Hex()); err != nil {
			return err
		}
	}
	return nil
}

func printNetworks(_ context.Context, env *runtime.Env, _ []string) error {
	t := NewTable(env.Out)
	t.AppendHeader(table.Row{"", "Network", "Chain ID", "Endpoint", "Accounts", "Description"})
	for _, name := range env.Config.NetworkNames() {
		network := env.Config.Networks[name]
		marker := ""
		if name == env.NetworkName {
			marker = "*"
		}
		t.AppendRow(table.Row{
			marker,
			name,
			network.ChainID,
			endpoint(network),
			accountSummary(network),
			network.Description,
		})
	}
	t.Render()
	return nil
}

// endpoint hides the path and query of RPC URLs, which often carry API keys.
func endpoint(network config.NetworkConfig) string {
	if network.InProcess() {
		return "in-process"
	}
	parsed, err := url.Parse(network.URL)
	if err != nil {
		return "<invalid>"
	}
	return parsed.Scheme + "://" + parsed.Host
}

func accountSummary(network config.NetworkConfig) string {
	switch {
	case len(network.Accounts) > 0:
		return strconv.Itoa(len(network.Accounts)) + " keys"
	case network.InProcess():
		return strconv.Itoa(network.DevAccounts) + " dev"
	default:
		return "node"
	}
}

func printConfig(_ context.Context, env *runtime.Env, _ []string) error {
	redacted := env.Config.Redacted()
	enc := yaml.NewEncoder(env.Out)
	enc.SetIndent(2)
	if err := enc.Encode(redacted); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func printTasks(w io.Writer, defs []Definition) error {
	t := NewTable(w)
	t.AppendHeader(table.Row{"Task", "Description", "Source"})
	for _, def := range defs {
		description := def.Description
		if def.Usage != "" {
			description += " (" + def.Usage + ")"
		}
		t.AppendRow(table.Row{def.Name, description, sourceOf(def)})
	}
	t.Render()
	return nil
}

// NewTable returns a go-pretty writer in the style used by every task.
func NewTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}
