// Package inspect is the built-in plugin with read-only network diagnostics.
package inspect

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/runtime"
	"ChainForge/internal/task"
	"ChainForge/pkg/plugin"

	"github.com/ethereum/go-ethereum/params"
	"github.com/jedib0t/go-pretty/v6/table"
	"golang.org/x/sync/errgroup"
)

// ID is the configuration key of the plugin.
const ID = "inspect"

const defaultConcurrency = 8

type inspectPlugin struct {
	concurrency int
}

// New returns a fresh plugin instance.
func New() plugin.Plugin {
	return &inspectPlugin{concurrency: defaultConcurrency}
}

func (p *inspectPlugin) Info() plugin.Info {
	return plugin.Info{
		ID:           ID,
		Name:         "Inspect",
		Description:  "Chain and account diagnostics.",
		Version:      "1.0.0",
		Category:     plugin.TypeTasks,
		Capabilities: []plugin.Capability{plugin.CapabilityNetwork},
	}
}

func (p *inspectPlugin) Configure(cfg map[string]any) error {
	raw, ok := cfg["concurrency"]
	if !ok {
		cfg["concurrency"] = p.concurrency
		return nil
	}
	var n int
	switch v := raw.(type) {
	case int:
		n = v
	case int64:
		n = int(v)
	case float64:
		n = int(v)
	default:
		return fmt.Errorf("concurrency must be a number, got %T", raw)
	}
	if n <= 0 {
		return fmt.Errorf("concurrency must be positive, got %d", n)
	}
	p.concurrency = n
	return nil
}

func (p *inspectPlugin) Init(ctx *plugin.ExecutionContext) error {
	reg, ok := plugin.Resource[*task.Registry](ctx, plugin.ResourceTaskRegistry)
	if !ok {
		return errors.New("task registry not provided")
	}
	defs := []task.Definition{
		{
			Name:        "chain-info",
			Description: "Prints chain id and head block, checking the chain id against the config",
			Usage:       "[network...]",
			Action:      p.chainInfo,
		},
		{
			Name:        "balances",
			Description: "Prints every account with its balance and nonce",
			Action:      p.balances,
		},
	}
	for _, def := range defs {
		def.Source = ID
		if err := reg.Register(def); err != nil {
			return err
		}
	}
	return nil
}

func (p *inspectPlugin) Start(*plugin.ExecutionContext) error { return nil }

func (p *inspectPlugin) Stop(*plugin.ExecutionContext) error { return nil }

func (p *inspectPlugin) chainInfo(ctx context.Context, env *runtime.Env, args []string) error {
	networks := args
	if len(networks) == 0 {
		networks = []string{env.NetworkName}
	}

	t := task.NewTable(env.Out)
	t.AppendHeader(table.Row{"Network", "Chain ID", "Block", "Notes"})
	var mismatches error
	for _, name := range networks {
		descriptor, err := env.Config.Network(name)
		if err != nil {
			return err
		}
		client, err := env.ClientFor(ctx, name)
		if err != nil {
			return err
		}
		snapshot, err := client.FetchChainSnapshot(ctx)
		if err != nil {
			return err
		}
		t.AppendRow(table.Row{name, snapshot.ChainID.String(), snapshot.BlockNumber, snapshot.Notes})

		if !snapshot.ChainID.IsUint64() || snapshot.ChainID.Uint64() != descriptor.ChainID {
			mismatches = errors.Join(mismatches, xerrors.New(xerrors.CodeChainMismatch,
				fmt.Sprintf("network %s is configured with chain id %d but the node reports %s",
					name, descriptor.ChainID, snapshot.ChainID),
				xerrors.WithMetadata("network", name)))
		}
	}
	t.Render()
	if mismatches != nil {
		return xerrors.Wrap(xerrors.CodeChainMismatch, mismatches, "chain id check failed")
	}
	return nil
}

type accountRow struct {
	balance *big.Int
	nonce   uint64
}

func (p *inspectPlugin) balances(ctx context.Context, env *runtime.Env, _ []string) error {
	signers, err := env.Signers(ctx)
	if err != nil {
		return err
	}
	client, err := env.Client(ctx)
	if err != nil {
		return err
	}

	rows := make([]accountRow, len(signers))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, s := range signers {
		g.Go(func() error {
			balance, err := client.Balance(gctx, s.Address)
			if err != nil {
				return err
			}
			nonce, err := client.PendingNonce(gctx, s.Address)
			if err != nil {
				return err
			}
			rows[i] = accountRow{balance: balance, nonce: nonce}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	t := task.NewTable(env.Out)
	t.AppendHeader(table.Row{"#", "Account", "Balance (ETH)", "Nonce", "Local key"})
	for i, s := range signers {
		local := "no"
		if s.CanSign() {
			local = "yes"
		}
		t.AppendRow(table.Row{i, s.Address.Hex(), FormatEther(rows[i].balance), rows[i].nonce, local})
	}
	t.Render()
	return nil
}

// FormatEther renders a wei amount in ether with up to 6 decimals.
func FormatEther(wei *big.Int) string {
	if wei == nil {
		return "0"
	}
	r := new(big.Rat).SetFrac(wei, big.NewInt(params.Ether))
	return r.FloatString(6)
}
