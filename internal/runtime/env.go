// Package runtime assembles the environment a task runs in: the loaded
// configuration, the selected network and its client, and the signer list.
package runtime

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync"

	"ChainForge/internal/config"
	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/signer"
	"ChainForge/internal/web3"
	"ChainForge/internal/web3/provider"
	"ChainForge/pkg/logger"
)

// Env is created once per invocation and handed to every task.
type Env struct {
	Config      *config.Config
	NetworkName string
	Network     config.NetworkConfig
	Out         io.Writer
	Logger      *slog.Logger

	clients *provider.Registry

	signersOnce sync.Once
	signers     []signer.Signer
	signersErr  error
}

// Option customises an Env.
type Option func(*Env)

// WithOutput redirects task output.
func WithOutput(w io.Writer) Option {
	return func(e *Env) {
		if w != nil {
			e.Out = w
		}
	}
}

// WithLogger sets the logger tasks use.
func WithLogger(l *slog.Logger) Option {
	return func(e *Env) {
		if l != nil {
			e.Logger = l
		}
	}
}

// WithRegistry supplies the client registry instead of building one from the config.
func WithRegistry(r *provider.Registry) Option {
	return func(e *Env) {
		if r != nil {
			e.clients = r
		}
	}
}

// New selects network (the configured default when empty) and prepares the environment.
func New(cfg *config.Config, network string, opts ...Option) (*Env, error) {
	if cfg == nil {
		return nil, xerrors.New(xerrors.CodeInvalidConfig, "configuration not loaded")
	}
	if network == "" {
		network = cfg.DefaultNetwork
	}
	descriptor, err := cfg.Network(network)
	if err != nil {
		return nil, err
	}

	env := &Env{
		Config:      cfg,
		NetworkName: network,
		Network:     descriptor,
		Out:         os.Stdout,
		Logger:      logger.Named("runtime"),
	}
	for _, opt := range opts {
		opt(env)
	}
	if env.clients == nil {
		env.clients = provider.NewRegistry(cfg.Networks)
	}
	env.Logger = env.Logger.With("network", network)
	return env, nil
}

// Client returns the client of the selected network.
func (e *Env) Client(ctx context.Context) (web3.Client, error) {
	return e.clients.Client(ctx, e.NetworkName)
}

// ClientFor returns the client of any configured network.
func (e *Env) ClientFor(ctx context.Context, network string) (web3.Client, error) {
	return e.clients.Client(ctx, network)
}

// Signers returns the available signers in provided order. The list is
// retrieved once and reused for the rest of the invocation.
func (e *Env) Signers(ctx context.Context) ([]signer.Signer, error) {
	e.signersOnce.Do(func() {
		e.signers, e.signersErr = e.loadSigners(ctx)
	})
	return e.signers, e.signersErr
}

func (e *Env) loadSigners(ctx context.Context) ([]signer.Signer, error) {
	switch {
	case len(e.Network.Accounts) > 0:
		return signer.FromHex(e.Network.Accounts)
	case e.Network.InProcess():
		return provider.InProcessSigners(e.Network)
	default:
		client, err := e.Client(ctx)
		if err != nil {
			return nil, err
		}
		addresses, err := client.Accounts(ctx)
		if err != nil {
			return nil, err
		}
		e.Logger.Debug("using node managed accounts", "count", len(addresses))
		return signer.Remote(addresses), nil
	}
}

// Close releases network clients.
func (e *Env) Close() {
	if e != nil && e.clients != nil {
		e.clients.Close()
	}
}
