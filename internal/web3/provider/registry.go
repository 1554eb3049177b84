package provider

import (
	"context"
	"math/big"
	"sort"
	"sync"

	"ChainForge/internal/config"
	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/signer"
	"ChainForge/internal/web3"
	"ChainForge/internal/web3/ethereum"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/params"
)

// DevBalance is the genesis balance of every dev signer on in-process chains.
var DevBalance = new(big.Int).Mul(big.NewInt(10_000), big.NewInt(params.Ether))

// Dialer opens a client for a remote network.
type Dialer func(ctx context.Context, name string, network config.NetworkConfig) (web3.Client, error)

// Registry lazily builds one client per configured network and caches it.
type Registry struct {
	mu       sync.Mutex
	networks map[string]config.NetworkConfig
	clients  map[string]web3.Client
	dial     Dialer
}

// Option customises a Registry.
type Option func(*Registry)

// WithDialer replaces the JSON-RPC dialer.
func WithDialer(d Dialer) Option {
	return func(r *Registry) {
		if d != nil {
			r.dial = d
		}
	}
}

// NewRegistry records the network descriptors; nothing is dialed until a
// client is requested.
func NewRegistry(networks map[string]config.NetworkConfig, opts ...Option) *Registry {
	copied := make(map[string]config.NetworkConfig, len(networks))
	for name, network := range networks {
		copied[name] = network
	}
	r := &Registry{
		networks: copied,
		clients:  make(map[string]web3.Client),
		dial:     dialRPC,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func dialRPC(ctx context.Context, name string, network config.NetworkConfig) (web3.Client, error) {
	return ethereum.NewClient(ctx, ethereum.Config{
		Name:   name,
		RPCURL: network.URL,
		Notes:  network.Description,
	})
}

// Client returns the client for the named network, connecting on first use.
func (r *Registry) Client(ctx context.Context, name string) (web3.Client, error) {
	if r == nil {
		return nil, xerrors.New(xerrors.CodeNetworkFailure, "未初始化的链客户端注册表")
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[name]; ok {
		return client, nil
	}
	network, ok := r.networks[name]
	if !ok {
		return nil, xerrors.Newf(xerrors.CodeUnknownNetwork, "network %q is not configured", name)
	}

	var (
		client web3.Client
		err    error
	)
	if network.InProcess() {
		client, err = newInProcess(name, network)
	} else {
		client, err = r.dial(ctx, name, network)
	}
	if err != nil {
		return nil, err
	}
	r.clients[name] = client
	return client, nil
}

// newInProcess starts a simulated chain that pre-funds the network's signers.
func newInProcess(name string, network config.NetworkConfig) (web3.Client, error) {
	signers, err := InProcessSigners(network)
	if err != nil {
		return nil, err
	}
	alloc := make(types.GenesisAlloc, len(signers))
	for _, s := range signers {
		alloc[s.Address] = types.Account{Balance: new(big.Int).Set(DevBalance)}
	}
	return ethereum.NewSimulatedClient(name, network.ChainID, alloc), nil
}

// InProcessSigners returns the signers funded on an in-process network:
// configured keys when present, otherwise deterministic dev accounts.
func InProcessSigners(network config.NetworkConfig) ([]signer.Signer, error) {
	if len(network.Accounts) > 0 {
		return signer.FromHex(network.Accounts)
	}
	return signer.DevSigners(network.DevAccounts)
}

// Networks returns the configured network names.
func (r *Registry) Networks() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.networks))
	for name := range r.networks {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Connected returns the names of networks with an open client.
func (r *Registry) Connected() []string {
	if r == nil {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close releases all clients managed by the registry.
func (r *Registry) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for name, client := range r.clients {
		if client != nil {
			client.Close()
		}
		delete(r.clients, name)
	}
}
