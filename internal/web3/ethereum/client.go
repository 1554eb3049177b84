package ethereum

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"sync"

	xerrors "ChainForge/internal/errors"
	"ChainForge/internal/web3"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/eth/ethconfig"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/ethclient/simulated"
	"github.com/ethereum/go-ethereum/node"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Config describes how to construct an EVM compatible client.
type Config struct {
	Name   string
	RPCURL string
	Notes  string
}

// chainBackend is the subset of ethclient used by tasks. Both the RPC
// client and the simulated backend satisfy it.
type chainBackend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	BlockNumber(ctx context.Context) (uint64, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
}

// Client implements the web3.Client interface for EVM compatible chains.
type Client struct {
	name      string
	notes     string
	rpcClient *gethrpc.Client
	eth       *ethclient.Client
	sim       *simulated.Backend
	backend   chainBackend
	mu        sync.Mutex
}

// NewClient dials the configured RPC endpoint and returns a ready-to-use client.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	rpcURL := strings.TrimSpace(cfg.RPCURL)
	if rpcURL == "" {
		return nil, xerrors.New(xerrors.CodeInvalidConfig, "未配置 RPC 地址",
			xerrors.WithMetadata("network", cfg.Name))
	}

	rpcClient, err := gethrpc.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeNetworkFailure, err, "连接节点失败",
			xerrors.WithMetadata("network", cfg.Name))
	}
	eth := ethclient.NewClient(rpcClient)

	return &Client{
		name:      cfg.Name,
		notes:     cfg.Notes,
		rpcClient: rpcClient,
		eth:       eth,
		backend:   eth,
	}, nil
}

// NewSimulatedClient starts an in-process chain with the given chain ID and
// genesis allocation.
func NewSimulatedClient(name string, chainID uint64, alloc types.GenesisAlloc) *Client {
	backend := simulated.NewBackend(alloc, withChainID(chainID))
	return &Client{
		name:    name,
		notes:   "in-process simulated chain",
		sim:     backend,
		backend: backend.Client(),
	}
}

func withChainID(chainID uint64) func(*node.Config, *ethconfig.Config) {
	return func(_ *node.Config, ethConf *ethconfig.Config) {
		if chainID == 0 || ethConf.Genesis == nil || ethConf.Genesis.Config == nil {
			return
		}
		// The default genesis points at a shared params value; copy before editing.
		chainCfg := *ethConf.Genesis.Config
		chainCfg.ChainID = new(big.Int).SetUint64(chainID)
		ethConf.Genesis.Config = &chainCfg
		ethConf.NetworkId = chainID
	}
}

// Name returns the network name the client was built for.
func (c *Client) Name() string {
	if c == nil {
		return ""
	}
	return c.name
}

// Commit seals a block on simulated chains and is a no-op otherwise.
func (c *Client) Commit() {
	if c != nil && c.sim != nil {
		c.sim.Commit()
	}
}

// Close releases network connections or stops the simulated chain.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.eth != nil {
		c.eth.Close()
		c.eth = nil
		c.rpcClient = nil
	}
	if c.sim != nil {
		_ = c.sim.Close()
		c.sim = nil
	}
	c.backend = nil
}

func (c *Client) chain() (chainBackend, error) {
	if c == nil {
		return nil, xerrors.New(xerrors.CodeNetworkFailure, "未初始化的以太坊客户端")
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.backend == nil {
		return nil, xerrors.New(xerrors.CodeNetworkFailure, "client is closed",
			xerrors.WithMetadata("network", c.name))
	}
	return c.backend, nil
}

// FetchChainSnapshot gathers lightweight metadata from the chain.
func (c *Client) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	backend, err := c.chain()
	if err != nil {
		return web3.ChainSnapshot{}, err
	}
	chainID, err := backend.ChainID(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, c.wrap(err, "获取链 ID 失败")
	}
	blockNumber, err := backend.BlockNumber(ctx)
	if err != nil {
		return web3.ChainSnapshot{}, c.wrap(err, "获取最新区块高度失败")
	}
	return web3.ChainSnapshot{
		Network:     c.name,
		ChainID:     chainID,
		BlockNumber: blockNumber,
		Notes:       c.notes,
	}, nil
}

// ChainID returns the chain ID reported by the node.
func (c *Client) ChainID(ctx context.Context) (*big.Int, error) {
	backend, err := c.chain()
	if err != nil {
		return nil, err
	}
	id, err := backend.ChainID(ctx)
	if err != nil {
		return nil, c.wrap(err, "获取链 ID 失败")
	}
	return id, nil
}

// Balance returns the latest balance of account in wei.
func (c *Client) Balance(ctx context.Context, account common.Address) (*big.Int, error) {
	backend, err := c.chain()
	if err != nil {
		return nil, err
	}
	balance, err := backend.BalanceAt(ctx, account, nil)
	if err != nil {
		return nil, c.wrap(err, "查询余额失败")
	}
	return balance, nil
}

// PendingNonce returns the next nonce of account including pending transactions.
func (c *Client) PendingNonce(ctx context.Context, account common.Address) (uint64, error) {
	backend, err := c.chain()
	if err != nil {
		return 0, err
	}
	nonce, err := backend.PendingNonceAt(ctx, account)
	if err != nil {
		return 0, c.wrap(err, "查询交易计数失败")
	}
	return nonce, nil
}

// Accounts calls eth_accounts on remote nodes.
func (c *Client) Accounts(ctx context.Context) ([]common.Address, error) {
	if _, err := c.chain(); err != nil {
		return nil, err
	}
	c.mu.Lock()
	rpcClient := c.rpcClient
	c.mu.Unlock()
	if rpcClient == nil {
		return nil, nil
	}
	var accounts []common.Address
	if err := rpcClient.CallContext(ctx, &accounts, "eth_accounts"); err != nil {
		return nil, c.wrap(err, "查询节点账户失败")
	}
	return accounts, nil
}

func (c *Client) wrap(err error, message string) error {
	code := xerrors.CodeNetworkFailure
	if errors.Is(err, context.DeadlineExceeded) {
		code = xerrors.CodeTimeout
	}
	return xerrors.Wrap(code, err, message, xerrors.WithMetadata("network", c.name))
}

var _ web3.Client = (*Client)(nil)
