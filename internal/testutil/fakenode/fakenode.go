// Package fakenode serves a minimal eth JSON-RPC namespace over HTTP for
// tests that exercise remote networks.
package fakenode

import (
	"math/big"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// Options configures the fake node state.
type Options struct {
	ChainID     uint64
	BlockNumber uint64
	Accounts    []common.Address
	Balances    map[common.Address]*big.Int
	Nonces      map[common.Address]uint64
}

// Node is a running fake node.
type Node struct {
	URL string

	mu    sync.Mutex
	calls map[string]int
}

// Calls returns how many times method was invoked, e.g. "eth_accounts".
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.calls[method]
}

func (n *Node) record(method string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls[method]++
}

// Start launches the node; it is shut down when the test ends.
func Start(t testing.TB, opts Options) *Node {
	t.Helper()
	node := &Node{calls: map[string]int{}}

	server := gethrpc.NewServer()
	if err := server.RegisterName("eth", &ethService{node: node, opts: opts}); err != nil {
		t.Fatalf("register eth service: %v", err)
	}
	httpServer := httptest.NewServer(server)
	t.Cleanup(func() {
		httpServer.Close()
		server.Stop()
	})
	node.URL = httpServer.URL
	return node
}

type ethService struct {
	node *Node
	opts Options
}

func (s *ethService) ChainId() *hexutil.Big {
	s.node.record("eth_chainId")
	return (*hexutil.Big)(new(big.Int).SetUint64(s.opts.ChainID))
}

func (s *ethService) BlockNumber() hexutil.Uint64 {
	s.node.record("eth_blockNumber")
	return hexutil.Uint64(s.opts.BlockNumber)
}

func (s *ethService) Accounts() []common.Address {
	s.node.record("eth_accounts")
	if s.opts.Accounts == nil {
		return []common.Address{}
	}
	return s.opts.Accounts
}

func (s *ethService) GetBalance(account common.Address, _ string) *hexutil.Big {
	s.node.record("eth_getBalance")
	balance := new(big.Int)
	if b, ok := s.opts.Balances[account]; ok {
		balance.Set(b)
	}
	return (*hexutil.Big)(balance)
}

func (s *ethService) GetTransactionCount(account common.Address, _ string) hexutil.Uint64 {
	s.node.record("eth_getTransactionCount")
	return hexutil.Uint64(s.opts.Nonces[account])
}
