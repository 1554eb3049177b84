package web3

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ChainSnapshot represents summarized network metadata for reporting.
type ChainSnapshot struct {
	Network     string
	ChainID     *big.Int
	BlockNumber uint64
	Notes       string
}

// Client defines what tasks need from a network, regardless of whether the
// chain is remote or simulated in-process.
type Client interface {
	Name() string
	FetchChainSnapshot(ctx context.Context) (ChainSnapshot, error)
	ChainID(ctx context.Context) (*big.Int, error)
	Balance(ctx context.Context, account common.Address) (*big.Int, error)
	PendingNonce(ctx context.Context, account common.Address) (uint64, error)
	// Accounts lists the node-managed accounts (eth_accounts). Simulated
	// chains have none.
	Accounts(ctx context.Context) ([]common.Address, error)
	Close()
}
