// Package signer models the accounts a task can act as: keyed signers built
// from configured private keys, deterministic development signers for
// in-process chains, and address-only signers managed by a remote node.
package signer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	xerrors "ChainForge/internal/errors"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// devSeedPrefix is hashed together with the account index to derive dev keys.
const devSeedPrefix = "chainforge/devnet/account/"

// Signer is an account capable of authorizing transactions.
type Signer struct {
	Address common.Address
	key     *ecdsa.PrivateKey
}

// FromKey builds a signer from a private key.
func FromKey(key *ecdsa.PrivateKey) Signer {
	return Signer{Address: crypto.PubkeyToAddress(key.PublicKey), key: key}
}

// ParseKey decodes a hex private key with or without the 0x prefix.
func ParseKey(raw string) (*ecdsa.PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimPrefix(strings.TrimSpace(raw), "0x"), "0X")
	if trimmed == "" {
		return nil, xerrors.New(xerrors.CodeInvalidAccount, "private key is empty")
	}
	key, err := crypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, xerrors.Wrap(xerrors.CodeInvalidAccount, err, "decode private key")
	}
	return key, nil
}

// FromHex converts private keys into signers, preserving their order.
func FromHex(keys []string) ([]Signer, error) {
	signers := make([]Signer, 0, len(keys))
	for i, raw := range keys {
		key, err := ParseKey(raw)
		if err != nil {
			if coded, ok := xerrors.From(err); ok {
				return nil, xerrors.Wrap(coded.Code(), coded.Unwrap(), fmt.Sprintf("account #%d: %s", i, coded.Message()))
			}
			return nil, err
		}
		signers = append(signers, FromKey(key))
	}
	return signers, nil
}

// DevSigners returns n deterministic signers. The same index always yields
// the same key.
func DevSigners(n int) ([]Signer, error) {
	if n < 0 {
		return nil, xerrors.Newf(xerrors.CodeInvalidArgument, "dev account count must not be negative: %d", n)
	}
	signers := make([]Signer, 0, n)
	for i := 0; i < n; i++ {
		seed := crypto.Keccak256([]byte(fmt.Sprintf("%s%d", devSeedPrefix, i)))
		key, err := crypto.ToECDSA(seed)
		if err != nil {
			return nil, fmt.Errorf("derive dev account %d: %w", i, err)
		}
		signers = append(signers, FromKey(key))
	}
	return signers, nil
}

// Remote wraps node-managed addresses. The node holds the keys.
func Remote(addresses []common.Address) []Signer {
	signers := make([]Signer, len(addresses))
	for i, addr := range addresses {
		signers[i] = Signer{Address: addr}
	}
	return signers
}

// CanSign reports whether the signer holds its private key locally.
func (s Signer) CanSign() bool {
	return s.key != nil
}

// TransactOpts returns go-ethereum transaction options bound to chainID.
func (s Signer) TransactOpts(chainID *big.Int) (*bind.TransactOpts, error) {
	if s.key == nil {
		return nil, xerrors.Newf(xerrors.CodeInvalidAccount, "account %s has no local key", s.Address.Hex())
	}
	if chainID == nil || chainID.Sign() <= 0 {
		return nil, xerrors.New(xerrors.CodeInvalidArgument, "chain id must be positive")
	}
	return bind.NewKeyedTransactorWithChainID(s.key, chainID)
}

// String returns the checksummed address.
func (s Signer) String() string {
	return s.Address.Hex()
}

// Addresses extracts the addresses of signers in order.
func Addresses(signers []Signer) []common.Address {
	out := make([]common.Address, len(signers))
	for i, s := range signers {
		out[i] = s.Address
	}
	return out
}
