// Package testutils provides factories for test accounts.
package testutils

import (
	"testing"

	"github.com/ethereum/go-ethereum/crypto"

	"github.com/dappmarket-org/dappmarket-go-base/ledger"
	"github.com/dappmarket-org/dappmarket-go-base/types"
)

// NewAccount generates a fresh key pair and returns its address.
func NewAccount(t *testing.T) types.Address {
	t.Helper()
	key, err := crypto.GenerateKey()
	if err != nil {
		t.Fatal("failed to generate account key:", err)
	}
	return crypto.PubkeyToAddress(key.PublicKey)
}

// FundedAccount creates a fresh account on the ledger with the given
// balance.
func FundedAccount(t *testing.T, led *ledger.Ledger, balance uint64) types.Address {
	t.Helper()
	addr := NewAccount(t)
	if err := led.CreateAccount(addr, balance); err != nil {
		t.Fatal("failed to fund account:", err)
	}
	return addr
}
