// Package bank abstracts the fungible-token transfer primitive the
// engine relies on. The real implementation is the chain's token
// service, external to this module; Memory is a faithful in-process
// stand-in used by tests and the daemon's local mode.
package bank

import (
	"context"
	"fmt"
	"sync"

	"github.com/pay-chain/paychain/types"
)

// Transferer moves token balances between accounts. Implementations are
// trusted to enforce ownership and signature rules; the engine only
// sees the balance-move contract.
type Transferer interface {
	// Transfer moves amount from one account to another. It either
	// applies fully or fails with InsufficientBalance; partial moves
	// are never observable.
	Transfer(ctx context.Context, from, to types.Address, amount uint64) error

	// Balance returns the spendable balance of an account.
	Balance(ctx context.Context, account types.Address) (uint64, error)
}

// Memory is an in-process token ledger.
type Memory struct {
	mu       sync.Mutex
	balances map[types.Address]uint64
}

// NewMemory creates an empty in-memory token ledger.
func NewMemory() *Memory {
	return &Memory{balances: make(map[types.Address]uint64)}
}

// Mint credits an account out of thin air. Test and genesis setup only.
func (m *Memory) Mint(account types.Address, amount uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.balances[account] += amount
}

func (m *Memory) Transfer(_ context.Context, from, to types.Address, amount uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.balances[from] < amount {
		return types.NewError(types.ErrInsufficientBalance,
			fmt.Sprintf("account %s holds %d, needs %d", from, m.balances[from], amount))
	}
	m.balances[from] -= amount
	m.balances[to] += amount
	return nil
}

func (m *Memory) Balance(_ context.Context, account types.Address) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balances[account], nil
}
