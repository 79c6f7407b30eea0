// Package ledger defines the external asset-transfer capability the
// wager engine settles against. The engine never assumes a transfer
// succeeds: a failed transfer fails the whole triggering operation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the
	// account balance.
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrInvalidAmount is returned for zero or negative transfer
	// amounts.
	ErrInvalidAmount = errors.New("ledger: transfer amount must be positive")
)

// Ledger is the asset-movement interface. TransferIn pulls amount from
// an external account into the engine's custody; TransferOut pays it
// back out. Both observably fail, and failure must abort the invoking
// operation atomically.
type Ledger interface {
	TransferIn(ctx context.Context, from string, amount decimal.Decimal) error
	TransferOut(ctx context.Context, to string, amount decimal.Decimal) error
}

// MemoryLedger implements Ledger with in-memory account balances. Used
// for testing and development. Not suitable for production (no
// persistence).
type MemoryLedger struct {
	mu       sync.Mutex
	balances map[string]decimal.Decimal

	// escrow is the aggregate amount currently held by the engine.
	escrow decimal.Decimal
}

// NewMemoryLedger creates an in-memory ledger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{balances: make(map[string]decimal.Decimal)}
}

// Credit funds an account directly. Test/dev seeding helper.
func (l *MemoryLedger) Credit(account string, amount decimal.Decimal) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.balances[account] = l.balances[account].Add(amount)
}

// Balance returns the current balance of an account.
func (l *MemoryLedger) Balance(account string) decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.balances[account]
}

// Escrow returns the aggregate amount held by the engine.
func (l *MemoryLedger) Escrow() decimal.Decimal {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.escrow
}

func (l *MemoryLedger) TransferIn(_ context.Context, from string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	bal := l.balances[from]
	if bal.LessThan(amount) {
		return fmt.Errorf("%w: account %s has %s, needs %s",
			ErrInsufficientFunds, from, bal.String(), amount.String())
	}
	l.balances[from] = bal.Sub(amount)
	l.escrow = l.escrow.Add(amount)
	return nil
}

func (l *MemoryLedger) TransferOut(_ context.Context, to string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.escrow.LessThan(amount) {
		return fmt.Errorf("%w: escrow has %s, needs %s",
			ErrInsufficientFunds, l.escrow.String(), amount.String())
	}
	l.escrow = l.escrow.Sub(amount)
	l.balances[to] = l.balances[to].Add(amount)
	return nil
}
