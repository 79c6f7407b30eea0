package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func d(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

func TestMemoryLedger_RoundTrip(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	l.Credit("alice", d(100))

	if err := l.TransferIn(ctx, "alice", d(60)); err != nil {
		t.Fatalf("TransferIn: %v", err)
	}
	if !l.Balance("alice").Equal(d(40)) {
		t.Errorf("alice balance = %s, want 40", l.Balance("alice"))
	}
	if !l.Escrow().Equal(d(60)) {
		t.Errorf("escrow = %s, want 60", l.Escrow())
	}

	if err := l.TransferOut(ctx, "bob", d(60)); err != nil {
		t.Fatalf("TransferOut: %v", err)
	}
	if !l.Balance("bob").Equal(d(60)) {
		t.Errorf("bob balance = %s, want 60", l.Balance("bob"))
	}
	if !l.Escrow().IsZero() {
		t.Errorf("escrow = %s, want 0", l.Escrow())
	}
}

func TestMemoryLedger_InsufficientFunds(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()
	l.Credit("alice", d(10))

	if err := l.TransferIn(ctx, "alice", d(11)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("overdrawn TransferIn: got %v, want ErrInsufficientFunds", err)
	}
	// A failed debit must not move anything.
	if !l.Balance("alice").Equal(d(10)) {
		t.Errorf("alice balance = %s, want 10", l.Balance("alice"))
	}

	if err := l.TransferOut(ctx, "bob", d(1)); !errors.Is(err, ErrInsufficientFunds) {
		t.Errorf("empty-escrow TransferOut: got %v, want ErrInsufficientFunds", err)
	}
}

func TestMemoryLedger_InvalidAmount(t *testing.T) {
	l := NewMemoryLedger()
	ctx := context.Background()

	for _, amt := range []decimal.Decimal{decimal.Zero, d(-5)} {
		if err := l.TransferIn(ctx, "alice", amt); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("TransferIn(%s): got %v, want ErrInvalidAmount", amt, err)
		}
		if err := l.TransferOut(ctx, "alice", amt); !errors.Is(err, ErrInvalidAmount) {
			t.Errorf("TransferOut(%s): got %v, want ErrInvalidAmount", amt, err)
		}
	}
}
