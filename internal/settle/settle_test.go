package settle

import (
	"testing"

	"github.com/shopspring/decimal"
)

func d(i int64) decimal.Decimal {
	return decimal.NewFromInt(i)
}

func TestHouseCut(t *testing.T) {
	tests := []struct {
		name      string
		totalPool int64
		feeRate   int64
		want      int64
	}{
		{"five percent of 200", 200, 5, 10},
		{"zero fee", 200, 0, 0},
		{"full fee", 200, 100, 200},
		{"truncates down", 99, 5, 4}, // 4.95 → 4
		{"empty pool", 0, 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HouseCut(d(tt.totalPool), d(tt.feeRate))
			if !got.Equal(d(tt.want)) {
				t.Errorf("HouseCut(%d, %d%%) = %s, want %d", tt.totalPool, tt.feeRate, got, tt.want)
			}
		})
	}
}

func TestPayout(t *testing.T) {
	// Fee 5%, A staked 100 on the winner, pool 200, winning pool 100:
	// payout = 100 * (200-10) / 100 = 190.
	got, err := Payout(d(100), d(200), d(10), d(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(d(190)) {
		t.Errorf("payout = %s, want 190", got)
	}
}

func TestPayout_TruncatesDust(t *testing.T) {
	// Pool 100, fee 3 → payout pool 97 split between two equal winners:
	// each gets floor(50*97/100) = 48, dust 1 accrues to no one.
	got, err := Payout(d(50), d(100), d(3), d(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Equal(d(48)) {
		t.Errorf("payout = %s, want 48", got)
	}
}

func TestPayout_EmptyPool(t *testing.T) {
	if _, err := Payout(d(0), d(200), d(10), d(0)); err != ErrEmptyPool {
		t.Errorf("expected ErrEmptyPool, got %v", err)
	}
}

func TestRefund(t *testing.T) {
	stakes := map[int64]decimal.Decimal{
		1: d(40),
		2: d(60),
	}
	if got := Refund(stakes); !got.Equal(d(100)) {
		t.Errorf("refund = %s, want 100", got)
	}
	if got := Refund(nil); !got.IsZero() {
		t.Errorf("refund of no stakes = %s, want 0", got)
	}
}

func TestOdds(t *testing.T) {
	// totalPool 300 / outcomePool 100 = 3.0 → 3×10^18 scaled.
	got, err := Odds(d(300), d(100))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := decimal.New(3, 18)
	if !got.Equal(want) {
		t.Errorf("odds = %s, want %s", got, want)
	}
}

func TestOdds_Truncates(t *testing.T) {
	// 100/3 is periodic; the scaled result must be floored, not rounded.
	got, err := Odds(d(100), d(3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := decimal.NewFromString("33333333333333333333")
	if !got.Equal(want) {
		t.Errorf("odds = %s, want %s", got, want)
	}
}

func TestOdds_NoStake(t *testing.T) {
	if _, err := Odds(d(300), d(0)); err != ErrNoStakeOnOutcome {
		t.Errorf("expected ErrNoStakeOnOutcome, got %v", err)
	}
}

func TestValidFeeRate(t *testing.T) {
	for _, rate := range []int64{0, 5, 100} {
		if !ValidFeeRate(d(rate)) {
			t.Errorf("rate %d should be valid", rate)
		}
	}
	for _, rate := range []int64{-1, 101} {
		if ValidFeeRate(d(rate)) {
			t.Errorf("rate %d should be invalid", rate)
		}
	}
}
