// Package settle implements the pari-mutuel settlement arithmetic:
// house cut extraction, proportional payout shares, refund sums, and
// scaled odds.
//
// All monetary values use shopspring/decimal — never float64 for money.
// Amounts are whole base units; every division is floored, so payout
// dust accrues to no one. This matches ledger-style integer truncation
// exactly: the remainder is an accepted rounding loss, not a bug.
//
// The package is stateless — condition pools are passed as arguments,
// not stored.
package settle

import (
	"errors"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidFeeRate is returned when a fee percentage is outside
	// [0, 100].
	ErrInvalidFeeRate = errors.New("settle: fee rate must be between 0 and 100")

	// ErrEmptyPool is returned when a payout is computed against a
	// winning pool that holds no stake. There is no payout recipient
	// set in that case; the claim path must fail, never pay zero.
	ErrEmptyPool = errors.New("settle: winning outcome pool is empty")

	// ErrNoStakeOnOutcome is returned by Odds when the outcome pool
	// is zero (division by zero, odds undefined).
	ErrNoStakeOnOutcome = errors.New("settle: no stake on outcome")
)

// OddsScale is the fixed-point factor applied to odds so integer
// consumers keep 18 digits of precision: odds 3.0 → 3×10^18.
var OddsScale = decimal.New(1, 18)

var hundred = decimal.NewFromInt(100)

// ValidFeeRate reports whether rate is a legal house fee percentage.
func ValidFeeRate(rate decimal.Decimal) bool {
	return !rate.IsNegative() && rate.LessThanOrEqual(hundred)
}

// HouseCut computes the fee retained on resolution:
//
//	cut = floor(totalPool * feeRate / 100)
func HouseCut(totalPool, feeRate decimal.Decimal) decimal.Decimal {
	return totalPool.Mul(feeRate).Div(hundred).Floor()
}

// Payout computes one winner's share of the fee-adjusted pool:
//
//	payout = floor(userStake * (totalPool - houseCut) / winPool)
//
// winPool is the aggregate stake on the winning outcome. A zero
// winPool has no payout recipient set and returns ErrEmptyPool.
func Payout(userStake, totalPool, houseCut, winPool decimal.Decimal) (decimal.Decimal, error) {
	if winPool.IsZero() {
		return decimal.Zero, ErrEmptyPool
	}
	payoutPool := totalPool.Sub(houseCut)
	return userStake.Mul(payoutPool).Div(winPool).Floor(), nil
}

// Refund sums a participant's stakes across every outcome. Cancellation
// returns the full original contribution, fee-free.
func Refund(stakes map[int64]decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, amt := range stakes {
		total = total.Add(amt)
	}
	return total
}

// Odds returns totalPool / outcomePool scaled by OddsScale:
//
//	odds = floor(totalPool * 1e18 / outcomePool)
//
// Decimal arithmetic is arbitrary precision, so the multiply cannot
// overflow; fixed-width environments that divide first to avoid
// overflow only lose precision relative to this result.
func Odds(totalPool, outcomePool decimal.Decimal) (decimal.Decimal, error) {
	if outcomePool.IsZero() {
		return decimal.Zero, ErrNoStakeOnOutcome
	}
	return totalPool.Mul(OddsScale).Div(outcomePool).Floor(), nil
}
