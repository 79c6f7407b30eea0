// Package model defines the core domain types shared across the wager engine.
// All monetary values use shopspring/decimal — never float64 for money.
package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// ConditionStatus is the lifecycle state of a condition. Transitions are
// open → resolved or open → closed, each at most once, never reversed.
type ConditionStatus string

const (
	StatusOpen     ConditionStatus = "open"
	StatusResolved ConditionStatus = "resolved"
	StatusClosed   ConditionStatus = "closed"
)

// Condition is the record for one bettable event. An empty ID encodes
// "does not exist". The registry exclusively owns all Condition state;
// stores hand out copies, never live references.
type Condition struct {
	ID     string          `json:"id" db:"id"`
	Status ConditionStatus `json:"status" db:"status"`

	// EndTime gates new stakes: at or after this instant staking is
	// rejected. Strictly in the future at creation.
	EndTime time.Time `json:"end_time" db:"end_time"`

	// Inclusive bound on legal outcome identifiers. When RangeEnforced
	// is false any outcome id is accepted.
	RangeEnforced bool  `json:"range_enforced" db:"range_enforced"`
	OutcomeMin    int64 `json:"outcome_min" db:"outcome_min"`
	OutcomeMax    int64 `json:"outcome_max" db:"outcome_max"`

	// FeeRate is the house fee percentage snapshotted at creation.
	// Later global fee changes never touch an existing condition.
	FeeRate decimal.Decimal `json:"fee_rate" db:"fee_rate"`

	TotalPool    decimal.Decimal           `json:"total_pool" db:"total_pool"`
	OutcomePools map[int64]decimal.Decimal `json:"outcome_pools"`

	// WinningOutcome is set exactly once, on the transition to resolved.
	WinningOutcome *int64 `json:"winning_outcome,omitempty"`

	// UserStakes maps participant → outcome → cumulative stake.
	UserStakes map[string]map[int64]decimal.Decimal `json:"user_stakes"`

	// Claims records each participant's settlement, permanent once set.
	Claims map[string]ClaimRecord `json:"claims"`

	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	FinalizedAt *time.Time `json:"finalized_at,omitempty"`
}

// ClaimRecord marks a participant as settled for one condition.
type ClaimRecord struct {
	Claimed   bool            `json:"claimed"`
	Amount    decimal.Decimal `json:"amount"`
	ClaimedAt time.Time       `json:"claimed_at"`
}

// StakeEntry is an immutable record of one accepted stake.
// Once created, these are never modified or deleted.
type StakeEntry struct {
	ID          string          `json:"id" db:"id"`
	UserID      string          `json:"user_id" db:"user_id"`
	ConditionID string          `json:"condition_id" db:"condition_id"`
	Outcome     int64           `json:"outcome" db:"outcome"`
	Amount      decimal.Decimal `json:"amount" db:"amount"`
	Timestamp   time.Time       `json:"timestamp" db:"timestamp"`
}

// Page is one window of a participant's condition or claim history.
// Total is the full list length regardless of the window.
type Page struct {
	ConditionIDs []string `json:"condition_ids"`
	Total        int      `json:"total"`
	Offset       int      `json:"offset"`
	Limit        int      `json:"limit"`
}

// UserStakeTotal returns the participant's summed stake across every
// outcome of the condition.
func (c *Condition) UserStakeTotal(userID string) decimal.Decimal {
	total := decimal.Zero
	for _, amt := range c.UserStakes[userID] {
		total = total.Add(amt)
	}
	return total
}

// UserStake returns the participant's cumulative stake on one outcome.
func (c *Condition) UserStake(userID string, outcome int64) decimal.Decimal {
	return c.UserStakes[userID][outcome]
}

// OutcomeInRange reports whether the outcome id is legal for this
// condition.
func (c *Condition) OutcomeInRange(outcome int64) bool {
	if !c.RangeEnforced {
		return true
	}
	return outcome >= c.OutcomeMin && outcome <= c.OutcomeMax
}

// Clone returns a deep copy so callers can never mutate registry state
// through a query result.
func (c *Condition) Clone() *Condition {
	cp := *c
	cp.OutcomePools = make(map[int64]decimal.Decimal, len(c.OutcomePools))
	for k, v := range c.OutcomePools {
		cp.OutcomePools[k] = v
	}
	cp.UserStakes = make(map[string]map[int64]decimal.Decimal, len(c.UserStakes))
	for user, stakes := range c.UserStakes {
		inner := make(map[int64]decimal.Decimal, len(stakes))
		for k, v := range stakes {
			inner[k] = v
		}
		cp.UserStakes[user] = inner
	}
	cp.Claims = make(map[string]ClaimRecord, len(c.Claims))
	for user, rec := range c.Claims {
		cp.Claims[user] = rec
	}
	if c.WinningOutcome != nil {
		w := *c.WinningOutcome
		cp.WinningOutcome = &w
	}
	if c.FinalizedAt != nil {
		t := *c.FinalizedAt
		cp.FinalizedAt = &t
	}
	return &cp
}
