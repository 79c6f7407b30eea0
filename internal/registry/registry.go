// Package registry implements the condition lifecycle and settlement
// operations of the wager engine: condition creation, staking, oracle
// resolution and cancellation, payout/refund claims, and house-fee
// withdrawal.
//
// Every mutating operation is serialized behind one mutex, so each
// call is atomic relative to every other call. Operations that move
// assets follow a strict ordering contract: internal state is
// committed first, then the external transfer runs, and a failed
// transfer rolls the internal commit back. A reentrant caller can
// therefore never replay a claim or stake, and a failed transfer
// never leaves pools out of sync with custody.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/paribet/wager-engine/internal/auth"
	"github.com/paribet/wager-engine/internal/ledger"
	"github.com/paribet/wager-engine/internal/metrics"
	"github.com/paribet/wager-engine/internal/model"
	"github.com/paribet/wager-engine/internal/settle"
	"github.com/paribet/wager-engine/internal/store"
)

// Clock supplies the current time. Injected so betting-period and
// resolution gates stay testable.
type Clock func() time.Time

// OutcomeRange is the inclusive bound on legal outcome identifiers for
// a condition. A nil range means the outcome space is unrestricted.
type OutcomeRange struct {
	Min int64 `json:"min"`
	Max int64 `json:"max"`
}

// Registry owns all condition state and enforces the lifecycle state
// machine. Uses a mutex for serialized execution (single-instance).
// For horizontal scaling, replace with distributed locking or
// database-level optimistic concurrency.
type Registry struct {
	store  store.Store
	assets ledger.Ledger
	roles  auth.Roles
	clock  Clock

	mu      sync.Mutex
	feeRate decimal.Decimal // applied to conditions created from now on
}

// New creates a registry. feeRate is the initial global house fee
// percentage; pass nil for clock to use time.Now.
func New(st store.Store, assets ledger.Ledger, roles auth.Roles, feeRate decimal.Decimal, clock Clock) (*Registry, error) {
	if !settle.ValidFeeRate(feeRate) {
		return nil, ErrInvalidFeeRate
	}
	if clock == nil {
		clock = time.Now
	}
	return &Registry{
		store:   st,
		assets:  assets,
		roles:   roles,
		clock:   clock,
		feeRate: feeRate,
	}, nil
}

// FeeRate returns the current global fee percentage. Only conditions
// created after a change observe it.
func (r *Registry) FeeRate() decimal.Decimal {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.feeRate
}

// SetFeeRate updates the global fee percentage. Owner-only. Existing
// conditions keep their creation-time snapshot.
func (r *Registry) SetFeeRate(caller string, rate decimal.Decimal) error {
	if !r.roles.IsOwner(caller) {
		return ErrNotOwner
	}
	if !settle.ValidFeeRate(rate) {
		return ErrInvalidFeeRate
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.feeRate = rate

	slog.Info("fee rate updated", "rate", rate.String(), "by", caller)
	return nil
}

// CreateCondition registers a new open condition under id. Oracle-only.
// endTime must be strictly in the future; rng, when non-nil, bounds
// legal outcomes inclusively. The current global fee rate is
// snapshotted into the condition.
func (r *Registry) CreateCondition(ctx context.Context, caller, id string, endTime time.Time, rng *OutcomeRange) (*model.Condition, error) {
	if !r.roles.IsOracle(caller) {
		return nil, ErrNotOracle
	}
	if id == "" {
		return nil, ErrInvalidConditionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.clock()
	if !endTime.After(now) {
		return nil, ErrInvalidPeriod
	}
	if rng != nil && rng.Min > rng.Max {
		return nil, ErrInvalidOutcomeRange
	}

	c := &model.Condition{
		ID:           id,
		Status:       model.StatusOpen,
		EndTime:      endTime,
		FeeRate:      r.feeRate,
		TotalPool:    decimal.Zero,
		OutcomePools: make(map[int64]decimal.Decimal),
		UserStakes:   make(map[string]map[int64]decimal.Decimal),
		Claims:       make(map[string]model.ClaimRecord),
		CreatedAt:    now,
	}
	if rng != nil {
		c.RangeEnforced = true
		c.OutcomeMin = rng.Min
		c.OutcomeMax = rng.Max
	}

	if err := r.store.CreateCondition(ctx, c); err != nil {
		if err == store.ErrExists {
			return nil, ErrAlreadyExists
		}
		return nil, err
	}

	metrics.ConditionsCreated.Inc()
	slog.Info("condition created",
		"id", id,
		"end_time", endTime,
		"fee_rate", c.FeeRate.String(),
		"range_enforced", c.RangeEnforced,
	)
	return c.Clone(), nil
}

// PlaceStake accepts a stake from caller on one outcome of an open
// condition. The pool mutation is committed first; the inbound asset
// transfer must then succeed or the whole operation rolls back.
func (r *Registry) PlaceStake(ctx context.Context, caller, id string, outcome int64, amount decimal.Decimal) (*model.StakeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.getLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := openOnly(c); err != nil {
		return nil, err
	}
	if !r.clock().Before(c.EndTime) {
		return nil, ErrBettingClosed
	}
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if !c.OutcomeInRange(outcome) {
		return nil, ErrInvalidOutcome
	}

	snapshot := c.Clone()
	firstStake := len(snapshot.UserStakes[caller]) == 0

	c.OutcomePools[outcome] = c.OutcomePools[outcome].Add(amount)
	stakes := c.UserStakes[caller]
	if stakes == nil {
		stakes = make(map[int64]decimal.Decimal)
		c.UserStakes[caller] = stakes
	}
	stakes[outcome] = stakes[outcome].Add(amount)
	c.TotalPool = c.TotalPool.Add(amount)

	entry := &model.StakeEntry{
		ID:          uuid.New().String(),
		UserID:      caller,
		ConditionID: id,
		Outcome:     outcome,
		Amount:      amount,
		Timestamp:   r.clock(),
	}

	// Pools, stake record, and participation index commit as one unit
	// before the transfer; any failure from here unwinds all of them.
	if err := r.store.PutCondition(ctx, c); err != nil {
		return nil, err
	}
	if err := r.store.InsertStakeEntry(ctx, entry); err != nil {
		r.revertStake(ctx, snapshot, "", caller, false)
		return nil, err
	}
	if err := r.store.AppendUserCondition(ctx, caller, id); err != nil {
		r.revertStake(ctx, snapshot, entry.ID, caller, false)
		return nil, err
	}
	if err := r.assets.TransferIn(ctx, caller, amount); err != nil {
		r.revertStake(ctx, snapshot, entry.ID, caller, firstStake)
		return nil, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	metrics.StakesTotal.Inc()
	metrics.StakeVolume.Add(amount.InexactFloat64())
	slog.Info("stake placed",
		"id", id,
		"user", caller,
		"outcome", outcome,
		"amount", amount.String(),
		"total_pool", c.TotalPool.String(),
	)
	return entry, nil
}

// Resolve declares the winning outcome of a condition. Oracle-only,
// and only once the betting period has ended. The house cut accrues to
// the fee accumulator; if nobody staked the winning outcome, the whole
// pool does, since there is no payout recipient set.
func (r *Registry) Resolve(ctx context.Context, caller, id string, winningOutcome int64) (*model.Condition, error) {
	if !r.roles.IsOracle(caller) {
		return nil, ErrNotOracle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.getLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := openOnly(c); err != nil {
		return nil, err
	}
	if r.clock().Before(c.EndTime) {
		return nil, ErrBettingOpen
	}
	// An outcome outside the declared range could never have been
	// staked, so resolving to it is rejected outright rather than
	// leaving a condition nobody can claim against.
	if !c.OutcomeInRange(winningOutcome) {
		return nil, ErrInvalidOutcome
	}

	snapshot := c.Clone()
	now := r.clock()

	houseCut := settle.HouseCut(c.TotalPool, c.FeeRate)
	if c.OutcomePools[winningOutcome].IsZero() {
		houseCut = c.TotalPool
	}

	c.Status = model.StatusResolved
	w := winningOutcome
	c.WinningOutcome = &w
	c.FinalizedAt = &now

	if err := r.store.PutCondition(ctx, c); err != nil {
		return nil, err
	}
	if err := r.store.AddFees(ctx, houseCut); err != nil {
		if rbErr := r.store.PutCondition(ctx, snapshot); rbErr != nil {
			slog.Error("resolve rollback failed", "id", id, "err", rbErr)
		}
		return nil, err
	}

	metrics.ConditionsResolved.Inc()
	metrics.FeesAccrued.Add(houseCut.InexactFloat64())
	slog.Info("condition resolved",
		"id", id,
		"winning_outcome", winningOutcome,
		"total_pool", c.TotalPool.String(),
		"house_cut", houseCut.String(),
	)
	return c.Clone(), nil
}

// Close cancels an open condition. Oracle-only. No fee is taken;
// every participant becomes entitled to a full refund of their stakes.
func (r *Registry) Close(ctx context.Context, caller, id string) (*model.Condition, error) {
	if !r.roles.IsOracle(caller) {
		return nil, ErrNotOracle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.getLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := openOnly(c); err != nil {
		return nil, err
	}

	now := r.clock()
	c.Status = model.StatusClosed
	c.FinalizedAt = &now

	if err := r.store.PutCondition(ctx, c); err != nil {
		return nil, err
	}

	metrics.ConditionsClosed.Inc()
	slog.Info("condition closed", "id", id, "total_pool", c.TotalPool.String())
	return c.Clone(), nil
}

// UpdateEndTime moves the betting deadline of an open condition whose
// current deadline has not yet passed. Oracle-only.
func (r *Registry) UpdateEndTime(ctx context.Context, caller, id string, newEndTime time.Time) (*model.Condition, error) {
	if !r.roles.IsOracle(caller) {
		return nil, ErrNotOracle
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.getLocked(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := openOnly(c); err != nil {
		return nil, err
	}

	now := r.clock()
	if !now.Before(c.EndTime) {
		return nil, ErrBettingClosed
	}
	if !newEndTime.After(now) {
		return nil, ErrInvalidPeriod
	}

	c.EndTime = newEndTime
	if err := r.store.PutCondition(ctx, c); err != nil {
		return nil, err
	}

	slog.Info("end time updated", "id", id, "end_time", newEndTime)
	return c.Clone(), nil
}

// ClaimPayout pays the caller's share of a resolved condition's
// fee-adjusted pool. Each participant extracts value exactly once: the
// claim flag is committed before the outbound transfer, and a failed
// transfer reverts it.
func (r *Registry) ClaimPayout(ctx context.Context, caller, id string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.getLocked(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if c.Status != model.StatusResolved {
		return decimal.Zero, ErrNotResolved
	}
	if c.Claims[caller].Claimed {
		return decimal.Zero, ErrAlreadyClaimed
	}

	win := *c.WinningOutcome
	winPool := c.OutcomePools[win]
	userStake := c.UserStake(caller, win)
	if userStake.IsZero() {
		return decimal.Zero, ErrNoWinningStake
	}
	// A positive user stake implies a positive winning pool, so this
	// guard never fires; it exists so the claim path can never succeed
	// with a zero transfer against an empty pool.
	if winPool.IsZero() {
		return decimal.Zero, ErrEmptyPool
	}

	houseCut := settle.HouseCut(c.TotalPool, c.FeeRate)
	payout, err := settle.Payout(userStake, c.TotalPool, houseCut, winPool)
	if err != nil {
		return decimal.Zero, ErrEmptyPool
	}

	if err := r.commitClaim(ctx, c, caller, payout); err != nil {
		return decimal.Zero, err
	}

	metrics.PayoutsTotal.Inc()
	metrics.PayoutVolume.Add(payout.InexactFloat64())
	slog.Info("payout claimed",
		"id", id,
		"user", caller,
		"amount", payout.String(),
	)
	return payout, nil
}

// ClaimRefund returns the caller's full original stake across every
// outcome of a closed condition. Claimable exactly once.
func (r *Registry) ClaimRefund(ctx context.Context, caller, id string) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.getLocked(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	if c.Status != model.StatusClosed {
		return decimal.Zero, ErrNotClosed
	}
	if c.Claims[caller].Claimed {
		return decimal.Zero, ErrAlreadyClaimed
	}

	refund := settle.Refund(c.UserStakes[caller])
	if refund.IsZero() {
		return decimal.Zero, ErrNoStake
	}

	if err := r.commitClaim(ctx, c, caller, refund); err != nil {
		return decimal.Zero, err
	}

	metrics.RefundsTotal.Inc()
	slog.Info("refund claimed",
		"id", id,
		"user", caller,
		"amount", refund.String(),
	)
	return refund, nil
}

// revertStake unwinds an aborted stake: restores the pre-stake
// condition record, and removes the stake entry (when entryID is set)
// and the participation-index row (when it was newly appended). Caller
// holds the registry lock.
func (r *Registry) revertStake(ctx context.Context, snapshot *model.Condition, entryID, caller string, removeIndex bool) {
	if err := r.store.PutCondition(ctx, snapshot); err != nil {
		slog.Error("stake rollback failed", "id", snapshot.ID, "err", err)
	}
	if entryID != "" {
		if err := r.store.DeleteStakeEntry(ctx, entryID); err != nil {
			slog.Error("stake rollback failed", "id", snapshot.ID, "entry", entryID, "err", err)
		}
	}
	if removeIndex {
		if err := r.store.RemoveUserCondition(ctx, caller, snapshot.ID); err != nil {
			slog.Error("stake rollback failed", "id", snapshot.ID, "user", caller, "err", err)
		}
	}
}

// commitClaim marks the caller claimed, persists the record and the
// claimed index, then transfers the amount out. Any failure restores
// the pre-claim state. Caller holds the registry lock.
func (r *Registry) commitClaim(ctx context.Context, c *model.Condition, caller string, amount decimal.Decimal) error {
	snapshot := c.Clone()

	c.Claims[caller] = model.ClaimRecord{
		Claimed:   true,
		Amount:    amount,
		ClaimedAt: r.clock(),
	}
	if err := r.store.PutCondition(ctx, c); err != nil {
		return err
	}
	if err := r.store.AppendUserClaim(ctx, caller, c.ID); err != nil {
		if rbErr := r.store.PutCondition(ctx, snapshot); rbErr != nil {
			slog.Error("claim rollback failed", "id", c.ID, "user", caller, "err", rbErr)
		}
		return err
	}

	// A 100% fee leaves a zero payout: the claim is still recorded,
	// but there is nothing to move.
	if amount.IsPositive() {
		if err := r.assets.TransferOut(ctx, caller, amount); err != nil {
			if rbErr := r.store.PutCondition(ctx, snapshot); rbErr != nil {
				slog.Error("claim rollback failed", "id", c.ID, "user", caller, "err", rbErr)
			}
			if rbErr := r.store.RemoveUserClaim(ctx, caller, c.ID); rbErr != nil {
				slog.Error("claim rollback failed", "id", c.ID, "user", caller, "err", rbErr)
			}
			return fmt.Errorf("%w: %v", ErrTransferFailed, err)
		}
	}

	return nil
}

// WithdrawFees transfers the entire fee accumulator to the caller and
// resets it to zero. Owner-only.
func (r *Registry) WithdrawFees(ctx context.Context, caller string) (decimal.Decimal, error) {
	if !r.roles.IsOwner(caller) {
		return decimal.Zero, ErrNotOwner
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	balance, err := r.store.FeeBalance(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	if balance.IsZero() {
		return decimal.Zero, ErrNoFeesToWithdraw
	}

	if err := r.store.SetFees(ctx, decimal.Zero); err != nil {
		return decimal.Zero, err
	}
	if err := r.assets.TransferOut(ctx, caller, balance); err != nil {
		if rbErr := r.store.AddFees(ctx, balance); rbErr != nil {
			slog.Error("fee withdrawal rollback failed", "err", rbErr)
		}
		return decimal.Zero, fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	slog.Info("fees withdrawn", "amount", balance.String(), "to", caller)
	return balance, nil
}

// getLocked fetches a condition, mapping store absence to the
// registry's error taxonomy. Caller holds the registry lock.
func (r *Registry) getLocked(ctx context.Context, id string) (*model.Condition, error) {
	c, err := r.store.GetCondition(ctx, id)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return c, nil
}

// openOnly rejects operations against finalized conditions with the
// error naming the terminal state they are in.
func openOnly(c *model.Condition) error {
	switch c.Status {
	case model.StatusResolved:
		return ErrAlreadyResolved
	case model.StatusClosed:
		return ErrAlreadyClosed
	}
	return nil
}
