package registry

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/paribet/wager-engine/internal/model"
	"github.com/paribet/wager-engine/internal/settle"
)

// Condition returns a copy of the condition record.
func (r *Registry) Condition(ctx context.Context, id string) (*model.Condition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(ctx, id)
}

// Conditions returns all condition records.
func (r *Registry) Conditions(ctx context.Context) ([]model.Condition, error) {
	return r.store.ListConditions(ctx)
}

// UserStake returns the participant's cumulative stake on one outcome.
func (r *Registry) UserStake(ctx context.Context, id, userID string, outcome int64) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.getLocked(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return c.UserStake(userID, outcome), nil
}

// OutcomePool returns the aggregate stake on one outcome.
func (r *Registry) OutcomePool(ctx context.Context, id string, outcome int64) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.getLocked(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	return c.OutcomePools[outcome], nil
}

// ClaimStatus returns the participant's claim record for a condition.
// An unclaimed participant gets the zero record.
func (r *Registry) ClaimStatus(ctx context.Context, id, userID string) (model.ClaimRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.getLocked(ctx, id)
	if err != nil {
		return model.ClaimRecord{}, err
	}
	return c.Claims[userID], nil
}

// Odds returns totalPool / outcomePools[outcome] scaled by
// settle.OddsScale (1e18).
func (r *Registry) Odds(ctx context.Context, id string, outcome int64) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, err := r.getLocked(ctx, id)
	if err != nil {
		return decimal.Zero, err
	}
	odds, err := settle.Odds(c.TotalPool, c.OutcomePools[outcome])
	if err != nil {
		return decimal.Zero, ErrNoStakeOnOutcome
	}
	return odds, nil
}

// FeeBalance returns the current house fee accumulator balance.
func (r *Registry) FeeBalance(ctx context.Context) (decimal.Decimal, error) {
	return r.store.FeeBalance(ctx)
}

// StakeHistory returns the immutable stake records for a condition.
func (r *Registry) StakeHistory(ctx context.Context, id string) ([]model.StakeEntry, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := r.getLocked(ctx, id); err != nil {
		return nil, err
	}
	return r.store.StakeEntriesByCondition(ctx, id)
}

// UserConditionHistory returns one page of the ordered condition ids
// the participant has staked into.
func (r *Registry) UserConditionHistory(ctx context.Context, userID string, offset, limit int) (*model.Page, error) {
	ids, err := r.store.UserConditions(ctx, userID)
	if err != nil {
		return nil, err
	}
	return paginate(ids, offset, limit), nil
}

// UserClaimHistory returns one page of the ordered condition ids the
// participant actually claimed a payout or refund for.
func (r *Registry) UserClaimHistory(ctx context.Context, userID string, offset, limit int) (*model.Page, error) {
	ids, err := r.store.UserClaims(ctx, userID)
	if err != nil {
		return nil, err
	}
	return paginate(ids, offset, limit), nil
}

// paginate clamps the window to [offset, min(offset+limit, total)).
// An out-of-range offset or zero limit yields an empty page carrying
// the true total.
func paginate(ids []string, offset, limit int) *model.Page {
	total := len(ids)
	page := &model.Page{
		ConditionIDs: []string{},
		Total:        total,
		Offset:       offset,
		Limit:        limit,
	}
	if offset < 0 || limit <= 0 || offset >= total {
		return page
	}
	end := offset + limit
	if end > total {
		end = total
	}
	page.ConditionIDs = append(page.ConditionIDs, ids[offset:end]...)
	return page
}
