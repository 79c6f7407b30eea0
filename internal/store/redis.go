package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"github.com/paribet/wager-engine/internal/model"
)

// CachedStore wraps a primary Store (PostgreSQL) with a Redis read-through
// cache for condition records and participation lists. Writes go to the
// primary store and invalidate the cache; reads check Redis first then
// fall back to the primary. The fee accumulator is never cached — it is
// money, and every read must see the committed balance.
type CachedStore struct {
	primary Store
	rdb     *redis.Client
	ttl     time.Duration
}

// NewCachedStore creates a cached wrapper around a primary store.
func NewCachedStore(primary Store, rdb *redis.Client, ttl time.Duration) *CachedStore {
	return &CachedStore{
		primary: primary,
		rdb:     rdb,
		ttl:     ttl,
	}
}

// --- Write-through (write to primary, invalidate cache) ---

func (s *CachedStore) CreateCondition(ctx context.Context, c *model.Condition) error {
	if err := s.primary.CreateCondition(ctx, c); err != nil {
		return err
	}
	s.cacheCondition(ctx, c)
	return nil
}

func (s *CachedStore) PutCondition(ctx context.Context, c *model.Condition) error {
	if err := s.primary.PutCondition(ctx, c); err != nil {
		return err
	}
	// Invalidate; next read re-populates from the primary.
	s.rdb.Del(ctx, conditionKey(c.ID))
	return nil
}

func (s *CachedStore) InsertStakeEntry(ctx context.Context, e *model.StakeEntry) error {
	return s.primary.InsertStakeEntry(ctx, e)
}

func (s *CachedStore) DeleteStakeEntry(ctx context.Context, id string) error {
	return s.primary.DeleteStakeEntry(ctx, id)
}

func (s *CachedStore) AppendUserCondition(ctx context.Context, userID, conditionID string) error {
	if err := s.primary.AppendUserCondition(ctx, userID, conditionID); err != nil {
		return err
	}
	s.rdb.Del(ctx, userCondsKey(userID))
	return nil
}

func (s *CachedStore) RemoveUserCondition(ctx context.Context, userID, conditionID string) error {
	if err := s.primary.RemoveUserCondition(ctx, userID, conditionID); err != nil {
		return err
	}
	s.rdb.Del(ctx, userCondsKey(userID))
	return nil
}

func (s *CachedStore) AppendUserClaim(ctx context.Context, userID, conditionID string) error {
	if err := s.primary.AppendUserClaim(ctx, userID, conditionID); err != nil {
		return err
	}
	s.rdb.Del(ctx, userClaimsKey(userID))
	return nil
}

func (s *CachedStore) RemoveUserClaim(ctx context.Context, userID, conditionID string) error {
	if err := s.primary.RemoveUserClaim(ctx, userID, conditionID); err != nil {
		return err
	}
	s.rdb.Del(ctx, userClaimsKey(userID))
	return nil
}

// --- Read-through (check cache first) ---

func (s *CachedStore) GetCondition(ctx context.Context, id string) (*model.Condition, error) {
	data, err := s.rdb.Get(ctx, conditionKey(id)).Bytes()
	if err == nil {
		var c model.Condition
		if json.Unmarshal(data, &c) == nil {
			return &c, nil
		}
	}

	// Cache miss: read from primary.
	c, err := s.primary.GetCondition(ctx, id)
	if err != nil {
		return nil, err
	}

	s.cacheCondition(ctx, c)
	return c, nil
}

func (s *CachedStore) UserConditions(ctx context.Context, userID string) ([]string, error) {
	return s.cachedIDs(ctx, userCondsKey(userID), func() ([]string, error) {
		return s.primary.UserConditions(ctx, userID)
	})
}

func (s *CachedStore) UserClaims(ctx context.Context, userID string) ([]string, error) {
	return s.cachedIDs(ctx, userClaimsKey(userID), func() ([]string, error) {
		return s.primary.UserClaims(ctx, userID)
	})
}

// --- Passthrough (not cached) ---

func (s *CachedStore) ListConditions(ctx context.Context) ([]model.Condition, error) {
	return s.primary.ListConditions(ctx)
}

func (s *CachedStore) StakeEntriesByCondition(ctx context.Context, conditionID string) ([]model.StakeEntry, error) {
	return s.primary.StakeEntriesByCondition(ctx, conditionID)
}

func (s *CachedStore) StakeEntriesByUser(ctx context.Context, userID string) ([]model.StakeEntry, error) {
	return s.primary.StakeEntriesByUser(ctx, userID)
}

func (s *CachedStore) AddFees(ctx context.Context, amount decimal.Decimal) error {
	return s.primary.AddFees(ctx, amount)
}

func (s *CachedStore) FeeBalance(ctx context.Context) (decimal.Decimal, error) {
	return s.primary.FeeBalance(ctx)
}

func (s *CachedStore) SetFees(ctx context.Context, amount decimal.Decimal) error {
	return s.primary.SetFees(ctx, amount)
}

// --- Cache helpers ---

func (s *CachedStore) cacheCondition(ctx context.Context, c *model.Condition) {
	if data, err := json.Marshal(c); err == nil {
		s.rdb.Set(ctx, conditionKey(c.ID), data, s.ttl)
	}
}

func (s *CachedStore) cachedIDs(ctx context.Context, key string, load func() ([]string, error)) ([]string, error) {
	data, err := s.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var ids []string
		if json.Unmarshal(data, &ids) == nil {
			return ids, nil
		}
	}

	ids, err := load()
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(ids); err == nil {
		s.rdb.Set(ctx, key, data, s.ttl)
	}
	return ids, nil
}

func conditionKey(id string) string    { return fmt.Sprintf("condition:%s", id) }
func userCondsKey(uid string) string   { return fmt.Sprintf("user_conditions:%s", uid) }
func userClaimsKey(uid string) string  { return fmt.Sprintf("user_claims:%s", uid) }
