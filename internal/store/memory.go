package store

import (
	"context"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/paribet/wager-engine/internal/model"
)

// MemoryStore implements Store with in-memory maps. Used for testing
// and development. Not suitable for production (no persistence).
type MemoryStore struct {
	mu         sync.RWMutex
	conditions map[string]*model.Condition
	stakes     []model.StakeEntry

	userConds  map[string][]string
	userClaims map[string][]string
	condSeen   map[string]map[string]bool // userID → conditionID → indexed

	fees decimal.Decimal
}

// NewMemoryStore creates a new in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		conditions: make(map[string]*model.Condition),
		userConds:  make(map[string][]string),
		userClaims: make(map[string][]string),
		condSeen:   make(map[string]map[string]bool),
	}
}

func (s *MemoryStore) CreateCondition(_ context.Context, c *model.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conditions[c.ID]; ok {
		return ErrExists
	}
	// Store a copy to avoid external mutation.
	s.conditions[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) GetCondition(_ context.Context, id string) (*model.Condition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.conditions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return c.Clone(), nil
}

func (s *MemoryStore) PutCondition(_ context.Context, c *model.Condition) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.conditions[c.ID]; !ok {
		return ErrNotFound
	}
	s.conditions[c.ID] = c.Clone()
	return nil
}

func (s *MemoryStore) ListConditions(_ context.Context) ([]model.Condition, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conditions := make([]model.Condition, 0, len(s.conditions))
	for _, c := range s.conditions {
		conditions = append(conditions, *c.Clone())
	}
	return conditions, nil
}

func (s *MemoryStore) InsertStakeEntry(_ context.Context, e *model.StakeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stakes = append(s.stakes, *e)
	return nil
}

func (s *MemoryStore) DeleteStakeEntry(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.stakes {
		if e.ID == id {
			s.stakes = append(s.stakes[:i], s.stakes[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *MemoryStore) StakeEntriesByCondition(_ context.Context, conditionID string) ([]model.StakeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.StakeEntry
	for _, e := range s.stakes {
		if e.ConditionID == conditionID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MemoryStore) StakeEntriesByUser(_ context.Context, userID string) ([]model.StakeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []model.StakeEntry
	for _, e := range s.stakes {
		if e.UserID == userID {
			result = append(result, e)
		}
	}
	return result, nil
}

func (s *MemoryStore) AppendUserCondition(_ context.Context, userID, conditionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	seen := s.condSeen[userID]
	if seen == nil {
		seen = make(map[string]bool)
		s.condSeen[userID] = seen
	}
	if seen[conditionID] {
		return nil
	}
	seen[conditionID] = true
	s.userConds[userID] = append(s.userConds[userID], conditionID)
	return nil
}

func (s *MemoryStore) RemoveUserCondition(_ context.Context, userID, conditionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.condSeen[userID], conditionID)
	s.userConds[userID] = removeID(s.userConds[userID], conditionID)
	return nil
}

func (s *MemoryStore) AppendUserClaim(_ context.Context, userID, conditionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userClaims[userID] = append(s.userClaims[userID], conditionID)
	return nil
}

func (s *MemoryStore) RemoveUserClaim(_ context.Context, userID, conditionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.userClaims[userID] = removeID(s.userClaims[userID], conditionID)
	return nil
}

// removeID drops the last occurrence of id, keeping order.
func removeID(ids []string, id string) []string {
	for i := len(ids) - 1; i >= 0; i-- {
		if ids[i] == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return ids
}

func (s *MemoryStore) UserConditions(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.userConds[userID]))
	copy(ids, s.userConds[userID])
	return ids, nil
}

func (s *MemoryStore) UserClaims(_ context.Context, userID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, len(s.userClaims[userID]))
	copy(ids, s.userClaims[userID])
	return ids, nil
}

func (s *MemoryStore) AddFees(_ context.Context, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fees = s.fees.Add(amount)
	return nil
}

func (s *MemoryStore) FeeBalance(_ context.Context) (decimal.Decimal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.fees, nil
}

func (s *MemoryStore) SetFees(_ context.Context, amount decimal.Decimal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.fees = amount
	return nil
}
