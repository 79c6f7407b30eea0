package store

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/paribet/wager-engine/internal/model"
)

func testCondition(id string) *model.Condition {
	return &model.Condition{
		ID:           id,
		Status:       model.StatusOpen,
		EndTime:      time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		FeeRate:      decimal.NewFromInt(5),
		TotalPool:    decimal.Zero,
		OutcomePools: make(map[int64]decimal.Decimal),
		UserStakes:   make(map[string]map[int64]decimal.Decimal),
		Claims:       make(map[string]model.ClaimRecord),
		CreatedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestMemoryStore_CreateAndGet(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateCondition(ctx, testCondition("c1")); err != nil {
		t.Fatalf("CreateCondition: %v", err)
	}
	if err := s.CreateCondition(ctx, testCondition("c1")); err != ErrExists {
		t.Errorf("duplicate create: got %v, want ErrExists", err)
	}

	c, err := s.GetCondition(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCondition: %v", err)
	}
	if c.ID != "c1" {
		t.Errorf("id = %s, want c1", c.ID)
	}

	if _, err := s.GetCondition(ctx, "missing"); err != ErrNotFound {
		t.Errorf("missing get: got %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_CopyIsolation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.CreateCondition(ctx, testCondition("c1")); err != nil {
		t.Fatalf("CreateCondition: %v", err)
	}

	// Mutating a returned copy must not leak into stored state.
	c, _ := s.GetCondition(ctx, "c1")
	c.TotalPool = decimal.NewFromInt(999)
	c.OutcomePools[7] = decimal.NewFromInt(999)

	fresh, _ := s.GetCondition(ctx, "c1")
	if !fresh.TotalPool.IsZero() {
		t.Errorf("stored pool mutated through a returned copy: %s", fresh.TotalPool)
	}
	if len(fresh.OutcomePools) != 0 {
		t.Errorf("stored outcome pools mutated through a returned copy: %v", fresh.OutcomePools)
	}
}

func TestMemoryStore_PutCondition(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.PutCondition(ctx, testCondition("ghost")); err != ErrNotFound {
		t.Errorf("put of absent condition: got %v, want ErrNotFound", err)
	}

	c := testCondition("c1")
	if err := s.CreateCondition(ctx, c); err != nil {
		t.Fatalf("CreateCondition: %v", err)
	}

	c.Status = model.StatusClosed
	c.TotalPool = decimal.NewFromInt(50)
	if err := s.PutCondition(ctx, c); err != nil {
		t.Fatalf("PutCondition: %v", err)
	}

	got, _ := s.GetCondition(ctx, "c1")
	if got.Status != model.StatusClosed || !got.TotalPool.Equal(decimal.NewFromInt(50)) {
		t.Errorf("put not applied: status=%s pool=%s", got.Status, got.TotalPool)
	}
}

func TestMemoryStore_ParticipationIndex(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	// Dedup: repeated appends of the same pair record once.
	for i := 0; i < 3; i++ {
		if err := s.AppendUserCondition(ctx, "alice", "c1"); err != nil {
			t.Fatalf("AppendUserCondition: %v", err)
		}
	}
	s.AppendUserCondition(ctx, "alice", "c2")

	ids, err := s.UserConditions(ctx, "alice")
	if err != nil {
		t.Fatalf("UserConditions: %v", err)
	}
	if len(ids) != 2 || ids[0] != "c1" || ids[1] != "c2" {
		t.Errorf("conditions = %v, want [c1 c2]", ids)
	}

	// Claims are plain append-only, no dedup needed (the registry
	// guarantees at most one claim per pair).
	s.AppendUserClaim(ctx, "alice", "c2")
	s.AppendUserClaim(ctx, "alice", "c1")
	claims, _ := s.UserClaims(ctx, "alice")
	if len(claims) != 2 || claims[0] != "c2" || claims[1] != "c1" {
		t.Errorf("claims = %v, want [c2 c1]", claims)
	}

	// Unknown user gets empty lists, not an error.
	none, err := s.UserConditions(ctx, "nobody")
	if err != nil || len(none) != 0 {
		t.Errorf("unknown user: ids=%v err=%v", none, err)
	}
}

func TestMemoryStore_StakeEntries(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	entries := []model.StakeEntry{
		{ID: "s1", UserID: "alice", ConditionID: "c1", Outcome: 1, Amount: decimal.NewFromInt(10)},
		{ID: "s2", UserID: "bob", ConditionID: "c1", Outcome: 2, Amount: decimal.NewFromInt(20)},
		{ID: "s3", UserID: "alice", ConditionID: "c2", Outcome: 1, Amount: decimal.NewFromInt(30)},
	}
	for i := range entries {
		if err := s.InsertStakeEntry(ctx, &entries[i]); err != nil {
			t.Fatalf("InsertStakeEntry: %v", err)
		}
	}

	byCond, _ := s.StakeEntriesByCondition(ctx, "c1")
	if len(byCond) != 2 {
		t.Errorf("c1 entries = %d, want 2", len(byCond))
	}
	byUser, _ := s.StakeEntriesByUser(ctx, "alice")
	if len(byUser) != 2 {
		t.Errorf("alice entries = %d, want 2", len(byUser))
	}

	if err := s.DeleteStakeEntry(ctx, "s2"); err != nil {
		t.Fatalf("DeleteStakeEntry: %v", err)
	}
	byCond, _ = s.StakeEntriesByCondition(ctx, "c1")
	if len(byCond) != 1 || byCond[0].ID != "s1" {
		t.Errorf("c1 entries after delete = %v, want [s1]", byCond)
	}

	// Deleting an absent id is a no-op.
	if err := s.DeleteStakeEntry(ctx, "nope"); err != nil {
		t.Errorf("delete of absent entry: %v", err)
	}
}

func TestMemoryStore_IndexRemoval(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	s.AppendUserCondition(ctx, "alice", "c1")
	s.AppendUserCondition(ctx, "alice", "c2")
	if err := s.RemoveUserCondition(ctx, "alice", "c1"); err != nil {
		t.Fatalf("RemoveUserCondition: %v", err)
	}
	ids, _ := s.UserConditions(ctx, "alice")
	if len(ids) != 1 || ids[0] != "c2" {
		t.Errorf("conditions = %v, want [c2]", ids)
	}

	// Removal resets the dedup, so a later stake re-indexes the pair.
	s.AppendUserCondition(ctx, "alice", "c1")
	ids, _ = s.UserConditions(ctx, "alice")
	if len(ids) != 2 || ids[1] != "c1" {
		t.Errorf("conditions after re-append = %v, want [c2 c1]", ids)
	}

	s.AppendUserClaim(ctx, "alice", "c1")
	if err := s.RemoveUserClaim(ctx, "alice", "c1"); err != nil {
		t.Fatalf("RemoveUserClaim: %v", err)
	}
	claims, _ := s.UserClaims(ctx, "alice")
	if len(claims) != 0 {
		t.Errorf("claims after removal = %v, want empty", claims)
	}
}

func TestMemoryStore_Fees(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	bal, err := s.FeeBalance(ctx)
	if err != nil || !bal.IsZero() {
		t.Fatalf("initial balance = %s err=%v, want 0", bal, err)
	}

	s.AddFees(ctx, decimal.NewFromInt(10))
	s.AddFees(ctx, decimal.NewFromInt(5))
	bal, _ = s.FeeBalance(ctx)
	if !bal.Equal(decimal.NewFromInt(15)) {
		t.Errorf("balance = %s, want 15", bal)
	}

	s.SetFees(ctx, decimal.Zero)
	bal, _ = s.FeeBalance(ctx)
	if !bal.IsZero() {
		t.Errorf("balance after reset = %s, want 0", bal)
	}
}
