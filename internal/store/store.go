// Package store defines the persistence interface for the wager engine.
// Implementations include PostgreSQL (source of truth), Redis (read-through
// cache), and in-memory (for testing).
package store

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/paribet/wager-engine/internal/model"
)

var (
	// ErrNotFound is returned when no condition maps to the given id.
	ErrNotFound = errors.New("store: condition not found")

	// ErrExists is returned when creating a condition whose id is
	// already taken.
	ErrExists = errors.New("store: condition already exists")
)

// Store is the persistence interface. PostgreSQL is the source of truth;
// Redis provides a read-through cache layer. Implementations return
// copies — callers never receive a live reference into stored state.
type Store interface {
	// --- Condition records ---

	// CreateCondition persists a new condition; ErrExists if the id is taken.
	CreateCondition(ctx context.Context, c *model.Condition) error

	// GetCondition retrieves a condition by id; ErrNotFound if absent.
	GetCondition(ctx context.Context, id string) (*model.Condition, error)

	// PutCondition replaces the full stored record for c.ID.
	PutCondition(ctx context.Context, c *model.Condition) error

	// ListConditions returns all conditions.
	ListConditions(ctx context.Context) ([]model.Condition, error)

	// --- Immutable stake ledger ---

	// InsertStakeEntry appends an immutable stake record.
	InsertStakeEntry(ctx context.Context, e *model.StakeEntry) error

	// DeleteStakeEntry removes a stake record by id. Used only to
	// unwind an aborted stake; absent ids are a no-op.
	DeleteStakeEntry(ctx context.Context, id string) error

	// StakeEntriesByCondition returns all stakes placed into a condition.
	StakeEntriesByCondition(ctx context.Context, conditionID string) ([]model.StakeEntry, error)

	// StakeEntriesByUser returns all stakes placed by a participant.
	StakeEntriesByUser(ctx context.Context, userID string) ([]model.StakeEntry, error)

	// --- Participation index ---

	// AppendUserCondition records that the user staked into the
	// condition. Appended once; later calls for the same pair are no-ops.
	AppendUserCondition(ctx context.Context, userID, conditionID string) error

	// RemoveUserCondition deletes the pair from the participation
	// index. Used only to unwind an aborted first stake.
	RemoveUserCondition(ctx context.Context, userID, conditionID string) error

	// AppendUserClaim records that the user claimed a payout or refund.
	AppendUserClaim(ctx context.Context, userID, conditionID string) error

	// RemoveUserClaim deletes the pair from the claimed index. Used
	// only to unwind an aborted claim.
	RemoveUserClaim(ctx context.Context, userID, conditionID string) error

	// UserConditions returns the ordered staked-condition ids for a user.
	UserConditions(ctx context.Context, userID string) ([]string, error)

	// UserClaims returns the ordered claimed-condition ids for a user.
	UserClaims(ctx context.Context, userID string) ([]string, error)

	// --- House fee accumulator ---

	// AddFees accrues amount into the global fee accumulator.
	AddFees(ctx context.Context, amount decimal.Decimal) error

	// FeeBalance returns the current accumulator balance.
	FeeBalance(ctx context.Context) (decimal.Decimal, error)

	// SetFees overwrites the accumulator (withdraw reset / rollback).
	SetFees(ctx context.Context, amount decimal.Decimal) error
}
