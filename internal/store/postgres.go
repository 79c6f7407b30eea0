package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/paribet/wager-engine/internal/model"
)

// PostgresStore implements Store using PostgreSQL as the source of truth.
// All monetary values are stored as NUMERIC for exact decimal precision;
// the per-condition nested maps (outcome pools, user stakes, claims) are
// JSONB documents owned wholesale by each condition row, so a
// PutCondition replaces them atomically with the row.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the schema if it does not exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conditions (
			id             TEXT PRIMARY KEY,
			status         TEXT NOT NULL,
			end_time       TIMESTAMPTZ NOT NULL,
			range_enforced BOOLEAN NOT NULL,
			outcome_min    BIGINT NOT NULL,
			outcome_max    BIGINT NOT NULL,
			fee_rate       NUMERIC NOT NULL,
			total_pool     NUMERIC NOT NULL,
			winning_outcome BIGINT,
			outcome_pools  JSONB NOT NULL,
			user_stakes    JSONB NOT NULL,
			claims         JSONB NOT NULL,
			created_at     TIMESTAMPTZ NOT NULL,
			finalized_at   TIMESTAMPTZ
		);
		CREATE TABLE IF NOT EXISTS stake_entries (
			id           TEXT PRIMARY KEY,
			user_id      TEXT NOT NULL,
			condition_id TEXT NOT NULL,
			outcome      BIGINT NOT NULL,
			amount       NUMERIC NOT NULL,
			timestamp    TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS stake_entries_condition_idx ON stake_entries (condition_id);
		CREATE INDEX IF NOT EXISTS stake_entries_user_idx ON stake_entries (user_id);
		CREATE TABLE IF NOT EXISTS user_conditions (
			seq          BIGSERIAL,
			user_id      TEXT NOT NULL,
			condition_id TEXT NOT NULL,
			PRIMARY KEY (user_id, condition_id)
		);
		CREATE TABLE IF NOT EXISTS user_claims (
			seq          BIGSERIAL PRIMARY KEY,
			user_id      TEXT NOT NULL,
			condition_id TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS user_claims_user_idx ON user_claims (user_id);
		CREATE TABLE IF NOT EXISTS fee_accumulator (
			singleton BOOLEAN PRIMARY KEY DEFAULT TRUE,
			balance   NUMERIC NOT NULL
		);
		INSERT INTO fee_accumulator (singleton, balance)
		VALUES (TRUE, 0) ON CONFLICT DO NOTHING;
	`)
	return err
}

func (s *PostgresStore) CreateCondition(ctx context.Context, c *model.Condition) error {
	pools, stakes, claims, err := marshalMaps(c)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO conditions
		 (id, status, end_time, range_enforced, outcome_min, outcome_max,
		  fee_rate, total_pool, winning_outcome, outcome_pools, user_stakes,
		  claims, created_at, finalized_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7::NUMERIC, $8::NUMERIC, $9, $10, $11, $12, $13, $14)`,
		c.ID, string(c.Status), c.EndTime, c.RangeEnforced, c.OutcomeMin, c.OutcomeMax,
		c.FeeRate.String(), c.TotalPool.String(), c.WinningOutcome,
		pools, stakes, claims, c.CreatedAt, c.FinalizedAt,
	)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrExists
	}
	return err
}

func (s *PostgresStore) GetCondition(ctx context.Context, id string) (*model.Condition, error) {
	c := model.Condition{}
	var status, feeRate, totalPool string
	var pools, stakes, claims []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, status, end_time, range_enforced, outcome_min, outcome_max,
		        fee_rate::TEXT, total_pool::TEXT, winning_outcome,
		        outcome_pools, user_stakes, claims, created_at, finalized_at
		 FROM conditions WHERE id = $1`, id).
		Scan(&c.ID, &status, &c.EndTime, &c.RangeEnforced, &c.OutcomeMin, &c.OutcomeMax,
			&feeRate, &totalPool, &c.WinningOutcome,
			&pools, &stakes, &claims, &c.CreatedAt, &c.FinalizedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get condition %s: %w", id, err)
	}

	if err := unmarshalCondition(&c, status, feeRate, totalPool, pools, stakes, claims); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *PostgresStore) PutCondition(ctx context.Context, c *model.Condition) error {
	pools, stakes, claims, err := marshalMaps(c)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE conditions
		 SET status = $2, end_time = $3, total_pool = $4::NUMERIC,
		     winning_outcome = $5, outcome_pools = $6, user_stakes = $7,
		     claims = $8, finalized_at = $9
		 WHERE id = $1`,
		c.ID, string(c.Status), c.EndTime, c.TotalPool.String(),
		c.WinningOutcome, pools, stakes, claims, c.FinalizedAt,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListConditions(ctx context.Context) ([]model.Condition, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, status, end_time, range_enforced, outcome_min, outcome_max,
		        fee_rate::TEXT, total_pool::TEXT, winning_outcome,
		        outcome_pools, user_stakes, claims, created_at, finalized_at
		 FROM conditions ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var conditions []model.Condition
	for rows.Next() {
		var c model.Condition
		var status, feeRate, totalPool string
		var pools, stakes, claims []byte
		if err := rows.Scan(&c.ID, &status, &c.EndTime, &c.RangeEnforced,
			&c.OutcomeMin, &c.OutcomeMax, &feeRate, &totalPool,
			&c.WinningOutcome, &pools, &stakes, &claims,
			&c.CreatedAt, &c.FinalizedAt); err != nil {
			return nil, err
		}
		if err := unmarshalCondition(&c, status, feeRate, totalPool, pools, stakes, claims); err != nil {
			return nil, err
		}
		conditions = append(conditions, c)
	}
	return conditions, rows.Err()
}

func (s *PostgresStore) InsertStakeEntry(ctx context.Context, e *model.StakeEntry) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO stake_entries (id, user_id, condition_id, outcome, amount, timestamp)
		 VALUES ($1, $2, $3, $4, $5::NUMERIC, $6)`,
		e.ID, e.UserID, e.ConditionID, e.Outcome, e.Amount.String(), e.Timestamp,
	)
	return err
}

func (s *PostgresStore) DeleteStakeEntry(ctx context.Context, id string) error {
	_, err := s.pool.Exec(ctx, `DELETE FROM stake_entries WHERE id = $1`, id)
	return err
}

func (s *PostgresStore) StakeEntriesByCondition(ctx context.Context, conditionID string) ([]model.StakeEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, condition_id, outcome, amount::TEXT, timestamp
		 FROM stake_entries WHERE condition_id = $1 ORDER BY timestamp`, conditionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStakeEntries(rows)
}

func (s *PostgresStore) StakeEntriesByUser(ctx context.Context, userID string) ([]model.StakeEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, condition_id, outcome, amount::TEXT, timestamp
		 FROM stake_entries WHERE user_id = $1 ORDER BY timestamp`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanStakeEntries(rows)
}

func (s *PostgresStore) AppendUserCondition(ctx context.Context, userID, conditionID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_conditions (user_id, condition_id)
		 VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, conditionID,
	)
	return err
}

func (s *PostgresStore) RemoveUserCondition(ctx context.Context, userID, conditionID string) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM user_conditions WHERE user_id = $1 AND condition_id = $2`,
		userID, conditionID,
	)
	return err
}

func (s *PostgresStore) AppendUserClaim(ctx context.Context, userID, conditionID string) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO user_claims (user_id, condition_id) VALUES ($1, $2)`,
		userID, conditionID,
	)
	return err
}

func (s *PostgresStore) RemoveUserClaim(ctx context.Context, userID, conditionID string) error {
	// Claims are appended at most once per pair, so the latest row is
	// the only row.
	_, err := s.pool.Exec(ctx,
		`DELETE FROM user_claims WHERE seq = (
		   SELECT max(seq) FROM user_claims WHERE user_id = $1 AND condition_id = $2
		 )`,
		userID, conditionID,
	)
	return err
}

func (s *PostgresStore) UserConditions(ctx context.Context, userID string) ([]string, error) {
	return s.queryIDs(ctx,
		`SELECT condition_id FROM user_conditions WHERE user_id = $1 ORDER BY seq`, userID)
}

func (s *PostgresStore) UserClaims(ctx context.Context, userID string) ([]string, error) {
	return s.queryIDs(ctx,
		`SELECT condition_id FROM user_claims WHERE user_id = $1 ORDER BY seq`, userID)
}

func (s *PostgresStore) AddFees(ctx context.Context, amount decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE fee_accumulator SET balance = balance + $1::NUMERIC WHERE singleton`,
		amount.String(),
	)
	return err
}

func (s *PostgresStore) FeeBalance(ctx context.Context) (decimal.Decimal, error) {
	var balance string
	err := s.pool.QueryRow(ctx,
		`SELECT balance::TEXT FROM fee_accumulator WHERE singleton`).Scan(&balance)
	if err != nil {
		return decimal.Zero, err
	}
	return decimal.NewFromString(balance)
}

func (s *PostgresStore) SetFees(ctx context.Context, amount decimal.Decimal) error {
	_, err := s.pool.Exec(ctx,
		`UPDATE fee_accumulator SET balance = $1::NUMERIC WHERE singleton`,
		amount.String(),
	)
	return err
}

func (s *PostgresStore) queryIDs(ctx context.Context, sql, userID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, sql, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func scanStakeEntries(rows pgx.Rows) ([]model.StakeEntry, error) {
	var entries []model.StakeEntry
	for rows.Next() {
		var e model.StakeEntry
		var amountS string

		if err := rows.Scan(&e.ID, &e.UserID, &e.ConditionID, &e.Outcome,
			&amountS, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Amount, _ = decimal.NewFromString(amountS)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func marshalMaps(c *model.Condition) (pools, stakes, claims []byte, err error) {
	if pools, err = json.Marshal(c.OutcomePools); err != nil {
		return nil, nil, nil, err
	}
	if stakes, err = json.Marshal(c.UserStakes); err != nil {
		return nil, nil, nil, err
	}
	if claims, err = json.Marshal(c.Claims); err != nil {
		return nil, nil, nil, err
	}
	return pools, stakes, claims, nil
}

func unmarshalCondition(c *model.Condition, status, feeRate, totalPool string, pools, stakes, claims []byte) error {
	c.Status = model.ConditionStatus(status)

	var err error
	if c.FeeRate, err = decimal.NewFromString(feeRate); err != nil {
		return err
	}
	if c.TotalPool, err = decimal.NewFromString(totalPool); err != nil {
		return err
	}
	if err := json.Unmarshal(pools, &c.OutcomePools); err != nil {
		return err
	}
	if err := json.Unmarshal(stakes, &c.UserStakes); err != nil {
		return err
	}
	return json.Unmarshal(claims, &c.Claims)
}
