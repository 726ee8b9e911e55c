package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/MrWong99/diction/internal/history"
	"github.com/MrWong99/diction/pkg/types"
)

var _ history.Store = (*Store)(nil)

// Store is a PostgreSQL-backed history store. All operations are safe for
// concurrent use.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore connects to the database at dsn, verifies the connection and runs
// [Migrate].
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres history: parse dsn: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres history: create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres history: ping: %w", err)
	}

	if err := Migrate(ctx, pool); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool}, nil
}

// Save inserts e. A zero timestamp is replaced by the database clock.
func (s *Store) Save(ctx context.Context, e history.Entry) error {
	result, err := json.Marshal(e.Result)
	if err != nil {
		return fmt.Errorf("postgres history: marshal result: %w", err)
	}

	const q = `
		INSERT INTO assessments
		    (learner, language, reference_text, tier, overall_score, result, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::timestamptz, now()))`

	var at *time.Time
	if !e.Timestamp.IsZero() {
		at = &e.Timestamp
	}
	_, err = s.pool.Exec(ctx, q,
		e.Learner, e.Language, e.ReferenceText, e.Tier.String(), e.Result.OverallScore, result, at)
	if err != nil {
		return fmt.Errorf("postgres history: save: %w", err)
	}
	return nil
}

// Recent returns up to limit entries for learner, newest first.
func (s *Store) Recent(ctx context.Context, learner string, limit int) ([]history.Entry, error) {
	if limit <= 0 {
		return nil, history.ErrInvalidLimit
	}

	const q = `
		SELECT learner, language, reference_text, tier, result, created_at
		FROM   assessments
		WHERE  learner = $1
		ORDER  BY created_at DESC, id DESC
		LIMIT  $2`

	rows, err := s.pool.Query(ctx, q, learner, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres history: recent: %w", err)
	}

	entries, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (history.Entry, error) {
		var (
			e      history.Entry
			tier   string
			result []byte
			err    error
		)
		if err = row.Scan(&e.Learner, &e.Language, &e.ReferenceText, &tier, &result, &e.Timestamp); err != nil {
			return e, err
		}
		if e.Tier, err = types.ParseTier(tier); err != nil {
			return e, err
		}
		if err := json.Unmarshal(result, &e.Result); err != nil {
			return e, fmt.Errorf("decode result: %w", err)
		}
		return e, nil
	})
	if err != nil {
		return nil, fmt.Errorf("postgres history: recent: %w", err)
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	return entries, nil
}

// Ping checks the database connection.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("postgres history: ping: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}
