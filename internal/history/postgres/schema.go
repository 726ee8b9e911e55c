// Package postgres provides a PostgreSQL-backed [history.Store].
//
// Each assessment is one row in the assessments table. The full result is kept
// as JSONB next to a few scalar columns used for filtering and ordering.
// [Migrate] creates the table on startup.
//
// Usage:
//
//	store, err := postgres.NewStore(ctx, dsn)
//	if err != nil { … }
//	defer store.Close()
//
//	_ = store.Save(ctx, entry)
//	recent, _ := store.Recent(ctx, "learner-42", 10)
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

const ddlAssessments = `
CREATE TABLE IF NOT EXISTS assessments (
    id             BIGSERIAL    PRIMARY KEY,
    learner        TEXT         NOT NULL DEFAULT '',
    language       TEXT         NOT NULL DEFAULT '',
    reference_text TEXT         NOT NULL DEFAULT '',
    tier           TEXT         NOT NULL,
    overall_score  INTEGER      NOT NULL,
    result         JSONB        NOT NULL,
    created_at     TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_assessments_learner_created
    ON assessments (learner, created_at DESC);
`

// Migrate creates the assessments table and its index if they do not exist.
// It is idempotent.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	if _, err := pool.Exec(ctx, ddlAssessments); err != nil {
		return fmt.Errorf("postgres history: migrate assessments: %w", err)
	}
	return nil
}
