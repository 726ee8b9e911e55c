// Package history records completed assessments so learners can review their
// progress.
//
// Storage is best effort from the pipeline's point of view: the assessment
// service logs failed writes and still returns the result. Two backends are
// provided: [FileStore] (append-only JSON lines, for single-instance
// deployments) and the postgres subpackage.
package history

import (
	"context"
	"errors"
	"time"

	"github.com/MrWong99/diction/pkg/types"
)

// ErrInvalidLimit is returned by Recent for a non-positive limit.
var ErrInvalidLimit = errors.New("history: limit must be positive")

// Entry is one stored assessment.
type Entry struct {
	Timestamp     time.Time              `json:"timestamp"`
	Learner       string                 `json:"learner"`
	Language      string                 `json:"language"`
	ReferenceText string                 `json:"referenceText"`
	Tier          types.Tier             `json:"tier"`
	Result        types.AssessmentResult `json:"result"`
}

// Store persists assessment history. Implementations must be safe for
// concurrent use.
type Store interface {
	// Save appends e.
	Save(ctx context.Context, e Entry) error

	// Recent returns up to limit entries for learner, newest first. An empty
	// learner matches entries saved without a learner.
	Recent(ctx context.Context, learner string, limit int) ([]Entry, error)

	// Ping reports whether the backend is reachable.
	Ping(ctx context.Context) error

	// Close releases resources held by the store.
	Close() error
}
