package resilience

import (
	"errors"
	"fmt"
	"log/slog"
)

// ErrAllFailed is returned when every entry in a [FallbackGroup] fails or has an
// open circuit breaker.
var ErrAllFailed = errors.New("all tiers failed")

// FallbackConfig configures the per-entry circuit breaker created for each
// entry in a [FallbackGroup]. The Name field of CircuitBreaker is replaced by
// the entry name.
type FallbackConfig struct {
	CircuitBreaker CircuitBreakerConfig
}

// EntryStatus is a point-in-time view of one [FallbackGroup] entry.
type EntryStatus struct {
	Name  string
	State State
}

// fallbackEntry pairs a value with its dedicated circuit breaker.
type fallbackEntry[T any] struct {
	name    string
	value   T
	breaker *CircuitBreaker
}

// FallbackGroup wraps a primary and zero or more fallback values of the same
// type. When the primary fails (or its circuit breaker is open), the next
// entry is tried in registration order.
//
// Entries must be registered before the group is shared between goroutines;
// after that FallbackGroup is safe for concurrent use.
type FallbackGroup[T any] struct {
	entries []fallbackEntry[T]
	cfg     FallbackConfig
}

// NewFallbackGroup creates a [FallbackGroup] with primary as the first entry.
// Additional fallbacks are registered via [FallbackGroup.AddFallback].
func NewFallbackGroup[T any](primary T, primaryName string, cfg FallbackConfig) *FallbackGroup[T] {
	fg := &FallbackGroup[T]{cfg: cfg}
	fg.AddFallback(primaryName, primary)
	return fg
}

// AddFallback appends a fallback entry. Fallbacks are tried in the order they
// are added, after the primary.
func (fg *FallbackGroup[T]) AddFallback(name string, fallback T) {
	cbCfg := fg.cfg.CircuitBreaker
	cbCfg.Name = name
	fg.entries = append(fg.entries, fallbackEntry[T]{
		name:    name,
		value:   fallback,
		breaker: NewCircuitBreaker(cbCfg),
	})
}

// Len returns the number of registered entries.
func (fg *FallbackGroup[T]) Len() int { return len(fg.entries) }

// Status reports the breaker state of every entry in registration order.
func (fg *FallbackGroup[T]) Status() []EntryStatus {
	out := make([]EntryStatus, len(fg.entries))
	for i := range fg.entries {
		out[i] = EntryStatus{Name: fg.entries[i].name, State: fg.entries[i].breaker.State()}
	}
	return out
}

// ExecuteWithResult tries fn against each entry in the group until one
// succeeds, returning the result of the first success. Entries with an open
// breaker are skipped. If every entry fails the returned error wraps
// [ErrAllFailed] and the last entry's error.
//
// This is a package-level function because Go does not support method-level
// type parameters.
func ExecuteWithResult[T any, R any](fg *FallbackGroup[T], fn func(T) (R, error)) (R, error) {
	var (
		lastErr error
		zero    R
	)
	for i := range fg.entries {
		entry := &fg.entries[i]
		var result R
		err := entry.breaker.Execute(func() error {
			var innerErr error
			result, innerErr = fn(entry.value)
			return innerErr
		})
		if err == nil {
			return result, nil
		}
		lastErr = err
		if errors.Is(err, ErrCircuitOpen) {
			slog.Debug("skipping tier (circuit open)", "tier", entry.name)
		} else {
			slog.Warn("tier failed, trying next", "tier", entry.name, "err", err)
		}
	}
	if lastErr == nil {
		return zero, ErrAllFailed
	}
	return zero, fmt.Errorf("%w: %w", ErrAllFailed, lastErr)
}
