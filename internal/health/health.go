// Package health provides HTTP liveness and readiness handlers.
//
//   - /healthz: liveness; always 200 while the process serves HTTP.
//   - /readyz: readiness; 503 when a required [Checker] fails.
//
// A failing optional checker does not make the service unready. The service
// keeps answering, in degraded form, and /readyz reports status "degraded".
// The remote transcription tier is optional in this sense: requests fall back
// to simulation while it is down.
//
// Responses are JSON objects with a top-level "status" ("ok", "degraded" or
// "fail") and a "checks" map with the result of each named checker.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"
)

// checkTimeout bounds a single readiness check.
const checkTimeout = 5 * time.Second

// Status values reported by /readyz.
const (
	StatusOK       = "ok"
	StatusDegraded = "degraded"
	StatusFail     = "fail"
)

// Checker is a named readiness check.
type Checker struct {
	// Name is the key in the JSON response (e.g. "history", "transcription").
	Name string

	// Check returns nil when the dependency is healthy. It must respect
	// context cancellation.
	Check func(ctx context.Context) error

	// Optional marks a dependency the service can run without.
	Optional bool
}

type result struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// Handler serves /healthz and /readyz. The checker list is fixed at
// construction time.
type Handler struct {
	checkers []Checker
}

// New creates a [Handler] that evaluates checkers, in order, on each /readyz
// request.
func New(checkers ...Checker) *Handler {
	c := make([]Checker, len(checkers))
	copy(c, checkers)
	return &Handler{checkers: c}
}

// Healthz always returns 200 OK.
func (h *Handler) Healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, result{Status: StatusOK})
}

// Readyz runs every checker with a [checkTimeout] deadline derived from the
// request context.
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	res := h.evaluate(r.Context())
	code := http.StatusOK
	if res.Status == StatusFail {
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, res)
}

func (h *Handler) evaluate(ctx context.Context) result {
	res := result{Status: StatusOK, Checks: make(map[string]string, len(h.checkers))}
	for _, c := range h.checkers {
		cctx, cancel := context.WithTimeout(ctx, checkTimeout)
		err := c.Check(cctx)
		cancel()

		switch {
		case err == nil:
			res.Checks[c.Name] = StatusOK
		case c.Optional:
			res.Checks[c.Name] = StatusDegraded + ": " + err.Error()
			if res.Status == StatusOK {
				res.Status = StatusDegraded
			}
		default:
			res.Checks[c.Name] = StatusFail + ": " + err.Error()
			res.Status = StatusFail
		}
	}
	return res
}

// Register adds the /healthz and /readyz routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", h.Healthz)
	mux.HandleFunc("GET /readyz", h.Readyz)
}

// writeJSON encodes v with the given status code. On encoding failure it
// falls back to a plain-text 500 response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"status":"error"}`, http.StatusInternalServerError)
	}
}
