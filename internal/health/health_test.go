package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func ok(context.Context) error { return nil }

func failWith(msg string) func(context.Context) error {
	return func(context.Context) error { return errors.New(msg) }
}

func readyz(t *testing.T, h *Handler, ctx context.Context) (int, result) {
	t.Helper()
	req := httptest.NewRequest("GET", "/readyz", nil).WithContext(ctx)
	rec := httptest.NewRecorder()
	h.Readyz(rec, req)

	var body result
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode JSON: %v", err)
	}
	return rec.Code, body
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "history", Check: failWith("down")})
	rec := httptest.NewRecorder()
	h.Healthz(rec, httptest.NewRequest("GET", "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 regardless of checkers", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestReadyz(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		checkers   []Checker
		wantCode   int
		wantStatus string
		wantChecks map[string]string
	}{
		{
			name:       "no checkers",
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
		},
		{
			name: "all pass",
			checkers: []Checker{
				{Name: "history", Check: ok},
				{Name: "transcription", Check: ok, Optional: true},
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusOK,
			wantChecks: map[string]string{"history": "ok", "transcription": "ok"},
		},
		{
			name: "optional failure degrades",
			checkers: []Checker{
				{Name: "history", Check: ok},
				{Name: "transcription", Check: failWith("whisper circuit is open"), Optional: true},
			},
			wantCode:   http.StatusOK,
			wantStatus: StatusDegraded,
			wantChecks: map[string]string{"history": "ok", "transcription": "degraded: whisper circuit is open"},
		},
		{
			name: "required failure wins over degraded",
			checkers: []Checker{
				{Name: "transcription", Check: failWith("open"), Optional: true},
				{Name: "history", Check: failWith("connection refused")},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusFail,
			wantChecks: map[string]string{"transcription": "degraded: open", "history": "fail: connection refused"},
		},
		{
			name: "degraded after fail stays fail",
			checkers: []Checker{
				{Name: "history", Check: failWith("timeout")},
				{Name: "transcription", Check: failWith("open"), Optional: true},
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: StatusFail,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			code, body := readyz(t, New(tc.checkers...), context.Background())
			if code != tc.wantCode {
				t.Errorf("code = %d, want %d", code, tc.wantCode)
			}
			if body.Status != tc.wantStatus {
				t.Errorf("status = %q, want %q", body.Status, tc.wantStatus)
			}
			for name, want := range tc.wantChecks {
				if got := body.Checks[name]; got != want {
					t.Errorf("checks[%s] = %q, want %q", name, got, want)
				}
			}
		})
	}
}

func TestReadyz_RespectsContextCancellation(t *testing.T) {
	t.Parallel()

	h := New(Checker{Name: "history", Check: func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if code, _ := readyz(t, h, ctx); code != http.StatusServiceUnavailable {
		t.Errorf("code = %d, want 503", code)
	}
}

func TestRegister_Routes(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	New(Checker{Name: "history", Check: ok}).Register(mux)

	for _, path := range []string{"/healthz", "/readyz"} {
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, httptest.NewRequest("GET", path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest("POST", "/readyz", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /readyz = %d, want 405", rec.Code)
	}
}
