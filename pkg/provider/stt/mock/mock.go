// Package mock provides a test double for the stt.Provider interface.
//
// Provider returns a fixed Result (or error) and records every request so
// tests can assert on the audio, format, and language the caller sent.
//
// Example:
//
//	p := &mock.Provider{Result: stt.Result{Text: "the cat sat"}}
//	res, _ := p.Transcribe(ctx, stt.Request{Audio: wav})
//	calls := p.Calls()
package mock

import (
	"context"
	"sync"

	"github.com/MrWong99/diction/pkg/provider/stt"
)

// TranscribeCall records a single invocation of Provider.Transcribe.
type TranscribeCall struct {
	// Ctx is the context passed to Transcribe.
	Ctx context.Context
	// Req is the request passed to Transcribe. Audio is a copy.
	Req stt.Request
}

// Provider is a mock implementation of stt.Provider.
type Provider struct {
	mu sync.Mutex

	// Result is returned from Transcribe when Err is nil.
	Result stt.Result

	// Err, if non-nil, is returned as the error from Transcribe.
	Err error

	// TranscribeFunc, if set, takes precedence over Result and Err.
	TranscribeFunc func(ctx context.Context, req stt.Request) (stt.Result, error)

	calls []TranscribeCall
}

// Transcribe records the call and returns the configured response.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Result, error) {
	p.mu.Lock()
	rec := req
	rec.Audio = append([]byte(nil), req.Audio...)
	p.calls = append(p.calls, TranscribeCall{Ctx: ctx, Req: rec})
	fn, res, err := p.TranscribeFunc, p.Result, p.Err
	p.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	if err != nil {
		return stt.Result{}, err
	}
	return res, nil
}

// Calls returns a copy of all recorded Transcribe invocations. Thread-safe.
func (p *Provider) Calls() []TranscribeCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]TranscribeCall, len(p.calls))
	copy(out, p.calls)
	return out
}

// Reset clears all recorded calls. Thread-safe.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = nil
}

// Ensure Provider implements stt.Provider at compile time.
var _ stt.Provider = (*Provider)(nil)
