package config

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/MrWong99/diction/pkg/provider/stt"
)

// ErrProviderNotRegistered is returned by [Registry.CreateSTT] when no factory
// has been registered under the requested provider name.
var ErrProviderNotRegistered = errors.New("config: provider not registered")

// STTFactory builds a remote transcription provider from its configuration
// entry and the transcription timeout.
type STTFactory func(entry ProviderEntry, cfg TranscriptionConfig) (stt.Provider, error)

// Registry maps provider names to their constructor functions. It is safe
// for concurrent use.
type Registry struct {
	mu  sync.RWMutex
	stt map[string]STTFactory
}

// NewRegistry returns an empty, ready-to-use [Registry].
func NewRegistry() *Registry {
	return &Registry{stt: make(map[string]STTFactory)}
}

// RegisterSTT registers an STT provider factory under name.
// Subsequent calls with the same name overwrite the previous registration.
func (r *Registry) RegisterSTT(name string, factory STTFactory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stt[name] = factory
}

// CreateSTT instantiates the provider named by cfg.Provider.Name.
// Returns [ErrProviderNotRegistered] if no factory has been registered for
// that name.
func (r *Registry) CreateSTT(cfg TranscriptionConfig) (stt.Provider, error) {
	r.mu.RLock()
	factory, ok := r.stt[cfg.Provider.Name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: stt/%q", ErrProviderNotRegistered, cfg.Provider.Name)
	}
	p, err := factory(cfg.Provider, cfg)
	if err != nil {
		return nil, fmt.Errorf("config: create stt/%q: %w", cfg.Provider.Name, err)
	}
	return p, nil
}

// STTNames returns the registered STT provider names in sorted order.
func (r *Registry) STTNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.stt))
	for n := range r.stt {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// OptionString returns a string-valued provider option, or def when the
// option is unset or not a string.
func (e ProviderEntry) OptionString(key, def string) string {
	if v, ok := e.Options[key].(string); ok {
		return v
	}
	return def
}

// OptionBool returns a bool-valued provider option, or def when the option
// is unset or not a bool.
func (e ProviderEntry) OptionBool(key string, def bool) bool {
	if v, ok := e.Options[key].(bool); ok {
		return v
	}
	return def
}
