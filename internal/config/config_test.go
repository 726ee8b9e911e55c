package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"github.com/MrWong99/diction/internal/config"
	"github.com/MrWong99/diction/pkg/provider/stt"
	sttmock "github.com/MrWong99/diction/pkg/provider/stt/mock"
)

const sampleYAML = `
server:
  listen_addr: ":9000"
  log_level: debug
  max_audio_bytes: 1048576

transcription:
  provider:
    name: whisper
    base_url: http://whisper:8080
    model: base.en
    options:
      sample_rate: 16000
  timeout: 15s

fallback:
  mode: enhanced
  min_accuracy: 0.6
  max_accuracy: 0.9
  seed: 42
  circuit_breaker:
    max_failures: 3
    reset_timeout: 1m
    half_open_max: 2

assessment:
  default_language: fr-FR
  alignment: sequence
  feedback_seed: 7

history:
  backend: postgres
  postgres_dsn: postgres://diction@localhost/diction

telemetry:
  service_name: diction-eu
  service_version: 1.4.0
`

func TestLoadFromReader_Full(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(sampleYAML))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}

	if cfg.Server.ListenAddr != ":9000" || cfg.Server.LogLevel != config.LogDebug || cfg.Server.MaxAudioBytes != 1<<20 {
		t.Errorf("server = %+v", cfg.Server)
	}
	p := cfg.Transcription.Provider
	if p.Name != "whisper" || p.BaseURL != "http://whisper:8080" || p.Model != "base.en" {
		t.Errorf("provider = %+v", p)
	}
	if cfg.Transcription.Timeout != 15*time.Second {
		t.Errorf("timeout = %v, want 15s", cfg.Transcription.Timeout)
	}
	fb := cfg.Fallback
	if fb.Mode != config.SimulationEnhanced || fb.MinAccuracy != 0.6 || fb.MaxAccuracy != 0.9 || fb.Seed != 42 {
		t.Errorf("fallback = %+v", fb)
	}
	if fb.CircuitBreaker != (config.CircuitBreakerConfig{MaxFailures: 3, ResetTimeout: time.Minute, HalfOpenMax: 2}) {
		t.Errorf("circuit_breaker = %+v", fb.CircuitBreaker)
	}
	if cfg.Assessment.DefaultLanguage != "fr-FR" || cfg.Assessment.Alignment != config.AlignSequence || cfg.Assessment.FeedbackSeed != 7 {
		t.Errorf("assessment = %+v", cfg.Assessment)
	}
	if cfg.History.Backend != config.HistoryPostgres || cfg.History.PostgresDSN == "" {
		t.Errorf("history = %+v", cfg.History)
	}
	if cfg.Telemetry.ServiceName != "diction-eu" || cfg.Telemetry.ServiceVersion != "1.4.0" {
		t.Errorf("telemetry = %+v", cfg.Telemetry)
	}
}

func TestLoadFromReader_EmptyDocumentYieldsDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader(""))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.Server.ListenAddr != config.DefaultListenAddr || cfg.Server.LogLevel != config.LogInfo {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.Server.MaxAudioBytes != config.DefaultMaxAudioBytes {
		t.Errorf("max_audio_bytes = %d", cfg.Server.MaxAudioBytes)
	}
	if cfg.Fallback.Mode != config.SimulationAccuracy ||
		cfg.Fallback.MinAccuracy != config.DefaultMinAccuracy ||
		cfg.Fallback.MaxAccuracy != config.DefaultMaxAccuracy {
		t.Errorf("fallback = %+v", cfg.Fallback)
	}
	if cfg.Assessment.DefaultLanguage != "en" || cfg.Assessment.Alignment != config.AlignPositional {
		t.Errorf("assessment = %+v", cfg.Assessment)
	}
	if cfg.History.Backend != config.HistoryNone || cfg.Telemetry.ServiceName != "diction" {
		t.Errorf("history/telemetry = %+v / %+v", cfg.History, cfg.Telemetry)
	}
}

func TestLoadFromReader_FileBackendDefaultPath(t *testing.T) {
	t.Parallel()

	cfg, err := config.LoadFromReader(strings.NewReader("history:\n  backend: file\n"))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	if cfg.History.Path != config.DefaultHistoryFilePath {
		t.Errorf("history.path = %q, want %q", cfg.History.Path, config.DefaultHistoryFilePath)
	}
}

func TestLoadFromReader_UnknownField(t *testing.T) {
	t.Parallel()

	_, err := config.LoadFromReader(strings.NewReader("server:\n  listen_adr: \":1\"\n"))
	if err == nil || !strings.Contains(err.Error(), "listen_adr") {
		t.Fatalf("err = %v, want unknown field error naming listen_adr", err)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "diction.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.ListenAddr != ":9000" {
		t.Errorf("listen_addr = %q", cfg.Server.ListenAddr)
	}

	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load of a missing file succeeded")
	}
}

func TestRegistry(t *testing.T) {
	t.Parallel()

	reg := config.NewRegistry()
	var gotEntry config.ProviderEntry
	var gotTimeout time.Duration
	reg.RegisterSTT("whisper", func(e config.ProviderEntry, tc config.TranscriptionConfig) (stt.Provider, error) {
		gotEntry, gotTimeout = e, tc.Timeout
		return &sttmock.Provider{Result: stt.Result{Text: "ok"}}, nil
	})
	reg.RegisterSTT("broken", func(config.ProviderEntry, config.TranscriptionConfig) (stt.Provider, error) {
		return nil, errors.New("bad key")
	})

	tc := config.TranscriptionConfig{
		Provider: config.ProviderEntry{Name: "whisper", BaseURL: "http://w"},
		Timeout:  5 * time.Second,
	}
	p, err := reg.CreateSTT(tc)
	if err != nil {
		t.Fatalf("CreateSTT: %v", err)
	}
	if res, _ := p.Transcribe(context.Background(), stt.Request{Audio: []byte{1}}); res.Text != "ok" {
		t.Errorf("provider returned %q", res.Text)
	}
	if gotEntry.BaseURL != "http://w" || gotTimeout != 5*time.Second {
		t.Errorf("factory got %+v / %v", gotEntry, gotTimeout)
	}

	if _, err := reg.CreateSTT(config.TranscriptionConfig{Provider: config.ProviderEntry{Name: "nope"}}); !errors.Is(err, config.ErrProviderNotRegistered) {
		t.Errorf("unknown provider err = %v, want ErrProviderNotRegistered", err)
	}
	if _, err := reg.CreateSTT(config.TranscriptionConfig{Provider: config.ProviderEntry{Name: "broken"}}); err == nil || !strings.Contains(err.Error(), "bad key") {
		t.Errorf("factory error = %v, want wrapped bad key", err)
	}
	if names := reg.STTNames(); !slices.Equal(names, []string{"broken", "whisper"}) {
		t.Errorf("STTNames = %v", names)
	}
}

func TestProviderEntry_Options(t *testing.T) {
	t.Parallel()

	e := config.ProviderEntry{Options: map[string]any{"utterances": true, "language": "de", "n": 3}}
	if !e.OptionBool("utterances", false) || e.OptionBool("missing", false) || e.OptionBool("n", false) {
		t.Error("OptionBool mismatch")
	}
	if e.OptionString("language", "en") != "de" || e.OptionString("n", "x") != "x" {
		t.Error("OptionString mismatch")
	}
}
