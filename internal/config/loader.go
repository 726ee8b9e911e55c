package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"slices"

	"gopkg.in/yaml.v3"
)

// Defaults applied by [ApplyDefaults].
const (
	DefaultListenAddr      = ":8080"
	DefaultMaxAudioBytes   = 25 << 20
	DefaultLanguage        = "en"
	DefaultHistoryFilePath = "diction-history.jsonl"
	DefaultMinAccuracy     = 0.70
	DefaultMaxAccuracy     = 0.95
)

// ValidProviderNames lists the built-in remote STT providers. [Validate]
// warns about names outside this list.
var ValidProviderNames = []string{"whisper", "openai", "deepgram"}

var languagePattern = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

// Load reads the YAML configuration file at path and returns a validated
// [Config] with defaults applied.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	cfg, err := LoadFromReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, applies defaults and
// validates the result. An empty document yields the default config.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields with their defaults.
func ApplyDefaults(cfg *Config) {
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.LogLevel == "" {
		cfg.Server.LogLevel = LogInfo
	}
	if cfg.Server.MaxAudioBytes == 0 {
		cfg.Server.MaxAudioBytes = DefaultMaxAudioBytes
	}
	if cfg.Fallback.Mode == "" {
		cfg.Fallback.Mode = SimulationAccuracy
	}
	if cfg.Fallback.MinAccuracy == 0 && cfg.Fallback.MaxAccuracy == 0 {
		cfg.Fallback.MinAccuracy = DefaultMinAccuracy
		cfg.Fallback.MaxAccuracy = DefaultMaxAccuracy
	}
	if cfg.Assessment.DefaultLanguage == "" {
		cfg.Assessment.DefaultLanguage = DefaultLanguage
	}
	if cfg.Assessment.Alignment == "" {
		cfg.Assessment.Alignment = AlignPositional
	}
	if cfg.History.Backend == "" {
		cfg.History.Backend = HistoryNone
	}
	if cfg.History.Backend == HistoryFile && cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryFilePath
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = "diction"
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	// Server
	if cfg.Server.LogLevel != "" && !cfg.Server.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("server.log_level %q is invalid; valid values: debug, info, warn, error", cfg.Server.LogLevel))
	}
	if cfg.Server.MaxAudioBytes < 0 {
		errs = append(errs, fmt.Errorf("server.max_audio_bytes %d must not be negative", cfg.Server.MaxAudioBytes))
	}
	if tls := cfg.Server.TLS; tls != nil && (tls.CertFile == "" || tls.KeyFile == "") {
		errs = append(errs, errors.New("server.tls requires both cert_file and key_file"))
	}

	// Transcription
	p := cfg.Transcription.Provider
	validateProviderName(p.Name)
	if p.Name == "whisper" && p.BaseURL == "" {
		errs = append(errs, errors.New("transcription.provider.base_url is required for whisper"))
	}
	if (p.Name == "openai" || p.Name == "deepgram") && p.APIKey == "" {
		errs = append(errs, fmt.Errorf("transcription.provider.api_key is required for %s", p.Name))
	}
	if cfg.Transcription.Timeout < 0 {
		errs = append(errs, fmt.Errorf("transcription.timeout %s must not be negative", cfg.Transcription.Timeout))
	}
	if p.Name == "" {
		slog.Warn("no remote transcription provider configured; every transcript will be simulated")
	}

	// Fallback
	fb := cfg.Fallback
	if fb.Mode != "" && !fb.Mode.IsValid() {
		errs = append(errs, fmt.Errorf("fallback.mode %q is invalid; valid values: accuracy, enhanced", fb.Mode))
	}
	if fb.MinAccuracy < 0 || fb.MaxAccuracy > 1 || fb.MinAccuracy > fb.MaxAccuracy {
		errs = append(errs, fmt.Errorf("fallback accuracy range [%.2f, %.2f] is invalid; need 0 <= min_accuracy <= max_accuracy <= 1", fb.MinAccuracy, fb.MaxAccuracy))
	}
	cb := fb.CircuitBreaker
	if cb.MaxFailures < 0 || cb.HalfOpenMax < 0 || cb.ResetTimeout < 0 {
		errs = append(errs, errors.New("fallback.circuit_breaker values must not be negative"))
	}

	// Assessment
	if lang := cfg.Assessment.DefaultLanguage; lang != "" && !languagePattern.MatchString(lang) {
		errs = append(errs, fmt.Errorf("assessment.default_language %q is invalid; expected xx or xx-XX", lang))
	}
	if m := cfg.Assessment.Alignment; m != "" && !m.IsValid() {
		errs = append(errs, fmt.Errorf("assessment.alignment %q is invalid; valid values: positional, sequence", m))
	}

	// History
	switch b := cfg.History.Backend; {
	case b != "" && !b.IsValid():
		errs = append(errs, fmt.Errorf("history.backend %q is invalid; valid values: none, file, postgres", b))
	case b == HistoryFile && cfg.History.Path == "":
		errs = append(errs, errors.New("history.path is required for the file backend"))
	case b == HistoryPostgres && cfg.History.PostgresDSN == "":
		errs = append(errs, errors.New("history.postgres_dsn is required for the postgres backend"))
	}

	return errors.Join(errs...)
}

// validateProviderName logs a warning if name is non-empty and not one of
// [ValidProviderNames].
func validateProviderName(name string) {
	if name == "" || slices.Contains(ValidProviderNames, name) {
		return
	}
	slog.Warn("unknown transcription provider name; may be a typo or third-party provider",
		"name", name,
		"known", ValidProviderNames,
	)
}
