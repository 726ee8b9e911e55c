// Package openai provides an STT provider backed by the OpenAI audio
// transcription API (whisper-1 and the gpt-4o transcribe models).
package openai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/MrWong99/diction/pkg/provider/stt"
)

const defaultModel = oai.AudioModelWhisper1

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Provider implements stt.Provider using the OpenAI API.
type Provider struct {
	client oai.Client
	model  string
}

// config holds optional configuration for the provider.
type config struct {
	baseURL    string
	model      string
	timeout    time.Duration
	httpClient *http.Client
}

// Option is a functional option for Provider.
type Option func(*config)

// WithBaseURL overrides the default OpenAI API base URL. Any server that
// implements POST /audio/transcriptions can be used.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithModel sets the transcription model. Defaults to "whisper-1".
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// WithHTTPClient replaces the HTTP client used by the SDK.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *config) {
		c.httpClient = hc
	}
}

// New constructs a new OpenAI STT Provider.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	// The fallback layer owns retries; one attempt per call.
	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	switch {
	case cfg.httpClient != nil:
		reqOpts = append(reqOpts, option.WithHTTPClient(cfg.httpClient))
	case cfg.timeout > 0:
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{Timeout: cfg.timeout}))
	}

	return &Provider{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Result, error) {
	if len(req.Audio) == 0 {
		return stt.Result{}, stt.ErrEmptyAudio
	}

	params := p.buildParams(req)
	tr, err := p.client.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		return stt.Result{}, fmt.Errorf("openai: transcribe: %w", err)
	}
	return stt.Result{Text: tr.Text, Language: languageHint(req.Language)}, nil
}

func (p *Provider) buildParams(req stt.Request) oai.AudioTranscriptionNewParams {
	model := req.Model
	if model == "" {
		model = p.model
	}
	name, ct := stt.FileName(req.Format)
	params := oai.AudioTranscriptionNewParams{
		File:           oai.File(bytes.NewReader(req.Audio), name, ct),
		Model:          oai.AudioModel(model),
		ResponseFormat: oai.AudioResponseFormatJSON,
	}
	if lang := languageHint(req.Language); lang != "" {
		params.Language = oai.String(lang)
	}
	return params
}

// languageHint reduces a BCP-47 tag to the ISO-639-1 code the API accepts.
func languageHint(tag string) string {
	primary, _, _ := strings.Cut(tag, "-")
	return strings.ToLower(primary)
}
