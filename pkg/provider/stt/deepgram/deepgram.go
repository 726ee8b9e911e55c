// Package deepgram provides a Deepgram-backed STT provider using the Deepgram
// pre-recorded audio REST API. It implements the stt.Provider interface.
//
// Each recording is POSTed as the raw request body to /v1/listen. Deepgram
// answers with a nested results object; the best alternative of the first
// channel becomes [stt.Result.Text] and, when utterance splitting is enabled,
// the utterances become [stt.Result.Segments].
package deepgram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/MrWong99/diction/pkg/provider/stt"
)

const (
	defaultEndpoint = "https://api.deepgram.com/v1/listen"
	defaultModel    = "nova-3"
	defaultLanguage = "en"
	defaultTimeout  = 30 * time.Second
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// Option is a functional option for configuring the Deepgram Provider.
type Option func(*Provider)

// WithModel sets the Deepgram model to use (e.g., "nova-3", "base").
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the default BCP-47 language code for recognition.
func WithLanguage(language string) Option {
	return func(p *Provider) {
		p.language = language
	}
}

// WithBaseURL overrides the listen endpoint. Used for self-hosted Deepgram and
// in tests.
func WithBaseURL(endpoint string) Option {
	return func(p *Provider) {
		p.endpoint = endpoint
	}
}

// WithUtterances asks Deepgram to split the transcript into utterances, which
// are returned as segments.
func WithUtterances(enabled bool) Option {
	return func(p *Provider) {
		p.utterances = enabled
	}
}

// WithTimeout sets the HTTP client timeout.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// Provider implements stt.Provider backed by the Deepgram REST API.
type Provider struct {
	apiKey     string
	endpoint   string
	model      string
	language   string
	utterances bool
	httpClient *http.Client
}

// New creates a new Deepgram Provider. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Provider, error) {
	if apiKey == "" {
		return nil, errors.New("deepgram: apiKey must not be empty")
	}
	p := &Provider{
		apiKey:     apiKey,
		endpoint:   defaultEndpoint,
		model:      defaultModel,
		language:   defaultLanguage,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe implements stt.Provider.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Result, error) {
	if len(req.Audio) == 0 {
		return stt.Result{}, stt.ErrEmptyAudio
	}

	listenURL, err := p.buildURL(req)
	if err != nil {
		return stt.Result{}, fmt.Errorf("deepgram: build URL: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, listenURL, bytes.NewReader(req.Audio))
	if err != nil {
		return stt.Result{}, fmt.Errorf("deepgram: create request: %w", err)
	}
	_, ct := stt.FileName(req.Format)
	httpReq.Header.Set("Content-Type", ct)
	httpReq.Header.Set("Authorization", "Token "+p.apiKey)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return stt.Result{}, fmt.Errorf("deepgram: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return stt.Result{}, fmt.Errorf("deepgram: server returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var lr listenResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return stt.Result{}, fmt.Errorf("deepgram: parse JSON response: %w", err)
	}
	return lr.toResult()
}

// buildURL constructs the listen endpoint URL for req.
func (p *Provider) buildURL(req stt.Request) (string, error) {
	u, err := url.Parse(p.endpoint)
	if err != nil {
		return "", err
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	model := req.Model
	if model == "" {
		model = p.model
	}

	q := u.Query()
	q.Set("model", model)
	q.Set("language", lang)
	q.Set("punctuate", "true")
	q.Set("utterances", strconv.FormatBool(p.utterances))
	if strings.EqualFold(req.Format, "pcm16") {
		q.Set("encoding", "linear16")
		q.Set("sample_rate", "16000")
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// listenResponse mirrors the subset of the Deepgram response we consume.
type listenResponse struct {
	Results *struct {
		Channels []struct {
			DetectedLanguage string `json:"detected_language"`
			Alternatives     []struct {
				Transcript string  `json:"transcript"`
				Confidence float64 `json:"confidence"`
			} `json:"alternatives"`
		} `json:"channels"`
		Utterances []struct {
			Start      float64 `json:"start"`
			End        float64 `json:"end"`
			Transcript string  `json:"transcript"`
		} `json:"utterances"`
	} `json:"results"`
}

// toResult flattens a listenResponse. A response without results is
// malformed.
func (lr listenResponse) toResult() (stt.Result, error) {
	if lr.Results == nil {
		return stt.Result{}, errors.New("deepgram: response has no results")
	}
	var res stt.Result
	if len(lr.Results.Channels) > 0 {
		ch := lr.Results.Channels[0]
		res.Language = ch.DetectedLanguage
		if len(ch.Alternatives) > 0 {
			res.Text = ch.Alternatives[0].Transcript
		}
	}
	for _, u := range lr.Results.Utterances {
		res.Segments = append(res.Segments, stt.Segment{Text: u.Transcript, Start: u.Start, End: u.End})
	}
	return res, nil
}
