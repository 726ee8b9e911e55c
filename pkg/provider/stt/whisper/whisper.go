// Package whisper provides a whisper.cpp-backed remote STT provider.
//
// It talks to a running whisper-server binary (or any server that speaks the
// same protocol) which exposes a REST API at POST /inference. Each recording
// is uploaded as multipart/form-data and the JSON reply is decoded in either
// of its two shapes: a flat {"text": ...} object or a verbose reply with a
// "segments" list.
//
// Raw 16-bit little-endian PCM (format "pcm16") is wrapped in a WAV container
// before upload. Such recordings are also checked for speech energy first: a
// silent recording is rejected with [ErrSilence] without contacting the
// server, since whisper tends to hallucinate text for silence.
//
// Usage:
//
//	p, err := whisper.New("http://localhost:8080",
//	    whisper.WithLanguage("en"),
//	    whisper.WithTimeout(20*time.Second),
//	)
//	res, err := p.Transcribe(ctx, stt.Request{Audio: wav, Format: "wav"})
package whisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"github.com/MrWong99/diction/pkg/provider/stt"
)

const (
	// bitsPerSample is fixed at 16 for the 16-bit signed little-endian PCM
	// audio that whisper.cpp expects.
	bitsPerSample = 16

	// defaultRMSThreshold is the root-mean-square energy level (in 16-bit PCM
	// units) below which a PCM recording is considered silent. The maximum
	// possible value for 16-bit audio is 32 767; 300 corresponds to
	// near-silence.
	defaultRMSThreshold = 300.0

	defaultLanguage   = "en"
	defaultSampleRate = 16000
	defaultTimeout    = 30 * time.Second

	// maxErrorBody caps how much of a non-200 body is quoted in errors.
	maxErrorBody = 512
)

// Compile-time assertion that Provider implements stt.Provider.
var _ stt.Provider = (*Provider)(nil)

// ErrSilence is returned for PCM recordings that contain no speech energy.
var ErrSilence = errors.New("whisper: recording is silent")

// Option is a functional option for configuring a Provider.
type Option func(*Provider)

// WithModel sets the model identifier forwarded to the whisper.cpp server
// (e.g., "base.en", "small"). When empty the server uses whichever model it
// was started with; this is the default.
func WithModel(model string) Option {
	return func(p *Provider) {
		p.model = model
	}
}

// WithLanguage sets the default language code sent to the server when a
// request carries none. Defaults to "en".
func WithLanguage(lang string) Option {
	return func(p *Provider) {
		p.language = lang
	}
}

// WithSampleRate sets the sample rate in Hz assumed for "pcm16" recordings.
// Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(p *Provider) {
		p.sampleRate = rate
	}
}

// WithTimeout sets the HTTP client timeout for a single inference call.
// Defaults to 30 s.
func WithTimeout(d time.Duration) Option {
	return func(p *Provider) {
		p.httpClient.Timeout = d
	}
}

// WithHTTPClient replaces the HTTP client. Useful for tests and custom
// transports.
func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		p.httpClient = c
	}
}

// Provider implements stt.Provider backed by a whisper.cpp HTTP server.
type Provider struct {
	serverURL  string
	model      string
	language   string
	sampleRate int
	httpClient *http.Client
}

// New creates a Provider that connects to the whisper.cpp HTTP server at
// serverURL (e.g., "http://localhost:8080"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Provider, error) {
	if serverURL == "" {
		return nil, errors.New("whisper: serverURL must not be empty")
	}
	p := &Provider{
		serverURL:  strings.TrimRight(serverURL, "/"),
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(p)
	}
	return p, nil
}

// Transcribe uploads req.Audio to the /inference endpoint and returns the
// decoded result.
func (p *Provider) Transcribe(ctx context.Context, req stt.Request) (stt.Result, error) {
	if len(req.Audio) == 0 {
		return stt.Result{}, stt.ErrEmptyAudio
	}

	audio := req.Audio
	if strings.EqualFold(req.Format, "pcm16") {
		if computeRMS(audio) < defaultRMSThreshold {
			return stt.Result{}, ErrSilence
		}
		audio = encodeWAV(audio, p.sampleRate, 1)
	}

	lang := req.Language
	if lang == "" {
		lang = p.language
	}
	model := req.Model
	if model == "" {
		model = p.model
	}

	body, contentType, err := buildForm(audio, req.Format, lang, model)
	if err != nil {
		return stt.Result{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.serverURL+"/inference", body)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", contentType)

	resp, err := p.httpClient.Do(httpReq)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return stt.Result{}, fmt.Errorf("whisper: server returned HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return stt.Result{}, fmt.Errorf("whisper: read response body: %w", err)
	}

	var result stt.Result
	if err := json.Unmarshal(data, &result); err != nil {
		return stt.Result{}, fmt.Errorf("whisper: parse JSON response: %w", err)
	}
	return result, nil
}

// buildForm encodes the multipart body for an inference call.
func buildForm(audio []byte, format, lang, model string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	name, ct := stt.FileName(format)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, name))
	h.Set("Content-Type", ct)
	fw, err := mw.CreatePart(h)
	if err != nil {
		return nil, "", fmt.Errorf("whisper: create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, "", fmt.Errorf("whisper: write audio data: %w", err)
	}

	fields := [][2]string{
		{"response_format", "json"},
		{"language", lang},
		{"model", model},
	}
	for _, f := range fields {
		if f[1] == "" {
			continue
		}
		if err := mw.WriteField(f[0], f[1]); err != nil {
			return nil, "", fmt.Errorf("whisper: write %s field: %w", f[0], err)
		}
	}

	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("whisper: close multipart writer: %w", err)
	}
	return &body, mw.FormDataContentType(), nil
}

// ---- helpers ----------------------------------------------------------------

// encodeWAV wraps raw 16-bit signed little-endian PCM data in a standard
// RIFF/WAV container.
func encodeWAV(pcm []byte, sampleRate, channels int) []byte {
	bps := bitsPerSample
	byteRate := sampleRate * channels * bps / 8
	blockAlign := channels * bps / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)

	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")

	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1) // PCM
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], uint16(bps))

	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)

	return buf
}

// computeRMS returns the root-mean-square energy of a 16-bit signed
// little-endian PCM buffer. Returns 0 for buffers shorter than one sample.
func computeRMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		v := float64(int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2])))
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}
