// Package api exposes the assessment pipeline over HTTP.
//
// Routes:
//
//	POST /v1/assess      multipart or JSON submission; assesses when a
//	                     reference text is present, transcribes otherwise
//	POST /v1/transcribe  transcription only
//	GET  /v1/history     recent assessments of a learner
//
// Multipart submissions carry an optional "audio" file plus the form fields
// reference_text, language, learner and audio_format. JSON submissions use
// {"audio": <base64>, "audioFormat", "referenceText", "language", "learner"}.
//
// Invalid input is answered with 400, oversized audio with 413. 502 is
// reserved for the case where no transcription tier, not even simulation,
// could serve the request.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/MrWong99/diction/internal/assess"
	"github.com/MrWong99/diction/internal/history"
	"github.com/MrWong99/diction/internal/observe"
	"github.com/MrWong99/diction/internal/resilience"
	"github.com/MrWong99/diction/pkg/types"
)

const (
	// DefaultMaxAudioBytes is the default upload limit for one recording.
	DefaultMaxAudioBytes = 25 << 20

	// formOverhead is the body allowance on top of the audio limit for form
	// fields, multipart boundaries and base64 expansion slack.
	formOverhead = 1 << 20

	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

var (
	errTooLarge    = errors.New("audio exceeds the upload limit")
	errNothingToDo = errors.New("either audio or reference_text is required")
)

// Assessor is the pipeline served by the handlers. *assess.Service
// satisfies it.
type Assessor interface {
	Handle(ctx context.Context, req types.AssessmentRequest) (any, error)
	Transcribe(ctx context.Context, req types.AssessmentRequest) (types.TranscriptionResult, error)
	History(ctx context.Context, learner string, limit int) ([]history.Entry, error)
}

// Option configures a [Handler].
type Option func(*Handler)

// WithMaxAudioBytes sets the upload limit for one recording.
func WithMaxAudioBytes(n int64) Option {
	return func(h *Handler) { h.maxAudio = n }
}

// Handler serves the /v1 routes.
type Handler struct {
	svc      Assessor
	maxAudio int64
}

// New creates a Handler backed by svc.
func New(svc Assessor, opts ...Option) *Handler {
	h := &Handler{svc: svc, maxAudio: DefaultMaxAudioBytes}
	for _, o := range opts {
		o(h)
	}
	return h
}

// Register adds the /v1 routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /v1/assess", h.Assess)
	mux.HandleFunc("POST /v1/transcribe", h.Transcribe)
	mux.HandleFunc("GET /v1/history", h.History)
}

// Assess handles POST /v1/assess.
func (h *Handler) Assess(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Audio) == 0 && strings.TrimSpace(req.ReferenceText) == "" {
		writeError(w, r, errNothingToDo)
		return
	}
	res, err := h.svc.Handle(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Transcribe handles POST /v1/transcribe.
func (h *Handler) Transcribe(w http.ResponseWriter, r *http.Request) {
	req, err := h.decode(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(req.Audio) == 0 && strings.TrimSpace(req.ReferenceText) == "" {
		writeError(w, r, errNothingToDo)
		return
	}
	res, err := h.svc.Transcribe(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// History handles GET /v1/history?learner=…&limit=….
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultHistoryLimit
	if s := q.Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			writeError(w, r, badRequest(fmt.Errorf("invalid limit %q", s)))
			return
		}
		limit = min(n, maxHistoryLimit)
	}

	entries, err := h.svc.History(r.Context(), q.Get("learner"), limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Entries []history.Entry `json:"entries"`
	}{entries})
}

// jsonRequest is the JSON form of a submission. Audio is base64 encoded.
type jsonRequest struct {
	Audio         []byte `json:"audio"`
	AudioFormat   string `json:"audioFormat"`
	ReferenceText string `json:"referenceText"`
	Language      string `json:"language"`
	Learner       string `json:"learner"`
}

// decode reads a submission in either of its encodings.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (types.AssessmentRequest, error) {
	// base64 grows the payload by a third.
	r.Body = http.MaxBytesReader(w, r.Body, h.maxAudio*4/3+formOverhead)

	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return types.AssessmentRequest{}, badRequest(fmt.Errorf("content type: %w", err))
	}

	var req types.AssessmentRequest
	switch mediaType {
	case "multipart/form-data":
		req, err = h.decodeMultipart(r)
	case "application/json":
		req, err = h.decodeJSON(r)
	default:
		return types.AssessmentRequest{}, badRequest(fmt.Errorf("unsupported content type %q", mediaType))
	}
	if err != nil {
		return types.AssessmentRequest{}, err
	}
	if int64(len(req.Audio)) > h.maxAudio {
		return types.AssessmentRequest{}, errTooLarge
	}
	return req, nil
}

func (h *Handler) decodeJSON(r *http.Request) (types.AssessmentRequest, error) {
	var body jsonRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return types.AssessmentRequest{}, bodyError(err)
	}
	return types.AssessmentRequest{
		Audio:         body.Audio,
		AudioFormat:   body.AudioFormat,
		ReferenceText: body.ReferenceText,
		Language:      body.Language,
		Learner:       body.Learner,
	}, nil
}

func (h *Handler) decodeMultipart(r *http.Request) (types.AssessmentRequest, error) {
	if err := r.ParseMultipartForm(h.maxAudio + formOverhead); err != nil {
		return types.AssessmentRequest{}, bodyError(err)
	}
	req := types.AssessmentRequest{
		ReferenceText: r.FormValue("reference_text"),
		Language:      r.FormValue("language"),
		Learner:       r.FormValue("learner"),
		AudioFormat:   r.FormValue("audio_format"),
	}

	f, fh, err := r.FormFile("audio")
	if errors.Is(err, http.ErrMissingFile) {
		return req, nil
	}
	if err != nil {
		return types.AssessmentRequest{}, bodyError(err)
	}
	defer f.Close()

	if fh.Size > h.maxAudio {
		return types.AssessmentRequest{}, errTooLarge
	}
	req.Audio, err = io.ReadAll(f)
	if err != nil {
		return types.AssessmentRequest{}, bodyError(err)
	}
	if req.AudioFormat == "" {
		req.AudioFormat = strings.TrimPrefix(strings.ToLower(filepath.Ext(fh.Filename)), ".")
	}
	return req, nil
}

// requestError marks client errors that map to 400.
type requestError struct{ err error }

func (e *requestError) Error() string { return e.err.Error() }
func (e *requestError) Unwrap() error { return e.err }

func badRequest(err error) error { return &requestError{err: err} }

// bodyError classifies a body read or parse failure.
func bodyError(err error) error {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) || errors.Is(err, multipart.ErrMessageTooLarge) {
		return errTooLarge
	}
	return badRequest(err)
}

type errorBody struct {
	Error string `json:"error"`
}

// statusFor maps pipeline and decoding errors to HTTP status codes.
func statusFor(err error) int {
	var reqErr *requestError
	switch {
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.As(err, &reqErr),
		errors.Is(err, errNothingToDo),
		errors.Is(err, assess.ErrInvalidLanguage),
		errors.Is(err, assess.ErrEmptyReference),
		errors.Is(err, history.ErrInvalidLimit):
		return http.StatusBadRequest
	case errors.Is(err, assess.ErrHistoryDisabled):
		return http.StatusNotFound
	case errors.Is(err, resilience.ErrAllFailed):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		observe.Logger(r.Context()).Error("request failed", "path", r.URL.Path, "status", status, "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

// writeJSON encodes v with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encoding failed"}`, http.StatusInternalServerError)
	}
}
