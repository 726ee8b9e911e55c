// Package assess wires the pipeline stages into one request/response service:
// transcription (with tiered degradation), word alignment and scoring, and
// feedback synthesis.
//
// A [Service] is stateless between requests apart from the circuit breakers
// owned by its transcriber and the optional history store. Each request runs
// its stages sequentially.
package assess

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/MrWong99/diction/internal/align"
	"github.com/MrWong99/diction/internal/feedback"
	"github.com/MrWong99/diction/internal/history"
	"github.com/MrWong99/diction/internal/observe"
	"github.com/MrWong99/diction/pkg/types"
)

// DefaultLanguage is used when a request carries no language tag.
const DefaultLanguage = "en"

var (
	// ErrInvalidLanguage is returned for tags not of the form "xx" or "xx-XX".
	ErrInvalidLanguage = errors.New("assess: invalid language tag")

	// ErrEmptyReference is returned when the reference text has no words
	// after normalization.
	ErrEmptyReference = align.ErrEmptyReference

	// ErrHistoryDisabled is returned by [Service.History] when no store is
	// configured.
	ErrHistoryDisabled = errors.New("assess: history is not enabled")
)

var languagePattern = regexp.MustCompile(`^[a-z]{2}(-[A-Z]{2})?$`)

// Transcriber produces the transcript for a request. *transcribe.Orchestrator
// satisfies it.
type Transcriber interface {
	Transcribe(ctx context.Context, req types.AssessmentRequest) (types.TranscriptionOutcome, error)
}

// Option configures a [Service].
type Option func(*Service)

// WithAligner selects the alignment function. Defaults to [align.Align].
func WithAligner(f align.Func) Option {
	return func(s *Service) { s.align = f }
}

// WithSynthesizer sets the feedback synthesizer. Defaults to one with a
// randomly seeded source.
func WithSynthesizer(syn *feedback.Synthesizer) Option {
	return func(s *Service) { s.synth = syn }
}

// WithHistory stores every completed assessment in store. backend labels the
// write metrics.
func WithHistory(store history.Store, backend string) Option {
	return func(s *Service) {
		s.history = store
		s.historyBackend = backend
	}
}

// WithDefaultLanguage overrides [DefaultLanguage].
func WithDefaultLanguage(tag string) Option {
	return func(s *Service) { s.defaultLanguage = tag }
}

// WithMetrics sets the metrics sink. Defaults to [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the clock used for history timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// Service runs assessments. It is safe for concurrent use.
type Service struct {
	transcriber     Transcriber
	align           align.Func
	synth           *feedback.Synthesizer
	history         history.Store
	historyBackend  string
	defaultLanguage string
	metrics         *observe.Metrics
	now             func() time.Time
}

// New creates a Service that obtains transcripts from t.
func New(t Transcriber, opts ...Option) *Service {
	s := &Service{
		transcriber:     t,
		align:           align.Align,
		defaultLanguage: DefaultLanguage,
		now:             time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	if s.synth == nil {
		s.synth = feedback.NewSynthesizer(nil)
	}
	if s.metrics == nil {
		s.metrics = observe.DefaultMetrics()
	}
	return s
}

// Handle dispatches on the presence of a reference text: with one it returns
// a [types.AssessmentResult], without one a [types.TranscriptionResult].
func (s *Service) Handle(ctx context.Context, req types.AssessmentRequest) (any, error) {
	if strings.TrimSpace(req.ReferenceText) == "" {
		return s.Transcribe(ctx, req)
	}
	return s.Assess(ctx, req)
}

// Transcribe runs the transcription stage only.
func (s *Service) Transcribe(ctx context.Context, req types.AssessmentRequest) (types.TranscriptionResult, error) {
	lang, err := s.language(req.Language)
	if err != nil {
		return types.TranscriptionResult{}, err
	}
	req.Language = lang

	out, err := s.transcriber.Transcribe(ctx, req)
	if err != nil {
		return types.TranscriptionResult{}, err
	}
	return types.TranscriptionResult{Text: out.Text, Tier: out.Tier, Provider: out.Provider}, nil
}

// Assess scores req against its reference text. The returned error is one of
// [ErrInvalidLanguage], [ErrEmptyReference] or a transcription failure in
// which even the simulated tier could not serve the request.
func (s *Service) Assess(ctx context.Context, req types.AssessmentRequest) (res types.AssessmentResult, err error) {
	ctx, span := observe.StartSpan(ctx, "assess")
	defer func() { observe.EndSpan(span, err) }()

	lang, err := s.language(req.Language)
	if err != nil {
		return types.AssessmentResult{}, err
	}
	req.Language = lang
	if len(align.Normalize(req.ReferenceText)) == 0 {
		return types.AssessmentResult{}, ErrEmptyReference
	}

	start := time.Now()
	out, err := s.transcriber.Transcribe(ctx, req)
	if err != nil {
		return types.AssessmentResult{}, err
	}

	records := s.align(req.ReferenceText, out.Text, s.synth.Suggester(lang))
	score, err := align.OverallScore(records)
	if err != nil {
		return types.AssessmentResult{}, fmt.Errorf("assess: %w", err)
	}
	report := s.synth.Synthesize(records, out.Text, req.ReferenceText, score, lang)

	res = types.AssessmentResult{
		OverallScore:           score,
		Feedback:               nonNil(report.General),
		WordAnalysis:           records,
		DetailedFeedback:       report.Detailed,
		ImprovementSuggestions: nonNil(report.Improvements),
		CommonErrors:           nonNil(report.CommonErrors),
		RecordedText:           out.Text,
		Tier:                   out.Tier,
	}

	band := feedback.BandFor(score).String()
	s.metrics.AssessmentDuration.Record(ctx, time.Since(start).Seconds())
	s.metrics.RecordAssessment(ctx, out.Tier.String(), band, score)
	observe.Logger(ctx).Debug("assessment complete",
		"score", score,
		"band", band,
		"tier", out.Tier.String(),
		"words", len(records),
	)

	s.record(ctx, req, res)
	return res, nil
}

// History returns up to limit stored assessments for learner, newest first.
func (s *Service) History(ctx context.Context, learner string, limit int) ([]history.Entry, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.Recent(ctx, learner, limit)
}

// HistoryEnabled reports whether a history store is configured.
func (s *Service) HistoryEnabled() bool { return s.history != nil }

// record saves res to the history store. Failures are logged only.
func (s *Service) record(ctx context.Context, req types.AssessmentRequest, res types.AssessmentResult) {
	if s.history == nil {
		return
	}
	err := s.history.Save(ctx, history.Entry{
		Timestamp:     s.now().UTC(),
		Learner:       req.Learner,
		Language:      req.Language,
		ReferenceText: req.ReferenceText,
		Tier:          res.Tier,
		Result:        res,
	})
	status := "ok"
	if err != nil {
		status = "error"
		observe.Logger(ctx).Warn("failed to store assessment history", "backend", s.historyBackend, "err", err)
	}
	s.metrics.RecordHistoryWrite(ctx, s.historyBackend, status)
}

func (s *Service) language(tag string) (string, error) {
	if tag == "" {
		return s.defaultLanguage, nil
	}
	if !languagePattern.MatchString(tag) {
		return "", fmt.Errorf("%w: %q", ErrInvalidLanguage, tag)
	}
	return tag, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
