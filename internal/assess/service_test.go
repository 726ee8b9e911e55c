package assess_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/MrWong99/diction/internal/align"
	"github.com/MrWong99/diction/internal/assess"
	"github.com/MrWong99/diction/internal/feedback"
	"github.com/MrWong99/diction/internal/history"
	"github.com/MrWong99/diction/internal/observe"
	"github.com/MrWong99/diction/internal/resilience"
	"github.com/MrWong99/diction/internal/transcribe"
	sttmock "github.com/MrWong99/diction/pkg/provider/stt/mock"
	"github.com/MrWong99/diction/pkg/types"
)

// zeroRand always picks the first phrasing.
type zeroRand struct{}

func (zeroRand) IntN(int) int { return 0 }

// fakeTranscriber returns a fixed outcome and records requests.
type fakeTranscriber struct {
	mu   sync.Mutex
	out  types.TranscriptionOutcome
	err  error
	reqs []types.AssessmentRequest
}

func (f *fakeTranscriber) Transcribe(_ context.Context, req types.AssessmentRequest) (types.TranscriptionOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.out, f.err
}

func (f *fakeTranscriber) calls() []types.AssessmentRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]types.AssessmentRequest(nil), f.reqs...)
}

// failingStore rejects every write.
type failingStore struct{ history.Store }

func (failingStore) Save(context.Context, history.Entry) error { return errors.New("disk full") }

func newMetrics(t *testing.T) (*observe.Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	m, err := observe.NewMetrics(mp)
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}
	return m, reader
}

// counterBy sums an int64 counter's data points whose attribute key equals
// value.
func counterBy(t *testing.T, reader *sdkmetric.ManualReader, name, key, value string) int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	var total int64
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != name {
				continue
			}
			for _, dp := range m.Data.(metricdata.Sum[int64]).DataPoints {
				if v, ok := dp.Attributes.Value(attribute.Key(key)); ok && v.AsString() == value {
					total += dp.Value
				}
			}
		}
	}
	return total
}

func newService(t *testing.T, tr assess.Transcriber, opts ...assess.Option) *assess.Service {
	t.Helper()
	m, _ := newMetrics(t)
	base := []assess.Option{
		assess.WithSynthesizer(feedback.NewSynthesizer(zeroRand{})),
		assess.WithMetrics(m),
	}
	return assess.New(tr, append(base, opts...)...)
}

func TestAssess_PerfectRecording(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscriber{out: types.TranscriptionOutcome{Text: "the cat sat", Tier: types.TierRemote, Provider: "whisper"}}
	svc := newService(t, tr)

	res, err := svc.Assess(context.Background(), types.AssessmentRequest{ReferenceText: "The cat sat.", Language: "en-US"})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if res.OverallScore != 100 {
		t.Errorf("OverallScore = %d, want 100", res.OverallScore)
	}
	if len(res.WordAnalysis) != 3 {
		t.Fatalf("WordAnalysis has %d records, want 3", len(res.WordAnalysis))
	}
	for _, r := range res.WordAnalysis {
		if !r.IsCorrect || r.Suggestion != "" {
			t.Errorf("record %+v, want correct without suggestion", r)
		}
	}
	if res.RecordedText != "the cat sat" || res.Tier != types.TierRemote {
		t.Errorf("RecordedText/Tier = %q/%v", res.RecordedText, res.Tier)
	}
	if len(res.Feedback) == 0 || res.DetailedFeedback == "" {
		t.Errorf("missing general or detailed feedback: %+v", res)
	}
	if len(res.ImprovementSuggestions) != 1 {
		t.Errorf("ImprovementSuggestions = %v, want one encouragement", res.ImprovementSuggestions)
	}
	if res.CommonErrors == nil || len(res.CommonErrors) != 0 {
		t.Errorf("CommonErrors = %#v, want empty non-nil slice", res.CommonErrors)
	}
}

func TestAssess_MissingWord(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscriber{out: types.TranscriptionOutcome{Text: "the quick brown", Tier: types.TierSimulated, Provider: "simulated"}}
	svc := newService(t, tr)

	res, err := svc.Assess(context.Background(), types.AssessmentRequest{ReferenceText: "the quick brown fox"})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if res.OverallScore != 75 {
		t.Errorf("OverallScore = %d, want 75", res.OverallScore)
	}
	last := res.WordAnalysis[3]
	if last.ReferenceWord != "fox" || last.RecognizedWord != "" || last.IsCorrect || last.Similarity != 0 {
		t.Errorf("last record = %+v, want missing fox", last)
	}
	if last.Suggestion == "" {
		t.Error("incorrect word has no suggestion")
	}
	if len(res.CommonErrors) == 0 {
		t.Error("CommonErrors empty despite an incorrect word")
	}
	if got := tr.calls()[0].Language; got != assess.DefaultLanguage {
		t.Errorf("transcriber saw language %q, want default %q", got, assess.DefaultLanguage)
	}
}

func TestAssess_PreconditionErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		req  types.AssessmentRequest
		want error
	}{
		{"lowercase region", types.AssessmentRequest{ReferenceText: "hi", Language: "en-us"}, assess.ErrInvalidLanguage},
		{"three letters", types.AssessmentRequest{ReferenceText: "hi", Language: "eng"}, assess.ErrInvalidLanguage},
		{"uppercase primary", types.AssessmentRequest{ReferenceText: "hi", Language: "EN"}, assess.ErrInvalidLanguage},
		{"punctuation only", types.AssessmentRequest{ReferenceText: " ?! . ", Language: "en"}, assess.ErrEmptyReference},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tr := &fakeTranscriber{}
			svc := newService(t, tr)
			_, err := svc.Assess(context.Background(), tc.req)
			if !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
			if n := len(tr.calls()); n != 0 {
				t.Errorf("transcriber called %d times, want 0", n)
			}
		})
	}
}

func TestAssess_TranscriptionFailure(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscriber{err: resilience.ErrAllFailed}
	svc := newService(t, tr)

	if _, err := svc.Assess(context.Background(), types.AssessmentRequest{ReferenceText: "hello"}); !errors.Is(err, resilience.ErrAllFailed) {
		t.Fatalf("err = %v, want ErrAllFailed", err)
	}
}

func TestAssess_SequenceAligner(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscriber{out: types.TranscriptionOutcome{Text: "the brown fox", Tier: types.TierRemote}}
	svc := newService(t, tr, assess.WithAligner(align.AlignSequence))

	res, err := svc.Assess(context.Background(), types.AssessmentRequest{ReferenceText: "the quick brown fox"})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if res.OverallScore != 75 {
		t.Errorf("OverallScore = %d, want 75 with the skipped word isolated", res.OverallScore)
	}
}

func TestHandle_Dispatch(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscriber{out: types.TranscriptionOutcome{Text: "hola", Tier: types.TierRemote, Provider: "openai"}}
	svc := newService(t, tr)
	ctx := context.Background()

	got, err := svc.Handle(ctx, types.AssessmentRequest{Audio: []byte{1}, Language: "es"})
	if err != nil {
		t.Fatalf("Handle(transcription): %v", err)
	}
	tres, ok := got.(types.TranscriptionResult)
	if !ok {
		t.Fatalf("Handle without reference returned %T, want TranscriptionResult", got)
	}
	if tres.Text != "hola" || tres.Provider != "openai" || tres.Tier != types.TierRemote {
		t.Errorf("TranscriptionResult = %+v", tres)
	}

	got, err = svc.Handle(ctx, types.AssessmentRequest{Audio: []byte{1}, ReferenceText: "hola", Language: "es"})
	if err != nil {
		t.Fatalf("Handle(assessment): %v", err)
	}
	if ares, ok := got.(types.AssessmentResult); !ok || ares.OverallScore != 100 {
		t.Errorf("Handle with reference returned %#v, want AssessmentResult scoring 100", got)
	}
}

func TestAssess_HistoryRecorded(t *testing.T) {
	t.Parallel()

	store := history.NewFileStore(filepath.Join(t.TempDir(), "history.jsonl"))
	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tr := &fakeTranscriber{out: types.TranscriptionOutcome{Text: "bonjour", Tier: types.TierRemote}}
	m, reader := newMetrics(t)
	svc := assess.New(tr,
		assess.WithSynthesizer(feedback.NewSynthesizer(zeroRand{})),
		assess.WithMetrics(m),
		assess.WithHistory(store, "file"),
		assess.WithClock(func() time.Time { return at }),
	)
	ctx := context.Background()

	if !svc.HistoryEnabled() {
		t.Fatal("HistoryEnabled = false")
	}
	if _, err := svc.Assess(ctx, types.AssessmentRequest{ReferenceText: "bonjour", Language: "fr", Learner: "ana"}); err != nil {
		t.Fatalf("Assess: %v", err)
	}

	entries, err := svc.History(ctx, "ana", 10)
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("History returned %d entries, want 1", len(entries))
	}
	e := entries[0]
	if !e.Timestamp.Equal(at) || e.Language != "fr" || e.ReferenceText != "bonjour" || e.Result.OverallScore != 100 {
		t.Errorf("entry = %+v", e)
	}
	if n := counterBy(t, reader, "diction.history.writes", "status", "ok"); n != 1 {
		t.Errorf("history writes ok = %d, want 1", n)
	}
	if n := counterBy(t, reader, "diction.assessments", "band", "excellent"); n != 1 {
		t.Errorf("assessments{band=excellent} = %d, want 1", n)
	}
}

func TestAssess_HistoryFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	tr := &fakeTranscriber{out: types.TranscriptionOutcome{Text: "hello", Tier: types.TierRemote}}
	m, reader := newMetrics(t)
	svc := assess.New(tr,
		assess.WithMetrics(m),
		assess.WithHistory(failingStore{}, "postgres"),
	)

	res, err := svc.Assess(context.Background(), types.AssessmentRequest{ReferenceText: "hello"})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if res.OverallScore != 100 {
		t.Errorf("OverallScore = %d, want 100", res.OverallScore)
	}
	if n := counterBy(t, reader, "diction.history.writes", "status", "error"); n != 1 {
		t.Errorf("history writes error = %d, want 1", n)
	}
}

func TestHistory_Disabled(t *testing.T) {
	t.Parallel()

	svc := newService(t, &fakeTranscriber{})
	if _, err := svc.History(context.Background(), "ana", 5); !errors.Is(err, assess.ErrHistoryDisabled) {
		t.Errorf("err = %v, want ErrHistoryDisabled", err)
	}
}

// With the remote tier down and a perfect simulator, the pipeline still
// produces a full result flagged as simulated.
func TestAssess_EndToEndSimulatedFallback(t *testing.T) {
	t.Parallel()

	sim, err := transcribe.NewSimulated(
		transcribe.WithAccuracyRange(1, 1),
		transcribe.WithRand(rand.New(rand.NewPCG(1, 2))),
	)
	if err != nil {
		t.Fatalf("NewSimulated: %v", err)
	}
	m, _ := newMetrics(t)
	orch := transcribe.New(sim,
		transcribe.WithRemote(transcribe.NewRemote("down", &sttmock.Provider{Err: errors.New("connection refused")}, transcribe.WithRemoteMetrics(m))),
		transcribe.WithMetrics(m),
	)
	svc := assess.New(orch, assess.WithMetrics(m), assess.WithSynthesizer(feedback.NewSynthesizer(zeroRand{})))

	res, err := svc.Assess(context.Background(), types.AssessmentRequest{
		Audio:         []byte("RIFF"),
		ReferenceText: "practice makes perfect",
		Language:      "en",
	})
	if err != nil {
		t.Fatalf("Assess: %v", err)
	}
	if res.Tier != types.TierSimulated || res.RecordedText != "practice makes perfect" || res.OverallScore != 100 {
		t.Errorf("result = tier %v, text %q, score %d", res.Tier, res.RecordedText, res.OverallScore)
	}
}
