package narration

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"
)

// fakeProvider counts invocations and fails until failures is used up
type fakeProvider struct {
	name     string
	failures int
	err      error
	calls    int
	maxLen   int
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Synthesize(ctx context.Context, req Request) (*Result, error) {
	f.calls++
	if f.failures > 0 {
		f.failures--
		return nil, f.err
	}
	return &Result{
		AudioURL:       "/tmp/" + f.name + ".mp3",
		DurationSec:    EstimateDuration(req.Text),
		CharacterCount: len(req.Text),
		Cost:           f.EstimateCost(req.Text),
		Provider:       f.name,
		VoiceID:        f.RecommendedVoice(req.Category),
	}, nil
}

func (f *fakeProvider) RecommendedVoice(string) string { return f.name + "-voice" }

func (f *fakeProvider) VoiceSettings(string) map[string]interface{} { return nil }

func (f *fakeProvider) EstimateCost(text string) float64 {
	if f.name == "paid" {
		return float64(len(text)) * 0.0001
	}
	return 0
}

func (f *fakeProvider) Validate(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if f.maxLen > 0 && len(text) > f.maxLen {
		return &TooLongError{Provider: f.name, Length: len(text), Limit: f.maxLen}
	}
	return nil
}

func (f *fakeProvider) HealthCheck(context.Context) error { return nil }

func newTestStrategy(primary, secondary Provider) *Strategy {
	s := NewStrategy(primary, secondary, zap.NewNop())
	s.baseBackoff = time.Millisecond
	return s
}

func TestGenerateSucceedsFirstTry(t *testing.T) {
	primary := &fakeProvider{name: "free"}
	secondary := &fakeProvider{name: "paid"}
	s := newTestStrategy(primary, secondary)

	result, err := s.Generate(context.Background(), Request{Text: "hello world", JobID: "j1"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Provider != "free" {
		t.Errorf("provider = %q, want free", result.Provider)
	}
	if primary.calls != 1 {
		t.Errorf("primary calls = %d, want 1", primary.calls)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary calls = %d, want 0", secondary.calls)
	}
}

func TestGenerateRetriesWithinBudget(t *testing.T) {
	// Fails exactly twice, succeeds on the third and final attempt
	primary := &fakeProvider{name: "free", failures: 2, err: errors.New("vendor 503")}
	secondary := &fakeProvider{name: "paid"}
	s := newTestStrategy(primary, secondary)

	result, err := s.Generate(context.Background(), Request{Text: "hello", JobID: "j2"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Provider != "free" {
		t.Errorf("provider = %q, want free", result.Provider)
	}
	if primary.calls != 3 {
		t.Errorf("primary calls = %d, want 3", primary.calls)
	}
	if secondary.calls != 0 {
		t.Errorf("secondary must not be invoked when the primary recovers, calls = %d", secondary.calls)
	}
}

func TestGenerateFallsBackAfterExhaustion(t *testing.T) {
	primary := &fakeProvider{name: "free", failures: 99, err: errors.New("vendor down")}
	secondary := &fakeProvider{name: "paid"}
	s := newTestStrategy(primary, secondary)

	result, err := s.Generate(context.Background(), Request{Text: "hello", JobID: "j3"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if result.Provider != "paid" {
		t.Errorf("provider = %q, want paid", result.Provider)
	}
	if primary.calls != 3 {
		t.Errorf("primary calls = %d, want 3", primary.calls)
	}
	if secondary.calls != 1 {
		t.Errorf("secondary calls = %d, want exactly 1", secondary.calls)
	}
}

func TestGenerateSurfacesPrimaryError(t *testing.T) {
	primaryErr := errors.New("primary quota exceeded")
	primary := &fakeProvider{name: "free", failures: 99, err: primaryErr}
	secondary := &fakeProvider{name: "paid", failures: 99, err: errors.New("secondary auth failed")}
	s := newTestStrategy(primary, secondary)

	_, err := s.Generate(context.Background(), Request{Text: "hello", JobID: "j4"})
	if err == nil {
		t.Fatal("expected error when both backends fail")
	}
	if !errors.Is(err, primaryErr) {
		t.Errorf("error should wrap the primary failure, got: %v", err)
	}
	if strings.Contains(err.Error(), "secondary auth failed") {
		t.Errorf("secondary failure must not be the surfaced error: %v", err)
	}
	if secondary.calls != 1 {
		t.Errorf("secondary calls = %d, want exactly 1", secondary.calls)
	}
}

func TestGenerateValidatesBeforeAnyCall(t *testing.T) {
	primary := &fakeProvider{name: "free", maxLen: 10}
	secondary := &fakeProvider{name: "paid"}
	s := newTestStrategy(primary, secondary)

	if _, err := s.Generate(context.Background(), Request{Text: "", JobID: "j5"}); !errors.Is(err, ErrEmptyText) {
		t.Errorf("empty text: got %v, want ErrEmptyText", err)
	}

	_, err := s.Generate(context.Background(), Request{Text: strings.Repeat("a", 11), JobID: "j6"})
	var tooLong *TooLongError
	if !errors.As(err, &tooLong) {
		t.Errorf("over-length text: got %v, want TooLongError", err)
	}
	if primary.calls != 0 || secondary.calls != 0 {
		t.Errorf("validation failures must not reach a backend: primary=%d secondary=%d",
			primary.calls, secondary.calls)
	}
}

func TestGenerateStopsOnCancelledContext(t *testing.T) {
	primary := &fakeProvider{name: "free", failures: 99, err: errors.New("down")}
	secondary := &fakeProvider{name: "paid"}
	s := newTestStrategy(primary, secondary)
	s.baseBackoff = time.Minute

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	_, err := s.Generate(ctx, Request{Text: "hello", JobID: "j7"})
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if time.Since(start) > 5*time.Second {
		t.Error("cancellation should interrupt the backoff wait")
	}
}

func TestEstimateDurationSharedRule(t *testing.T) {
	text := strings.Repeat("a", 900)
	if got := EstimateDuration(text); got != 60 {
		t.Errorf("EstimateDuration(900 chars) = %v, want 60", got)
	}
}

func TestEstimateCostComesFromPrimary(t *testing.T) {
	free := &fakeProvider{name: "free"}
	paid := &fakeProvider{name: "paid"}

	if got := newTestStrategy(free, paid).EstimateCost("hello"); got != 0 {
		t.Errorf("free primary cost = %v, want 0", got)
	}
	if got := newTestStrategy(paid, free).EstimateCost("hello"); got == 0 {
		t.Error("paid primary cost should be non-zero")
	}
}
