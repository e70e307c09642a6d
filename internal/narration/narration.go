package narration

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrEmptyText is a validation error raised before any vendor call
	ErrEmptyText = errors.New("narration text is empty")
)

// TooLongError is returned by Validate when text exceeds a backend's limit
type TooLongError struct {
	Provider string
	Length   int
	Limit    int
}

func (e *TooLongError) Error() string {
	return fmt.Sprintf("text length %d exceeds %s limit of %d characters", e.Length, e.Provider, e.Limit)
}

// Request describes one synthesis invocation
type Request struct {
	Text       string
	Category   string
	FormatHint string
	JobID      string

	// Optional overrides; when empty the backend picks per category
	VoiceID       string
	VoiceSettings map[string]interface{}
}

// Result is the immutable output of one backend invocation
type Result struct {
	AudioURL       string
	DurationSec    float64
	CharacterCount int
	Cost           float64
	Provider       string
	VoiceID        string
	VoiceSettings  map[string]interface{}
}

// Provider is a vendor-specific text-to-speech backend. Backends perform no
// internal retries; the Strategy owns the whole retry budget.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, req Request) (*Result, error)
	RecommendedVoice(category string) string
	VoiceSettings(category string) map[string]interface{}
	EstimateCost(text string) float64
	Validate(text string) error
	HealthCheck(ctx context.Context) error
}

// All backends derive duration from input length with the same constant so
// cross-provider cost and duration comparisons stay consistent. Actual audio
// is never inspected.
const charsPerMinute = 900

// EstimateDuration converts text length into an estimated narration length
// in seconds
func EstimateDuration(text string) float64 {
	return float64(len(text)) / charsPerMinute * 60
}
