package script

import (
	"context"

	"github.com/vireolabs/vireo/internal/models"
)

// Request describes one script-generation invocation
type Request struct {
	Topic      string
	Category   string
	FormatHint string // short or long
	Language   string
	JobID      string
}

// Result is the structured output of a generation call
type Result struct {
	Title         string            `json:"title"`
	Script        string            `json:"script"`
	NarrationText string            `json:"narration_text"`
	VisualPrompts []string          `json:"visual_prompts"`
	Claims        []models.Claim    `json:"claims"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Generator produces a narrated video script for a topic. Implementations may
// fail on malformed upstream responses or quota/auth errors; the caller treats
// any error as terminal for the job's script stage.
type Generator interface {
	Generate(ctx context.Context, req Request) (*Result, error)
}
