package video

import (
	"context"
)

// RenderRequest carries everything the renderer needs to assemble a video
type RenderRequest struct {
	JobID         string
	Category      string
	FormatHint    string // short or long
	Title         string
	Script        string
	NarrationText string
	AudioURL      string
	VisualPrompts []string
	DurationSec   float64
	Language      string
}

// RenderResult is the immutable output of one render
type RenderResult struct {
	RenderID string
	Status   string
	VideoURL string
	Cost     float64
	Error    string
}

// Renderer assembles narration audio and visuals into a finished video.
// A render error is terminal for the requesting job.
type Renderer interface {
	Render(ctx context.Context, req RenderRequest) (*RenderResult, error)
}
