package video

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const (
	defaultShotstackBaseURL = "https://api.shotstack.io/edit/v1"

	// Flat per-render pricing by format
	shortRenderCost = 0.20
	longRenderCost  = 0.80
)

// ShotstackRenderer submits an edit to the Shotstack render API and polls
// until the render resolves
type ShotstackRenderer struct {
	logger       *zap.Logger
	client       *http.Client
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	pollTimeout  time.Duration
}

func NewShotstackRenderer(apiKey string, logger *zap.Logger) *ShotstackRenderer {
	return &ShotstackRenderer{
		logger: logger,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		apiKey:       apiKey,
		baseURL:      defaultShotstackBaseURL,
		pollInterval: 10 * time.Second,
		pollTimeout:  20 * time.Minute,
	}
}

type renderSubmission struct {
	Timeline timeline `json:"timeline"`
	Output   output   `json:"output"`
}

type timeline struct {
	Soundtrack *soundtrack `json:"soundtrack,omitempty"`
	Tracks     []track     `json:"tracks"`
}

type soundtrack struct {
	Src string `json:"src"`
}

type track struct {
	Clips []clip `json:"clips"`
}

type clip struct {
	Asset  asset   `json:"asset"`
	Start  float64 `json:"start"`
	Length float64 `json:"length"`
}

type asset struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
	Src  string `json:"src,omitempty"`
}

type output struct {
	Format      string `json:"format"`
	Resolution  string `json:"resolution"`
	AspectRatio string `json:"aspectRatio,omitempty"`
}

type submitResponse struct {
	Success  bool `json:"success"`
	Response struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	} `json:"response"`
}

type statusResponse struct {
	Success  bool `json:"success"`
	Response struct {
		ID     string `json:"id"`
		Status string `json:"status"` // queued, fetching, rendering, done, failed
		URL    string `json:"url"`
		Error  string `json:"error"`
	} `json:"response"`
}

func (r *ShotstackRenderer) Render(ctx context.Context, req RenderRequest) (*RenderResult, error) {
	submission := r.buildSubmission(req)

	body, err := json.Marshal(submission)
	if err != nil {
		return nil, fmt.Errorf("marshal render request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+"/render", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create render request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("render submission failed: %w", err)
	}
	defer resp.Body.Close()

	payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("render submission returned status %d: %s", resp.StatusCode, string(payload))
	}

	var submitted submitResponse
	if err := json.Unmarshal(payload, &submitted); err != nil {
		return nil, fmt.Errorf("malformed render submission response: %w", err)
	}
	if !submitted.Success || submitted.Response.ID == "" {
		return nil, fmt.Errorf("render submission rejected: %s", submitted.Response.Message)
	}

	renderID := submitted.Response.ID
	r.logger.Info("Render submitted",
		zap.String("job_id", req.JobID),
		zap.String("render_id", renderID))

	return r.poll(ctx, req, renderID)
}

func (r *ShotstackRenderer) poll(ctx context.Context, req RenderRequest, renderID string) (*RenderResult, error) {
	deadline := time.Now().Add(r.pollTimeout)

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("render cancelled: %w", ctx.Err())
		case <-time.After(r.pollInterval):
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("render %s did not resolve within %s", renderID, r.pollTimeout)
		}

		status, err := r.status(ctx, renderID)
		if err != nil {
			r.logger.Warn("Render status check failed",
				zap.String("render_id", renderID),
				zap.Error(err))
			continue
		}

		switch status.Response.Status {
		case "done":
			return &RenderResult{
				RenderID: renderID,
				Status:   status.Response.Status,
				VideoURL: status.Response.URL,
				Cost:     r.costFor(req.FormatHint),
			}, nil
		case "failed":
			return nil, fmt.Errorf("render %s failed: %s", renderID, status.Response.Error)
		default:
			r.logger.Debug("Render in progress",
				zap.String("render_id", renderID),
				zap.String("status", status.Response.Status))
		}
	}
}

func (r *ShotstackRenderer) status(ctx context.Context, renderID string) (*statusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"/render/"+renderID, nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("x-api-key", r.apiKey)

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status check returned %d", resp.StatusCode)
	}

	var status statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("malformed status response: %w", err)
	}
	return &status, nil
}

func (r *ShotstackRenderer) buildSubmission(req RenderRequest) renderSubmission {
	// One title card, then one image clip per visual prompt spread evenly
	// across the narration
	clips := []clip{{
		Asset:  asset{Type: "title", Text: req.Title},
		Start:  0,
		Length: 3,
	}}

	if n := len(req.VisualPrompts); n > 0 && req.DurationSec > 0 {
		per := req.DurationSec / float64(n)
		for i, prompt := range req.VisualPrompts {
			clips = append(clips, clip{
				Asset:  asset{Type: "image", Src: prompt},
				Start:  float64(i) * per,
				Length: per,
			})
		}
	}

	out := output{Format: "mp4", Resolution: "1080"}
	if req.FormatHint == "short" {
		out.AspectRatio = "9:16"
	}

	return renderSubmission{
		Timeline: timeline{
			Soundtrack: &soundtrack{Src: req.AudioURL},
			Tracks:     []track{{Clips: clips}},
		},
		Output: out,
	}
}

func (r *ShotstackRenderer) costFor(formatHint string) float64 {
	if formatHint == "short" {
		return shortRenderCost
	}
	return longRenderCost
}
