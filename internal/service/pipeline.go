package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/vireolabs/vireo/internal/models"
	"github.com/vireolabs/vireo/internal/narration"
	"github.com/vireolabs/vireo/internal/publish"
	"github.com/vireolabs/vireo/internal/safety"
	"github.com/vireolabs/vireo/internal/script"
	"github.com/vireolabs/vireo/internal/video"
)

// NarrationGenerator is what the pipeline needs from the narration strategy
type NarrationGenerator interface {
	Generate(ctx context.Context, req narration.Request) (*narration.Result, error)
}

// SubmitRequest describes one content job to create
type SubmitRequest struct {
	Topic      string `json:"topic" binding:"required"`
	Category   string `json:"category"`
	FormatHint string `json:"format_hint"`
	Language   string `json:"language"`
}

// Pipeline drives a content job through script generation, the safety gate,
// narration synthesis, rendering and conditional publishing. It owns the job
// state machine; each stage's status is persisted before the next stage
// begins, so the job row is the single source of truth for progress — there
// is no separate in-process running flag.
type Pipeline struct {
	jobs       JobStore
	projects   ProjectStore
	scripts    script.Generator
	narrator   NarrationGenerator
	renderer   video.Renderer
	uploader   publish.Uploader
	safety     *safety.Engine
	monitoring Recorder
	logger     *zap.Logger
}

func NewPipeline(
	jobs JobStore,
	projects ProjectStore,
	scripts script.Generator,
	narrator NarrationGenerator,
	renderer video.Renderer,
	uploader publish.Uploader,
	safetyEngine *safety.Engine,
	monitoring Recorder,
	logger *zap.Logger,
) *Pipeline {
	return &Pipeline{
		jobs:       jobs,
		projects:   projects,
		scripts:    scripts,
		narrator:   narrator,
		renderer:   renderer,
		uploader:   uploader,
		safety:     safetyEngine,
		monitoring: monitoring,
		logger:     logger,
	}
}

// Submit creates the job and launches processing. The caller gets the job
// handle back immediately; failures after this point are reported through the
// job's status and error fields, never as a thrown error here.
func (p *Pipeline) Submit(ctx context.Context, projectID uint, req SubmitRequest) (*models.ContentJob, error) {
	project, err := p.projects.Get(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if !project.Enabled {
		return nil, fmt.Errorf("project %d is disabled", projectID)
	}

	category := req.Category
	if category == "" {
		category = project.DefaultCategory
	}
	language := req.Language
	if language == "" {
		language = "en"
	}
	formatHint := req.FormatHint
	if formatHint == "" {
		formatHint = "short"
	}

	job := &models.ContentJob{
		ID:         uuid.NewString(),
		ProjectID:  projectID,
		Status:     models.StatusPending,
		Topic:      req.Topic,
		Category:   category,
		FormatHint: formatHint,
		Language:   language,
	}
	if err := p.jobs.Create(ctx, job); err != nil {
		return nil, err
	}

	p.logger.Info("Job submitted",
		zap.String("job_id", job.ID),
		zap.Uint("project_id", projectID),
		zap.String("topic", req.Topic),
		zap.String("category", category))

	go p.process(context.Background(), job.ID)

	return job, nil
}

// Resume relaunches processing for a job stranded in pending, e.g. after a
// restart. A job already past pending has a pipeline run attributed to it.
func (p *Pipeline) Resume(jobID string) {
	go p.process(context.Background(), jobID)
}

// process runs the whole state machine for one job. Only one execution per
// job id is assumed; there is no distributed lock.
func (p *Pipeline) process(ctx context.Context, jobID string) {
	job, err := p.jobs.Get(ctx, jobID)
	if err != nil {
		p.logger.Error("Cannot load job for processing", zap.String("job_id", jobID), zap.Error(err))
		return
	}

	// Backstop: any panic below converts the job to failed rather than
	// killing the process
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Pipeline panicked",
				zap.String("job_id", jobID),
				zap.Any("panic", r))
			p.fail(ctx, job, "internal pipeline error")
		}
	}()

	project, err := p.projects.Get(ctx, job.ProjectID)
	if err != nil {
		p.fail(ctx, job, fmt.Sprintf("project lookup failed: %v", err))
		return
	}

	// Stage: script generation
	if !p.setStatus(ctx, job, models.StatusScriptGenerating) {
		return
	}

	scriptResult, err := p.scripts.Generate(ctx, script.Request{
		Topic:      job.Topic,
		Category:   job.Category,
		FormatHint: job.FormatHint,
		Language:   job.Language,
		JobID:      job.ID,
	})
	if err != nil {
		p.fail(ctx, job, fmt.Sprintf("script generation failed: %v", err))
		return
	}

	// Safety gate: not a persisted state, a branch. The generated artifacts
	// and the report are persisted either way so a failed job can be
	// inspected.
	report := p.safety.Evaluate(safety.Content{
		Title:         scriptResult.Title,
		Script:        scriptResult.Script,
		NarrationText: scriptResult.NarrationText,
		Claims:        scriptResult.Claims,
	}, job.Category)

	job.Title = scriptResult.Title
	job.Script = scriptResult.Script
	job.NarrationText = scriptResult.NarrationText
	job.VisualPrompts = scriptResult.VisualPrompts
	job.Claims = scriptResult.Claims
	job.Safety = report

	if !report.Passed {
		descriptions := make([]string, 0, len(report.Issues))
		for _, issue := range report.Issues {
			if issue.Severity != models.SeverityInfo {
				descriptions = append(descriptions, issue.Description)
			}
		}
		p.fail(ctx, job, "safety check failed: "+strings.Join(descriptions, "; "))
		return
	}

	// Stage: narration synthesis
	if !p.setStatus(ctx, job, models.StatusNarrationProcessing) {
		return
	}

	narrationResult, err := p.narrator.Generate(ctx, narration.Request{
		Text:       job.NarrationText,
		Category:   job.Category,
		FormatHint: job.FormatHint,
		JobID:      job.ID,
	})
	if err != nil {
		// Partial progress is kept: the script artifacts were persisted with
		// the status transition above
		p.fail(ctx, job, fmt.Sprintf("narration synthesis failed: %v", err))
		return
	}

	job.NarrationProvider = narrationResult.Provider
	job.AudioURL = narrationResult.AudioURL
	job.AudioDurationSec = narrationResult.DurationSec
	job.CharacterCount = narrationResult.CharacterCount
	job.NarrationCost = narrationResult.Cost
	job.VoiceID = narrationResult.VoiceID
	job.VoiceSettings = narrationResult.VoiceSettings
	p.monitoring.RecordCost(job.ID, "narration", narrationResult.Provider, narrationResult.Cost)

	// Stage: video rendering
	if !p.setStatus(ctx, job, models.StatusVideoRendering) {
		return
	}

	renderResult, err := p.renderer.Render(ctx, video.RenderRequest{
		JobID:         job.ID,
		Category:      job.Category,
		FormatHint:    job.FormatHint,
		Title:         job.Title,
		Script:        job.Script,
		NarrationText: job.NarrationText,
		AudioURL:      job.AudioURL,
		VisualPrompts: job.VisualPrompts,
		DurationSec:   job.AudioDurationSec,
		Language:      job.Language,
	})
	if err != nil {
		p.fail(ctx, job, fmt.Sprintf("video rendering failed: %v", err))
		return
	}

	job.RenderID = renderResult.RenderID
	job.RenderStatus = renderResult.Status
	job.VideoURL = renderResult.VideoURL
	job.RenderCost = renderResult.Cost
	p.monitoring.RecordCost(job.ID, "render", "shotstack", renderResult.Cost)

	// Publish branch
	if !project.PublishReady() {
		job.Status = models.StatusCompleted
		job.Error = ""
		p.persist(ctx, job)
		p.logger.Info("Job completed without publishing",
			zap.String("job_id", job.ID),
			zap.String("video_url", job.VideoURL))
		return
	}

	if !p.setStatus(ctx, job, models.StatusUploading) {
		return
	}

	uploadResult, err := p.uploader.Upload(ctx, publish.UploadRequest{
		ProjectID:     project.ID,
		JobID:         job.ID,
		Title:         job.Title,
		Description:   p.buildDescription(job),
		Tags:          []string{job.Category, job.FormatHint},
		PrivacyStatus: project.DefaultPrivacy,
		VideoURL:      job.VideoURL,
		Language:      job.Language,
		RefreshToken:  project.YouTubeRefreshToken,
	})
	if err != nil {
		// The rendered artifact is valid and usable: publish failure does
		// not fail the job, it completes with an error note
		job.Status = models.StatusCompleted
		job.Error = fmt.Sprintf("publish failed: %v", err)
		p.persist(ctx, job)
		p.monitoring.RecordError("WARN", "pipeline", "Publish failed after successful render", err.Error(),
			WithJob(job.ID))
		p.logger.Warn("Job completed but publish failed",
			zap.String("job_id", job.ID),
			zap.Error(err))
		return
	}

	now := time.Now()
	job.YouTubeVideoID = uploadResult.VideoID
	job.VideoPublicURL = uploadResult.VideoURL
	job.PublishedAt = &now
	job.Status = models.StatusCompleted
	job.Error = ""
	p.persist(ctx, job)

	p.logger.Info("Job completed and published",
		zap.String("job_id", job.ID),
		zap.String("video_url", uploadResult.VideoURL))
}

// setStatus persists a stage transition before the stage's work starts, so
// an observer polling the job never sees a stale pre-transition status
func (p *Pipeline) setStatus(ctx context.Context, job *models.ContentJob, status models.JobStatus) bool {
	job.Status = status
	if err := p.jobs.Update(ctx, job); err != nil {
		p.logger.Error("Failed to persist status transition",
			zap.String("job_id", job.ID),
			zap.String("status", string(status)),
			zap.Error(err))
		return false
	}
	return true
}

func (p *Pipeline) fail(ctx context.Context, job *models.ContentJob, message string) {
	job.Status = models.StatusFailed
	job.Error = message
	p.persist(ctx, job)
	p.monitoring.RecordError("ERROR", "pipeline", "Job failed", message, WithJob(job.ID),
		WithContext(map[string]interface{}{
			"project_id": job.ProjectID,
			"category":   job.Category,
		}))
	p.logger.Error("Job failed",
		zap.String("job_id", job.ID),
		zap.String("error", message))
}

func (p *Pipeline) persist(ctx context.Context, job *models.ContentJob) {
	if err := p.jobs.Update(ctx, job); err != nil {
		p.logger.Error("Failed to persist job",
			zap.String("job_id", job.ID),
			zap.Error(err))
	}
}

// buildDescription assembles the upload description, leading with the
// category disclaimer when the safety report requires one
func (p *Pipeline) buildDescription(job *models.ContentJob) string {
	var b strings.Builder
	if job.Safety != nil && job.Safety.DisclaimerRequired {
		b.WriteString(job.Safety.DisclaimerText)
		b.WriteString("\n\n")
	}
	text := job.NarrationText
	if len(text) > 4000 {
		text = text[:4000]
	}
	b.WriteString(text)
	return b.String()
}
