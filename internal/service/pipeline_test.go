package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/vireolabs/vireo/internal/models"
	"github.com/vireolabs/vireo/internal/narration"
	"github.com/vireolabs/vireo/internal/publish"
	"github.com/vireolabs/vireo/internal/safety"
	"github.com/vireolabs/vireo/internal/script"
	"github.com/vireolabs/vireo/internal/video"
)

// In-memory fakes for the pipeline's collaborators

type memJobStore struct {
	mu      sync.Mutex
	jobs    map[string]models.ContentJob
	history map[string][]models.JobStatus
}

func newMemJobStore() *memJobStore {
	return &memJobStore{
		jobs:    make(map[string]models.ContentJob),
		history: make(map[string][]models.JobStatus),
	}
}

func (s *memJobStore) Create(_ context.Context, job *models.ContentJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs[job.ID] = *job
	s.history[job.ID] = append(s.history[job.ID], job.Status)
	return nil
}

func (s *memJobStore) Get(_ context.Context, id string) (*models.ContentJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	job, ok := s.jobs[id]
	if !ok {
		return nil, fmt.Errorf("job not found: %s", id)
	}
	copied := job
	return &copied, nil
}

func (s *memJobStore) Update(_ context.Context, job *models.ContentJob) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.jobs[job.ID]
	if prev.Status != job.Status {
		s.history[job.ID] = append(s.history[job.ID], job.Status)
	}
	s.jobs[job.ID] = *job
	return nil
}

func (s *memJobStore) ListByProject(_ context.Context, projectID uint) ([]models.ContentJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ContentJob
	for _, job := range s.jobs {
		if job.ProjectID == projectID {
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *memJobStore) ListByStatus(_ context.Context, status models.JobStatus) ([]models.ContentJob, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.ContentJob
	for _, job := range s.jobs {
		if job.Status == status {
			out = append(out, job)
		}
	}
	return out, nil
}

func (s *memJobStore) statuses(id string) []models.JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.JobStatus(nil), s.history[id]...)
}

type memProjectStore struct {
	projects map[uint]models.Project
}

func (s *memProjectStore) Get(_ context.Context, id uint) (*models.Project, error) {
	project, ok := s.projects[id]
	if !ok {
		return nil, fmt.Errorf("project not found: %d", id)
	}
	copied := project
	return &copied, nil
}

type fakeScripts struct {
	result *script.Result
	err    error
}

func (f *fakeScripts) Generate(context.Context, script.Request) (*script.Result, error) {
	return f.result, f.err
}

type fakeNarrator struct {
	result *narration.Result
	err    error
	calls  int
}

func (f *fakeNarrator) Generate(context.Context, narration.Request) (*narration.Result, error) {
	f.calls++
	return f.result, f.err
}

type fakeRenderer struct {
	result *video.RenderResult
	err    error
}

func (f *fakeRenderer) Render(context.Context, video.RenderRequest) (*video.RenderResult, error) {
	return f.result, f.err
}

type fakeUploader struct {
	result *publish.UploadResult
	err    error
	calls  int
}

func (f *fakeUploader) Upload(context.Context, publish.UploadRequest) (*publish.UploadResult, error) {
	f.calls++
	return f.result, f.err
}

type noopRecorder struct{}

func (noopRecorder) RecordError(string, string, string, string, ...ErrorLogOption) {}
func (noopRecorder) RecordCost(string, string, string, float64)                    {}

type fixture struct {
	jobs     *memJobStore
	projects *memProjectStore
	scripts  *fakeScripts
	narrator *fakeNarrator
	renderer *fakeRenderer
	uploader *fakeUploader
	pipeline *Pipeline
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	engine, err := safety.NewEngine(safety.DefaultThresholds(), zap.NewNop())
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}

	f := &fixture{
		jobs: newMemJobStore(),
		projects: &memProjectStore{projects: map[uint]models.Project{
			1: {ID: 1, Name: "bees", Enabled: true, DefaultCategory: "general", DefaultPrivacy: "private"},
			2: {ID: 2, Name: "publishing", Enabled: true, AutoPublish: true,
				YouTubeChannelID: "UC123", YouTubeRefreshToken: "tok", DefaultCategory: "general"},
			3: {ID: 3, Name: "dormant", Enabled: false},
		}},
		scripts: &fakeScripts{result: &script.Result{
			Title:         "Five facts about honey bees",
			Script:        "Honey bees communicate through dance.",
			NarrationText: "Honey bees communicate through dance.",
			VisualPrompts: []string{"a bee on a flower"},
			Claims:        []models.Claim{{Text: "bees dance", Confidence: 90}},
		}},
		narrator: &fakeNarrator{result: &narration.Result{
			AudioURL:       "/tmp/audio.mp3",
			DurationSec:    12,
			CharacterCount: 37,
			Cost:           0,
			Provider:       "edge",
			VoiceID:        "en-US-AriaNeural",
		}},
		renderer: &fakeRenderer{result: &video.RenderResult{
			RenderID: "r-1",
			Status:   "done",
			VideoURL: "https://cdn.example.com/r-1.mp4",
			Cost:     0.2,
		}},
		uploader: &fakeUploader{result: &publish.UploadResult{
			VideoID:  "yt-1",
			VideoURL: "https://www.youtube.com/watch?v=yt-1",
		}},
	}

	f.pipeline = NewPipeline(f.jobs, f.projects, f.scripts, f.narrator, f.renderer,
		f.uploader, engine, noopRecorder{}, zap.NewNop())
	return f
}

func (f *fixture) submitAndWait(t *testing.T, projectID uint, req SubmitRequest) *models.ContentJob {
	t.Helper()

	job, err := f.pipeline.Submit(context.Background(), projectID, req)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.Status.Terminal() {
		t.Fatalf("submission must return before the pipeline finishes, status = %s", job.Status)
	}

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		current, err := f.jobs.Get(context.Background(), job.ID)
		if err != nil {
			t.Fatalf("Get: %v", err)
		}
		if current.Status.Terminal() {
			return current
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("job %s did not reach a terminal state", job.ID)
	return nil
}

func TestPipelineHappyPathWithoutPublish(t *testing.T) {
	f := newFixture(t)

	job := f.submitAndWait(t, 1, SubmitRequest{Topic: "honey bees", Category: "general"})

	if job.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed (error: %s)", job.Status, job.Error)
	}
	if job.Error != "" {
		t.Errorf("error = %q, want empty", job.Error)
	}
	if f.uploader.calls != 0 {
		t.Errorf("publish must not be invoked when auto-publish is off, calls = %d", f.uploader.calls)
	}
	if job.Safety == nil || !job.Safety.Passed || job.Safety.Score != 100 || !job.Safety.AutoApproved {
		t.Errorf("unexpected safety report: %+v", job.Safety)
	}
	if job.NarrationProvider != "edge" || job.AudioURL == "" {
		t.Errorf("narration metadata missing: %+v", job)
	}
	if job.VideoURL == "" || job.RenderID == "" {
		t.Errorf("video metadata missing: %+v", job)
	}
	if job.PublishedAt != nil {
		t.Error("unpublished job must not carry a publish timestamp")
	}

	want := []models.JobStatus{
		models.StatusPending,
		models.StatusScriptGenerating,
		models.StatusNarrationProcessing,
		models.StatusVideoRendering,
		models.StatusCompleted,
	}
	got := f.jobs.statuses(job.ID)
	if len(got) != len(want) {
		t.Fatalf("status history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("status history = %v, want %v", got, want)
		}
	}
}

func TestPipelinePublishesWhenConfigured(t *testing.T) {
	f := newFixture(t)

	job := f.submitAndWait(t, 2, SubmitRequest{Topic: "honey bees"})

	if job.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed", job.Status)
	}
	if f.uploader.calls != 1 {
		t.Errorf("uploader calls = %d, want 1", f.uploader.calls)
	}
	if job.YouTubeVideoID != "yt-1" || job.VideoPublicURL == "" {
		t.Errorf("publish metadata missing: %+v", job)
	}
	if job.PublishedAt == nil {
		t.Error("published job must carry a publish timestamp")
	}

	got := f.jobs.statuses(job.ID)
	var sawUploading bool
	for _, s := range got {
		if s == models.StatusUploading {
			sawUploading = true
		}
	}
	if !sawUploading {
		t.Errorf("status history %v missing uploading", got)
	}
}

func TestPipelineScriptFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.scripts.err = errors.New("quota exceeded")
	f.scripts.result = nil

	job := f.submitAndWait(t, 1, SubmitRequest{Topic: "honey bees"})

	if job.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if !strings.Contains(job.Error, "script generation failed") {
		t.Errorf("error = %q", job.Error)
	}
	if f.narrator.calls != 0 {
		t.Error("narration must not run after script failure")
	}
}

func TestPipelineSafetyGateFailure(t *testing.T) {
	f := newFixture(t)
	f.scripts.result = &script.Result{
		Title:         "Bad advice",
		Script:        "This miracle cure works wonders.",
		NarrationText: "This miracle cure works wonders.",
	}

	job := f.submitAndWait(t, 1, SubmitRequest{Topic: "cures", Category: "health"})

	if job.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if job.Error == "" || !strings.Contains(job.Error, "safety check failed") {
		t.Errorf("error = %q", job.Error)
	}
	if job.NarrationProvider != "" || job.AudioURL != "" {
		t.Error("no narration metadata may be set after a safety failure")
	}
	if job.VideoURL != "" || job.RenderID != "" {
		t.Error("no video metadata may be set after a safety failure")
	}
	// Artifacts and the report survive for inspection
	if job.Script == "" || job.Safety == nil || job.Safety.Passed {
		t.Errorf("expected persisted script and failing report, got %+v", job)
	}
	if f.narrator.calls != 0 {
		t.Error("narration must not run after the safety gate rejects")
	}
}

func TestPipelineNarrationFailureKeepsPartialProgress(t *testing.T) {
	f := newFixture(t)
	f.narrator.err = errors.New("all backends down")
	f.narrator.result = nil

	job := f.submitAndWait(t, 1, SubmitRequest{Topic: "honey bees"})

	if job.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if !strings.Contains(job.Error, "narration synthesis failed") {
		t.Errorf("error = %q", job.Error)
	}
	// Partial progress survives the failure
	if job.Title == "" || job.Script == "" || job.NarrationText == "" {
		t.Errorf("script artifacts must be kept: %+v", job)
	}
	if job.VideoURL != "" {
		t.Error("no video metadata after narration failure")
	}
}

func TestPipelineRenderFailureIsTerminal(t *testing.T) {
	f := newFixture(t)
	f.renderer.err = errors.New("render farm on fire")
	f.renderer.result = nil

	job := f.submitAndWait(t, 1, SubmitRequest{Topic: "honey bees"})

	if job.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", job.Status)
	}
	if !strings.Contains(job.Error, "video rendering failed") {
		t.Errorf("error = %q", job.Error)
	}
	// Narration metadata survives
	if job.AudioURL == "" {
		t.Error("narration metadata must be kept after render failure")
	}
}

func TestPipelinePublishFailureStillCompletes(t *testing.T) {
	f := newFixture(t)
	f.uploader.err = errors.New("upload quota exhausted")
	f.uploader.result = nil

	job := f.submitAndWait(t, 2, SubmitRequest{Topic: "honey bees"})

	if job.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed despite publish failure", job.Status)
	}
	if job.VideoURL == "" {
		t.Error("video url must be set, the artifact is valid")
	}
	if !strings.Contains(job.Error, "publish failed") {
		t.Errorf("error = %q, want publish failure note", job.Error)
	}
	if job.PublishedAt != nil {
		t.Error("failed publish must not set the publish timestamp")
	}
}

func TestPipelineDisabledProjectRejectsSubmission(t *testing.T) {
	f := newFixture(t)

	if _, err := f.pipeline.Submit(context.Background(), 3, SubmitRequest{Topic: "x"}); err == nil {
		t.Fatal("expected error for disabled project")
	}
	if _, err := f.pipeline.Submit(context.Background(), 99, SubmitRequest{Topic: "x"}); err == nil {
		t.Fatal("expected error for unknown project")
	}
}

func TestPipelineDefaultsFromProject(t *testing.T) {
	f := newFixture(t)

	job := f.submitAndWait(t, 1, SubmitRequest{Topic: "honey bees"})

	if job.Category != "general" {
		t.Errorf("category = %q, want project default", job.Category)
	}
	if job.Language != "en" || job.FormatHint != "short" {
		t.Errorf("defaults not applied: %+v", job)
	}
}
