package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"gorm.io/gorm"
)

// JobStatus is the pipeline state of a ContentJob. Transitions are linear with
// a failure branch reachable from every non-terminal state:
// pending → script_generating → narration_processing → video_rendering →
// uploading → completed.
type JobStatus string

const (
	StatusPending             JobStatus = "pending"
	StatusScriptGenerating    JobStatus = "script_generating"
	StatusNarrationProcessing JobStatus = "narration_processing"
	StatusVideoRendering      JobStatus = "video_rendering"
	StatusUploading           JobStatus = "uploading"
	StatusCompleted           JobStatus = "completed"
	StatusFailed              JobStatus = "failed"
)

// Terminal reports whether no further automatic transitions occur
func (s JobStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusFailed
}

// Claim is a single fact-check claim extracted from a generated script
type Claim struct {
	Text       string `json:"text"`
	Confidence int    `json:"confidence"` // 0-100
	Source     string `json:"source,omitempty"`
}

// ClaimList is stored as a jsonb column
type ClaimList []Claim

func (c *ClaimList) Scan(value interface{}) error {
	if value == nil {
		*c = ClaimList{}
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	default:
		return fmt.Errorf("cannot scan %T into ClaimList", value)
	}
}

func (c ClaimList) Value() (driver.Value, error) {
	if c == nil {
		return "[]", nil
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(data), nil
}

// ContentJob is one request to turn a topic into a video artifact
type ContentJob struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	ProjectID uint   `gorm:"not null;index" json:"project_id"`

	Status     JobStatus `gorm:"size:50;default:'pending';index" json:"status"`
	Topic      string    `gorm:"size:500" json:"topic"`
	Category   string    `gorm:"size:100" json:"category"`
	FormatHint string    `gorm:"size:50" json:"format_hint"` // short or long
	Language   string    `gorm:"size:20" json:"language"`

	// Generated artifacts, null until produced
	Title         string      `gorm:"size:500" json:"title"`
	Script        string      `gorm:"type:text" json:"script"`
	NarrationText string      `gorm:"type:text" json:"narration_text"`
	VisualPrompts StringArray `gorm:"type:text[]" json:"visual_prompts"`
	Claims        ClaimList   `gorm:"type:jsonb" json:"claims"`

	// Narration metadata, set once synthesis succeeds
	NarrationProvider string  `gorm:"size:50" json:"narration_provider"`
	AudioURL          string  `gorm:"size:1000" json:"audio_url"`
	AudioDurationSec  float64 `json:"audio_duration_sec"`
	CharacterCount    int     `json:"character_count"`
	NarrationCost     float64 `json:"narration_cost"`
	VoiceID           string  `gorm:"size:100" json:"voice_id"`
	VoiceSettings     JSONMap `gorm:"type:jsonb" json:"voice_settings"`

	// Video metadata, set once rendering succeeds
	RenderID     string  `gorm:"size:100" json:"render_id"`
	RenderStatus string  `gorm:"size:50" json:"render_status"`
	VideoURL     string  `gorm:"size:1000" json:"video_url"`
	RenderCost   float64 `json:"render_cost"`

	// Publish metadata, set on successful upload
	YouTubeVideoID string `gorm:"size:100" json:"youtube_video_id"`
	VideoPublicURL string `gorm:"size:1000" json:"video_public_url"`

	Safety *SafetyReport `gorm:"type:jsonb" json:"safety"`

	// Last human-readable failure reason; a completed job may carry a
	// publish-failure note here while still being completed
	Error string `gorm:"type:text" json:"error"`

	CreatedAt   time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
	PublishedAt *time.Time     `json:"published_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"deleted_at"`

	Project Project `gorm:"foreignKey:ProjectID" json:"project"`
}
