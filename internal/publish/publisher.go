package publish

import (
	"context"
)

// UploadRequest carries everything needed to publish one finished video
type UploadRequest struct {
	ProjectID     uint
	JobID         string
	Title         string
	Description   string
	Tags          []string
	PrivacyStatus string // private, unlisted, public
	VideoURL      string // render output: local path or http(s) location
	Language      string

	// Per-project channel credential, established out of band
	RefreshToken string
}

// UploadResult identifies the published video
type UploadResult struct {
	VideoID  string
	VideoURL string
}

// Uploader publishes a rendered video to a connected channel. Upload failure
// is never terminal for the job: the rendered artifact remains valid.
type Uploader interface {
	Upload(ctx context.Context, req UploadRequest) (*UploadResult, error)
}
