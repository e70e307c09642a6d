package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/youtube/v3"

	"github.com/vireolabs/vireo/pkg/util"
)

const youtubeTitleLimit = 100

// YouTubeUploader publishes videos through the YouTube Data API v3 using a
// per-project refresh token
type YouTubeUploader struct {
	logger       *zap.Logger
	clientID     string
	clientSecret string
	categoryID   string
}

func NewYouTubeUploader(clientID, clientSecret, categoryID string, logger *zap.Logger) *YouTubeUploader {
	if categoryID == "" {
		categoryID = "27" // Education
	}
	return &YouTubeUploader{
		logger:       logger,
		clientID:     clientID,
		clientSecret: clientSecret,
		categoryID:   categoryID,
	}
}

func (u *YouTubeUploader) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	if req.RefreshToken == "" {
		return nil, fmt.Errorf("project %d has no channel credential", req.ProjectID)
	}

	client := u.oauthClient(ctx, req.RefreshToken)
	svc, err := youtube.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("youtube service: %w", err)
	}

	videoPath, cleanup, err := u.localVideo(ctx, req.VideoURL)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	privacy := req.PrivacyStatus
	if privacy == "" {
		privacy = "private"
	}

	video := &youtube.Video{
		Snippet: &youtube.VideoSnippet{
			Title:                util.TruncateTitle(req.Title, youtubeTitleLimit),
			Description:          req.Description,
			Tags:                 req.Tags,
			CategoryId:           u.categoryID,
			DefaultLanguage:      req.Language,
			DefaultAudioLanguage: req.Language,
		},
		Status: &youtube.VideoStatus{
			PrivacyStatus: privacy,
		},
	}

	f, err := os.Open(videoPath)
	if err != nil {
		return nil, fmt.Errorf("open video file: %w", err)
	}
	defer f.Close()

	call := svc.Videos.Insert([]string{"snippet", "status"}, video)
	call.Media(f)

	uploaded, err := call.Do()
	if err != nil {
		return nil, fmt.Errorf("youtube upload: %w", err)
	}

	result := &UploadResult{
		VideoID:  uploaded.Id,
		VideoURL: fmt.Sprintf("https://www.youtube.com/watch?v=%s", uploaded.Id),
	}

	u.logger.Info("Video published",
		zap.String("job_id", req.JobID),
		zap.String("video_id", result.VideoID),
		zap.String("privacy", privacy))

	return result, nil
}

func (u *YouTubeUploader) oauthClient(ctx context.Context, refreshToken string) *http.Client {
	conf := &oauth2.Config{
		ClientID:     u.clientID,
		ClientSecret: u.clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{youtube.YoutubeUploadScope, youtube.YoutubeScope},
	}

	token := &oauth2.Token{
		RefreshToken: refreshToken,
		Expiry:       time.Now().Add(-time.Hour), // force refresh
	}

	return oauth2.NewClient(ctx, conf.TokenSource(ctx, token))
}

// localVideo makes the render output available as a local file, downloading
// it first when the renderer returned a remote URL
func (u *YouTubeUploader) localVideo(ctx context.Context, location string) (string, func(), error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return location, func() {}, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return "", nil, fmt.Errorf("create download request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", nil, fmt.Errorf("video download returned status %d", resp.StatusCode)
	}

	tmp, err := os.CreateTemp("", "vireo-upload-*.mp4")
	if err != nil {
		return "", nil, fmt.Errorf("create temp file: %w", err)
	}
	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", nil, fmt.Errorf("write temp file: %w", err)
	}
	tmp.Close()

	return tmp.Name(), func() { os.Remove(tmp.Name()) }, nil
}
