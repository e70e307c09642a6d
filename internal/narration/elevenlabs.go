package narration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/vireolabs/vireo/internal/safety"
	"github.com/vireolabs/vireo/pkg/util"
)

const (
	elevenLabsProviderName = "elevenlabs"
	elevenLabsMaxTextLen   = 5000
	elevenLabsBaseURL      = "https://api.elevenlabs.io"

	// Per-character rate in USD; billed cost is characters × rate
	elevenLabsCostPerChar = 0.00011
)

// ElevenLabsProvider synthesizes narration through the ElevenLabs TTS API.
// Paid per character, higher quality; serves as fallback or configured primary.
type ElevenLabsProvider struct {
	logger    *zap.Logger
	client    *http.Client
	apiKey    string
	baseURL   string
	outputDir string
}

type elevenLabsRequest struct {
	Text          string                 `json:"text"`
	ModelID       string                 `json:"model_id"`
	VoiceSettings map[string]interface{} `json:"voice_settings,omitempty"`
}

func NewElevenLabsProvider(apiKey, outputDir string, logger *zap.Logger) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		logger: logger,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
		apiKey:    apiKey,
		baseURL:   elevenLabsBaseURL,
		outputDir: outputDir,
	}
}

func (p *ElevenLabsProvider) Name() string {
	return elevenLabsProviderName
}

func (p *ElevenLabsProvider) Synthesize(ctx context.Context, req Request) (*Result, error) {
	if err := p.Validate(req.Text); err != nil {
		return nil, err
	}

	voice := req.VoiceID
	if voice == "" {
		voice = p.RecommendedVoice(req.Category)
	}
	settings := req.VoiceSettings
	if settings == nil {
		settings = p.VoiceSettings(req.Category)
	}

	body, err := json.Marshal(elevenLabsRequest{
		Text:          req.Text,
		ModelID:       "eleven_multilingual_v2",
		VoiceSettings: settings,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s", p.baseURL, voice)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "audio/mpeg")
	httpReq.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("elevenlabs request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("elevenlabs returned status %d: %s", resp.StatusCode, string(detail))
	}

	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	outFile := filepath.Join(p.outputDir, util.GenerateAssetName("narration", req.JobID, "mp3", time.Now()))
	f, err := os.Create(outFile)
	if err != nil {
		return nil, fmt.Errorf("create audio file: %w", err)
	}
	defer f.Close()
	if _, err := io.Copy(f, resp.Body); err != nil {
		return nil, fmt.Errorf("write audio file: %w", err)
	}

	p.logger.Info("Narration synthesized",
		zap.String("provider", elevenLabsProviderName),
		zap.String("job_id", req.JobID),
		zap.String("voice", voice),
		zap.Float64("cost", p.EstimateCost(req.Text)))

	return &Result{
		AudioURL:       outFile,
		DurationSec:    EstimateDuration(req.Text),
		CharacterCount: len(req.Text),
		Cost:           p.EstimateCost(req.Text),
		Provider:       elevenLabsProviderName,
		VoiceID:        voice,
		VoiceSettings:  settings,
	}, nil
}

func (p *ElevenLabsProvider) RecommendedVoice(category string) string {
	switch safety.ParseCategory(category) {
	case safety.CategoryHealth:
		return "EXAVITQu4vr4xnSDxMaL" // Sarah: calm, reassuring
	case safety.CategoryFinance:
		return "onwK4e9ZLuTAKqWW03F9" // Daniel: authoritative
	default:
		return "21m00Tcm4TlvDq8ikWAM" // Rachel: neutral narration
	}
}

func (p *ElevenLabsProvider) VoiceSettings(category string) map[string]interface{} {
	switch safety.ParseCategory(category) {
	case safety.CategoryHealth, safety.CategoryFinance:
		return map[string]interface{}{"stability": 0.7, "similarity_boost": 0.75}
	default:
		return map[string]interface{}{"stability": 0.5, "similarity_boost": 0.75}
	}
}

// EstimateCost projects spend before committing to generation
func (p *ElevenLabsProvider) EstimateCost(text string) float64 {
	return float64(len(text)) * elevenLabsCostPerChar
}

func (p *ElevenLabsProvider) Validate(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if len(text) > elevenLabsMaxTextLen {
		return &TooLongError{Provider: elevenLabsProviderName, Length: len(text), Limit: elevenLabsMaxTextLen}
	}
	return nil
}

func (p *ElevenLabsProvider) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/user", nil)
	if err != nil {
		return err
	}
	req.Header.Set("xi-api-key", p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("elevenlabs unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("elevenlabs health check returned status %d", resp.StatusCode)
	}
	return nil
}
