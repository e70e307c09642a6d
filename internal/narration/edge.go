package narration

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/vireolabs/vireo/internal/safety"
	"github.com/vireolabs/vireo/pkg/util"
)

const (
	edgeProviderName = "edge"
	edgeMaxTextLen   = 8000
)

// EdgeProvider synthesizes narration with the edge-tts CLI. It costs nothing
// and is the default primary backend; quality is best-effort.
type EdgeProvider struct {
	logger    *zap.Logger
	outputDir string
	binary    string
}

func NewEdgeProvider(outputDir string, logger *zap.Logger) *EdgeProvider {
	return &EdgeProvider{
		logger:    logger,
		outputDir: outputDir,
		binary:    "edge-tts",
	}
}

func (p *EdgeProvider) Name() string {
	return edgeProviderName
}

func (p *EdgeProvider) Synthesize(ctx context.Context, req Request) (*Result, error) {
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

	if err := os.MkdirAll(p.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("create audio dir: %w", err)
	}
	outFile := filepath.Join(p.outputDir, util.GenerateAssetName("narration", req.JobID, "mp3", time.Now()))

	args := []string{
		"--voice", voice,
		"--text", req.Text,
		"--write-media", outFile,
	}
	if rate, ok := settings["rate"].(string); ok && rate != "" {
		args = append(args, "--rate", rate)
	}

	cmd := exec.CommandContext(ctx, p.binary, args...)
	if output, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("edge-tts failed: %w: %s", err, string(output))
	}

	p.logger.Info("Narration synthesized",
		zap.String("provider", edgeProviderName),
		zap.String("job_id", req.JobID),
		zap.String("voice", voice),
		zap.String("audio", outFile))

	return &Result{
		AudioURL:       outFile,
		DurationSec:    EstimateDuration(req.Text),
		CharacterCount: len(req.Text),
		Cost:           0,
		Provider:       edgeProviderName,
		VoiceID:        voice,
		VoiceSettings:  settings,
	}, nil
}

func (p *EdgeProvider) RecommendedVoice(category string) string {
	switch safety.ParseCategory(category) {
	case safety.CategoryHealth:
		return "en-US-JennyNeural"
	case safety.CategoryFinance:
		return "en-US-GuyNeural"
	default:
		return "en-US-AriaNeural"
	}
}

func (p *EdgeProvider) VoiceSettings(category string) map[string]interface{} {
	switch safety.ParseCategory(category) {
	case safety.CategoryHealth:
		// Calmer pacing for health topics
		return map[string]interface{}{"rate": "-5%"}
	case safety.CategoryFinance:
		return map[string]interface{}{"rate": "+0%"}
	default:
		return map[string]interface{}{"rate": "+5%"}
	}
}

// EstimateCost always returns 0; edge-tts is free
func (p *EdgeProvider) EstimateCost(string) float64 {
	return 0
}

func (p *EdgeProvider) Validate(text string) error {
	if text == "" {
		return ErrEmptyText
	}
	if len(text) > edgeMaxTextLen {
		return &TooLongError{Provider: edgeProviderName, Length: len(text), Limit: edgeMaxTextLen}
	}
	return nil
}

func (p *EdgeProvider) HealthCheck(ctx context.Context) error {
	if _, err := exec.LookPath(p.binary); err != nil {
		return fmt.Errorf("edge-tts binary not found: %w", err)
	}
	return nil
}
