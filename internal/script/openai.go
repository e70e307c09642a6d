package script

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

const defaultOpenAIBaseURL = "https://api.openai.com"

// OpenAIGenerator produces scripts through an OpenAI-compatible
// chat-completions endpoint, asking the model for a strict JSON document
type OpenAIGenerator struct {
	logger  *zap.Logger
	client  *http.Client
	apiKey  string
	baseURL string
	model   string
}

func NewOpenAIGenerator(apiKey, baseURL, model string, logger *zap.Logger) *OpenAIGenerator {
	if baseURL == "" {
		baseURL = defaultOpenAIBaseURL
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIGenerator{
		logger: logger,
		client: &http.Client{
			Timeout: 120 * time.Second,
		},
		apiKey:  apiKey,
		baseURL: baseURL,
		model:   model,
	}
}

type chatRequest struct {
	Model          string        `json:"model"`
	Messages       []chatMessage `json:"messages"`
	Temperature    float32       `json:"temperature,omitempty"`
	ResponseFormat *respFormat   `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type respFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

const systemPrompt = `You are a scriptwriter for automated narrated videos.
Respond with a single JSON object and nothing else, using exactly these keys:
"title" (string), "script" (string, the full on-screen script),
"narration_text" (string, the spoken narration),
"visual_prompts" (array of strings, one image prompt per scene),
"claims" (array of {"text": string, "confidence": integer 0-100, "source": string}
for every factual claim made).`

func (g *OpenAIGenerator) Generate(ctx context.Context, req Request) (*Result, error) {
	userPrompt := fmt.Sprintf("Topic: %s\nCategory: %s\nFormat: %s\nLanguage: %s",
		req.Topic, req.Category, req.FormatHint, req.Language)

	body, err := json.Marshal(chatRequest{
		Model: g.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature:    0.8,
		ResponseFormat: &respFormat{Type: "json_object"},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		g.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+g.apiKey)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("script generation request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("script generation returned status %d: %s", resp.StatusCode, string(payload))
	}

	var chat chatResponse
	if err := json.Unmarshal(payload, &chat); err != nil {
		return nil, fmt.Errorf("malformed completion response: %w", err)
	}
	if chat.Error != nil {
		return nil, fmt.Errorf("script generation error: %s (%s)", chat.Error.Message, chat.Error.Type)
	}
	if len(chat.Choices) == 0 {
		return nil, fmt.Errorf("completion response contained no choices")
	}

	content := strings.TrimSpace(chat.Choices[0].Message.Content)
	// Some models wrap JSON in a fenced code block
	content = strings.TrimPrefix(content, "```json")
	content = strings.TrimPrefix(content, "```")
	content = strings.TrimSuffix(content, "```")

	var result Result
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("malformed script document: %w", err)
	}
	if result.Title == "" || result.Script == "" {
		return nil, fmt.Errorf("script document missing title or script")
	}
	if result.NarrationText == "" {
		result.NarrationText = result.Script
	}

	g.logger.Info("Script generated",
		zap.String("job_id", req.JobID),
		zap.String("title", result.Title),
		zap.Int("script_chars", len(result.Script)),
		zap.Int("claims", len(result.Claims)),
		zap.Int("visual_prompts", len(result.VisualPrompts)))

	return &result, nil
}
