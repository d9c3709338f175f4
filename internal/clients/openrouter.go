package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hayzen-ai/hayzen-api/internal/models"
)

const defaultTemperature = 0.7

// OpenRouterConfig carries the settings for the upstream completion API.
type OpenRouterConfig struct {
	APIKey       string
	BaseURL      string
	DefaultModel string
	Referer      string
	AppTitle     string
	Timeout      time.Duration
}

// OpenRouterClient relays single-turn prompts to the OpenRouter
// chat-completions endpoint.
type OpenRouterClient struct {
	cfg        OpenRouterConfig
	httpClient *http.Client
	logger     *slog.Logger
}

func NewOpenRouterClient(cfg OpenRouterConfig, logger *slog.Logger) *OpenRouterClient {
	return &OpenRouterClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		logger: logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type completionResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// Complete sends a single user prompt and returns the assistant reply along
// with the model that produced it. An empty engine selects the configured
// default model.
func (c *OpenRouterClient) Complete(ctx context.Context, prompt, engine string) (reply, usedEngine string, err error) {
	if engine == "" {
		engine = c.cfg.DefaultModel
	}

	body, err := json.Marshal(completionRequest{
		Model: engine,
		Messages: []chatMessage{
			{Role: "user", Content: prompt},
		},
		Temperature: defaultTemperature,
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to encode completion request: %w", err)
	}

	url := strings.TrimSuffix(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", "", fmt.Errorf("failed to build completion request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Referer != "" {
		req.Header.Set("HTTP-Referer", c.cfg.Referer)
	}
	if c.cfg.AppTitle != "" {
		req.Header.Set("X-Title", c.cfg.AppTitle)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	// Bound the read in case the upstream misbehaves.
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", "", fmt.Errorf("failed to read completion response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.logger.Error("completion api returned non-200",
			slog.Int("status", resp.StatusCode),
			slog.String("model", engine))
		return "", "", fmt.Errorf("completion api status %d: %w", resp.StatusCode, models.ErrInternalServer)
	}

	var parsed completionResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", "", fmt.Errorf("failed to decode completion response: %w", err)
	}
	if parsed.Error != nil {
		return "", "", fmt.Errorf("completion api error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", "", fmt.Errorf("completion api returned no choices")
	}

	return parsed.Choices[0].Message.Content, engine, nil
}
