package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"invoice-backend/internal/llm"
	"invoice-backend/internal/shared/telemetry"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "openai/gpt-oss-120b"
	defaultTimeout = 120 * time.Second
	maxErrorBody   = 512
)

// Client implements llm.Client using the Groq OpenAI-compatible Responses API.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a Groq client. Empty model and baseURL fall back to defaults.
func NewClient(apiKey, model, baseURL string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GROQ_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

type responsesRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type outputFragment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type outputItem struct {
	Type    string           `json:"type"`
	Content []outputFragment `json:"content"`
}

type responsesResponse struct {
	ID     string       `json:"id"`
	Output []outputItem `json:"output"`
	Error  *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error,omitempty"`
}

// Invoke posts prompt to {baseURL}/responses and returns the text of the first non-empty output item.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	payload, err := json.Marshal(responsesRequest{Model: c.model, Input: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/responses", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%w: groq build request: %v", llm.ErrProviderUnavailable, err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "Client.Timeout") {
			return "", fmt.Errorf("%w: groq request timeout: %v", llm.ErrProviderUnavailable, err)
		}
		return "", fmt.Errorf("%w: groq request: %v", llm.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: groq read body: %v", llm.ErrProviderUnavailable, err)
	}

	telemetry.Debug("llm.groq.complete", map[string]any{
		"model":       c.model,
		"status":      resp.StatusCode,
		"duration_ms": time.Since(start).Milliseconds(),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: groq http status %d: %s", llm.ErrProviderUnavailable, resp.StatusCode, truncate(body))
	}

	var parsed responsesResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("%w: groq response parse: %v", llm.ErrProviderUnavailable, err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("%w: groq error: %s (%s)", llm.ErrProviderUnavailable, parsed.Error.Message, parsed.Error.Type)
	}

	text := llm.StripCodeFences(firstOutputText(parsed.Output))
	if text == "" {
		return "", fmt.Errorf("%w: groq model=%s", llm.ErrEmptyResponse, c.model)
	}
	return text, nil
}

func firstOutputText(items []outputItem) string {
	for _, item := range items {
		if !hasText(item) {
			continue
		}
		var b strings.Builder
		for _, frag := range item.Content {
			b.WriteString(frag.Text)
		}
		return b.String()
	}
	return ""
}

func hasText(item outputItem) bool {
	for _, frag := range item.Content {
		if frag.Text != "" {
			return true
		}
	}
	return false
}

func truncate(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > maxErrorBody {
		return s[:maxErrorBody] + "..."
	}
	return s
}

var _ llm.Client = (*Client)(nil)
