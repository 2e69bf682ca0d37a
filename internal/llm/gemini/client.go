package gemini

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"invoice-backend/internal/llm"
	"invoice-backend/internal/shared/telemetry"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.0-flash"

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

// Client implements llm.Client on the Gemini generative API.
type Client struct {
	model   string
	gen     generator
	sdk     *genai.Client
	timeout time.Duration
}

// NewClient constructs a Gemini client authenticated with apiKey.
func NewClient(ctx context.Context, apiKey, model string, timeout time.Duration) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	if strings.TrimSpace(model) == "" {
		model = DefaultModel
	}
	sdk, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &Client{
		model:   model,
		gen:     sdk.GenerativeModel(model),
		sdk:     sdk,
		timeout: timeout,
	}, nil
}

// Close releases the underlying SDK connection.
func (c *Client) Close() error {
	if c.sdk == nil {
		return nil
	}
	return c.sdk.Close()
}

// Invoke sends prompt as a single text part and returns the fence-stripped reply.
func (c *Client) Invoke(ctx context.Context, prompt string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.gen.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("%w: gemini model=%s: %v", llm.ErrProviderUnavailable, c.model, err)
	}
	text := StripAndJoin(resp)
	telemetry.Debug("llm.gemini.complete", map[string]any{
		"model":       c.model,
		"duration_ms": time.Since(start).Milliseconds(),
		"chars":       len(text),
	})
	if text == "" {
		return "", fmt.Errorf("%w: gemini model=%s", llm.ErrEmptyResponse, c.model)
	}
	return text, nil
}

// StripAndJoin concatenates the text parts of the first candidate and removes code fences.
func StripAndJoin(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	cand := resp.Candidates[0]
	if cand == nil || cand.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range cand.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return llm.StripCodeFences(b.String())
}

var _ llm.Client = (*Client)(nil)
