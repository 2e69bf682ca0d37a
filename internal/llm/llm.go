package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Client abstracts an LLM provider that answers a single prompt with raw text.
type Client interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

var (
	// ErrUnsupportedProvider is returned for provider names or values outside the known set.
	ErrUnsupportedProvider = errors.New("unsupported provider")
	// ErrProviderUnavailable covers transport failures, timeouts, non-2xx replies and malformed envelopes.
	ErrProviderUnavailable = errors.New("provider unavailable")
	// ErrEmptyResponse means the provider answered but produced no usable text.
	ErrEmptyResponse = errors.New("provider returned empty response")
)

// Provider identifies an LLM backend.
type Provider string

const (
	ProviderGemini Provider = "gemini"
	ProviderGroq   Provider = "groq"
)

// Providers lists the supported providers in display order.
var Providers = []Provider{ProviderGemini, ProviderGroq}

// ParseProvider maps a user supplied name onto a Provider, case-insensitively.
func ParseProvider(name string) (Provider, error) {
	switch Provider(strings.ToLower(strings.TrimSpace(name))) {
	case ProviderGemini:
		return ProviderGemini, nil
	case ProviderGroq:
		return ProviderGroq, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, name)
	}
}

func (p Provider) String() string {
	return string(p)
}

// Valid reports whether p is one of the known providers.
func (p Provider) Valid() bool {
	return p == ProviderGemini || p == ProviderGroq
}
