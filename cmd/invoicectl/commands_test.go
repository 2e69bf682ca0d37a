package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"invoice-backend/internal/llm"
	"invoice-backend/internal/shared/config"
)

type fixedText string

func (f fixedText) Extract(ctx context.Context, data []byte) (string, error) {
	return string(f), nil
}

type cannedClient struct {
	reply  string
	err    error
	prompt string
}

func (c *cannedClient) Invoke(ctx context.Context, prompt string) (string, error) {
	c.prompt = prompt
	return c.reply, c.err
}

func writePDF(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "inv.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4\n%%EOF\n"), 0o644))
	return path
}

func run(t *testing.T, d deps, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(config.Config{DefaultProvider: "groq"}, d)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPromptCommandPrintsPrompt(t *testing.T) {
	d := deps{Extractor: fixedText("ACME Corp total 10")}
	out, err := run(t, d, "prompt", "--file", writePDF(t), "--model", "gemini")
	require.NoError(t, err)
	assert.Contains(t, out, "PDF Content:\nACME Corp total 10")
}

func TestPromptCommandRejectsUnknownModel(t *testing.T) {
	d := deps{Extractor: fixedText("x")}
	_, err := run(t, d, "prompt", "--file", writePDF(t), "--model", "claude")
	require.ErrorIs(t, err, llm.ErrUnsupportedProvider)
}

func TestPromptCommandRequiresPDF(t *testing.T) {
	d := deps{Extractor: fixedText("x")}
	path := filepath.Join(t.TempDir(), "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
	_, err := run(t, d, "prompt", "--file", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported file type")
}

func TestExtractCommandWritesNormalizedJSON(t *testing.T) {
	client := &cannedClient{reply: "```json\n{\"vendor\":{\"name\":\"ACME\"},\"invoice\":{\"number\":\"INV-1\",\"total\":10}}\n```"}
	var gotProvider llm.Provider
	d := deps{
		Extractor: fixedText("ACME invoice"),
		NewClient: func(ctx context.Context, cfg config.Config, p llm.Provider) (llm.Client, error) {
			gotProvider = p
			return client, nil
		},
	}
	outPath := filepath.Join(t.TempDir(), "out.json")
	out, err := run(t, d, "extract", "--file", writePDF(t), "--out", outPath)
	require.NoError(t, err)
	assert.Equal(t, llm.ProviderGroq, gotProvider)
	assert.Contains(t, client.prompt, "ACME invoice")

	var decoded map[string]map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &decoded))
	assert.Equal(t, "ACME", decoded["vendor"]["name"])
	assert.Equal(t, "INV-1", decoded["invoice"]["number"])

	written, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, out, string(written))
}

func TestExtractCommandSurfacesProviderError(t *testing.T) {
	d := deps{
		Extractor: fixedText("text"),
		NewClient: func(ctx context.Context, cfg config.Config, p llm.Provider) (llm.Client, error) {
			return &cannedClient{err: llm.ErrProviderUnavailable}, nil
		},
	}
	_, err := run(t, d, "extract", "--file", writePDF(t), "--model", "gemini")
	require.True(t, errors.Is(err, llm.ErrProviderUnavailable))
	assert.True(t, strings.Contains(err.Error(), "invoke gemini"))
}
