package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"invoice-backend/internal/extract"
	"invoice-backend/internal/extraction"
	"invoice-backend/internal/llm"
	"invoice-backend/internal/llm/gemini"
	"invoice-backend/internal/llm/groq"
	"invoice-backend/internal/shared/config"
)

type textExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// deps lets tests swap the PDF parser and provider clients.
type deps struct {
	Extractor textExtractor
	NewClient func(ctx context.Context, cfg config.Config, provider llm.Provider) (llm.Client, error)
}

func defaultDeps() deps {
	return deps{
		Extractor: extract.New(),
		NewClient: newProviderClient,
	}
}

func newRootCmd(cfg config.Config, d deps) *cobra.Command {
	root := &cobra.Command{
		Use:           "invoicectl",
		Short:         "Run invoice extraction against local PDF files",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newPromptCmd(cfg, d), newExtractCmd(cfg, d))
	return root
}

func newPromptCmd(cfg config.Config, d deps) *cobra.Command {
	var file, model string
	cmd := &cobra.Command{
		Use:   "prompt",
		Short: "Print the provider prompt built from a PDF",
		RunE: func(cmd *cobra.Command, args []string) error {
			provider, err := llm.ParseProvider(model)
			if err != nil {
				return err
			}
			text, err := readText(cmd.Context(), d.Extractor, file)
			if err != nil {
				return err
			}
			prompt, err := llm.BuildPrompt(provider, text)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the invoice PDF")
	cmd.Flags().StringVarP(&model, "model", "m", cfg.DefaultProvider, "Provider: gemini or groq")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newExtractCmd(cfg config.Config, d deps) *cobra.Command {
	var file, model, out string
	cmd := &cobra.Command{
		Use:   "extract",
		Short: "Extract vendor and invoice fields from a PDF and print them as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			provider, err := llm.ParseProvider(model)
			if err != nil {
				return err
			}
			text, err := readText(ctx, d.Extractor, file)
			if err != nil {
				return err
			}
			prompt, err := llm.BuildPrompt(provider, text)
			if err != nil {
				return err
			}
			client, err := d.NewClient(ctx, cfg, provider)
			if err != nil {
				return err
			}
			if closer, ok := client.(io.Closer); ok {
				defer closer.Close()
			}
			raw, err := client.Invoke(ctx, prompt)
			if err != nil {
				return fmt.Errorf("invoke %s: %w", provider, err)
			}
			result, err := extraction.Normalize(raw)
			if err != nil {
				return err
			}
			encoded, err := json.Marshal(result)
			if err != nil {
				return err
			}
			pretty, err := prettyJSON(encoded)
			if err != nil {
				return fmt.Errorf("format json: %w", err)
			}
			if out != "" {
				if err := os.WriteFile(out, pretty, 0o644); err != nil {
					return fmt.Errorf("write output: %w", err)
				}
			}
			_, err = cmd.OutOrStdout().Write(pretty)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "Path to the invoice PDF")
	cmd.Flags().StringVarP(&model, "model", "m", cfg.DefaultProvider, "Provider: gemini or groq")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Also write the JSON result to this path")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func readText(ctx context.Context, ex textExtractor, path string) (string, error) {
	if ext := strings.ToLower(filepath.Ext(path)); ext != ".pdf" {
		return "", fmt.Errorf("unsupported file type: %q", ext)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return ex.Extract(ctx, data)
}

func newProviderClient(ctx context.Context, cfg config.Config, provider llm.Provider) (llm.Client, error) {
	timeout := time.Duration(cfg.ProviderTimeoutSecs) * time.Second
	switch provider {
	case llm.ProviderGemini:
		return gemini.NewClient(ctx, cfg.GeminiAPIKey, cfg.GeminiModel, timeout)
	case llm.ProviderGroq:
		return groq.NewClient(cfg.GroqAPIKey, cfg.GroqModel, cfg.GroqBaseURL, timeout)
	default:
		return nil, fmt.Errorf("%w: %s", llm.ErrUnsupportedProvider, provider)
	}
}

func prettyJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}
