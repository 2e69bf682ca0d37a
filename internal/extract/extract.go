package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"

	"invoice-backend/internal/shared/metrics"
	"invoice-backend/internal/shared/telemetry"
)

// DefaultMaxAttempts bounds how many independent parses are tried per document.
const DefaultMaxAttempts = 3

var (
	// ErrUnreadablePDF means no usable text could be recovered from the document.
	ErrUnreadablePDF = errors.New("unreadable pdf")
	// ErrCanceled means the caller's context ended before parsing finished.
	ErrCanceled = errors.New("pdf parse canceled")
)

// ParseFunc turns raw PDF bytes into plain text.
type ParseFunc func(data []byte) (string, error)

// TextExtractor recovers plain text from PDF bytes with bounded retries.
// Library used: github.com/ledongthuc/pdf.
type TextExtractor struct {
	Parse       ParseFunc
	MaxAttempts int
}

// New returns a TextExtractor using the PDF parser and the default attempt budget.
func New() *TextExtractor {
	return &TextExtractor{Parse: ParsePDF, MaxAttempts: DefaultMaxAttempts}
}

// Extract returns the trimmed text of the document. Each attempt parses the same buffer
// from scratch; the first success wins. Whitespace-only text is not retried.
func (e *TextExtractor) Extract(ctx context.Context, data []byte) (string, error) {
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty input", ErrUnreadablePDF)
	}
	parse := e.Parse
	if parse == nil {
		parse = ParsePDF
	}
	attempts := e.MaxAttempts
	if attempts <= 0 {
		attempts = DefaultMaxAttempts
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("%w before attempt %d of %d: %w", ErrCanceled, attempt, attempts, err)
		}
		text, err := safeParse(parse, data)
		if err != nil {
			lastErr = err
			telemetry.Warn("pdf.parse_failed", map[string]any{
				"attempt":      attempt,
				"max_attempts": attempts,
				"error":        err,
			})
			if attempt < attempts {
				metrics.IncPDFParseRetry()
			}
			continue
		}
		trimmed := strings.TrimSpace(text)
		if trimmed == "" {
			return "", fmt.Errorf("%w: no text content", ErrUnreadablePDF)
		}
		return trimmed, nil
	}
	return "", fmt.Errorf("%w: %d attempts failed: %v", ErrUnreadablePDF, attempts, lastErr)
}

func safeParse(parse ParseFunc, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf parser panic: %v", r)
		}
	}()
	return parse(data)
}

// ParsePDF extracts plain text using ledongthuc/pdf.
func ParsePDF(data []byte) (string, error) {
	reader := bytes.NewReader(data)
	pdfReader, err := pdf.NewReader(reader, int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := pdfReader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}
