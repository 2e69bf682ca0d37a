package extraction

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"invoice-backend/internal/invoices"
	"invoice-backend/internal/llm"
	"invoice-backend/internal/shared/metrics"
	"invoice-backend/internal/shared/storage/object"
	"invoice-backend/internal/shared/telemetry"
)

// TextExtractor recovers plain text from PDF bytes.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Service runs the fetch, parse, prompt, invoke, normalize and persist pipeline for one file.
// It keeps no per-request state, so one instance serves concurrent requests.
type Service struct {
	Repo      invoices.Repo
	Store     object.ObjectStore
	Extractor TextExtractor
	Clients   map[llm.Provider]llm.Client
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Extract populates the record for fileID from the chosen provider and returns it.
// The record is written only in the final step, so any failure leaves it unchanged.
func (s *Service) Extract(ctx context.Context, fileID string, provider llm.Provider) (rec invoices.Record, err error) {
	start := time.Now()
	metrics.IncExtractionStarted()
	defer func() {
		metrics.ObserveExtractionDurationMs(float64(time.Since(start).Microseconds()) / 1000.0)
		if err != nil {
			kind := KindOf(err)
			metrics.IncExtractionFailed(string(kind))
			fields := map[string]any{
				"file_id":  fileID,
				"provider": provider.String(),
				"kind":     string(kind),
				"error":    err,
			}
			var ee *Error
			if errors.As(err, &ee) {
				fields["step"] = string(ee.Step)
			}
			telemetry.Error("extraction.failed", fields)
			return
		}
		metrics.IncExtractionCompleted()
		telemetry.Info("extraction.completed", map[string]any{
			"file_id":     fileID,
			"provider":    provider.String(),
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}()

	client, ok := s.Clients[provider]
	if !provider.Valid() || !ok || client == nil {
		return invoices.Record{}, s.fail(StepCallingProvider, fileID, fmt.Errorf("%w: %q", llm.ErrUnsupportedProvider, provider.String()))
	}

	if _, err := s.Repo.GetByFileID(ctx, fileID); err != nil {
		return invoices.Record{}, s.fail(StepFetching, fileID, err)
	}
	data, err := s.readObject(ctx, fileID)
	if err != nil {
		return invoices.Record{}, s.fail(StepFetching, fileID, err)
	}

	text, err := s.Extractor.Extract(ctx, data)
	if err != nil {
		return invoices.Record{}, s.fail(StepParsing, fileID, err)
	}

	prompt, err := llm.BuildPrompt(provider, text)
	if err != nil {
		return invoices.Record{}, s.fail(StepPrompting, fileID, err)
	}

	raw, err := client.Invoke(ctx, prompt)
	if err != nil {
		return invoices.Record{}, s.fail(StepCallingProvider, fileID, err)
	}

	result, err := Normalize(raw)
	if err != nil {
		return invoices.Record{}, s.fail(StepNormalizing, fileID, err)
	}

	updated, err := s.Repo.Update(ctx, fileID, invoices.Patch{
		Vendor:    result.Vendor,
		Invoice:   result.Invoice,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return invoices.Record{}, s.fail(StepPersisting, fileID, err)
	}
	return updated, nil
}

func (s *Service) readObject(ctx context.Context, fileID string) ([]byte, error) {
	body, err := s.Store.Open(ctx, fileID)
	if err != nil {
		return nil, fmt.Errorf("open pdf key=%s: %w", fileID, err)
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, fmt.Errorf("read pdf key=%s: %w", fileID, err)
	}
	return data, nil
}

func (s *Service) fail(step Step, fileID string, err error) *Error {
	return &Error{Kind: classify(err), Step: step, FileID: fileID, Err: err}
}
