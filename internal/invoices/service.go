package invoices

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"invoice-backend/internal/shared/metrics"
	"invoice-backend/internal/shared/storage/object"
	"invoice-backend/internal/shared/telemetry"
	"invoice-backend/internal/shared/util"
)

const mimePDF = "application/pdf"

// Service contains business logic for invoice records and their stored PDFs.
type Service struct {
	Store object.ObjectStore
	Repo  Repo
	Now   func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now().UTC()
	}
	return time.Now().UTC()
}

// Upload stores a PDF and creates its placeholder record.
func (s *Service) Upload(ctx context.Context, fileName string, r io.Reader) (Record, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return Record{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	if _, err := util.SanitizeFileName(fileName); err != nil {
		return Record{}, fmt.Errorf("%w: %v: %q", ErrInvalidInput, err, fileName)
	}

	var sniff [512]byte
	n, err := io.ReadFull(r, sniff[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return Record{}, fmt.Errorf("read upload: %w", err)
	}
	if n == 0 || http.DetectContentType(sniff[:n]) != mimePDF {
		return Record{}, ErrNotPDF
	}

	fileID, size, _, err := s.Store.Save(ctx, fileName, io.MultiReader(bytes.NewReader(sniff[:n]), r))
	if err != nil {
		if errors.Is(err, util.ErrInvalidFileName) {
			return Record{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return Record{}, fmt.Errorf("store pdf name=%s: %w", fileName, err)
	}

	rec := NewPlaceholder(fileID, fileName, s.now())
	if err := s.Repo.Create(ctx, rec); err != nil {
		if delErr := s.Store.Delete(context.WithoutCancel(ctx), fileID); delErr != nil {
			telemetry.Error("invoice.upload_cleanup_failed", map[string]any{"file_id": fileID, "error": delErr})
		}
		return Record{}, fmt.Errorf("create record file_id=%s: %w", fileID, err)
	}

	metrics.IncUploads()
	telemetry.Info("invoice.uploaded", map[string]any{
		"file_id":    fileID,
		"file_name":  fileName,
		"size_bytes": size,
	})
	return rec, nil
}

// Get returns the record for fileID.
func (s *Service) Get(ctx context.Context, fileID string) (Record, error) {
	if !ValidFileID(fileID) {
		return Record{}, fmt.Errorf("%w: malformed fileId", ErrInvalidInput)
	}
	return s.Repo.GetByFileID(ctx, fileID)
}

// List returns records whose vendor name contains search, newest first.
func (s *Service) List(ctx context.Context, search string) ([]Record, error) {
	return s.Repo.List(ctx, Filter{VendorName: search})
}

// Edit applies a manual correction and stamps updatedAt.
func (s *Service) Edit(ctx context.Context, fileID string, req EditRequest) (Record, error) {
	if !ValidFileID(fileID) {
		return Record{}, fmt.Errorf("%w: malformed fileId", ErrInvalidInput)
	}
	if req.FileID != "" && req.FileID != fileID {
		return Record{}, fmt.Errorf("%w: fileId in body does not match path", ErrInvalidInput)
	}
	p := req.toPatch()
	p.UpdatedAt = s.now()
	rec, err := s.Repo.Update(ctx, fileID, p)
	if err != nil {
		return Record{}, err
	}
	telemetry.Info("invoice.edited", map[string]any{"file_id": fileID})
	return rec, nil
}

// Delete removes the stored PDF and then its record.
func (s *Service) Delete(ctx context.Context, fileID string) error {
	if !ValidFileID(fileID) {
		return fmt.Errorf("%w: malformed fileId", ErrInvalidInput)
	}
	if _, err := s.Repo.GetByFileID(ctx, fileID); err != nil {
		return err
	}
	if err := s.Store.Delete(ctx, fileID); err != nil && !errors.Is(err, object.ErrNotFound) {
		return fmt.Errorf("delete pdf file_id=%s: %w", fileID, err)
	}
	if err := s.Repo.Delete(ctx, fileID); err != nil {
		return err
	}
	telemetry.Info("invoice.deleted", map[string]any{"file_id": fileID})
	return nil
}

// OpenFile returns a reader over the stored PDF. The caller closes it.
func (s *Service) OpenFile(ctx context.Context, fileID string) (Record, io.ReadCloser, error) {
	rec, err := s.Get(ctx, fileID)
	if err != nil {
		return Record{}, nil, err
	}
	body, err := s.Store.Open(ctx, fileID)
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return Record{}, nil, ErrNotFound
		}
		return Record{}, nil, err
	}
	return rec, body, nil
}
