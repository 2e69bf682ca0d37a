package gridfs

import (
	"context"
	"errors"
	"testing"

	"invoice-backend/internal/shared/storage/object"
)

// Malformed keys are rejected before the bucket is touched, so a nil database is safe here.
func TestInvalidKeysReportNotFound(t *testing.T) {
	store := New(nil, "")
	if store.bucketName != "pdfs" {
		t.Fatalf("expected default bucket pdfs, got %q", store.bucketName)
	}
	ctx := context.Background()

	if _, err := store.Open(ctx, "not-an-object-id"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("Open: expected ErrNotFound, got %v", err)
	}
	if err := store.Delete(ctx, "zzz"); !errors.Is(err, object.ErrNotFound) {
		t.Fatalf("Delete: expected ErrNotFound, got %v", err)
	}
}

func TestSaveRejectsTraversalName(t *testing.T) {
	store := New(nil, "pdfs")
	if _, _, _, err := store.Save(context.Background(), "../x.pdf", nil); err == nil {
		t.Fatalf("expected sanitize error")
	}
}
