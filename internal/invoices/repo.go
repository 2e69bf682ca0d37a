package invoices

import "context"

// Repo defines persistence operations for invoice records.
type Repo interface {
	GetByFileID(ctx context.Context, fileID string) (Record, error)
	Create(ctx context.Context, rec Record) error
	// Update applies p atomically and returns the updated record.
	Update(ctx context.Context, fileID string, p Patch) (Record, error)
	// List returns matching records, newest first.
	List(ctx context.Context, f Filter) ([]Record, error)
	Delete(ctx context.Context, fileID string) error
}
