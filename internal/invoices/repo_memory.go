package invoices

import (
	"context"
	"sort"
	"strings"
	"sync"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Record // fileId -> record
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		data: make(map[string]Record),
	}
}

func (r *MemoryRepo) GetByFileID(ctx context.Context, fileID string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.data[fileID]
	if !ok {
		return Record{}, ErrNotFound
	}
	return cloneRecord(rec), nil
}

func (r *MemoryRepo) Create(ctx context.Context, rec Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[rec.FileID]; ok {
		return ErrAlreadyExists
	}
	r.data[rec.FileID] = cloneRecord(rec)
	return nil
}

func (r *MemoryRepo) Update(ctx context.Context, fileID string, p Patch) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	p = p.normalized()
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.data[fileID]
	if !ok {
		return Record{}, ErrNotFound
	}
	rec = cloneRecord(rec.apply(p))
	r.data[fileID] = rec
	return cloneRecord(rec), nil
}

func (r *MemoryRepo) List(ctx context.Context, f Filter) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	needle := strings.ToLower(strings.TrimSpace(f.VendorName))

	r.mu.RLock()
	out := make([]Record, 0, len(r.data))
	for _, rec := range r.data {
		if needle != "" && !strings.Contains(strings.ToLower(rec.Vendor.Name), needle) {
			continue
		}
		out = append(out, cloneRecord(rec))
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].FileID < out[j].FileID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *MemoryRepo) Delete(ctx context.Context, fileID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[fileID]; !ok {
		return ErrNotFound
	}
	delete(r.data, fileID)
	return nil
}

// cloneRecord copies the line item slice so callers cannot mutate stored state.
// cloneRecord copies every pointer and slice so callers never share state with the map.
func cloneRecord(rec Record) Record {
	rec.Vendor.Address = clonePtr(rec.Vendor.Address)
	rec.Vendor.TaxID = clonePtr(rec.Vendor.TaxID)
	rec.Invoice.Currency = clonePtr(rec.Invoice.Currency)
	rec.Invoice.Subtotal = clonePtr(rec.Invoice.Subtotal)
	rec.Invoice.TaxPercent = clonePtr(rec.Invoice.TaxPercent)
	rec.Invoice.Total = clonePtr(rec.Invoice.Total)
	rec.Invoice.PONumber = clonePtr(rec.Invoice.PONumber)
	rec.Invoice.PODate = clonePtr(rec.Invoice.PODate)
	rec.UpdatedAt = clonePtr(rec.UpdatedAt)
	if rec.Invoice.LineItems != nil {
		items := make([]LineItem, len(rec.Invoice.LineItems))
		copy(items, rec.Invoice.LineItems)
		rec.Invoice.LineItems = items
	}
	return rec
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

var _ Repo = (*MemoryRepo)(nil)
