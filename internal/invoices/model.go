package invoices

import "time"

// Record is the metadata stored for one uploaded invoice PDF. FileID is also the
// object store key of the PDF itself.
type Record struct {
	FileID    string     `json:"fileId" bson:"fileId"`
	FileName  string     `json:"fileName" bson:"fileName"`
	Vendor    Vendor     `json:"vendor" bson:"vendor"`
	Invoice   Details    `json:"invoice" bson:"invoice"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// Vendor identifies the party that issued the invoice.
type Vendor struct {
	Name    string  `json:"name" bson:"name"`
	Address *string `json:"address,omitempty" bson:"address,omitempty"`
	TaxID   *string `json:"taxId,omitempty" bson:"taxId,omitempty"`
}

// Details holds the invoice header and its line items.
type Details struct {
	Number     string     `json:"number" bson:"number"`
	Date       string     `json:"date" bson:"date"`
	Currency   *string    `json:"currency,omitempty" bson:"currency,omitempty"`
	Subtotal   *float64   `json:"subtotal,omitempty" bson:"subtotal,omitempty"`
	TaxPercent *float64   `json:"taxPercent,omitempty" bson:"taxPercent,omitempty"`
	Total      *float64   `json:"total,omitempty" bson:"total,omitempty"`
	PONumber   *string    `json:"poNumber,omitempty" bson:"poNumber,omitempty"`
	PODate     *string    `json:"poDate,omitempty" bson:"poDate,omitempty"`
	LineItems  []LineItem `json:"lineItems" bson:"lineItems"`
}

// LineItem is one billed row. Totals are stored as given, never recomputed.
type LineItem struct {
	Description string  `json:"description" bson:"description"`
	UnitPrice   float64 `json:"unitPrice" bson:"unitPrice"`
	Quantity    float64 `json:"quantity" bson:"quantity"`
	Total       float64 `json:"total" bson:"total"`
}

// Patch replaces the non-nil parts of a record. Each present subtree is replaced whole.
type Patch struct {
	FileName  *string
	Vendor    *Vendor
	Invoice   *Details
	UpdatedAt time.Time
}

// Filter narrows List results.
type Filter struct {
	// VendorName matches as a case-insensitive literal substring. Empty matches everything.
	VendorName string
}

// Placeholder values seeded at upload time, before any extraction has run.
const (
	UnknownVendorName    = "Unknown"
	UnknownInvoiceNumber = "Unknown"
)

// NewPlaceholder returns the record created as soon as a PDF is stored.
func NewPlaceholder(fileID, fileName string, now time.Time) Record {
	return Record{
		FileID:   fileID,
		FileName: fileName,
		Vendor:   Vendor{Name: UnknownVendorName},
		Invoice: Details{
			Number:    UnknownInvoiceNumber,
			Date:      now.UTC().Format(time.RFC3339),
			LineItems: []LineItem{},
		},
		CreatedAt: now.UTC(),
	}
}

func (p Patch) normalized() Patch {
	if p.Invoice != nil && p.Invoice.LineItems == nil {
		inv := *p.Invoice
		inv.LineItems = []LineItem{}
		p.Invoice = &inv
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	return p
}

func (r Record) apply(p Patch) Record {
	if p.FileName != nil {
		r.FileName = *p.FileName
	}
	if p.Vendor != nil {
		r.Vendor = *p.Vendor
	}
	if p.Invoice != nil {
		r.Invoice = *p.Invoice
	}
	updated := p.UpdatedAt
	r.UpdatedAt = &updated
	return r
}
