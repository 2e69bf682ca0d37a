package extraction

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"invoice-backend/internal/invoices"
)

// Result is the structured projection of a provider reply. Nil subtrees were absent.
type Result struct {
	Vendor  *invoices.Vendor  `json:"vendor"`
	Invoice *invoices.Details `json:"invoice"`
}

// Normalize pulls the JSON object out of raw and projects it onto a Result.
//
// Text that is not already a bare object is cut from the first '{' to the last '}'.
// A stray '}' before the object or '{' after it defeats that scan; the provider
// prompt asks for JSON only, so this is accepted.
//
// Only a parse failure or a non-object top level is fatal. Fields are copied one by
// one: a scalar in a text field keeps its literal text, a numeric string in a number
// field is read as a number, and any other mismatched field is left absent.
func Normalize(raw string) (Result, error) {
	s := strings.TrimSpace(raw)
	if !(strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) {
		start := strings.Index(s, "{")
		end := strings.LastIndex(s, "}")
		if start < 0 || end < start {
			return Result{}, fmt.Errorf("%w: no json object found", ErrMalformedJSON)
		}
		s = s[start : end+1]
	}

	var top fields
	if err := json.Unmarshal([]byte(s), &top); err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrMalformedJSON, err)
	}
	if top == nil {
		return Result{}, fmt.Errorf("%w: top level is not an object", ErrMalformedJSON)
	}

	var res Result
	if v, ok := top.object("vendor"); ok {
		res.Vendor = projectVendor(v)
	}
	if inv, ok := top.object("invoice"); ok {
		res.Invoice = projectDetails(inv)
	}
	return res, nil
}

func projectVendor(f fields) *invoices.Vendor {
	name, _ := f.text("name")
	return &invoices.Vendor{
		Name:    name,
		Address: f.textPtr("address"),
		TaxID:   f.textPtr("taxId"),
	}
}

func projectDetails(f fields) *invoices.Details {
	number, _ := f.text("number")
	date, _ := f.text("date")
	d := &invoices.Details{
		Number:     number,
		Date:       date,
		Currency:   f.textPtr("currency"),
		Subtotal:   f.numberPtr("subtotal"),
		TaxPercent: f.numberPtr("taxPercent"),
		Total:      f.numberPtr("total"),
		PONumber:   f.textPtr("poNumber"),
		PODate:     f.textPtr("poDate"),
	}
	if rows, ok := f.array("lineItems"); ok {
		d.LineItems = make([]invoices.LineItem, 0, len(rows))
		for _, row := range rows {
			item, ok := asObject(row)
			if !ok {
				continue
			}
			desc, _ := item.text("description")
			unit, _ := item.number("unitPrice")
			qty, _ := item.number("quantity")
			total, _ := item.number("total")
			d.LineItems = append(d.LineItems, invoices.LineItem{
				Description: desc,
				UnitPrice:   unit,
				Quantity:    qty,
				Total:       total,
			})
		}
	}
	return d
}

// fields is one decoded JSON object with its values left raw.
type fields map[string]json.RawMessage

func asObject(raw json.RawMessage) (fields, bool) {
	var f fields
	if err := json.Unmarshal(raw, &f); err != nil || f == nil {
		return nil, false
	}
	return f, true
}

func (f fields) object(key string) (fields, bool) {
	raw, ok := f[key]
	if !ok {
		return nil, false
	}
	return asObject(raw)
}

func (f fields) array(key string) ([]json.RawMessage, bool) {
	raw, ok := f[key]
	if !ok {
		return nil, false
	}
	var rows []json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil || rows == nil {
		return nil, false
	}
	return rows, true
}

// scalar decodes a string, number or bool value; anything else reports false.
func (f fields) scalar(key string) (any, bool) {
	raw, ok := f[key]
	if !ok {
		return nil, false
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, false
	}
	switch v.(type) {
	case string, float64, bool:
		return v, true
	default:
		return nil, false
	}
}

func (f fields) text(key string) (string, bool) {
	v, ok := f.scalar(key)
	if !ok {
		return "", false
	}
	switch t := v.(type) {
	case string:
		return t, true
	case bool:
		return strconv.FormatBool(t), true
	default:
		// numbers keep the literal text the model wrote, e.g. 1001 or 12.50
		return strings.TrimSpace(string(f[key])), true
	}
}

func (f fields) textPtr(key string) *string {
	s, ok := f.text(key)
	if !ok {
		return nil
	}
	return &s
}

func (f fields) number(key string) (float64, bool) {
	v, ok := f.scalar(key)
	if !ok {
		return 0, false
	}
	switch t := v.(type) {
	case float64:
		return t, true
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	default:
		return 0, false
	}
}

func (f fields) numberPtr(key string) *float64 {
	n, ok := f.number(key)
	if !ok {
		return nil
	}
	return &n
}
