package invoices

import (
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

//go:embed schema/edit.json
var editSchemaJSON string

var (
	editSchemaOnce sync.Once
	editSchema     *jsonschema.Schema
	editSchemaErr  error
)

func compiledEditSchema() (*jsonschema.Schema, error) {
	editSchemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("edit.json", strings.NewReader(editSchemaJSON)); err != nil {
			editSchemaErr = fmt.Errorf("add schema: %w", err)
			return
		}
		editSchema, editSchemaErr = compiler.Compile("edit.json")
	})
	return editSchema, editSchemaErr
}

// ValidateEdit checks a manual edit body. Failures wrap ErrInvalidInput and name the
// offending location.
func ValidateEdit(body []byte) error {
	schema, err := compiledEditSchema()
	if err != nil {
		return fmt.Errorf("compile edit schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(body, &v); err != nil {
		return fmt.Errorf("%w: body is not valid JSON", ErrInvalidInput)
	}
	if err := schema.Validate(v); err != nil {
		var ve *jsonschema.ValidationError
		if errors.As(err, &ve) {
			return fmt.Errorf("%w: %s", ErrInvalidInput, leafMessage(ve))
		}
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func leafMessage(ve *jsonschema.ValidationError) string {
	for len(ve.Causes) > 0 {
		ve = ve.Causes[0]
	}
	loc := strings.TrimPrefix(ve.InstanceLocation, "/")
	if loc == "" {
		return ve.Message
	}
	return strings.ReplaceAll(loc, "/", ".") + ": " + ve.Message
}
