package llm

import (
	_ "embed"
	"fmt"
	"strings"
)

// InvoiceSchema is the JSON skeleton every provider is asked to fill in.
//
//go:embed prompts/invoice_schema.json
var InvoiceSchema string

const (
	geminiDirective = "Extract the following fields from this invoice PDF and return ONLY valid JSON. " +
		"Use empty strings for text fields and 0 for numbers:"
	groqDirective = "Extract the following fields from this invoice PDF and return ONLY valid JSON and convert numeric fields to numbers. " +
		"Use empty strings for text fields and 0 for numbers, and don't respond with any text other than the JSON.\n" +
		"Use this exact JSON format in the response:"
	contentMarker = "PDF Content:"
)

// BuildPrompt renders the extraction instruction for provider around the document text.
// The text is embedded verbatim.
func BuildPrompt(provider Provider, text string) (string, error) {
	var directive string
	switch provider {
	case ProviderGemini:
		directive = geminiDirective
	case ProviderGroq:
		directive = groqDirective
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedProvider, string(provider))
	}

	var b strings.Builder
	b.Grow(len(directive) + len(InvoiceSchema) + len(text) + 32)
	b.WriteString(directive)
	b.WriteString("\n")
	b.WriteString(strings.TrimSpace(InvoiceSchema))
	b.WriteString("\n\n")
	b.WriteString(contentMarker)
	b.WriteString("\n")
	b.WriteString(text)
	return b.String(), nil
}
