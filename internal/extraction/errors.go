package extraction

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"invoice-backend/internal/extract"
	"invoice-backend/internal/invoices"
	"invoice-backend/internal/llm"
	"invoice-backend/internal/shared/storage/object"
)

// ErrMalformedJSON means the provider reply held no decodable invoice object.
var ErrMalformedJSON = errors.New("malformed json in provider response")

// Kind classifies an extraction failure for callers and HTTP mapping.
type Kind string

const (
	KindNotFound              Kind = "NOT_FOUND"
	KindUnsupportedProvider   Kind = "UNSUPPORTED_PROVIDER"
	KindUnreadablePDF         Kind = "UNREADABLE_PDF"
	KindProviderUnavailable   Kind = "PROVIDER_UNAVAILABLE"
	KindProviderEmptyResponse Kind = "PROVIDER_EMPTY_RESPONSE"
	KindMalformedJSON         Kind = "MALFORMED_JSON"
	KindCanceled              Kind = "CANCELED"
	KindInternal              Kind = "INTERNAL"
)

// HTTPStatus maps the kind onto a response status.
func (k Kind) HTTPStatus() int {
	switch k {
	case KindNotFound:
		return http.StatusNotFound
	case KindUnsupportedProvider, KindUnreadablePDF:
		return http.StatusBadRequest
	case KindProviderUnavailable, KindProviderEmptyResponse, KindMalformedJSON:
		return http.StatusBadGateway
	case KindCanceled:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Message is the client-facing description of the kind.
func (k Kind) Message() string {
	switch k {
	case KindNotFound:
		return "file not found"
	case KindUnsupportedProvider:
		return "unsupported model"
	case KindUnreadablePDF:
		return "could not read text from the PDF"
	case KindProviderUnavailable:
		return "model provider is unavailable"
	case KindProviderEmptyResponse:
		return "model provider returned an empty response"
	case KindMalformedJSON:
		return "model provider returned malformed JSON"
	case KindCanceled:
		return "extraction was canceled before it finished"
	default:
		return "extraction failed"
	}
}

// Step names a stage of the pipeline.
type Step string

const (
	StepFetching        Step = "fetching"
	StepParsing         Step = "parsing"
	StepPrompting       Step = "prompting"
	StepCallingProvider Step = "calling_provider"
	StepNormalizing     Step = "normalizing"
	StepPersisting      Step = "persisting"
)

// Error reports a failed extraction with the step it stopped at.
type Error struct {
	Kind   Kind
	Step   Step
	FileID string
	Err    error
}

func (e *Error) Error() string {
	return fmt.Sprintf("extraction %s at %s file_id=%s: %v", e.Kind, e.Step, e.FileID, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of an extraction error, or KindInternal for anything else.
func KindOf(err error) Kind {
	var ee *Error
	if errors.As(err, &ee) {
		return ee.Kind
	}
	return KindInternal
}

func classify(err error) Kind {
	switch {
	case errors.Is(err, invoices.ErrNotFound), errors.Is(err, object.ErrNotFound):
		return KindNotFound
	case errors.Is(err, llm.ErrUnsupportedProvider):
		return KindUnsupportedProvider
	case errors.Is(err, extract.ErrUnreadablePDF):
		return KindUnreadablePDF
	case errors.Is(err, llm.ErrEmptyResponse):
		return KindProviderEmptyResponse
	case errors.Is(err, llm.ErrProviderUnavailable):
		return KindProviderUnavailable
	case errors.Is(err, ErrMalformedJSON):
		return KindMalformedJSON
	case errors.Is(err, extract.ErrCanceled),
		errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	default:
		return KindInternal
	}
}
