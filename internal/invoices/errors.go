package invoices

import (
	"errors"
	"regexp"
)

var (
	ErrNotFound      = errors.New("invoice not found")
	ErrAlreadyExists = errors.New("invoice already exists")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNotPDF        = errors.New("file is not a pdf")
)

const (
	ErrorCodeValidation = "VALIDATION_ERROR"
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeNotPDF     = "UNSUPPORTED_MEDIA_TYPE"
	ErrorCodeStorage    = "STORAGE_ERROR"
	ErrorCodeInternal   = "INTERNAL"
)

var fileIDPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidFileID reports whether id is a well-formed file identifier.
func ValidFileID(id string) bool {
	return fileIDPattern.MatchString(id)
}
