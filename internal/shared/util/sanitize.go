package util

import (
	"errors"
	"strings"
)

// ErrInvalidFileName marks an upload name that is empty or walks out of its directory.
var ErrInvalidFileName = errors.New("invalid file name")

// SanitizeFileName flattens an upload name to a single path element. Separators
// become '_'. Absolute paths, NUL bytes and ".." segments are rejected; ".." inside
// a segment such as "invoice..v2.pdf" is kept.
func SanitizeFileName(name string) (string, error) {
	s := strings.TrimSpace(name)
	if s == "" || strings.ContainsRune(s, 0) {
		return "", ErrInvalidFileName
	}
	if strings.HasPrefix(s, "/") || strings.HasPrefix(s, `\`) || hasDrivePrefix(s) {
		return "", ErrInvalidFileName
	}
	segments := strings.FieldsFunc(s, func(r rune) bool { return r == '/' || r == '\\' })
	for _, seg := range segments {
		if seg == ".." {
			return "", ErrInvalidFileName
		}
	}
	s = strings.Join(segments, "_")
	if s == "" || s == "." {
		return "", ErrInvalidFileName
	}
	return s, nil
}

// hasDrivePrefix reports a Windows drive path such as `C:\scans` or `c:/scans`.
func hasDrivePrefix(s string) bool {
	if len(s) < 3 || s[1] != ':' || (s[2] != '\\' && s[2] != '/') {
		return false
	}
	c := s[0] | 0x20
	return c >= 'a' && c <= 'z'
}
