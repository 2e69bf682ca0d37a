package llm

import "strings"

// StripCodeFences removes markdown ```json and ``` markers anywhere in s and trims the result.
func StripCodeFences(s string) string {
	s = strings.ReplaceAll(s, "```json", "")
	s = strings.ReplaceAll(s, "```", "")
	return strings.TrimSpace(s)
}
