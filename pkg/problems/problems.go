package problems

import (
	"os"
	"strings"
)

// Base returns the base URL for problem type identifiers.
// Order of precedence:
// 1. PROBLEM_BASE_URL (exact base, e.g. https://chat.example.com/problems)
// 2. PUBLIC_BASE_URL + "/problems" (if set)
// 3. https://example.com/problems (fallback)
func Base() string {
	if b := strings.TrimSpace(os.Getenv("PROBLEM_BASE_URL")); b != "" {
		return strings.TrimRight(b, "/")
	}
	if b := strings.TrimSpace(os.Getenv("PUBLIC_BASE_URL")); b != "" {
		return strings.TrimRight(b, "/") + "/problems"
	}
	return "https://example.com/problems"
}

// Type builds a full problem type URL for the given slug.
func Type(slug string) string { return Base() + "/" + slug }

// Body is the JSON error document returned by the public API. Error is a
// fixed, generic sentence; it never carries upstream detail.
type Body struct {
	Error string `json:"error"`
	Type  string `json:"type"`
}

// New builds a Body; slug uses dashes (upstream_rejected -> upstream-rejected).
func New(slug, message string) Body {
	return Body{Error: message, Type: Type(strings.ReplaceAll(slug, "_", "-"))}
}
