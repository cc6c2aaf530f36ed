package parser

import (
	"strings"
	"unicode/utf8"
)

// sanitizeUTF8 ensures the string is valid UTF-8.
// It replaces invalid UTF-8 sequences with '?'.
func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}

	var result strings.Builder
	for _, r := range s {
		if r == utf8.RuneError {
			result.WriteRune('?')
		} else {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// cleanLine prepares a raw dump line for classification: carriage returns,
// NULs left over from mis-decoded UTF-16 and surrounding whitespace go.
func cleanLine(raw string) string {
	if strings.IndexByte(raw, 0) >= 0 {
		raw = strings.ReplaceAll(raw, "\x00", "")
	}
	return strings.TrimSpace(sanitizeUTF8(raw))
}

// stripParenSuffix removes trailing parenthetical annotations from a field
// name, e.g. "android.lens.info.minimumFocusDistance (diopters)".
func stripParenSuffix(name string) string {
	name = strings.TrimSpace(name)
	for strings.HasSuffix(name, ")") {
		open := strings.LastIndexByte(name, '(')
		if open <= 0 {
			break
		}
		name = strings.TrimSpace(name[:open])
	}
	return name
}
