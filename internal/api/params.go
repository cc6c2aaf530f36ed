package api

import (
	"net/url"
	"strings"
)

// parseBoolParam parses a boolean parameter from query string.
// Returns the value and whether it was present.
// Accepts: true/false, 1/0, yes/no (case-insensitive).
func parseBoolParam(query url.Values, key string) (bool, bool) {
	if val := query.Get(key); val != "" {
		switch strings.ToLower(strings.TrimSpace(val)) {
		case "true", "1", "yes":
			return true, true
		default:
			return false, true
		}
	}
	return false, false
}

// parseStringParam parses a string parameter from query string with minimum length validation.
// Returns empty string and false if the parameter doesn't meet minimum length.
// The returned value is trimmed of leading/trailing whitespace.
func parseStringParam(query url.Values, key string, minLength int) (string, bool) {
	if val := query.Get(key); val != "" {
		trimmed := strings.TrimSpace(val)
		if len(trimmed) >= minLength {
			return trimmed, true
		}
	}
	return "", false
}

// parsePathString unescapes a URL path segment.
func parsePathString(pathPart string, fieldName string) (string, error) {
	decoded, err := url.PathUnescape(pathPart)
	if err != nil {
		return "", &ParamError{
			Field:   fieldName,
			Value:   pathPart,
			Message: "invalid " + fieldName + " encoding",
		}
	}
	if decoded == "" {
		return "", &ParamError{
			Field:   fieldName,
			Value:   pathPart,
			Message: fieldName + " cannot be empty",
		}
	}
	return decoded, nil
}

// ParamError represents a parameter parsing error.
type ParamError struct {
	Field   string
	Value   string
	Message string
}

func (e *ParamError) Error() string {
	return e.Message
}
