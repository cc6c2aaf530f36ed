package parser

import "strings"

// Datatypes the dump format is known to print for typed fields.
var knownDatatypes = map[string]bool{
	"byte":     true,
	"int32":    true,
	"int64":    true,
	"float":    true,
	"double":   true,
	"rational": true,
}

// IsKnownDatatype reports whether datatype is one the decoder recognises.
func IsKnownDatatype(datatype string) bool {
	return knownDatatypes[strings.ToLower(datatype)]
}

// DecodeValues splits the content of one bracketed value line into its
// textual elements. Rationals and any content holding parenthesised groups
// yield one element per group; everything else splits on whitespace.
func DecodeValues(raw, datatype string) []string {
	if strings.EqualFold(datatype, "rational") || strings.Contains(raw, ")") {
		return splitGroups(raw)
	}
	return strings.Fields(raw)
}

// splitGroups cuts after every ')' and trims separators, so
// "(0, 100) (50, 200)" gives ["(0, 100)", "(50, 200)"].
func splitGroups(raw string) []string {
	values := []string{}
	for len(raw) > 0 {
		end := strings.IndexByte(raw, ')')
		var part string
		if end < 0 {
			part, raw = raw, ""
		} else {
			part, raw = raw[:end+1], raw[end+1:]
		}
		if part = strings.Trim(part, " \t,"); part != "" {
			values = append(values, part)
		}
	}
	return values
}
