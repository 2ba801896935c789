package langsys

import (
	"regexp"
	"strings"
)

var whitespaceRun = regexp.MustCompile(`\s+`)

// Normalize collapses every whitespace run to a single space and trims the result.
func Normalize(s string) string {
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(s, " "))
}

// IsTruthy reports whether an attribute value switches a flag on: it must be
// non-empty and neither "0" nor "false" in any case.
func IsTruthy(value string) bool {
	return value != "" && value != "0" && !strings.EqualFold(value, "false")
}
