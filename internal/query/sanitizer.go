// Package query holds the small amount of request-to-SQL plumbing shared by
// the list endpoints: sort whitelisting, pagination and input cleanup.
package query

import (
	"fmt"
	"regexp"
	"strings"
)

// identifierRegex validates column names used in ORDER BY.
var identifierRegex = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// ValidateIdentifier rejects anything that is not a plain column name.
func ValidateIdentifier(name string) error {
	if len(name) == 0 {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("identifier too long (max 64 chars): %q", name)
	}
	if !identifierRegex.MatchString(name) {
		return fmt.Errorf("invalid identifier %q: must match [a-zA-Z_][a-zA-Z0-9_]*", name)
	}
	return nil
}

// CleanText trims surrounding whitespace, removes null bytes and enforces a
// maximum length. A maxLen of zero means 65535.
func CleanText(val string, maxLen int) (string, error) {
	if maxLen <= 0 {
		maxLen = 65535
	}
	val = strings.TrimSpace(strings.ReplaceAll(val, "\x00", ""))
	if len(val) > maxLen {
		return "", fmt.Errorf("value too long (max %d chars)", maxLen)
	}
	return val, nil
}

// LikePattern escapes LIKE wildcards in a user search term and wraps it for
// a contains match. The escape character is "!" so the same pattern works
// with an ESCAPE clause on every supported dialect.
func LikePattern(term string) string {
	r := strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")
	return "%" + r.Replace(term) + "%"
}
