// Package pgident validates and quotes PostgreSQL identifiers so that
// table, column, and sequence names taken from catalog queries can be
// safely interpolated into generated SQL.
package pgident

import (
	"fmt"
	"regexp"
	"strings"
)

var validName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Valid reports whether name is safe to interpolate into SQL without
// quoting rules being bypassed.
func Valid(name string) bool {
	return validName.MatchString(name)
}

// Validate returns an error if name does not match the identifier pattern
// required before it may be used in any generated statement.
func Validate(name string) error {
	if !Valid(name) {
		return fmt.Errorf("invalid table name %q", name)
	}
	return nil
}

// Quote double-quotes a single identifier, escaping embedded quotes.
func Quote(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// QuoteList quotes a slice of identifiers and joins them with commas.
func QuoteList(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = Quote(n)
	}
	return strings.Join(quoted, ", ")
}
