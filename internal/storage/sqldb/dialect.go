// Package sqldb implements storage.Store on database/sql for any supported dialect.
package sqldb

import (
	"database/sql"
	"strconv"
	"strings"
)

// Dialect captures the differences between the supported SQL engines
type Dialect struct {
	Name string
	// Schema is executed by Migrate; it must be idempotent
	Schema string
	// Isolation used for evaluation snapshots
	Isolation sql.IsolationLevel
	// Numbered placeholders ($1, $2, ...) instead of ?
	Numbered bool
}

// Rebind rewrites ? placeholders for dialects that number them
func (d Dialect) Rebind(query string) string {
	if !d.Numbered {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
