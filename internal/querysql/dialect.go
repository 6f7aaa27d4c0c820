package querysql

import (
	"errors"
	"fmt"
	"strings"
)

// Bind records a parameter value and returns the placeholder that refers to
// it. Dialects call it once per placeholder they emit, even when the same
// value appears twice.
type Bind func(v any) string

// ValueKind selects how a JSON payload value is extracted for comparison.
type ValueKind int

const (
	// KindText extracts JSON strings; other JSON types extract as NULL.
	KindText ValueKind = iota
	// KindNumber extracts JSON numbers; other JSON types extract as NULL.
	KindNumber
)

// Dialect renders the database-specific pieces of a predicate. The node
// payload lives in a JSON column; keys are always bound, never spliced.
type Dialect interface {
	// Name identifies the dialect ("sqlite", "mysql", "postgres").
	Name() string
	// Placeholder returns the placeholder for the n-th parameter (1-based).
	Placeholder(n int) string
	// JSONScalar returns an expression yielding the value at keys when it has
	// the given kind, and NULL otherwise.
	JSONScalar(bind Bind, col string, keys []string, kind ValueKind) (string, error)
	// JSONEqual returns a condition that holds when the value at keys equals
	// the JSON document bound as literal.
	JSONEqual(bind Bind, col string, keys []string, literal string) (string, error)
	// JSONAbsent returns a condition that holds when keys is missing or JSON null.
	JSONAbsent(bind Bind, col string, keys []string) (string, error)
	// HasPrefix returns a condition that holds when col starts with prefix.
	HasPrefix(bind Bind, col, prefix string) string
	// PrefixOf returns a condition that holds when col is a prefix of s.
	PrefixOf(bind Bind, col, s string) string
	// Like returns a LIKE condition for expr against the bound pattern.
	Like(bind Bind, expr, pattern string) string
	// OrderBy returns the ORDER BY term giving byte-wise order on col.
	OrderBy(col string) string
}

// ErrUnknownDialect is returned by Lookup for unregistered names.
var ErrUnknownDialect = errors.New("unknown dialect")

var dialects = map[string]Dialect{
	"sqlite":   SQLite{},
	"mysql":    MySQL{},
	"postgres": Postgres{},
}

// Lookup returns the built-in dialect with the given name.
func Lookup(name string) (Dialect, error) {
	d, ok := dialects[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q (want sqlite, mysql or postgres)", ErrUnknownDialect, name)
	}
	return d, nil
}

// Names lists the built-in dialect names.
func Names() []string {
	return []string{"sqlite", "mysql", "postgres"}
}

// jsonPathExpr renders keys as a "$.\"a\".\"b\"" path, the syntax SQLite and
// MySQL share.
func jsonPathExpr(keys []string) (string, error) {
	if len(keys) == 0 {
		return "", errors.New("empty payload key path")
	}
	var b strings.Builder
	b.WriteByte('$')
	for _, k := range keys {
		if k == "" {
			return "", errors.New("empty payload key")
		}
		if strings.ContainsAny(k, "\"\\") {
			return "", fmt.Errorf("payload key %q: quotes and backslashes are not addressable", k)
		}
		b.WriteString(`."`)
		b.WriteString(k)
		b.WriteByte('"')
	}
	return b.String(), nil
}
