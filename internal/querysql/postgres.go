package querysql

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// Postgres renders predicates for PostgreSQL 11+ with a jsonb payload column.
type Postgres struct{}

func (Postgres) Name() string { return "postgres" }

func (Postgres) Placeholder(n int) string { return "$" + strconv.Itoa(n) }

func (Postgres) JSONScalar(bind Bind, col string, keys []string, kind ValueKind) (string, error) {
	path, err := textArray(keys)
	if err != nil {
		return "", err
	}
	if kind == KindNumber {
		return fmt.Sprintf("CASE WHEN jsonb_typeof(%s #> %s::text[]) = 'number' THEN (%s #>> %s::text[])::numeric END",
			col, bind(path), col, bind(path)), nil
	}
	return fmt.Sprintf("CASE WHEN jsonb_typeof(%s #> %s::text[]) = 'string' THEN %s #>> %s::text[] END",
		col, bind(path), col, bind(path)), nil
}

func (Postgres) JSONEqual(bind Bind, col string, keys []string, literal string) (string, error) {
	path, err := textArray(keys)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s #> %s::text[]) = %s::jsonb", col, bind(path), bind(literal)), nil
}

func (Postgres) JSONAbsent(bind Bind, col string, keys []string) (string, error) {
	path, err := textArray(keys)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("COALESCE(jsonb_typeof(%s #> %s::text[]), 'null') = 'null'", col, bind(path)), nil
}

func (Postgres) HasPrefix(bind Bind, col, prefix string) string {
	return fmt.Sprintf("starts_with(%s, %s)", col, bind(prefix))
}

func (Postgres) PrefixOf(bind Bind, col, s string) string {
	return fmt.Sprintf("starts_with(%s, %s)", bind(s), col)
}

func (Postgres) Like(bind Bind, expr, pattern string) string {
	return fmt.Sprintf("%s LIKE %s", expr, bind(pattern))
}

func (Postgres) OrderBy(col string) string {
	return col + ` COLLATE "C" ASC`
}

// textArray renders keys as a text[] literal, e.g. {"a","b"}.
func textArray(keys []string) (string, error) {
	if len(keys) == 0 {
		return "", errors.New("empty payload key path")
	}
	var b strings.Builder
	b.WriteByte('{')
	for i, k := range keys {
		if k == "" {
			return "", errors.New("empty payload key")
		}
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('"')
		for _, r := range k {
			if r == '"' || r == '\\' {
				b.WriteByte('\\')
			}
			b.WriteRune(r)
		}
		b.WriteByte('"')
	}
	b.WriteByte('}')
	return b.String(), nil
}
