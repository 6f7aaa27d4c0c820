package querysql

import (
	"fmt"
	"strings"
)

// SQLite renders predicates for SQLite 3.38+ (JSON functions built in).
type SQLite struct{}

func (SQLite) Name() string { return "sqlite" }

func (SQLite) Placeholder(int) string { return "?" }

func (SQLite) JSONScalar(bind Bind, col string, keys []string, kind ValueKind) (string, error) {
	path, err := jsonPathExpr(keys)
	if err != nil {
		return "", err
	}
	types := "'text'"
	if kind == KindNumber {
		types = "'integer', 'real'"
	}
	return fmt.Sprintf("CASE WHEN json_type(%s, %s) IN (%s) THEN json_extract(%s, %s) END",
		col, bind(path), types, col, bind(path)), nil
}

func (SQLite) JSONEqual(bind Bind, col string, keys []string, literal string) (string, error) {
	path, err := jsonPathExpr(keys)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("(%s -> %s) = json(%s)", col, bind(path), bind(literal)), nil
}

func (SQLite) JSONAbsent(bind Bind, col string, keys []string) (string, error) {
	path, err := jsonPathExpr(keys)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("COALESCE(json_type(%s, %s), 'null') = 'null'", col, bind(path)), nil
}

func (SQLite) HasPrefix(bind Bind, col, prefix string) string {
	return fmt.Sprintf("substr(%s, 1, %s) = %s", col, bind(runeLen(prefix)), bind(prefix))
}

func (SQLite) PrefixOf(bind Bind, col, s string) string {
	return fmt.Sprintf("substr(%s, 1, length(%s)) = %s", bind(s), col, col)
}

// Like uses GLOB because SQLite's LIKE folds ASCII case.
func (SQLite) Like(bind Bind, expr, pattern string) string {
	return fmt.Sprintf("%s GLOB %s", expr, bind(likeToGlob(pattern)))
}

func (SQLite) OrderBy(col string) string {
	return col + " COLLATE BINARY ASC"
}

// likeToGlob rewrites a LIKE pattern (% and _ wildcards, no escape) as a
// GLOB pattern matching the same strings.
func likeToGlob(pattern string) string {
	var sb strings.Builder
	for _, r := range pattern {
		switch r {
		case '%':
			sb.WriteByte('*')
		case '_':
			sb.WriteByte('?')
		case '*', '?', '[':
			sb.WriteByte('[')
			sb.WriteRune(r)
			sb.WriteByte(']')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// runeLen is the length SQL character functions see.
func runeLen(s string) int64 {
	return int64(len([]rune(s)))
}
