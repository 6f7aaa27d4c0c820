package querysql

import "fmt"

// MySQL renders predicates for MySQL 8.0.17+. The path column is expected to
// use a binary collation (utf8mb4_bin) so comparisons are byte-wise.
type MySQL struct{}

func (MySQL) Name() string { return "mysql" }

func (MySQL) Placeholder(int) string { return "?" }

func (MySQL) JSONScalar(bind Bind, col string, keys []string, kind ValueKind) (string, error) {
	path, err := jsonPathExpr(keys)
	if err != nil {
		return "", err
	}
	if kind == KindNumber {
		return fmt.Sprintf("CASE WHEN JSON_TYPE(JSON_EXTRACT(%s, %s)) IN ('INTEGER', 'UNSIGNED INTEGER', 'DOUBLE', 'DECIMAL') THEN CAST(JSON_EXTRACT(%s, %s) AS DOUBLE) END",
			col, bind(path), col, bind(path)), nil
	}
	return fmt.Sprintf("CASE WHEN JSON_TYPE(JSON_EXTRACT(%s, %s)) = 'STRING' THEN JSON_UNQUOTE(JSON_EXTRACT(%s, %s)) END",
		col, bind(path), col, bind(path)), nil
}

func (MySQL) JSONEqual(bind Bind, col string, keys []string, literal string) (string, error) {
	path, err := jsonPathExpr(keys)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("JSON_EXTRACT(%s, %s) = CAST(%s AS JSON)", col, bind(path), bind(literal)), nil
}

func (MySQL) JSONAbsent(bind Bind, col string, keys []string) (string, error) {
	path, err := jsonPathExpr(keys)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("COALESCE(JSON_TYPE(JSON_EXTRACT(%s, %s)), 'NULL') = 'NULL'", col, bind(path)), nil
}

func (MySQL) HasPrefix(bind Bind, col, prefix string) string {
	return fmt.Sprintf("LEFT(%s, %s) = %s", col, bind(runeLen(prefix)), bind(prefix))
}

func (MySQL) PrefixOf(bind Bind, col, s string) string {
	return fmt.Sprintf("LEFT(%s, CHAR_LENGTH(%s)) = %s", bind(s), col, col)
}

// Like compares under a binary collation so matching is case-sensitive.
func (MySQL) Like(bind Bind, expr, pattern string) string {
	return fmt.Sprintf("%s LIKE %s COLLATE utf8mb4_bin", expr, bind(pattern))
}

func (MySQL) OrderBy(col string) string {
	return col + " ASC"
}
