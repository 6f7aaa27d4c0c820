package querysql

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/querylang"
	"github.com/roach88/treestore/internal/queryir"
)

func compileSQLite(t *testing.T, p queryir.Predicate) Fragment {
	t.Helper()
	frag, err := NewCompiler(SQLite{}).Compile(p)
	require.NoError(t, err)
	return frag
}

func TestCompile_SQLite(t *testing.T) {
	tests := []struct {
		name   string
		pred   queryir.Predicate
		sql    string
		params []any
	}{
		{
			name: "true",
			pred: queryir.True{},
			sql:  "1 = 1",
		},
		{
			name: "nil is true",
			pred: nil,
			sql:  "1 = 1",
		},
		{
			name: "empty or",
			pred: queryir.Or{},
			sql:  "1 = 0",
		},
		{
			name:   "meta equality",
			pred:   querylang.MustParse("name = 'x'"),
			sql:    "name = ?",
			params: []any{"x"},
		},
		{
			name:   "meta like",
			pred:   querylang.MustParse("path ~ '/a/%'"),
			sql:    "path GLOB ?",
			params: []any{"/a/*"},
		},
		{
			name:   "data number",
			pred:   querylang.MustParse("data.age >= 21"),
			sql:    "CASE WHEN json_type(data, ?) IN ('integer', 'real') THEN json_extract(data, ?) END >= ?",
			params: []any{`$."age"`, `$."age"`, int64(21)},
		},
		{
			name:   "data nested string",
			pred:   querylang.MustParse("data.a.b = 'v'"),
			sql:    "CASE WHEN json_type(data, ?) IN ('text') THEN json_extract(data, ?) END = ?",
			params: []any{`$."a"."b"`, `$."a"."b"`, "v"},
		},
		{
			name:   "data bool",
			pred:   querylang.MustParse("data.ok = true"),
			sql:    "(data -> ?) = json(?)",
			params: []any{`$."ok"`, "true"},
		},
		{
			name:   "data bool not equal",
			pred:   querylang.MustParse("data.ok != false"),
			sql:    "NOT ((data -> ?) = json(?))",
			params: []any{`$."ok"`, "false"},
		},
		{
			name:   "data null",
			pred:   querylang.MustParse("data.x = null"),
			sql:    "COALESCE(json_type(data, ?), 'null') = 'null'",
			params: []any{`$."x"`},
		},
		{
			name:   "data not null",
			pred:   querylang.MustParse("data.x != null"),
			sql:    "NOT (COALESCE(json_type(data, ?), 'null') = 'null')",
			params: []any{`$."x"`},
		},
		{
			name:   "meta in",
			pred:   querylang.MustParse("name in ('a', 'b')"),
			sql:    "name IN (?, ?)",
			params: []any{"a", "b"},
		},
		{
			name:   "not or",
			pred:   querylang.MustParse("not (name = 'a' or parent = '/b/')"),
			sql:    "NOT (name = ? OR parent = ?)",
			params: []any{"a", "/b/"},
		},
		{
			name:   "and with nested or",
			pred:   querylang.MustParse("name = 'a' and (parent = '/b/' or path ~ '/c/%')"),
			sql:    "name = ? AND (parent = ? OR path GLOB ?)",
			params: []any{"a", "/b/", "/c/*"},
		},
		{
			name:   "data in inside and",
			pred:   querylang.MustParse("name = 'a' and data.n in (1, 2)"),
			sql:    "name = ? AND (CASE WHEN json_type(data, ?) IN ('integer', 'real') THEN json_extract(data, ?) END = ? OR CASE WHEN json_type(data, ?) IN ('integer', 'real') THEN json_extract(data, ?) END = ?)",
			params: []any{"a", `$."n"`, `$."n"`, int64(1), `$."n"`, `$."n"`, int64(2)},
		},
		{
			name:   "under",
			pred:   queryir.Under{Prefix: "/a/"},
			sql:    "substr(path, 1, ?) = ?",
			params: []any{int64(3), "/a/"},
		},
		{
			name:   "under counts characters",
			pred:   queryir.Under{Prefix: "/caf\u00e9/"},
			sql:    "substr(path, 1, ?) = ?",
			params: []any{int64(6), "/caf\u00e9/"},
		},
		{
			name: "under root",
			pred: queryir.Under{Prefix: "/"},
			sql:  "1 = 1",
		},
		{
			name:   "ancestor of",
			pred:   queryir.AncestorOf{Path: "/a/b/"},
			sql:    "substr(?, 1, length(path)) = path",
			params: []any{"/a/b/"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frag := compileSQLite(t, tt.pred)
			assert.Equal(t, tt.sql, frag.SQL)
			if tt.params == nil {
				assert.Empty(t, frag.Args())
			} else {
				assert.Equal(t, tt.params, frag.Args())
			}
			assert.Equal(t, strings.Count(frag.SQL, "?"), len(frag.Params), "one parameter per placeholder")
		})
	}
}

func TestCompile_ParamNames(t *testing.T) {
	frag := compileSQLite(t, querylang.MustParse("name = 'a' and parent = '/'"))

	require.Len(t, frag.Params, 2)
	assert.Equal(t, "p1", frag.Params[0].Name)
	assert.Equal(t, "p2", frag.Params[1].Name)

	v, ok := frag.Params.Get("p2")
	assert.True(t, ok)
	assert.Equal(t, "/", v)

	_, ok = frag.Params.Get("p3")
	assert.False(t, ok)
}

func TestCompile_PostgresNumbersPlaceholders(t *testing.T) {
	frag, err := NewCompiler(Postgres{}).Compile(querylang.MustParse("name = 'a' or data.n > 1"))
	require.NoError(t, err)

	assert.Equal(t,
		"name = $1 OR CASE WHEN jsonb_typeof(data #> $2::text[]) = 'number' THEN (data #>> $3::text[])::numeric END > $4",
		frag.SQL)
	assert.Equal(t, []any{"a", `{"n"}`, `{"n"}`, int64(1)}, frag.Args())
}

func TestCompile_PostgresKeyEscaping(t *testing.T) {
	frag, err := NewCompiler(Postgres{}).Compile(queryir.Compare{
		Field: queryir.Data(`we"ird`, `back\slash`),
		Op:    queryir.OpEq,
		Value: ir.String("v"),
	})
	require.NoError(t, err)
	assert.Equal(t, `{"we\"ird","back\\slash"}`, frag.Args()[0])
}

func TestCompile_RejectsUnaddressableKeys(t *testing.T) {
	pred := queryir.Compare{Field: queryir.Data(`a"b`), Op: queryir.OpEq, Value: ir.String("v")}

	for _, d := range []Dialect{SQLite{}, MySQL{}} {
		_, err := NewCompiler(d).Compile(pred)
		assert.Error(t, err, d.Name())
	}
}

func TestCompile_RejectsInvalidPredicates(t *testing.T) {
	tests := []struct {
		name string
		pred queryir.Predicate
	}{
		{"meta with number", queryir.Compare{Field: queryir.Meta("name"), Op: queryir.OpEq, Value: ir.Int(1)}},
		{"unknown column", queryir.Compare{Field: queryir.Meta("size"), Op: queryir.OpEq, Value: ir.String("1")}},
		{"empty in", queryir.In{Field: queryir.Data("x")}},
		{"ordering null", queryir.Compare{Field: queryir.Data("x"), Op: queryir.OpLt, Value: ir.Null{}}},
		{"non canonical scope", queryir.Under{Prefix: "a/b"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCompiler(SQLite{}).Compile(tt.pred)
			require.Error(t, err)
			assert.True(t, errors.Is(err, queryir.ErrInvalidPredicate))
		})
	}
}

func TestCompile_LiteralsNeverReachSQL(t *testing.T) {
	attacks := []string{
		`'; DROP TABLE nodes; --`,
		`x' OR '1'='1`,
		`"); DELETE FROM nodes; --`,
		`\'; SELECT 1; --`,
	}

	for _, d := range []Dialect{SQLite{}, MySQL{}, Postgres{}} {
		for _, attack := range attacks {
			pred := queryir.And{Predicates: []queryir.Predicate{
				queryir.Compare{Field: queryir.Meta("name"), Op: queryir.OpEq, Value: ir.String(attack)},
				queryir.Compare{Field: queryir.Data("k' OR 1=1 --"), Op: queryir.OpLike, Value: ir.String(attack)},
				queryir.In{Field: queryir.Meta("parent"), Values: []ir.Value{ir.String(attack)}},
			}}
			frag, err := NewCompiler(d).Compile(pred)
			require.NoError(t, err)

			assert.NotContains(t, frag.SQL, attack, d.Name())
			assert.NotContains(t, frag.SQL, "DROP", d.Name())
			assert.NotContains(t, frag.SQL, "OR 1=1", d.Name())
			assert.Contains(t, frag.Args(), attack, d.Name())
		}
	}
}

func TestCompile_ParsedInjectionStaysBound(t *testing.T) {
	pred, err := querylang.Parse(`name = '\'; DROP TABLE nodes; --'`)
	require.NoError(t, err)

	frag := compileSQLite(t, pred)
	assert.Equal(t, "name = ?", frag.SQL)
	assert.Equal(t, []any{"'; DROP TABLE nodes; --"}, frag.Args())
}

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		d, err := Lookup(name)
		require.NoError(t, err)
		assert.Equal(t, name, d.Name())
	}

	d, err := Lookup("SQLite")
	require.NoError(t, err)
	assert.Equal(t, "sqlite", d.Name())

	_, err = Lookup("oracle")
	assert.ErrorIs(t, err, ErrUnknownDialect)
}

func TestLikeToGlob(t *testing.T) {
	tests := []struct {
		like, glob string
	}{
		{"a%", "a*"},
		{"_b_", "?b?"},
		{"plain", "plain"},
		{"a*b", "a[*]b"},
		{"why?", "why[?]"},
		{"[x]%", "[[]x]*"},
		{"é%", "é*"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.glob, likeToGlob(tt.like), tt.like)
	}
}

func TestOrderBy(t *testing.T) {
	assert.Equal(t, "path COLLATE BINARY ASC", SQLite{}.OrderBy("path"))
	assert.Equal(t, "path ASC", MySQL{}.OrderBy("path"))
	assert.Equal(t, `path COLLATE "C" ASC`, Postgres{}.OrderBy("path"))
}
