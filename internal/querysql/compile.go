package querysql

import (
	"fmt"
	"strings"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/queryir"
	"github.com/roach88/treestore/internal/treepath"
)

const (
	// DataColumn holds the JSON payload.
	DataColumn = "data"
	// PathColumn holds the canonical node path.
	PathColumn = queryir.ColPath

	sqlTrue  = "1 = 1"
	sqlFalse = "1 = 0"
)

// Compiler compiles queryir predicates into Fragments for one dialect.
//
// CRITICAL: values are never interpolated. Every literal and JSON key path is
// bound through a placeholder.
type Compiler struct {
	dialect Dialect
}

// NewCompiler creates a Compiler for d.
func NewCompiler(d Dialect) *Compiler {
	return &Compiler{dialect: d}
}

// Dialect returns the compiler's dialect.
func (c *Compiler) Dialect() Dialect {
	return c.dialect
}

// Compile validates p and renders it as a WHERE fragment. A nil predicate
// compiles to an always-true fragment.
func (c *Compiler) Compile(p queryir.Predicate) (Fragment, error) {
	if p == nil {
		p = queryir.True{}
	}
	if err := queryir.Validate(p); err != nil {
		return Fragment{}, err
	}

	b := &binder{dialect: c.dialect}
	sql, err := c.compilePredicate(b, p)
	if err != nil {
		return Fragment{}, fmt.Errorf("compile predicate: %w", err)
	}
	return Fragment{SQL: sql, Params: b.params}, nil
}

func (c *Compiler) compilePredicate(b *binder, p queryir.Predicate) (string, error) {
	switch pred := p.(type) {
	case queryir.True:
		return sqlTrue, nil
	case queryir.And:
		return c.compileJoined(b, pred.Predicates, " AND ", sqlTrue)
	case queryir.Or:
		return c.compileJoined(b, pred.Predicates, " OR ", sqlFalse)
	case queryir.Not:
		inner, err := c.compilePredicate(b, pred.Predicate)
		if err != nil {
			return "", err
		}
		return "NOT (" + inner + ")", nil
	case queryir.Under:
		if pred.Prefix == treepath.Root {
			return sqlTrue, nil
		}
		return c.dialect.HasPrefix(b.bind, PathColumn, pred.Prefix), nil
	case queryir.AncestorOf:
		return c.dialect.PrefixOf(b.bind, PathColumn, pred.Path), nil
	case queryir.Compare:
		return c.compileCompare(b, pred)
	case queryir.In:
		return c.compileIn(b, pred)
	default:
		return "", fmt.Errorf("unsupported predicate type: %T", p)
	}
}

// compileJoined renders operands joined by sep. Compound operands are
// parenthesized so nesting never depends on SQL precedence.
func (c *Compiler) compileJoined(b *binder, preds []queryir.Predicate, sep, empty string) (string, error) {
	if len(preds) == 0 {
		return empty, nil
	}
	parts := make([]string, len(preds))
	for i, sub := range preds {
		sql, err := c.compilePredicate(b, sub)
		if err != nil {
			return "", err
		}
		if len(preds) > 1 && isCompound(sub) {
			sql = "(" + sql + ")"
		}
		parts[i] = sql
	}
	return strings.Join(parts, sep), nil
}

// isCompound reports whether p renders as a bare AND/OR chain.
func isCompound(p queryir.Predicate) bool {
	switch pred := p.(type) {
	case queryir.And:
		if len(pred.Predicates) == 1 {
			return isCompound(pred.Predicates[0])
		}
		return len(pred.Predicates) > 1
	case queryir.Or:
		if len(pred.Predicates) == 1 {
			return isCompound(pred.Predicates[0])
		}
		return len(pred.Predicates) > 1
	case queryir.In:
		return pred.Field.Kind == queryir.FieldData && len(pred.Values) > 1
	}
	return false
}

func (c *Compiler) compileCompare(b *binder, cmp queryir.Compare) (string, error) {
	if cmp.Field.Kind == queryir.FieldMeta {
		pattern, _ := cmp.Value.(ir.String)
		if cmp.Op == queryir.OpLike {
			return c.dialect.Like(b.bind, cmp.Field.Name, string(pattern)), nil
		}
		return fmt.Sprintf("%s %s %s", cmp.Field.Name, cmp.Op, b.bind(string(pattern))), nil
	}

	keys := cmp.Field.Keys
	switch val := cmp.Value.(type) {
	case ir.Null:
		absent, err := c.dialect.JSONAbsent(b.bind, DataColumn, keys)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", cmp.Field, err)
		}
		if cmp.Op == queryir.OpNe {
			return "NOT (" + absent + ")", nil
		}
		return absent, nil

	case ir.Bool:
		eq, err := c.dialect.JSONEqual(b.bind, DataColumn, keys, boolJSON(bool(val)))
		if err != nil {
			return "", fmt.Errorf("field %s: %w", cmp.Field, err)
		}
		if cmp.Op == queryir.OpNe {
			return "NOT (" + eq + ")", nil
		}
		return eq, nil

	case ir.String:
		expr, err := c.dialect.JSONScalar(b.bind, DataColumn, keys, KindText)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", cmp.Field, err)
		}
		if cmp.Op == queryir.OpLike {
			return c.dialect.Like(b.bind, expr, string(val)), nil
		}
		return fmt.Sprintf("%s %s %s", expr, cmp.Op, b.bind(string(val))), nil

	case ir.Int, ir.Float:
		expr, err := c.dialect.JSONScalar(b.bind, DataColumn, keys, KindNumber)
		if err != nil {
			return "", fmt.Errorf("field %s: %w", cmp.Field, err)
		}
		return fmt.Sprintf("%s %s %s", expr, cmp.Op, b.bind(numberParam(val))), nil
	}
	return "", fmt.Errorf("field %s: unsupported literal %s", cmp.Field, ir.Kind(cmp.Value))
}

// compileIn renders a metadata list as IN (...) and a payload list as a
// disjunction of equalities, since each element may need its own typed
// extraction.
func (c *Compiler) compileIn(b *binder, in queryir.In) (string, error) {
	if in.Field.Kind == queryir.FieldMeta {
		phs := make([]string, len(in.Values))
		for i, v := range in.Values {
			s, _ := v.(ir.String)
			phs[i] = b.bind(string(s))
		}
		return fmt.Sprintf("%s IN (%s)", in.Field.Name, strings.Join(phs, ", ")), nil
	}

	eqs := make([]queryir.Predicate, len(in.Values))
	for i, v := range in.Values {
		eqs[i] = queryir.Compare{Field: in.Field, Op: queryir.OpEq, Value: v}
	}
	return c.compileJoined(b, eqs, " OR ", sqlFalse)
}

func boolJSON(v bool) string {
	if v {
		return "true"
	}
	return "false"
}

func numberParam(v ir.Value) any {
	switch n := v.(type) {
	case ir.Int:
		return int64(n)
	case ir.Float:
		return float64(n)
	}
	return nil
}
