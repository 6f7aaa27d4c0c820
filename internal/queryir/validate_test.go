package queryir

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/treestore/internal/ir"
)

func TestValidate_ValidPredicates(t *testing.T) {
	preds := []Predicate{
		Compare{Field: Meta(ColName), Op: OpEq, Value: ir.String("x")},
		Compare{Field: Data("size"), Op: OpGt, Value: ir.Int(3)},
		Compare{Field: Data("ratio"), Op: OpLe, Value: ir.Float(0.5)},
		Compare{Field: Data("a", "b"), Op: OpLike, Value: ir.String("x%")},
		Compare{Field: Data("gone"), Op: OpEq, Value: ir.Null{}},
		Compare{Field: Data("flag"), Op: OpNe, Value: ir.Bool(true)},
		In{Field: Data("tag"), Values: []ir.Value{ir.String("a"), ir.Int(1)}},
		And{Predicates: []Predicate{True{}, Under{Prefix: "/a/"}}},
		Or{},
		Not{Predicate: AncestorOf{Path: "/a/b/"}},
	}

	for _, p := range preds {
		assert.NoError(t, Validate(p), Format(p))
	}
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name    string
		pred    Predicate
		message string
	}{
		{"unknown meta field", Compare{Field: Meta("size"), Op: OpEq, Value: ir.String("x")}, `unknown field "size"`},
		{"empty data path", Compare{Field: Data(), Op: OpEq, Value: ir.Int(1)}, "at least one key"},
		{"empty data key", Compare{Field: Data("a", ""), Op: OpEq, Value: ir.Int(1)}, "empty key"},
		{"unknown operator", Compare{Field: Data("a"), Op: "=~", Value: ir.Int(1)}, "unknown operator"},
		{"missing literal", Compare{Field: Data("a"), Op: OpEq}, "missing literal"},
		{"like needs string", Compare{Field: Data("a"), Op: OpLike, Value: ir.Int(1)}, "pattern must be a string"},
		{"ordered bool", Compare{Field: Data("a"), Op: OpLt, Value: ir.Bool(true)}, "not ordered"},
		{"ordered null", Compare{Field: Data("a"), Op: OpGe, Value: ir.Null{}}, "null only supports"},
		{"meta needs string", Compare{Field: Meta(ColName), Op: OpEq, Value: ir.Int(1)}, "needs a string"},
		{"meta never null", Compare{Field: Meta(ColPath), Op: OpEq, Value: ir.Null{}}, "never null"},
		{"array literal", Compare{Field: Data("a"), Op: OpEq, Value: ir.Array{}}, "not comparable"},
		{"empty in", In{Field: Data("a")}, "empty list"},
		{"null in list", In{Field: Data("a"), Values: []ir.Value{ir.Null{}}}, "must be a scalar"},
		{"meta in non-string", In{Field: Meta(ColName), Values: []ir.Value{ir.Int(1)}}, "needs strings"},
		{"non-canonical scope", Under{Prefix: "/a"}, "not a canonical path"},
		{"non-canonical ancestor", AncestorOf{Path: "a/b"}, "not a canonical path"},
		{"nil", nil, "nil predicate"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := Validate(tc.pred)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrInvalidPredicate))
			assert.Contains(t, err.Error(), tc.message)
		})
	}
}

func TestValidate_ReportsEveryProblem(t *testing.T) {
	p := And{Predicates: []Predicate{
		Compare{Field: Meta("bogus"), Op: OpEq, Value: ir.String("x")},
		Compare{Field: Data("a"), Op: OpLike, Value: ir.Int(1)},
	}}

	err := Validate(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown field")
	assert.Contains(t, err.Error(), "pattern must be a string")
}

func TestConj(t *testing.T) {
	a := Compare{Field: Meta(ColName), Op: OpEq, Value: ir.String("a")}
	b := Compare{Field: Meta(ColName), Op: OpEq, Value: ir.String("b")}

	assert.Equal(t, True{}, Conj())
	assert.Equal(t, True{}, Conj(True{}, nil))
	assert.Equal(t, a, Conj(True{}, a))
	assert.Equal(t, And{Predicates: []Predicate{a, b}}, Conj(And{Predicates: []Predicate{a}}, b))

	assert.Equal(t, a, Conj(Under{Prefix: "/"}, a), "root scope matches everything")
	assert.Equal(t, True{}, Conj(Under{Prefix: "/"}))
	scoped := Under{Prefix: "/docs/"}
	assert.Equal(t, And{Predicates: []Predicate{scoped, a}}, Conj(scoped, a))
}

func TestFormat(t *testing.T) {
	p := And{Predicates: []Predicate{
		Compare{Field: Data("name"), Op: OpEq, Value: ir.String("it's")},
		Or{Predicates: []Predicate{
			In{Field: Data("n"), Values: []ir.Value{ir.Int(1), ir.Float(2.5)}},
			Not{Predicate: Compare{Field: Meta(ColPath), Op: OpLike, Value: ir.String("/a/%")}},
		}},
	}}

	assert.Equal(t, `data.name = 'it\'s' and (data.n in (1, 2.5) or not path ~ '/a/%')`, Format(p))
	assert.Equal(t, "under('/x/')", Format(Under{Prefix: "/x/"}))
	assert.Equal(t, "true", Format(And{}))
	assert.Equal(t, "false", Format(Or{}))
}

func TestFieldString(t *testing.T) {
	assert.Equal(t, "name", Meta(ColName).String())
	assert.Equal(t, "data.a.b", Data("a", "b").String())
	assert.True(t, IsReserved("mtime"))
	assert.False(t, IsReserved("data"))
}
