package queryir

import (
	"strings"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/treepath"
)

// Predicate is a filter condition over nodes.
//
// This is a sealed interface - only types in this package implement it.
type Predicate interface {
	predicateNode() // Marker method - seals interface to this package
}

// FieldKind distinguishes metadata columns from payload key paths.
type FieldKind int

const (
	// FieldMeta is a reserved metadata column.
	FieldMeta FieldKind = iota
	// FieldData is a key path into the JSON payload.
	FieldData
)

// Reserved metadata column names.
const (
	ColParent = "parent"
	ColName   = "name"
	ColPath   = "path"
	ColID     = "id"
	ColCTime  = "ctime"
	ColMTime  = "mtime"
)

// DataPrefix introduces a payload key path in the predicate language.
const DataPrefix = "data"

var reserved = map[string]bool{
	ColParent: true,
	ColName:   true,
	ColPath:   true,
	ColID:     true,
	ColCTime:  true,
	ColMTime:  true,
}

// IsReserved reports whether name is a reserved metadata column.
func IsReserved(name string) bool {
	return reserved[name]
}

// ReservedFields lists the reserved metadata columns in a stable order.
func ReservedFields() []string {
	return []string{ColParent, ColName, ColPath, ColID, ColCTime, ColMTime}
}

// Field addresses either a metadata column (Name) or a payload key path (Keys).
type Field struct {
	Kind FieldKind
	Name string   // column name, for FieldMeta
	Keys []string // payload keys, for FieldData
}

// Meta returns a metadata column field.
func Meta(name string) Field {
	return Field{Kind: FieldMeta, Name: name}
}

// Data returns a payload key path field.
func Data(keys ...string) Field {
	return Field{Kind: FieldData, Keys: keys}
}

// String renders the field as written in the predicate language.
func (f Field) String() string {
	if f.Kind == FieldData {
		return DataPrefix + "." + strings.Join(f.Keys, ".")
	}
	return f.Name
}

// Op is a comparison operator.
type Op string

const (
	OpEq   Op = "="
	OpNe   Op = "!="
	OpLt   Op = "<"
	OpLe   Op = "<="
	OpGt   Op = ">"
	OpGe   Op = ">="
	OpLike Op = "~"
)

// Ops lists every comparison operator.
func Ops() []Op {
	return []Op{OpEq, OpNe, OpLt, OpLe, OpGt, OpGe, OpLike}
}

// IsOrdering reports whether op compares by order rather than equality.
func (op Op) IsOrdering() bool {
	switch op {
	case OpLt, OpLe, OpGt, OpGe:
		return true
	}
	return false
}

// Compare is <field> <op> <literal>.
//
// Comparing against ir.Null with = or != tests for absence (IS NULL / IS NOT
// NULL). OpLike is a SQL LIKE pattern (% and _ wildcards).
type Compare struct {
	Field Field
	Op    Op
	Value ir.Value
}

func (Compare) predicateNode() {}

// In is <field> in (<literal>, ...).
type In struct {
	Field  Field
	Values []ir.Value
}

func (In) predicateNode() {}

// And is a conjunction. An empty And is always true.
type And struct {
	Predicates []Predicate
}

func (And) predicateNode() {}

// Or is a disjunction. An empty Or is always false.
type Or struct {
	Predicates []Predicate
}

func (Or) predicateNode() {}

// Not negates a predicate.
type Not struct {
	Predicate Predicate
}

func (Not) predicateNode() {}

// Under matches the node at Prefix and every node beneath it.
// Prefix must be a canonical path.
type Under struct {
	Prefix string
}

func (Under) predicateNode() {}

// AncestorOf matches every node whose path is a prefix of Path, which means
// Path itself and each of its ancestors. Path must be canonical.
type AncestorOf struct {
	Path string
}

func (AncestorOf) predicateNode() {}

// True matches every node.
type True struct{}

func (True) predicateNode() {}

// Conj builds an And, dropping operands that match everything (True and
// Under the root) and flattening nested Ands. A single remaining operand is
// returned unwrapped.
func Conj(preds ...Predicate) Predicate {
	var out []Predicate
	for _, p := range preds {
		switch v := p.(type) {
		case nil, True:
			continue
		case Under:
			if v.Prefix == treepath.Root {
				continue
			}
			out = append(out, p)
		case And:
			out = append(out, v.Predicates...)
		default:
			out = append(out, p)
		}
	}
	switch len(out) {
	case 0:
		return True{}
	case 1:
		return out[0]
	}
	return And{Predicates: out}
}
