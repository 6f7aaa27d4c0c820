// Package queryir provides the dialect-neutral predicate tree that node
// filters compile to.
//
// The predicate language parser (package querylang) produces a queryir tree,
// the tree store builds its own navigation filters directly as queryir trees,
// and every SQL dialect renders the same tree (package querysql):
//
//	[predicate text] → [querylang] → [queryir] → [querysql.Dialect]
//	[ls / get / parents / delete] ────────↗
//
// SEALED INTERFACES:
//
// Predicate is a sealed interface using the marker method pattern. Only types
// in this package implement it, so renderers can switch exhaustively:
//
//	switch p := pred.(type) {
//	case Compare:
//	case In:
//	case And, Or, Not:
//	case Under, AncestorOf:
//	case True:
//	}
//
// FIELDS:
//
// A Field is either a reserved metadata column (parent, name, path, id,
// ctime, mtime) or a key path into the node payload (data.a.b). Reserved
// names always refer to the column; payload keys are only reachable through
// the data prefix, so a payload key called "name" never shadows the column.
//
// VALUES:
//
// Literals are ir.Value scalars. Renderers bind every literal, and every
// payload key path, as a query parameter; nothing user-supplied is ever
// spliced into SQL text.
package queryir
