package queryir

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/treestore/internal/ir"
)

// Format renders a predicate back into the predicate language. Scope nodes
// (Under, AncestorOf), which have no surface syntax, render as function-style
// pseudo terms. The output is meant for logs and diagnostics.
func Format(p Predicate) string {
	var b strings.Builder
	format(&b, p)
	return b.String()
}

func format(b *strings.Builder, p Predicate) {
	switch pred := p.(type) {
	case Compare:
		fmt.Fprintf(b, "%s %s %s", pred.Field, pred.Op, formatLiteral(pred.Value))
	case In:
		parts := make([]string, len(pred.Values))
		for i, v := range pred.Values {
			parts[i] = formatLiteral(v)
		}
		fmt.Fprintf(b, "%s in (%s)", pred.Field, strings.Join(parts, ", "))
	case And:
		formatJoined(b, pred.Predicates, " and ", "true")
	case Or:
		formatJoined(b, pred.Predicates, " or ", "false")
	case Not:
		b.WriteString("not ")
		formatOperand(b, pred.Predicate)
	case Under:
		fmt.Fprintf(b, "under(%s)", quote(pred.Prefix))
	case AncestorOf:
		fmt.Fprintf(b, "ancestor_of(%s)", quote(pred.Path))
	case True:
		b.WriteString("true")
	default:
		fmt.Fprintf(b, "<%T>", p)
	}
}

func formatJoined(b *strings.Builder, preds []Predicate, sep, empty string) {
	if len(preds) == 0 {
		b.WriteString(empty)
		return
	}
	for i, sub := range preds {
		if i > 0 {
			b.WriteString(sep)
		}
		formatOperand(b, sub)
	}
}

// formatOperand parenthesizes compound operands so the output re-parses to
// the same tree.
func formatOperand(b *strings.Builder, p Predicate) {
	switch p.(type) {
	case And, Or:
		b.WriteByte('(')
		format(b, p)
		b.WriteByte(')')
	default:
		format(b, p)
	}
}

func formatLiteral(v ir.Value) string {
	switch val := v.(type) {
	case ir.String:
		return quote(string(val))
	case ir.Int:
		return strconv.FormatInt(int64(val), 10)
	case ir.Float:
		return strconv.FormatFloat(float64(val), 'g', -1, 64)
	case ir.Bool:
		return strconv.FormatBool(bool(val))
	case nil, ir.Null:
		return "null"
	default:
		return fmt.Sprintf("<%s>", ir.Kind(v))
	}
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `'`, `\'`)
	return "'" + s + "'"
}
