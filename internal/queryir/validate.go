package queryir

import (
	"errors"
	"fmt"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/treepath"
)

// ErrInvalidPredicate is wrapped by every error returned from Validate.
var ErrInvalidPredicate = errors.New("invalid predicate")

// Validate checks a predicate tree for problems every dialect would reject:
// unknown fields, unknown operators, and literals whose type does not fit the
// operator or field. It reports all problems, not just the first.
//
// Validate is a pure function with no side effects.
func Validate(p Predicate) error {
	v := &validator{}
	v.validate(p)
	if len(v.errs) == 0 {
		return nil
	}
	return errors.Join(v.errs...)
}

// validator accumulates errors during traversal.
type validator struct {
	errs []error
}

func (v *validator) add(err error) {
	if err != nil {
		v.errs = append(v.errs, fmt.Errorf("%w: %v", ErrInvalidPredicate, err))
	}
}

func (v *validator) validate(p Predicate) {
	switch pred := p.(type) {
	case nil:
		v.add(errors.New("nil predicate"))
	case Compare:
		v.add(CheckField(pred.Field))
		v.add(CheckComparison(pred.Field, pred.Op, pred.Value))
	case In:
		v.add(CheckField(pred.Field))
		v.add(CheckIn(pred.Field, pred.Values))
	case And:
		for _, sub := range pred.Predicates {
			v.validate(sub)
		}
	case Or:
		for _, sub := range pred.Predicates {
			v.validate(sub)
		}
	case Not:
		v.validate(pred.Predicate)
	case Under:
		if !treepath.IsCanonical(pred.Prefix) {
			v.add(fmt.Errorf("scope %q is not a canonical path", pred.Prefix))
		}
	case AncestorOf:
		if !treepath.IsCanonical(pred.Path) {
			v.add(fmt.Errorf("path %q is not a canonical path", pred.Path))
		}
	case True:
	default:
		v.add(fmt.Errorf("unknown predicate type %T", p))
	}
}

// CheckField reports whether f names a reserved column or a well-formed
// payload key path.
func CheckField(f Field) error {
	switch f.Kind {
	case FieldMeta:
		if !IsReserved(f.Name) {
			return fmt.Errorf("unknown field %q", f.Name)
		}
	case FieldData:
		if len(f.Keys) == 0 {
			return fmt.Errorf("payload field needs at least one key after %q", DataPrefix)
		}
		for _, k := range f.Keys {
			if k == "" {
				return fmt.Errorf("empty key in payload field %q", f.String())
			}
		}
	default:
		return fmt.Errorf("unknown field kind %d", f.Kind)
	}
	return nil
}

// CheckComparison reports whether value is an acceptable right-hand side for
// <field> <op>.
func CheckComparison(f Field, op Op, value ir.Value) error {
	if !isKnownOp(op) {
		return fmt.Errorf("unknown operator %q", op)
	}
	if value == nil {
		return fmt.Errorf("%s %s: missing literal", f, op)
	}

	switch value.(type) {
	case ir.Array, ir.Object:
		return fmt.Errorf("%s %s: %s literal is not comparable", f, op, ir.Kind(value))
	case ir.Null:
		if op != OpEq && op != OpNe {
			return fmt.Errorf("%s %s: null only supports = and !=", f, op)
		}
		if f.Kind == FieldMeta {
			return fmt.Errorf("%s is never null", f)
		}
		return nil
	}

	if f.Kind == FieldMeta {
		if _, ok := value.(ir.String); !ok {
			return fmt.Errorf("%s %s: field %s needs a string, got %s", f, op, f, ir.Kind(value))
		}
	}

	switch {
	case op == OpLike:
		if _, ok := value.(ir.String); !ok {
			return fmt.Errorf("%s ~: pattern must be a string, got %s", f, ir.Kind(value))
		}
	case op.IsOrdering():
		if _, ok := value.(ir.Bool); ok {
			return fmt.Errorf("%s %s: booleans are not ordered", f, op)
		}
	}
	return nil
}

// CheckIn reports whether values is an acceptable list for <field> in (...).
func CheckIn(f Field, values []ir.Value) error {
	if len(values) == 0 {
		return fmt.Errorf("%s in: empty list", f)
	}
	for i, val := range values {
		switch val.(type) {
		case nil, ir.Null, ir.Array, ir.Object:
			return fmt.Errorf("%s in: element %d must be a scalar, got %s", f, i, ir.Kind(val))
		}
		if f.Kind == FieldMeta {
			if _, ok := val.(ir.String); !ok {
				return fmt.Errorf("%s in: field %s needs strings, element %d is %s", f, f, i, ir.Kind(val))
			}
		}
	}
	return nil
}

func isKnownOp(op Op) bool {
	for _, known := range Ops() {
		if op == known {
			return true
		}
	}
	return false
}
