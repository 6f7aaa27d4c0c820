package querysql

import (
	"fmt"
	"strings"
)

// Param is one bound parameter of a Fragment.
type Param struct {
	Name  string
	Value any
}

// Params are the bound parameters of a Fragment in placeholder order,
// named p1, p2, ...
type Params []Param

// Args returns the parameter values in placeholder order, ready for
// database/sql.
func (p Params) Args() []any {
	args := make([]any, len(p))
	for i, param := range p {
		args[i] = param.Value
	}
	return args
}

// Get returns the value bound under name.
func (p Params) Get(name string) (any, bool) {
	for _, param := range p {
		if param.Name == name {
			return param.Value, true
		}
	}
	return nil, false
}

// String renders the parameters as name=value pairs, for logs.
func (p Params) String() string {
	parts := make([]string, len(p))
	for i, param := range p {
		parts[i] = fmt.Sprintf("%s=%#v", param.Name, param.Value)
	}
	return strings.Join(parts, " ")
}

// Fragment is a WHERE-clause fragment and its parameters.
type Fragment struct {
	SQL    string
	Params Params
}

// Args is shorthand for f.Params.Args().
func (f Fragment) Args() []any {
	return f.Params.Args()
}

// binder allocates placeholders for a single Fragment.
type binder struct {
	dialect Dialect
	params  Params
}

// bind records v as the next parameter and returns its placeholder.
func (b *binder) bind(v any) string {
	n := len(b.params) + 1
	b.params = append(b.params, Param{Name: fmt.Sprintf("p%d", n), Value: v})
	return b.dialect.Placeholder(n)
}
