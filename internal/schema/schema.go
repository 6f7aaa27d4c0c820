// Package schema validates node payloads against CUE schemas bound to path
// prefixes. A schema bound to /users/ constrains every node below /users/
// (not /users/ itself); when several prefixes cover a path, every schema must
// accept the payload.
package schema

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/treepath"
)

// Binding names a schema source and the prefix it applies under.
type Binding struct {
	Prefix string
	File   string
}

type rule struct {
	prefix string
	source string
	schema cue.Value
}

// Validator holds compiled schemas. cue values are not safe for concurrent
// use, so Validate serializes callers.
type Validator struct {
	mu    sync.Mutex
	ctx   *cue.Context
	rules []rule
}

// New returns an empty Validator, which accepts every payload.
func New() *Validator {
	return &Validator{ctx: cuecontext.New()}
}

// Load compiles every binding's file.
func Load(bindings []Binding) (*Validator, error) {
	v := New()
	for _, b := range bindings {
		src, err := os.ReadFile(b.File)
		if err != nil {
			return nil, fmt.Errorf("read schema %s: %w", b.File, err)
		}
		if err := v.Add(b.Prefix, b.File, src); err != nil {
			return nil, err
		}
	}
	return v, nil
}

// Add compiles src and binds it to prefix. name is used in error positions.
func (v *Validator) Add(prefix, name string, src []byte) error {
	p, err := treepath.Collapse(prefix, treepath.Root)
	if err != nil {
		return fmt.Errorf("bind schema %s: %w", name, err)
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	val := v.ctx.CompileBytes(src, cue.Filename(name))
	if err := val.Err(); err != nil {
		return formatCUEError(name, err)
	}
	v.rules = append(v.rules, rule{prefix: p, source: name, schema: val})
	sort.SliceStable(v.rules, func(i, j int) bool {
		return len(v.rules[i].prefix) < len(v.rules[j].prefix)
	})
	return nil
}

// Len is the number of bound schemas.
func (v *Validator) Len() int {
	v.mu.Lock()
	defer v.mu.Unlock()
	return len(v.rules)
}

// Validate checks data against every schema whose prefix strictly contains
// path. The first failure is returned as a *ValidationError.
func (v *Validator) Validate(path string, data ir.Object) error {
	v.mu.Lock()
	defer v.mu.Unlock()

	for _, r := range v.rules {
		if path == r.prefix || !treepath.IsAncestor(r.prefix, path) {
			continue
		}
		doc := v.ctx.Encode(ir.ToNative(data))
		if err := doc.Err(); err != nil {
			return fmt.Errorf("encode payload: %w", err)
		}
		unified := r.schema.Unify(doc)
		if err := unified.Validate(cue.Concrete(true)); err != nil {
			verr := formatCUEError(r.source, err)
			verr.Prefix = r.prefix
			return verr
		}
	}
	return nil
}

// ValidationError reports a payload or schema rejected by CUE.
type ValidationError struct {
	Source  string
	Prefix  string
	Message string
	Pos     token.Pos
}

func (e *ValidationError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s", e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Source, e.Message)
}

// formatCUEError keeps the first CUE error and its position.
func formatCUEError(source string, err error) *ValidationError {
	verr := &ValidationError{Source: source, Message: err.Error()}
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return verr
	}
	first := errs[0]
	verr.Message = first.Error()
	if positions := errors.Positions(first); len(positions) > 0 {
		verr.Pos = positions[0]
	}
	return verr
}
