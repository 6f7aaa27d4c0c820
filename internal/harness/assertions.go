package harness

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/queryir"
	"github.com/roach88/treestore/internal/tree"
)

// AssertionError is returned when an assertion fails.
type AssertionError struct {
	Type     string
	Path     string
	Expected string
	Actual   string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	return fmt.Sprintf("assertion %s %s: expected %s, got %s", e.Type, e.Path, e.Expected, e.Actual)
}

// EvaluateAssertions checks every assertion against the root store and
// returns the failure messages.
func EvaluateAssertions(ctx context.Context, s *tree.Store, assertions []Assertion) []string {
	var errs []string
	for _, a := range assertions {
		if err := evaluate(ctx, s, a); err != nil {
			errs = append(errs, err.Error())
		}
	}
	return errs
}

func evaluate(ctx context.Context, s *tree.Store, a Assertion) error {
	switch a.Type {
	case AssertExists, AssertMissing:
		ok, err := s.Exists(ctx, a.Path)
		if err != nil {
			return err
		}
		want := a.Type == AssertExists
		if ok != want {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: fmt.Sprintf("exists=%v", want), Actual: fmt.Sprintf("exists=%v", ok)}
		}
	case AssertCount:
		st, err := s.FindPredicate(ctx, queryir.True{}, a.Path)
		if err != nil {
			return err
		}
		paths, err := st.Paths()
		if err != nil {
			return err
		}
		if int64(len(paths)) != a.Count {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: fmt.Sprintf("%d nodes", a.Count), Actual: fmt.Sprintf("%d nodes %v", len(paths), paths)}
		}
	case AssertData:
		n, err := s.Get(ctx, a.Path)
		if err != nil {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: "a node", Actual: err.Error()}
		}
		if msg := matchData(n.Data, a.Expect); msg != "" {
			return &AssertionError{Type: a.Type, Path: a.Path, Expected: fmt.Sprintf("%v", a.Expect), Actual: msg}
		}
	default:
		return fmt.Errorf("unknown assertion type %q", a.Type)
	}
	return nil
}

// matchData checks that every expected field is present in data with an
// equal value. It returns "" on a match and a description otherwise.
func matchData(data ir.Object, expected map[string]any) string {
	keys := make([]string, 0, len(expected))
	for k := range expected {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var diffs []string
	for _, k := range keys {
		want, err := ir.FromNative(expected[k])
		if err != nil {
			diffs = append(diffs, fmt.Sprintf("%s: %v", k, err))
			continue
		}
		got, ok := data[k]
		if !ok {
			diffs = append(diffs, fmt.Sprintf("%s missing", k))
			continue
		}
		if !ir.Equal(want, got) {
			diffs = append(diffs, fmt.Sprintf("%s = %v, want %v", k, ir.ToNative(got), ir.ToNative(want)))
		}
	}
	return strings.Join(diffs, "; ")
}
