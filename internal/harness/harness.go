package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"

	log "github.com/sirupsen/logrus"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/querylang"
	"github.com/roach88/treestore/internal/schema"
	"github.com/roach88/treestore/internal/store"
	"github.com/roach88/treestore/internal/testutil"
	"github.com/roach88/treestore/internal/tree"
)

// Harness executes scenario steps against one store. cd steps replace scope.
type Harness struct {
	scope *tree.Store
}

// Run executes a scenario on a fresh in-memory database and returns the
// result. The error is reserved for setup failures; failed expectations are
// reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	logger := log.New()
	logger.SetOutput(io.Discard)

	backend, err := store.Open(":memory:", store.WithLogger(logger))
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer backend.Close()

	opts := []tree.Option{
		tree.WithClock(testutil.NewDeterministicClock()),
		tree.WithIDGenerator(testutil.NewSequentialIDs("node").Generate),
		tree.WithLogger(logger),
	}
	if len(scenario.Schemas) > 0 {
		bindings := make([]schema.Binding, len(scenario.Schemas))
		for i, s := range scenario.Schemas {
			bindings[i] = schema.Binding{Prefix: s.Prefix, File: s.File}
		}
		v, err := schema.Load(bindings)
		if err != nil {
			return nil, fmt.Errorf("failed to load schemas: %w", err)
		}
		opts = append(opts, tree.WithValidator(v))
	}

	ts := tree.New(backend, opts...)
	ctx := context.Background()
	if _, err := ts.Initialize(ctx); err != nil {
		return nil, fmt.Errorf("failed to initialize store: %w", err)
	}

	h := &Harness{scope: ts}
	result := NewResult()
	for i, step := range scenario.Steps {
		h.executeStep(ctx, i, step, result)
	}

	for _, msg := range EvaluateAssertions(ctx, ts, scenario.Assertions) {
		result.AddError(msg)
	}
	return result, nil
}

// outcome is what a step produced, before expectations are applied.
type outcome struct {
	created *bool
	deleted *int64
	exists  *bool
	paths   []string
	node    *tree.Node
	err     error
}

func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) {
	ev := TraceEvent{Op: step.Op, Path: step.Path, Query: step.Query}
	if p, err := h.scope.Resolve(step.Path); err == nil {
		ev.Path = p
	}

	out := h.perform(ctx, step)
	if out.err != nil {
		ev.Error = errorCode(out.err)
	} else {
		ev.Result = out.traceValue()
	}
	result.AddTrace(ev)

	for _, msg := range checkExpect(step.Expect, out) {
		result.AddError(fmt.Sprintf("steps[%d] %s %s: %s", index, step.Op, step.Path, msg))
	}
}

func (h *Harness) perform(ctx context.Context, step Step) outcome {
	switch step.Op {
	case OpSave:
		data, err := toObject(step.Data)
		if err != nil {
			return outcome{err: err}
		}
		res, err := h.scope.Save(ctx, data, step.Path)
		if err != nil {
			return outcome{err: err}
		}
		return outcome{created: &res.Created, node: res.Node}
	case OpGet:
		n, err := h.scope.Get(ctx, step.Path)
		return outcome{node: n, err: err}
	case OpExists:
		ok, err := h.scope.Exists(ctx, step.Path)
		return outcome{exists: &ok, err: err}
	case OpLs:
		return collect(h.scope.Ls(ctx, step.Path))
	case OpParents:
		return collect(h.scope.Parents(ctx, step.Path, step.Top))
	case OpFind:
		return collect(h.scope.Find(ctx, step.Query, step.Path))
	case OpRm:
		n, err := h.scope.Delete(ctx, step.Path)
		return outcome{deleted: &n, err: err}
	case OpCd:
		scope, err := h.scope.Cd(step.Path)
		if err == nil {
			h.scope = scope
		}
		return outcome{err: err}
	}
	return outcome{err: fmt.Errorf("unknown op %q", step.Op)}
}

func collect(s *tree.Stream, err error) outcome {
	if err != nil {
		return outcome{err: err}
	}
	paths, err := s.Paths()
	return outcome{paths: paths, err: err}
}

// traceValue is the part of an outcome recorded in the trace.
func (o outcome) traceValue() any {
	switch {
	case o.created != nil:
		return map[string]any{"created": *o.created, "id": o.node.ID, "mtime": tree.FormatTime(o.node.MTime)}
	case o.node != nil:
		return map[string]any{"id": o.node.ID, "data": ir.ToNative(o.node.Data), "mtime": tree.FormatTime(o.node.MTime)}
	case o.deleted != nil:
		return map[string]any{"deleted": *o.deleted}
	case o.exists != nil:
		return map[string]any{"exists": *o.exists}
	case o.paths != nil:
		paths := make([]any, len(o.paths))
		for i, p := range o.paths {
			paths[i] = p
		}
		return map[string]any{"paths": paths}
	}
	return nil
}

func checkExpect(exp *Expect, out outcome) []string {
	if exp == nil {
		if out.err != nil {
			return []string{fmt.Sprintf("unexpected error: %v", out.err)}
		}
		return nil
	}
	if exp.Error != "" {
		if out.err == nil {
			return []string{fmt.Sprintf("expected error %s, got success", exp.Error)}
		}
		if code := errorCode(out.err); code != exp.Error {
			return []string{fmt.Sprintf("expected error %s, got %s (%v)", exp.Error, code, out.err)}
		}
		return nil
	}
	if out.err != nil {
		return []string{fmt.Sprintf("unexpected error: %v", out.err)}
	}

	var errs []string
	if exp.Created != nil && (out.created == nil || *out.created != *exp.Created) {
		errs = append(errs, fmt.Sprintf("created: expected %v, got %v", *exp.Created, deref(out.created)))
	}
	if exp.Deleted != nil && (out.deleted == nil || *out.deleted != *exp.Deleted) {
		errs = append(errs, fmt.Sprintf("deleted: expected %d, got %v", *exp.Deleted, deref(out.deleted)))
	}
	if exp.Exists != nil && (out.exists == nil || *out.exists != *exp.Exists) {
		errs = append(errs, fmt.Sprintf("exists: expected %v, got %v", *exp.Exists, deref(out.exists)))
	}
	if exp.Paths != nil && !slices.Equal(exp.Paths, out.paths) {
		errs = append(errs, fmt.Sprintf("paths: expected %v, got %v", exp.Paths, out.paths))
	}
	if exp.Data != nil {
		if out.node == nil {
			errs = append(errs, "data: step produced no node")
		} else if msg := matchData(out.node.Data, exp.Data); msg != "" {
			errs = append(errs, "data: "+msg)
		}
	}
	return errs
}

func deref[T any](p *T) any {
	if p == nil {
		return "<none>"
	}
	return *p
}

// errorCode names an error the way scenarios expect it.
func errorCode(err error) string {
	var perr *querylang.ParseError
	if errors.As(err, &perr) {
		return "PARSE_ERROR"
	}
	if code := tree.CodeOf(err); code != "" {
		return string(code)
	}
	return "ERROR"
}

func toObject(m map[string]any) (ir.Object, error) {
	if m == nil {
		return ir.Object{}, nil
	}
	v, err := ir.FromNative(m)
	if err != nil {
		return nil, fmt.Errorf("scenario data: %w", err)
	}
	return v.(ir.Object), nil
}
