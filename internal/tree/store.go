package tree

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/roach88/treestore/internal/ir"
	"github.com/roach88/treestore/internal/querylang"
	"github.com/roach88/treestore/internal/queryir"
	"github.com/roach88/treestore/internal/querysql"
	"github.com/roach88/treestore/internal/treepath"
)

// RootData is the payload Initialize gives a fresh root.
var RootData = ir.NewObject(ir.O("name", ir.String("Root")))

// Store is a scoped handle onto a tree of nodes. It is immutable; Cd returns
// a new handle sharing the same backend.
type Store struct {
	backend   Backend
	compiler  *querysql.Compiler
	path      string
	clock     Clock
	log       log.FieldLogger
	validator Validator
	newID     func() (string, error)
}

// SaveResult describes the outcome of Save.
type SaveResult struct {
	Node    *Node
	Created bool
}

// New creates a Store over backend, scoped at the root.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{
		backend:  backend,
		compiler: querysql.NewCompiler(backend.Dialect()),
		path:     treepath.Root,
		clock:    systemClock{},
		log:      discardLogger(),
		newID:    newUUIDv7,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the handle's scope.
func (s *Store) Path() string {
	return s.path
}

// Backend returns the backend the store runs on.
func (s *Store) Backend() Backend {
	return s.backend
}

// Cd returns a handle scoped at path, resolved against the current scope.
// The target does not need to exist.
func (s *Store) Cd(path string) (*Store, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	next := *s
	next.path = p
	return &next, nil
}

// Resolve normalizes path against the handle's scope.
func (s *Store) Resolve(path string) (string, error) {
	return s.resolve(path)
}

func (s *Store) resolve(path string) (string, error) {
	p, err := treepath.Collapse(path, s.path)
	if err != nil {
		return "", newError(CodeInvalidPath, path, err)
	}
	return p, nil
}

// nodeAt matches the single node stored at canonical path p.
func nodeAt(p string) (queryir.Predicate, error) {
	parent, name, err := treepath.Split(p)
	if err != nil {
		return nil, err
	}
	return queryir.And{Predicates: []queryir.Predicate{
		queryir.Compare{Field: queryir.Meta(queryir.ColParent), Op: queryir.OpEq, Value: ir.String(parent)},
		queryir.Compare{Field: queryir.Meta(queryir.ColName), Op: queryir.OpEq, Value: ir.String(name)},
	}}, nil
}

func (s *Store) where(p queryir.Predicate) (querysql.Fragment, error) {
	frag, err := s.compiler.Compile(p)
	if err != nil {
		return querysql.Fragment{}, fmt.Errorf("compile filter: %w", err)
	}
	return frag, nil
}

func (s *Store) count(ctx context.Context, p string) (int64, error) {
	pred, err := nodeAt(p)
	if err != nil {
		return 0, newError(CodeInvalidPath, p, err)
	}
	frag, err := s.where(pred)
	if err != nil {
		return 0, err
	}
	n, err := s.backend.Count(ctx, frag)
	if err != nil {
		return 0, fmt.Errorf("count nodes: %w", err)
	}
	return n, nil
}

// Exists reports whether a node is stored at path.
func (s *Store) Exists(ctx context.Context, path string) (bool, error) {
	p, err := s.resolve(path)
	if err != nil {
		return false, err
	}
	n, err := s.count(ctx, p)
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Get returns the node at path.
func (s *Store) Get(ctx context.Context, path string) (*Node, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	pred, err := nodeAt(p)
	if err != nil {
		return nil, newError(CodeInvalidPath, p, err)
	}
	stream, err := s.selectWhere(ctx, pred)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	if !stream.Next() {
		if err := stream.Err(); err != nil {
			return nil, fmt.Errorf("get node: %w", err)
		}
		return nil, newError(CodeNotFound, p, nil)
	}
	return stream.Node(), nil
}

// Ls streams the direct children of path.
func (s *Store) Ls(ctx context.Context, path string) (*Stream, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return s.selectWhere(ctx, queryir.Compare{
		Field: queryir.Meta(queryir.ColParent),
		Op:    queryir.OpEq,
		Value: ir.String(p),
	})
}

// Parents streams path and its stored ancestors, root first, keeping only
// those at or below top. An empty top means the root.
func (s *Store) Parents(ctx context.Context, path, top string) (*Stream, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	if top == "" {
		top = treepath.Root
	}
	t, err := s.resolve(top)
	if err != nil {
		return nil, err
	}
	return s.selectWhere(ctx, queryir.Conj(
		queryir.AncestorOf{Path: p},
		queryir.Under{Prefix: t},
	))
}

// Find streams the nodes at or below path matching query, a predicate in
// the query language. An empty query matches every node in scope.
func (s *Store) Find(ctx context.Context, query, path string) (*Stream, error) {
	pred, err := querylang.Parse(query)
	if err != nil {
		return nil, err
	}
	return s.FindPredicate(ctx, pred, path)
}

// FindPredicate is Find for an already parsed predicate.
func (s *Store) FindPredicate(ctx context.Context, pred queryir.Predicate, path string) (*Stream, error) {
	p, err := s.resolve(path)
	if err != nil {
		return nil, err
	}
	return s.selectWhere(ctx, queryir.Conj(queryir.Under{Prefix: p}, pred))
}

// Compile renders the scoped filter Find would run, without running it.
func (s *Store) Compile(query, path string) (querysql.Fragment, error) {
	pred, err := querylang.Parse(query)
	if err != nil {
		return querysql.Fragment{}, err
	}
	p, err := s.resolve(path)
	if err != nil {
		return querysql.Fragment{}, err
	}
	return s.where(queryir.Conj(queryir.Under{Prefix: p}, pred))
}

func (s *Store) selectWhere(ctx context.Context, pred queryir.Predicate) (*Stream, error) {
	frag, err := s.where(pred)
	if err != nil {
		return nil, err
	}
	cur, err := s.backend.Select(ctx, frag)
	if err != nil {
		return nil, fmt.Errorf("select nodes: %w", err)
	}
	return newStream(cur), nil
}

// Save stores data at path. A new node requires an existing parent; an
// existing node keeps its id and ctime and gets the new data and mtime.
func (s *Store) Save(ctx context.Context, data ir.Object, path string) (SaveResult, error) {
	p, err := s.resolve(path)
	if err != nil {
		return SaveResult{}, err
	}
	if data == nil {
		data = ir.Object{}
	}
	if s.validator != nil {
		if err := s.validator.Validate(p, data); err != nil {
			return SaveResult{}, newError(CodeInvalidPayload, p, err)
		}
	}

	parent, name, err := treepath.Split(p)
	if err != nil {
		return SaveResult{}, newError(CodeInvalidPath, p, err)
	}
	if p != treepath.Root {
		n, err := s.count(ctx, parent)
		if err != nil {
			return SaveResult{}, err
		}
		if n == 0 {
			return SaveResult{}, &Error{Code: CodeParentNotFound, Path: p, Message: "parent " + parent + " does not exist"}
		}
	}

	id, err := s.newID()
	if err != nil {
		return SaveResult{}, fmt.Errorf("generate node id: %w", err)
	}
	now := s.clock.Now().UTC()
	row, created, err := s.backend.Upsert(ctx, Row{
		ID:     id,
		Parent: parent,
		Name:   name,
		Data:   data,
		CTime:  now,
		MTime:  now,
	})
	if err != nil {
		return SaveResult{}, fmt.Errorf("save node: %w", err)
	}

	s.log.WithFields(log.Fields{"path": p, "id": row.ID, "created": created}).Debug("saved node")
	return SaveResult{Node: nodeFromRow(row), Created: created}, nil
}

// Delete removes the node at path and its whole subtree, returning the
// number of nodes removed. Deleting a missing path removes nothing. The root
// cannot be deleted.
func (s *Store) Delete(ctx context.Context, path string) (int64, error) {
	p, err := s.resolve(path)
	if err != nil {
		return 0, err
	}
	if p == treepath.Root {
		return 0, newError(CodeRootProtected, p, nil)
	}
	frag, err := s.where(queryir.Under{Prefix: p})
	if err != nil {
		return 0, err
	}
	n, err := s.backend.Delete(ctx, frag)
	if err != nil {
		return 0, fmt.Errorf("delete nodes: %w", err)
	}

	s.log.WithFields(log.Fields{"path": p, "removed": n}).Debug("deleted subtree")
	return n, nil
}

// Initialize creates the root node with RootData if it does not exist yet.
// It reports whether the root was created.
func (s *Store) Initialize(ctx context.Context) (bool, error) {
	n, err := s.count(ctx, treepath.Root)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}
	res, err := s.Save(ctx, RootData, treepath.Root)
	if err != nil {
		return false, fmt.Errorf("initialize root: %w", err)
	}
	s.log.WithField("id", res.Node.ID).Info("initialized store root")
	return res.Created, nil
}
