package tree

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ohler55/ojg/jp"

	"github.com/roach88/treestore/internal/ir"
)

// TimeLayout is the fixed-width UTC layout timestamps are stored and
// rendered in, so that string order equals time order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z"

// Node is a stored object and its metadata.
type Node struct {
	ID     string
	Path   string
	Parent string
	Name   string
	Data   ir.Object
	CTime  time.Time
	MTime  time.Time
}

func nodeFromRow(r Row) *Node {
	data := r.Data
	if data == nil {
		data = ir.Object{}
	}
	return &Node{
		ID:     r.ID,
		Path:   r.Path(),
		Parent: r.Parent,
		Name:   r.Name,
		Data:   data,
		CTime:  r.CTime,
		MTime:  r.MTime,
	}
}

// IsRoot reports whether n is the root node.
func (n *Node) IsRoot() bool {
	return n.Parent == "" && n.Name == ""
}

// Native returns the node as plain Go values, the shape used for JSON output
// and JSONPath lookups.
func (n *Node) Native() map[string]any {
	return map[string]any{
		"id":     n.ID,
		"path":   n.Path,
		"parent": n.Parent,
		"name":   n.Name,
		"data":   ir.ToNative(n.Data),
		"ctime":  n.CTime.UTC().Format(TimeLayout),
		"mtime":  n.MTime.UTC().Format(TimeLayout),
	}
}

// MarshalJSON renders the node as canonical JSON.
func (n *Node) MarshalJSON() ([]byte, error) {
	return ir.MarshalCanonical(n.Native())
}

// UnmarshalJSON decodes the form written by MarshalJSON.
func (n *Node) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID     string          `json:"id"`
		Path   string          `json:"path"`
		Parent string          `json:"parent"`
		Name   string          `json:"name"`
		Data   json.RawMessage `json:"data"`
		CTime  string          `json:"ctime"`
		MTime  string          `json:"mtime"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decode node: %w", err)
	}
	data := ir.Object{}
	if len(raw.Data) > 0 {
		obj, err := ir.ParseObject(raw.Data)
		if err != nil {
			return fmt.Errorf("decode node data: %w", err)
		}
		data = obj
	}
	ctime, err := ParseTime(raw.CTime)
	if err != nil {
		return err
	}
	mtime, err := ParseTime(raw.MTime)
	if err != nil {
		return err
	}
	*n = Node{ID: raw.ID, Path: raw.Path, Parent: raw.Parent, Name: raw.Name, Data: data, CTime: ctime, MTime: mtime}
	return nil
}

// Digest is the content hash of the node's payload.
func (n *Node) Digest() (string, error) {
	return ir.Digest(n.Data)
}

// Lookup evaluates a JSONPath expression against the node, e.g. "data.owner"
// or "$.data.tags[0]". It returns the first match, or ErrNotFound.
func (n *Node) Lookup(expr string) (ir.Value, error) {
	if !strings.HasPrefix(expr, "$") && !strings.HasPrefix(expr, "@") {
		expr = "$." + expr
	}
	x, err := jp.ParseString(expr)
	if err != nil {
		return nil, fmt.Errorf("invalid field expression %q: %w", expr, err)
	}
	results := x.Get(n.Native())
	if len(results) == 0 {
		return nil, &Error{Code: CodeNotFound, Path: n.Path, Message: fmt.Sprintf("no value at %s", expr)}
	}
	return ir.FromNative(results[0])
}

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime parses a TimeLayout timestamp.
func ParseTime(s string) (time.Time, error) {
	t, err := time.Parse(TimeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}
