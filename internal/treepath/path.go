// Package treepath normalizes the slash-delimited paths that address nodes.
//
// A canonical path starts with "/", ends with "/", contains no empty, "." or
// ".." segments, and every segment is in Unicode NFC form. The root is "/".
// Every non-root canonical path p satisfies
//
//	Parent(p) + Basename(p) + "/" == p
//
// which is the same identity the store uses to derive a node's path from its
// parent and name columns.
package treepath

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Root is the canonical path of the root node.
const Root = "/"

// ErrInvalidPath is returned for paths that cannot be canonicalized, including
// any path whose ".." segments would climb above the root.
var ErrInvalidPath = errors.New("invalid path")

// Collapse resolves path against base and returns its canonical form.
//
// Absolute paths ignore base. An empty path resolves to base, and an empty
// base means the root. Climbing above the root is an error rather than being
// clamped at "/".
func Collapse(path, base string) (string, error) {
	if base == "" {
		base = Root
	}
	if path == "" {
		path = base
	} else if !strings.HasPrefix(path, "/") {
		path = base + "/" + path
	}
	if !strings.HasPrefix(path, "/") {
		return "", fmt.Errorf("%w: base %q is not absolute", ErrInvalidPath, base)
	}

	segments := make([]string, 0, strings.Count(path, "/"))
	for _, seg := range strings.Split(path, "/") {
		switch seg {
		case "", ".":
			continue
		case "..":
			if len(segments) == 0 {
				return "", fmt.Errorf("%w: %q escapes the root", ErrInvalidPath, path)
			}
			segments = segments[:len(segments)-1]
		default:
			if strings.ContainsRune(seg, 0) {
				return "", fmt.Errorf("%w: %q contains a NUL byte", ErrInvalidPath, path)
			}
			segments = append(segments, norm.NFC.String(seg))
		}
	}

	if len(segments) == 0 {
		return Root, nil
	}
	return "/" + strings.Join(segments, "/") + "/", nil
}

// MustCollapse is Collapse for paths known to be valid, such as literals in
// tests. It panics on error.
func MustCollapse(path string) string {
	p, err := Collapse(path, Root)
	if err != nil {
		panic(err)
	}
	return p
}

// IsCanonical reports whether p is already in canonical form.
func IsCanonical(p string) bool {
	c, err := Collapse(p, Root)
	return err == nil && c == p
}

// Parent returns the canonical parent of a canonical, non-root path.
func Parent(p string) (string, error) {
	if p == Root {
		return "", fmt.Errorf("%w: the root has no parent", ErrInvalidPath)
	}
	if !strings.HasPrefix(p, "/") || !strings.HasSuffix(p, "/") {
		return "", fmt.Errorf("%w: %q is not canonical", ErrInvalidPath, p)
	}
	trimmed := p[:len(p)-1]
	return trimmed[:strings.LastIndexByte(trimmed, '/')+1], nil
}

// Basename returns the last segment of a canonical path, or "" for the root.
func Basename(p string) string {
	trimmed := strings.TrimSuffix(p, "/")
	return trimmed[strings.LastIndexByte(trimmed, '/')+1:]
}

// Split returns the (parent, name) pair stored for a canonical path. The root
// is stored with an empty parent and an empty name.
func Split(p string) (parent, name string, err error) {
	if p == Root {
		return "", "", nil
	}
	parent, err = Parent(p)
	if err != nil {
		return "", "", err
	}
	return parent, Basename(p), nil
}

// Join is the inverse of Split.
func Join(parent, name string) string {
	if parent == "" && name == "" {
		return Root
	}
	return parent + name + "/"
}

// Ancestors lists every ancestor of a canonical path, root first, ending with
// the path itself.
func Ancestors(p string) []string {
	out := []string{Root}
	for i := 1; i < len(p); i++ {
		if p[i] == '/' {
			out = append(out, p[:i+1])
		}
	}
	return out
}

// IsAncestor reports whether ancestor is p or one of p's ancestors. Both
// arguments must be canonical.
func IsAncestor(ancestor, p string) bool {
	return strings.HasPrefix(p, ancestor)
}

// Depth is the number of segments in a canonical path; the root has depth 0.
func Depth(p string) int {
	return strings.Count(p, "/") - 1
}
