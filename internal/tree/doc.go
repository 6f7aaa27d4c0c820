// Package tree implements a filesystem-like hierarchical object store over a
// relational Backend.
//
// Every node lives at a unique canonical path ("/a/b/"), owns a JSON object
// payload and carries creation and modification times. A Store is a scoped,
// immutable handle: Cd returns a new handle and relative paths resolve
// against the handle's scope.
//
// Invariants maintained across Save and Delete:
//   - exactly one root at "/", never deleted
//   - (parent, name) is unique; saving an existing path updates it in place
//   - a node can only be created under an existing parent
//   - deleting a node removes its whole subtree in one statement
//
// The Store holds no locks. Concurrent writers must be serialized by the
// caller (the CLI takes a file lock, the HTTP server a mutex).
package tree
