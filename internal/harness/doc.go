// Package harness runs YAML scenarios against a fresh tree store and checks
// their outcomes.
//
// # Scenario Format
//
//	name: subtree_delete
//	description: "Deleting a node removes its descendants only"
//	schemas:
//	  - prefix: /users/
//	    file: user.cue          # relative to the scenario file
//	steps:
//	  - op: save
//	    path: /a/
//	    data: { size: 3 }
//	    expect: { created: true }
//	  - op: find
//	    path: /
//	    query: "data.size > 1"
//	    expect: { paths: [/a/] }
//	  - op: rm
//	    path: /a/
//	    expect: { deleted: 1 }
//	  - op: save
//	    path: /x/y/
//	    expect: { error: PARENT_NOT_FOUND }
//	assertions:
//	  - type: missing
//	    path: /a/
//
// # Operations
//
//   - save: upsert data at path
//   - get: read the node at path
//   - exists: check path
//   - ls: direct children of path
//   - parents: ancestors-or-self of path, bounded by top
//   - find: nodes under path matching query
//   - rm: delete path and its descendants
//   - cd: rescope later steps to path
//
// # Assertion Types
//
//   - exists / missing: a node is (not) present at path
//   - count: the subtree at path holds exactly count nodes
//   - data: the node at path carries the given fields (subset match)
//
// # Deterministic Testing
//
// Every scenario runs on a fresh in-memory SQLite database with a
// testutil.DeterministicClock and testutil.SequentialIDs, so traces are
// identical across runs and can be compared against golden files.
package harness
