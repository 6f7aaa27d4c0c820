// Package ir provides the value types stored as node payloads and used as
// predicate literals.
//
// This package contains value definitions only. Other internal packages
// import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is a sealed interface; only the types in this package implement it
//   - Integers and floats are distinct (Int vs Float) so that integers beyond
//     2^53 survive a round trip through the database
//   - Payloads are persisted with MarshalCanonical so that equal payloads
//     produce byte-identical JSON and identical digests
package ir
