// Package types implements the Type Registry: named enumeration and record
// declarations, forward-reference resolution, and the shape checker that
// validates call arguments and backend outputs against a TypeRef.
//
// A Registry is built single-threaded and then sealed. After Seal it is
// immutable and safe for concurrent reads without locking.
//
// Registration rules:
//   - Names are unique and may not shadow a primitive (string, int, float, bool, null)
//   - Field names within a record and value names/aliases within an enum are unique
//   - Named references may point forward; Seal fails if any is still missing
//   - Every record must be constructible by a finite value, so recursion has to
//     pass through an optional, list, map, or a union with a terminating branch
package types
