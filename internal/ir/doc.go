// Package ir provides the intermediate representation consumed by the typefn core.
//
// A schema front-end (CUE files or a JSON IR document) produces an ir.Schema:
// type declarations, function contracts and implementation variants. The
// registries in internal/types, internal/contract and internal/impl are built
// from it. This package contains data definitions and value encoding only; it
// imports nothing internal, so every other package can depend on it.
//
// Key design constraints:
//   - Values are a sealed interface (IRValue); only the IR* types implement it
//   - All JSON tags use snake_case
//   - Declaration order is significant and preserved in every slice
//   - Content hashes use RFC 8785 canonical JSON with domain separation
package ir
