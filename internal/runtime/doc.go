// Package runtime implements the Invocation Façade: the single entry point
// callers use to invoke a schema function.
//
// Each call moves through a fixed state machine:
//
//	Received → ArgsValidated → Resolved → Dispatched → OutputValidated → Completed
//
// Any step may instead end in Failed, carrying an errors.Kind. The façade
// validates arguments against the contract, resolves a variant, dispatches
// to the Backend under the caller's context, validates the output and emits
// exactly one ir.CallRecord to the configured Sink.
//
// Thread-safety: Runtime is safe for concurrent use. It reads sealed
// registries without locks; the only shared mutable state is the logical
// clock (atomic) and the Sink (which must be safe for concurrent use).
//
// Retries are deliberately absent: a failed dispatch is reported once.
package runtime
