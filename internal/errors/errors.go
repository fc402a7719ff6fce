// Package errors provides the error taxonomy for typefn.
//
// It re-exports github.com/cockroachdb/errors for wrapping and inspection and
// adds Error, a structured failure carrying a Kind plus enough context (function,
// variant, type, parameter and field names) to pinpoint a failure without access
// to registry internals.
//
// Usage:
//
//	if errors.IsKind(err, errors.KindUnknownVariant) {
//	    // ...
//	}
//
//	var fe *errors.Error
//	if errors.As(err, &fe) {
//	    log.Printf("function=%s params=%v", fe.Function, fe.Params)
//	}
package errors

import (
	"fmt"
	"strings"

	crdb "github.com/cockroachdb/errors"
)

// Core error creation and wrapping
var (
	New         = crdb.New
	Newf        = crdb.Newf
	Wrap        = crdb.Wrap
	Wrapf       = crdb.Wrapf
	WithStack   = crdb.WithStack
	WithHint    = crdb.WithHint
	WithHintf   = crdb.WithHintf
	WithDetailf = crdb.WithDetailf
)

// Error inspection
var (
	Is           = crdb.Is
	As           = crdb.As
	Unwrap       = crdb.Unwrap
	UnwrapAll    = crdb.UnwrapAll
	FlattenHints = crdb.FlattenHints
)

// Kind categorizes failures. The string values are stable and appear in CLI
// output and in persisted call records.
type Kind string

// Build-time type errors.
const (
	KindUnknownType         Kind = "UNKNOWN_TYPE"
	KindDuplicateDefinition Kind = "DUPLICATE_DEFINITION"
	KindUnresolvedReference Kind = "UNRESOLVED_REFERENCE"
	KindRecursiveDefinition Kind = "RECURSIVE_DEFINITION"
)

// Build-time contract errors.
const (
	KindUnknownFunction   Kind = "UNKNOWN_FUNCTION"
	KindDuplicateFunction Kind = "DUPLICATE_FUNCTION"
)

// Implementation errors, raised at build time or call time.
const (
	KindDuplicateVariant     Kind = "DUPLICATE_VARIANT"
	KindMultipleDefaults     Kind = "MULTIPLE_DEFAULTS"
	KindUnknownVariant       Kind = "UNKNOWN_VARIANT"
	KindNoImplementations    Kind = "NO_IMPLEMENTATIONS"
	KindInvalidVariantConfig Kind = "INVALID_VARIANT_CONFIG"
)

// Call-time validation and execution errors.
const (
	KindArgumentMismatch   Kind = "ARGUMENT_MISMATCH"
	KindOutputTypeMismatch Kind = "OUTPUT_TYPE_MISMATCH"
	KindBackendError       Kind = "BACKEND_ERROR"
	KindCancelled          Kind = "CANCELLED"
	KindTimeout            Kind = "TIMEOUT"
)

// Lifecycle misuse.
const (
	KindRegistryClosed Kind = "REGISTRY_CLOSED"
)

// Error is a structured typefn failure.
//
// Only the fields relevant to the failure are set. Params lists offending
// parameter names for ARGUMENT_MISMATCH; Fields lists dotted value paths
// (e.g. "msg.sender") for any shape violation.
type Error struct {
	Kind     Kind
	Message  string
	Function string
	Variant  string
	Type     string
	Params   []string
	Fields   []string
	Cause    error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "%s: %s", e.Kind, e.Message)

	var ctx []string
	if e.Function != "" {
		ctx = append(ctx, "function="+e.Function)
	}
	if e.Variant != "" {
		ctx = append(ctx, "variant="+e.Variant)
	}
	if e.Type != "" {
		ctx = append(ctx, "type="+e.Type)
	}
	if len(e.Params) > 0 {
		ctx = append(ctx, "params="+strings.Join(e.Params, ","))
	}
	if len(e.Fields) > 0 {
		ctx = append(ctx, "fields="+strings.Join(e.Fields, ","))
	}
	if len(ctx) > 0 {
		fmt.Fprintf(&buf, " (%s)", strings.Join(ctx, ", "))
	}
	if e.Cause != nil {
		fmt.Fprintf(&buf, ": %v", e.Cause)
	}
	return buf.String()
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.Cause
}

// E creates an Error of the given kind with a formatted message.
// Context fields are set by the caller on the returned value.
func E(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the Kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) Kind {
	var fe *Error
	if As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// IsKind reports whether err carries the given Kind.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// IsBuildError reports whether err is a build-time registry error.
func IsBuildError(err error) bool {
	switch KindOf(err) {
	case KindUnknownType, KindDuplicateDefinition, KindUnresolvedReference,
		KindRecursiveDefinition, KindDuplicateFunction, KindDuplicateVariant,
		KindMultipleDefaults, KindInvalidVariantConfig, KindRegistryClosed:
		return true
	}
	return false
}

// IsValidationError reports whether err is a call-time shape violation.
func IsValidationError(err error) bool {
	k := KindOf(err)
	return k == KindArgumentMismatch || k == KindOutputTypeMismatch
}
