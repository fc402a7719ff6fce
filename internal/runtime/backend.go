package runtime

import (
	"context"

	"github.com/roach88/typefn/internal/ir"
)

// Request is what the façade hands to a Backend for one dispatch.
//
// Args are already validated and normalized against the contract. Config is
// the resolved variant's opaque configuration. Both belong to this call
// alone, so a backend may modify them without affecting the registry or
// concurrent calls.
type Request struct {
	Function string
	Variant  string
	Config   ir.IRObject
	Args     ir.IRObject
	Output   ir.TypeRef        // Declared output type, for backends that shape results
	Env      map[string]string // Runtime context environment
}

// Backend executes a resolved variant.
//
// Implementations should honor ctx. The façade returns as soon as ctx is
// done whether or not the backend has returned. Any returned error is
// reported as BACKEND_ERROR with the error kept as cause.
type Backend interface {
	Call(ctx context.Context, req Request) (ir.IRValue, error)
}

// BackendFunc adapts a function to the Backend interface.
type BackendFunc func(ctx context.Context, req Request) (ir.IRValue, error)

// Call implements Backend.
func (f BackendFunc) Call(ctx context.Context, req Request) (ir.IRValue, error) {
	return f(ctx, req)
}
