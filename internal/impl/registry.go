// Package impl implements the Implementation Registry: the named variants
// bound to each function contract.
//
// A variant carries an opaque configuration that only backends interpret.
// The registry checks the config against the contract once, at registration,
// through ConfigCheck hooks.
package impl

import (
	"iter"
	"slices"

	"github.com/roach88/typefn/internal/contract"
	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

// Variant is one registered implementation of a function.
type Variant struct {
	Function string      `json:"function"`
	ID       string      `json:"id"`
	Config   ir.IRObject `json:"config"`
	Default  bool        `json:"default"` // Flagged default, not the implicit one
}

func (v Variant) clone() Variant {
	v.Config = v.Config.Clone()
	return v
}

// ConfigCheck validates a variant config against its function contract.
// A non-nil error is reported as INVALID_VARIANT_CONFIG.
type ConfigCheck func(c ir.FunctionContract, v Variant) error

// Option configures a Registry.
type Option func(*Registry)

// WithConfigCheck adds a config check run on every registration, after the
// built-in prompt placeholder check.
func WithConfigCheck(check ConfigCheck) Option {
	return func(r *Registry) {
		r.checks = append(r.checks, check)
	}
}

// Registry holds variants per function in registration order.
//
// Not safe for concurrent use until sealed.
type Registry struct {
	contracts *contract.Store
	variants  map[string][]Variant
	checks    []ConfigCheck
	sealed    bool
}

// NewRegistry returns an empty registry bound to the given contract store.
func NewRegistry(contracts *contract.Store, opts ...Option) *Registry {
	r := &Registry{
		contracts: contracts,
		variants:  make(map[string][]Variant),
		checks:    []ConfigCheck{CheckPromptPlaceholders},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Contracts returns the contract store the registry is bound to.
func (r *Registry) Contracts() *contract.Store {
	return r.contracts
}

// RegisterVariant adds variant id to function. The registry keeps its own
// copy of config.
func (r *Registry) RegisterVariant(function, id string, config ir.IRObject, isDefault bool) error {
	if r.sealed {
		return variantError(errors.KindRegistryClosed, function, id, "cannot register variant after seal")
	}
	c, err := r.contracts.Get(function)
	if err != nil {
		return err
	}
	if id == "" {
		return variantError(errors.KindInvalidVariantConfig, function, id, "variant id must not be empty")
	}

	existing := r.variants[function]
	for _, v := range existing {
		if v.ID == id {
			return variantError(errors.KindDuplicateVariant, function, id, "variant %q already registered", id)
		}
		if isDefault && v.Default {
			return variantError(errors.KindMultipleDefaults, function, id, "variant %q is already the default", v.ID)
		}
	}

	if config == nil {
		config = ir.IRObject{}
	}
	v := Variant{Function: function, ID: id, Config: config.Clone(), Default: isDefault}
	for _, check := range r.checks {
		if err := check(c, v); err != nil {
			e := variantError(errors.KindInvalidVariantConfig, function, id, "config rejected")
			e.Cause = err
			return e
		}
	}

	r.variants[function] = append(existing, v)
	return nil
}

// Variants yields the variant ids of function in registration order. The
// sequence is finite and can be ranged over repeatedly. An unknown function
// yields nothing.
func (r *Registry) Variants(function string) iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, v := range r.variants[function] {
			if !yield(v.ID) {
				return
			}
		}
	}
}

// ListVariants returns the variant ids of function in registration order.
func (r *Registry) ListVariants(function string) ([]string, error) {
	if !r.contracts.Has(function) {
		return nil, unknownFunction(function)
	}
	return slices.Collect(r.Variants(function)), nil
}

// GetVariant returns variant id of function. The returned Config is a copy
// the caller may modify.
func (r *Registry) GetVariant(function, id string) (Variant, error) {
	if !r.contracts.Has(function) {
		return Variant{}, unknownFunction(function)
	}
	for _, v := range r.variants[function] {
		if v.ID == id {
			return v.clone(), nil
		}
	}
	e := variantError(errors.KindUnknownVariant, function, id, "function %q has no variant %q", function, id)
	return Variant{}, e
}

// Default returns the flagged default variant of function, or the first
// registered one when none is flagged.
func (r *Registry) Default(function string) (Variant, error) {
	if !r.contracts.Has(function) {
		return Variant{}, unknownFunction(function)
	}
	vs := r.variants[function]
	if len(vs) == 0 {
		e := errors.E(errors.KindNoImplementations, "function %q has no variants", function)
		e.Function = function
		return Variant{}, e
	}
	for _, v := range vs {
		if v.Default {
			return v.clone(), nil
		}
	}
	return vs[0].clone(), nil
}

// Seal closes the registry for registration.
func (r *Registry) Seal() error {
	r.sealed = true
	return nil
}

// Sealed reports whether the registry is closed for registration.
func (r *Registry) Sealed() bool {
	return r.sealed
}

func variantError(kind errors.Kind, function, id, format string, args ...any) *errors.Error {
	e := errors.E(kind, format, args...)
	e.Function = function
	e.Variant = id
	return e
}

func unknownFunction(function string) error {
	e := errors.E(errors.KindUnknownFunction, "function %q is not defined", function)
	e.Function = function
	return e
}
