// Package resolve implements the Resolution Engine: it maps a
// ResolutionRequest to exactly one registered variant.
//
// Precedence, highest first:
//  1. The explicit variant in the request
//  2. The override context entry for the function
//  3. The variant flagged as default
//  4. The first registered variant
//
// Resolution only reads sealed registries, so it takes no locks and the same
// request always yields the same variant.
package resolve

import (
	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/impl"
	"github.com/roach88/typefn/internal/ir"
)

// Source records which precedence rule picked the variant.
type Source string

const (
	SourceExplicit Source = "explicit"
	SourceOverride Source = "override"
	SourceDefault  Source = "default"  // Flagged default
	SourceImplicit Source = "implicit" // First registered
)

// Resolution is the result of a successful resolve.
type Resolution struct {
	Variant impl.Variant
	Source  Source
}

// Engine resolves requests against an Implementation Registry.
type Engine struct {
	impls *impl.Registry
}

// New returns an engine reading from impls.
func New(impls *impl.Registry) *Engine {
	return &Engine{impls: impls}
}

// Resolve returns the variant selected by req.
func (e *Engine) Resolve(req ir.ResolutionRequest) (impl.Variant, error) {
	res, err := e.ResolveWithSource(req)
	if err != nil {
		return impl.Variant{}, err
	}
	return res.Variant, nil
}

// ResolveWithSource is Resolve plus the rule that made the choice.
func (e *Engine) ResolveWithSource(req ir.ResolutionRequest) (Resolution, error) {
	if !e.impls.Contracts().Has(req.Function) {
		err := errors.E(errors.KindUnknownFunction, "function %q is not defined", req.Function)
		err.Function = req.Function
		return Resolution{}, err
	}

	if req.Variant != "" {
		v, err := e.impls.GetVariant(req.Function, req.Variant)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Variant: v, Source: SourceExplicit}, nil
	}

	if id, ok := req.Overrides[req.Function]; ok && id != "" {
		v, err := e.impls.GetVariant(req.Function, id)
		if err != nil {
			return Resolution{}, err
		}
		return Resolution{Variant: v, Source: SourceOverride}, nil
	}

	v, err := e.impls.Default(req.Function)
	if err != nil {
		return Resolution{}, err
	}
	if v.Default {
		return Resolution{Variant: v, Source: SourceDefault}, nil
	}
	return Resolution{Variant: v, Source: SourceImplicit}, nil
}
