// Package registry builds the three sealed registries from an ir.Schema.
//
// Build is all or nothing: the first error aborts and no registry is
// returned, so callers never observe a partially built schema.
package registry

import (
	"github.com/roach88/typefn/internal/contract"
	"github.com/roach88/typefn/internal/impl"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/resolve"
	"github.com/roach88/typefn/internal/types"
)

// Registry bundles the sealed registries of one schema.
type Registry struct {
	Types     *types.Registry
	Contracts *contract.Store
	Impls     *impl.Registry
	Resolver  *resolve.Engine
	Hash      string // ir.SchemaHash of the source schema
}

// Build constructs and seals the Type Registry, Contract Store and
// Implementation Registry, in that order.
func Build(schema ir.Schema, opts ...impl.Option) (*Registry, error) {
	typeReg := types.NewRegistry()
	for _, def := range schema.Types {
		if err := typeReg.Define(def); err != nil {
			return nil, err
		}
	}
	if err := typeReg.Seal(); err != nil {
		return nil, err
	}

	contracts := contract.NewStore(typeReg)
	for _, c := range schema.Functions {
		if err := contracts.DefineContract(c); err != nil {
			return nil, err
		}
	}
	if err := contracts.Seal(); err != nil {
		return nil, err
	}

	impls := impl.NewRegistry(contracts, opts...)
	for _, v := range schema.Variants {
		if err := impls.RegisterVariant(v.Function, v.ID, v.Config, v.Default); err != nil {
			return nil, err
		}
	}
	if err := impls.Seal(); err != nil {
		return nil, err
	}

	hash, err := ir.SchemaHash(schema)
	if err != nil {
		return nil, err
	}

	return &Registry{
		Types:     typeReg,
		Contracts: contracts,
		Impls:     impls,
		Resolver:  resolve.New(impls),
		Hash:      hash,
	}, nil
}
