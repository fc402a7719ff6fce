// Package contract implements the Function Contract Store: the typed
// input/output signature of every named function.
//
// Contracts are defined after the Type Registry is sealed so every named
// type in a signature can be checked immediately.
package contract

import (
	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/types"
)

// Store holds function contracts in definition order.
//
// Not safe for concurrent use until sealed.
type Store struct {
	types     *types.Registry
	contracts map[string]ir.FunctionContract
	order     []string
	sealed    bool
}

// NewStore returns an empty store whose signatures are checked against reg.
func NewStore(reg *types.Registry) *Store {
	return &Store{
		types:     reg,
		contracts: make(map[string]ir.FunctionContract),
	}
}

// Types returns the Type Registry the store validates against.
func (s *Store) Types() *types.Registry {
	return s.types
}

// Define registers a function contract.
func (s *Store) Define(name string, params []ir.Param, output ir.TypeRef) error {
	return s.DefineContract(ir.FunctionContract{Name: name, Params: params, Output: output})
}

// DefineContract registers c, keeping its description.
func (s *Store) DefineContract(c ir.FunctionContract) error {
	if s.sealed {
		e := errors.E(errors.KindRegistryClosed, "cannot define function after seal")
		e.Function = c.Name
		return e
	}
	if c.Name == "" {
		return errors.E(errors.KindUnknownFunction, "function name must not be empty")
	}
	if _, exists := s.contracts[c.Name]; exists {
		e := errors.E(errors.KindDuplicateFunction, "function %q already defined", c.Name)
		e.Function = c.Name
		return e
	}

	seen := make(map[string]bool, len(c.Params))
	for _, p := range c.Params {
		if seen[p.Name] {
			e := errors.E(errors.KindDuplicateDefinition, "parameter %q declared twice", p.Name)
			e.Function = c.Name
			e.Params = []string{p.Name}
			return e
		}
		seen[p.Name] = true

		if err := s.types.ValidateRef(p.Type); err != nil {
			return withFunction(err, c.Name, p.Name)
		}
	}
	if err := s.types.ValidateRef(c.Output); err != nil {
		return withFunction(err, c.Name, "")
	}

	s.contracts[c.Name] = c.Clone()
	s.order = append(s.order, c.Name)
	return nil
}

func withFunction(err error, function, param string) error {
	var fe *errors.Error
	if errors.As(err, &fe) {
		fe.Function = function
		if param != "" {
			fe.Params = []string{param}
		}
		return fe
	}
	return err
}

// Get returns a copy of the contract for name.
func (s *Store) Get(name string) (ir.FunctionContract, error) {
	c, ok := s.contracts[name]
	if !ok {
		e := errors.E(errors.KindUnknownFunction, "function %q is not defined", name)
		e.Function = name
		return ir.FunctionContract{}, e
	}
	return c.Clone(), nil
}

// Has reports whether name is a defined function.
func (s *Store) Has(name string) bool {
	_, ok := s.contracts[name]
	return ok
}

// Names returns function names in definition order.
func (s *Store) Names() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// Seal closes the store for definition.
func (s *Store) Seal() error {
	s.sealed = true
	return nil
}

// Sealed reports whether the store is closed for definition.
func (s *Store) Sealed() bool {
	return s.sealed
}
