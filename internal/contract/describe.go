package contract

import (
	"github.com/roach88/typefn/internal/ir"
)

// Description is the fully expanded, stable view of a contract. Repeated
// calls for the same function return equal values.
type Description struct {
	Name        string       `json:"name"`
	Description string       `json:"description,omitempty"`
	Params      []ParamDesc  `json:"params"`
	Output      string       `json:"output"`
	Types       []ir.TypeDef `json:"types"` // Transitively referenced, definition order
	Hash        string       `json:"hash"`  // ir.ContractHash
}

// ParamDesc is a parameter with its type rendered in schema syntax.
type ParamDesc struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Describe returns the expanded description of function name.
func (s *Store) Describe(name string) (Description, error) {
	c, err := s.Get(name)
	if err != nil {
		return Description{}, err
	}

	refs := make([]ir.TypeRef, 0, len(c.Params)+1)
	params := make([]ParamDesc, len(c.Params))
	for i, p := range c.Params {
		params[i] = ParamDesc{Name: p.Name, Type: p.Type.String()}
		refs = append(refs, p.Type)
	}
	refs = append(refs, c.Output)

	deps := s.types.Closure(refs...)
	hash, err := ir.ContractHash(c, deps)
	if err != nil {
		return Description{}, err
	}

	return Description{
		Name:        c.Name,
		Description: c.Description,
		Params:      params,
		Output:      c.Output.String(),
		Types:       deps,
		Hash:        hash,
	}, nil
}
