package types

import (
	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

// Registry holds the named type declarations of a schema.
//
// Not safe for concurrent use until sealed.
type Registry struct {
	defs   map[string]ir.TypeDef
	order  []string
	sealed bool
}

// NewRegistry returns an empty, unsealed registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]ir.TypeDef)}
}

// Define registers a TypeDef.
//
// Named references in record fields may refer to types that are not yet
// defined; they are checked by Seal. Everything else is checked eagerly.
func (r *Registry) Define(def ir.TypeDef) error {
	if r.sealed {
		e := errors.E(errors.KindRegistryClosed, "cannot define type after seal")
		e.Type = def.Name
		return e
	}
	if def.Name == "" {
		return errors.E(errors.KindUnknownType, "type name must not be empty")
	}
	if ir.IsPrimitive(def.Name) {
		e := errors.E(errors.KindDuplicateDefinition, "type name %q shadows a primitive", def.Name)
		e.Type = def.Name
		return e
	}
	if _, exists := r.defs[def.Name]; exists {
		e := errors.E(errors.KindDuplicateDefinition, "type %q already defined", def.Name)
		e.Type = def.Name
		return e
	}

	switch def.Kind {
	case ir.DefEnum:
		if err := checkEnum(def); err != nil {
			return err
		}
	case ir.DefRecord:
		if err := checkRecord(def); err != nil {
			return err
		}
	default:
		e := errors.E(errors.KindUnknownType, "unknown definition kind %q", def.Kind)
		e.Type = def.Name
		return e
	}

	r.defs[def.Name] = def.Clone()
	r.order = append(r.order, def.Name)
	return nil
}

func checkEnum(def ir.TypeDef) error {
	seen := make(map[string]bool, len(def.Values)*2)
	for _, v := range def.Values {
		for _, name := range []string{v.Name, v.Alias} {
			if name == "" {
				continue
			}
			if seen[name] {
				e := errors.E(errors.KindDuplicateDefinition, "enum value %q declared twice", name)
				e.Type = def.Name
				e.Fields = []string{name}
				return e
			}
			seen[name] = true
		}
		if v.Name == "" {
			e := errors.E(errors.KindDuplicateDefinition, "enum value name must not be empty")
			e.Type = def.Name
			return e
		}
	}
	return nil
}

func checkRecord(def ir.TypeDef) error {
	seen := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		if seen[f.Name] {
			e := errors.E(errors.KindDuplicateDefinition, "field %q declared twice", f.Name)
			e.Type = def.Name
			e.Fields = []string{f.Name}
			return e
		}
		seen[f.Name] = true
		if err := WellFormed(f.Type); err != nil {
			e := errors.E(errors.KindUnknownType, "field %q: %v", f.Name, err)
			e.Type = def.Name
			e.Fields = []string{f.Name}
			return e
		}
	}
	return nil
}

// WellFormed checks TypeRef structure without looking names up.
func WellFormed(t ir.TypeRef) error {
	switch t.Kind {
	case ir.TypePrimitive:
		if !ir.IsPrimitive(t.Name) {
			return errors.Newf("%q is not a primitive", t.Name)
		}
	case ir.TypeNamed:
		if t.Name == "" {
			return errors.New("named reference without a name")
		}
	case ir.TypeOptional, ir.TypeList, ir.TypeMap:
		if t.Elem == nil {
			return errors.Newf("%s without element type", t.Kind)
		}
		return WellFormed(*t.Elem)
	case ir.TypeUnion:
		if len(t.Variants) < 2 {
			return errors.New("union needs at least two members")
		}
		for _, v := range t.Variants {
			if err := WellFormed(v); err != nil {
				return err
			}
		}
	default:
		return errors.Newf("unknown type kind %q", t.Kind)
	}
	return nil
}

// Resolve returns a copy of the TypeDef registered under name.
func (r *Registry) Resolve(name string) (ir.TypeDef, error) {
	def, ok := r.defs[name]
	if !ok {
		e := errors.E(errors.KindUnknownType, "type %q is not defined", name)
		e.Type = name
		return ir.TypeDef{}, e
	}
	return def.Clone(), nil
}

// Has reports whether name is a defined TypeDef.
func (r *Registry) Has(name string) bool {
	_, ok := r.defs[name]
	return ok
}

// Names returns type names in definition order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Sealed reports whether Seal has succeeded.
func (r *Registry) Sealed() bool {
	return r.sealed
}

// ValidateRef checks that t is well formed and every name it references is
// defined. Used by the contract store for params and outputs.
func (r *Registry) ValidateRef(t ir.TypeRef) error {
	if err := WellFormed(t); err != nil {
		return errors.E(errors.KindUnknownType, "%v", err)
	}
	for _, name := range t.References() {
		if !r.Has(name) {
			e := errors.E(errors.KindUnknownType, "type %q is not defined", name)
			e.Type = name
			return e
		}
	}
	return nil
}

// Seal closes the registry for definition.
//
// Seal fails with UNRESOLVED_REFERENCE if a field still names an undefined
// type, and with RECURSIVE_DEFINITION if a record can only be satisfied by an
// infinite value. On failure the registry stays unsealed.
func (r *Registry) Seal() error {
	if r.sealed {
		return nil
	}
	for _, name := range r.order {
		def := r.defs[name]
		for _, f := range def.Fields {
			for _, ref := range f.Type.References() {
				if !r.Has(ref) {
					e := errors.E(errors.KindUnresolvedReference, "field %q references undefined type %q", f.Name, ref)
					e.Type = def.Name
					e.Fields = []string{f.Name}
					return e
				}
			}
		}
	}
	if err := r.checkInhabited(); err != nil {
		return err
	}
	r.sealed = true
	return nil
}

// checkInhabited computes the least fixpoint of "has a finite value" over all
// records. Enums and primitives are inhabited; optionals, lists and maps are
// inhabited by null or empty; a union needs one inhabited member.
func (r *Registry) checkInhabited() error {
	inhabited := make(map[string]bool, len(r.defs))
	for name, def := range r.defs {
		inhabited[name] = def.Kind == ir.DefEnum
	}

	for changed := true; changed; {
		changed = false
		for _, name := range r.order {
			def := r.defs[name]
			if inhabited[name] {
				continue
			}
			ok := true
			for _, f := range def.Fields {
				if !refInhabited(f.Type, inhabited) {
					ok = false
					break
				}
			}
			if ok {
				inhabited[name] = true
				changed = true
			}
		}
	}

	for _, name := range r.order {
		if inhabited[name] {
			continue
		}
		def := r.defs[name]
		var fields []string
		for _, f := range def.Fields {
			if !refInhabited(f.Type, inhabited) {
				fields = append(fields, f.Name)
			}
		}
		e := errors.E(errors.KindRecursiveDefinition, "record %q has no finite value; make a recursive field optional or a list", name)
		e.Type = name
		e.Fields = fields
		return e
	}
	return nil
}

func refInhabited(t ir.TypeRef, inhabited map[string]bool) bool {
	switch t.Kind {
	case ir.TypePrimitive:
		return true
	case ir.TypeNamed:
		return inhabited[t.Name]
	case ir.TypeOptional, ir.TypeList, ir.TypeMap:
		return true
	case ir.TypeUnion:
		for _, v := range t.Variants {
			if refInhabited(v, inhabited) {
				return true
			}
		}
	}
	return false
}

// Closure returns copies of every TypeDef transitively referenced by refs,
// in definition order. Unknown names are skipped.
func (r *Registry) Closure(refs ...ir.TypeRef) []ir.TypeDef {
	reached := make(map[string]bool)
	var queue []string
	for _, t := range refs {
		queue = append(queue, t.References()...)
	}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if reached[name] {
			continue
		}
		def, ok := r.defs[name]
		if !ok {
			continue
		}
		reached[name] = true
		for _, f := range def.Fields {
			queue = append(queue, f.Type.References()...)
		}
	}

	out := make([]ir.TypeDef, 0, len(reached))
	for _, name := range r.order {
		if reached[name] {
			out = append(out, r.defs[name].Clone())
		}
	}
	return out
}
