package ir

// Schema is the already-validated intermediate representation of a schema
// source. Slice order is declaration order and is preserved by every consumer.
type Schema struct {
	Types     []TypeDef          `json:"types"`
	Functions []FunctionContract `json:"functions"`
	Variants  []VariantDecl      `json:"variants"`
}

// DefKind distinguishes enumerations from records.
type DefKind string

const (
	DefEnum   DefKind = "enum"
	DefRecord DefKind = "record"
)

// TypeDef is a named enumeration or record declaration.
type TypeDef struct {
	Kind        DefKind     `json:"kind"`
	Name        string      `json:"name"`
	Description string      `json:"description,omitempty"`
	Values      []EnumValue `json:"values,omitempty"` // enum only, ordered
	Fields      []Field     `json:"fields,omitempty"` // record only, ordered
}

// EnumValue is one enumeration variant. Alias is the optional external
// representation accepted in place of Name.
type EnumValue struct {
	Name  string `json:"name"`
	Alias string `json:"alias,omitempty"`
}

// Field is a named, typed record field.
type Field struct {
	Name        string  `json:"name"`
	Type        TypeRef `json:"type"`
	Description string  `json:"description,omitempty"`
}

// Param is a named function parameter.
type Param struct {
	Name string  `json:"name"`
	Type TypeRef `json:"type"`
}

// FunctionContract is the typed input/output signature of a named function.
type FunctionContract struct {
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Params      []Param `json:"params"`
	Output      TypeRef `json:"output"`
}

// ParamNames returns parameter names in declaration order.
func (c FunctionContract) ParamNames() []string {
	names := make([]string, len(c.Params))
	for i, p := range c.Params {
		names[i] = p.Name
	}
	return names
}

// VariantDecl declares one implementation of a function.
// Config is opaque to the core; backends interpret it.
type VariantDecl struct {
	Function string   `json:"function"`
	ID       string   `json:"id"`
	Config   IRObject `json:"config"`
	Default  bool     `json:"default,omitempty"`
}

// ResolutionRequest selects the variant for one call.
//
// Variant is an explicit selection and always wins. Overrides is the
// client-level override context (function name -> variant id) consulted when
// no explicit variant is given.
type ResolutionRequest struct {
	Function  string            `json:"function"`
	Variant   string            `json:"variant,omitempty"`
	Overrides map[string]string `json:"overrides,omitempty"`
}
