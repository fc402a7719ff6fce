package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/typefn/internal/ir"
)

// CompileEnum compiles a CUE enum declaration into an ir.TypeDef.
//
// Accepted forms:
//
//	enum: Sender: {values: ["USER", "ASSISTANT"]}
//	enum: Sender: {values: [{name: "USER", alias: "user"}, "ASSISTANT"]}
func CompileEnum(v cue.Value) (*ir.TypeDef, error) {
	name, ok := v.Label()
	if !ok {
		return nil, &CompileError{Field: "enum", Message: "enum must be declared under a name", Pos: v.Pos()}
	}

	def := &ir.TypeDef{Kind: ir.DefEnum, Name: name}
	desc, err := optionalString(v, "description")
	if err != nil {
		return nil, err
	}
	def.Description = desc

	valuesVal := v.LookupPath(cue.ParsePath("values"))
	if !valuesVal.Exists() {
		return nil, &CompileError{
			Field:   "values",
			Message: fmt.Sprintf("enum %q: values is required", name),
			Pos:     v.Pos(),
		}
	}
	iter, err := valuesVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		ev, err := compileEnumValue(iter.Value())
		if err != nil {
			return nil, err
		}
		def.Values = append(def.Values, ev)
	}
	return def, nil
}

func compileEnumValue(v cue.Value) (ir.EnumValue, error) {
	if v.Kind() == cue.StringKind {
		s, err := v.String()
		if err != nil {
			return ir.EnumValue{}, formatCUEError(err)
		}
		return ir.EnumValue{Name: s}, nil
	}
	if v.IncompleteKind() != cue.StructKind {
		return ir.EnumValue{}, &CompileError{
			Field:   "values",
			Message: "enum value must be a string or {name, alias}",
			Pos:     v.Pos(),
		}
	}
	name, err := requiredString(v, "name")
	if err != nil {
		return ir.EnumValue{}, err
	}
	alias, err := optionalString(v, "alias")
	if err != nil {
		return ir.EnumValue{}, err
	}
	return ir.EnumValue{Name: name, Alias: alias}, nil
}

// CompileClass compiles a CUE class declaration into a record ir.TypeDef.
//
//	class: Message: {
//	    fields: {
//	        sender: "Sender"
//	        text:   string
//	        tags:   {type: "map<string, string>", description: "free-form labels"}
//	    }
//	}
func CompileClass(v cue.Value) (*ir.TypeDef, error) {
	name, ok := v.Label()
	if !ok {
		return nil, &CompileError{Field: "class", Message: "class must be declared under a name", Pos: v.Pos()}
	}

	def := &ir.TypeDef{Kind: ir.DefRecord, Name: name}
	desc, err := optionalString(v, "description")
	if err != nil {
		return nil, err
	}
	def.Description = desc

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return def, nil
	}
	iter, err := fieldsVal.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		t, fdesc, err := extractTypeRef(iter.Value())
		if err != nil {
			return nil, err
		}
		if iter.IsOptional() {
			t = optionalOf(t)
		}
		def.Fields = append(def.Fields, ir.Field{
			Name:        iter.Selector().Unquoted(),
			Type:        t,
			Description: fdesc,
		})
	}
	return def, nil
}

// CompileFunction compiles a CUE function declaration into an ir.FunctionContract.
// Parameter order is the declaration order of the input struct.
//
//	function: Simplify: {
//	    input: {msg: "Message"}
//	    output: "string"
//	}
func CompileFunction(v cue.Value) (*ir.FunctionContract, error) {
	name, ok := v.Label()
	if !ok {
		return nil, &CompileError{Field: "function", Message: "function must be declared under a name", Pos: v.Pos()}
	}

	fn := &ir.FunctionContract{Name: name, Params: []ir.Param{}}
	desc, err := optionalString(v, "description")
	if err != nil {
		return nil, err
	}
	fn.Description = desc

	outputVal := v.LookupPath(cue.ParsePath("output"))
	if !outputVal.Exists() {
		return nil, &CompileError{
			Field:   "output",
			Message: fmt.Sprintf("function %q: output is required", name),
			Pos:     v.Pos(),
		}
	}
	fn.Output, _, err = extractTypeRef(outputVal)
	if err != nil {
		return nil, err
	}

	inputVal := v.LookupPath(cue.ParsePath("input"))
	if !inputVal.Exists() {
		return fn, nil
	}
	iter, err := inputVal.Fields(cue.Optional(true))
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		t, _, err := extractTypeRef(iter.Value())
		if err != nil {
			return nil, err
		}
		if iter.IsOptional() {
			t = optionalOf(t)
		}
		fn.Params = append(fn.Params, ir.Param{Name: iter.Selector().Unquoted(), Type: t})
	}
	return fn, nil
}

// CompileImpls compiles the variants declared for one function.
//
//	impl: Simplify: {
//	    v1: {client: "template", prompt: "Simplify: {#input.msg}", default: true}
//	}
//
// Everything except the reserved "default" key is carried verbatim as the
// variant's opaque config.
func CompileImpls(v cue.Value) ([]ir.VariantDecl, error) {
	fn, ok := v.Label()
	if !ok {
		return nil, &CompileError{Field: "impl", Message: "impl must be declared under a function name", Pos: v.Pos()}
	}

	iter, err := v.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var variants []ir.VariantDecl
	for iter.Next() {
		decl, err := compileVariant(fn, iter.Selector().Unquoted(), iter.Value())
		if err != nil {
			return nil, err
		}
		variants = append(variants, decl)
	}
	return variants, nil
}

func compileVariant(fn, id string, v cue.Value) (ir.VariantDecl, error) {
	if v.IncompleteKind() != cue.StructKind {
		return ir.VariantDecl{}, &CompileError{
			Field:   "impl",
			Message: fmt.Sprintf("variant %s.%s must be a struct", fn, id),
			Pos:     v.Pos(),
		}
	}

	decl := ir.VariantDecl{Function: fn, ID: id, Config: ir.IRObject{}}

	defaultVal := v.LookupPath(cue.ParsePath("default"))
	if defaultVal.Exists() {
		b, err := defaultVal.Bool()
		if err != nil {
			return ir.VariantDecl{}, &CompileError{
				Field:   "default",
				Message: fmt.Sprintf("variant %s.%s: default must be a bool", fn, id),
				Pos:     defaultVal.Pos(),
			}
		}
		decl.Default = b
	}

	iter, err := v.Fields()
	if err != nil {
		return ir.VariantDecl{}, formatCUEError(err)
	}
	for iter.Next() {
		key := iter.Selector().Unquoted()
		if key == "default" {
			continue
		}
		val, err := cueToIR(iter.Value())
		if err != nil {
			return ir.VariantDecl{}, err
		}
		decl.Config[key] = val
	}
	return decl, nil
}

// cueToIR converts a concrete CUE value to an IRValue through its JSON form,
// which keeps the int/float distinction CUE carries.
func cueToIR(v cue.Value) (ir.IRValue, error) {
	data, err := v.MarshalJSON()
	if err != nil {
		return nil, formatCUEError(err)
	}
	val, err := ir.UnmarshalIRValue(data)
	if err != nil {
		return nil, &CompileError{Field: "config", Message: err.Error(), Pos: v.Pos()}
	}
	return val, nil
}

// extractTypeRef converts a CUE field declaration into a TypeRef.
//
// Three forms are accepted: a type expression string ("Message[]"), a bare
// CUE primitive (string, int, float, number, bool), or a struct
// {type: "...", description: "..."}. The description is returned when present.
func extractTypeRef(v cue.Value) (ir.TypeRef, string, error) {
	if v.IsConcrete() && v.Kind() == cue.StringKind {
		expr, err := v.String()
		if err != nil {
			return ir.TypeRef{}, "", formatCUEError(err)
		}
		t, err := ir.ParseTypeRef(expr)
		if err != nil {
			return ir.TypeRef{}, "", &CompileError{Field: "type", Message: err.Error(), Pos: v.Pos()}
		}
		return t, "", nil
	}

	switch v.IncompleteKind() {
	case cue.StringKind:
		return ir.Prim("string"), "", nil
	case cue.IntKind:
		return ir.Prim("int"), "", nil
	case cue.FloatKind, cue.NumberKind:
		return ir.Prim("float"), "", nil
	case cue.BoolKind:
		return ir.Prim("bool"), "", nil
	case cue.StructKind:
		typeVal := v.LookupPath(cue.ParsePath("type"))
		if !typeVal.Exists() {
			return ir.TypeRef{}, "", &CompileError{
				Field:   "type",
				Message: "struct field declaration requires a type",
				Pos:     v.Pos(),
			}
		}
		t, _, err := extractTypeRef(typeVal)
		if err != nil {
			return ir.TypeRef{}, "", err
		}
		desc, err := optionalString(v, "description")
		if err != nil {
			return ir.TypeRef{}, "", err
		}
		return t, desc, nil
	default:
		return ir.TypeRef{}, "", &CompileError{
			Field:   "type",
			Message: fmt.Sprintf("unsupported type kind: %v (use a type expression string)", v.IncompleteKind()),
			Pos:     v.Pos(),
		}
	}
}

// optionalOf marks a CUE optional field (name?: T) as T?.
func optionalOf(t ir.TypeRef) ir.TypeRef {
	if t.Kind == ir.TypeOptional {
		return t
	}
	return ir.Optional(t)
}

func requiredString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", &CompileError{
			Field:   field,
			Message: field + " is required",
			Pos:     v.Pos(),
		}
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func optionalString(v cue.Value, field string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(field))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
