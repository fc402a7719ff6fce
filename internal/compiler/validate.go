package compiler

import (
	"fmt"
	"regexp"
	"slices"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/impl"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/registry"
	"github.com/roach88/typefn/internal/types"
)

// Validation error codes (E100-E199)
const (
	ErrMissingRequired = "E100" // required declaration part missing

	// Declaration errors (E101-E105)
	ErrInvalidName     = "E101" // empty or non-identifier name
	ErrDuplicateName   = "E102" // duplicate type/function name, or shadows a primitive
	ErrDuplicateMember = "E103" // duplicate field, param, enum value or alias
	ErrInvalidTypeExpr = "E104" // malformed type expression
	ErrUndefinedType   = "E105" // reference to an undeclared type

	// Implementation errors (E106-E109)
	ErrUnknownFunction      = "E106" // variant for an undeclared function
	ErrDuplicateVariant     = "E107" // duplicate variant id within a function
	ErrMultipleDefaults     = "E108" // more than one default variant
	ErrInvalidVariantConfig = "E109" // config rejected (e.g. unknown prompt placeholder)

	// Registry build errors (E110-E119)
	ErrRecursiveType = "E110" // recursive type with no finite value
	ErrBuildFailed   = "E119" // any other registry build failure
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks a compiled schema and returns all errors found (does not
// fail-fast). When the static checks pass, the schema is also built into
// registries so that failures only the registries detect (recursive types,
// rejected configs) are reported with a code.
func Validate(schema ir.Schema, opts ...impl.Option) []ValidationError {
	var errs []ValidationError

	declared := make(map[string]bool)
	for i, def := range schema.Types {
		path := fmt.Sprintf("types[%d]", i)
		errs = append(errs, validateName(path+".name", def.Name)...)
		switch {
		case ir.IsPrimitive(def.Name):
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("type %q shadows a primitive", def.Name),
				Code:    ErrDuplicateName,
			})
		case declared[def.Name]:
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate type name: %q", def.Name),
				Code:    ErrDuplicateName,
			})
		}
		declared[def.Name] = true

		switch def.Kind {
		case ir.DefEnum:
			errs = append(errs, validateEnum(path, def)...)
		case ir.DefRecord:
			errs = append(errs, validateRecord(path, def)...)
		default:
			errs = append(errs, ValidationError{
				Field:   path + ".kind",
				Message: fmt.Sprintf("unknown definition kind %q", def.Kind),
				Code:    ErrMissingRequired,
			})
		}
	}

	// Second pass: references, once every name is known.
	for i, def := range schema.Types {
		for j, f := range def.Fields {
			errs = append(errs, validateRef(fmt.Sprintf("types[%d].fields[%d].type", i, j), f.Type, declared)...)
		}
	}

	contracts := make(map[string]ir.FunctionContract)
	for i, fn := range schema.Functions {
		path := fmt.Sprintf("functions[%d]", i)
		errs = append(errs, validateName(path+".name", fn.Name)...)
		if _, dup := contracts[fn.Name]; dup {
			errs = append(errs, ValidationError{
				Field:   path + ".name",
				Message: fmt.Sprintf("duplicate function name: %q", fn.Name),
				Code:    ErrDuplicateName,
			})
		}
		contracts[fn.Name] = fn

		seen := make(map[string]bool)
		for j, p := range fn.Params {
			ppath := fmt.Sprintf("%s.params[%d]", path, j)
			errs = append(errs, validateName(ppath+".name", p.Name)...)
			if seen[p.Name] {
				errs = append(errs, ValidationError{
					Field:   ppath + ".name",
					Message: fmt.Sprintf("duplicate parameter %q in function %q", p.Name, fn.Name),
					Code:    ErrDuplicateMember,
				})
			}
			seen[p.Name] = true
			errs = append(errs, validateRef(ppath+".type", p.Type, declared)...)
		}
		errs = append(errs, validateRef(path+".output", fn.Output, declared)...)
	}

	variantIDs := make(map[string][]string)
	defaults := make(map[string]string)
	for i, v := range schema.Variants {
		path := fmt.Sprintf("variants[%d]", i)
		fn, ok := contracts[v.Function]
		if !ok {
			errs = append(errs, ValidationError{
				Field:   path + ".function",
				Message: fmt.Sprintf("variant %q targets undeclared function %q", v.ID, v.Function),
				Code:    ErrUnknownFunction,
			})
			continue
		}
		if v.ID == "" {
			errs = append(errs, ValidationError{
				Field:   path + ".id",
				Message: fmt.Sprintf("variant of %q has an empty id", v.Function),
				Code:    ErrInvalidName,
			})
		}
		if slices.Contains(variantIDs[v.Function], v.ID) {
			errs = append(errs, ValidationError{
				Field:   path + ".id",
				Message: fmt.Sprintf("duplicate variant %q for function %q", v.ID, v.Function),
				Code:    ErrDuplicateVariant,
			})
		}
		variantIDs[v.Function] = append(variantIDs[v.Function], v.ID)

		if v.Default {
			if prev, dup := defaults[v.Function]; dup {
				errs = append(errs, ValidationError{
					Field:   path + ".default",
					Message: fmt.Sprintf("function %q already has default variant %q", v.Function, prev),
					Code:    ErrMultipleDefaults,
				})
			} else {
				defaults[v.Function] = v.ID
			}
		}

		variant := impl.Variant{Function: v.Function, ID: v.ID, Config: v.Config, Default: v.Default}
		if err := impl.CheckPromptPlaceholders(fn, variant); err != nil {
			errs = append(errs, ValidationError{
				Field:   path + ".config." + impl.PromptKey,
				Message: err.Error(),
				Code:    ErrInvalidVariantConfig,
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}

	if _, err := registry.Build(schema, opts...); err != nil {
		errs = append(errs, buildFailure(err))
	}
	return errs
}

func validateEnum(path string, def ir.TypeDef) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, v := range def.Values {
		vpath := fmt.Sprintf("%s.values[%d]", path, i)
		if v.Name == "" {
			errs = append(errs, ValidationError{
				Field:   vpath + ".name",
				Message: fmt.Sprintf("enum %q has an empty value name", def.Name),
				Code:    ErrInvalidName,
			})
		}
		for _, s := range []string{v.Name, v.Alias} {
			if s == "" {
				continue
			}
			if seen[s] {
				errs = append(errs, ValidationError{
					Field:   vpath,
					Message: fmt.Sprintf("enum %q: %q is declared more than once", def.Name, s),
					Code:    ErrDuplicateMember,
				})
			}
			seen[s] = true
		}
	}
	return errs
}

func validateRecord(path string, def ir.TypeDef) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)
	for i, f := range def.Fields {
		fpath := fmt.Sprintf("%s.fields[%d]", path, i)
		errs = append(errs, validateName(fpath+".name", f.Name)...)
		if seen[f.Name] {
			errs = append(errs, ValidationError{
				Field:   fpath + ".name",
				Message: fmt.Sprintf("duplicate field %q in class %q", f.Name, def.Name),
				Code:    ErrDuplicateMember,
			})
		}
		seen[f.Name] = true
	}
	return errs
}

func validateName(field, name string) []ValidationError {
	if identPattern.MatchString(name) {
		return nil
	}
	return []ValidationError{{
		Field:   field,
		Message: fmt.Sprintf("invalid identifier %q", name),
		Code:    ErrInvalidName,
	}}
}

func validateRef(field string, t ir.TypeRef, declared map[string]bool) []ValidationError {
	if t.Kind == "" {
		return []ValidationError{{Field: field, Message: "type is required", Code: ErrMissingRequired}}
	}
	if err := types.WellFormed(t); err != nil {
		return []ValidationError{{Field: field, Message: "malformed type: " + err.Error(), Code: ErrInvalidTypeExpr}}
	}

	var errs []ValidationError
	for _, name := range t.References() {
		if !declared[name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("undefined type %q", name),
				Code:    ErrUndefinedType,
			})
		}
	}
	return errs
}

// buildFailure maps a registry build error to a coded ValidationError.
func buildFailure(err error) ValidationError {
	code := ErrBuildFailed
	switch errors.KindOf(err) {
	case errors.KindRecursiveDefinition:
		code = ErrRecursiveType
	case errors.KindInvalidVariantConfig:
		code = ErrInvalidVariantConfig
	case errors.KindUnresolvedReference, errors.KindUnknownType:
		code = ErrUndefinedType
	case errors.KindDuplicateDefinition, errors.KindDuplicateFunction:
		code = ErrDuplicateName
	}
	field := "schema"
	var fe *errors.Error
	if errors.As(err, &fe) {
		switch {
		case fe.Type != "":
			field = "types." + fe.Type
		case fe.Function != "":
			field = "functions." + fe.Function
		}
	}
	return ValidationError{Field: field, Message: err.Error(), Code: code}
}
