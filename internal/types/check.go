package types

import (
	"fmt"
	"strings"

	"github.com/roach88/typefn/internal/ir"
)

// Violation is one shape mismatch between a value and a TypeRef.
type Violation struct {
	Path     string `json:"path"`     // "msg.sender", "items[2]", `tags["k"]`; empty at the root
	Expected string `json:"expected"` // Type expression or description
	Got      string `json:"got"`      // ir.TypeName of the offending value
	Message  string `json:"message"`
}

// String renders the violation for error messages.
func (v Violation) String() string {
	if v.Path == "" {
		return v.Message
	}
	return v.Path + ": " + v.Message
}

// Paths returns the violation paths in order.
func Paths(vs []Violation) []string {
	out := make([]string, len(vs))
	for i, v := range vs {
		out[i] = v.Path
	}
	return out
}

// Summary joins violations into a single line.
func Summary(vs []Violation) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = v.String()
	}
	return strings.Join(parts, "; ")
}

// Check validates v against t and returns the normalized value.
//
// Normalization is limited to:
//   - int widened to float where float is declared
//   - enum aliases replaced by the canonical value name
//   - absent optional record fields set to null
//
// Nothing else coerces. All violations are collected; the returned value is
// nil whenever any violation is reported. A nil v means "absent".
func (r *Registry) Check(t ir.TypeRef, v ir.IRValue) (ir.IRValue, []Violation) {
	c := &checker{reg: r}
	out := c.check(t, v, "")
	if len(c.violations) > 0 {
		return nil, c.violations
	}
	return out, nil
}

type checker struct {
	reg        *Registry
	violations []Violation
}

func (c *checker) fail(path, expected string, got ir.IRValue, format string, args ...any) {
	c.violations = append(c.violations, Violation{
		Path:     path,
		Expected: expected,
		Got:      ir.TypeName(got),
		Message:  fmt.Sprintf(format, args...),
	})
}

func (c *checker) mismatch(path string, t ir.TypeRef, got ir.IRValue) {
	c.fail(path, t.String(), got, "expected %s, got %s", t.String(), ir.TypeName(got))
}

func (c *checker) check(t ir.TypeRef, v ir.IRValue, path string) ir.IRValue {
	switch t.Kind {
	case ir.TypePrimitive:
		return c.checkPrimitive(t, v, path)

	case ir.TypeNamed:
		def, ok := c.reg.defs[t.Name]
		if !ok {
			c.fail(path, t.Name, v, "type %q is not defined", t.Name)
			return nil
		}
		if def.Kind == ir.DefEnum {
			return c.checkEnum(def, v, path)
		}
		return c.checkRecord(def, v, path)

	case ir.TypeOptional:
		if v == nil {
			return ir.IRNull{}
		}
		if _, ok := v.(ir.IRNull); ok {
			return ir.IRNull{}
		}
		return c.check(*t.Elem, v, path)

	case ir.TypeList:
		arr, ok := v.(ir.IRArray)
		if !ok {
			c.mismatch(path, t, v)
			return nil
		}
		out := make(ir.IRArray, len(arr))
		for i, elem := range arr {
			out[i] = c.check(*t.Elem, elem, fmt.Sprintf("%s[%d]", path, i))
		}
		return out

	case ir.TypeMap:
		obj, ok := v.(ir.IRObject)
		if !ok {
			c.mismatch(path, t, v)
			return nil
		}
		out := make(ir.IRObject, len(obj))
		for _, k := range obj.SortedKeys() {
			out[k] = c.check(*t.Elem, obj[k], fmt.Sprintf("%s[%q]", path, k))
		}
		return out

	case ir.TypeUnion:
		for _, member := range t.Variants {
			trial := &checker{reg: c.reg}
			out := trial.check(member, v, path)
			if len(trial.violations) == 0 {
				return out
			}
		}
		c.mismatch(path, t, v)
		return nil

	default:
		c.fail(path, string(t.Kind), v, "malformed type %q", t.Kind)
		return nil
	}
}

func (c *checker) checkPrimitive(t ir.TypeRef, v ir.IRValue, path string) ir.IRValue {
	switch t.Name {
	case ir.PrimString:
		if s, ok := v.(ir.IRString); ok {
			return s
		}
	case ir.PrimInt:
		if n, ok := v.(ir.IRInt); ok {
			return n
		}
	case ir.PrimFloat:
		switch n := v.(type) {
		case ir.IRFloat:
			return n
		case ir.IRInt:
			return ir.IRFloat(n)
		}
	case ir.PrimBool:
		if b, ok := v.(ir.IRBool); ok {
			return b
		}
	case ir.PrimNull:
		if _, ok := v.(ir.IRNull); ok {
			return ir.IRNull{}
		}
	}
	c.mismatch(path, t, v)
	return nil
}

func (c *checker) checkEnum(def ir.TypeDef, v ir.IRValue, path string) ir.IRValue {
	s, ok := v.(ir.IRString)
	if ok {
		for _, ev := range def.Values {
			if string(s) == ev.Name || (ev.Alias != "" && string(s) == ev.Alias) {
				return ir.IRString(ev.Name)
			}
		}
	}
	names := make([]string, len(def.Values))
	for i, ev := range def.Values {
		names[i] = ev.Name
	}
	if ok {
		c.fail(path, def.Name, v, "%q is not a value of %s (one of %s)", string(s), def.Name, strings.Join(names, ", "))
	} else {
		c.fail(path, def.Name, v, "expected %s, got %s", def.Name, ir.TypeName(v))
	}
	return nil
}

func (c *checker) checkRecord(def ir.TypeDef, v ir.IRValue, path string) ir.IRValue {
	obj, ok := v.(ir.IRObject)
	if !ok {
		c.fail(path, def.Name, v, "expected %s, got %s", def.Name, ir.TypeName(v))
		return nil
	}

	out := make(ir.IRObject, len(def.Fields))
	declared := make(map[string]bool, len(def.Fields))
	for _, f := range def.Fields {
		declared[f.Name] = true
		fieldPath := joinPath(path, f.Name)
		val, present := obj[f.Name]
		if !present && f.Type.Kind != ir.TypeOptional {
			c.fail(fieldPath, f.Type.String(), nil, "missing required field")
			continue
		}
		out[f.Name] = c.check(f.Type, val, fieldPath)
	}

	for _, k := range obj.SortedKeys() {
		if !declared[k] {
			c.fail(joinPath(path, k), "", obj[k], "unexpected field %q", k)
		}
	}
	return out
}

func joinPath(path, field string) string {
	if path == "" {
		return field
	}
	return path + "." + field
}
