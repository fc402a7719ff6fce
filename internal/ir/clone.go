package ir

import "slices"

// Clone returns a deep copy of t. Registries hand out clones so callers
// can never reach their storage.
func (t TypeRef) Clone() TypeRef {
	out := t
	if t.Elem != nil {
		elem := t.Elem.Clone()
		out.Elem = &elem
	}
	if t.Variants != nil {
		out.Variants = make([]TypeRef, len(t.Variants))
		for i, v := range t.Variants {
			out.Variants[i] = v.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of d.
func (d TypeDef) Clone() TypeDef {
	out := d
	out.Values = slices.Clone(d.Values)
	if d.Fields != nil {
		out.Fields = make([]Field, len(d.Fields))
		for i, f := range d.Fields {
			f.Type = f.Type.Clone()
			out.Fields[i] = f
		}
	}
	return out
}

// Clone returns a deep copy of c.
func (c FunctionContract) Clone() FunctionContract {
	out := c
	if c.Params != nil {
		out.Params = make([]Param, len(c.Params))
		for i, p := range c.Params {
			p.Type = p.Type.Clone()
			out.Params[i] = p
		}
	}
	out.Output = c.Output.Clone()
	return out
}

// CloneValue returns a deep copy of v. Scalars are values already; arrays
// and objects are copied recursively.
func CloneValue(v IRValue) IRValue {
	switch val := v.(type) {
	case IRArray:
		return val.Clone()
	case IRObject:
		return val.Clone()
	default:
		return v
	}
}

// Clone returns a deep copy of arr. A nil array stays nil.
func (arr IRArray) Clone() IRArray {
	if arr == nil {
		return nil
	}
	out := make(IRArray, len(arr))
	for i, elem := range arr {
		out[i] = CloneValue(elem)
	}
	return out
}

// Clone returns a deep copy of obj. A nil object stays nil.
func (obj IRObject) Clone() IRObject {
	if obj == nil {
		return nil
	}
	out := make(IRObject, len(obj))
	for k, elem := range obj {
		out[k] = CloneValue(elem)
	}
	return out
}
