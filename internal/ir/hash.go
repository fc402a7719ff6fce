package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/roach88/typefn/internal/errors"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainSchema   = "typefn/schema/v1"
	DomainContract = "typefn/contract/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContractHash computes a content hash of a function contract together with
// the TypeDefs it transitively references. deps must be in a deterministic
// order; callers pass them in registry definition order.
//
// Two contracts hash equal iff their signatures and every referenced type
// declaration are identical, so generated clients can detect drift.
func ContractHash(c FunctionContract, deps []TypeDef) (string, error) {
	params := make(IRArray, len(c.Params))
	for i, p := range c.Params {
		params[i] = IRObject{
			"name": IRString(p.Name),
			"type": IRString(p.Type.String()),
		}
	}

	types := make(IRArray, len(deps))
	for i, d := range deps {
		types[i] = typeDefObject(d)
	}

	obj := IRObject{
		"name":   IRString(c.Name),
		"params": params,
		"output": IRString(c.Output.String()),
		"types":  types,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", errors.Wrap(err, "ContractHash: failed to marshal")
	}
	return hashWithDomain(DomainContract, canonical), nil
}

// SchemaHash computes a content hash of a whole schema. Variant configs are
// included, so changing a prompt changes the hash.
func SchemaHash(s Schema) (string, error) {
	types := make(IRArray, len(s.Types))
	for i, d := range s.Types {
		types[i] = typeDefObject(d)
	}

	functions := make(IRArray, len(s.Functions))
	for i, f := range s.Functions {
		params := make(IRArray, len(f.Params))
		for j, p := range f.Params {
			params[j] = IRObject{
				"name": IRString(p.Name),
				"type": IRString(p.Type.String()),
			}
		}
		functions[i] = IRObject{
			"name":   IRString(f.Name),
			"params": params,
			"output": IRString(f.Output.String()),
		}
	}

	variants := make(IRArray, len(s.Variants))
	for i, v := range s.Variants {
		cfg := v.Config
		if cfg == nil {
			cfg = IRObject{}
		}
		variants[i] = IRObject{
			"function": IRString(v.Function),
			"id":       IRString(v.ID),
			"default":  IRBool(v.Default),
			"config":   hashable(cfg),
		}
	}

	canonical, err := MarshalCanonical(IRObject{
		"types":     types,
		"functions": functions,
		"variants":  variants,
	})
	if err != nil {
		return "", errors.Wrap(err, "SchemaHash: failed to marshal")
	}
	return hashWithDomain(DomainSchema, canonical), nil
}

// MustSchemaHash is like SchemaHash but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustSchemaHash(s Schema) string {
	h, err := SchemaHash(s)
	if err != nil {
		panic(err)
	}
	return h
}

func typeDefObject(d TypeDef) IRObject {
	obj := IRObject{
		"kind": IRString(string(d.Kind)),
		"name": IRString(d.Name),
	}
	switch d.Kind {
	case DefEnum:
		values := make(IRArray, len(d.Values))
		for i, v := range d.Values {
			values[i] = IRObject{
				"name":  IRString(v.Name),
				"alias": IRString(v.Alias),
			}
		}
		obj["values"] = values
	case DefRecord:
		fields := make(IRArray, len(d.Fields))
		for i, f := range d.Fields {
			fields[i] = IRObject{
				"name": IRString(f.Name),
				"type": IRString(f.Type.String()),
			}
		}
		obj["fields"] = fields
	}
	return obj
}

// hashable drops null entries and spells floats as strings so arbitrary
// variant configs can be canonically marshaled.
func hashable(v IRValue) IRValue {
	switch val := v.(type) {
	case IRObject:
		out := make(IRObject, len(val))
		for k, elem := range val {
			if _, isNull := elem.(IRNull); isNull {
				continue
			}
			out[k] = hashable(elem)
		}
		return out
	case IRArray:
		out := make(IRArray, 0, len(val))
		for _, elem := range val {
			if _, isNull := elem.(IRNull); isNull {
				continue
			}
			out = append(out, hashable(elem))
		}
		return out
	case IRFloat:
		return IRString("float:" + strconv.FormatFloat(float64(val), 'g', -1, 64))
	default:
		return v
	}
}
