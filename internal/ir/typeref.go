package ir

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/typefn/internal/errors"
)

// TypeKind discriminates TypeRef shapes.
type TypeKind string

const (
	TypePrimitive TypeKind = "primitive"
	TypeNamed     TypeKind = "named"
	TypeOptional  TypeKind = "optional"
	TypeList      TypeKind = "list"
	TypeMap       TypeKind = "map" // string keys only
	TypeUnion     TypeKind = "union"
)

// Primitive type names.
const (
	PrimString = "string"
	PrimInt    = "int"
	PrimFloat  = "float"
	PrimBool   = "bool"
	PrimNull   = "null"
)

// IsPrimitive reports whether name is a primitive type name.
func IsPrimitive(name string) bool {
	switch name {
	case PrimString, PrimInt, PrimFloat, PrimBool, PrimNull:
		return true
	}
	return false
}

// TypeRef references a primitive, a named TypeDef, or a composite of those.
//
// Name is set for primitive and named refs. Elem is set for optional, list and
// map refs. Variants is set for unions (two or more members, ordered).
type TypeRef struct {
	Kind     TypeKind  `json:"kind"`
	Name     string    `json:"name,omitempty"`
	Elem     *TypeRef  `json:"elem,omitempty"`
	Variants []TypeRef `json:"variants,omitempty"`
}

// Prim returns a primitive TypeRef.
func Prim(name string) TypeRef { return TypeRef{Kind: TypePrimitive, Name: name} }

// Named returns a reference to a TypeDef by name.
func Named(name string) TypeRef { return TypeRef{Kind: TypeNamed, Name: name} }

// Optional wraps t as optional.
func Optional(t TypeRef) TypeRef { return TypeRef{Kind: TypeOptional, Elem: &t} }

// List returns a list of t.
func List(t TypeRef) TypeRef { return TypeRef{Kind: TypeList, Elem: &t} }

// Map returns a string-keyed map of t.
func Map(t TypeRef) TypeRef { return TypeRef{Kind: TypeMap, Elem: &t} }

// Union returns a union of the given members. A single member is returned as is.
func Union(members ...TypeRef) TypeRef {
	if len(members) == 1 {
		return members[0]
	}
	return TypeRef{Kind: TypeUnion, Variants: members}
}

// String renders the type in schema syntax: string, Message, T?, T[],
// map<string, T>, A | B.
func (t TypeRef) String() string {
	switch t.Kind {
	case TypePrimitive, TypeNamed:
		return t.Name
	case TypeOptional:
		return wrapUnion(t.Elem) + "?"
	case TypeList:
		return wrapUnion(t.Elem) + "[]"
	case TypeMap:
		return "map<string, " + t.Elem.String() + ">"
	case TypeUnion:
		parts := make([]string, len(t.Variants))
		for i, v := range t.Variants {
			parts[i] = v.String()
		}
		return strings.Join(parts, " | ")
	default:
		return fmt.Sprintf("<invalid %q>", t.Kind)
	}
}

func wrapUnion(t *TypeRef) string {
	if t == nil {
		return "<nil>"
	}
	if t.Kind == TypeUnion {
		return "(" + t.String() + ")"
	}
	return t.String()
}

// References returns the names of TypeDefs referenced by t, in first-seen order.
func (t TypeRef) References() []string {
	var names []string
	seen := make(map[string]bool)
	t.walk(func(r TypeRef) {
		if r.Kind == TypeNamed && !seen[r.Name] {
			seen[r.Name] = true
			names = append(names, r.Name)
		}
	})
	return names
}

func (t TypeRef) walk(fn func(TypeRef)) {
	fn(t)
	if t.Elem != nil {
		t.Elem.walk(fn)
	}
	for _, v := range t.Variants {
		v.walk(fn)
	}
}

// Equal reports structural equality.
func (t TypeRef) Equal(u TypeRef) bool {
	return t.String() == u.String()
}

// UnmarshalJSON accepts either the object form or a type expression string,
// so hand-written IR documents can say "output": "Message[]".
func (t *TypeRef) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var expr string
		if err := json.Unmarshal(data, &expr); err != nil {
			return err
		}
		parsed, err := ParseTypeRef(expr)
		if err != nil {
			return err
		}
		*t = parsed
		return nil
	}

	type plain TypeRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*t = TypeRef(p)
	return nil
}

// ParseTypeRef parses a type expression.
//
// Grammar:
//
//	union   = postfix { "|" postfix }
//	postfix = primary { "?" | "[]" }
//	primary = ident | "map" "<" "string" "," union ">" | "(" union ")"
func ParseTypeRef(expr string) (TypeRef, error) {
	p := &typeParser{src: expr}
	t, err := p.union()
	if err != nil {
		return TypeRef{}, err
	}
	p.skipSpace()
	if p.pos != len(p.src) {
		return TypeRef{}, errors.Newf("type %q: unexpected %q at offset %d", expr, p.src[p.pos:], p.pos)
	}
	return t, nil
}

// MustParseTypeRef is like ParseTypeRef but panics on error.
// Use only in tests or with literal expressions.
func MustParseTypeRef(expr string) TypeRef {
	t, err := ParseTypeRef(expr)
	if err != nil {
		panic(err)
	}
	return t
}

type typeParser struct {
	src string
	pos int
}

func (p *typeParser) skipSpace() {
	for p.pos < len(p.src) && (p.src[p.pos] == ' ' || p.src[p.pos] == '\t') {
		p.pos++
	}
}

func (p *typeParser) consume(tok string) bool {
	p.skipSpace()
	if strings.HasPrefix(p.src[p.pos:], tok) {
		p.pos += len(tok)
		return true
	}
	return false
}

func (p *typeParser) errorf(format string, args ...any) error {
	return errors.Newf("type %q: %s at offset %d", p.src, fmt.Sprintf(format, args...), p.pos)
}

func (p *typeParser) union() (TypeRef, error) {
	first, err := p.postfix()
	if err != nil {
		return TypeRef{}, err
	}
	members := []TypeRef{first}
	for p.consume("|") {
		next, err := p.postfix()
		if err != nil {
			return TypeRef{}, err
		}
		members = append(members, next)
	}
	return Union(members...), nil
}

func (p *typeParser) postfix() (TypeRef, error) {
	t, err := p.primary()
	if err != nil {
		return TypeRef{}, err
	}
	for {
		switch {
		case p.consume("?"):
			t = Optional(t)
		case p.consume("[]"):
			t = List(t)
		default:
			return t, nil
		}
	}
}

func (p *typeParser) primary() (TypeRef, error) {
	if p.consume("(") {
		t, err := p.union()
		if err != nil {
			return TypeRef{}, err
		}
		if !p.consume(")") {
			return TypeRef{}, p.errorf("expected %q", ")")
		}
		return t, nil
	}

	name := p.ident()
	if name == "" {
		return TypeRef{}, p.errorf("expected type name")
	}
	if name == "map" && p.consume("<") {
		if key := p.ident(); key != PrimString {
			return TypeRef{}, p.errorf("map keys must be string, got %q", key)
		}
		if !p.consume(",") {
			return TypeRef{}, p.errorf("expected %q", ",")
		}
		elem, err := p.union()
		if err != nil {
			return TypeRef{}, err
		}
		if !p.consume(">") {
			return TypeRef{}, p.errorf("expected %q", ">")
		}
		return Map(elem), nil
	}
	if IsPrimitive(name) {
		return Prim(name), nil
	}
	return Named(name), nil
}

func (p *typeParser) ident() string {
	p.skipSpace()
	start := p.pos
	for p.pos < len(p.src) {
		c := p.src[p.pos]
		isLetter := c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		isDigit := c >= '0' && c <= '9'
		if !isLetter && !(isDigit && p.pos > start) {
			break
		}
		p.pos++
	}
	return p.src[start:p.pos]
}
