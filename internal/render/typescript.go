package render

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

// TypeScript renders TypeScript declarations: enums as string literal
// unions, records and argument lists as interfaces.
type TypeScript struct {
	opts Options
}

// NewTypeScript creates a TypeScript renderer.
func NewTypeScript(opts Options) *TypeScript {
	return &TypeScript{opts: opts}
}

// Language implements Renderer.
func (r *TypeScript) Language() string { return "ts" }

// FileExtension implements Renderer.
func (r *TypeScript) FileExtension() string { return ".ts" }

// Render implements Renderer.
func (r *TypeScript) Render(schema ir.Schema) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "// %s\n", header)

	for _, def := range schema.Types {
		b.WriteByte('\n')
		r.doc(&b, "", def.Description)
		switch def.Kind {
		case ir.DefEnum:
			members := make([]string, len(def.Values))
			for i, v := range def.Values {
				members[i] = strconv.Quote(v.Name)
			}
			lit := "never"
			if len(members) > 0 {
				lit = strings.Join(members, " | ")
			}
			fmt.Fprintf(&b, "export type %s = %s;\n", def.Name, lit)
		case ir.DefRecord:
			fields := make([]tsField, len(def.Fields))
			for i, f := range def.Fields {
				fields[i] = tsField{name: f.Name, typ: f.Type, doc: f.Description}
			}
			r.iface(&b, def.Name, fields)
		default:
			return nil, errors.Newf("type %q: unknown kind %q", def.Name, def.Kind)
		}
	}

	for _, fn := range schema.Functions {
		b.WriteByte('\n')
		r.doc(&b, "", fn.Description)
		fields := make([]tsField, len(fn.Params))
		for i, p := range fn.Params {
			fields[i] = tsField{name: p.Name, typ: p.Type}
		}
		r.iface(&b, fn.Name+"Args", fields)
		fmt.Fprintf(&b, "\nexport type %sResult = %s;\n", fn.Name, tsType(fn.Output))
	}

	return []byte(b.String()), nil
}

func (r *TypeScript) doc(b *strings.Builder, indent, text string) {
	if !r.opts.IncludeComments || strings.TrimSpace(text) == "" {
		return
	}
	lines := strings.Split(strings.TrimSpace(text), "\n")
	if len(lines) == 1 {
		fmt.Fprintf(b, "%s/** %s */\n", indent, lines[0])
		return
	}
	fmt.Fprintf(b, "%s/**\n", indent)
	b.WriteString(commentLines(indent+" * ", text))
	fmt.Fprintf(b, "%s */\n", indent)
}

type tsField struct {
	name string
	typ  ir.TypeRef
	doc  string
}

func (r *TypeScript) iface(b *strings.Builder, name string, fields []tsField) {
	if len(fields) == 0 {
		fmt.Fprintf(b, "export interface %s {}\n", name)
		return
	}
	fmt.Fprintf(b, "export interface %s {\n", name)
	for _, f := range fields {
		r.doc(b, "  ", f.doc)
		opt := ""
		if f.typ.Kind == ir.TypeOptional {
			opt = "?"
		}
		fmt.Fprintf(b, "  %s%s: %s;\n", tsKey(f.name), opt, tsType(f.typ))
	}
	b.WriteString("}\n")
}

func tsType(t ir.TypeRef) string {
	switch t.Kind {
	case ir.TypePrimitive:
		switch t.Name {
		case ir.PrimString:
			return "string"
		case ir.PrimInt, ir.PrimFloat:
			return "number"
		case ir.PrimBool:
			return "boolean"
		case ir.PrimNull:
			return "null"
		default:
			return "unknown"
		}
	case ir.TypeNamed:
		return t.Name
	case ir.TypeOptional:
		return tsWrap(*t.Elem) + " | null"
	case ir.TypeList:
		return tsWrap(*t.Elem) + "[]"
	case ir.TypeMap:
		return "Record<string, " + tsType(*t.Elem) + ">"
	case ir.TypeUnion:
		parts := make([]string, len(t.Variants))
		for i, v := range t.Variants {
			parts[i] = tsType(v)
		}
		return strings.Join(parts, " | ")
	default:
		return "unknown"
	}
}

// tsWrap parenthesizes types that would otherwise bind wrongly under [] or |.
func tsWrap(t ir.TypeRef) string {
	s := tsType(t)
	if t.Kind == ir.TypeUnion || t.Kind == ir.TypeOptional {
		return "(" + s + ")"
	}
	return s
}

// tsKey quotes property names that are not plain identifiers.
func tsKey(name string) string {
	for i, c := range name {
		isLetter := c == '_' || c == '$' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
		if !isLetter && !(i > 0 && c >= '0' && c <= '9') {
			return strconv.Quote(name)
		}
	}
	return name
}
