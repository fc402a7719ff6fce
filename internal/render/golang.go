package render

import (
	"fmt"
	"go/format"
	"strings"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

// Go renders Go type declarations.
//
// Enums become string types with one constant per value; records become
// structs with json tags carrying the schema field names. Optional values
// and nullable unions become pointers, other unions become any.
type Go struct {
	opts Options
}

// NewGo creates a Go renderer.
func NewGo(opts Options) *Go {
	if opts.PackageName == "" {
		opts.PackageName = DefaultPackageName
	}
	return &Go{opts: opts}
}

// Language implements Renderer.
func (g *Go) Language() string { return "go" }

// FileExtension implements Renderer.
func (g *Go) FileExtension() string { return ".go" }

// Render implements Renderer. The result is gofmt-formatted.
func (g *Go) Render(schema ir.Schema) ([]byte, error) {
	var b strings.Builder
	fmt.Fprintf(&b, "// %s\n\npackage %s\n", header, g.opts.PackageName)

	for _, def := range schema.Types {
		b.WriteByte('\n')
		g.doc(&b, def.Description)
		switch def.Kind {
		case ir.DefEnum:
			g.enum(&b, def)
		case ir.DefRecord:
			fields := make([]goField, len(def.Fields))
			for i, f := range def.Fields {
				fields[i] = goField{name: f.Name, typ: f.Type}
			}
			g.structType(&b, exportName(def.Name), fields)
		default:
			return nil, errors.Newf("type %q: unknown kind %q", def.Name, def.Kind)
		}
	}

	for _, fn := range schema.Functions {
		name := exportName(fn.Name)
		b.WriteByte('\n')
		fmt.Fprintf(&b, "// %sArgs are the arguments of %s.\n", name, fn.Name)
		if g.opts.IncludeComments && strings.TrimSpace(fn.Description) != "" {
			b.WriteString("//\n")
			g.doc(&b, fn.Description)
		}
		fields := make([]goField, len(fn.Params))
		for i, p := range fn.Params {
			fields[i] = goField{name: p.Name, typ: p.Type}
		}
		g.structType(&b, name+"Args", fields)
		fmt.Fprintf(&b, "\n// %sResult is the output of %s.\ntype %sResult = %s\n", name, fn.Name, name, goType(fn.Output))
	}

	if len(schema.Functions) > 0 {
		b.WriteString("\n// Function names.\nconst (\n")
		for _, fn := range schema.Functions {
			fmt.Fprintf(&b, "\tFunction%s = %q\n", exportName(fn.Name), fn.Name)
		}
		b.WriteString(")\n")
	}

	src, err := format.Source([]byte(b.String()))
	if err != nil {
		return nil, errors.Wrap(err, "format generated Go")
	}
	return src, nil
}

func (g *Go) doc(b *strings.Builder, text string) {
	if g.opts.IncludeComments && strings.TrimSpace(text) != "" {
		b.WriteString(commentLines("// ", text))
	}
}

func (g *Go) enum(b *strings.Builder, def ir.TypeDef) {
	name := exportName(def.Name)
	fmt.Fprintf(b, "type %s string\n", name)
	if len(def.Values) == 0 {
		return
	}
	b.WriteString("\nconst (\n")
	for _, v := range def.Values {
		fmt.Fprintf(b, "\t%s%s %s = %q\n", name, exportName(v.Name), name, v.Name)
	}
	b.WriteString(")\n")
}

type goField struct {
	name string
	typ  ir.TypeRef
}

func (g *Go) structType(b *strings.Builder, name string, fields []goField) {
	if len(fields) == 0 {
		fmt.Fprintf(b, "type %s struct{}\n", name)
		return
	}
	fmt.Fprintf(b, "type %s struct {\n", name)
	for _, f := range fields {
		tag := f.name
		if f.typ.Kind == ir.TypeOptional {
			tag += ",omitempty"
		}
		fmt.Fprintf(b, "\t%s %s `json:%q`\n", exportName(f.name), goType(f.typ), tag)
	}
	b.WriteString("}\n")
}

func goType(t ir.TypeRef) string {
	switch t.Kind {
	case ir.TypePrimitive:
		switch t.Name {
		case ir.PrimString:
			return "string"
		case ir.PrimInt:
			return "int64"
		case ir.PrimFloat:
			return "float64"
		case ir.PrimBool:
			return "bool"
		default:
			return "any"
		}
	case ir.TypeNamed:
		return exportName(t.Name)
	case ir.TypeOptional:
		return pointerTo(*t.Elem)
	case ir.TypeList:
		return "[]" + goType(*t.Elem)
	case ir.TypeMap:
		return "map[string]" + goType(*t.Elem)
	case ir.TypeUnion:
		if inner, ok := nullableMember(t); ok {
			return pointerTo(inner)
		}
		return "any"
	default:
		return "any"
	}
}

// pointerTo makes t nullable. Lists, maps and any are already nil-able.
func pointerTo(t ir.TypeRef) string {
	s := goType(t)
	if s == "any" || strings.HasPrefix(s, "[]") || strings.HasPrefix(s, "map[") || strings.HasPrefix(s, "*") {
		return s
	}
	return "*" + s
}
