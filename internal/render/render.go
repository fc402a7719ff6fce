// Package render generates client-side type declarations from a schema.
//
// A Renderer turns an ir.Schema into one source file: enums, records, and
// per-function argument and result types. Output is deterministic and follows
// schema declaration order, so it can be checked in and diffed.
package render

import (
	"strings"
	"unicode"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

// Renderer is implemented by each target language.
type Renderer interface {
	// Render returns the generated source for schema.
	Render(schema ir.Schema) ([]byte, error)

	// Language returns the target language name ("go", "ts").
	Language() string

	// FileExtension returns the extension for generated files (".go", ".ts").
	FileExtension() string
}

// Options configures a Renderer.
type Options struct {
	// PackageName is the Go package clause. Ignored by TypeScript.
	PackageName string

	// IncludeComments emits schema descriptions as doc comments.
	IncludeComments bool
}

// DefaultPackageName is used when Options.PackageName is empty.
const DefaultPackageName = "schema"

const header = "Code generated by typefn. DO NOT EDIT."

// New returns the renderer for lang.
func New(lang string, opts Options) (Renderer, error) {
	switch strings.ToLower(lang) {
	case "go", "golang":
		return NewGo(opts), nil
	case "ts", "typescript":
		return NewTypeScript(opts), nil
	default:
		return nil, errors.Newf("unsupported language %q (supported: %s)", lang, strings.Join(Languages(), ", "))
	}
}

// Languages lists the supported language names.
func Languages() []string {
	return []string{"go", "ts"}
}

// initialisms are upper-cased whole when they form a word of an exported name.
var initialisms = map[string]bool{
	"api": true, "http": true, "id": true, "json": true, "url": true, "uri": true, "uuid": true,
}

// exportName converts a schema identifier into an exported Go identifier:
// "user_id" -> "UserID", "sender" -> "Sender", "USER" -> "USER".
func exportName(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var b strings.Builder
	for _, w := range words {
		if initialisms[strings.ToLower(w)] {
			b.WriteString(strings.ToUpper(w))
			continue
		}
		runes := []rune(w)
		runes[0] = unicode.ToUpper(runes[0])
		b.WriteString(string(runes))
	}
	out := b.String()
	if out == "" || unicode.IsDigit([]rune(out)[0]) {
		out = "X" + out
	}
	return out
}

// nullableMember returns T when u is a two-member union of T and null.
func nullableMember(u ir.TypeRef) (ir.TypeRef, bool) {
	if u.Kind != ir.TypeUnion || len(u.Variants) != 2 {
		return ir.TypeRef{}, false
	}
	for i, v := range u.Variants {
		if v.Kind == ir.TypePrimitive && v.Name == ir.PrimNull {
			return u.Variants[1-i], true
		}
	}
	return ir.TypeRef{}, false
}

func commentLines(prefix, text string) string {
	var b strings.Builder
	for _, line := range strings.Split(strings.TrimSpace(text), "\n") {
		b.WriteString(strings.TrimRight(prefix+line, " "))
		b.WriteByte('\n')
	}
	return b.String()
}
