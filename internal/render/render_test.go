package render

import (
	"go/parser"
	"go/token"
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typefn/internal/ir"
)

func chatSchema() ir.Schema {
	return ir.Schema{
		Types: []ir.TypeDef{
			{
				Kind:        ir.DefEnum,
				Name:        "Sender",
				Description: "Who wrote a message.",
				Values:      []ir.EnumValue{{Name: "USER", Alias: "user"}, {Name: "ASSISTANT"}},
			},
			{
				Kind:        ir.DefRecord,
				Name:        "Message",
				Description: "One chat message.",
				Fields: []ir.Field{
					{Name: "sender", Type: ir.Named("Sender"), Description: "author"},
					{Name: "text", Type: ir.Prim(ir.PrimString)},
					{Name: "score", Type: ir.MustParseTypeRef("float?")},
					{Name: "tags", Type: ir.MustParseTypeRef("map<string, string>")},
					{Name: "replies", Type: ir.MustParseTypeRef("Message[]")},
					{Name: "extra", Type: ir.MustParseTypeRef("string | int")},
					{Name: "parent_id", Type: ir.MustParseTypeRef("string | null")},
				},
			},
		},
		Functions: []ir.FunctionContract{
			{
				Name:        "Simplify",
				Description: "Rewrite a message in plain language.",
				Params:      []ir.Param{{Name: "msg", Type: ir.Named("Message")}},
				Output:      ir.Prim(ir.PrimString),
			},
			{
				Name: "Classify",
				Params: []ir.Param{
					{Name: "msg", Type: ir.Named("Message")},
					{Name: "hint", Type: ir.MustParseTypeRef("Sender?")},
				},
				Output: ir.Named("Sender"),
			},
		},
	}
}

func TestRenderGolden(t *testing.T) {
	tests := []struct {
		lang   string
		golden string
	}{
		{"go", "chat_go"},
		{"ts", "chat_ts"},
	}
	for _, tt := range tests {
		t.Run(tt.lang, func(t *testing.T) {
			r, err := New(tt.lang, Options{PackageName: "chat", IncludeComments: true})
			require.NoError(t, err)

			out, err := r.Render(chatSchema())
			require.NoError(t, err)

			g := goldie.New(t,
				goldie.WithFixtureDir("testdata"),
				goldie.WithNameSuffix(".golden"),
			)
			g.Assert(t, tt.golden, out)
		})
	}
}

func TestRenderGoParses(t *testing.T) {
	out, err := NewGo(Options{}).Render(chatSchema())
	require.NoError(t, err)

	f, err := parser.ParseFile(token.NewFileSet(), "schema.go", out, parser.ParseComments)
	require.NoError(t, err)
	assert.Equal(t, DefaultPackageName, f.Name.Name)
}

func TestRenderWithoutComments(t *testing.T) {
	for _, lang := range Languages() {
		r, err := New(lang, Options{})
		require.NoError(t, err)

		out, err := r.Render(chatSchema())
		require.NoError(t, err)
		assert.NotContains(t, string(out), "One chat message", lang)
		assert.NotContains(t, string(out), "plain language", lang)
	}
}

func TestRenderEmptyDeclarations(t *testing.T) {
	schema := ir.Schema{
		Types: []ir.TypeDef{
			{Kind: ir.DefEnum, Name: "Nothing"},
			{Kind: ir.DefRecord, Name: "Unit"},
		},
		Functions: []ir.FunctionContract{{Name: "Ping", Params: []ir.Param{}, Output: ir.Named("Unit")}},
	}

	goOut, err := NewGo(Options{}).Render(schema)
	require.NoError(t, err)
	assert.Contains(t, string(goOut), "type Nothing string\n")
	assert.Contains(t, string(goOut), "type Unit struct{}\n")
	assert.Contains(t, string(goOut), "type PingArgs struct{}\n")

	tsOut, err := NewTypeScript(Options{}).Render(schema)
	require.NoError(t, err)
	assert.Contains(t, string(tsOut), "export type Nothing = never;\n")
	assert.Contains(t, string(tsOut), "export interface Unit {}\n")
	assert.Contains(t, string(tsOut), "export type PingResult = Unit;\n")
}

func TestNewUnsupportedLanguage(t *testing.T) {
	_, err := New("rust", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "go, ts")

	r, err := New("TypeScript", Options{})
	require.NoError(t, err)
	assert.Equal(t, ".ts", r.FileExtension())
	assert.Equal(t, "ts", r.Language())
}

func TestGoType(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"string", "string"},
		{"int", "int64"},
		{"float", "float64"},
		{"bool", "bool"},
		{"null", "any"},
		{"Message", "Message"},
		{"Message?", "*Message"},
		{"int[]?", "[]int64"},
		{"map<string, Message[]>", "map[string][]Message"},
		{"A | B", "any"},
		{"null | Message", "*Message"},
		{"(A | B)?", "any"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, goType(ir.MustParseTypeRef(tt.expr)))
		})
	}
}

func TestTSType(t *testing.T) {
	tests := []struct {
		expr string
		want string
	}{
		{"int", "number"},
		{"float", "number"},
		{"bool", "boolean"},
		{"(A | B)[]", "(A | B)[]"},
		{"int?[]", "(number | null)[]"},
		{"map<string, bool>", "Record<string, boolean>"},
	}
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, tsType(ir.MustParseTypeRef(tt.expr)))
		})
	}
}

func TestExportName(t *testing.T) {
	tests := map[string]string{
		"sender":     "Sender",
		"user_id":    "UserID",
		"USER":       "USER",
		"in-review":  "InReview",
		"api_url":    "APIURL",
		"2fa":        "X2fa",
		"parent_id":  "ParentID",
		"simplify":   "Simplify",
		"json_value": "JSONValue",
	}
	for in, want := range tests {
		assert.Equal(t, want, exportName(in), in)
	}
}

func TestTSKey(t *testing.T) {
	assert.Equal(t, "parent_id", tsKey("parent_id"))
	assert.Equal(t, `"in-review"`, tsKey("in-review"))
	assert.Equal(t, `"2fa"`, tsKey("2fa"))
}
