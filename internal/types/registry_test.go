package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

func roleEnum() ir.TypeDef {
	return ir.TypeDef{
		Kind: ir.DefEnum,
		Name: "Role",
		Values: []ir.EnumValue{
			{Name: "USER", Alias: "user"},
			{Name: "ASSISTANT", Alias: "assistant"},
		},
	}
}

func record(name string, fields ...ir.Field) ir.TypeDef {
	return ir.TypeDef{Kind: ir.DefRecord, Name: name, Fields: fields}
}

func field(name, expr string) ir.Field {
	return ir.Field{Name: name, Type: ir.MustParseTypeRef(expr)}
}

func TestDefineAndResolve(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(roleEnum()))
	require.NoError(t, r.Define(record("Message", field("sender", "Role"), field("body", "string"))))
	require.NoError(t, r.Seal())

	def, err := r.Resolve("Message")
	require.NoError(t, err)
	assert.Equal(t, ir.DefRecord, def.Kind)
	assert.Len(t, def.Fields, 2)
	assert.Equal(t, []string{"Role", "Message"}, r.Names())
	assert.True(t, r.Sealed())
}

func TestResolveUnknownType(t *testing.T) {
	r := NewRegistry()
	_, err := r.Resolve("Nope")
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindUnknownType))
}

func TestDefineDuplicates(t *testing.T) {
	tests := []struct {
		name string
		def  ir.TypeDef
	}{
		{"same name twice", roleEnum()},
		{"shadows primitive", record("string")},
		{"duplicate field", record("Pair", field("a", "int"), field("a", "string"))},
		{"duplicate enum value", ir.TypeDef{Kind: ir.DefEnum, Name: "Color", Values: []ir.EnumValue{{Name: "RED"}, {Name: "RED"}}}},
		{"alias collides with name", ir.TypeDef{Kind: ir.DefEnum, Name: "Color", Values: []ir.EnumValue{{Name: "RED"}, {Name: "BLUE", Alias: "RED"}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			require.NoError(t, r.Define(roleEnum()))

			err := r.Define(tt.def)
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindDuplicateDefinition), "got %v", err)
		})
	}
}

func TestDefineMalformedFieldType(t *testing.T) {
	r := NewRegistry()
	bad := record("Bad", ir.Field{Name: "x", Type: ir.TypeRef{Kind: ir.TypeList}})
	err := r.Define(bad)
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindUnknownType))

	var fe *errors.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "Bad", fe.Type)
	assert.Equal(t, []string{"x"}, fe.Fields)
}

func TestForwardReferenceResolvesAtSeal(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(record("Message", field("sender", "Role"))))
	require.NoError(t, r.Define(roleEnum()))
	require.NoError(t, r.Seal())
}

func TestUnresolvedReference(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(record("Message", field("body", "string"), field("sender", "Role?"))))

	err := r.Seal()
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindUnresolvedReference))

	var fe *errors.Error
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "Message", fe.Type)
	assert.Equal(t, []string{"sender"}, fe.Fields)
	assert.Contains(t, err.Error(), `"Role"`)
	assert.False(t, r.Sealed(), "failed seal must leave registry unsealed")
}

func TestDefineAfterSeal(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Seal())

	err := r.Define(roleEnum())
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindRegistryClosed))
}

func TestRecursion(t *testing.T) {
	tests := []struct {
		name    string
		defs    []ir.TypeDef
		wantErr bool
	}{
		{
			name: "self reference through optional",
			defs: []ir.TypeDef{record("Node", field("value", "int"), field("next", "Node?"))},
		},
		{
			name: "self reference through list",
			defs: []ir.TypeDef{record("Tree", field("children", "Tree[]"))},
		},
		{
			name: "self reference through map",
			defs: []ir.TypeDef{record("Dir", field("entries", "map<string, Dir>"))},
		},
		{
			name: "union with terminating branch",
			defs: []ir.TypeDef{record("Expr", field("op", "string"), field("arg", "Expr | int"))},
		},
		{
			name:    "direct self reference",
			defs:    []ir.TypeDef{record("Loop", field("self", "Loop"))},
			wantErr: true,
		},
		{
			name: "mutual recursion",
			defs: []ir.TypeDef{
				record("A", field("b", "B")),
				record("B", field("a", "A")),
			},
			wantErr: true,
		},
		{
			name: "union without terminating branch",
			defs: []ir.TypeDef{
				record("A", field("next", "A | B")),
				record("B", field("next", "A")),
			},
			wantErr: true,
		},
		{
			name: "mutual recursion broken by optional",
			defs: []ir.TypeDef{
				record("A", field("b", "B")),
				record("B", field("a", "A?")),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRegistry()
			for _, d := range tt.defs {
				require.NoError(t, r.Define(d))
			}

			err := r.Seal()
			if !tt.wantErr {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, errors.KindRecursiveDefinition), "got %v", err)
			assert.False(t, r.Sealed())
		})
	}
}

func TestValidateRef(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(roleEnum()))

	assert.NoError(t, r.ValidateRef(ir.MustParseTypeRef("map<string, Role[]>?")))

	err := r.ValidateRef(ir.MustParseTypeRef("Role | Missing"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindUnknownType))
	assert.Contains(t, err.Error(), "Missing")
}

func TestClosureInDefinitionOrder(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Define(roleEnum()))
	require.NoError(t, r.Define(record("Unused", field("x", "int"))))
	require.NoError(t, r.Define(record("Message", field("sender", "Role"))))
	require.NoError(t, r.Define(record("Thread", field("messages", "Message[]"))))
	require.NoError(t, r.Seal())

	defs := r.Closure(ir.Named("Thread"))
	names := make([]string, len(defs))
	for i, d := range defs {
		names[i] = d.Name
	}
	assert.Equal(t, []string{"Role", "Message", "Thread"}, names)
	assert.Empty(t, r.Closure(ir.Prim(ir.PrimString)))
}
