package contract

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/types"
)

func sealedTypes(t *testing.T) *types.Registry {
	t.Helper()
	r := types.NewRegistry()
	require.NoError(t, r.Define(ir.TypeDef{
		Kind:   ir.DefEnum,
		Name:   "Role",
		Values: []ir.EnumValue{{Name: "USER"}, {Name: "ASSISTANT"}},
	}))
	require.NoError(t, r.Define(ir.TypeDef{
		Kind: ir.DefRecord,
		Name: "Message",
		Fields: []ir.Field{
			{Name: "sender", Type: ir.Named("Role")},
			{Name: "body", Type: ir.Prim(ir.PrimString)},
		},
	}))
	require.NoError(t, r.Define(ir.TypeDef{
		Kind:   ir.DefRecord,
		Name:   "Unrelated",
		Fields: []ir.Field{{Name: "x", Type: ir.Prim(ir.PrimInt)}},
	}))
	require.NoError(t, r.Seal())
	return r
}

func params(pairs ...string) []ir.Param {
	out := make([]ir.Param, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, ir.Param{Name: pairs[i], Type: ir.MustParseTypeRef(pairs[i+1])})
	}
	return out
}

func TestDefineAndGet(t *testing.T) {
	s := NewStore(sealedTypes(t))
	require.NoError(t, s.Define("Classify", params("msg", "Message"), ir.Named("Role")))
	require.NoError(t, s.Define("Summarize", params("msgs", "Message[]", "limit", "int?"), ir.Prim(ir.PrimString)))

	c, err := s.Get("Summarize")
	require.NoError(t, err)
	assert.Equal(t, []string{"msgs", "limit"}, c.ParamNames())
	assert.Equal(t, "string", c.Output.String())
	assert.Equal(t, []string{"Classify", "Summarize"}, s.Names())
}

func TestDefineErrors(t *testing.T) {
	tests := []struct {
		name   string
		fn     string
		params []ir.Param
		output string
		kind   errors.Kind
	}{
		{"duplicate function", "Classify", params("m", "Message"), "Role", errors.KindDuplicateFunction},
		{"unknown param type", "F", params("x", "Ghost"), "string", errors.KindUnknownType},
		{"unknown output type", "F", params("x", "string"), "Ghost[]", errors.KindUnknownType},
		{"duplicate param", "F", params("x", "string", "x", "int"), "string", errors.KindDuplicateDefinition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(sealedTypes(t))
			require.NoError(t, s.Define("Classify", params("msg", "Message"), ir.Named("Role")))

			err := s.Define(tt.fn, tt.params, ir.MustParseTypeRef(tt.output))
			require.Error(t, err)
			assert.True(t, errors.IsKind(err, tt.kind), "got %v", err)

			var fe *errors.Error
			require.True(t, errors.As(err, &fe))
			assert.Equal(t, tt.fn, fe.Function)
		})
	}
}

func TestGetUnknownFunction(t *testing.T) {
	s := NewStore(sealedTypes(t))
	_, err := s.Get("Nope")
	assert.True(t, errors.IsKind(err, errors.KindUnknownFunction))
}

func TestDefineAfterSeal(t *testing.T) {
	s := NewStore(sealedTypes(t))
	require.NoError(t, s.Seal())
	err := s.Define("Late", nil, ir.Prim(ir.PrimString))
	assert.True(t, errors.IsKind(err, errors.KindRegistryClosed))
}

func TestDescribe(t *testing.T) {
	s := NewStore(sealedTypes(t))
	require.NoError(t, s.DefineContract(ir.FunctionContract{
		Name:        "Classify",
		Description: "Pick the sender role",
		Params:      params("msg", "Message", "hint", "string?"),
		Output:      ir.Named("Role"),
	}))

	d, err := s.Describe("Classify")
	require.NoError(t, err)
	assert.Equal(t, "Classify", d.Name)
	assert.Equal(t, "Pick the sender role", d.Description)
	assert.Equal(t, []ParamDesc{{Name: "msg", Type: "Message"}, {Name: "hint", Type: "string?"}}, d.Params)
	assert.Equal(t, "Role", d.Output)
	require.Len(t, d.Types, 2)
	assert.Equal(t, "Role", d.Types[0].Name)
	assert.Equal(t, "Message", d.Types[1].Name)
	assert.Len(t, d.Hash, 64)
}

func TestDescribeIdempotent(t *testing.T) {
	s := NewStore(sealedTypes(t))
	require.NoError(t, s.Define("Classify", params("msg", "Message"), ir.Named("Role")))

	first, err := s.Describe("Classify")
	require.NoError(t, err)
	second, err := s.Describe("Classify")
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("Describe not idempotent (-first +second):\n%s", diff)
	}
}

func TestDescribeUnknownFunction(t *testing.T) {
	s := NewStore(sealedTypes(t))
	_, err := s.Describe("Nope")
	assert.True(t, errors.IsKind(err, errors.KindUnknownFunction))
}

func TestSealedStoreIsIsolatedFromCallers(t *testing.T) {
	reg := sealedTypes(t)
	s := NewStore(reg)
	require.NoError(t, s.Define("Summarize", params("msgs", "Message[]", "limit", "int?"), ir.Named("Role")))
	require.NoError(t, s.Seal())

	original, err := s.Describe("Summarize")
	require.NoError(t, err)
	wantMessage, err := reg.Resolve("Message")
	require.NoError(t, err)

	d1, err := s.Describe("Summarize")
	require.NoError(t, err)
	require.Len(t, d1.Types, 2)
	d1.Types[1].Fields[0].Name = "hacked"
	d1.Types[1].Fields[0].Type.Name = "Ghost"
	d1.Types[0].Values[0].Name = "ROOT"

	c, err := s.Get("Summarize")
	require.NoError(t, err)
	c.Params[0].Name = "renamed"
	c.Params[0].Type.Elem.Name = "Ghost"
	c.Output.Name = "Ghost"

	resolved, err := reg.Resolve("Message")
	require.NoError(t, err)
	resolved.Fields[1].Name = "hacked"

	d2, err := s.Describe("Summarize")
	require.NoError(t, err)
	if diff := cmp.Diff(original, d2); diff != "" {
		t.Errorf("Describe changed after caller mutation (-want +got):\n%s", diff)
	}

	got, err := reg.Resolve("Message")
	require.NoError(t, err)
	if diff := cmp.Diff(wantMessage, got); diff != "" {
		t.Errorf("Resolve changed after caller mutation (-want +got):\n%s", diff)
	}

	again, err := s.Get("Summarize")
	require.NoError(t, err)
	assert.Equal(t, []string{"msgs", "limit"}, again.ParamNames())
	assert.Equal(t, "Message[]", again.Params[0].Type.String())
	assert.Equal(t, "Role", again.Output.String())
}
