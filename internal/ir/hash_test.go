package ir

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messageDef() TypeDef {
	return TypeDef{
		Kind: DefRecord,
		Name: "Message",
		Fields: []Field{
			{Name: "sender", Type: Named("Role")},
			{Name: "body", Type: Prim(PrimString)},
		},
	}
}

func roleDef() TypeDef {
	return TypeDef{
		Kind:   DefEnum,
		Name:   "Role",
		Values: []EnumValue{{Name: "USER", Alias: "user"}, {Name: "ASSISTANT"}},
	}
}

func classifyContract() FunctionContract {
	return FunctionContract{
		Name:   "Classify",
		Params: []Param{{Name: "msg", Type: Named("Message")}},
		Output: Named("Role"),
	}
}

func TestContractHashDeterminism(t *testing.T) {
	deps := []TypeDef{messageDef(), roleDef()}

	h1, err := ContractHash(classifyContract(), deps)
	require.NoError(t, err)
	h2, err := ContractHash(classifyContract(), deps)
	require.NoError(t, err)

	assert.Equal(t, h1, h2)
	assert.Len(t, h1, 64)
	_, err = hex.DecodeString(h1)
	assert.NoError(t, err)
}

func TestContractHashChangesWithDependency(t *testing.T) {
	base, err := ContractHash(classifyContract(), []TypeDef{messageDef(), roleDef()})
	require.NoError(t, err)

	role := roleDef()
	role.Values = append(role.Values, EnumValue{Name: "SYSTEM"})
	changed, err := ContractHash(classifyContract(), []TypeDef{messageDef(), role})
	require.NoError(t, err)

	assert.NotEqual(t, base, changed, "adding an enum value must change the contract hash")
}

func TestContractHashIgnoresDescriptions(t *testing.T) {
	base, err := ContractHash(classifyContract(), []TypeDef{messageDef(), roleDef()})
	require.NoError(t, err)

	c := classifyContract()
	c.Description = "classify a message"
	msg := messageDef()
	msg.Fields[1].Description = "free text"
	described, err := ContractHash(c, []TypeDef{msg, roleDef()})
	require.NoError(t, err)

	assert.Equal(t, base, described)
}

func TestSchemaHashIncludesVariantConfig(t *testing.T) {
	s := Schema{
		Types:     []TypeDef{messageDef(), roleDef()},
		Functions: []FunctionContract{classifyContract()},
		Variants: []VariantDecl{{
			Function: "Classify",
			ID:       "v1",
			Config:   IRObject{"client": IRString("echo"), "temperature": IRFloat(0.7), "stop": IRNull{}},
			Default:  true,
		}},
	}

	h1 := MustSchemaHash(s)

	s.Variants[0].Config = IRObject{"client": IRString("echo"), "temperature": IRFloat(0.2)}
	h2 := MustSchemaHash(s)

	assert.NotEqual(t, h1, h2)
}

func TestSchemaHashEmptySchema(t *testing.T) {
	h, err := SchemaHash(Schema{})
	require.NoError(t, err)
	assert.Len(t, h, 64)
}

func TestDomainSeparation(t *testing.T) {
	data := []byte(`{"name":"Classify"}`)
	assert.NotEqual(t, hashWithDomain(DomainSchema, data), hashWithDomain(DomainContract, data))
}

func TestHashWithDomainNullSeparator(t *testing.T) {
	// "ab" + 0x00 + "c" must differ from "a" + 0x00 + "bc".
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}
