package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTypeRefCloneIsDeep(t *testing.T) {
	orig := MustParseTypeRef("map<string, Message[]> | Sender?")
	c := orig.Clone()
	assert.Equal(t, orig, c)

	c.Variants[0].Elem.Elem.Name = "Other"
	c.Variants[1].Elem.Name = "Other"
	assert.Equal(t, "map<string, Message[]> | Sender?", orig.String())
}

func TestTypeDefCloneIsDeep(t *testing.T) {
	orig := TypeDef{Kind: DefRecord, Name: "Message", Fields: []Field{
		{Name: "tags", Type: List(Prim(PrimString))},
	}}
	c := orig.Clone()
	c.Fields[0].Name = "labels"
	c.Fields[0].Type.Elem.Name = PrimInt

	assert.Equal(t, "tags", orig.Fields[0].Name)
	assert.Equal(t, "string[]", orig.Fields[0].Type.String())

	enum := TypeDef{Kind: DefEnum, Name: "Sender", Values: []EnumValue{{Name: "USER", Alias: "user"}}}
	ce := enum.Clone()
	ce.Values[0].Alias = "u"
	assert.Equal(t, "user", enum.Values[0].Alias)
}

func TestFunctionContractCloneIsDeep(t *testing.T) {
	orig := FunctionContract{
		Name:   "Classify",
		Params: []Param{{Name: "msg", Type: Optional(Named("Message"))}},
		Output: List(Named("Sender")),
	}
	c := orig.Clone()
	c.Params[0].Name = "m"
	c.Params[0].Type.Elem.Name = "Other"
	c.Output.Elem.Name = "Other"

	assert.Equal(t, "msg", orig.Params[0].Name)
	assert.Equal(t, "Message?", orig.Params[0].Type.String())
	assert.Equal(t, "Sender[]", orig.Output.String())
}

func TestIRObjectCloneIsDeep(t *testing.T) {
	orig := IRObject{
		"client": IRString("static"),
		"nested": IRObject{"list": IRArray{IRInt(1), IRObject{"k": IRBool(true)}}},
	}
	c := orig.Clone()
	assert.Equal(t, orig, c)

	c["client"] = IRString("echo")
	c["nested"].(IRObject)["list"].(IRArray)[1].(IRObject)["k"] = IRBool(false)
	c["seen"] = IRBool(true)

	assert.Equal(t, IRString("static"), orig["client"])
	assert.Equal(t, IRBool(true), orig["nested"].(IRObject)["list"].(IRArray)[1].(IRObject)["k"])
	assert.NotContains(t, orig, "seen")

	assert.Nil(t, IRObject(nil).Clone())
	assert.Equal(t, IRString("x"), CloneValue(IRString("x")))
}
