package testutil

import "github.com/roach88/typefn/internal/ir"

// ChatSchema returns the schema shared by runtime, harness and CLI tests:
//
//	enum Sender { USER @alias("user"), ASSISTANT @alias("assistant") }
//	class Message { sender Sender, text string }
//	function Simplify(msg: Message) -> string   variants: v1 (default)
//	function Classify(msg: Message) -> Sender   variants: a (default), b
func ChatSchema() ir.Schema {
	return ir.Schema{
		Types: []ir.TypeDef{
			{
				Kind: ir.DefEnum,
				Name: "Sender",
				Values: []ir.EnumValue{
					{Name: "USER", Alias: "user"},
					{Name: "ASSISTANT", Alias: "assistant"},
				},
			},
			{
				Kind: ir.DefRecord,
				Name: "Message",
				Fields: []ir.Field{
					{Name: "sender", Type: ir.Named("Sender")},
					{Name: "text", Type: ir.Prim(ir.PrimString)},
				},
			},
		},
		Functions: []ir.FunctionContract{
			{
				Name:   "Simplify",
				Params: []ir.Param{{Name: "msg", Type: ir.Named("Message")}},
				Output: ir.Prim(ir.PrimString),
			},
			{
				Name:   "Classify",
				Params: []ir.Param{{Name: "msg", Type: ir.Named("Message")}},
				Output: ir.Named("Sender"),
			},
		},
		Variants: []ir.VariantDecl{
			{
				Function: "Simplify",
				ID:       "v1",
				Config:   ir.IRObject{"client": ir.IRString("template"), "prompt": ir.IRString("Simplify: {#input.msg}")},
				Default:  true,
			},
			{Function: "Classify", ID: "a", Config: ir.IRObject{"client": ir.IRString("static"), "response": ir.IRString("USER")}, Default: true},
			{Function: "Classify", ID: "b", Config: ir.IRObject{"client": ir.IRString("static"), "response": ir.IRString("assistant")}},
		},
	}
}

// UserMessage returns valid Simplify/Classify arguments.
func UserMessage(text string) ir.IRObject {
	return ir.IRObject{
		"msg": ir.IRObject{
			"sender": ir.IRString("USER"),
			"text":   ir.IRString(text),
		},
	}
}
