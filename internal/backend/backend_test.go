package backend

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/registry"
	"github.com/roach88/typefn/internal/runtime"
	"github.com/roach88/typefn/internal/testutil"
)

func request(config ir.IRObject, args ir.IRObject) runtime.Request {
	return runtime.Request{Function: "F", Variant: "v1", Config: config, Args: args}
}

func TestRouterDispatchesOnClient(t *testing.T) {
	r := NewRouter()

	got, err := r.Call(context.Background(), request(
		ir.IRObject{"client": ir.IRString("static"), "response": ir.IRInt(7)}, nil))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(7), got)

	got, err = r.Call(context.Background(), request(
		ir.IRObject{"client": ir.IRString("echo")}, ir.IRObject{"x": ir.IRString("hi")}))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("hi"), got)
}

func TestRouterCustomAndDefaultClient(t *testing.T) {
	custom := runtime.BackendFunc(func(ctx context.Context, req runtime.Request) (ir.IRValue, error) {
		return ir.IRString("custom:" + req.Function), nil
	})
	r := NewRouter(WithClient("mine", custom), WithDefaultClient("mine"))

	got, err := r.Call(context.Background(), request(ir.IRObject{}, nil))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("custom:F"), got)
	assert.Equal(t, []string{"echo", "fault", "mine", "static", "template"}, r.Clients())
}

func TestRouterErrors(t *testing.T) {
	r := NewRouter()

	_, err := r.Call(context.Background(), request(ir.IRObject{}, nil))
	assert.ErrorIs(t, err, ErrProtocol)

	_, err = r.Call(context.Background(), request(ir.IRObject{"client": ir.IRInt(1)}, nil))
	assert.ErrorIs(t, err, ErrProtocol)

	_, err = r.Call(context.Background(), request(ir.IRObject{"client": ir.IRString("openai")}, nil))
	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Contains(t, errors.FlattenHints(err), "registered clients")
}

func TestStatic(t *testing.T) {
	_, err := Static{}.Call(context.Background(), request(ir.IRObject{}, nil))
	assert.ErrorIs(t, err, ErrProtocol)

	resp := ir.IRObject{"a": ir.IRArray{ir.IRBool(true)}}
	got, err := Static{}.Call(context.Background(), request(ir.IRObject{"response": resp}, nil))
	require.NoError(t, err)
	assert.Equal(t, resp, got)
}

func TestStaticDelayHonorsContext(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := Static{}.Call(ctx, request(ir.IRObject{"response": ir.IRNull{}, "delay_ms": ir.IRInt(5000)}, nil))
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	_, err = Static{}.Call(context.Background(), request(ir.IRObject{"response": ir.IRNull{}, "delay_ms": ir.IRString("soon")}, nil))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestEcho(t *testing.T) {
	args := ir.IRObject{"a": ir.IRInt(1), "b": ir.IRInt(2)}

	got, err := Echo{}.Call(context.Background(), request(ir.IRObject{}, args))
	require.NoError(t, err)
	assert.Equal(t, args, got)

	got, err = Echo{}.Call(context.Background(), request(ir.IRObject{"field": ir.IRString("b")}, args))
	require.NoError(t, err)
	assert.Equal(t, ir.IRInt(2), got)

	_, err = Echo{}.Call(context.Background(), request(ir.IRObject{"field": ir.IRString("c")}, args))
	assert.ErrorIs(t, err, ErrProtocol)
}

func TestFault(t *testing.T) {
	tests := []struct {
		kind string
		want error
	}{
		{"", ErrUnavailable},
		{"unavailable", ErrUnavailable},
		{"timeout", ErrTimeout},
		{"protocol", ErrProtocol},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			config := ir.IRObject{}
			if tt.kind != "" {
				config["error"] = ir.IRString(tt.kind)
			}
			_, err := Fault{}.Call(context.Background(), request(config, nil))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestTemplate(t *testing.T) {
	req := request(
		ir.IRObject{"prompt": ir.IRString(`Simplify: {#input.msg} for {{env "USER_NAME"}} ({{.Input.n}})`)},
		ir.IRObject{
			"msg": ir.IRObject{"sender": ir.IRString("USER"), "text": ir.IRString("hello")},
			"n":   ir.IRInt(3),
		},
	)
	req.Env = map[string]string{"USER_NAME": "ada"}

	got, err := Template{}.Call(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString(`Simplify: {"sender":"USER","text":"hello"} for ada (3)`), got)
}

func TestTemplateStringArgVerbatim(t *testing.T) {
	req := request(ir.IRObject{"prompt": ir.IRString("Say {#input.s}")}, ir.IRObject{"s": ir.IRString(`"quoted"`)})

	got, err := Template{}.Call(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ir.IRString(`Say "quoted"`), got)
}

func TestTemplateJSONFormat(t *testing.T) {
	req := request(ir.IRObject{
		"prompt": ir.IRString(`{"sender": "{#input.who}", "text": {{json .Input.text}}}`),
		"format": ir.IRString("json"),
	}, ir.IRObject{"who": ir.IRString("USER"), "text": ir.IRString("hi")})

	got, err := Template{}.Call(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, ir.IRObject{"sender": ir.IRString("USER"), "text": ir.IRString("hi")}, got)
}

func TestTemplateErrors(t *testing.T) {
	tests := []struct {
		name   string
		config ir.IRObject
	}{
		{"no prompt", ir.IRObject{}},
		{"prompt not string", ir.IRObject{"prompt": ir.IRInt(1)}},
		{"bad template", ir.IRObject{"prompt": ir.IRString("{{")}},
		{"missing arg", ir.IRObject{"prompt": ir.IRString("{#input.nope}")}},
		{"bad format", ir.IRObject{"prompt": ir.IRString("x"), "format": ir.IRString("yaml")}},
		{"not json", ir.IRObject{"prompt": ir.IRString("x"), "format": ir.IRString("json")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Template{}.Call(context.Background(), request(tt.config, ir.IRObject{}))
			assert.ErrorIs(t, err, ErrProtocol)
		})
	}
}

func TestRouterWithRuntime(t *testing.T) {
	reg, err := registry.Build(testutil.ChatSchema())
	require.NoError(t, err)
	rt := runtime.New(reg, NewRouter())
	ctx := context.Background()

	out, err := rt.Invoke(ctx, "Classify", testutil.UserMessage("hi"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("USER"), out.Output)

	// Variant b answers with the alias, normalized to the enum name.
	out, err = rt.Invoke(ctx, "Classify", testutil.UserMessage("hi"), runtime.WithVariant("b"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString("ASSISTANT"), out.Output)

	out, err = rt.Invoke(ctx, "Simplify", testutil.UserMessage("hi"))
	require.NoError(t, err)
	assert.Equal(t, ir.IRString(`Simplify: {"sender":"USER","text":"hi"}`), out.Output)
}

func TestBackendSentinelSurvivesRuntime(t *testing.T) {
	schema := testutil.ChatSchema()
	schema.Variants = append(schema.Variants, ir.VariantDecl{
		Function: "Classify",
		ID:       "down",
		Config:   ir.IRObject{"client": ir.IRString("fault"), "error": ir.IRString("timeout")},
	})
	reg, err := registry.Build(schema)
	require.NoError(t, err)
	rt := runtime.New(reg, NewRouter())

	out, err := rt.Invoke(context.Background(), "Classify", testutil.UserMessage("hi"), runtime.WithVariant("down"))
	require.Error(t, err)
	assert.True(t, errors.IsKind(err, errors.KindBackendError))
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, runtime.StateFailed, out.Final())
}
