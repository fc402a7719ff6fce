package backend

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/impl"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/runtime"
)

// Template renders the variant's prompt against the call arguments.
//
// {#input.<name>} placeholders expand to the argument value: strings verbatim,
// everything else as JSON. The prompt is otherwise a text/template with the
// functions arg, env and json, and the data fields .Function, .Variant,
// .Input and .Env.
//
// Config:
//
//	prompt  string (required)
//	format  "text" (default) returns the rendering as a string;
//	        "json" parses the rendering as a JSON value
type Template struct{}

type templateData struct {
	Function string
	Variant  string
	Input    map[string]any
	Env      map[string]string
}

// Call implements runtime.Backend.
func (Template) Call(ctx context.Context, req runtime.Request) (ir.IRValue, error) {
	raw, ok := req.Config[impl.PromptKey]
	if !ok {
		return nil, errors.Wrapf(ErrProtocol, "template variant %s.%s has no %s", req.Function, req.Variant, impl.PromptKey)
	}
	prompt, ok := raw.(ir.IRString)
	if !ok {
		return nil, errors.Wrapf(ErrProtocol, "%s must be a string, got %s", impl.PromptKey, ir.TypeName(raw))
	}

	out, err := Render(string(prompt), req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	format, _ := req.Config["format"].(ir.IRString)
	switch format {
	case "", "text":
		return ir.IRString(out), nil
	case "json":
		v, err := ir.UnmarshalIRValue([]byte(out))
		if err != nil {
			return nil, errors.Wrapf(ErrProtocol, "rendered prompt is not JSON: %v", err)
		}
		return v, nil
	default:
		return nil, errors.Wrapf(ErrProtocol, "unknown format %q", string(format))
	}
}

// Render expands prompt for req without calling any client. It is exported
// so callers can preview what a template variant would produce.
func Render(prompt string, req runtime.Request) (string, error) {
	src := impl.ExpandPlaceholders(prompt, func(name string) string {
		return fmt.Sprintf("{{arg %q}}", name)
	})

	input := make(map[string]any, len(req.Args))
	for k, v := range req.Args {
		input[k] = ir.ToGo(v)
	}

	funcs := template.FuncMap{
		"arg": func(name string) (string, error) {
			v, ok := req.Args[name]
			if !ok {
				return "", errors.Newf("no argument %q", name)
			}
			return argText(v)
		},
		"env": func(key string) string {
			return req.Env[key]
		},
		"json": func(v any) (string, error) {
			iv, err := ir.FromGo(v)
			if err != nil {
				return "", err
			}
			b, err := ir.MarshalIRValue(iv)
			return string(b), err
		},
	}

	tmpl, err := template.New(req.Function).Funcs(funcs).Option("missingkey=error").Parse(src)
	if err != nil {
		return "", errors.Wrap(ErrProtocol, err.Error())
	}
	var buf strings.Builder
	err = tmpl.Execute(&buf, templateData{
		Function: req.Function,
		Variant:  req.Variant,
		Input:    input,
		Env:      req.Env,
	})
	if err != nil {
		return "", errors.Wrap(ErrProtocol, err.Error())
	}
	return buf.String(), nil
}

func argText(v ir.IRValue) (string, error) {
	if s, ok := v.(ir.IRString); ok {
		return string(s), nil
	}
	b, err := ir.MarshalIRValue(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
