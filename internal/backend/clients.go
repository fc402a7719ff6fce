package backend

import (
	"context"
	"time"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/runtime"
)

// Static returns the variant's configured response.
//
// Config:
//
//	response  any value, returned as is (required)
//	delay_ms  int, wait before responding; honors ctx
type Static struct{}

// Call implements runtime.Backend.
func (Static) Call(ctx context.Context, req runtime.Request) (ir.IRValue, error) {
	if err := delay(ctx, req.Config); err != nil {
		return nil, err
	}
	resp, ok := req.Config["response"]
	if !ok {
		return nil, errors.Wrapf(ErrProtocol, "static variant %s.%s has no response", req.Function, req.Variant)
	}
	return resp, nil
}

// Echo returns its arguments.
//
// With config "field" it returns that argument; with a single parameter it
// returns that argument's value; otherwise the whole argument object.
type Echo struct{}

// Call implements runtime.Backend.
func (Echo) Call(ctx context.Context, req runtime.Request) (ir.IRValue, error) {
	if err := delay(ctx, req.Config); err != nil {
		return nil, err
	}
	if raw, ok := req.Config["field"]; ok {
		name, ok := raw.(ir.IRString)
		if !ok {
			return nil, errors.Wrapf(ErrProtocol, "field must be a string, got %s", ir.TypeName(raw))
		}
		v, ok := req.Args[string(name)]
		if !ok {
			return nil, errors.Wrapf(ErrProtocol, "no argument %q", string(name))
		}
		return v, nil
	}
	if len(req.Args) == 1 {
		for _, v := range req.Args {
			return v, nil
		}
	}
	return req.Args, nil
}

// Fault always fails with the sentinel named by config "error":
// "unavailable" (the default), "timeout" or "protocol".
type Fault struct{}

// Call implements runtime.Backend.
func (Fault) Call(ctx context.Context, req runtime.Request) (ir.IRValue, error) {
	if err := delay(ctx, req.Config); err != nil {
		return nil, err
	}
	kind, _ := req.Config["error"].(ir.IRString)
	switch kind {
	case "timeout":
		return nil, errors.Wrapf(ErrTimeout, "%s.%s", req.Function, req.Variant)
	case "protocol":
		return nil, errors.Wrapf(ErrProtocol, "%s.%s", req.Function, req.Variant)
	default:
		return nil, errors.Wrapf(ErrUnavailable, "%s.%s", req.Function, req.Variant)
	}
}

func delay(ctx context.Context, config ir.IRObject) error {
	raw, ok := config["delay_ms"]
	if !ok {
		return nil
	}
	ms, ok := raw.(ir.IRInt)
	if !ok || ms < 0 {
		return errors.Wrapf(ErrProtocol, "delay_ms must be a non-negative int, got %s", ir.TypeName(raw))
	}

	t := time.NewTimer(time.Duration(ms) * time.Millisecond)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
