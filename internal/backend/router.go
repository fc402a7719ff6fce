// Package backend provides reference Backend implementations and a Router
// that dispatches on the variant's "client" config entry.
//
// Built-in clients:
//
//	static    returns config "response" verbatim, after an optional delay_ms
//	echo      returns the arguments (or config "field" of them)
//	template  renders config "prompt" against the arguments
//	fault     fails with the sentinel named by config "error"
//
// Backend failures are reported with the sentinels below so callers can
// tell them apart with errors.Is after the runtime wraps them as
// BACKEND_ERROR.
package backend

import (
	"context"
	"maps"
	"slices"

	"go.uber.org/zap"

	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/runtime"
)

// ClientKey is the variant config entry naming the client.
const ClientKey = "client"

// Backend-side failure sentinels.
var (
	ErrUnavailable = errors.New("backend unavailable")
	ErrTimeout     = errors.New("backend timed out")
	ErrProtocol    = errors.New("backend protocol error")
)

// Router is a runtime.Backend that forwards each request to the client
// named in the variant config.
type Router struct {
	clients       map[string]runtime.Backend
	defaultClient string
	logger        *zap.Logger
}

// Option configures a Router.
type Option func(*Router)

// WithClient registers (or replaces) a named client.
func WithClient(name string, b runtime.Backend) Option {
	return func(r *Router) {
		r.clients[name] = b
	}
}

// WithDefaultClient names the client used when a variant config has no
// client entry.
func WithDefaultClient(name string) Option {
	return func(r *Router) {
		r.defaultClient = name
	}
}

// WithLogger sets the router's logger. Defaults to a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(r *Router) {
		r.logger = l
	}
}

// NewRouter creates a Router with the built-in clients registered.
func NewRouter(opts ...Option) *Router {
	r := &Router{
		clients: map[string]runtime.Backend{
			"static":   Static{},
			"echo":     Echo{},
			"template": Template{},
			"fault":    Fault{},
		},
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Clients returns the registered client names, sorted.
func (r *Router) Clients() []string {
	return slices.Sorted(maps.Keys(r.clients))
}

// Call implements runtime.Backend.
func (r *Router) Call(ctx context.Context, req runtime.Request) (ir.IRValue, error) {
	name := r.defaultClient
	if raw, ok := req.Config[ClientKey]; ok {
		s, ok := raw.(ir.IRString)
		if !ok {
			return nil, errors.Wrapf(ErrProtocol, "%s must be a string, got %s", ClientKey, ir.TypeName(raw))
		}
		name = string(s)
	}
	if name == "" {
		return nil, errors.Wrapf(ErrProtocol, "variant %s.%s has no %s", req.Function, req.Variant, ClientKey)
	}

	client, ok := r.clients[name]
	if !ok {
		return nil, errors.WithHintf(
			errors.Wrapf(ErrUnavailable, "unknown client %q", name),
			"registered clients: %v", r.Clients(),
		)
	}

	r.logger.Debug("routing call",
		zap.String("function", req.Function),
		zap.String("variant", req.Variant),
		zap.String("client", name))
	return client.Call(ctx, req)
}
