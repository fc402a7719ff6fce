package runtime

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/roach88/typefn/internal/contract"
	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/registry"
	"github.com/roach88/typefn/internal/types"
)

// Runtime is the Invocation Façade over one built registry.
type Runtime struct {
	reg       *registry.Registry
	backend   Backend
	sink      Sink
	logger    *zap.Logger
	clock     *Clock
	ids       IDGenerator
	now       func() time.Time
	timeout   time.Duration
	overrides map[string]string
	env       map[string]string
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithSink sets the CallRecord sink. A nil sink discards records.
func WithSink(s Sink) Option {
	return func(r *Runtime) {
		r.sink = s
	}
}

// WithLogger sets the logger. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(r *Runtime) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithClock sets the logical clock stamping CallRecord.Seq.
func WithClock(c *Clock) Option {
	return func(r *Runtime) {
		r.clock = c
	}
}

// WithIDGenerator sets the CallRecord id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runtime) {
		r.ids = g
	}
}

// WithTimeSource sets the wall clock used for StartedAt and durations.
func WithTimeSource(now func() time.Time) Option {
	return func(r *Runtime) {
		r.now = now
	}
}

// WithDefaultTimeout bounds every call that does not set its own timeout.
// Zero means no bound beyond the caller's context.
func WithDefaultTimeout(d time.Duration) Option {
	return func(r *Runtime) {
		r.timeout = d
	}
}

// WithClientOverrides sets the client-level override context (function name
// to variant id) applied to every call. Per-call overrides are merged on top.
func WithClientOverrides(overrides map[string]string) Option {
	return func(r *Runtime) {
		r.overrides = maps.Clone(overrides)
	}
}

// WithClientEnv sets environment entries passed to every backend request.
func WithClientEnv(env map[string]string) Option {
	return func(r *Runtime) {
		r.env = maps.Clone(env)
	}
}

// New creates a Runtime over a built registry.
func New(reg *registry.Registry, backend Backend, opts ...Option) *Runtime {
	r := &Runtime{
		reg:     reg,
		backend: backend,
		logger:  zap.NewNop(),
		clock:   NewClock(),
		ids:     UUIDv7Generator{},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// CallOption configures a single invocation.
type CallOption func(*callConfig)

type callConfig struct {
	variant   string
	overrides map[string]string
	timeout   time.Duration
	env       map[string]string
}

// WithVariant selects a variant explicitly. It beats overrides and defaults.
func WithVariant(id string) CallOption {
	return func(c *callConfig) {
		c.variant = id
	}
}

// WithOverrides merges per-call override context entries.
func WithOverrides(overrides map[string]string) CallOption {
	return func(c *callConfig) {
		maps.Copy(c.overrides, overrides)
	}
}

// WithTimeout bounds this call. Expiry fails the call with TIMEOUT.
func WithTimeout(d time.Duration) CallOption {
	return func(c *callConfig) {
		c.timeout = d
	}
}

// WithEnv merges runtime context environment entries for this call.
func WithEnv(env map[string]string) CallOption {
	return func(c *callConfig) {
		maps.Copy(c.env, env)
	}
}

// Invoke runs function with args.
//
// The returned Outcome is non-nil even when err is non-nil. err is always an
// *errors.Error whose Kind names the failing step. Exactly one CallRecord is
// appended to the sink per call.
func (r *Runtime) Invoke(ctx context.Context, function string, args ir.IRObject, opts ...CallOption) (*Outcome, error) {
	cfg := callConfig{
		overrides: maps.Clone(r.overrides),
		timeout:   r.timeout,
		env:       maps.Clone(r.env),
	}
	if cfg.overrides == nil {
		cfg.overrides = make(map[string]string)
	}
	if cfg.env == nil {
		cfg.env = make(map[string]string)
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	start := r.now()
	out := &Outcome{Function: function, States: []State{StateReceived}}

	err := r.invoke(ctx, out, args, cfg)
	if err != nil {
		out.Err = err
		out.Output = nil
		out.advance(StateFailed)
		r.logger.Warn("invocation failed",
			zap.String("function", function),
			zap.String("variant", out.Variant),
			zap.String("kind", string(errors.KindOf(err))),
			zap.Error(err),
		)
	} else {
		out.advance(StateCompleted)
	}

	out.Record = r.record(out, start)
	if r.sink != nil {
		// Cancelled calls are still recorded.
		if sinkErr := r.sink.Append(context.WithoutCancel(ctx), out.Record); sinkErr != nil {
			r.logger.Error("call record append failed",
				zap.String("function", function),
				zap.String("record_id", out.Record.ID),
				zap.Error(sinkErr),
			)
		}
	}

	if err != nil {
		return out, err
	}
	return out, nil
}

func (r *Runtime) invoke(ctx context.Context, out *Outcome, args ir.IRObject, cfg callConfig) error {
	if cfg.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.timeout)
		defer cancel()
	}

	c, err := r.reg.Contracts.Get(out.Function)
	if err != nil {
		return err
	}

	normArgs, err := r.checkArgs(c, args)
	if err != nil {
		return err
	}
	out.advance(StateArgsValidated)

	res, err := r.reg.Resolver.ResolveWithSource(ir.ResolutionRequest{
		Function:  out.Function,
		Variant:   cfg.variant,
		Overrides: cfg.overrides,
	})
	if err != nil {
		return err
	}
	out.Variant = res.Variant.ID
	out.Source = res.Source
	out.advance(StateResolved)

	req := Request{
		Function: out.Function,
		Variant:  res.Variant.ID,
		Config:   res.Variant.Config,
		Args:     normArgs,
		Output:   c.Output,
		Env:      cfg.env,
	}
	out.advance(StateDispatched)
	r.logger.Debug("dispatch",
		zap.String("function", req.Function),
		zap.String("variant", req.Variant),
		zap.String("source", string(res.Source)),
	)

	raw, err := r.dispatch(ctx, req)
	if err != nil {
		return err
	}

	value, vs := r.reg.Types.Check(c.Output, raw)
	if len(vs) > 0 {
		e := errors.E(errors.KindOutputTypeMismatch, "backend output does not match %s: %s", c.Output.String(), types.Summary(vs))
		e.Function = out.Function
		e.Variant = req.Variant
		e.Type = c.Output.String()
		e.Fields = nonEmpty(types.Paths(vs))
		return e
	}
	out.Output = value
	out.advance(StateOutputValidated)
	return nil
}

type dispatchResult struct {
	value ir.IRValue
	err   error
}

// dispatch calls the backend and returns as soon as either the backend or
// ctx finishes. The result channel is buffered so a backend that ignores ctx
// never blocks on send after the façade has given up.
func (r *Runtime) dispatch(ctx context.Context, req Request) (ir.IRValue, error) {
	if err := ctx.Err(); err != nil {
		return nil, contextError(err, req)
	}
	if r.backend == nil {
		return nil, backendError(req, errors.New("no backend configured"))
	}

	done := make(chan dispatchResult, 1)
	go func() {
		v, err := r.backend.Call(ctx, req)
		done <- dispatchResult{value: v, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, contextError(ctxErr, req)
			}
			return nil, backendError(req, res.err)
		}
		return res.value, nil
	case <-ctx.Done():
		return nil, contextError(ctx.Err(), req)
	}
}

func contextError(err error, req Request) error {
	kind := errors.KindCancelled
	msg := "call cancelled"
	if errors.Is(err, context.DeadlineExceeded) {
		kind = errors.KindTimeout
		msg = "call timed out"
	}
	e := errors.E(kind, "%s", msg)
	e.Function = req.Function
	e.Variant = req.Variant
	e.Cause = err
	return e
}

func backendError(req Request, cause error) error {
	e := errors.E(errors.KindBackendError, "backend call failed")
	e.Function = req.Function
	e.Variant = req.Variant
	e.Cause = cause
	return e
}

// checkArgs matches args against the contract's parameters. Absent optional
// parameters are normalized to null; every other mismatch is collected.
func (r *Runtime) checkArgs(c ir.FunctionContract, args ir.IRObject) (ir.IRObject, error) {
	var (
		params []string
		fields []string
		msgs   []string
	)
	out := make(ir.IRObject, len(c.Params))
	declared := make(map[string]bool, len(c.Params))

	for _, p := range c.Params {
		declared[p.Name] = true
		v, present := args[p.Name]
		if !present && p.Type.Kind != ir.TypeOptional {
			params = append(params, p.Name)
			msgs = append(msgs, fmt.Sprintf("missing parameter %q", p.Name))
			continue
		}
		norm, vs := r.reg.Types.Check(p.Type, v)
		if len(vs) > 0 {
			params = append(params, p.Name)
			for _, viol := range vs {
				path := paramPath(p.Name, viol.Path)
				fields = append(fields, path)
				msgs = append(msgs, path+": "+viol.Message)
			}
			continue
		}
		out[p.Name] = norm
	}

	for _, k := range args.SortedKeys() {
		if !declared[k] {
			params = append(params, k)
			msgs = append(msgs, fmt.Sprintf("unexpected parameter %q", k))
		}
	}

	if len(params) > 0 {
		e := errors.E(errors.KindArgumentMismatch, "%s", strings.Join(msgs, "; "))
		e.Function = c.Name
		e.Params = params
		e.Fields = fields
		return nil, e
	}
	return out, nil
}

func paramPath(param, path string) string {
	switch {
	case path == "":
		return param
	case strings.HasPrefix(path, "["):
		return param + path
	default:
		return param + "." + path
	}
}

func nonEmpty(paths []string) []string {
	out := paths[:0:0]
	for _, p := range paths {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *Runtime) record(out *Outcome, start time.Time) ir.CallRecord {
	rec := ir.CallRecord{
		ID:             r.ids.Generate(),
		Seq:            r.clock.Next(),
		Function:       out.Function,
		Variant:        out.Variant,
		Outcome:        ir.OutcomeCompleted,
		StartedAt:      start.UTC(),
		DurationMicros: r.now().Sub(start).Microseconds(),
	}
	if out.Err != nil {
		rec.Outcome = ir.OutcomeFailed
		rec.ErrorKind = string(errors.KindOf(out.Err))
	}
	return rec
}

// ListFunctions returns function names in definition order.
func (r *Runtime) ListFunctions() []string {
	return r.reg.Contracts.Names()
}

// ListVariants returns the variant ids of function in registration order.
func (r *Runtime) ListVariants(function string) ([]string, error) {
	return r.reg.Impls.ListVariants(function)
}

// DescribeContract returns the expanded contract of function.
func (r *Runtime) DescribeContract(function string) (contract.Description, error) {
	return r.reg.Contracts.Describe(function)
}

// Registry returns the registry the runtime invokes against.
func (r *Runtime) Registry() *registry.Registry {
	return r.reg
}
