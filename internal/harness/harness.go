package harness

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/typefn/internal/backend"
	"github.com/roach88/typefn/internal/compiler"
	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/registry"
	"github.com/roach88/typefn/internal/runtime"
	"github.com/roach88/typefn/internal/store"
	"github.com/roach88/typefn/internal/testutil"
)

// Harness is the test execution engine.
// It runs one scenario against a fresh runtime with a deterministic clock,
// deterministic record ids and an in-memory call log.
type Harness struct {
	rt     *runtime.Runtime
	store  *store.Store
	logger *zap.Logger
}

// Option configures a scenario run.
type Option func(*options)

type options struct {
	logger  *zap.Logger
	backend runtime.Backend
}

// WithLogger sets the logger passed to the runtime. Default: zap.NewNop().
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithBackend replaces the default backend.NewRouter().
func WithBackend(b runtime.Backend) Option {
	return func(o *options) {
		o.backend = b
	}
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible traces.
//
// Execution flow:
// 1. Load the schema and build the registry
// 2. Create a runtime over the reference backends, recording to the store
// 3. Execute flow steps with expect validation
// 4. Evaluate assertions against the persisted call records
//
// An error is returned only when the scenario cannot run at all. Failed
// expectations are reported in Result.Errors.
func Run(ctx context.Context, scenario *Scenario, opts ...Option) (*Result, error) {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.backend == nil {
		o.backend = backend.NewRouter(backend.WithLogger(o.logger))
	}

	loaded, errs := compiler.Load(scenario.Schema, compiler.LoadModeFailFast)
	if len(errs) > 0 {
		return nil, errors.Wrapf(errs[0], "failed to load schema %s", scenario.Schema)
	}
	reg, err := registry.Build(loaded.Schema)
	if err != nil {
		return nil, errors.Wrap(err, "failed to build registry")
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, errors.Wrap(err, "failed to create in-memory store")
	}
	defer st.Close()

	clock := testutil.NewDeterministicTime(testutil.Epoch, time.Millisecond)
	rt := runtime.New(reg, o.backend,
		runtime.WithSink(st),
		runtime.WithLogger(o.logger),
		runtime.WithClock(runtime.NewClock()),
		runtime.WithIDGenerator(testutil.NewSequenceGenerator("call")),
		runtime.WithTimeSource(clock.Now),
		runtime.WithDefaultTimeout(scenario.Timeout),
		runtime.WithClientOverrides(scenario.Overrides),
		runtime.WithClientEnv(scenario.Env),
	)

	h := &Harness{
		rt:     rt,
		store:  st,
		logger: o.logger.With(zap.String("scenario", scenario.Name)),
	}

	result := NewResult(scenario.Name)
	if err := h.executeFlow(ctx, scenario.Flow, result); err != nil {
		return nil, errors.Wrap(err, "failed to execute flow")
	}

	records, err := st.ReadCalls(ctx, store.Filter{})
	if err != nil {
		return nil, errors.Wrap(err, "failed to read call records")
	}
	result.Records = records

	actx := &AssertionContext{
		Store: st,
		Ctx:   ctx,
	}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// RunAll runs scenarios with at most parallel running at once (unbounded if
// parallel <= 0). Results are returned in input order. The first scenario
// that cannot run cancels the rest.
func RunAll(ctx context.Context, scenarios []*Scenario, parallel int, opts ...Option) ([]*Result, error) {
	results := make([]*Result, len(scenarios))

	g, ctx := errgroup.WithContext(ctx)
	if parallel > 0 {
		g.SetLimit(parallel)
	}
	for i, s := range scenarios {
		g.Go(func() error {
			res, err := Run(ctx, s, opts...)
			if err != nil {
				return errors.Wrapf(err, "scenario %s", s.Name)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// executeFlow runs all flow steps and validates expect clauses.
//
// Each step:
// 1. Converts YAML args to IR values
// 2. Invokes the function through the runtime
// 3. Records the outcome in the trace
// 4. Validates the expect clause, if any
func (h *Harness) executeFlow(ctx context.Context, flow []FlowStep, result *Result) error {
	for i, step := range flow {
		args, err := convertArgsToIRObject(step.Args)
		if err != nil {
			return errors.Wrapf(err, "flow step %d: failed to convert args", i)
		}

		var callOpts []runtime.CallOption
		if step.Variant != "" {
			callOpts = append(callOpts, runtime.WithVariant(step.Variant))
		}
		if len(step.Overrides) > 0 {
			callOpts = append(callOpts, runtime.WithOverrides(maps.Clone(step.Overrides)))
		}
		if step.Timeout > 0 {
			callOpts = append(callOpts, runtime.WithTimeout(step.Timeout))
		}

		out, callErr := h.rt.Invoke(ctx, step.Invoke, args, callOpts...)

		event := TraceEvent{
			Step:      i,
			Function:  step.Invoke,
			Args:      args,
			Variant:   out.Variant,
			Source:    string(out.Source),
			States:    stateNames(out.States),
			Outcome:   out.Record.Outcome,
			Output:    out.Output,
			ErrorKind: string(out.ErrorKind()),
			RecordID:  out.Record.ID,
			Seq:       out.Record.Seq,
		}
		result.AddTrace(event)

		if step.Expect != nil {
			for _, msg := range checkExpect(step.Expect, event, callErr) {
				result.AddError(fmt.Sprintf("flow[%d] %s: %s", i, step.Invoke, msg))
			}
		}

		h.logger.Debug("flow step completed",
			zap.Int("step", i),
			zap.String("function", step.Invoke),
			zap.String("variant", event.Variant),
			zap.String("outcome", event.Outcome),
			zap.String("record_id", event.RecordID),
		)
	}

	return nil
}

// checkExpect compares one step's outcome with its expect clause.
func checkExpect(e *ExpectClause, event TraceEvent, callErr error) []string {
	var msgs []string

	want := e.expectedOutcome()
	if event.Outcome != want {
		msg := fmt.Sprintf("expected outcome %s, got %s", want, event.Outcome)
		if callErr != nil {
			msg += fmt.Sprintf(" (%v)", callErr)
		}
		return append(msgs, msg)
	}

	if e.ErrorKind != "" && !errors.IsKind(callErr, errors.Kind(e.ErrorKind)) {
		msgs = append(msgs, fmt.Sprintf("expected error kind %s, got %s", e.ErrorKind, event.ErrorKind))
	}
	if e.Variant != "" && event.Variant != e.Variant {
		msgs = append(msgs, fmt.Sprintf("expected variant %s, got %q", e.Variant, event.Variant))
	}
	if e.Source != "" && event.Source != e.Source {
		msgs = append(msgs, fmt.Sprintf("expected source %s, got %q", e.Source, event.Source))
	}
	if e.Output != nil {
		expected, err := ir.FromGo(e.Output)
		if err != nil {
			return append(msgs, fmt.Sprintf("invalid expected output: %v", err))
		}
		if !matchValue(expected, event.Output) {
			msgs = append(msgs, fmt.Sprintf("expected output %s, got %s", formatValue(expected), formatValue(event.Output)))
		}
	}
	return msgs
}

func stateNames(states []runtime.State) []string {
	names := make([]string, len(states))
	for i, s := range states {
		names[i] = string(s)
	}
	return names
}

// convertArgsToIRObject converts YAML-decoded arguments to an IRObject.
// YAML null becomes IRNull, which is how an explicitly absent optional is
// written.
func convertArgsToIRObject(args map[string]interface{}) (ir.IRObject, error) {
	result := make(ir.IRObject, len(args))
	for key, val := range args {
		irVal, err := ir.FromGo(normalizeYAML(val))
		if err != nil {
			return nil, errors.Wrapf(err, "field %q", key)
		}
		result[key] = irVal
	}
	return result, nil
}

// normalizeYAML rewrites the map[interface{}]interface{} that yaml.v3
// produces for non-string keys into map[string]interface{}.
func normalizeYAML(v interface{}) interface{} {
	switch val := v.(type) {
	case map[string]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, elem := range val {
			out[k] = normalizeYAML(elem)
		}
		return out
	case map[interface{}]interface{}:
		out := make(map[string]interface{}, len(val))
		for k, elem := range val {
			out[fmt.Sprint(k)] = normalizeYAML(elem)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(val))
		for i, elem := range val {
			out[i] = normalizeYAML(elem)
		}
		return out
	default:
		return v
	}
}

func formatValue(v ir.IRValue) string {
	if v == nil {
		return "<none>"
	}
	b, err := ir.MarshalIRValue(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return strings.TrimSpace(string(b))
}
