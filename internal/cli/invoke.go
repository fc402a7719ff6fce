package cli

import (
	"context"
	"fmt"
	"maps"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/roach88/typefn/internal/backend"
	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/runtime"
	"github.com/roach88/typefn/internal/store"
)

// InvokeOptions holds flags for the invoke command.
type InvokeOptions struct {
	*RootOptions
	Args      string
	Variant   string
	Timeout   time.Duration
	Database  string
	Env       []string // KEY=value
	Overrides []string // Function=variant
}

// InvokeResult is the outcome of one invocation as reported by the CLI.
type InvokeResult struct {
	Function  string          `json:"function"`
	Variant   string          `json:"variant,omitempty"`
	Source    string          `json:"source,omitempty"`
	Outcome   string          `json:"outcome"`
	Output    ir.IRValue      `json:"output,omitempty"`
	ErrorKind string          `json:"error_kind,omitempty"`
	Error     string          `json:"error,omitempty"`
	States    []runtime.State `json:"states"`
	Record    ir.CallRecord   `json:"record"`
}

// NewInvokeCommand creates the invoke command.
func NewInvokeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &InvokeOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "invoke <schema> <function>",
		Short: "Invoke a function through the reference backends",
		Long: `Invoke a function of a schema.

Arguments are checked against the contract, a variant is resolved
(--variant, then overrides, then the default), the variant's client
produces the output, and the output is checked against the contract.

Every call, failed or not, is recorded. With --db (or db_path in the
config) records are appended to a SQLite call log; see 'typefn log'.

Exit codes:
  0 - Call completed
  1 - Call failed (the error kind is reported)
  2 - Command error (bad schema, malformed --args, etc.)

Examples:
  typefn invoke ./schema Classify --args '{"msg":{"sender":"user","text":"hi"}}'
  typefn invoke ./schema Classify --variant b --db ./calls.db
  typefn invoke ./schema Greet --args '{"name":"Ada"}' --env USER_NAME=bob`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInvoke(opts, args[0], args[1], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Args, "args", "{}", "function arguments as a JSON object")
	cmd.Flags().StringVar(&opts.Variant, "variant", "", "variant id (skips overrides and default)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 0, "per-call time bound (default from config)")
	cmd.Flags().StringVar(&opts.Database, "db", "", "SQLite call log (default from config)")
	cmd.Flags().StringSliceVar(&opts.Env, "env", nil, "backend environment entry KEY=value (repeatable)")
	cmd.Flags().StringSliceVar(&opts.Overrides, "override", nil, "client override Function=variant (repeatable)")

	return cmd
}

func runInvoke(opts *InvokeOptions, schemaPath, function string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	cfg := opts.config()
	logger := opts.logger()

	args, err := parseArgsJSON(opts.Args)
	if err != nil {
		_ = formatter.Error(ErrCodeInvalidArgs, err.Error(), nil)
		return WrapExitError(ExitCommandError, "invalid --args JSON", err)
	}

	overrides, err := cfg.Backend.OverrideMap()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config overrides", err)
	}
	flagOverrides, err := parsePairs("--override", opts.Overrides)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --override", err)
	}
	maps.Copy(overrides, flagOverrides)

	env, err := cfg.Backend.EnvMap()
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid config env", err)
	}
	flagEnv, err := parsePairs("--env", opts.Env)
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --env", err)
	}
	maps.Copy(env, flagEnv)

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = cfg.Timeout
	}
	dbPath := opts.Database
	if dbPath == "" {
		dbPath = cfg.DBPath
	}

	_, reg, err := loadRegistry(formatter, schemaPath)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	var sink runtime.Sink = runtime.NewMemorySink()
	clock := runtime.NewClock()
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open database", err)
		}
		defer st.Close()

		last, err := st.LastSeq(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read call log", err)
		}
		sink = st
		clock = runtime.NewClockAt(last)
		formatter.VerboseLog("Recording to %s (resuming after seq %d)", dbPath, last)
	}

	routerOpts := []backend.Option{backend.WithLogger(logger)}
	if cfg.Backend.DefaultClient != "" {
		routerOpts = append(routerOpts, backend.WithDefaultClient(cfg.Backend.DefaultClient))
	}

	rt := runtime.New(reg, backend.NewRouter(routerOpts...),
		runtime.WithSink(sink),
		runtime.WithLogger(logger),
		runtime.WithClock(clock),
		runtime.WithDefaultTimeout(timeout),
		runtime.WithClientOverrides(overrides),
		runtime.WithClientEnv(env),
	)

	var callOpts []runtime.CallOption
	if opts.Variant != "" {
		callOpts = append(callOpts, runtime.WithVariant(opts.Variant))
	}

	logger.Debug("invoking",
		zap.String("function", function),
		zap.String("variant", opts.Variant),
		zap.Duration("timeout", timeout),
	)
	out, callErr := rt.Invoke(ctx, function, args, callOpts...)
	result := newInvokeResult(out)

	if callErr != nil {
		return outputInvokeFailure(formatter, result)
	}
	return outputInvokeSuccess(formatter, result)
}

// ErrCodeInvalidArgs reports --args that are not a JSON object.
const ErrCodeInvalidArgs = "INVALID_ARGS"

// parseArgsJSON decodes s into an argument object.
func parseArgsJSON(s string) (ir.IRObject, error) {
	v, err := ir.UnmarshalIRValue([]byte(s))
	if err != nil {
		return nil, errors.Wrap(err, "decode --args")
	}
	obj, ok := v.(ir.IRObject)
	if !ok {
		return nil, errors.Newf("--args must be a JSON object, got %s", ir.TypeName(v))
	}
	return obj, nil
}

// parsePairs parses repeated NAME=value flag entries.
func parsePairs(flag string, entries []string) (map[string]string, error) {
	m := make(map[string]string, len(entries))
	for _, e := range entries {
		k, v, ok := strings.Cut(e, "=")
		if !ok || k == "" {
			return nil, errors.WithHintf(
				errors.Newf("%s: malformed entry %q", flag, e),
				"entries look like NAME=value",
			)
		}
		m[k] = v
	}
	return m, nil
}

func newInvokeResult(out *runtime.Outcome) InvokeResult {
	result := InvokeResult{
		Function: out.Function,
		Variant:  out.Variant,
		Source:   string(out.Source),
		Outcome:  out.Record.Outcome,
		Output:   out.Output,
		States:   out.States,
		Record:   out.Record,
	}
	if out.Err != nil {
		result.ErrorKind = string(out.ErrorKind())
		result.Error = out.Err.Error()
	}
	return result
}

func outputInvokeSuccess(formatter *OutputFormatter, result InvokeResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	output, err := ir.MarshalIRValue(result.Output)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render output", err)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ %s via %s (%s)\n", result.Function, result.Variant, result.Source)
	fmt.Fprintf(w, "%s\n", output)
	formatter.VerboseLog("States: %s", joinStates(result.States))
	formatter.VerboseLog("Record: %s seq=%d duration=%dus", result.Record.ID, result.Record.Seq, result.Record.DurationMicros)
	return nil
}

func outputInvokeFailure(formatter *OutputFormatter, result InvokeResult) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    result.ErrorKind,
				Message: result.Error,
			},
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}
	} else {
		w := formatter.Writer
		target := result.Function
		if result.Variant != "" {
			target += " via " + result.Variant
		}
		fmt.Fprintf(w, "✗ %s failed\n", target)
		fmt.Fprintf(w, "Error [%s]: %s\n", result.ErrorKind, result.Error)
		fmt.Fprintf(w, "States: %s\n", joinStates(result.States))
	}

	return NewExitError(ExitFailure, fmt.Sprintf("%s failed: %s", result.Function, result.ErrorKind))
}

func joinStates(states []runtime.State) string {
	parts := make([]string, len(states))
	for i, s := range states {
		parts[i] = string(s)
	}
	return strings.Join(parts, " -> ")
}
