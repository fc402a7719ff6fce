package cli

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/store"
)

// LogOptions holds flags for the log command.
type LogOptions struct {
	*RootOptions
	Database string
	Function string // optional - filter to one function
	Outcome  string // optional - completed | failed
	After    int64  // only records after this seq
	Limit    int
}

// LogResult holds the call log listing.
type LogResult struct {
	Records []ir.CallRecord `json:"records"`
	Counts  map[string]int  `json:"counts"`
}

// NewLogCommand creates the log command.
func NewLogCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LogOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Show recorded calls",
		Long: `Show the call records in a SQLite call log, ordered by seq.

Each record names the function, the resolved variant (empty when the
call failed before resolution), the outcome and, for failures, the
error kind. Per-outcome counts follow the listing.

Examples:
  typefn log --db ./calls.db
  typefn log --db ./calls.db --function Classify --outcome failed
  typefn log --db ./calls.db --after 120 --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLog(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to SQLite call log (default from config)")
	cmd.Flags().StringVar(&opts.Function, "function", "", "filter to one function")
	cmd.Flags().StringVar(&opts.Outcome, "outcome", "", "filter by outcome (completed|failed)")
	cmd.Flags().Int64Var(&opts.After, "after", 0, "only records with seq greater than this")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of records (0 = all)")

	return cmd
}

func runLog(opts *LogOptions, cmd *cobra.Command) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	dbPath := opts.Database
	if dbPath == "" {
		dbPath = opts.config().DBPath
	}
	if dbPath == "" {
		return NewExitError(ExitCommandError, "no call log: pass --db or set db_path")
	}
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", dbPath))
	}
	if opts.Outcome != "" && !slices.Contains([]string{ir.OutcomeCompleted, ir.OutcomeFailed}, opts.Outcome) {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid outcome %q: must be %s or %s", opts.Outcome, ir.OutcomeCompleted, ir.OutcomeFailed))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	records, err := st.ReadCalls(ctx, store.Filter{
		Function: opts.Function,
		Outcome:  opts.Outcome,
		AfterSeq: opts.After,
		Limit:    opts.Limit,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read call records", err)
	}

	counts, err := st.Counts(ctx, opts.Function)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to count call records", err)
	}

	result := LogResult{Records: records, Counts: counts}

	if opts.Format == "json" {
		return writeJSON(cmd.OutOrStdout(), CLIResponse{Status: "ok", Data: result})
	}
	return outputLogText(cmd, dbPath, result, opts.Verbose)
}

// outputLogText outputs the call log as text.
func outputLogText(cmd *cobra.Command, dbPath string, result LogResult, verbose bool) error {
	w := cmd.OutOrStdout()

	fmt.Fprintf(w, "Call log: %s\n", dbPath)
	fmt.Fprintln(w)

	if len(result.Records) == 0 {
		fmt.Fprintln(w, "  (no records)")
	}
	for _, rec := range result.Records {
		fmt.Fprintf(w, "  %s\n", formatRecord(rec))
		if verbose {
			fmt.Fprintf(w, "       ID: %s\n", rec.ID)
			fmt.Fprintf(w, "       Started: %s\n", rec.StartedAt.UTC().Format(time.RFC3339Nano))
		}
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "Counts: %s\n", formatOutcomeCounts(result.Counts))
	return nil
}

// formatRecord renders a record on one line:
// [seq] Function/variant outcome KIND (duration).
func formatRecord(rec ir.CallRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%d] %s", rec.Seq, rec.Function)
	if rec.Variant != "" {
		b.WriteString("/" + rec.Variant)
	}
	b.WriteString(" " + rec.Outcome)
	if rec.ErrorKind != "" {
		b.WriteString(" " + rec.ErrorKind)
	}
	fmt.Fprintf(&b, " (%s)", time.Duration(rec.DurationMicros)*time.Microsecond)
	return b.String()
}

// formatOutcomeCounts renders counts with completed first.
func formatOutcomeCounts(counts map[string]int) string {
	return fmt.Sprintf("%s=%d %s=%d",
		ir.OutcomeCompleted, counts[ir.OutcomeCompleted],
		ir.OutcomeFailed, counts[ir.OutcomeFailed])
}
