package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/typefn/internal/compiler"
	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
)

// CompileOptions holds flags for the compile command.
type CompileOptions struct {
	*RootOptions
	Output string // output file path
}

// CompilationResult holds the compiled schema and its hash.
type CompilationResult struct {
	Schema ir.Schema `json:"schema"`
	Hash   string    `json:"hash"`
}

// CompilationStats holds summary statistics.
type CompilationStats struct {
	TypeCount     int
	FunctionCount int
	VariantCount  int
}

// NewCompileCommand creates the compile command.
func NewCompileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CompileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "compile <schema>",
		Short: "Compile a CUE schema to IR",
		Long: `Compile a CUE schema directory (or re-read a JSON IR file) to the
schema IR: types, function contracts and implementation variants.

The output is indented JSON that other typefn commands accept in place of
the CUE directory.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors - we handle our own error output
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path")

	return cmd
}

func runCompile(opts *CompileOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors, err := loadSchema(formatter, schemaPath, compiler.LoadModeCollectAll)
	if err != nil {
		return err
	}

	for _, def := range loadResult.Schema.Types {
		formatter.VerboseLog("Compiled %s: %s", def.Kind, def.Name)
	}
	for _, fn := range loadResult.Schema.Functions {
		formatter.VerboseLog("Compiled function: %s", fn.Name)
	}

	if len(loadErrors) > 0 {
		return outputCompileErrors(formatter, loadErrors)
	}

	hash, err := ir.SchemaHash(loadResult.Schema)
	if err != nil {
		return outputCompileError(formatter, compiler.ErrCodeGeneric, fmt.Sprintf("hashing schema: %v", err), nil)
	}
	result := &CompilationResult{Schema: loadResult.Schema, Hash: hash}

	if opts.Output != "" {
		if err := writeIRToFile(result.Schema, opts.Output); err != nil {
			return outputCompileError(formatter, compiler.ErrCodeWriteFailed, fmt.Sprintf("writing output file: %v", err), nil)
		}
	}

	return outputCompileSuccess(formatter, result, calculateStats(result.Schema), opts.Output)
}

// calculateStats computes summary statistics from a compiled schema.
func calculateStats(schema ir.Schema) CompilationStats {
	return CompilationStats{
		TypeCount:     len(schema.Types),
		FunctionCount: len(schema.Functions),
		VariantCount:  len(schema.Variants),
	}
}

// outputCompileSuccess outputs successful compilation results.
func outputCompileSuccess(formatter *OutputFormatter, result *CompilationResult, stats CompilationStats, outputFile string) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	w := formatter.Writer
	fmt.Fprintf(w, "✓ Compiled %d type(s), %d function(s), %d variant(s)\n\n",
		stats.TypeCount, stats.FunctionCount, stats.VariantCount)

	if len(result.Schema.Types) > 0 {
		fmt.Fprintln(w, "Types:")
		for _, def := range result.Schema.Types {
			switch def.Kind {
			case ir.DefEnum:
				fmt.Fprintf(w, "  %s: enum, %d value(s)\n", def.Name, len(def.Values))
			default:
				fmt.Fprintf(w, "  %s: record, %d field(s)\n", def.Name, len(def.Fields))
			}
		}
		fmt.Fprintln(w)
	}

	if len(result.Schema.Functions) > 0 {
		fmt.Fprintln(w, "Functions:")
		for _, fn := range result.Schema.Functions {
			fmt.Fprintf(w, "  %s\n", signature(fn))
		}
		fmt.Fprintln(w)
	}

	fmt.Fprintf(w, "Hash: %s\n", result.Hash)
	if outputFile != "" {
		fmt.Fprintf(w, "Wrote IR to %s\n", outputFile)
	}

	return nil
}

// outputCompileError outputs a single compilation error.
func outputCompileError(formatter *OutputFormatter, code, message string, details any) error {
	_ = formatter.Error(code, message, details)
	// Compilation errors are command-level errors (exit code 2)
	return WrapExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message), nil)
}

// outputCompileErrors outputs multiple compilation errors.
func outputCompileErrors(formatter *OutputFormatter, errs []error) error {
	if formatter.Format == "json" {
		cliErrors := make([]CLIError, len(errs))
		for i, err := range errs {
			code, message, _ := parseLoadError(err)
			cliErrors[i] = CLIError{
				Code:    code,
				Message: message,
			}
		}

		response := CLIResponse{
			Status: "error",
			Error:  &cliErrors[0],
			Data:   cliErrors, // Include all errors in data
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Compilation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		code, message, pos := parseLoadError(err)
		if pos.IsValid() {
			fmt.Fprintf(formatter.Writer, "%s:%d:%d\n", pos.Filename(), pos.Line(), pos.Column())
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s\n\n", code, message)
	}

	return NewExitError(ExitCommandError, fmt.Sprintf("compilation failed with %d error(s)", len(errs)))
}

// signature renders a contract as Name(param: type, ...) -> output.
func signature(fn ir.FunctionContract) string {
	s := fn.Name + "("
	for i, p := range fn.Params {
		if i > 0 {
			s += ", "
		}
		s += p.Name + ": " + p.Type.String()
	}
	return s + ") -> " + fn.Output.String()
}

// writeIRToFile writes the schema as indented JSON, loadable with
// compiler.LoadIR.
func writeIRToFile(schema ir.Schema, filename string) error {
	data, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshaling IR")
	}
	data = append(data, '\n')

	if err := os.WriteFile(filename, data, 0644); err != nil {
		return errors.Wrap(err, "writing file")
	}

	return nil
}
