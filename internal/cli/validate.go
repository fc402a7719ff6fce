package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/typefn/internal/compiler"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid  bool                       `json:"valid"`
	Errors []compiler.ValidationError `json:"errors,omitempty"`
	Cycles []compiler.CycleWarning    `json:"cycles,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <schema>",
		Short: "Validate a schema and report every problem",
		Long: `Validate a schema without writing output.

Compiles every declaration, checks names and type references, then
builds the registries so recursion and variant config problems are
reported too. All errors are listed, not just the first.

Recursive type groups that are legal are reported as information.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true, // Don't print usage on errors
		SilenceErrors: true, // Don't print errors - we handle our own error output
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loadResult, loadErrors, err := loadSchema(formatter, schemaPath, compiler.LoadModeCollectAll)
	if err != nil {
		return err
	}

	var validationErrors []compiler.ValidationError
	for _, err := range loadErrors {
		code, message, pos := parseLoadError(err)
		line := 0
		if pos.IsValid() {
			line = pos.Line()
		}
		validationErrors = append(validationErrors, compiler.ValidationError{
			Field:   "load",
			Message: message,
			Code:    code,
			Line:    line,
		})
	}

	// Declarations that failed to compile are missing from the schema, so
	// checking it would only report follow-on errors.
	if len(validationErrors) == 0 {
		validationErrors = compiler.Validate(loadResult.Schema)
	}

	if len(validationErrors) > 0 {
		return outputValidationErrors(formatter, validationErrors)
	}

	cycles := compiler.AnalyzeCycles(loadResult.Schema)
	for _, c := range cycles {
		formatter.VerboseLog("Recursive types: %s", strings.Join(c.Path, " -> "))
	}

	return outputValidateSuccess(formatter, ValidationResult{Valid: true, Cycles: cycles})
}

// outputValidateSuccess outputs successful validation results.
func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintln(formatter.Writer, "✓ Schema valid")
	for _, c := range result.Cycles {
		fmt.Fprintf(formatter.Writer, "  %s: %s\n", c.Level, c.Message)
	}
	return nil
}

// outputValidationErrors outputs multiple validation errors.
func outputValidationErrors(formatter *OutputFormatter, errs []compiler.ValidationError) error {
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data: ValidationResult{
				Valid:  false,
				Errors: errs,
			},
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		if err := writeJSON(formatter.Writer, response); err != nil {
			return err
		}

		// Validation failures = exit code 1 (test/validation failure)
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)

	for _, err := range errs {
		if err.Line > 0 {
			fmt.Fprintf(formatter.Writer, "line %d\n", err.Line)
		}
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n\n", err.Code, err.Field, err.Message)
	}

	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
