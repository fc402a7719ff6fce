package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/typefn/internal/contract"
	"github.com/roach88/typefn/internal/errors"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/runtime"
)

// NewDescribeCommand creates the describe command.
func NewDescribeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "describe <schema> <function>",
		Short: "Show a function contract with every type it uses",
		Long: `Describe one function: its parameters and output type, every named
type they reach (transitively), and the contract hash.

The hash changes only when the contract or a type it reaches changes.

Example:
  typefn describe ./schema Classify --format json`,
		Args:          cobra.ExactArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDescribe(rootOpts, args[0], args[1], cmd)
		},
	}

	return cmd
}

func runDescribe(opts *RootOptions, schemaPath, function string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	_, reg, err := loadRegistry(formatter, schemaPath)
	if err != nil {
		return err
	}
	rt := runtime.New(reg, nil, runtime.WithLogger(opts.logger()))

	desc, err := rt.DescribeContract(function)
	if err != nil {
		_ = formatter.Error(string(errors.KindOf(err)), err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to describe function", err)
	}

	if formatter.Format == "json" {
		return formatter.Success(desc)
	}
	writeDescription(formatter.Writer, desc)
	return nil
}

// writeDescription renders desc as text.
func writeDescription(w io.Writer, desc contract.Description) {
	fmt.Fprintf(w, "Function: %s\n", desc.Name)
	if desc.Description != "" {
		fmt.Fprintf(w, "  %s\n", desc.Description)
	}
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Params:")
	if len(desc.Params) == 0 {
		fmt.Fprintln(w, "  (none)")
	}
	for _, p := range desc.Params {
		fmt.Fprintf(w, "  %s: %s\n", p.Name, p.Type)
	}
	fmt.Fprintf(w, "Output: %s\n", desc.Output)

	if len(desc.Types) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Types:")
		for _, def := range desc.Types {
			writeTypeDef(w, def)
		}
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Hash: %s\n", desc.Hash)
}

func writeTypeDef(w io.Writer, def ir.TypeDef) {
	fmt.Fprintf(w, "  %s %s\n", def.Kind, def.Name)
	switch def.Kind {
	case ir.DefEnum:
		for _, v := range def.Values {
			if v.Alias != "" {
				fmt.Fprintf(w, "    %s (alias %q)\n", v.Name, v.Alias)
			} else {
				fmt.Fprintf(w, "    %s\n", v.Name)
			}
		}
	default:
		for _, f := range def.Fields {
			fmt.Fprintf(w, "    %s: %s\n", f.Name, f.Type)
		}
	}
}
