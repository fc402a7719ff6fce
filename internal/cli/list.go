package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/typefn/internal/backend"
	"github.com/roach88/typefn/internal/ir"
	"github.com/roach88/typefn/internal/runtime"
)

// FunctionListing is one function with its variants.
type FunctionListing struct {
	Name      string           `json:"name"`
	Signature string           `json:"signature"`
	Variants  []VariantListing `json:"variants"`
}

// VariantListing is one registered variant. Default marks the variant an
// unqualified call resolves to, flagged or implicit.
type VariantListing struct {
	ID      string `json:"id"`
	Client  string `json:"client,omitempty"`
	Default bool   `json:"default,omitempty"`
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <schema>",
		Short: "List functions and their variants",
		Long: `List every function of a schema in definition order, with its
variants in registration order. The variant an unqualified call resolves
to is marked default.

Example:
  typefn list ./schema`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runList(rootOpts, args[0], cmd)
		},
	}

	return cmd
}

func runList(opts *RootOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	_, reg, err := loadRegistry(formatter, schemaPath)
	if err != nil {
		return err
	}
	rt := runtime.New(reg, nil, runtime.WithLogger(opts.logger()))

	listings := []FunctionListing{}
	for _, name := range rt.ListFunctions() {
		c, err := reg.Contracts.Get(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read contract", err)
		}
		ids, err := rt.ListVariants(name)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list variants", err)
		}

		defaultID := ""
		if def, err := reg.Impls.Default(name); err == nil {
			defaultID = def.ID
		}

		listing := FunctionListing{Name: name, Signature: signature(c), Variants: []VariantListing{}}
		for _, id := range ids {
			v, err := reg.Impls.GetVariant(name, id)
			if err != nil {
				return WrapExitError(ExitCommandError, "failed to read variant", err)
			}
			client := ""
			if s, ok := v.Config[backend.ClientKey].(ir.IRString); ok {
				client = string(s)
			}
			listing.Variants = append(listing.Variants, VariantListing{
				ID:      id,
				Client:  client,
				Default: id == defaultID,
			})
		}
		listings = append(listings, listing)
	}

	if formatter.Format == "json" {
		return formatter.Success(listings)
	}

	w := formatter.Writer
	if len(listings) == 0 {
		fmt.Fprintln(w, "No functions defined.")
		return nil
	}
	for _, l := range listings {
		fmt.Fprintln(w, l.Signature)
		if len(l.Variants) == 0 {
			fmt.Fprintln(w, "  (no variants)")
		}
		for _, v := range l.Variants {
			line := "  " + v.ID
			if v.Client != "" {
				line += " [" + v.Client + "]"
			}
			if v.Default {
				line += " (default)"
			}
			fmt.Fprintln(w, line)
		}
	}
	return nil
}
