package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/typefn/internal/render"
)

// GenerateOptions holds flags for the generate command.
type GenerateOptions struct {
	*RootOptions
	Lang     string
	Output   string
	Package  string
	Comments bool
}

// GenerateResult describes generated source.
type GenerateResult struct {
	Language string `json:"language"`
	File     string `json:"file,omitempty"`
	Bytes    int    `json:"bytes"`
	Source   string `json:"source,omitempty"` // set when no file was written
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &GenerateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "generate <schema>",
		Short: "Generate client type declarations",
		Long: `Generate type declarations for a schema: one enum or struct per named
type, plus argument and result types for each function.

The schema is built first, so generated code only describes schemas
that load cleanly.

Examples:
  typefn generate ./schema --lang go --package chat -o chat/types.go
  typefn generate ./schema --lang ts > types.ts`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerate(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Lang, "lang", "go", "target language ("+strings.Join(render.Languages(), "|")+")")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "", "output file path (default stdout)")
	cmd.Flags().StringVar(&opts.Package, "package", render.DefaultPackageName, "Go package name")
	cmd.Flags().BoolVar(&opts.Comments, "comments", true, "emit schema descriptions as doc comments")

	return cmd
}

func runGenerate(opts *GenerateOptions, schemaPath string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	renderer, err := render.New(opts.Lang, render.Options{
		PackageName:     opts.Package,
		IncludeComments: opts.Comments,
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "invalid --lang", err)
	}

	loaded, _, err := loadRegistry(formatter, schemaPath)
	if err != nil {
		return err
	}

	src, err := renderer.Render(loaded.Schema)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render", err)
	}
	formatter.VerboseLog("Rendered %d byte(s) of %s", len(src), renderer.Language())

	result := GenerateResult{Language: renderer.Language(), Bytes: len(src)}
	if opts.Output != "" {
		if err := os.WriteFile(opts.Output, src, 0644); err != nil {
			return WrapExitError(ExitCommandError, "failed to write output", err)
		}
		result.File = opts.Output
	}

	if formatter.Format == "json" {
		if result.File == "" {
			result.Source = string(src)
		}
		return formatter.Success(result)
	}

	if result.File == "" {
		_, err := formatter.Writer.Write(src)
		return err
	}
	fmt.Fprintf(formatter.Writer, "✓ Wrote %s (%s, %d bytes)\n", result.File, result.Language, result.Bytes)
	return nil
}
