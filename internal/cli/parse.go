package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Materials-Consortia/optimade-go/internal/filter"
)

// ParseOptions holds flags for the parse command.
type ParseOptions struct {
	*RootOptions
	FilterVersion string
}

// NewParseCommand creates the parse command.
func NewParseCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ParseOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "parse <filter>",
		Short: "Parse a filter string and print its syntax tree",
		Long: `Parse a filter string against a grammar version and print the resulting
syntax tree. No schema is consulted; unknown properties pass. Use this to
check whether a filter is well-formed before it reaches a backend.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.FilterVersion, "filter-version", string(filter.Latest),
		"grammar version to parse against")

	return cmd
}

func runParse(opts *ParseOptions, input string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	tree, err := filter.Parse(input, filter.Version(opts.FilterVersion))
	if err != nil {
		return reportFilterError(formatter, err)
	}

	if formatter.Format == "json" {
		return formatter.Success(tree)
	}

	fmt.Fprintf(formatter.Writer, "✓ valid (%s)\n", opts.FilterVersion)
	return nil
}

// reportFilterError prints a pipeline error and converts it to the right
// exit code: rejected filters exit 1, deployment problems exit 2.
func reportFilterError(formatter *OutputFormatter, err error) error {
	var serr *filter.SyntaxError
	if errors.As(err, &serr) {
		details := map[string]any{"line": serr.Line, "column": serr.Column}
		if serr.Fragment != "" {
			details["fragment"] = serr.Fragment
		}
		_ = formatter.Error("SYNTAX_ERROR", serr.Message, details)
		return WrapExitError(ExitFailure, "filter rejected", err)
	}
	if errors.Is(err, filter.ErrUnknownVersion) {
		_ = formatter.Error("UNKNOWN_VERSION", err.Error(), nil)
		return WrapExitError(ExitCommandError, "unknown grammar version", err)
	}
	_ = formatter.Error("PARSE_ERROR", err.Error(), nil)
	return WrapExitError(ExitFailure, "filter rejected", err)
}
