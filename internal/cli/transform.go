package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/bson"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
	"github.com/Materials-Consortia/optimade-go/internal/config"
	"github.com/Materials-Consortia/optimade-go/internal/filter"
	"github.com/Materials-Consortia/optimade-go/internal/querymongo"
	"github.com/Materials-Consortia/optimade-go/internal/queryelastic"
	"github.com/Materials-Consortia/optimade-go/internal/querysql"
	"github.com/Materials-Consortia/optimade-go/internal/transform"
)

// ValidBackends defines the allowed --backend values.
var ValidBackends = []string{"none", "mongo", "elastic", "sql"}

// TransformOptions holds flags for the transform command.
type TransformOptions struct {
	*RootOptions
	Config        string
	EntryType     string
	Backend       string
	FilterVersion string
}

// TransformResult is the success payload of the transform command.
type TransformResult struct {
	EntryType string          `json:"entry_type"`
	Filter    string          `json:"filter"`
	Clause    string          `json:"clause"`
	Backend   string          `json:"backend,omitempty"`
	Query     json.RawMessage `json:"query,omitempty"`
	SQL       string          `json:"sql,omitempty"`
	Params    []any           `json:"params,omitempty"`
}

// NewTransformCommand creates the transform command.
func NewTransformCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TransformOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "transform <filter>",
		Short: "Transform a filter against a configured schema",
		Long: `Parse a filter string, resolve it against the configured schema for one
entry type, and print the normalized clause tree. With --backend, also
compile the clause tree to that backend's query form.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTransform(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to YAML config (required)")
	cmd.Flags().StringVar(&opts.EntryType, "entry-type", "structures", "entry type to resolve against")
	cmd.Flags().StringVar(&opts.Backend, "backend", "none", "also compile for a backend (none|mongo|elastic|sql)")
	cmd.Flags().StringVar(&opts.FilterVersion, "filter-version", string(filter.Latest),
		"grammar version to parse against")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runTransform(opts *TransformOptions, input string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	if !isValidBackend(opts.Backend) {
		_ = formatter.Error("BAD_BACKEND",
			fmt.Sprintf("invalid backend %q: must be one of %v", opts.Backend, ValidBackends), nil)
		return NewExitError(ExitCommandError, "invalid backend")
	}

	registry, _, err := config.Registry(opts.Config)
	if err != nil {
		return reportConfigError(formatter, err)
	}
	m, ok := registry.For(opts.EntryType)
	if !ok {
		_ = formatter.Error("UNKNOWN_ENTRY_TYPE",
			fmt.Sprintf("entry type %q is not configured (have %v)", opts.EntryType, registry.EntryTypes()), nil)
		return NewExitError(ExitCommandError, "unknown entry type")
	}

	tree, err := filter.Parse(input, filter.Version(opts.FilterVersion))
	if err != nil {
		return reportFilterError(formatter, err)
	}
	formatter.VerboseLog("parsed filter against grammar %s", opts.FilterVersion)

	cl, err := transform.New(m).Transform(tree)
	if err != nil {
		return reportTransformError(formatter, err)
	}

	result := &TransformResult{
		EntryType: opts.EntryType,
		Filter:    input,
		Clause:    renderClause(cl),
	}
	if opts.Backend != "none" {
		result.Backend = opts.Backend
		if err := compileForBackend(result, cl, opts.Backend); err != nil {
			return reportTransformError(formatter, err)
		}
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "clause: %s\n", result.Clause)
	if result.SQL != "" {
		fmt.Fprintf(formatter.Writer, "sql:    %s\n", result.SQL)
		fmt.Fprintf(formatter.Writer, "params: %v\n", result.Params)
	} else if result.Query != nil {
		fmt.Fprintf(formatter.Writer, "query:  %s\n", result.Query)
	}
	return nil
}

func compileForBackend(result *TransformResult, cl clause.Clause, backend string) error {
	switch backend {
	case "mongo":
		q, err := querymongo.Compile(cl)
		if err != nil {
			return err
		}
		raw, err := bson.MarshalExtJSON(q, false, false)
		if err != nil {
			return fmt.Errorf("encode query: %w", err)
		}
		result.Query = raw
	case "elastic":
		q, err := queryelastic.Compile(cl)
		if err != nil {
			return err
		}
		src, err := q.Source()
		if err != nil {
			return fmt.Errorf("build query body: %w", err)
		}
		raw, err := json.Marshal(src)
		if err != nil {
			return fmt.Errorf("encode query: %w", err)
		}
		result.Query = raw
	case "sql":
		sql, params, err := querysql.NewCompiler().Where(cl)
		if err != nil {
			return err
		}
		result.SQL = sql
		result.Params = params
	}
	return nil
}

// reportTransformError maps the error taxonomy onto exit codes: rejected
// filters exit 1, deployment defects (missing handlers) exit 2.
func reportTransformError(formatter *OutputFormatter, err error) error {
	var te *clause.Error
	if errors.As(err, &te) {
		details := map[string]any{}
		if te.Property != "" {
			details["property"] = te.Property
		}
		if te.Operator != "" {
			details["operator"] = te.Operator
		}
		_ = formatter.Error(string(te.Code), te.Message, details)
		if clause.IsUserError(err) {
			return WrapExitError(ExitFailure, "filter rejected", err)
		}
		return WrapExitError(ExitCommandError, "transform failed", err)
	}
	_ = formatter.Error("TRANSFORM_ERROR", err.Error(), nil)
	return WrapExitError(ExitCommandError, "transform failed", err)
}

func reportConfigError(formatter *OutputFormatter, err error) error {
	var le *config.LoadError
	if errors.As(err, &le) {
		_ = formatter.Error(le.Code, le.Message, map[string]any{"path": le.Path})
	} else {
		_ = formatter.Error("CONFIG_ERROR", err.Error(), nil)
	}
	return WrapExitError(ExitCommandError, "config error", err)
}

func isValidBackend(backend string) bool {
	for _, b := range ValidBackends {
		if b == backend {
			return true
		}
	}
	return false
}
