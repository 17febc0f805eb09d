package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Materials-Consortia/optimade-go/internal/clause"
	"github.com/Materials-Consortia/optimade-go/internal/collection"
	"github.com/Materials-Consortia/optimade-go/internal/config"
	"github.com/Materials-Consortia/optimade-go/internal/filter"
)

// QueryOptions holds flags for the query command.
type QueryOptions struct {
	*RootOptions
	Config        string
	DB            string
	EntryType     string
	FilterVersion string
	Limit         int64
	Offset        int64
}

// QueryResult is the success payload of the query command.
type QueryResult struct {
	EntryType string           `json:"entry_type"`
	Filter    string           `json:"filter"`
	Count     int              `json:"count"`
	Entries   []map[string]any `json:"entries"`
}

// NewQueryCommand creates the query command.
func NewQueryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &QueryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "query [filter]",
		Short: "Run a filter against the local entry collection",
		Long: `Run the full pipeline against the SQLite entry collection: parse the
filter, transform it for the entry type's schema, compile to SQL and
execute. Without a filter argument every entry is returned. Results are
ordered deterministically by id.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			input := ""
			if len(args) == 1 {
				input = args[0]
			}
			return runQuery(opts, input, cmd)
		},
	}

	cmd.Flags().StringVarP(&opts.Config, "config", "c", "", "path to YAML config (required)")
	cmd.Flags().StringVar(&opts.DB, "db", "", "path to SQLite database (defaults to the config's database.path)")
	cmd.Flags().StringVar(&opts.EntryType, "entry-type", "structures", "entry type to query")
	cmd.Flags().StringVar(&opts.FilterVersion, "filter-version", string(filter.Latest),
		"grammar version to parse against")
	cmd.Flags().Int64Var(&opts.Limit, "limit", 0, "maximum number of entries (0 = no limit)")
	cmd.Flags().Int64Var(&opts.Offset, "offset", 0, "number of entries to skip")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func runQuery(opts *QueryOptions, input string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}

	registry, file, err := config.Registry(opts.Config)
	if err != nil {
		return reportConfigError(formatter, err)
	}

	dbPath := opts.DB
	if dbPath == "" {
		dbPath = file.Database.Path
	}
	if dbPath == "" {
		_ = formatter.Error("NO_DATABASE", "no database path given (--db or database.path in config)", nil)
		return NewExitError(ExitCommandError, "no database path")
	}

	coll, err := collection.Open(dbPath, registry)
	if err != nil {
		_ = formatter.Error("DB_OPEN", err.Error(), map[string]any{"path": dbPath})
		return WrapExitError(ExitCommandError, "database open failed", err)
	}
	defer coll.Close()

	formatter.VerboseLog("querying %s in %s", opts.EntryType, dbPath)

	entries, err := coll.Find(cmd.Context(), opts.EntryType, input, collection.FindOptions{
		Version: filter.Version(opts.FilterVersion),
		Limit:   opts.Limit,
		Offset:  opts.Offset,
	})
	if err != nil {
		if ferr := reportFilterOrTransform(formatter, err); ferr != nil {
			return ferr
		}
		_ = formatter.Error("QUERY_ERROR", err.Error(), nil)
		return WrapExitError(ExitCommandError, "query failed", err)
	}

	result := &QueryResult{
		EntryType: opts.EntryType,
		Filter:    input,
		Count:     len(entries),
		Entries:   entries,
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "%d entr%s\n", result.Count, plural(result.Count, "y", "ies"))
	for _, e := range entries {
		fmt.Fprintf(formatter.Writer, "  %v\n", e["id"])
	}
	return nil
}

// reportFilterOrTransform handles the user-facing half of the error
// taxonomy; it returns nil for errors that are not filter problems so the
// caller can report them as command errors.
func reportFilterOrTransform(formatter *OutputFormatter, err error) error {
	if filter.IsSyntaxError(err) {
		return reportFilterError(formatter, err)
	}
	var te *clause.Error
	if errors.As(err, &te) {
		return reportTransformError(formatter, err)
	}
	return nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}
