package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Materials-Consortia/optimade-go/internal/config"
)

// CheckConfigResult is the success payload of the check-config command.
type CheckConfigResult struct {
	Path       string             `json:"path"`
	Provider   string             `json:"provider,omitempty"`
	EntryTypes []EntryTypeSummary `json:"entry_types"`
}

// EntryTypeSummary summarizes one configured entry type.
type EntryTypeSummary struct {
	Name       string `json:"name"`
	Quantities int    `json:"quantities"`
	ZipGroups  int    `json:"zip_groups"`
}

// NewCheckConfigCommand creates the check-config command.
func NewCheckConfigCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "check-config <path>",
		Short: "Validate a configuration file",
		Long: `Load a YAML configuration, validate it against the schema and build the
mapper registry. Reports every entry type that would be served.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheckConfig(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runCheckConfig(rootOpts *RootOptions, path string, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    rootOpts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   rootOpts.Verbose,
	}

	registry, file, err := config.Registry(path)
	if err != nil {
		return reportConfigError(formatter, err)
	}

	result := &CheckConfigResult{Path: path, Provider: file.Provider.Prefix}
	for _, entryType := range registry.EntryTypes() {
		m, _ := registry.For(entryType)
		result.EntryTypes = append(result.EntryTypes, EntryTypeSummary{
			Name:       entryType,
			Quantities: len(m.Quantities()),
			ZipGroups:  len(file.Entries[entryType].Correlated),
		})
	}

	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ %s is valid\n\n", path)
	for _, e := range result.EntryTypes {
		fmt.Fprintf(formatter.Writer, "  %s: %d quantit%s, %d zip group(s)\n",
			e.Name, e.Quantities, plural(e.Quantities, "y", "ies"), e.ZipGroups)
	}
	return nil
}
