package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/femon07/codex-skill-updater/pkg/constants"
	"github.com/femon07/codex-skill-updater/pkg/errors"
	"github.com/femon07/codex-skill-updater/pkg/output"
	"github.com/femon07/codex-skill-updater/pkg/sourcemap"
)

var (
	sourcemapPathFlag      string
	sourcemapLocalPathFlag string
	sourcemapRepoFlag      string
	sourcemapSkillPathFlag string
	sourcemapRefFlag       string
)

var sourcemapCmd = &cobra.Command{
	Use:   "sourcemap",
	Short: "Manage skill source maps",
	Long: `Source maps name the upstream repository subtree of skills that carry no
installer metadata. The shareable map is overridden entry by entry by the
private local map. Maps are only consulted with --allow-manual-map.`,
}

var sourcemapTemplateCmd = &cobra.Command{
	Use:   "template",
	Short: "Print an example source map",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := sourcemap.Template()
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return err
	},
}

var sourcemapValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the shareable and local source maps",
	Args:  cobra.NoArgs,
	RunE:  runSourcemapValidate,
}

var sourcemapListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the merged source map",
	Args:  cobra.NoArgs,
	RunE:  runSourcemapList,
}

var sourcemapAddCmd = &cobra.Command{
	Use:   "add <skill>",
	Short: "Add or replace an entry in the local source map",
	Args:  cobra.ExactArgs(1),
	RunE:  runSourcemapAdd,
}

func init() {
	sourcemapCmd.PersistentFlags().StringVar(&sourcemapPathFlag, "source-map", "", "Shareable source map path")
	sourcemapCmd.PersistentFlags().StringVar(&sourcemapLocalPathFlag, "source-map-local", "", "Private override source map path")

	sourcemapAddCmd.Flags().StringVar(&sourcemapRepoFlag, "repo", "", "Repository as owner/name")
	sourcemapAddCmd.Flags().StringVar(&sourcemapSkillPathFlag, "path", "", "Skill directory inside the repository")
	sourcemapAddCmd.Flags().StringVar(&sourcemapRefFlag, "ref", constants.DefaultRef, "Branch, tag or commit")
	_ = sourcemapAddCmd.MarkFlagRequired("repo")
	_ = sourcemapAddCmd.MarkFlagRequired("path")

	sourcemapCmd.AddCommand(sourcemapTemplateCmd)
	sourcemapCmd.AddCommand(sourcemapValidateCmd)
	sourcemapCmd.AddCommand(sourcemapListCmd)
	sourcemapCmd.AddCommand(sourcemapAddCmd)
}

// sourcemapPaths returns the map paths from flags, falling back to settings.
func sourcemapPaths() (public, local string, err error) {
	s, err := loadSettings()
	if err != nil {
		return "", "", err
	}
	return firstNonEmpty(sourcemapPathFlag, s.SourceMap), firstNonEmpty(sourcemapLocalPathFlag, s.SourceMapLocal), nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// runSourcemapValidate validates both map files.
//
// Each file is checked on its own: a file-level error stops that file, while
// invalid entries are listed one per line.
//
// Returns:
//   - error: ExitConfigError when any file or entry is invalid
func runSourcemapValidate(cmd *cobra.Command, args []string) error {
	public, local, err := sourcemapPaths()
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	problems := validateLayer(w, public, true)
	problems += validateLayer(w, local, false)
	if problems > 0 {
		return errors.NewExitErrorf(errors.ExitConfigError, "source map validation failed: %d problem(s)", problems)
	}
	return nil
}

// validateLayer prints the result for one map file and returns its problem count.
func validateLayer(w io.Writer, path string, required bool) int {
	if path == "" {
		return 0
	}
	layer, err := sourcemap.LoadLayer(path, required)
	if err != nil {
		_, _ = fmt.Fprintf(w, "%s %v\n", constants.IconError, err)
		return 1
	}
	if layer == nil {
		_, _ = fmt.Fprintf(w, "%s %s: not present\n", constants.IconInfo, path)
		return 0
	}
	if len(layer.Invalid) == 0 {
		_, _ = fmt.Fprintf(w, "%s %s: %d entries\n", constants.IconSuccess, path, len(layer.Entries))
		return 0
	}
	_, _ = fmt.Fprintf(w, "%s %s: %d valid, %d invalid\n", constants.IconError, path, len(layer.Entries), len(layer.Invalid))
	m := sourcemap.Merge(layer)
	for _, verr := range m.Problems() {
		_, _ = fmt.Fprintf(w, "  - %v\n", verr)
	}
	return len(layer.Invalid)
}

// runSourcemapList prints the merged map with the origin of every entry.
func runSourcemapList(cmd *cobra.Command, args []string) error {
	public, local, err := sourcemapPaths()
	if err != nil {
		return err
	}
	m, err := sourcemap.Load(public, local)
	if err != nil {
		return errors.NewExitError(errors.ExitConfigError, err)
	}

	table := output.NewTable().AddColumn("NAME").AddColumn("REPO").AddColumn("PATH").AddColumn("REF").AddColumn("ORIGIN")
	rows := make([][]string, 0, len(m.Names()))
	for _, name := range m.Names() {
		entry, _, lookupErr := m.Lookup(name)
		row := []string{name, entry.Repo, entry.Path, entry.Ref, m.Origin(name)}
		if lookupErr != nil {
			row = []string{name, "(invalid)", constants.PlaceholderNA, constants.PlaceholderNA, m.Origin(name)}
		}
		for i := range row {
			if row[i] == "" {
				row[i] = constants.PlaceholderNA
			}
		}
		table.UpdateWidths(row...)
		rows = append(rows, row)
	}

	w := cmd.OutOrStdout()
	if len(rows) == 0 {
		_, _ = fmt.Fprintln(w, "No source map entries.")
		return nil
	}
	table.Fprint(w)
	for _, row := range rows {
		_, _ = fmt.Fprintln(w, table.FormatRow(row...))
	}
	return nil
}

// runSourcemapAdd writes one entry to the local map.
//
// Returns:
//   - error: ExitConfigError for an invalid entry (placeholders included)
func runSourcemapAdd(cmd *cobra.Command, args []string) error {
	_, local, err := sourcemapPaths()
	if err != nil {
		return err
	}
	if local == "" {
		return errors.NewExitErrorf(errors.ExitConfigError, "no local source map path configured")
	}

	entry := sourcemap.Entry{Repo: sourcemapRepoFlag, Path: sourcemapSkillPathFlag, Ref: sourcemapRefFlag}
	if err := sourcemap.AddLocal(local, args[0], entry); err != nil {
		if _, ok := errors.IsSourceMapValidationError(err); ok {
			return errors.NewExitError(errors.ExitConfigError, err)
		}
		return err
	}
	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s %s -> %s:%s@%s (%s)\n", constants.IconSuccess, args[0], entry.Repo, entry.Path, firstNonEmpty(entry.Ref, constants.DefaultRef), local)
	return nil
}
