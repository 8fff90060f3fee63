package cmd

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adalundhe/curio/core/catalog"
)

var (
	searchType string
	searchJSON bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Full-text search over the catalog",
	Long: `Search cataloged resources by title and path. Queries match as
prefixes, so partial words find their completions.

Examples:
  curio search chrome
  curio search "dark souls" --type game
  curio search report --json`,
	Args: cobra.MinimumNArgs(1),
	RunE: runSearch,
}

func init() {
	rootCmd.AddCommand(searchCmd)
	searchCmd.Flags().StringVarP(&searchType, "type", "t", "", "Filter by resource type")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Output as JSON")
}

func runSearch(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	setupLogger(cfg)

	store, err := openCatalog(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	results, err := store.Search(strings.Join(args, " "), searchType)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}

	if searchJSON {
		return outputJSON(cmd.OutOrStdout(), results)
	}
	return outputResources(cmd.OutOrStdout(), results)
}

// outputResources prints a resource table shared by search and list.
func outputResources(w io.Writer, resources []*catalog.Resource) error {
	if len(resources) == 0 {
		fmt.Fprintf(w, "%sNo resources found.%s\n", colorGray, colorReset)
		return nil
	}

	for _, r := range resources {
		title := r.Title
		if r.Pinned {
			title = "* " + title
		}
		fmt.Fprintf(w, "%s%s%s  %s[%s]%s\n", colorBold, title, colorReset, colorCyan, r.Type, colorReset)
		fmt.Fprintf(w, "  %s%s%s\n", colorGray, r.Path, colorReset)
		if r.OpenCount > 0 {
			fmt.Fprintf(w, "  %sopened %d times, %s total%s\n",
				colorGray, r.OpenCount, formatRunTime(r.TotalRunTime), colorReset)
		}
	}
	fmt.Fprintf(w, "\n%s%d resource(s)%s\n", colorGray, len(resources), colorReset)
	return nil
}

func formatRunTime(seconds int64) string {
	if seconds < 60 {
		return fmt.Sprintf("%ds", seconds)
	}
	if seconds < 3600 {
		return fmt.Sprintf("%dm", seconds/60)
	}
	return fmt.Sprintf("%dh%dm", seconds/3600, (seconds%3600)/60)
}
