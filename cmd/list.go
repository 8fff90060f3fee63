package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listType string
	listJSON bool
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List cataloged resources",
	Long: `List all cataloged resources, newest first.

Examples:
  curio list
  curio list --type game
  curio list --json`,
	RunE: runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().StringVarP(&listType, "type", "t", "", "Filter by resource type")
	listCmd.Flags().BoolVar(&listJSON, "json", false, "Output as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
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

	resources, err := store.List(listType)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	if listJSON {
		return outputJSON(cmd.OutOrStdout(), resources)
	}
	return outputResources(cmd.OutOrStdout(), resources)
}
