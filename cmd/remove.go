package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var removeIgnore bool

var removeCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Remove a resource from the catalog",
	Long: `Remove a resource by its canonical path. Without --ignore the watchers
may rediscover and re-add it.

Examples:
  curio remove "C:\Games\rogue.exe"
  curio remove "C:\Games\rogue.exe" --ignore`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
	removeCmd.Flags().BoolVar(&removeIgnore, "ignore", false, "Also add the path to the ignore list")
}

func runRemove(cmd *cobra.Command, args []string) error {
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

	if removeIgnore {
		// Ignoring removes the row as part of the same operation.
		if err := store.AddIgnoredPath(args[0]); err != nil {
			return fmt.Errorf("ignore: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Removed and ignoring %s\n", args[0])
		return nil
	}

	if err := store.RemoveByPath(args[0]); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
	return nil
}
