package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var ignoreCmd = &cobra.Command{
	Use:   "ignore",
	Short: "Manage the ignore list",
	Long: `Manage paths excluded from discovery. Ignoring a path also removes
its existing catalog entry; the watchers will not re-add it.

Examples:
  curio ignore add "C:\Games\launcher.exe"
  curio ignore remove "C:\Games\launcher.exe"
  curio ignore list`,
}

var ignoreAddCmd = &cobra.Command{
	Use:   "add <path>",
	Short: "Ignore a path",
	Args:  cobra.ExactArgs(1),
	RunE:  runIgnoreAdd,
}

var ignoreRemoveCmd = &cobra.Command{
	Use:   "remove <path>",
	Short: "Stop ignoring a path",
	Args:  cobra.ExactArgs(1),
	RunE:  runIgnoreRemove,
}

var ignoreListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show ignored paths",
	RunE:  runIgnoreList,
}

func init() {
	rootCmd.AddCommand(ignoreCmd)
	ignoreCmd.AddCommand(ignoreAddCmd)
	ignoreCmd.AddCommand(ignoreRemoveCmd)
	ignoreCmd.AddCommand(ignoreListCmd)
}

func runIgnoreAdd(cmd *cobra.Command, args []string) error {
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

	if err := store.AddIgnoredPath(args[0]); err != nil {
		return fmt.Errorf("ignore: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Ignoring %s\n", args[0])
	return nil
}

func runIgnoreRemove(cmd *cobra.Command, args []string) error {
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

	if err := store.RemoveIgnoredPath(args[0]); err != nil {
		return fmt.Errorf("unignore: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "No longer ignoring %s\n", args[0])
	return nil
}

func runIgnoreList(cmd *cobra.Command, args []string) error {
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

	paths, err := store.ListIgnoredPaths()
	if err != nil {
		return fmt.Errorf("list ignored: %w", err)
	}

	if len(paths) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%sNo ignored paths.%s\n", colorGray, colorReset)
		return nil
	}
	for _, path := range paths {
		fmt.Fprintln(cmd.OutOrStdout(), path)
	}
	return nil
}
