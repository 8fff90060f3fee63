package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/adalundhe/curio/core/catalog"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage resource tags",
	Long: `Manage tags on cataloged resources. Resources are addressed by their
path; tags are created on first use.

Examples:
  curio tag add "C:\Games\rogue.exe" roguelike
  curio tag remove "C:\Games\rogue.exe" roguelike
  curio tag list`,
}

var tagAddCmd = &cobra.Command{
	Use:   "add <path> <tag>",
	Short: "Tag a resource",
	Args:  cobra.ExactArgs(2),
	RunE:  runTagAdd,
}

var tagRemoveCmd = &cobra.Command{
	Use:   "remove <path> <tag>",
	Short: "Untag a resource",
	Args:  cobra.ExactArgs(2),
	RunE:  runTagRemove,
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show all tags",
	RunE:  runTagList,
}

func init() {
	rootCmd.AddCommand(tagCmd)
	tagCmd.AddCommand(tagAddCmd)
	tagCmd.AddCommand(tagRemoveCmd)
	tagCmd.AddCommand(tagListCmd)
}

func runTagAdd(cmd *cobra.Command, args []string) error {
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

	resource, err := store.GetByPath(args[0])
	if err != nil {
		return fmt.Errorf("resource %s: %w", args[0], err)
	}

	tag, err := store.CreateTag(args[1])
	if err != nil {
		return err
	}
	if err := store.TagResource(resource.ID, tag.ID, catalog.TagSourceManual); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Tagged %s with %q\n", resource.Title, tag.Name)
	return nil
}

func runTagRemove(cmd *cobra.Command, args []string) error {
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

	resource, err := store.GetByPath(args[0])
	if err != nil {
		return fmt.Errorf("resource %s: %w", args[0], err)
	}

	tag, err := store.CreateTag(args[1])
	if err != nil {
		return err
	}
	if err := store.UntagResource(resource.ID, tag.ID); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Removed %q from %s\n", tag.Name, resource.Title)
	return nil
}

func runTagList(cmd *cobra.Command, args []string) error {
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

	tags, err := store.ListTags()
	if err != nil {
		return err
	}

	if len(tags) == 0 {
		fmt.Fprintf(cmd.OutOrStdout(), "%sNo tags.%s\n", colorGray, colorReset)
		return nil
	}
	for _, tag := range tags {
		fmt.Fprintln(cmd.OutOrStdout(), tag.Name)
	}
	return nil
}
