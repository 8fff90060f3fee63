package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	editTitle  string
	editRating int
	editNote   string
	editPin    bool
	editUnpin  bool
)

var editCmd = &cobra.Command{
	Use:   "edit <path>",
	Short: "Edit a resource's metadata",
	Long: `Edit user-editable fields of a cataloged resource, addressed by its
canonical path.

Examples:
  curio edit "C:\Games\rogue.exe" --rating 5
  curio edit "C:\Games\rogue.exe" --title "Rogue Legacy" --pin
  curio edit "C:\Games\rogue.exe" --note "finish NG+"`,
	Args: cobra.ExactArgs(1),
	RunE: runEdit,
}

func init() {
	rootCmd.AddCommand(editCmd)
	editCmd.Flags().StringVar(&editTitle, "title", "", "Set the title")
	editCmd.Flags().IntVar(&editRating, "rating", -1, "Set the rating (0-5)")
	editCmd.Flags().StringVar(&editNote, "note", "", "Set the note")
	editCmd.Flags().BoolVar(&editPin, "pin", false, "Pin the resource")
	editCmd.Flags().BoolVar(&editUnpin, "unpin", false, "Unpin the resource")
}

func runEdit(cmd *cobra.Command, args []string) error {
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

	fields := map[string]any{}
	if cmd.Flags().Changed("title") {
		fields["title"] = editTitle
	}
	if cmd.Flags().Changed("rating") {
		if editRating < 0 || editRating > 5 {
			return fmt.Errorf("rating %d out of range (0-5)", editRating)
		}
		fields["rating"] = editRating
	}
	if cmd.Flags().Changed("note") {
		fields["note"] = editNote
	}
	if editPin && editUnpin {
		return fmt.Errorf("--pin and --unpin are mutually exclusive")
	}
	if editPin {
		fields["pinned"] = true
	}
	if editUnpin {
		fields["pinned"] = false
	}

	if len(fields) == 0 {
		return fmt.Errorf("nothing to change; pass at least one flag")
	}

	updated, err := store.Update(resource.ID, fields)
	if err != nil {
		return fmt.Errorf("update: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Updated %s\n", updated.Title)
	return nil
}
