package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/adalundhe/curio/core/ingest"
	"github.com/adalundhe/curio/core/scan"
	"github.com/adalundhe/curio/core/shortcut"
)

var (
	scanFolders []string
	scanJSON    bool
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Sweep shortcut folders into the catalog",
	Long: `Sweep the configured shortcut folders and OS autostart registrations,
ingesting every recognizable resource. Re-running is harmless: already
cataloged resources are left untouched.

Examples:
  curio scan
  curio scan --folder ~/Games --folder ~/Downloads
  curio scan --json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringSliceVarP(&scanFolders, "folder", "f", nil, "Folders to sweep (default: configured scan folders)")
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Output as JSON")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	store, err := openCatalog(cfg)
	if err != nil {
		return fmt.Errorf("open catalog: %w", err)
	}
	defer store.Close()

	folders := scanFolders
	if len(folders) == 0 {
		folders = cfg.Scan.Folders
	}

	pipeline := ingest.NewPipeline(store, shortcut.NewPlatformResolver(), nil, logger)
	scanner := scan.New(pipeline, logger)

	report, err := scanner.Run(cmd.Context(), folders)
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	if scanJSON {
		return outputJSON(cmd.OutOrStdout(), report)
	}
	return outputScanReport(cmd.OutOrStdout(), report)
}

func outputScanReport(w io.Writer, report scan.Report) error {
	fmt.Fprintf(w, "%s%sScan Complete%s\n", colorBold, colorCyan, colorReset)
	fmt.Fprintf(w, "%sScanned:%s  %d\n", colorGray, colorReset, report.Scanned)
	fmt.Fprintf(w, "%sIngested:%s %s%d%s\n", colorGray, colorReset, colorGreen, report.Ingested, colorReset)
	if report.Failed > 0 {
		fmt.Fprintf(w, "%sFailed:%s   %s%d%s\n", colorGray, colorReset, colorYellow, report.Failed, colorReset)
	}
	return nil
}
