package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"
	"github.com/spf13/cobra"

	"github.com/adalundhe/curio/core/catalog"
)

var (
	exportFormat string
	exportType   string
	exportOutput string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the catalog to a file",
	Long: `Export cataloged resources as Parquet or JSON Lines for analysis in
external tools.

Examples:
  curio export -o catalog.parquet
  curio export --format jsonl -o catalog.jsonl
  curio export --type game -o games.parquet`,
	RunE: runExport,
}

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVar(&exportFormat, "format", "", "Output format: parquet or jsonl (default: from file extension)")
	exportCmd.Flags().StringVarP(&exportType, "type", "t", "", "Filter by resource type")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "catalog.parquet", "Output file")
}

func runExport(cmd *cobra.Command, args []string) error {
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

	resources, err := store.List(exportType)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}

	format := exportFormat
	if format == "" {
		format = formatFromExtension(exportOutput)
	}

	switch format {
	case "parquet":
		err = exportParquet(exportOutput, resources)
	case "jsonl":
		err = exportJSONL(exportOutput, resources)
	default:
		return fmt.Errorf("unknown format %q (want parquet or jsonl)", format)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Exported %d resource(s) to %s\n", len(resources), exportOutput)
	return nil
}

func formatFromExtension(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jsonl", ".ndjson":
		return "jsonl"
	default:
		return "parquet"
	}
}

func exportParquet(path string, resources []*catalog.Resource) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	writer := parquet.NewGenericWriter[catalog.Resource](f)
	for _, r := range resources {
		if _, err := writer.Write([]catalog.Resource{*r}); err != nil {
			return fmt.Errorf("write parquet: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close parquet: %w", err)
	}
	return f.Close()
}

func exportJSONL(path string, resources []*catalog.Resource) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	encoder := json.NewEncoder(f)
	for _, r := range resources {
		if err := encoder.Encode(r); err != nil {
			return fmt.Errorf("write jsonl: %w", err)
		}
	}
	return f.Close()
}
