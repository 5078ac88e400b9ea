package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/foxzi/inkwell/internal/export"
)

var (
	exportUser         string
	exportFormat       string
	exportOrganization string
	exportOutput       string
)

var exportCmd = &cobra.Command{
	Use:   "export <asset_id>...",
	Short: "Export assets to a file or zip archive",
	Long: `Export writes one asset as a single document. With several asset IDs
it writes a zip archive, arranged by --organization.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportUser, "user", "u", "", "Owner user ID (required)")
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", string(export.FormatHTML), "Export format (html, liquid, plain_text, json)")
	exportCmd.Flags().StringVar(&exportOrganization, "organization", string(export.OrganizeFlat), "Archive layout (flat, by_audience, by_type)")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file or directory (default: current directory)")
	exportCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(exportCmd)
}

func runExport(cmd *cobra.Command, args []string) error {
	format, err := export.ParseFormat(exportFormat)
	if err != nil {
		return err
	}
	org, err := export.ParseOrganization(exportOrganization)
	if err != nil {
		return err
	}

	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	ctx := context.Background()

	if len(args) == 1 {
		file, err := application.Exporter().Export(ctx, exportUser, args[0], format)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}

		path := outputPath(file.Filename)
		if err := os.WriteFile(path, file.Content, 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		fmt.Printf("Exported %s (%d bytes)\n", path, len(file.Content))
		return nil
	}

	path := outputPath("inkwell-export.zip")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create archive: %w", err)
	}

	n, err := application.Exporter().BulkExport(ctx, exportUser, args, format, org, f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return fmt.Errorf("export failed: %w", err)
	}

	fmt.Printf("Exported %d assets to %s\n", n, path)
	return nil
}

// outputPath resolves --output against a default file name
func outputPath(name string) string {
	if exportOutput == "" {
		return name
	}
	if info, err := os.Stat(exportOutput); err == nil && info.IsDir() {
		return filepath.Join(exportOutput, name)
	}
	return exportOutput
}
