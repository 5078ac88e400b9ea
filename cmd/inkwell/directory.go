package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var directoryCmd = &cobra.Command{
	Use:   "directory",
	Short: "Campaign directory commands",
}

var directoryImportCmd = &cobra.Command{
	Use:   "import <seed.yaml>",
	Short: "Import brands, campaigns, audiences and content from a YAML file",
	Args:  cobra.ExactArgs(1),
	RunE:  runDirectoryImport,
}

var directoryRemoveCmd = &cobra.Command{
	Use:   "remove-campaign <campaign_id>",
	Short: "Remove a campaign with its audiences, content and assets",
	Args:  cobra.ExactArgs(1),
	RunE:  runDirectoryRemove,
}

func init() {
	directoryCmd.AddCommand(directoryImportCmd, directoryRemoveCmd)
	rootCmd.AddCommand(directoryCmd)
}

func runDirectoryImport(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	stats, err := application.Directory().ImportFile(context.Background(), args[0])
	if err != nil {
		return fmt.Errorf("import failed: %w", err)
	}

	fmt.Printf("Imported %s\n", args[0])
	fmt.Printf("  Brands:    %d\n", stats.Brands)
	fmt.Printf("  Campaigns: %d\n", stats.Campaigns)
	fmt.Printf("  Audiences: %d\n", stats.Audiences)
	fmt.Printf("  Content:   %d\n", stats.Content)
	return nil
}

func runDirectoryRemove(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	n, err := application.Directory().RemoveCampaign(context.Background(), args[0], application.Assets())
	if err != nil {
		return fmt.Errorf("failed to remove campaign: %w", err)
	}

	fmt.Printf("Campaign %s removed (%d assets deleted)\n", args[0], n)
	return nil
}
