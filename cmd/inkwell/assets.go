package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/inkwell/internal/asset"
)

var assetsUser string

var assetsCmd = &cobra.Command{
	Use:   "assets",
	Short: "Email asset commands",
}

var assetsListCmd = &cobra.Command{
	Use:   "list <campaign_id>",
	Short: "List assets of a campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetsList,
}

var assetsShowCmd = &cobra.Command{
	Use:   "show <asset_id>",
	Short: "Show asset details",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetsShow,
}

var assetsDeleteCmd = &cobra.Command{
	Use:   "delete <campaign_id>",
	Short: "Delete all assets of a campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runAssetsDelete,
}

func init() {
	assetsCmd.PersistentFlags().StringVarP(&assetsUser, "user", "u", "", "Owner user ID (required)")
	assetsCmd.MarkPersistentFlagRequired("user")

	assetsCmd.AddCommand(assetsListCmd, assetsShowCmd, assetsDeleteCmd)
	rootCmd.AddCommand(assetsCmd)
}

func runAssetsList(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	assets, err := application.Assets().ListByCampaign(context.Background(), args[0], assetsUser)
	if err != nil {
		return fmt.Errorf("failed to list assets: %w", err)
	}

	printAssets(assets)
	fmt.Printf("\nTotal: %d assets\n", len(assets))
	return nil
}

func runAssetsShow(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	a, err := application.Editor().Get(context.Background(), assetsUser, args[0])
	if err != nil {
		if errors.Is(err, asset.ErrNotFound) {
			return fmt.Errorf("asset not found: %s", args[0])
		}
		return fmt.Errorf("failed to get asset: %w", err)
	}

	fmt.Printf("Asset: %s\n\n", a.ID)
	fmt.Printf("Campaign:    %s\n", a.CampaignID)
	fmt.Printf("Audience:    %s (%s)\n", a.AudienceSnapshot.Name, a.AudienceID)
	fmt.Printf("Type:        %s\n", a.EmailType)
	fmt.Printf("Strategy:    %s (v%d)\n", a.Strategy, a.VersionNumber)
	fmt.Printf("Status:      %s\n", a.Status)
	fmt.Printf("Mode:        %s\n", a.GenerationMode)
	if a.TemplateID != "" {
		fmt.Printf("Template:    %s\n", a.TemplateID)
	}
	fmt.Printf("Generated:   %s\n", a.GeneratedAt.Format(time.RFC3339))
	if a.LastEditedAt != nil {
		fmt.Printf("Last Edited: %s\n", a.LastEditedAt.Format(time.RFC3339))
	}
	fmt.Printf("Exports:     %d\n", a.ExportCount)
	if a.TokensUsed != nil {
		fmt.Printf("Tokens:      %d\n", *a.TokensUsed)
	}

	fmt.Printf("\nSubject:   %s\n", a.Content.SubjectLine)
	fmt.Printf("Preheader: %s\n", a.Content.Preheader)
	fmt.Printf("Headline:  %s\n", a.Content.Headline)
	fmt.Printf("CTA:       %s\n", a.Content.CTAText)
	if !a.ExtractionConfident {
		fmt.Println("(content extracted with low confidence)")
	}

	if len(a.EditHistory) > 0 {
		fmt.Printf("\nEdit History (%d):\n", len(a.EditHistory))
		for _, e := range a.EditHistory {
			fmt.Printf("  %s  %s\n", e.Timestamp.Format("2006-01-02 15:04"), e.EditType)
		}
	}
	return nil
}

func runAssetsDelete(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	n, err := application.Assets().DeleteByCampaign(context.Background(), args[0], assetsUser)
	if err != nil {
		return fmt.Errorf("failed to delete assets: %w", err)
	}

	fmt.Printf("Deleted %d assets\n", n)
	return nil
}
