package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/foxzi/inkwell/internal/asset"
	"github.com/foxzi/inkwell/internal/generator"
)

var (
	generateUser       string
	generateMode       string
	generateTemplate   string
	generateRegenerate bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <campaign_id>",
	Short: "Generate email assets for a campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runGenerate,
}

func init() {
	generateCmd.Flags().StringVarP(&generateUser, "user", "u", "", "Owner user ID (required)")
	generateCmd.Flags().StringVar(&generateMode, "mode", "", "Generation mode (model_authored, template)")
	generateCmd.Flags().StringVar(&generateTemplate, "template", "", "Template ID for template mode")
	generateCmd.Flags().BoolVar(&generateRegenerate, "regenerate", false, "Replace existing assets")
	generateCmd.MarkFlagRequired("user")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	application, err := openApp()
	if err != nil {
		return err
	}
	defer application.Close()

	res, err := application.Generator().Generate(context.Background(), generator.Request{
		CampaignID: args[0],
		UserID:     generateUser,
		TemplateID: generateTemplate,
		Regenerate: generateRegenerate,
		Mode:       asset.GenerationMode(generateMode),
	})
	if err != nil {
		return fmt.Errorf("generation failed: %w", err)
	}

	printAssets(res.Assets)

	fmt.Printf("\nGenerated %d assets in %s (mode: %s)\n", res.TotalGenerated, res.Elapsed.Round(time.Millisecond), res.Mode)
	if res.FellBack {
		fmt.Println("Model-authored generation produced nothing, fell back to template mode")
	}
	return nil
}

func printAssets(assets []*asset.Asset) {
	if len(assets) == 0 {
		fmt.Println("No assets")
		return
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tAUDIENCE\tSTRATEGY\tVERSION\tSTATUS\tSUBJECT")
	fmt.Fprintln(w, "--\t--------\t--------\t-------\t------\t-------")

	for _, a := range assets {
		subject := a.Content.SubjectLine
		if len(subject) > 40 {
			subject = subject[:37] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			a.ID,
			a.AudienceSnapshot.Name,
			a.Strategy,
			a.VersionNumber,
			a.Status,
			subject,
		)
	}
	w.Flush()
}
