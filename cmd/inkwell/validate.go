package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/foxzi/inkwell/internal/validator"
)

var validateFix bool

var validateCmd = &cobra.Command{
	Use:   "validate <file.html>",
	Short: "Check an HTML email for client compatibility",
	Args:  cobra.ExactArgs(1),
	RunE:  runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateFix, "fix", false, "Rewrite the file with sanitized HTML")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	doc := string(data)

	if validateFix {
		doc = validator.Sanitize(doc)
		if err := os.WriteFile(args[0], []byte(doc), 0644); err != nil {
			return fmt.Errorf("failed to write file: %w", err)
		}
		fmt.Printf("Sanitized %s\n", args[0])
	}

	res := validator.Validate(doc)
	printValidation(res)

	if !res.Valid {
		return fmt.Errorf("validation failed with %d errors", len(res.Errors))
	}
	return nil
}

func printValidation(res validator.Result) {
	if res.Valid {
		fmt.Println("[OK] Valid")
	} else {
		fmt.Println("[FAIL] Invalid")
	}
	for _, e := range res.Errors {
		fmt.Printf("  error:   %s\n", e)
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}
