package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"github.com/foxzi/inkwell/internal/config"
	"github.com/foxzi/inkwell/internal/proof"
)

var (
	initOutput     string
	initDataDir    string
	initProvider   string
	initModel      string
	initAPIKey     string
	initHashKey    bool
	initProofRelay string
	initProofFrom  string
	initDKIM       bool
	initForce      bool
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize Inkwell configuration",
	Long: `Interactive wizard to create an Inkwell configuration file.

This command helps you set up Inkwell by:
  1. Creating a configuration file with a generated API key
  2. Optionally configuring proof emails through an SMTP relay
  3. Optionally generating a DKIM key for signed proofs

Examples:
  # Interactive mode - prompts for missing values
  inkwell init

  # Non-interactive with proofs and DKIM
  inkwell init --provider openai --proof-relay smtp.example.com:587 --proof-from proofs@example.com --dkim

  # Quick local setup
  inkwell init --data-dir ./data -o dev.yaml`,
	RunE: runInit,
}

func init() {
	initCmd.Flags().StringVarP(&initOutput, "output", "o", "config.yaml", "Output configuration file path")
	initCmd.Flags().StringVar(&initDataDir, "data-dir", "/var/lib/inkwell", "Data directory for storage and keys")
	initCmd.Flags().StringVar(&initProvider, "provider", "", "LLM provider (openai, deepseek)")
	initCmd.Flags().StringVar(&initModel, "model", "", "LLM model name (provider default if empty)")
	initCmd.Flags().StringVar(&initAPIKey, "api-key", "", "API key (auto-generated if not provided)")
	initCmd.Flags().BoolVar(&initHashKey, "hash-key", false, "Store a bcrypt hash of the API key instead of the key")
	initCmd.Flags().StringVar(&initProofRelay, "proof-relay", "", "SMTP relay host:port for proof emails")
	initCmd.Flags().StringVar(&initProofFrom, "proof-from", "", "From address of proof emails")
	initCmd.Flags().BoolVar(&initDKIM, "dkim", false, "Generate a DKIM key for proof emails")
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite existing config file")

	rootCmd.AddCommand(initCmd)
}

func runInit(cmd *cobra.Command, args []string) error {
	reader := bufio.NewReader(os.Stdin)

	fmt.Println("Inkwell Configuration Wizard")
	fmt.Println("============================")
	fmt.Println()

	if initProvider == "" {
		initProvider = prompt(reader, "LLM provider (openai, deepseek)", "openai")
	}

	initDataDir = prompt(reader, "Data directory", initDataDir)

	if initProofRelay == "" {
		initProofRelay = prompt(reader, "SMTP relay for proof emails (empty to disable)", "")
	}
	if initProofRelay != "" && initProofFrom == "" {
		initProofFrom = prompt(reader, "Proof sender address", "")
		if initProofFrom == "" {
			return fmt.Errorf("proof sender address is required when a relay is set")
		}
	}
	if initProofRelay != "" && !initDKIM {
		answer := prompt(reader, "Generate DKIM key for proofs? [y/N]", "n")
		initDKIM = strings.ToLower(answer) == "y" || strings.ToLower(answer) == "yes"
	}

	if initAPIKey == "" {
		initAPIKey = generateRandomString(32)
		fmt.Printf("  Generated API key: %s\n", initAPIKey)
	}

	if !initForce {
		if _, err := os.Stat(initOutput); err == nil {
			return fmt.Errorf("config file %s already exists (use --force to overwrite)", initOutput)
		}
	}

	fmt.Println()
	fmt.Println("Creating configuration...")

	if err := os.MkdirAll(initDataDir, 0755); err != nil {
		fmt.Printf("  Warning: Could not create data directory: %v\n", err)
	}

	var signer *proof.Signer
	if initDKIM {
		dkim := proofDKIM()
		key, err := proof.GenerateKey(dkim.KeyFile)
		if err != nil {
			return fmt.Errorf("failed to generate DKIM key: %w", err)
		}
		signer = proof.NewSigner(key, dkim)
		fmt.Printf("  DKIM key saved to: %s\n", dkim.KeyFile)
	}

	keyLine := fmt.Sprintf("api_key: %q", initAPIKey)
	if initHashKey {
		hash, err := bcrypt.GenerateFromPassword([]byte(initAPIKey), bcrypt.DefaultCost)
		if err != nil {
			return fmt.Errorf("failed to hash API key: %w", err)
		}
		keyLine = fmt.Sprintf("api_key_hash: %q", hash)
	}

	if err := os.WriteFile(initOutput, []byte(generateConfig(keyLine)), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("  Configuration saved to: %s\n", initOutput)
	fmt.Println()

	if signer != nil {
		if err := printDKIMRecord(signer); err != nil {
			return err
		}
	}
	printNextSteps()

	return nil
}

func prompt(reader *bufio.Reader, question, defaultValue string) string {
	if defaultValue != "" {
		fmt.Printf("%s [%s]: ", question, defaultValue)
	} else {
		fmt.Printf("%s: ", question)
	}

	input, _ := reader.ReadString('\n')
	input = strings.TrimSpace(input)

	if input == "" {
		return defaultValue
	}
	return input
}

func generateRandomString(length int) string {
	bytes := make([]byte, length/2)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// proofDKIM derives DKIM settings from the proof sender address
func proofDKIM() config.DKIMConfig {
	domain := initProofFrom
	if i := strings.LastIndex(domain, "@"); i >= 0 {
		domain = domain[i+1:]
	}
	domain = strings.TrimSuffix(domain, ">")

	return config.DKIMConfig{
		Enabled:  initDKIM,
		Selector: "inkwell",
		Domain:   domain,
		KeyFile:  filepath.Join(initDataDir, "dkim", domain+".key"),
	}
}

func generateConfig(keyLine string) string {
	model := ""
	if initModel != "" {
		model = fmt.Sprintf("\n  model: %q", initModel)
	}

	proofSection := `proof:
  enabled: false
  # smtp_addr: "smtp.example.com:587"
  # from: "Inkwell Proofs <proofs@example.com>"`
	if initProofRelay != "" {
		dkim := proofDKIM()
		proofSection = fmt.Sprintf(`proof:
  enabled: true
  smtp_addr: %q
  from: %q
  # username: "proofs"    # password via INKWELL_PROOF_PASSWORD
  max_recipients: 10
  timeout: 30s
  dkim:
    enabled: %t
    selector: %q
    domain: %q
    key_file: %q`, initProofRelay, initProofFrom, dkim.Enabled, dkim.Selector, dkim.Domain, dkim.KeyFile)
	}

	return fmt.Sprintf(`# Inkwell configuration
# Generated by: inkwell init

api:
  listen_addr: ":8080"
  %s
  max_header_bytes: 1048576  # 1 MB
  max_body_bytes: 5242880    # 5 MB
  read_timeout: 30s
  write_timeout: 10m
  idle_timeout: 60s

storage:
  path: %q

llm:
  provider: %q%s
  # api_key via INKWELL_LLM_API_KEY
  max_tokens: 4000
  timeout: 120s

generation:
  default_mode: model_authored
  default_template: minimal
  atomic_regenerate: false

editing:
  undo_mode: pop

metrics:
  enabled: false
  listen_addr: ":9090"
  path: "/metrics"
  flush_interval: 10s

%s

logging:
  level: "info"
  format: "json"
`,
		keyLine,
		filepath.Join(initDataDir, "inkwell.db"),
		initProvider, model,
		proofSection,
	)
}

func printDKIMRecord(signer *proof.Signer) error {
	record, err := signer.DNSRecord()
	if err != nil {
		return err
	}

	fmt.Println("DNS Record to Add")
	fmt.Println("=================")
	fmt.Println()
	fmt.Println("DKIM Record (proof signing):")
	fmt.Printf("   Name:  %s\n", signer.DNSName())
	fmt.Printf("   Type:  TXT\n")
	fmt.Printf("   Value: %s\n", record)
	fmt.Println()
	return nil
}

func printNextSteps() {
	fmt.Println("Next Steps")
	fmt.Println("==========")
	fmt.Println()
	fmt.Println("1. Set the LLM provider key:")
	fmt.Println("   export INKWELL_LLM_API_KEY=...")
	fmt.Println()
	fmt.Println("2. Import brands, campaigns and audiences:")
	fmt.Printf("   inkwell directory import seed.yaml -c %s\n", initOutput)
	fmt.Println()
	fmt.Println("3. Start the server:")
	fmt.Printf("   inkwell serve -c %s\n", initOutput)
	fmt.Println()
	fmt.Println("4. Generate emails:")
	fmt.Println("   curl -X POST http://localhost:8080/api/v1/campaigns/<campaign_id>/emails/generate \\")
	fmt.Printf("     -H \"Authorization: Bearer %s\" \\\n", initAPIKey)
	fmt.Println("     -H \"X-User-ID: <user_id>\"")
	fmt.Println()
}
