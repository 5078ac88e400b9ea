package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return cfgPath
}

func TestLoad(t *testing.T) {
	content := `
api:
  listen_addr: ":9080"
  api_key: "test-api-key"
  write_timeout: 5m

storage:
  path: "/tmp/test.db"

logging:
  level: "debug"
  format: "text"

llm:
  provider: deepseek
  model: deepseek-chat
  max_tokens: 2000
  timeout: 30s

generation:
  default_mode: template
  default_template: newsletter
  atomic_regenerate: true

editing:
  undo_mode: peek

proof:
  enabled: true
  smtp_addr: "smtp.test.com:587"
  from: "proofs@test.com"
  dkim:
    enabled: true
    selector: mail
    key_file: /etc/inkwell/dkim.key
    domain: test.com
`
	cfg, err := Load(writeConfig(t, content))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.ListenAddr != ":9080" {
		t.Errorf("API.ListenAddr = %v, want :9080", cfg.API.ListenAddr)
	}
	if cfg.API.WriteTimeout != 5*time.Minute {
		t.Errorf("API.WriteTimeout = %v, want 5m", cfg.API.WriteTimeout)
	}
	if cfg.LLM.Provider != "deepseek" || cfg.LLM.MaxTokens != 2000 {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Generation.MaxTokens != 2000 {
		t.Errorf("Generation.MaxTokens = %d, want llm.max_tokens", cfg.Generation.MaxTokens)
	}
	if cfg.Generation.DefaultMode != "template" || !cfg.Generation.AtomicRegenerate {
		t.Errorf("Generation = %+v", cfg.Generation)
	}
	if cfg.Editing.UndoMode != "peek" {
		t.Errorf("Editing.UndoMode = %v, want peek", cfg.Editing.UndoMode)
	}
	if !cfg.Proof.DKIM.Enabled || cfg.Proof.DKIM.Domain != "test.com" {
		t.Errorf("Proof.DKIM = %+v", cfg.Proof.DKIM)
	}
	if !cfg.HasAuth() {
		t.Error("HasAuth() = false, want true")
	}
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.API.ListenAddr != ":8080" {
		t.Errorf("API.ListenAddr = %v, want :8080", cfg.API.ListenAddr)
	}
	if cfg.Storage.Path != "/var/lib/inkwell/inkwell.db" {
		t.Errorf("Storage.Path = %v", cfg.Storage.Path)
	}
	if cfg.Logging.Level != "info" || cfg.Logging.Format != "json" {
		t.Errorf("Logging = %+v", cfg.Logging)
	}
	if cfg.LLM.Provider != "openai" || cfg.LLM.Timeout != 120*time.Second {
		t.Errorf("LLM = %+v", cfg.LLM)
	}
	if cfg.Generation.DefaultMode != "model_authored" || cfg.Generation.DefaultTemplate != "minimal" {
		t.Errorf("Generation = %+v", cfg.Generation)
	}
	if cfg.Generation.AtomicRegenerate {
		t.Error("AtomicRegenerate should default to false")
	}
	if cfg.Editing.UndoMode != "pop" {
		t.Errorf("Editing.UndoMode = %v, want pop", cfg.Editing.UndoMode)
	}
	if cfg.Metrics.Path != "/metrics" {
		t.Errorf("Metrics.Path = %v", cfg.Metrics.Path)
	}
	if cfg.HasAuth() {
		t.Error("HasAuth() = true without keys")
	}
}

func TestLoad_Env(t *testing.T) {
	t.Setenv("INKWELL_LLM_API_KEY", "sk-env")
	t.Setenv("INKWELL_PROOF_PASSWORD", "secret")

	cfg, err := Load(writeConfig(t, "llm:\n  api_key: sk-file\n"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.LLM.APIKey != "sk-env" {
		t.Errorf("LLM.APIKey = %v, want env value", cfg.LLM.APIKey)
	}
	if cfg.Proof.Password != "secret" {
		t.Errorf("Proof.Password = %v, want env value", cfg.Proof.Password)
	}
}

func TestLoad_FileErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Error("Load() should fail for a missing file")
	}
	if _, err := Load(writeConfig(t, "api: [not a map")); err == nil {
		t.Error("Load() should fail for invalid YAML")
	}
}

func TestValidate(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("key"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("GenerateFromPassword() error = %v", err)
	}

	tests := []struct {
		name    string
		modify  func(c *Config)
		wantErr string
	}{
		{
			name:   "defaults are valid",
			modify: func(c *Config) {},
		},
		{
			name:    "bad log level",
			modify:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "logging.level",
		},
		{
			name:    "bad log format",
			modify:  func(c *Config) { c.Logging.Format = "xml" },
			wantErr: "logging.format",
		},
		{
			name:   "api key hash",
			modify: func(c *Config) { c.API.APIKeyHash = string(hash) },
		},
		{
			name:    "invalid api key hash",
			modify:  func(c *Config) { c.API.APIKeyHash = "plain" },
			wantErr: "api_key_hash",
		},
		{
			name: "key and hash together",
			modify: func(c *Config) {
				c.API.APIKey = "key"
				c.API.APIKeyHash = string(hash)
			},
			wantErr: "mutually exclusive",
		},
		{
			name:    "unknown provider",
			modify:  func(c *Config) { c.LLM.Provider = "magic" },
			wantErr: "llm.provider",
		},
		{
			name:    "custom provider without url",
			modify:  func(c *Config) { c.LLM.Provider = "custom" },
			wantErr: "llm.base_url",
		},
		{
			name:    "bad mode",
			modify:  func(c *Config) { c.Generation.DefaultMode = "random" },
			wantErr: "default_mode",
		},
		{
			name:    "bad undo mode",
			modify:  func(c *Config) { c.Editing.UndoMode = "rewind" },
			wantErr: "undo_mode",
		},
		{
			name:    "proof without relay",
			modify:  func(c *Config) { c.Proof.Enabled = true; c.Proof.From = "a@b.c" },
			wantErr: "proof.smtp_addr",
		},
		{
			name: "proof username without password",
			modify: func(c *Config) {
				c.Proof.Enabled = true
				c.Proof.SMTPAddr = "localhost:25"
				c.Proof.From = "a@b.c"
				c.Proof.Username = "user"
			},
			wantErr: "proof.username",
		},
		{
			name: "proof dkim without selector",
			modify: func(c *Config) {
				c.Proof.Enabled = true
				c.Proof.SMTPAddr = "localhost:25"
				c.Proof.From = "a@b.c"
				c.Proof.DKIM = DKIMConfig{Enabled: true, KeyFile: "k", Domain: "b.c"}
			},
			wantErr: "proof.dkim.selector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}
