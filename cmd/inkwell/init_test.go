package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/foxzi/inkwell/internal/config"
)

func resetInitFlags(t *testing.T) {
	t.Helper()
	initDataDir = t.TempDir()
	initProvider = "openai"
	initModel = ""
	initAPIKey = "testapikey"
	initProofRelay = ""
	initProofFrom = ""
	initDKIM = false
}

func TestGenerateRandomString(t *testing.T) {
	lengths := []int{8, 16, 32, 64}

	for _, length := range lengths {
		result := generateRandomString(length)
		if len(result) != length {
			t.Errorf("generateRandomString(%d) returned string of length %d", length, len(result))
		}
	}

	s1 := generateRandomString(32)
	s2 := generateRandomString(32)
	if s1 == s2 {
		t.Error("generateRandomString should generate unique strings")
	}
}

func TestGenerateConfig(t *testing.T) {
	resetInitFlags(t)
	initModel = "gpt-4o"

	content := generateConfig(`api_key: "testapikey"`)

	checks := []string{
		`api_key: "testapikey"`,
		`provider: "openai"`,
		`model: "gpt-4o"`,
		`default_mode: model_authored`,
		"enabled: false",
	}
	for _, check := range checks {
		if !strings.Contains(content, check) {
			t.Errorf("Generated config missing: %s", check)
		}
	}

	// The generated file must load as a valid configuration
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.API.APIKey != "testapikey" {
		t.Errorf("APIKey = %q", cfg.API.APIKey)
	}
	if cfg.Storage.Path != filepath.Join(initDataDir, "inkwell.db") {
		t.Errorf("Storage.Path = %q", cfg.Storage.Path)
	}
	if cfg.Proof.Enabled {
		t.Error("proof should be disabled")
	}
}

func TestGenerateConfigWithProof(t *testing.T) {
	resetInitFlags(t)
	initProofRelay = "smtp.example.com:587"
	initProofFrom = "Inkwell Proofs <proofs@example.com>"
	initDKIM = true

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(generateConfig(`api_key: "k"`)), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if !cfg.Proof.Enabled || cfg.Proof.SMTPAddr != "smtp.example.com:587" {
		t.Errorf("Proof = %+v", cfg.Proof)
	}
	if cfg.Proof.DKIM.Domain != "example.com" || cfg.Proof.DKIM.Selector != "inkwell" {
		t.Errorf("DKIM = %+v", cfg.Proof.DKIM)
	}
	wantKey := filepath.Join(initDataDir, "dkim", "example.com.key")
	if cfg.Proof.DKIM.KeyFile != wantKey {
		t.Errorf("DKIM.KeyFile = %q, want %q", cfg.Proof.DKIM.KeyFile, wantKey)
	}
}

func TestProofDKIM(t *testing.T) {
	resetInitFlags(t)

	tests := []struct {
		from   string
		domain string
	}{
		{"proofs@example.com", "example.com"},
		{"Inkwell <proofs@mail.example.org>", "mail.example.org"},
	}

	for _, tt := range tests {
		initProofFrom = tt.from
		if got := proofDKIM().Domain; got != tt.domain {
			t.Errorf("proofDKIM(%q).Domain = %q, want %q", tt.from, got, tt.domain)
		}
	}
}
