package config

import (
	"fmt"
	"os"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gopkg.in/yaml.v3"
)

// Config is the main configuration structure
type Config struct {
	API        APIConfig        `yaml:"api"`
	Storage    StorageConfig    `yaml:"storage"`
	Logging    LoggingConfig    `yaml:"logging"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	LLM        LLMConfig        `yaml:"llm"`
	Generation GenerationConfig `yaml:"generation"`
	Editing    EditingConfig    `yaml:"editing"`
	Proof      ProofConfig      `yaml:"proof"`
}

// APIConfig contains HTTP API settings
type APIConfig struct {
	ListenAddr     string        `yaml:"listen_addr"`
	APIKey         string        `yaml:"api_key"`
	APIKeyHash     string        `yaml:"api_key_hash"`     // bcrypt hash, used instead of api_key
	MaxHeaderBytes int           `yaml:"max_header_bytes"` // Max HTTP header size (default: 1MB)
	MaxBodyBytes   int64         `yaml:"max_body_bytes"`   // Max request body size (default: 5MB)
	ReadTimeout    time.Duration `yaml:"read_timeout"`     // HTTP read timeout (default: 30s)
	WriteTimeout   time.Duration `yaml:"write_timeout"`    // HTTP write timeout (default: 10m, generation is slow)
	IdleTimeout    time.Duration `yaml:"idle_timeout"`     // HTTP idle timeout (default: 60s)
}

// StorageConfig contains storage settings
type StorageConfig struct {
	Path string `yaml:"path"`
}

// LoggingConfig contains logging settings
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// MetricsConfig contains Prometheus metrics settings
type MetricsConfig struct {
	Enabled    bool     `yaml:"enabled"`
	ListenAddr string   `yaml:"listen_addr"` // Default: :9090
	Path       string   `yaml:"path"`        // Default: /metrics
	AllowedIPs []string `yaml:"allowed_ips"` // IPs or CIDRs, empty allows all

	FlushInterval time.Duration `yaml:"flush_interval"` // Default: 10s
}

// LLMConfig contains text generation provider settings
type LLMConfig struct {
	Provider  string        `yaml:"provider"` // openai, deepseek
	BaseURL   string        `yaml:"base_url"` // Overrides the provider endpoint
	APIKey    string        `yaml:"api_key"`  // Or INKWELL_LLM_API_KEY
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// GenerationConfig contains orchestrator settings
type GenerationConfig struct {
	DefaultMode      string `yaml:"default_mode"`      // model_authored, template
	DefaultTemplate  string `yaml:"default_template"`  // Template used when a request names none
	AtomicRegenerate bool   `yaml:"atomic_regenerate"` // Delete old assets only after new ones exist
	MaxTokens        int    `yaml:"max_tokens"`        // Per generation call
	EditMaxTokens    int    `yaml:"edit_max_tokens"`   // Per AI edit call
}

// EditingConfig contains edit history settings
type EditingConfig struct {
	UndoMode string `yaml:"undo_mode"` // pop, peek
}

// ProofConfig contains proof email settings
type ProofConfig struct {
	Enabled       bool          `yaml:"enabled"`
	SMTPAddr      string        `yaml:"smtp_addr"` // host:port of the submission relay
	Username      string        `yaml:"username"`
	Password      string        `yaml:"password"` // Or INKWELL_PROOF_PASSWORD
	From          string        `yaml:"from"`
	MaxRecipients int           `yaml:"max_recipients"`
	Timeout       time.Duration `yaml:"timeout"`
	DKIM          DKIMConfig    `yaml:"dkim"`
}

// DKIMConfig contains DKIM signing settings
type DKIMConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Selector string `yaml:"selector"`
	KeyFile  string `yaml:"key_file"`
	Domain   string `yaml:"domain"`
}

// Load loads configuration from a YAML file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyEnv()
	cfg.setDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

func (c *Config) applyEnv() {
	if v := os.Getenv("INKWELL_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
	if v := os.Getenv("INKWELL_PROOF_PASSWORD"); v != "" {
		c.Proof.Password = v
	}
	if v := os.Getenv("INKWELL_API_KEY"); v != "" {
		c.API.APIKey = v
	}
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.API.ListenAddr == "" {
		c.API.ListenAddr = ":8080"
	}
	if c.API.MaxHeaderBytes == 0 {
		c.API.MaxHeaderBytes = 1 << 20 // 1 MB
	}
	if c.API.MaxBodyBytes == 0 {
		c.API.MaxBodyBytes = 5 << 20 // 5 MB
	}
	if c.API.ReadTimeout == 0 {
		c.API.ReadTimeout = 30 * time.Second
	}
	if c.API.WriteTimeout == 0 {
		c.API.WriteTimeout = 10 * time.Minute
	}
	if c.API.IdleTimeout == 0 {
		c.API.IdleTimeout = 60 * time.Second
	}

	if c.Storage.Path == "" {
		c.Storage.Path = "/var/lib/inkwell/inkwell.db"
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}

	if c.Metrics.ListenAddr == "" {
		c.Metrics.ListenAddr = ":9090"
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = "/metrics"
	}
	if c.Metrics.FlushInterval == 0 {
		c.Metrics.FlushInterval = 10 * time.Second
	}

	if c.LLM.Provider == "" {
		c.LLM.Provider = "openai"
	}
	if c.LLM.MaxTokens == 0 {
		c.LLM.MaxTokens = 4000
	}
	if c.LLM.Timeout == 0 {
		c.LLM.Timeout = 120 * time.Second
	}

	if c.Generation.DefaultMode == "" {
		c.Generation.DefaultMode = "model_authored"
	}
	if c.Generation.DefaultTemplate == "" {
		c.Generation.DefaultTemplate = "minimal"
	}
	if c.Generation.MaxTokens == 0 {
		c.Generation.MaxTokens = c.LLM.MaxTokens
	}
	if c.Generation.EditMaxTokens == 0 {
		c.Generation.EditMaxTokens = c.LLM.MaxTokens
	}

	if c.Editing.UndoMode == "" {
		c.Editing.UndoMode = "pop"
	}

	if c.Proof.MaxRecipients == 0 {
		c.Proof.MaxRecipients = 10
	}
	if c.Proof.Timeout == 0 {
		c.Proof.Timeout = 30 * time.Second
	}
}

// Validate validates the configuration
func (c *Config) Validate() error {
	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging.level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}

	validLogFormats := map[string]bool{"json": true, "text": true}
	if !validLogFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging.format: %s (must be json or text)", c.Logging.Format)
	}

	if c.API.APIKey != "" && c.API.APIKeyHash != "" {
		return fmt.Errorf("api.api_key and api.api_key_hash are mutually exclusive")
	}
	if c.API.APIKeyHash != "" {
		if _, err := bcrypt.Cost([]byte(c.API.APIKeyHash)); err != nil {
			return fmt.Errorf("invalid api.api_key_hash: %w", err)
		}
	}

	validProviders := map[string]bool{"openai": true, "deepseek": true, "custom": true}
	if !validProviders[c.LLM.Provider] {
		return fmt.Errorf("invalid llm.provider: %s (must be openai, deepseek, or custom)", c.LLM.Provider)
	}
	if c.LLM.Provider == "custom" && c.LLM.BaseURL == "" {
		return fmt.Errorf("llm.base_url is required when llm.provider is custom")
	}
	if c.LLM.MaxTokens < 0 || c.Generation.MaxTokens < 0 || c.Generation.EditMaxTokens < 0 {
		return fmt.Errorf("max_tokens must not be negative")
	}

	validModes := map[string]bool{"model_authored": true, "template": true}
	if !validModes[c.Generation.DefaultMode] {
		return fmt.Errorf("invalid generation.default_mode: %s (must be model_authored or template)", c.Generation.DefaultMode)
	}

	validUndo := map[string]bool{"pop": true, "peek": true}
	if !validUndo[c.Editing.UndoMode] {
		return fmt.Errorf("invalid editing.undo_mode: %s (must be pop or peek)", c.Editing.UndoMode)
	}

	if err := c.validateProof(); err != nil {
		return err
	}

	return nil
}

// validateProof validates proof email configuration
func (c *Config) validateProof() error {
	if !c.Proof.Enabled {
		return nil
	}

	if c.Proof.SMTPAddr == "" {
		return fmt.Errorf("proof.smtp_addr is required when proof is enabled")
	}
	if c.Proof.From == "" {
		return fmt.Errorf("proof.from is required when proof is enabled")
	}
	if (c.Proof.Username == "") != (c.Proof.Password == "") {
		return fmt.Errorf("proof.username and proof.password must be set together")
	}

	dkim := c.Proof.DKIM
	if !dkim.Enabled {
		return nil
	}
	if dkim.Selector == "" {
		return fmt.Errorf("proof.dkim.selector is required when DKIM is enabled")
	}
	if dkim.KeyFile == "" {
		return fmt.Errorf("proof.dkim.key_file is required when DKIM is enabled")
	}
	if dkim.Domain == "" {
		return fmt.Errorf("proof.dkim.domain is required when DKIM is enabled")
	}

	return nil
}

// HasAuth returns true if the API requires a key
func (c *Config) HasAuth() bool {
	return c.API.APIKey != "" || c.API.APIKeyHash != ""
}
