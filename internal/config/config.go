// Package config provides centralized configuration for versecull,
// loaded from a YAML file with defaults applied. API keys are never
// stored in the file; the config names the environment variable that
// holds each key.
package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var DefaultConfigYAML []byte

// Duration wraps time.Duration for YAML decoding of values like "60s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

type Config struct {
	Library   string    `yaml:"library"`
	HistoryDB string    `yaml:"history_db"`
	Server    Server    `yaml:"server"`
	Evaluator Evaluator `yaml:"evaluator"`
	Pipeline  Pipeline  `yaml:"pipeline"`
}

type Server struct {
	Port       int    `yaml:"port"`
	CORSOrigin string `yaml:"cors_origin"`
}

type Evaluator struct {
	// Provider selects the scoring backend: "openai", "claude",
	// "ollama", or "stub".
	Provider    string       `yaml:"provider"`
	HTTPTimeout Duration     `yaml:"http_timeout"`
	OpenAI      OpenAIConfig `yaml:"openai"`
	Claude      ClaudeConfig `yaml:"claude"`
	Ollama      OllamaConfig `yaml:"ollama"`
}

type OpenAIConfig struct {
	Model     string `yaml:"model"`
	BaseURL   string `yaml:"base_url"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type ClaudeConfig struct {
	Model     string `yaml:"model"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type OllamaConfig struct {
	URL   string `yaml:"url"`
	Model string `yaml:"model"`
}

type Pipeline struct {
	// MaxBatchSize bounds how many poems one batch evaluates concurrently.
	MaxBatchSize int `yaml:"max_batch_size"`
	// Cooldown is the pause between consecutive batches, pacing calls
	// to respect the scoring service's rate limit.
	Cooldown Duration `yaml:"cooldown"`
}

// ConfigDir returns the XDG config directory for versecull.
func ConfigDir() string {
	return filepath.Join(homeDir(), ".config", "versecull")
}

// ResolveConfigPath finds the config file following priority:
// explicit path > ~/.config/versecull/config.yaml > ./config.yaml
func ResolveConfigPath(explicit string) (string, error) {
	if explicit != "" {
		if _, err := os.Stat(explicit); err != nil {
			return "", fmt.Errorf("config file not found: %s", explicit)
		}
		return explicit, nil
	}

	xdgConfig := filepath.Join(ConfigDir(), "config.yaml")
	if _, err := os.Stat(xdgConfig); err == nil {
		return xdgConfig, nil
	}

	cwdConfig := "config.yaml"
	if _, err := os.Stat(cwdConfig); err == nil {
		return cwdConfig, nil
	}

	return "", fmt.Errorf(
		"no config file found; searched:\n  %s\n  ./config.yaml\n\nRun 'versecull init' to create a default config",
		xdgConfig,
	)
}

// Load reads and parses a config YAML file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	return parse(data)
}

// parse parses YAML bytes into a Config, applying defaults.
func parse(data []byte) (*Config, error) {
	cfg := &Config{
		Library:   "poems.json",
		HistoryDB: "versecull.db",
		Server: Server{
			Port:       8080,
			CORSOrigin: "*",
		},
		Evaluator: Evaluator{
			Provider:    "stub",
			HTTPTimeout: Duration(60 * time.Second),
			OpenAI: OpenAIConfig{
				Model:     "gpt-4o-mini",
				APIKeyEnv: "OPENAI_API_KEY",
			},
			Claude: ClaudeConfig{
				Model:     "claude-sonnet-4-20250514",
				APIKeyEnv: "ANTHROPIC_API_KEY",
			},
			Ollama: OllamaConfig{
				URL:   "http://localhost:11434",
				Model: "llama3",
			},
		},
		Pipeline: Pipeline{
			MaxBatchSize: 100,
			Cooldown:     Duration(60 * time.Second),
		},
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return home
}
