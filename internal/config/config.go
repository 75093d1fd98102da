// Package config loads qastore.toml and applies environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const fileName = "qastore.toml"

// Config is the complete qastore configuration.
type Config struct {
	Tree    TreeConfig    `toml:"tree"`
	KB      KBConfig      `toml:"kb"`
	LLM     LLMConfig     `toml:"llm"`
	Logging LoggingConfig `toml:"logging"`
}

// TreeConfig locates the question tree database.
type TreeConfig struct {
	Path string `toml:"path"`
}

// KBConfig locates the knowledge base document database.
type KBConfig struct {
	Path string `toml:"path"`
}

// LLMConfig configures the completion/embedding service client.
type LLMConfig struct {
	BaseURL      string `toml:"base_url"`
	RewordModel  string `toml:"reword_model"`
	QAPairsModel string `toml:"qa_pairs_model"`
	EmbedModel   string `toml:"embed_model"`
	TimeoutMS    int    `toml:"timeout_ms"`
}

// LoggingConfig controls log verbosity.
type LoggingConfig struct {
	Level string `toml:"level"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Tree:    TreeConfig{Path: "qastore.db"},
		KB:      KBConfig{Path: "qastore.kb.db"},
		LLM: LLMConfig{
			BaseURL:      "https://api.openai.com/v1",
			RewordModel:  "gpt-4o-mini",
			QAPairsModel: "gpt-4o-mini",
			EmbedModel:   "text-embedding-3-small",
			TimeoutMS:    30000,
		},
		Logging: LoggingConfig{Level: "info"},
	}
}

// Load reads a config file over the defaults.
func Load(path string) (Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("loading config %s: %w", path, err)
	}
	// Paths in the file are relative to the file, not the CWD.
	dir := filepath.Dir(path)
	if cfg.Tree.Path != "" && !filepath.IsAbs(cfg.Tree.Path) {
		cfg.Tree.Path = filepath.Join(dir, cfg.Tree.Path)
	}
	if cfg.KB.Path != "" && !filepath.IsAbs(cfg.KB.Path) {
		cfg.KB.Path = filepath.Join(dir, cfg.KB.Path)
	}
	return cfg, nil
}

// Discover finds the config file using priority: env > flag > walk-up from
// CWD. Returns "" (and no error) when nothing is found, in which case the
// defaults apply.
func Discover(flagPath string) (string, error) {
	// 1. Environment variable
	if envPath := os.Getenv("QASTORE_CONFIG"); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath, nil
		}
		return "", fmt.Errorf("config not found at QASTORE_CONFIG path: %s", envPath)
	}

	// 2. CLI flag
	if flagPath != "" {
		if _, err := os.Stat(flagPath); err == nil {
			return flagPath, nil
		}
		return "", fmt.Errorf("config not found at --config path: %s", flagPath)
	}

	// 3. Walk up from CWD
	dir, err := os.Getwd()
	if err == nil {
		for {
			candidate := filepath.Join(dir, fileName)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	return "", nil
}

// APIKey returns the completion service credential from the environment.
func APIKey() string {
	if key := os.Getenv("QASTORE_API_KEY"); key != "" {
		return key
	}
	return os.Getenv("OPENAI_API_KEY")
}
