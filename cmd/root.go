package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"qastore/internal/config"
	"qastore/internal/kb"
	"qastore/internal/kb/memstore"
	"qastore/internal/llm"
	"qastore/internal/slogutil"
	"qastore/internal/system"
	"qastore/internal/tree"
)

var (
	configPath string
	logLevel   string
)

var rootCmd = &cobra.Command{
	Use:   "qastore",
	Short: "Question tree and knowledge base management",
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to qastore.toml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
}

// loadConfig discovers and loads the config, falling back to defaults when
// no file exists.
func loadConfig() (config.Config, error) {
	path, err := config.Discover(configPath)
	if err != nil {
		return config.Config{}, err
	}
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

func newLogger(cfg config.Config) *slog.Logger {
	level := cfg.Logging.Level
	if logLevel != "" {
		level = logLevel
	}
	return slogutil.NewLogger(os.Stderr, slogutil.LevelFromString(level))
}

// openTree opens just the question tree database.
func openTree() (*tree.Tree, config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, config.Config{}, err
	}
	t, err := tree.Open(cfg.Tree.Path)
	if err != nil {
		return nil, config.Config{}, err
	}
	return t, cfg, nil
}

// openSystem wires the full service: tree store, embedded document store,
// completion client, knowledge base, façade. The returned closer must be
// deferred.
func openSystem() (*system.System, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg)

	t, err := tree.Open(cfg.Tree.Path)
	if err != nil {
		return nil, nil, err
	}

	client := llm.NewClient(llm.Config{
		BaseURL:    cfg.LLM.BaseURL,
		APIKey:     config.APIKey(),
		EmbedModel: cfg.LLM.EmbedModel,
		Timeout:    time.Duration(cfg.LLM.TimeoutMS) * time.Millisecond,
	})

	store, err := memstore.Open(cfg.KB.Path, client)
	if err != nil {
		t.Close()
		return nil, nil, err
	}

	knowledge := kb.New(store, client, kb.Config{
		RewordModel:  cfg.LLM.RewordModel,
		QAPairsModel: cfg.LLM.QAPairsModel,
	}, logger)

	closer := func() {
		store.Close()
		t.Close()
	}
	return system.New(t, knowledge, logger), closer, nil
}
