package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/KaramelBytes/retail-insights-cli/internal/ai"
	cfgpkg "github.com/KaramelBytes/retail-insights-cli/internal/config"
	"github.com/KaramelBytes/retail-insights-cli/internal/logging"
	"github.com/KaramelBytes/retail-insights-cli/internal/rollup"
	"github.com/KaramelBytes/retail-insights-cli/internal/store"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	// Global flags
	cfgFile       string
	debug         bool
	flagDBFile    string
	flagDataDir   string
	flagProvider  string
	flagModel     string
	flagLogFormat string
	// Retry/HTTP flags (override config if set)
	flagHTTPTimeoutSec   int
	flagRetryMaxAttempts int
	flagRetryBaseDelayMs int
	flagRetryMaxDelayMs  int

	// Loaded configuration
	cfg *cfgpkg.Global
	// logger carries the run_id of this invocation.
	logger = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "retail-insights",
	Short: "Retail Insights CLI: ask questions about your sales CSVs in plain language",
	Long: `Retail Insights cleans messy retail CSV exports, loads them into a local SQLite
database and lets a language model (Ollama by default) turn questions into
validated, read-only SQL. It can also profile and summarize any loaded table.`,
	SilenceUsage: true,
}

// Execute is the entry point called by main.main()
func Execute() {
	err := rootCmd.Execute()
	_ = logger.Sync()
	if err != nil {
		fmt.Fprintln(os.Stderr, "✗ Error:", err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(loadConfig)

	pf := rootCmd.PersistentFlags()
	pf.StringVar(&cfgFile, "config", "", "config file (default is ~/.retail-insights/config.yaml)")
	pf.BoolVar(&debug, "debug", false, "enable debug logging")
	pf.StringVar(&flagDBFile, "db", "", "SQLite database file (overrides config db_file)")
	pf.StringVar(&flagDataDir, "data-dir", "", "folder holding the raw CSV files (overrides config data_dir)")
	pf.StringVar(&flagProvider, "provider", "", "language model provider: ollama|openai|openrouter (overrides config)")
	pf.StringVar(&flagModel, "model", "", "model name (overrides config)")
	pf.StringVar(&flagLogFormat, "log-format", "", "log format: console|json (overrides config)")
	pf.IntVar(&flagHTTPTimeoutSec, "http-timeout", 0, "HTTP client timeout in seconds (overrides config)")
	pf.IntVar(&flagRetryMaxAttempts, "retry-max", 0, "max attempts on 429/5xx (overrides config; default is a single attempt)")
	pf.IntVar(&flagRetryBaseDelayMs, "retry-base-ms", 0, "base retry backoff in ms (overrides config)")
	pf.IntVar(&flagRetryMaxDelayMs, "retry-max-ms", 0, "max retry backoff cap in ms (overrides config)")
}

func loadConfig() {
	c, err := cfgpkg.Load(cfgFile)
	if err != nil {
		// Non-fatal: fall back to defaults so read-only commands still work
		fmt.Fprintf(os.Stderr, "⚠ Warning: failed to load config: %v\n", err)
		c = cfgpkg.Defaults()
	}
	cfg = c

	// Apply CLI overrides if provided
	f := rootCmd.PersistentFlags()
	if f.Changed("db") && flagDBFile != "" {
		cfg.DBFile = flagDBFile
	}
	if f.Changed("data-dir") && flagDataDir != "" {
		cfg.DataDir = flagDataDir
	}
	if f.Changed("provider") && flagProvider != "" {
		cfg.Provider = flagProvider
	}
	if f.Changed("model") && flagModel != "" {
		cfg.Model = flagModel
	}
	if f.Changed("log-format") && flagLogFormat != "" {
		cfg.LogFormat = flagLogFormat
	}
	if debug {
		cfg.LogLevel = "debug"
	}
	if f.Changed("http-timeout") && flagHTTPTimeoutSec > 0 {
		cfg.HTTPTimeoutSec = flagHTTPTimeoutSec
	}
	if f.Changed("retry-max") && flagRetryMaxAttempts > 0 {
		cfg.RetryMaxAttempts = flagRetryMaxAttempts
	}
	if f.Changed("retry-base-ms") && flagRetryBaseDelayMs > 0 {
		cfg.RetryBaseDelayMs = flagRetryBaseDelayMs
	}
	if f.Changed("retry-max-ms") && flagRetryMaxDelayMs > 0 {
		cfg.RetryMaxDelayMs = flagRetryMaxDelayMs
	}

	l, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "⚠ Warning: %v; logging disabled\n", err)
		l = zap.NewNop()
	}
	logger = l.With(zap.String("run_id", uuid.NewString()))
	logger.Debug("config loaded",
		zap.String("db_file", cfg.DBFile),
		zap.String("data_dir", cfg.DataDir),
		zap.String("provider", cfg.Provider),
		zap.String("model", cfg.Model))
}

func openStore() (*store.Store, error) {
	s, err := store.Open(cfg.DBFile, logger)
	if err != nil {
		return nil, err
	}
	s.Reserve(cfg.ViewName, cfg.MasterTable)
	return s, nil
}

func newBuilder(s *store.Store) *rollup.Builder {
	return rollup.New(s, logger, rollup.Options{ViewName: cfg.ViewName, MasterName: cfg.MasterTable})
}

// newRuntime builds the language model runtime selected by config.
func newRuntime() (ai.Runtime, error) {
	rt, ok := ai.GetRuntime(cfg.Provider, ai.RuntimeConfig{
		HTTPTimeout: cfg.HTTPTimeout(),
		RetryMax:    cfg.RetryMaxAttempts,
		BaseDelay:   time.Duration(cfg.RetryBaseDelayMs) * time.Millisecond,
		MaxDelay:    time.Duration(cfg.RetryMaxDelayMs) * time.Millisecond,
		APIKey:      cfg.APIKey,
		BaseURL:     cfg.BaseURL,
		Host:        cfg.OllamaHost,
	})
	if !ok {
		return nil, fmt.Errorf("unknown provider: %s (use one of %v)", cfg.Provider, ai.Providers())
	}
	return rt, nil
}
