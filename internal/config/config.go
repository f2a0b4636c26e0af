package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. RETAIL_MODEL.
const EnvPrefix = "RETAIL"

// Global configuration structure.
type Global struct {
	// Data locations
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
	DBFile  string `mapstructure:"db_file" yaml:"db_file"`

	// Language model
	Provider   string `mapstructure:"provider" yaml:"provider"`
	Model      string `mapstructure:"model" yaml:"model"`
	APIKey     string `mapstructure:"api_key" yaml:"api_key"`
	BaseURL    string `mapstructure:"base_url" yaml:"base_url"`
	OllamaHost string `mapstructure:"ollama_host" yaml:"ollama_host"`

	SQLTemperature        float64 `mapstructure:"sql_temperature" yaml:"sql_temperature"`
	SummaryTemperature    float64 `mapstructure:"summary_temperature" yaml:"summary_temperature"`
	StructuredTemperature float64 `mapstructure:"structured_temperature" yaml:"structured_temperature"`

	// HTTP/Retry configuration
	HTTPTimeoutSec   int `mapstructure:"http_timeout_sec" yaml:"http_timeout_sec"`
	RetryMaxAttempts int `mapstructure:"retry_max_attempts" yaml:"retry_max_attempts"`
	RetryBaseDelayMs int `mapstructure:"retry_base_delay_ms" yaml:"retry_base_delay_ms"`
	RetryMaxDelayMs  int `mapstructure:"retry_max_delay_ms" yaml:"retry_max_delay_ms"`

	// Rollup relations
	ViewName    string `mapstructure:"view_name" yaml:"view_name"`
	MasterTable string `mapstructure:"master_table" yaml:"master_table"`

	// Summaries
	SampleRows int `mapstructure:"sample_rows" yaml:"sample_rows"`

	// Logging
	LogLevel  string `mapstructure:"log_level" yaml:"log_level"`
	LogFormat string `mapstructure:"log_format" yaml:"log_format"`
}

// HTTPTimeout returns the configured HTTP timeout.
func (g *Global) HTTPTimeout() time.Duration {
	return time.Duration(g.HTTPTimeoutSec) * time.Second
}

// DefaultPath returns ~/.retail-insights/config.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".retail-insights", "config.yaml"), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", "data")
	v.SetDefault("db_file", filepath.Join("data", "retail_insights.db"))
	v.SetDefault("provider", "ollama")
	v.SetDefault("model", "mistral")
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "")
	v.SetDefault("ollama_host", "http://127.0.0.1:11434")
	v.SetDefault("sql_temperature", 0.0)
	v.SetDefault("summary_temperature", 0.2)
	v.SetDefault("structured_temperature", 0.1)
	// Nothing is retried unless asked for.
	v.SetDefault("http_timeout_sec", 120)
	v.SetDefault("retry_max_attempts", 1)
	v.SetDefault("retry_base_delay_ms", 500)
	v.SetDefault("retry_max_delay_ms", 4000)
	v.SetDefault("view_name", "unified_sales")
	v.SetDefault("master_table", "master_sales")
	v.SetDefault("sample_rows", 10)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "console")
}

// Defaults returns the configuration with no file or environment applied.
func Defaults() *Global {
	v := viper.New()
	setDefaults(v)
	var c Global
	_ = v.Unmarshal(&c)
	return &c
}

// Save writes c to cfgFile, or to DefaultPath when cfgFile is empty, creating
// the directory if necessary.
func Save(c *Global, cfgFile string) error {
	path := cfgFile
	if path == "" {
		p, err := DefaultPath()
		if err != nil {
			return err
		}
		path = p
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir config dir: %w", err)
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshal yaml: %w", err)
	}
	if err := os.WriteFile(path, b, 0o600); err != nil {
		return fmt.Errorf("write config: %w", err)
	}
	return nil
}

// Load loads configuration from file, env, and defaults.
// Precedence: env > config file > defaults; command flags are applied on top
// by the caller. A missing config file is not an error.
func Load(cfgFile string) (*Global, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.AutomaticEnv()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		path, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		v.AddConfigPath(filepath.Dir(path))
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var c Global
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
