package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultUserAgent is sent with every request unless overridden.
// docs.rs serves the same pages to browsers and tools; a browser UA keeps
// the responses identical to what a user sees.
const DefaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/58.0.3029.110 Safari/537.3"

// Config holds all application configuration.
type Config struct {
	Docs    DocsConfig    `mapstructure:"docs"`
	Output  OutputConfig  `mapstructure:"output"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// DocsConfig holds settings for the documentation host.
type DocsConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
	Timeout   int    `mapstructure:"timeout"` // seconds, metadata requests only
}

// OutputConfig holds filesystem locations.
type OutputConfig struct {
	Path    string `mapstructure:"path"`
	TempDir string `mapstructure:"temp_dir"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Docs: DocsConfig{
			BaseURL:   "https://docs.rs",
			UserAgent: DefaultUserAgent,
			Timeout:   30,
		},
		Output: OutputConfig{
			Path:    ".",
			TempDir: "",
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "console",
			MaxSizeMB:  10,
			MaxBackups: 5,
			MaxAgeDays: 30,
			Compress:   true,
		},
	}
}

// Load reads configuration from file and environment variables.
// Priority: environment variables (including .env) > config file > defaults
func Load(configPath string) (*Config, error) {
	// A missing .env is the normal case.
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env file: %w", err)
	}

	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.rust-rag")
	}

	v.SetEnvPrefix("RUST_RAG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setDefaults sets default values in viper
func setDefaults(v *viper.Viper) {
	d := Default()

	v.SetDefault("docs.base_url", d.Docs.BaseURL)
	v.SetDefault("docs.user_agent", d.Docs.UserAgent)
	v.SetDefault("docs.timeout", d.Docs.Timeout)

	v.SetDefault("output.path", d.Output.Path)
	v.SetDefault("output.temp_dir", d.Output.TempDir)

	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.path", d.Logging.Path)
	v.SetDefault("logging.max_size_mb", d.Logging.MaxSizeMB)
	v.SetDefault("logging.max_backups", d.Logging.MaxBackups)
	v.SetDefault("logging.max_age_days", d.Logging.MaxAgeDays)
	v.SetDefault("logging.compress", d.Logging.Compress)
}

// Validate checks values that would otherwise fail late in a download.
func (c *Config) Validate() error {
	if c.Docs.BaseURL == "" {
		return fmt.Errorf("docs.base_url must not be empty")
	}
	if !strings.HasPrefix(c.Docs.BaseURL, "http://") && !strings.HasPrefix(c.Docs.BaseURL, "https://") {
		return fmt.Errorf("docs.base_url must be an http(s) URL, got %q", c.Docs.BaseURL)
	}
	if c.Docs.Timeout < 0 {
		return fmt.Errorf("docs.timeout must not be negative")
	}
	return nil
}

// RequestTimeout returns the metadata request timeout.
func (c *DocsConfig) RequestTimeout() time.Duration {
	return time.Duration(c.Timeout) * time.Second
}

// TempDirectory returns the directory used for downloaded archives.
func (c *OutputConfig) TempDirectory() string {
	if c.TempDir == "" {
		return os.TempDir()
	}
	return c.TempDir
}
