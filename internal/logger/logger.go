// Package logger builds the application's zerolog logger and carries
// per-run loggers through a context.
package logger

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"
)

// FileName is the name of the log file written inside Config.Path.
const FileName = "rust-rag.log"

// Logger wraps zerolog for application logging.
type Logger struct {
	zerolog.Logger
	rotator *lumberjack.Logger
}

// Config holds logger configuration.
type Config struct {
	Level      string
	Format     string    // "console" or "json"
	Path       string    // directory for the log file; empty disables it
	MaxSizeMB  int       // default 10
	MaxBackups int       // default 5
	MaxAgeDays int       // default 30
	Compress   bool      // gzip rotated files
	Output     io.Writer // console destination, default os.Stderr
}

func (c Config) withDefaults() Config {
	if c.Output == nil {
		c.Output = os.Stderr
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = 10
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = 5
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = 30
	}
	return c
}

// IsDevBuild reports whether the binary was built by "go run" or "go test",
// whose executables live in a go-build temp directory.
func IsDevBuild() bool {
	exe, err := os.Executable()
	return err == nil && strings.Contains(exe, "go-build")
}

// New creates a logger. Dev builds log at debug level unless trace is asked for.
// A log directory that cannot be created disables file output.
func New(cfg Config) *Logger {
	cfg = cfg.withDefaults()

	level := parseLevel(cfg.Level)
	if IsDevBuild() && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}

	output := consoleWriter(cfg)
	rotator := fileWriter(cfg)
	if rotator != nil {
		output = io.MultiWriter(output, rotator)
	}

	return &Logger{
		Logger:  zerolog.New(output).Level(level).With().Timestamp().Logger(),
		rotator: rotator,
	}
}

func consoleWriter(cfg Config) io.Writer {
	if cfg.Format == "json" {
		return cfg.Output
	}
	return zerolog.ConsoleWriter{Out: cfg.Output, TimeFormat: time.RFC3339}
}

func fileWriter(cfg Config) *lumberjack.Logger {
	if cfg.Path == "" {
		return nil
	}
	if err := os.MkdirAll(cfg.Path, 0o755); err != nil {
		return nil
	}
	return &lumberjack.Logger{
		Filename:   filepath.Join(cfg.Path, FileName),
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
		LocalTime:  true,
	}
}

// Close closes the log file if one is open.
func (l *Logger) Close() error {
	if l.rotator == nil {
		return nil
	}
	return l.rotator.Close()
}

// WithComponent returns a logger tagged with a component field.
func (l *Logger) WithComponent(component string) zerolog.Logger {
	return l.Logger.With().Str("component", component).Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal":
		return zerolog.FatalLevel
	default:
		return zerolog.InfoLevel
	}
}
