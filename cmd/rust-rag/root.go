package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/dangattringer/rust-rag/internal/config"
	"github.com/dangattringer/rust-rag/internal/logger"
	"github.com/dangattringer/rust-rag/internal/pipeline"
)

// Exit codes reported to the shell.
const (
	exitOK        = 0
	exitFailure   = 1
	exitNotFound  = 2
	exitTransient = 3
	exitCorrupt   = 4
)

// app carries what every command needs once flags are parsed.
type app struct {
	cfgFile   string
	logLevel  string
	logFormat string

	cfg    *config.Config
	log    *logger.Logger
	stdout io.Writer
	stderr io.Writer
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	cmd := newRootCmd(a)
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.ExecuteContext(ctx)
	if a.log != nil {
		_ = a.log.Close()
	}
	if err != nil {
		fmt.Fprintln(stderr, "Error:", err)
		return exitCode(err)
	}
	return exitOK
}

// exitCode maps an error kind to the process exit status.
func exitCode(err error) int {
	switch pipeline.StateFor(err) {
	case pipeline.StateSuccess:
		return exitOK
	case pipeline.StateNotFound:
		return exitNotFound
	case pipeline.StateTransientFailure:
		return exitTransient
	case pipeline.StateCorruptArchive:
		return exitCorrupt
	default:
		return exitFailure
	}
}

func newRootCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "rust-rag",
		Short:         "Download Rust crate documentation from docs.rs",
		Version:       versionString(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup()
		},
	}

	cmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default is ./config.yaml)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.logFormat, "log-format", "", "log format (console, json)")

	cmd.AddCommand(
		newDownloadCmd(a),
		newShowCmd(),
		newInspectCmd(a),
	)
	return cmd
}

func versionString() string {
	if config.Commit == "" {
		return config.Version
	}
	return fmt.Sprintf("%s (commit: %s)", config.Version, config.Commit)
}

// setup loads configuration and builds the logger. Flags win over config.
func (a *app) setup() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.logFormat != "" {
		cfg.Logging.Format = a.logFormat
	}
	a.cfg = cfg

	a.log = logger.New(logger.Config{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Path:       cfg.Logging.Path,
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAgeDays: cfg.Logging.MaxAgeDays,
		Compress:   cfg.Logging.Compress,
		Output:     a.stderr,
	})
	return nil
}
