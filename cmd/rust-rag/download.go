package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/dangattringer/rust-rag/internal/archive"
	"github.com/dangattringer/rust-rag/internal/docsrs"
	"github.com/dangattringer/rust-rag/internal/pipeline"
	"github.com/dangattringer/rust-rag/internal/progress"
	"github.com/dangattringer/rust-rag/internal/transport"
)

type downloadOptions struct {
	version    string
	output     string
	saveDir    string
	noProgress bool
}

func newDownloadCmd(a *app) *cobra.Command {
	opts := &downloadOptions{}

	cmd := &cobra.Command{
		Use:   "download NAME",
		Short: "Download and extract the documentation of a crate",
		Long: `Download the documentation archive of a crate from docs.rs and extract it
into OUTPUT/NAME/VERSION. Without --version the latest published version
is used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.download(cmd, args[0], opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.version, "version", "", "crate version (default: latest)")
	f.StringVarP(&opts.output, "output", "o", "", "output directory (default: output.path from config)")
	f.StringVar(&opts.saveDir, "save", "", "write a YAML record of the downloaded crate to this directory")
	f.BoolVar(&opts.noProgress, "no-progress", false, "log progress instead of drawing progress bars")
	return cmd
}

func (a *app) download(cmd *cobra.Command, name string, opts *downloadOptions) error {
	outputPath := opts.output
	if outputPath == "" {
		outputPath = a.cfg.Output.Path
	}
	tempDir := a.cfg.Output.TempDirectory()

	clientOpts := []transport.Option{transport.WithUserAgent(a.cfg.Docs.UserAgent)}
	if timeout := a.cfg.Docs.RequestTimeout(); timeout > 0 {
		clientOpts = append(clientOpts, transport.WithTimeout(timeout))
	}
	client := transport.NewClient(a.log.WithComponent("transport"), clientOpts...)

	observer := a.progressObserver(opts.noProgress)
	svc := pipeline.NewService(
		docsrs.NewResolver(client, a.cfg.Docs.BaseURL, a.log.WithComponent("resolver")),
		docsrs.NewFetcher(client, a.cfg.Docs.BaseURL, tempDir, observer, a.log.WithComponent("fetcher")),
		archive.New(observer),
		tempDir,
		a.log.WithComponent("pipeline"),
	)

	c, err := svc.Download(cmd.Context(), name, opts.version, outputPath)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, c)
	fmt.Fprintf(out, "Documentation for %s extracted to %s (%d entries)\n", c.ID(), c.OutputPath, c.Entries)

	if opts.saveDir != "" {
		path, err := c.Save(opts.saveDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Record saved to %s\n", path)
	}
	return nil
}

// progressObserver draws bars on an interactive stderr and logs otherwise.
func (a *app) progressObserver(noProgress bool) progress.Observer {
	if !noProgress && isTerminal(a.stderr) {
		return progress.NewBarObserver(a.stderr)
	}
	return progress.NewLogObserver(a.log.WithComponent("progress"), 0)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
