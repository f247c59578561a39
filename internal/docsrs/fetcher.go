package docsrs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/dangattringer/rust-rag/internal/crate"
	"github.com/dangattringer/rust-rag/internal/logger"
	"github.com/dangattringer/rust-rag/internal/progress"
	"github.com/dangattringer/rust-rag/internal/transport"
)

const (
	// ChunkSize is the read size used when streaming an archive to disk.
	ChunkSize = 8 * 1024

	// TempSuffix ends every downloaded archive's temp name. The format is
	// sniffed from content, so the suffix does not name one.
	TempSuffix = ".archive"
)

// Streamer opens a response body for streaming.
type Streamer interface {
	GetStream(ctx context.Context, url string) (*transport.Stream, error)
}

// Fetcher downloads documentation archives into temporary files.
type Fetcher struct {
	client   Streamer
	baseURL  string
	tempDir  string
	observer progress.Observer
	logger   zerolog.Logger
}

// NewFetcher creates a fetcher. An empty tempDir means the system default.
// A nil observer discards progress.
func NewFetcher(client Streamer, baseURL, tempDir string, observer progress.Observer, logger zerolog.Logger) *Fetcher {
	if observer == nil {
		observer = progress.Nop
	}
	return &Fetcher{
		client:   client,
		baseURL:  baseURL,
		tempDir:  tempDir,
		observer: observer,
		logger:   logger,
	}
}

// FetchArtifact downloads the documentation archive of name@version and
// returns the temp file path. The caller owns the file on success; on
// failure no file is left behind.
func (f *Fetcher) FetchArtifact(ctx context.Context, name, version string) (string, error) {
	if name == "" || version == "" {
		return "", fmt.Errorf("%w: name and version are required", crate.ErrInvalidCrate)
	}

	log := logger.ForRun(ctx, f.logger)

	downloadURL := DownloadURL(f.baseURL, name, version)
	log.Info().
		Str("url", downloadURL).
		Msg("Downloading documentation")

	stream, err := f.client.GetStream(ctx, downloadURL)
	if err != nil {
		return "", classify(ctx, err, name, version, downloadURL, "documentation not found")
	}
	defer stream.Body.Close()

	out, err := os.CreateTemp(f.tempDir, fmt.Sprintf("%s-%s-*%s", name, version, TempSuffix))
	if err != nil {
		return "", fmt.Errorf("failed to create temp file: %w", err)
	}
	downloadPath := out.Name()

	tracker := progress.Start(f.observer, progress.ActivityTypeDownload,
		fmt.Sprintf("Downloading %s-%s", name, version), stream.ContentLength)
	startTime := time.Now()

	written, err := downloadLoop(ctx, &log, stream.Body, out, tracker)
	if closeErr := out.Close(); err == nil && closeErr != nil {
		err = &writeError{err: closeErr}
	}
	if err != nil {
		tracker.Fail(err)
		os.Remove(downloadPath)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		var wErr *writeError
		if errors.As(err, &wErr) {
			return "", err
		}
		return "", &crate.TransientNetworkError{Name: name, Version: version, URL: downloadURL, Err: err}
	}
	tracker.Complete()

	log.Info().
		Str("path", downloadPath).
		Int64("bytes", written).
		Dur("elapsed", time.Since(startTime)).
		Msg("Download completed")

	return downloadPath, nil
}

type writeError struct{ err error }

func (e *writeError) Error() string { return fmt.Sprintf("failed to write download: %v", e.err) }
func (e *writeError) Unwrap() error { return e.err }

func downloadLoop(ctx context.Context, log *zerolog.Logger, reader io.Reader, writer io.Writer, tracker *progress.Tracker) (int64, error) {
	var downloaded int64
	buf := make([]byte, ChunkSize)

	for {
		select {
		case <-ctx.Done():
			return downloaded, ctx.Err()
		default:
		}

		n, err := reader.Read(buf)
		if n > 0 {
			if _, writeErr := writer.Write(buf[:n]); writeErr != nil {
				log.Error().Err(writeErr).Int64("downloadedBytes", downloaded).Msg("Failed to write to download file")
				return downloaded, &writeError{err: writeErr}
			}
			downloaded += int64(n)
			tracker.Add(int64(n))
		}
		if err == io.EOF {
			return downloaded, nil
		}
		if err != nil {
			if ctx.Err() == nil {
				log.Error().Err(err).Int64("downloadedBytes", downloaded).Msg("Download read error")
			}
			return downloaded, fmt.Errorf("download read error: %w", err)
		}
	}
}
