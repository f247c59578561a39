// Package pipeline runs a documentation download from version resolution
// to an extracted tree on disk, and always cleans up after itself.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/dangattringer/rust-rag/internal/archive"
	"github.com/dangattringer/rust-rag/internal/crate"
	"github.com/dangattringer/rust-rag/internal/logger"
)

const lockRetryDelay = 250 * time.Millisecond

// Resolver picks the version of a crate to download.
type Resolver interface {
	Resolve(ctx context.Context, name, version string) (*crate.Crate, error)
}

// Fetcher downloads a documentation archive to a temp file and returns its path.
type Fetcher interface {
	FetchArtifact(ctx context.Context, name, version string) (string, error)
}

// Service orchestrates resolve, fetch and extract.
type Service struct {
	resolver  Resolver
	fetcher   Fetcher
	extractor archive.Extractor
	tempDir   string
	logger    zerolog.Logger
	remove    func(string) error

	mu    sync.RWMutex
	state State
}

// NewService creates a pipeline. An empty tempDir means the system default.
func NewService(resolver Resolver, fetcher Fetcher, extractor archive.Extractor, tempDir string, log zerolog.Logger) *Service {
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &Service{
		resolver:  resolver,
		fetcher:   fetcher,
		extractor: extractor,
		tempDir:   tempDir,
		logger:    log,
		remove:    os.Remove,
		state:     StateIdle,
	}
}

// State returns the last state the service reached.
func (s *Service) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Service) setState(state State) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Download fetches and extracts the documentation of name into
// outputPath/name/version. An empty version means the latest one; an empty
// outputPath means the current directory.
//
// The temp archive is removed on every exit path, and so are destination
// directories left empty.
func (s *Service) Download(ctx context.Context, name, version, outputPath string) (c *crate.Crate, err error) {
	ctx = logger.StartRun(ctx, "crate", name)
	log := logger.ForRun(ctx, s.logger)
	startTime := time.Now()

	defer func() {
		state := StateFor(err)
		s.setState(state)
		if err != nil {
			log.Error().Err(err).Str("state", string(state)).Msg("Documentation download failed")
		}
	}()

	if outputPath == "" {
		if outputPath, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to determine working directory: %w", err)
		}
	}
	outputPath = filepath.Clean(outputPath)

	s.setState(StateResolving)
	c, err = s.resolver.Resolve(ctx, name, version)
	if err != nil {
		return nil, err
	}
	// The version becomes a path segment below outputPath.
	if err = crate.ValidateVersion(c.Version); err != nil {
		return nil, err
	}
	ctx = logger.AddRunField(ctx, "version", c.Version)
	log = logger.ForRun(ctx, s.logger)
	log.Info().Str("latest", c.LatestVersion).Msg("Resolved crate version")

	unlock, err := s.lock(ctx, log, c)
	if err != nil {
		return nil, err
	}
	defer unlock()

	var archivePath string
	dest := filepath.Join(outputPath, c.Name(), c.Version)

	defer func() {
		s.cleanup(log, archivePath, outputPath, dest)
	}()

	s.setState(StateFetching)
	archivePath, err = s.fetcher.FetchArtifact(ctx, c.Name(), c.Version)
	if err != nil {
		return nil, err
	}

	s.setState(StateExtracting)
	if err = os.MkdirAll(dest, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create destination %s: %w", dest, err)
	}
	entries, err := s.extractor.Extract(archivePath, dest)
	if err != nil {
		return nil, err
	}

	c.OutputPath = dest
	c.Entries = entries

	log.Info().
		Str("path", dest).
		Int("entries", entries).
		Bool("latest", c.IsLatest()).
		Dur("elapsed", time.Since(startTime)).
		Msg("Documentation downloaded")

	return c, nil
}

// lock serializes runs targeting the same name@version on this machine.
func (s *Service) lock(ctx context.Context, log zerolog.Logger, c *crate.Crate) (func(), error) {
	lockPath := filepath.Join(s.tempDir, fmt.Sprintf("rust-rag-%s-%s.lock", c.Name(), c.Version))
	fileLock := flock.New(lockPath)

	locked, err := fileLock.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s", lockPath)
	}

	// The lock file is left in place; removing it would let a waiting run
	// lock a different inode than a newly started one.
	return func() {
		if err := fileLock.Unlock(); err != nil {
			log.Warn().Err(err).Str("path", lockPath).Msg("Failed to release lock")
		}
	}, nil
}

// cleanup removes the temp archive and destination directories left empty.
// Only directories strictly below outputPath are candidates. Problems are
// logged, never returned.
func (s *Service) cleanup(log zerolog.Logger, archivePath, outputPath, dest string) {
	var result *multierror.Error

	if archivePath != "" {
		if err := s.remove(archivePath); err != nil && !errors.Is(err, os.ErrNotExist) {
			result = multierror.Append(result, &crate.CleanupWarning{Path: archivePath, Err: err})
		} else if err == nil {
			log.Debug().Str("path", archivePath).Msg("Removed temp archive")
		}
	}

	for _, dir := range []string{dest, filepath.Dir(dest)} {
		if !isBelow(outputPath, dir) {
			log.Warn().Str("path", dir).Str("output", outputPath).Msg("Refusing to remove directory outside output path")
			break
		}
		if err := s.removeIfEmpty(dir); err != nil {
			result = multierror.Append(result, &crate.CleanupWarning{Path: dir, Err: err})
			break
		}
	}

	if err := result.ErrorOrNil(); err != nil {
		log.Warn().Err(err).Msg("Cleanup incomplete")
	}
}

// isBelow reports whether path lies strictly inside root.
func isBelow(root, path string) bool {
	rel, err := filepath.Rel(root, filepath.Clean(path))
	if err != nil || rel == "." {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// removeIfEmpty removes dir when it exists and has no entries.
func (s *Service) removeIfEmpty(dir string) error {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if len(entries) > 0 {
		return nil
	}
	return s.remove(dir)
}
