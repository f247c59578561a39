// Package archive unpacks documentation archives into a destination tree.
package archive

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/dangattringer/rust-rag/internal/crate"
	"github.com/dangattringer/rust-rag/internal/progress"
)

// Extractor unpacks an archive into destRoot and returns the number of
// entries processed. It never removes the archive itself.
type Extractor interface {
	Extract(archivePath, destRoot string) (int, error)
}

// Format is a supported archive container.
type Format string

const (
	FormatUnknown Format = ""
	FormatZip     Format = "zip"
	FormatTarGz   Format = "tar.gz"
	FormatTarXz   Format = "tar.xz"
)

var signatures = []struct {
	magic  []byte
	format Format
}{
	{[]byte("PK\x03\x04"), FormatZip},
	{[]byte("PK\x05\x06"), FormatZip}, // empty zip
	{[]byte{0x1f, 0x8b}, FormatTarGz},
	{[]byte{0xfd, '7', 'z', 'X', 'Z', 0x00}, FormatTarXz},
}

// Detect identifies the archive format from its leading bytes.
func Detect(header []byte) Format {
	for _, sig := range signatures {
		if bytes.HasPrefix(header, sig.magic) {
			return sig.format
		}
	}
	return FormatUnknown
}

// DetectFile reads the leading bytes of path and identifies its format.
func DetectFile(path string) (Format, error) {
	f, err := os.Open(path)
	if err != nil {
		return FormatUnknown, err
	}
	defer f.Close()

	header := make([]byte, 6)
	n, err := io.ReadFull(f, header)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return FormatUnknown, err
	}
	return Detect(header[:n]), nil
}

// Sniffer is the default Extractor. It picks the container format from the
// archive's content rather than its name, since downloads are saved under
// a temporary name.
type Sniffer struct {
	observer progress.Observer
}

// New returns the default extractor. A nil observer discards progress.
func New(observer progress.Observer) *Sniffer {
	if observer == nil {
		observer = progress.Nop
	}
	return &Sniffer{observer: observer}
}

// Extract implements Extractor.
func (s *Sniffer) Extract(archivePath, destRoot string) (int, error) {
	format, err := DetectFile(archivePath)
	if err != nil {
		return 0, &crate.CorruptArchiveError{Archive: archivePath, Err: err}
	}

	if err := os.MkdirAll(destRoot, 0o755); err != nil {
		return 0, fmt.Errorf("failed to create destination %s: %w", destRoot, err)
	}

	title := "Extracting " + filepath.Base(archivePath)

	switch format {
	case FormatZip:
		return extractZip(archivePath, destRoot, s.observer, title)
	case FormatTarGz, FormatTarXz:
		return extractTar(archivePath, format, destRoot, s.observer, title)
	default:
		return 0, &crate.CorruptArchiveError{Archive: archivePath, Err: errors.New("unrecognized archive format")}
	}
}

// writeTracker remembers write failures so they can be told apart from
// read failures after an io.Copy.
type writeTracker struct {
	w   io.Writer
	err error
}

func (t *writeTracker) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)
	if err != nil {
		t.err = err
	}
	return n, err
}

// writeFile copies src into target. Read failures are reported as corrupt
// entries; write failures are returned as plain disk errors.
func writeFile(archivePath, entry, target string, mode os.FileMode, src io.Reader) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", target, err)
	}
	if mode.Perm() == 0 {
		mode = 0o644
	}

	out, err := os.OpenFile(target, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode.Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", target, err)
	}

	tw := &writeTracker{w: out}
	_, copyErr := io.Copy(tw, src)
	closeErr := out.Close()

	switch {
	case copyErr != nil && tw.err != nil:
		return fmt.Errorf("failed to write %s: %w", target, copyErr)
	case copyErr != nil:
		return &crate.CorruptArchiveError{Archive: archivePath, Entry: entry, Err: copyErr}
	case closeErr != nil:
		return fmt.Errorf("failed to write %s: %w", target, closeErr)
	}
	return nil
}
