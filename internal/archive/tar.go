package archive

import (
	"archive/tar"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
	"github.com/ulikunitz/xz"

	"github.com/dangattringer/rust-rag/internal/crate"
	"github.com/dangattringer/rust-rag/internal/progress"
)

func extractTar(archivePath string, format Format, destRoot string, observer progress.Observer, title string) (int, error) {
	f, err := os.Open(archivePath)
	if err != nil {
		return 0, &crate.CorruptArchiveError{Archive: archivePath, Err: err}
	}
	defer f.Close()

	var r io.Reader
	switch format {
	case FormatTarGz:
		gz, err := gzip.NewReader(f)
		if err != nil {
			return 0, &crate.CorruptArchiveError{Archive: archivePath, Err: err}
		}
		defer gz.Close()
		r = gz
	case FormatTarXz:
		xr, err := xz.NewReader(f)
		if err != nil {
			return 0, &crate.CorruptArchiveError{Archive: archivePath, Err: err}
		}
		r = xr
	default:
		return 0, &crate.CorruptArchiveError{Archive: archivePath, Err: fmt.Errorf("unsupported format %q", format)}
	}

	// Tarballs are streamed, so the entry total is unknown up front.
	tracker := progress.Start(observer, progress.ActivityTypeExtract, title, 0)

	tr := tar.NewReader(r)
	count := 0
	for {
		header, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if errors.Is(err, tar.ErrInsecurePath) {
			// The header is still valid; cleanJoin reports the entry.
			err = nil
		}
		if err != nil {
			cerr := &crate.CorruptArchiveError{Archive: archivePath, Err: err}
			tracker.Fail(cerr)
			return count, cerr
		}

		if err := extractTarEntry(archivePath, destRoot, header, tr); err != nil {
			tracker.Fail(err)
			return count, err
		}
		count++
		tracker.Add(1)
	}

	tracker.Complete()
	return count, nil
}

func extractTarEntry(archivePath, destRoot string, header *tar.Header, r io.Reader) error {
	target, err := cleanJoin(destRoot, header.Name)
	if err != nil {
		return &crate.CorruptArchiveError{Archive: archivePath, Entry: header.Name, Err: err}
	}

	switch header.Typeflag {
	case tar.TypeDir:
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", target, err)
		}
	case tar.TypeReg:
		return writeFile(archivePath, header.Name, target, header.FileInfo().Mode(), r)
	default:
		// Links and special files are skipped but still counted.
	}
	return nil
}
