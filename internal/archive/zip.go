package archive

import (
	"fmt"
	"os"

	"github.com/klauspost/compress/zip"

	"github.com/dangattringer/rust-rag/internal/crate"
	"github.com/dangattringer/rust-rag/internal/progress"
)

func extractZip(archivePath, destRoot string, observer progress.Observer, title string) (int, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return 0, &crate.CorruptArchiveError{Archive: archivePath, Err: err}
	}
	defer r.Close()

	tracker := progress.Start(observer, progress.ActivityTypeExtract, title, int64(len(r.File)))

	count := 0
	for _, f := range r.File {
		if err := extractZipEntry(archivePath, destRoot, f); err != nil {
			tracker.Fail(err)
			return count, err
		}
		count++
		tracker.Add(1)
	}

	tracker.Complete()
	return count, nil
}

func extractZipEntry(archivePath, destRoot string, f *zip.File) error {
	target, err := cleanJoin(destRoot, f.Name)
	if err != nil {
		return &crate.CorruptArchiveError{Archive: archivePath, Entry: f.Name, Err: err}
	}

	info := f.FileInfo()
	switch {
	case info.IsDir():
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", target, err)
		}
		return nil
	case !info.Mode().IsRegular():
		// Symlinks and devices are not part of a documentation tree.
		return nil
	}

	rc, err := f.Open()
	if err != nil {
		return &crate.CorruptArchiveError{Archive: archivePath, Entry: f.Name, Err: err}
	}
	defer rc.Close()

	return writeFile(archivePath, f.Name, target, info.Mode(), rc)
}
