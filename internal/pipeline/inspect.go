package pipeline

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

// Summary describes an extracted documentation tree.
type Summary struct {
	Root      string
	HTMLFiles int
	Files     int
	Dirs      int
	Bytes     int64
}

// Inspect walks root and counts its files, HTML pages and bytes.
func Inspect(root string) (*Summary, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", root, err)
	}

	summary := &Summary{Root: abs}
	err = filepath.WalkDir(summary.Root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path != summary.Root {
				summary.Dirs++
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		summary.Files++
		summary.Bytes += fi.Size()
		if strings.EqualFold(filepath.Ext(path), ".html") {
			summary.HTMLFiles++
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to inspect %s: %w", root, err)
	}
	return summary, nil
}
