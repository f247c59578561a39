package archive

import (
	"errors"
	"path"
	"strings"

	securejoin "github.com/cyphar/filepath-securejoin"
)

// cleanJoin resolves an archive entry name below root, rejecting names that
// try to escape it.
func cleanJoin(root, dest string) (string, error) {
	// Drive separator on Windows, list separator elsewhere.
	if strings.Contains(dest, ":") {
		return "", errors.New("path contains ':', which is illegal")
	}

	dest = strings.ReplaceAll(dest, "\\", "/")

	for _, part := range strings.Split(dest, "/") {
		if part == ".." {
			return "", errors.New("path contains '..', which is illegal")
		}
	}

	if path.IsAbs(dest) {
		return "", errors.New("path is absolute, which is illegal")
	}

	return securejoin.SecureJoin(root, dest)
}
