package crate

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/Masterminds/semver/v3"
)

var (
	versionPattern = regexp.MustCompile(`\d+\.\d+\.\d+`)

	// Requested versions become a path segment, so only semver characters
	// are allowed and at least one must be alphanumeric.
	versionChars = regexp.MustCompile(`^[0-9A-Za-z.+-]+$`)
	versionAlnum = regexp.MustCompile(`[0-9A-Za-z]`)
)

// ExtractVersion returns the first MAJOR.MINOR.PATCH substring of s.
func ExtractVersion(s string) (string, bool) {
	v := versionPattern.FindString(s)
	return v, v != ""
}

// ValidateVersion checks that v is a version docs.rs can serve.
func ValidateVersion(v string) error {
	v = strings.TrimSpace(v)
	if v == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidCrate)
	}
	if !versionChars.MatchString(v) || !versionAlnum.MatchString(v) {
		return fmt.Errorf("%w: version %q is not a version", ErrInvalidCrate, v)
	}
	return nil
}

// CompareVersions compares two version strings.
// Returns -1, 0 or 1, and ok=false when either side is not semver.
func CompareVersions(a, b string) (cmp int, ok bool) {
	va, err := semver.NewVersion(a)
	if err != nil {
		return 0, false
	}
	vb, err := semver.NewVersion(b)
	if err != nil {
		return 0, false
	}
	return va.Compare(vb), true
}

// DescribeMismatch explains how a requested version relates to the latest one.
func DescribeMismatch(requested, latest string) string {
	cmp, ok := CompareVersions(requested, latest)
	switch {
	case !ok:
		return fmt.Sprintf("requested version %s differs from latest %s", requested, latest)
	case cmp < 0:
		return fmt.Sprintf("requested version %s is older than latest %s", requested, latest)
	case cmp > 0:
		return fmt.Sprintf("requested version %s is newer than latest %s", requested, latest)
	default:
		return fmt.Sprintf("requested version %s matches latest %s", requested, latest)
	}
}
