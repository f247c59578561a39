// Package crate holds the Crate entity that flows through the download
// pipeline, the error kinds every stage reports, and version helpers.
package crate

import (
	"fmt"
	"strings"
)

// Crate is a named package whose documentation is being fetched.
//
// Name is fixed at construction. Version stays empty until resolution
// succeeds and OutputPath stays empty until extraction succeeds.
type Crate struct {
	name string

	RequestedVersion string
	Version          string
	LatestVersion    string
	OutputPath       string
	Entries          int
}

// New creates a Crate. An empty requested version means "latest".
func New(name, requestedVersion string) (*Crate, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidCrate)
	}
	if strings.ContainsAny(name, "/\\") || name == "." || name == ".." {
		return nil, fmt.Errorf("%w: name %q is not a crate name", ErrInvalidCrate, name)
	}
	return &Crate{
		name:             name,
		RequestedVersion: strings.TrimSpace(requestedVersion),
	}, nil
}

// Name returns the crate name.
func (c *Crate) Name() string {
	return c.name
}

// Ready reports whether the crate has a resolved version and can be downloaded.
func (c *Crate) Ready() bool {
	return c.Version != ""
}

// IsLatest reports whether the resolved version is the latest published one.
// Unknown latest versions count as not latest.
func (c *Crate) IsLatest() bool {
	return c.LatestVersion != "" && c.Version == c.LatestVersion
}

// ID returns "name@version", or just the name before resolution.
func (c *Crate) ID() string {
	if c.Version == "" {
		return c.name
	}
	return c.name + "@" + c.Version
}

func (c *Crate) String() string {
	return fmt.Sprintf("Crate:\n    name: %s\n    version: %s\n    latest_version: %s",
		c.name, orNone(c.Version), orNone(c.LatestVersion))
}

func orNone(s string) string {
	if s == "" {
		return "none"
	}
	return s
}
