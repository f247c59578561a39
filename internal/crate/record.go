package crate

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Record is the on-disk form of a resolved Crate.
type Record struct {
	Name             string    `yaml:"name"`
	RequestedVersion string    `yaml:"requested_version,omitempty"`
	Version          string    `yaml:"version"`
	LatestVersion    string    `yaml:"latest_version,omitempty"`
	OutputPath       string    `yaml:"output_path,omitempty"`
	Entries          int       `yaml:"entries,omitempty"`
	SavedAt          time.Time `yaml:"saved_at"`
}

// RecordPath returns the file a crate's record is saved to inside dir.
func RecordPath(dir, name string) string {
	return filepath.Join(dir, name+".yaml")
}

// ToRecord converts the crate to its on-disk form.
func (c *Crate) ToRecord() Record {
	return Record{
		Name:             c.name,
		RequestedVersion: c.RequestedVersion,
		Version:          c.Version,
		LatestVersion:    c.LatestVersion,
		OutputPath:       c.OutputPath,
		Entries:          c.Entries,
	}
}

// FromRecord rebuilds a Crate, applying the same name rules as New.
func FromRecord(r Record) (*Crate, error) {
	c, err := New(r.Name, r.RequestedVersion)
	if err != nil {
		return nil, err
	}
	c.Version = r.Version
	c.LatestVersion = r.LatestVersion
	c.OutputPath = r.OutputPath
	c.Entries = r.Entries
	return c, nil
}

// Save writes the crate as YAML to {dir}/{name}.yaml and returns the path.
func (c *Crate) Save(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create record directory: %w", err)
	}

	rec := c.ToRecord()
	rec.SavedAt = time.Now().UTC().Truncate(time.Second)

	data, err := yaml.Marshal(&rec)
	if err != nil {
		return "", fmt.Errorf("failed to encode record: %w", err)
	}

	path := RecordPath(dir, c.name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", fmt.Errorf("failed to write record: %w", err)
	}
	return path, nil
}

// Load reads a crate record written by Save.
func Load(path string) (*Crate, *Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read record: %w", err)
	}

	var rec Record
	if err := yaml.Unmarshal(data, &rec); err != nil {
		return nil, nil, fmt.Errorf("failed to decode record %s: %w", path, err)
	}

	c, err := FromRecord(rec)
	if err != nil {
		return nil, nil, fmt.Errorf("invalid record %s: %w", path, err)
	}
	return c, &rec, nil
}
