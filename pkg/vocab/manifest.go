package vocab

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/mugpeng/droma-registry/pkg/harmonize"
)

// Manifest describes a vocabulary: what it names, where it came from, and
// how to read its data file.
type Manifest struct {
	ID        string         `yaml:"id" json:"id"`
	Kind      harmonize.Kind `yaml:"kind" json:"kind"`
	Version   string         `yaml:"version" json:"version"`
	Source    string         `yaml:"source" json:"source"`
	SourceURL string         `yaml:"source_url,omitempty" json:"source_url,omitempty"`
	License   string         `yaml:"license,omitempty" json:"license,omitempty"`
	DataFile  string         `yaml:"data_file" json:"data_file"`
	// Project is assigned to rows that carry no project column value.
	Project string     `yaml:"project,omitempty" json:"project,omitempty"`
	Format  FormatSpec `yaml:"format" json:"-"`
}

// FormatSpec describes the CSV layout.
type FormatSpec struct {
	Delimiter      string   `yaml:"delimiter,omitempty"`
	Encoding       string   `yaml:"encoding,omitempty"`
	HasHeader      bool     `yaml:"has_header"`
	NameColumn     string   `yaml:"name_column,omitempty"`
	IDColumn       string   `yaml:"id_column,omitempty"`
	ProjectColumn  string   `yaml:"project_column,omitempty"`
	AliasColumns   []string `yaml:"alias_columns,omitempty"`
	AliasSeparator string   `yaml:"alias_separator,omitempty"`
}

// LoadManifest reads and parses a manifest.yaml file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest %s: %w", path, err)
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest %s: %w", path, err)
	}
	if m.ID == "" {
		return nil, fmt.Errorf("manifest %s: missing id", path)
	}
	if err := m.Kind.Validate(); err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	if m.DataFile == "" {
		m.DataFile = "data.csv"
	}
	return &m, nil
}

// WriteManifest writes m as YAML to dir/manifest.yaml.
func WriteManifest(dir string, m *Manifest) error {
	data, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "manifest.yaml"), data, 0o644)
}
