package config

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/bytedance/sonic"
	"github.com/goccy/go-yaml"
	"github.com/pelletier/go-toml/v2"

	"github.com/GriffinCanCode/AgentOS/sdkloader/internal/loader"
)

// Manifest describes a module tree: its loader identity, resolution mapping
// and the modules to load eagerly.
type Manifest struct {
	ID      string            `json:"id,omitempty" yaml:"id,omitempty" toml:"id,omitempty"`
	Name    string            `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Paths   map[string]string `json:"paths,omitempty" yaml:"paths,omitempty" toml:"paths,omitempty"`
	Preload []string          `json:"preload,omitempty" yaml:"preload,omitempty" toml:"preload,omitempty"`
}

// Manifest formats, keyed by file extension.
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
	FormatTOML = "toml"
)

// LoadManifest reads and parses the manifest at path, choosing the format
// from its extension.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	format, err := formatOf(path)
	if err != nil {
		return nil, err
	}

	m, err := ParseManifest(data, format)
	if err != nil {
		return nil, fmt.Errorf("manifest %s: %w", path, err)
	}
	return m, nil
}

// ParseManifest decodes a manifest in the given format.
func ParseManifest(data []byte, format string) (*Manifest, error) {
	var m Manifest
	var err error

	switch format {
	case FormatJSON:
		err = sonic.Unmarshal(data, &m)
	case FormatYAML:
		err = yaml.Unmarshal(data, &m)
	case FormatTOML:
		err = toml.Unmarshal(data, &m)
	default:
		return nil, fmt.Errorf("unsupported manifest format %q", format)
	}
	if err != nil {
		return nil, fmt.Errorf("%s parse error: %w", format, err)
	}
	return &m, nil
}

func formatOf(path string) (string, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		return FormatJSON, nil
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".toml":
		return FormatTOML, nil
	default:
		return "", fmt.Errorf("unsupported manifest extension %q", filepath.Ext(path))
	}
}

// Apply layers the manifest over opts. Set fields replace, paths merge key
// by key.
func (m *Manifest) Apply(opts *loader.Options) {
	if m.ID != "" {
		opts.ID = m.ID
	}
	if m.Name != "" {
		if base, ok := opts.Paths[""]; ok && base == DefaultBase(opts.Name) {
			opts.Paths[""] = DefaultBase(m.Name)
		}
		opts.Name = m.Name
	}
	if len(m.Paths) > 0 && opts.Paths == nil {
		opts.Paths = make(map[string]string, len(m.Paths))
	}
	for prefix, base := range m.Paths {
		opts.Paths[prefix] = base
	}
}

// ExpandPreload matches patterns against fsys and returns the module ids of
// every matched .js file, sorted and without duplicates.
func ExpandPreload(fsys fs.FS, patterns []string) ([]string, error) {
	var ids []string
	for _, pattern := range patterns {
		if !doublestar.ValidatePattern(pattern) {
			return nil, fmt.Errorf("invalid preload pattern %q", pattern)
		}
		matches, err := doublestar.Glob(fsys, pattern, doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("expand preload %q: %w", pattern, err)
		}
		for _, match := range matches {
			if id, ok := strings.CutSuffix(match, ".js"); ok {
				ids = append(ids, id)
			}
		}
	}
	slices.Sort(ids)
	return slices.Compact(ids), nil
}
