package yaml

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/pkginspect/internal/domain/entities"
)

// ManifestFile is the name of the metadata file in every package directory
const ManifestFile = "package.yaml"

// sourceArch is the architecture reported for source packages
const sourceArch = "src"

// yamlManifest represents the raw YAML structure of a package manifest
type yamlManifest struct {
	Name       string                   `yaml:"name"`
	Version    string                   `yaml:"version"`
	Release    string                   `yaml:"release"`
	Arch       string                   `yaml:"arch"`
	Source     bool                     `yaml:"source"`
	Sources    []string                 `yaml:"sources"`
	Scriptlets map[string]yamlScriptlet `yaml:"scriptlets"`
}

type yamlScriptlet struct {
	Interpreter string `yaml:"interpreter"`
	Body        string `yaml:"body"`
}

// Manifest is the parsed header of one package. It is the opaque
// entities.Header handed to inspections and read back by HeaderReader.
type Manifest struct {
	tags    map[entities.Tag]string
	sources []string
	source  bool
}

// hookKey is the manifest key for a lifecycle hook, e.g. "%post" -> "post"
func hookKey(hook entities.ScriptletHook) string {
	return strings.TrimPrefix(hook.Name, "%")
}

// ParseManifestFile parses a package manifest file
func ParseManifestFile(filePath string) (*Manifest, error) {
	//nolint:gosec // G304: filePath is a manifest inside a package directory
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}

	return ParseManifest(data)
}

// ParseManifest parses YAML bytes into a Manifest
func ParseManifest(data []byte) (*Manifest, error) {
	var raw yamlManifest
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if raw.Name == "" {
		return nil, fmt.Errorf("package manifest must have a name")
	}

	arch := raw.Arch
	if raw.Source {
		arch = sourceArch
	} else if arch == "" {
		arch = "noarch"
	}

	m := &Manifest{
		tags: map[entities.Tag]string{
			entities.TagName:    raw.Name,
			entities.TagVersion: raw.Version,
			entities.TagRelease: raw.Release,
			entities.TagArch:    arch,
		},
		sources: raw.Sources,
		source:  raw.Source,
	}

	known := make(map[string]entities.ScriptletHook, len(entities.ScriptletHooks))
	for _, hook := range entities.ScriptletHooks {
		known[hookKey(hook)] = hook
	}

	for key, s := range raw.Scriptlets {
		hook, ok := known[key]
		if !ok {
			return nil, fmt.Errorf("unknown scriptlet hook %q", key)
		}
		m.tags[hook.BodyTag] = s.Body
		if s.Interpreter != "" {
			m.tags[hook.InterTag] = s.Interpreter
		}
	}

	return m, nil
}

// HeaderReader reads tags from manifests. It implements gateways.HeaderReader.
type HeaderReader struct{}

// NewHeaderReader creates a new manifest header reader
func NewHeaderReader() *HeaderReader {
	return &HeaderReader{}
}

// TagString returns a string-valued tag
func (r *HeaderReader) TagString(h entities.Header, tag entities.Tag) (string, bool) {
	m, ok := h.(*Manifest)
	if !ok || m == nil {
		return "", false
	}
	v, ok := m.tags[tag]
	return v, ok
}

// TagStrings returns a list-valued tag; only the declared sources are lists
func (r *HeaderReader) TagStrings(h entities.Header, tag entities.Tag) []string {
	m, ok := h.(*Manifest)
	if !ok || m == nil || tag != entities.TagSource {
		return nil
	}
	return m.sources
}

// IsSource reports whether the manifest describes a source package
func (r *HeaderReader) IsSource(h entities.Header) bool {
	m, ok := h.(*Manifest)
	return ok && m != nil && m.source
}

// Arch returns the architecture string
func (r *HeaderReader) Arch(h entities.Header) string {
	v, _ := r.TagString(h, entities.TagArch)
	return v
}
