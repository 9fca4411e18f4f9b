package release

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// ValidationError describes the first problem found in a manifest.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid manifest: %s: %s", e.Field, e.Message)
}

// Load reads a YAML manifest from path.
func Load(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	m, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

// Parse decodes a YAML manifest. Fields left empty are taken from Default,
// then the result is validated.
func Parse(data []byte) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	d := Default()
	if m.Name == "" {
		m.Name = d.Name
	}
	if m.Description == "" {
		m.Description = d.Description
	}
	if m.Homepage == "" {
		m.Homepage = d.Homepage
	}
	if m.Version == "" && len(m.Artifacts) == 0 {
		m.Version = d.Version
	}
	if len(m.Artifacts) == 0 {
		m.Artifacts = d.WithVersion(m.Version).Artifacts
	}
	if m.DependsOn == nil {
		m.DependsOn = d.DependsOn
	}
	if len(m.Test.Args) == 0 {
		m.Test.Args = d.Test.Args
	}
	if m.Test.Contains == "" {
		m.Test.Contains = d.Test.Contains
	}
	if m.Caveats == "" {
		m.Caveats = d.Caveats
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks the manifest for an empty version, bad URLs and duplicate
// platform entries.
func (m *Manifest) Validate() error {
	if strings.TrimSpace(m.Version) == "" {
		return &ValidationError{Field: "version", Message: "must not be empty"}
	}
	if len(m.Artifacts) == 0 {
		return &ValidationError{Field: "artifacts", Message: "at least one artifact is required"}
	}

	seen := make(map[Platform]int)
	for i, a := range m.Artifacts {
		field := fmt.Sprintf("artifacts[%d]", i)

		p, err := PlatformFor(a.OS, a.Arch)
		if err != nil {
			return &ValidationError{Field: field + ".os", Message: err.Error()}
		}
		if prev, dup := seen[p]; dup {
			return &ValidationError{
				Field:   field,
				Message: fmt.Sprintf("duplicate entry for %s (also artifacts[%d])", p, prev),
			}
		}
		seen[p] = i

		u, err := url.Parse(a.URL)
		if err != nil || u.Scheme != "https" || u.Host == "" {
			return &ValidationError{Field: field + ".url", Message: fmt.Sprintf("must be an https URL, got %q", a.URL)}
		}

		// An empty checksum defers verification to the release checksums.txt.
		if a.SHA256 != "" && !PlaceholderChecksum(a.SHA256) && !isHexDigest(a.SHA256) {
			return &ValidationError{Field: field + ".sha256", Message: "must be 64 hex characters"}
		}
	}
	return nil
}

// WithVersion returns a copy of m whose artifact URLs point at another
// release tag. Digests belong to a single release, so retargeting to a
// different version clears them; that release's checksums.txt is the source
// of truth instead.
func (m *Manifest) WithVersion(version string) *Manifest {
	out := *m
	oldTag := Tag(m.Version)
	newTag := Tag(version)
	out.Version = strings.TrimPrefix(version, "v")
	out.Artifacts = make([]Artifact, len(m.Artifacts))
	for i, a := range m.Artifacts {
		if oldTag != newTag {
			a.URL = strings.Replace(a.URL, "/download/"+oldTag+"/", "/download/"+newTag+"/", 1)
			a.SHA256 = ""
		}
		out.Artifacts[i] = a
	}
	out.DependsOn = append([]string(nil), m.DependsOn...)
	out.Test.Args = append([]string(nil), m.Test.Args...)
	return &out
}

func isHexDigest(s string) bool {
	if len(s) != 64 {
		return false
	}
	for _, c := range s {
		switch {
		case c >= '0' && c <= '9', c >= 'a' && c <= 'f', c >= 'A' && c <= 'F':
		default:
			return false
		}
	}
	return true
}
