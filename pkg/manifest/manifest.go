// Package manifest parses, validates and serializes the Proto.toml
// document: the declarative description of a package or a workspace.
package manifest

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/pelletier/go-toml/v2"
)

// Editions supported by this implementation. Parsing a manifest whose
// edition is not in this set fails with EditionUnsupported.
var SupportedEditions = []string{"0.10"}

// PackageKind classifies what a package may depend on and whether it is
// publishable.
type PackageKind string

const (
	Library PackageKind = "lib"
	Api     PackageKind = "api"
	Impl    PackageKind = "impl"
)

// Package is the `[package]` section of a manifest.
type Package struct {
	Kind        PackageKind
	ID          string
	Version     version.Version
	Description string
}

// Workspace is the `[workspace]` section of a manifest.
type Workspace struct {
	Members []string
}

// RegistrySource is a dependency fetched from a remote registry.
type RegistrySource struct {
	URL         string
	Repository  string
	Requirement version.Requirement
}

// LocalSource is a dependency read from a filesystem path, relative to
// the manifest that declares it.
type LocalSource struct {
	Path string
}

// DependencySource is the tagged union of where a dependency's bytes
// come from. Exactly one of Registry or Local is set.
type DependencySource struct {
	Registry *RegistrySource
	Local    *LocalSource
}

// IsLocal reports whether the dependency resolves from the filesystem.
func (d DependencySource) IsLocal() bool { return d.Local != nil }

// Manifest is the parsed, validated logical model of a Proto.toml
// document. Exactly one of Package or Workspace may be set; both nil
// describes a bare consumer manifest declaring only dependencies.
type Manifest struct {
	Edition      string
	Package      *Package
	Workspace    *Workspace
	Dependencies map[string]DependencySource

	// Extra holds top-level keys this edition doesn't recognize. They
	// are round-tripped verbatim by Marshal so that editing a manifest
	// written by a newer buffrs release never silently drops a field
	// this implementation hasn't caught up to yet.
	Extra map[string]any
}

// knownTopLevelKeys are the Proto.toml sections this implementation
// understands; anything else parses into Manifest.Extra.
var knownTopLevelKeys = map[string]bool{
	"edition":      true,
	"package":      true,
	"workspace":    true,
	"dependencies": true,
}

// wire structs mirror the on-disk shape and are only used at the decode
// boundary; go-toml/v2 handles their quoting, escaping and inline-table
// parsing. Encoding is done by hand in Marshal, since go-toml/v2 does not
// guarantee sorted-key emission for map fields and the archive/lockfile
// determinism properties require it.
type wireManifest struct {
	Edition      string                   `toml:"edition"`
	Package      *wirePackage             `toml:"package,omitempty"`
	Workspace    *wireWorkspace           `toml:"workspace,omitempty"`
	Dependencies map[string]wireDependency `toml:"dependencies,omitempty"`
}

type wirePackage struct {
	Type        string `toml:"type"`
	Name        string `toml:"name"`
	Version     string `toml:"version"`
	Description string `toml:"description,omitempty"`
}

type wireWorkspace struct {
	Members []string `toml:"members"`
}

type wireDependency struct {
	Version    string `toml:"version,omitempty"`
	Registry   string `toml:"registry,omitempty"`
	Repository string `toml:"repository,omitempty"`
	Path       string `toml:"path,omitempty"`
}

// Parse decodes a Proto.toml document and validates its structural
// invariants (edition support, kind coherence, dependency source shape).
func Parse(data []byte) (*Manifest, error) {
	var wire wireManifest
	if err := toml.Unmarshal(data, &wire); err != nil {
		return nil, fmt.Errorf("%w: %s", MalformedManifest, err)
	}

	var raw map[string]any
	if err := toml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %s", MalformedManifest, err)
	}
	var extra map[string]any
	for k, v := range raw {
		if knownTopLevelKeys[k] {
			continue
		}
		if extra == nil {
			extra = make(map[string]any)
		}
		extra[k] = v
	}

	m := &Manifest{
		Edition:      wire.Edition,
		Dependencies: make(map[string]DependencySource, len(wire.Dependencies)),
		Extra:        extra,
	}

	if wire.Package != nil {
		v, err := version.Parse(wire.Package.Version)
		if err != nil {
			return nil, fmt.Errorf("%w: package version: %s", MalformedManifest, err)
		}
		m.Package = &Package{
			Kind:        PackageKind(wire.Package.Type),
			ID:          wire.Package.Name,
			Version:     v,
			Description: wire.Package.Description,
		}
	}

	if wire.Workspace != nil {
		m.Workspace = &Workspace{Members: wire.Workspace.Members}
	}

	for id, dep := range wire.Dependencies {
		src, err := decodeDependency(dep)
		if err != nil {
			return nil, fmt.Errorf("dependency %q: %w", id, err)
		}
		m.Dependencies[id] = src
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

func decodeDependency(dep wireDependency) (DependencySource, error) {
	hasPath := dep.Path != ""
	hasRegistryFields := dep.Version != "" || dep.Registry != "" || dep.Repository != ""

	switch {
	case hasPath && hasRegistryFields:
		return DependencySource{}, DependencySourceAmbiguous
	case hasPath:
		return DependencySource{Local: &LocalSource{Path: dep.Path}}, nil
	case hasRegistryFields:
		req, err := version.ParseRequirement(dep.Version)
		if err != nil {
			return DependencySource{}, fmt.Errorf("%w: %s", MalformedManifest, err)
		}
		return DependencySource{Registry: &RegistrySource{
			URL:         dep.Registry,
			Repository:  dep.Repository,
			Requirement: req,
		}}, nil
	default:
		return DependencySource{}, DependencySourceAmbiguous
	}
}

// Validate checks edition support and kind/field coherence. Publish-only
// checks (ApiDependsOnApi, ImplNotPublishable) are the caller's
// responsibility since they require the resolved dependency graph.
func (m *Manifest) Validate() error {
	if m.Package != nil && m.Edition == "" {
		return EditionMissing
	}
	if m.Edition != "" && !supportedEdition(m.Edition) {
		return &EditionUnsupported{Found: m.Edition, Supported: SupportedEditions}
	}
	if m.Package != nil && m.Workspace != nil {
		return fmt.Errorf("%w: manifest declares both [package] and [workspace]", MalformedManifest)
	}
	if m.Package != nil && m.Package.Kind == Library && len(m.Dependencies) > 0 {
		return LibraryHasDependencies
	}
	return nil
}

func supportedEdition(edition string) bool {
	for _, e := range SupportedEditions {
		if e == edition {
			return true
		}
	}
	return false
}

// ValidateForPublish additionally enforces the two invariants that only
// matter when a package is about to be uploaded: Impl packages are never
// publishable, and Api packages must not depend on another package whose
// resolved kind is Api. depKinds maps each direct dependency's id to its
// resolved PackageKind.
func (m *Manifest) ValidateForPublish(depKinds map[string]PackageKind) error {
	if m.Package == nil {
		return fmt.Errorf("%w: manifest has no [package] section", MalformedManifest)
	}
	if m.Package.Kind == Impl {
		return ImplNotPublishable
	}
	if m.Package.Kind == Api {
		for id, kind := range depKinds {
			if kind == Api {
				return fmt.Errorf("%w: dependency %q", ApiDependsOnApi, id)
			}
		}
	}
	return nil
}

// Marshal serializes m back into its canonical Proto.toml form. Field
// and dependency-key ordering is fixed so that parse(serialize(m)) == m
// and repeated serialization of an unchanged manifest is byte-identical.
func Marshal(m *Manifest) ([]byte, error) {
	var b strings.Builder

	fmt.Fprintf(&b, "edition = %s\n", quoteString(m.Edition))

	if m.Package != nil {
		b.WriteString("\n[package]\n")
		fmt.Fprintf(&b, "type = %s\n", quoteString(string(m.Package.Kind)))
		fmt.Fprintf(&b, "name = %s\n", quoteString(m.Package.ID))
		fmt.Fprintf(&b, "version = %s\n", quoteString(m.Package.Version.String()))
		if m.Package.Description != "" {
			fmt.Fprintf(&b, "description = %s\n", quoteString(m.Package.Description))
		}
	}

	if m.Workspace != nil {
		b.WriteString("\n[workspace]\n")
		b.WriteString("members = [")
		for i, member := range m.Workspace.Members {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(quoteString(member))
		}
		b.WriteString("]\n")
	}

	if len(m.Dependencies) > 0 {
		b.WriteString("\n[dependencies]\n")
		ids := make([]string, 0, len(m.Dependencies))
		for id := range m.Dependencies {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			dep := m.Dependencies[id]
			if dep.IsLocal() {
				fmt.Fprintf(&b, "%s = { path = %s }\n", quoteKey(id), quoteString(dep.Local.Path))
			} else {
				r := dep.Registry
				fmt.Fprintf(&b, "%s = { version = %s, registry = %s, repository = %s }\n",
					quoteKey(id), quoteString(r.Requirement.String()), quoteString(r.URL), quoteString(r.Repository))
			}
		}
	}

	if len(m.Extra) > 0 {
		keys := make([]string, 0, len(m.Extra))
		for k := range m.Extra {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			data, err := toml.Marshal(map[string]any{k: m.Extra[k]})
			if err != nil {
				return nil, fmt.Errorf("marshal preserved field %q: %w", k, err)
			}
			b.WriteString("\n")
			b.Write(data)
		}
	}

	return []byte(b.String()), nil
}

func quoteString(s string) string {
	return strconv.Quote(s)
}

func quoteKey(key string) string {
	for _, r := range key {
		if !(r == '_' || r == '-' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')) {
			return quoteString(key)
		}
	}
	return key
}
