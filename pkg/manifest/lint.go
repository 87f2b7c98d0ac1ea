package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Violation is one lint finding. Rule names the check that produced it
// so `buffrs lint` output can be grouped or filtered by rule.
type Violation struct {
	Rule    string
	Message string
	Help    string
}

// Lint runs the manifest and package hygiene rules against the package
// rooted at dir. It does not parse .proto file contents — the protobuf
// lint rule engine is an external collaborator per spec §1 — only the
// package id, its manifest fields, and the proto/ directory layout are
// inspected.
func Lint(dir string, m *Manifest) ([]Violation, error) {
	if m.Package == nil {
		return nil, nil
	}

	var violations []Violation
	violations = append(violations, lintPackageID(m.Package)...)
	violations = append(violations, lintDescription(m.Package)...)

	protoFiles, err := listProtoFiles(filepath.Join(dir, "proto"))
	if err != nil {
		return nil, fmt.Errorf("list proto files: %w", err)
	}
	violations = append(violations, lintFileName(m.Package, protoFiles)...)
	violations = append(violations, lintPackageHierarchy(m.Package, protoFiles)...)

	return violations, nil
}

func lintPackageID(p *Package) []Violation {
	if err := ValidatePackageID(p.ID); err != nil {
		return []Violation{{
			Rule:    "PackageId",
			Message: err.Error(),
			Help:    "Package ids must start with a lowercase letter and contain only lowercase letters, digits, hyphens and underscores.",
		}}
	}
	return nil
}

func lintDescription(p *Package) []Violation {
	if strings.TrimSpace(p.Description) == "" {
		return []Violation{{
			Rule:    "Description",
			Message: fmt.Sprintf("package %q has no description", p.ID),
			Help:    "Add a description field to [package] so consumers can tell what this package is for.",
		}}
	}
	return nil
}

// idSegments splits a package id on hyphens and underscores into the
// hierarchy segments the FileName and PackageHierarchy rules expect,
// e.g. "physics-rotation" -> ["physics", "rotation"].
func idSegments(id string) []string {
	return strings.FieldsFunc(id, func(r rune) bool { return r == '-' || r == '_' })
}

// lintFileName checks that a package's own name is reflected by at
// least one file anywhere under proto/ whose base name is the id's last
// segment plus ".proto", mirroring the convention that a package named
// "physics" should own a proto/physics.proto.
func lintFileName(p *Package, protoFiles []string) []Violation {
	segments := idSegments(p.ID)
	if len(segments) == 0 {
		return nil
	}
	want := segments[len(segments)-1] + ".proto"
	for _, f := range protoFiles {
		if filepath.Base(f) == want {
			return nil
		}
	}
	if len(protoFiles) == 0 {
		return nil
	}
	return []Violation{{
		Rule:    "FileName",
		Message: fmt.Sprintf("no proto file named %q found for package %q", want, p.ID),
		Help:    "Name the file matching the package, e.g. a package called physics should be stored in proto/physics.proto.",
	}}
}

// lintPackageHierarchy checks that a multi-segment package id, e.g.
// "physics-rotation", nests its non-root files under a matching proto/
// subdirectory, e.g. proto/rotation/*.proto.
func lintPackageHierarchy(p *Package, protoFiles []string) []Violation {
	segments := idSegments(p.ID)
	if len(segments) < 2 {
		return nil
	}
	expectedDir := filepath.Join(segments[1:]...)

	var violations []Violation
	for _, f := range protoFiles {
		dir := filepath.Dir(f)
		if dir == "." {
			continue
		}
		if dir != expectedDir && !strings.HasPrefix(dir, expectedDir+string(filepath.Separator)) {
			violations = append(violations, Violation{
				Rule:    "PackageHierarchy",
				Message: fmt.Sprintf("expected file %s to live under proto/%s", f, expectedDir),
				Help:    "Package hierarchy should be mirrored in folder structure, e.g. physics-rotation should live under proto/rotation.",
			})
		}
	}
	return violations
}

// listProtoFiles returns every *.proto path under dir, relative to dir,
// using the OS path separator. A missing directory yields an empty list.
func listProtoFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) {
				return nil
			}
			return walkErr
		}
		if d.IsDir() || !strings.HasSuffix(path, ".proto") {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		files = append(files, rel)
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}
