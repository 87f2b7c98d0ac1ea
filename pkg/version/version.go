// Package version wraps semantic version parsing and requirement matching
// for proto packages. Comparison and constraint evaluation delegate to
// hashicorp/go-version; the `~` and `^` requirement shorthands are
// desugared by hand before being handed to it, since go-version's own
// constraint grammar has no caret or bare-tilde operators.
package version

import (
	"fmt"
	"strings"

	hcversion "github.com/hashicorp/go-version"
)

// Version is a parsed semantic version.
type Version struct {
	v *hcversion.Version
}

// Parse parses a semantic version string such as "1.2.3" or "1.2.3-rc.1".
func Parse(s string) (Version, error) {
	v, err := hcversion.NewVersion(s)
	if err != nil {
		return Version{}, fmt.Errorf("parse version %q: %w", s, err)
	}
	return Version{v: v}, nil
}

// String returns the canonical string form of the version.
func (v Version) String() string {
	if v.v == nil {
		return ""
	}
	return v.v.String()
}

// Prerelease returns the pre-release component, or "" for a release version.
func (v Version) Prerelease() string {
	if v.v == nil {
		return ""
	}
	return v.v.Prerelease()
}

// LessThan reports whether v orders strictly before other.
func (v Version) LessThan(other Version) bool {
	return v.v.LessThan(other.v)
}

// Compare returns -1, 0 or 1 comparing v to other, per SemVer ordering
// (pre-release versions sort before their release).
func (v Version) Compare(other Version) int {
	return v.v.Compare(other.v)
}

// Equal reports whether v and other denote the same version.
func (v Version) Equal(other Version) bool {
	return v.v.Equal(other.v)
}

// Requirement is a set of comparator predicates a Version may satisfy.
// A Version satisfies a Requirement iff every predicate holds.
type Requirement struct {
	raw        string
	constraint hcversion.Constraints
}

// ParseRequirement parses a comma-joined predicate set, expanding the `~`
// and `^` shorthands into the equivalent `>=,<` range before delegating
// to go-version's constraint parser.
//
//	~1.2.3  => >=1.2.3, <1.3.0
//	^1.2.3  => >=1.2.3, <2.0.0
//	^0.2.3  => >=0.2.3, <0.3.0
//	^0.0.3  => >=0.0.3, <0.0.4
func ParseRequirement(s string) (Requirement, error) {
	raw := strings.TrimSpace(s)
	parts := strings.Split(raw, ",")
	expanded := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		desugared, err := desugar(p)
		if err != nil {
			return Requirement{}, fmt.Errorf("parse requirement %q: %w", s, err)
		}
		expanded = append(expanded, desugared...)
	}
	if len(expanded) == 0 {
		return Requirement{}, fmt.Errorf("parse requirement %q: empty requirement", s)
	}
	c, err := hcversion.NewConstraint(strings.Join(expanded, ","))
	if err != nil {
		return Requirement{}, fmt.Errorf("parse requirement %q: %w", s, err)
	}
	return Requirement{raw: raw, constraint: c}, nil
}

// desugar expands a single predicate. Predicates other than `~`/`^` are
// passed through unchanged for go-version to interpret.
func desugar(predicate string) ([]string, error) {
	switch {
	case strings.HasPrefix(predicate, "~"):
		base := strings.TrimSpace(strings.TrimPrefix(predicate, "~"))
		v, err := hcversion.NewVersion(base)
		if err != nil {
			return nil, err
		}
		seg := v.Segments()
		upper := fmt.Sprintf("%d.%d.0", seg[0], seg[1]+1)
		return []string{">=" + base, "<" + upper}, nil
	case strings.HasPrefix(predicate, "^"):
		base := strings.TrimSpace(strings.TrimPrefix(predicate, "^"))
		v, err := hcversion.NewVersion(base)
		if err != nil {
			return nil, err
		}
		seg := v.Segments()
		var upper string
		switch {
		case seg[0] > 0:
			upper = fmt.Sprintf("%d.0.0", seg[0]+1)
		case seg[1] > 0:
			upper = fmt.Sprintf("0.%d.0", seg[1]+1)
		default:
			upper = fmt.Sprintf("0.0.%d", seg[2]+1)
		}
		return []string{">=" + base, "<" + upper}, nil
	default:
		return []string{predicate}, nil
	}
}

// String returns the requirement's original textual form.
func (r Requirement) String() string { return r.raw }

// Matches reports whether v satisfies every predicate in the requirement.
// Pre-release versions only match a requirement that explicitly names a
// pre-release predicate.
func (r Requirement) Matches(v Version) bool {
	if v.Prerelease() != "" && !strings.Contains(r.raw, "-") {
		return false
	}
	return r.constraint.Check(v.v)
}

// Exact reports whether the requirement is a single `=` predicate, and if
// so, returns the pinned version.
func Exact(req Requirement) (Version, bool) {
	raw := strings.TrimSpace(req.raw)
	if !strings.HasPrefix(raw, "=") {
		return Version{}, false
	}
	v, err := Parse(strings.TrimSpace(strings.TrimPrefix(raw, "=")))
	if err != nil {
		return Version{}, false
	}
	return v, true
}

// ExactRequirement renders an equality requirement string for v, the form
// used by `add --registry` per the manifest grammar.
func ExactRequirement(v Version) string {
	return "=" + v.String()
}

// Intersect combines two requirements into one whose Matches accepts only
// versions both would have accepted. Used by the graph builder to merge
// the constraints multiple dependents impose on the same package.
func Intersect(a, b Requirement) (Requirement, error) {
	if a.raw == "" {
		return b, nil
	}
	if b.raw == "" {
		return a, nil
	}
	return ParseRequirement(a.raw + "," + b.raw)
}

// Highest returns the greatest Version in vs, or false if vs is empty.
func Highest(vs []Version) (Version, bool) {
	if len(vs) == 0 {
		return Version{}, false
	}
	best := vs[0]
	for _, v := range vs[1:] {
		if best.LessThan(v) {
			best = v
		}
	}
	return best, true
}
