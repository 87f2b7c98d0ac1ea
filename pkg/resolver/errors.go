package resolver

import "fmt"

// VersionConflict is returned when no candidate version satisfies every
// requirement imposed on a package.
type VersionConflict struct {
	PackageID  string
	Wanted     string
	Candidates []string
}

func (e *VersionConflict) Error() string {
	return fmt.Sprintf("no version of %q satisfies %s (candidates: %v)", e.PackageID, e.Wanted, e.Candidates)
}

// LocalVersionMismatch is returned when a Local pin's declared version
// does not satisfy a Registry-sourced requirement imposed elsewhere in
// the graph for the same package id.
type LocalVersionMismatch struct {
	PackageID    string
	LocalVersion string
	Requirement  string
}

func (e *LocalVersionMismatch) Error() string {
	return fmt.Sprintf("local package %q at version %s does not satisfy requirement %s imposed elsewhere", e.PackageID, e.LocalVersion, e.Requirement)
}
