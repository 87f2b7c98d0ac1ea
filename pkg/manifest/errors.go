package manifest

import (
	"fmt"
	"regexp"
)

// EditionMissing is returned when a package-bearing manifest omits the
// required edition field.
var EditionMissing = fmt.Errorf("manifest is missing an edition")

// MalformedManifest wraps a TOML syntax or structural error.
var MalformedManifest = fmt.Errorf("malformed manifest")

// LibraryHasDependencies is returned when a Library package declares one
// or more dependencies.
var LibraryHasDependencies = fmt.Errorf("library packages must not declare dependencies")

// DependencySourceAmbiguous is returned when a dependency entry mixes
// registry fields with a path, or provides neither.
var DependencySourceAmbiguous = fmt.Errorf("dependency must specify either a path or version+registry+repository, not both")

// ImplNotPublishable is returned when publishing an Impl package.
var ImplNotPublishable = fmt.Errorf("impl packages cannot be published")

// ApiDependsOnApi is returned at publish time when one of an Api
// package's direct dependencies resolves to an Api package. Dependencies
// of those dependencies are not inspected.
var ApiDependsOnApi = fmt.Errorf("api packages must not depend on other api packages")

// EditionUnsupported is returned when a manifest's edition is not one
// this implementation understands.
type EditionUnsupported struct {
	Found     string
	Supported []string
}

func (e *EditionUnsupported) Error() string {
	return fmt.Sprintf("unsupported edition %q (supported: %v)", e.Found, e.Supported)
}

// packageIDPattern is the PackageId grammar: a non-empty identifier
// starting with a lowercase letter, followed by lowercase letters,
// digits, hyphens or underscores, up to 128 characters total.
var packageIDPattern = regexp.MustCompile(`^[a-z][a-z0-9_-]{0,127}$`)

// InvalidPackageId is returned by ValidatePackageID when a package.id
// does not match the PackageId grammar.
type InvalidPackageId struct {
	ID string
}

func (e *InvalidPackageId) Error() string {
	return fmt.Sprintf("invalid package id %q: must match [a-z][a-z0-9_-]{0,127}", e.ID)
}

// ValidatePackageID checks id against the PackageId grammar. Called as
// a pre-flight check before install and publish, ahead of any network
// or filesystem work.
func ValidatePackageID(id string) error {
	if !packageIDPattern.MatchString(id) {
		return &InvalidPackageId{ID: id}
	}
	return nil
}
