package graph

import "fmt"

// ConflictingLocalPath is returned when two edges resolve the same
// PackageId to a Local source at different filesystem paths.
var ConflictingLocalPath = fmt.Errorf("package resolves to conflicting local paths")

// RegistryPackageDeclaresLocalDependency is returned when a manifest
// fetched from a registry declares a dependency on a local filesystem
// path. Published archives never carry sibling package directories, so
// such a dependency can never resolve.
var RegistryPackageDeclaresLocalDependency = fmt.Errorf("registry package declares a local path dependency")
