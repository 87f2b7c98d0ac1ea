package pkg

import "fmt"

// PackagePathEscape is returned when a candidate proto file's path is not
// valid UTF-8 or contains a ".." segment.
var PackagePathEscape = fmt.Errorf("proto file path escapes the package root")

// ErrProtoDirMissing is returned by SanityCheck when a manifest declares
// a package but its root has no proto/ directory to bundle.
var ErrProtoDirMissing = fmt.Errorf("proto directory is required when the manifest declares a package")
