package cli

import "time"

// Default values for CLI flags and engine construction.
const (
	// DefaultRegistryTimeout bounds a single HTTP round trip to a registry.
	DefaultRegistryTimeout = 30 * time.Second
	// ManifestFileName is the on-disk name of a package or workspace manifest.
	ManifestFileName = "Proto.toml"
)
