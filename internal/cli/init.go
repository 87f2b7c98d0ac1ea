package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/pkg/config"
	"github.com/buffrs-dev/buffrs/pkg/fsutil"
	"github.com/buffrs-dev/buffrs/pkg/logger"
	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/spf13/cobra"
)

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	var (
		kind        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "init [id]",
		Short: "Create a new package manifest",
		Long: `Create a Proto.toml and an empty proto/ directory for a new package.
id defaults to the current directory's name.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			id := ""
			if len(args) == 1 {
				id = args[0]
			}
			return runInit(id, kind, description)
		},
	}

	cmd.Flags().StringVar(&kind, "type", "lib", "Package type: lib, api or impl")
	cmd.Flags().StringVar(&description, "description", "", "Package description")

	return cmd
}

func runInit(id, kind, description string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	if id == "" {
		id = filepath.Base(root)
	}
	if err := manifest.ValidatePackageID(id); err != nil {
		return err
	}

	packageKind := manifest.PackageKind(kind)
	switch packageKind {
	case manifest.Library, manifest.Api, manifest.Impl:
	default:
		return fmt.Errorf("unknown package type %q (expected lib, api or impl)", kind)
	}

	manifestPath := config.ManifestPath(root)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("%s already exists", manifestPath)
	}

	v, err := version.Parse("0.1.0")
	if err != nil {
		return err
	}

	m := &manifest.Manifest{
		Edition: manifest.SupportedEditions[0],
		Package: &manifest.Package{
			Kind:        packageKind,
			ID:          id,
			Version:     v,
			Description: description,
		},
	}
	if err := m.Validate(); err != nil {
		return err
	}

	if err := fsutil.EnsureDir(filepath.Join(root, "proto")); err != nil {
		return fmt.Errorf("create proto directory: %w", err)
	}
	if err := saveManifest(root, m); err != nil {
		return err
	}

	logger.Success("initialized package", nil)
	return nil
}
