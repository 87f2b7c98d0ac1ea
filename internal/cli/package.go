package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/buffrs-dev/buffrs/pkg/archive"
	"github.com/buffrs-dev/buffrs/pkg/fsutil"
	"github.com/buffrs-dev/buffrs/pkg/logger"
	"github.com/buffrs-dev/buffrs/pkg/pkg"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewPackageCmd creates the package command.
func NewPackageCmd() *cobra.Command {
	var outputDir string

	cmd := &cobra.Command{
		Use:   "package",
		Short: "Bundle this package into a tarball",
		Long: `Package runs the same pre-flight checks install and publish run
(a valid package id, a proto/ directory to bundle), then writes
<id>-<version>.tar.gz to the output directory.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runPackage(outputDir)
		},
	}

	cmd.Flags().StringVarP(&outputDir, "output", "o", ".", "Directory to write the archive into")

	return cmd
}

func runPackage(outputDir string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	m, err := loadManifest(root)
	if err != nil {
		return err
	}
	if err := pkg.SanityCheck(root, m); err != nil {
		return err
	}

	p, err := pkg.Load(root, m)
	if err != nil {
		return fmt.Errorf("load package contents: %w", err)
	}

	archiveBytes, err := archive.Bundle(p)
	if err != nil {
		return fmt.Errorf("bundle archive: %w", err)
	}

	if err := fsutil.EnsureDir(outputDir); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	outPath := filepath.Join(outputDir, fmt.Sprintf("%s-%s.tar.gz", m.Package.ID, m.Package.Version.String()))
	if err := os.WriteFile(outPath, archiveBytes, fsutil.FileModeDefault); err != nil {
		return fmt.Errorf("write archive: %w", err)
	}

	logger.Success("packaged", logrus.Fields{"path": outPath, "digest": archive.Digest(archiveBytes)})
	return nil
}
