package cli

import (
	"fmt"

	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/buffrs-dev/buffrs/pkg/workspace"
	"github.com/spf13/cobra"
)

// NewAddCmd creates the add command.
func NewAddCmd() *cobra.Command {
	var (
		registryURL string
		repository  string
		ver         string
		path        string
	)

	cmd := &cobra.Command{
		Use:   "add <id>",
		Short: "Add a dependency to the manifest",
		Long: `Add pins a dependency by exact version. Registry dependencies always
resolve to a single "=<version>" requirement here; broader ranges are
only accepted by hand-editing Proto.toml before install.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runAdd(args[0], registryURL, repository, ver, path)
		},
	}

	cmd.Flags().StringVar(&registryURL, "registry", "", "Registry base URL")
	cmd.Flags().StringVar(&repository, "repository", "", "Repository name within the registry")
	cmd.Flags().StringVar(&ver, "version", "", "Exact version to pin")
	cmd.Flags().StringVar(&path, "path", "", "Local filesystem path, instead of a registry dependency")

	return cmd
}

func runAdd(id, registryURL, repository, ver, path string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	if err := workspace.CheckCommand(discoverOrNil(root), "add"); err != nil {
		return err
	}

	m, err := loadManifest(root)
	if err != nil {
		return err
	}
	if m.Dependencies == nil {
		m.Dependencies = make(map[string]manifest.DependencySource)
	}

	if path != "" {
		if registryURL != "" || repository != "" || ver != "" {
			return fmt.Errorf("--path cannot be combined with --registry, --repository or --version")
		}
		m.Dependencies[id] = manifest.DependencySource{Local: &manifest.LocalSource{Path: path}}
	} else {
		if registryURL == "" || repository == "" || ver == "" {
			return fmt.Errorf("registry dependencies require --registry, --repository and --version")
		}
		v, err := version.Parse(ver)
		if err != nil {
			return fmt.Errorf("parse --version: %w", err)
		}
		req, err := version.ParseRequirement(version.ExactRequirement(v))
		if err != nil {
			return err
		}
		m.Dependencies[id] = manifest.DependencySource{Registry: &manifest.RegistrySource{
			URL: registryURL, Repository: repository, Requirement: req,
		}}
	}

	if err := m.Validate(); err != nil {
		return err
	}
	return saveManifest(root, m)
}

// discoverOrNil returns the workspace rooted at root, or nil if root is
// not a workspace. Callers use it purely to feed workspace.CheckCommand,
// which treats a nil workspace as "not restricted".
func discoverOrNil(root string) *workspace.Workspace {
	ws, err := workspace.Discover(root)
	if err != nil {
		return nil
	}
	return ws
}
