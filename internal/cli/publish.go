package cli

import (
	"context"
	"fmt"

	"github.com/buffrs-dev/buffrs/pkg/archive"
	"github.com/buffrs-dev/buffrs/pkg/config"
	"github.com/buffrs-dev/buffrs/pkg/credentials"
	"github.com/buffrs-dev/buffrs/pkg/logger"
	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/pkg"
	"github.com/buffrs-dev/buffrs/pkg/registry"
	"github.com/buffrs-dev/buffrs/pkg/version"
	"github.com/buffrs-dev/buffrs/pkg/workspace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewPublishCmd creates the publish command.
func NewPublishCmd() *cobra.Command {
	var (
		registryURL string
		repository  string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Upload this package to a registry",
		Long: `Publish bundles the package and uploads it to a repository within
a registry. Run at a workspace root, members publish in dependency order
and a member's local dependency on an already-published sibling is
rewritten to a registry reference pinned to that sibling's new version.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPublish(cmd.Context(), registryURL, repository)
		},
	}

	cmd.Flags().StringVar(&registryURL, "registry", "", "Registry base URL to publish to (required)")
	cmd.Flags().StringVar(&repository, "repository", "", "Repository within the registry (required)")

	return cmd
}

func runPublish(ctx context.Context, registryURL, repository string) error {
	if registryURL == "" || repository == "" {
		return fmt.Errorf("publish requires --registry and --repository")
	}
	root, err := projectRoot()
	if err != nil {
		return err
	}

	client, err := publishClient(registryURL)
	if err != nil {
		return err
	}
	target := workspace.PublishTarget{URL: registryURL, Repository: repository}

	ws, err := workspace.Discover(root)
	if err == nil {
		hooks := workspace.Hooks{OnEvent: func(e workspace.Event) {
			logger.Info(e.Msg, logrus.Fields{"phase": e.Phase, "id": e.ID})
		}}
		_, err := workspace.Publish(ctx, ws, target, func(ctx context.Context, m workspace.Member, target workspace.PublishTarget) (version.Version, error) {
			return publishMember(ctx, client, m.Path, m.Manifest, target.Repository)
		}, hooks)
		return err
	}
	if err != workspace.ErrNotWorkspace {
		return fmt.Errorf("discover workspace: %w", err)
	}

	m, err := loadManifest(root)
	if err != nil {
		return err
	}
	v, err := publishMember(ctx, client, root, m, repository)
	if err != nil {
		return err
	}
	logger.Success("published", logrus.Fields{"id": m.Package.ID, "version": v.String()})
	return nil
}

// publishClient builds an authenticated client for registryURL from
// the on-disk credential store, independent of any particular project's
// manifest.
func publishClient(registryURL string) (registry.Client, error) {
	credPath, err := config.CredentialsPath()
	if err != nil {
		return nil, err
	}
	credStore, err := credentials.Load(credPath)
	if err != nil {
		return nil, fmt.Errorf("load credentials: %w", err)
	}
	return buildRegistryClient(registryURL, credStore)
}

// publishMember bundles the package rooted at dir and uploads it to
// repository via client, after checking the resolved dependency kinds
// satisfy ValidateForPublish.
func publishMember(ctx context.Context, client registry.Client, dir string, m *manifest.Manifest, repository string) (version.Version, error) {
	if err := pkg.SanityCheck(dir, m); err != nil {
		return version.Version{}, err
	}

	depKinds, err := resolveDependencyKinds(ctx, dir, m)
	if err != nil {
		return version.Version{}, err
	}
	if err := m.ValidateForPublish(depKinds); err != nil {
		return version.Version{}, err
	}

	p, err := pkg.Load(dir, m)
	if err != nil {
		return version.Version{}, fmt.Errorf("load package contents: %w", err)
	}
	archiveBytes, err := archive.Bundle(p)
	if err != nil {
		return version.Version{}, fmt.Errorf("bundle archive: %w", err)
	}

	if err := client.Publish(ctx, repository, m.Package.ID, m.Package.Version, archiveBytes); err != nil {
		return version.Version{}, fmt.Errorf("publish %s: %w", m.Package.ID, err)
	}
	return m.Package.Version, nil
}

// resolveDependencyKinds resolves m's dependency graph far enough to
// learn each direct dependency's declared PackageKind, the only piece
// of a resolved graph ValidateForPublish needs.
func resolveDependencyKinds(ctx context.Context, dir string, m *manifest.Manifest) (map[string]manifest.PackageKind, error) {
	e, err := newEngine(dir, m)
	if err != nil {
		return nil, err
	}
	g, err := e.buildGraph(ctx, m, nil)
	if err != nil {
		return nil, fmt.Errorf("build dependency graph: %w", err)
	}

	kinds := make(map[string]manifest.PackageKind, len(m.Dependencies))
	for id := range m.Dependencies {
		for _, n := range g.ByPackageID(id) {
			if n.Manifest != nil && n.Manifest.Package != nil {
				kinds[id] = n.Manifest.Package.Kind
				break
			}
		}
	}
	return kinds, nil
}
