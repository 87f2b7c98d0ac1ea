package cli

import (
	"context"
	"fmt"

	"github.com/buffrs-dev/buffrs/pkg/config"
	"github.com/buffrs-dev/buffrs/pkg/installer"
	"github.com/buffrs-dev/buffrs/pkg/lockfile"
	"github.com/buffrs-dev/buffrs/pkg/logger"
	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/pkg"
	"github.com/buffrs-dev/buffrs/pkg/workspace"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewInstallCmd creates the install command.
func NewInstallCmd() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "install",
		Short: "Resolve dependencies and populate proto/vendor",
		Long: `Resolve the manifest's dependency graph, write Proto.lock, and
rebuild proto/vendor to match it. Run at a workspace root, every member
installs independently in the order [workspace] lists them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runInstall(cmd.Context(), concurrency)
		},
	}

	cmd.Flags().IntVar(&concurrency, "concurrency", 0, "Number of parallel archive downloads (0=auto)")

	return cmd
}

func runInstall(ctx context.Context, concurrency int) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	ws, err := workspace.Discover(root)
	if err == nil {
		hooks := workspace.Hooks{OnEvent: func(e workspace.Event) {
			logger.Info(e.Msg, logrus.Fields{"phase": e.Phase, "id": e.ID})
		}}
		return ws.Install(ctx, func(ctx context.Context, m workspace.Member) error {
			return installAt(ctx, m.Path, m.Manifest, concurrency)
		}, hooks)
	}
	if err != workspace.ErrNotWorkspace {
		return fmt.Errorf("discover workspace: %w", err)
	}

	m, err := loadManifest(root)
	if err != nil {
		return err
	}
	return installAt(ctx, root, m, concurrency)
}

// installAt runs the full install pipeline for one package rooted at
// dir: sanity check, reconcile against any existing lockfile, resolve,
// verify previously-locked digests, save the new lockfile, and rebuild
// proto/vendor.
func installAt(ctx context.Context, dir string, m *manifest.Manifest, concurrency int) error {
	if err := pkg.SanityCheck(dir, m); err != nil {
		return err
	}

	previous, err := lockfile.Load(config.LockfilePath(dir))
	if err != nil && err != lockfile.AbsentLockfile {
		return fmt.Errorf("load lockfile: %w", err)
	}
	if err == lockfile.AbsentLockfile {
		previous = nil
	}

	pins, err := lockfile.Reconcile(m, previous)
	if err != nil {
		return err
	}

	e, err := newEngine(dir, m)
	if err != nil {
		return err
	}

	g, result, err := e.resolve(ctx, m, pins)
	if err != nil {
		return err
	}

	archives, err := e.fetchArchives(ctx, result, pins)
	if err != nil {
		return err
	}
	if previous != nil {
		var sameVersion []lockfile.Entry
		for _, entry := range previous.Entries {
			if sel, ok := result.Selections[entry.ID]; ok && !sel.Local && sel.Version.Equal(entry.Version) {
				sameVersion = append(sameVersion, entry)
			}
		}
		if err := lockfile.Verify(sameVersion, archives); err != nil {
			return err
		}
	}

	entries := buildLockEntries(g, result, archives)
	if err := lockfile.Save(config.LockfilePath(dir), entries); err != nil {
		return fmt.Errorf("save lockfile: %w", err)
	}

	in := installer.New(config.VendorDir(dir), e.client, e.cache)
	in.Concurrency = concurrency
	in.Digests = entryDigests(entries)
	if err := in.Install(ctx, result); err != nil {
		return fmt.Errorf("install vendor tree: %w", err)
	}

	logger.Success("installed", logrus.Fields{"path": dir, "packages": len(result.Selections)})
	return nil
}
