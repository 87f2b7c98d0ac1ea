package cli

import (
	"fmt"
	"sort"

	"github.com/buffrs-dev/buffrs/pkg/workspace"
	"github.com/spf13/cobra"
)

// NewListCmd creates the list command.
func NewListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List this package's direct dependencies",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runList()
		},
	}
}

func runList() error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	if err := workspace.CheckCommand(discoverOrNil(root), "list"); err != nil {
		return err
	}

	m, err := loadManifest(root)
	if err != nil {
		return err
	}

	if len(m.Dependencies) == 0 {
		fmt.Println("no dependencies")
		return nil
	}

	ids := make([]string, 0, len(m.Dependencies))
	for id := range m.Dependencies {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		dep := m.Dependencies[id]
		if dep.IsLocal() {
			fmt.Printf("%s\tpath=%s\n", id, dep.Local.Path)
			continue
		}
		r := dep.Registry
		fmt.Printf("%s\t%s\tregistry=%s\trepository=%s\n", id, r.Requirement.String(), r.URL, r.Repository)
	}
	return nil
}
