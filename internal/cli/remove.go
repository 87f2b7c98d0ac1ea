package cli

import (
	"fmt"

	"github.com/buffrs-dev/buffrs/pkg/workspace"
	"github.com/spf13/cobra"
)

// NewRemoveCmd creates the remove command.
func NewRemoveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a dependency from the manifest",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runRemove(args[0])
		},
	}
	return cmd
}

func runRemove(id string) error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	if err := workspace.CheckCommand(discoverOrNil(root), "remove"); err != nil {
		return err
	}

	m, err := loadManifest(root)
	if err != nil {
		return err
	}
	if _, ok := m.Dependencies[id]; !ok {
		return fmt.Errorf("dependency %q is not declared in this manifest", id)
	}
	delete(m.Dependencies, id)
	return saveManifest(root, m)
}
