package cli

import (
	"fmt"

	"github.com/buffrs-dev/buffrs/pkg/manifest"
	"github.com/buffrs-dev/buffrs/pkg/workspace"
	"github.com/spf13/cobra"
)

// NewLintCmd creates the lint command.
func NewLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint",
		Short: "Check manifest and proto/ directory hygiene",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLint()
		},
	}
}

func runLint() error {
	root, err := projectRoot()
	if err != nil {
		return err
	}
	if err := workspace.CheckCommand(discoverOrNil(root), "lint"); err != nil {
		return err
	}

	m, err := loadManifest(root)
	if err != nil {
		return err
	}

	violations, err := manifest.Lint(root, m)
	if err != nil {
		return err
	}
	if len(violations) == 0 {
		fmt.Println("no lint violations")
		return nil
	}

	for _, v := range violations {
		fmt.Printf("[%s] %s\n", v.Rule, v.Message)
		if v.Help != "" {
			fmt.Printf("  %s\n", v.Help)
		}
	}
	return fmt.Errorf("%d lint violation(s) found", len(violations))
}
