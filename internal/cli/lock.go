package cli

import (
	"fmt"

	"github.com/buffrs-dev/buffrs/pkg/config"
	"github.com/buffrs-dev/buffrs/pkg/lockfile"
	"github.com/spf13/cobra"
)

// NewLockCmd creates the lock command and its subcommands.
func NewLockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "lock",
		Short: "Inspect Proto.lock",
	}
	cmd.AddCommand(newLockPrintFilesCmd())
	return cmd
}

func newLockPrintFilesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "print-files",
		Short: "Print each locked package's download URL and digest",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return runLockPrintFiles()
		},
	}
}

func runLockPrintFiles() error {
	root, err := projectRoot()
	if err != nil {
		return err
	}

	l, err := lockfile.Load(config.LockfilePath(root))
	if err == lockfile.AbsentLockfile {
		fmt.Println("no lockfile present")
		return nil
	}
	if err != nil {
		return fmt.Errorf("load lockfile: %w", err)
	}

	refs, err := lockfile.PrintFiles(l)
	if err != nil {
		return err
	}
	for _, ref := range refs {
		fmt.Printf("%s\t%s\n", ref.URL, ref.Digest)
	}
	return nil
}
