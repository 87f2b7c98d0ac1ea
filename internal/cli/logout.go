package cli

import (
	"fmt"

	"github.com/buffrs-dev/buffrs/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewLogoutCmd creates the logout command.
func NewLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout <registry-url>",
		Short: "Remove a stored bearer token for a registry",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runLogout(args[0])
		},
	}
}

func runLogout(registryURL string) error {
	store, err := openCredentialStore()
	if err != nil {
		return err
	}
	if err := store.Delete(registryURL); err != nil {
		return fmt.Errorf("remove credentials: %w", err)
	}

	logger.Success("logged out", logrus.Fields{"registry": registryURL})
	return nil
}
