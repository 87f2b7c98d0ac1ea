package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/buffrs-dev/buffrs/pkg/config"
	"github.com/buffrs-dev/buffrs/pkg/credentials"
	"github.com/buffrs-dev/buffrs/pkg/logger"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// NewLoginCmd creates the login command.
func NewLoginCmd() *cobra.Command {
	var token string

	cmd := &cobra.Command{
		Use:   "login <registry-url>",
		Short: "Store a bearer token for a registry",
		Long: `Login stores a bearer token for a registry under BUFFRS_HOME so
subsequent install and publish commands authenticate automatically. With
no --token flag, the token is read from stdin.`,
		Args: cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return runLogin(args[0], token)
		},
	}

	cmd.Flags().StringVar(&token, "token", "", "Bearer token (read from stdin if omitted)")

	return cmd
}

func runLogin(registryURL, token string) error {
	if token == "" {
		read, err := readTokenFromStdin()
		if err != nil {
			return err
		}
		token = read
	}
	if token == "" {
		return fmt.Errorf("no token provided")
	}

	store, err := openCredentialStore()
	if err != nil {
		return err
	}
	if err := store.Put(registryURL, token); err != nil {
		return fmt.Errorf("store credentials: %w", err)
	}

	logger.Success("logged in", logrus.Fields{"registry": registryURL})
	return nil
}

func readTokenFromStdin() (string, error) {
	fmt.Fprint(os.Stderr, "Enter token: ")
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return "", fmt.Errorf("read token: %w", err)
		}
		return "", nil
	}
	return strings.TrimSpace(scanner.Text()), nil
}

func openCredentialStore() (*credentials.Store, error) {
	if _, err := config.EnsureHome(); err != nil {
		return nil, fmt.Errorf("prepare buffrs home: %w", err)
	}
	credPath, err := config.CredentialsPath()
	if err != nil {
		return nil, err
	}
	return credentials.Load(credPath)
}
