package cli

import (
	"github.com/buffrs-dev/buffrs/pkg/logger"
	"github.com/spf13/cobra"
)

var (
	projectRootFlag string
	verboseFlag     bool
	noColorFlag     bool
)

// NewRootCmd assembles every subcommand under the buffrs root command.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "buffrs",
		Short: "A protocol buffer package manager",
		Long: `buffrs manages protocol buffer packages: it resolves a manifest's
dependencies, downloads and verifies them against a registry, vendors
them under proto/vendor, and publishes packages of your own.`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRun: func(*cobra.Command, []string) {
			logger.InitLogger(logLevel(), isNoColor())
		},
	}

	cmd.PersistentFlags().StringVar(&projectRootFlag, "project-root", "", "Project root directory (default: current directory)")
	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Verbose output")
	cmd.PersistentFlags().BoolVar(&noColorFlag, "no-color", false, "Disable colored output")

	ProjectRoot = &projectRootFlag
	Verbose = &verboseFlag
	NoColor = &noColorFlag

	cmd.AddCommand(
		NewInitCmd(),
		NewAddCmd(),
		NewRemoveCmd(),
		NewInstallCmd(),
		NewPackageCmd(),
		NewPublishCmd(),
		NewLoginCmd(),
		NewLogoutCmd(),
		NewLintCmd(),
		NewListCmd(),
		NewLockCmd(),
		NewVersionCmd(),
	)

	return cmd
}
