package cli

import (
	"github.com/spf13/cobra"

	"github.com/sentryai/sentry/internal/config"
	"github.com/sentryai/sentry/internal/logging"
)

// Shared CLI flags
var (
	cfgFile  string
	logLevel string
)

// ServerConfig holds the loaded configuration (set by main, replaced by --config)
var ServerConfig *config.Config

// SetupRootCmd configures the root command with all subcommands and flags
func SetupRootCmd(c *config.Config) *cobra.Command {
	ServerConfig = c

	rootCmd := &cobra.Command{
		Use:   "sentry",
		Short: "Sentry - legal assistant API",
		Long: `Sentry serves a legal assistant: chats answered by a language model grounded
on reference legislation, and background risk analysis of uploaded contracts.

Run 'sentry serve' to start the API.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cfgFile != "" {
				loaded, err := config.LoadFile(cfgFile)
				if err != nil {
					return err
				}
				*ServerConfig = loaded
			}
			if logLevel != "" {
				ServerConfig.Logging.Level = logLevel
			}
			return logging.Setup(ServerConfig.Logging.Level, ServerConfig.Logging.Format)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: embedded etc/sentry.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override logging.level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(ingestCmd())
	return rootCmd
}
