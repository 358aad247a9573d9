// Package cli implements the peerwatch command tree.
package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	configcmd "github.com/peerwatch/peerwatch/internal/cli/config"
	"github.com/peerwatch/peerwatch/internal/config"
	"github.com/peerwatch/peerwatch/internal/logging"
	"github.com/peerwatch/peerwatch/pkg/version"
)

// globalFlags are the persistent flags shared by every command.
type globalFlags struct {
	configPath string
	logLevel   string
	pretty     bool
}

// load resolves the configuration and builds the logger. --log-level and
// --pretty override the logging section of the file.
func (g *globalFlags) load(cmd *cobra.Command) (*config.Config, zerolog.Logger, error) {
	cfg, err := config.Load(g.configPath)
	if err != nil {
		return nil, zerolog.Nop(), err
	}

	if cmd.Flags().Changed("log-level") {
		cfg.Logging.Level = g.logLevel
	}
	if cmd.Flags().Changed("pretty") {
		cfg.Logging.Pretty = g.pretty
	}

	logger := logging.New(logging.Config{
		Level:  cfg.Logging.Level,
		Pretty: cfg.Logging.Pretty,
		Output: cmd.ErrOrStderr(),
	})
	return cfg, logger, nil
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "peerwatch",
		Short: "Track public peers of this host's established connections",
		Long: `peerwatch snapshots the host's established TCP/UDP connections, drops
private and fail2ban-banned peers and keeps a TTL-bounded JSON record of the
public peers it has seen, with direction and service port, for a downstream
map visualisation.

Run "peerwatch scan" from cron or a systemd timer, or "peerwatch scan --every 5m"
as a long-running service.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "",
		"Config file (default $"+config.EnvConfigPath+" or /etc/peerwatch/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.logLevel, "log-level", "info", "Log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&g.pretty, "pretty", false, "Human-readable log output")

	loadConfig := func(cmd *cobra.Command) (*config.Config, error) {
		cfg, _, err := g.load(cmd)
		return cfg, err
	}

	rootCmd.AddCommand(newScanCmd(g))
	rootCmd.AddCommand(newPeersCmd(g))
	rootCmd.AddCommand(newPurgeCmd(g))
	rootCmd.AddCommand(newHistoryCmd(g))
	rootCmd.AddCommand(newSchemaCmd())
	rootCmd.AddCommand(configcmd.NewConfigCmd(loadConfig))
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			cmd.Printf("peerwatch version %s\n", version.Version)
			cmd.Printf("Git commit: %s\n", version.GitCommit)
			cmd.Printf("Build date: %s\n", version.BuildDate)
			cmd.Printf("Go version: %s\n", version.GoVersion)
		},
	}
}

// Execute runs the root command.
func Execute() error {
	root := NewRootCmd()
	root.SetOut(os.Stdout)
	return root.Execute()
}
