// Package config implements the 'peerwatch config' command family.
package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/peerwatch/peerwatch/internal/config"
)

// Loader resolves the effective configuration for cmd.
type Loader func(cmd *cobra.Command) (*config.Config, error)

// NewConfigCmd creates the config command and its subcommands.
func NewConfigCmd(load Loader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect peerwatch configuration",
		Long: `Inspect peerwatch configuration.

Configuration Priority:
  1. PEERWATCH_* environment variables (highest)
  2. Config file (--config, $PEERWATCH_CONFIG or /etc/peerwatch/config.yaml)
  3. Built-in defaults

List values in environment variables are comma separated, for example
PEERWATCH_INCOMING_PORTS=22,443.`,
	}

	cmd.AddCommand(newViewCmd(load))
	cmd.AddCommand(newValidateCmd(load))

	return cmd
}

func newViewCmd(load Loader) *cobra.Command {
	var raw bool

	cmd := &cobra.Command{
		Use:   "view",
		Short: "Show the effective configuration",
		Long: `Display the configuration after defaults, the config file and environment
variables are merged.

Use --raw to output the YAML without the header comment.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load(cmd)
			if err != nil {
				return err
			}

			data, err := config.Marshal(cfg)
			if err != nil {
				return err
			}

			if !raw {
				path := configPath(cmd)
				cmd.Printf("# Config file: %s (%s)\n", path, fileStatus(path))
				cmd.Println("# Environment variables override file values.")
				cmd.Println()
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&raw, "raw", false, "Output raw YAML without annotations")

	return cmd
}

func newValidateCmd(load Loader) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the configuration for errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := load(cmd); err != nil {
				var multi *config.MultiValidationError
				if errors.As(err, &multi) {
					cmd.PrintErr(multi.Error())
					if len(multi.Errors) == 1 {
						cmd.PrintErrln()
					}
					return fmt.Errorf("configuration is invalid")
				}
				return err
			}

			cmd.Printf("Configuration OK (%s)\n", configPath(cmd))
			return nil
		},
	}
}

func configPath(cmd *cobra.Command) string {
	flagValue, _ := cmd.Flags().GetString("config")
	return config.ResolvePath(flagValue)
}

func fileStatus(path string) string {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "not present, using defaults"
		}
		return "unreadable: " + err.Error()
	}
	return "loaded"
}
