package helpers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/peerwatch/peerwatch/internal/peer"
)

// AddFormatFlag adds a standard --format/-o flag to a command.
func AddFormatFlag(cmd *cobra.Command, formatVar *string, defaultFormat OutputFormat, supportedFormats []OutputFormat) {
	formatNames := make([]string, len(supportedFormats))
	for i, f := range supportedFormats {
		formatNames[i] = string(f)
	}

	description := fmt.Sprintf("Output format (%s)", strings.Join(formatNames, ", "))
	cmd.Flags().StringVarP(formatVar, "format", "o", string(defaultFormat), description)

	_ = cmd.RegisterFlagCompletionFunc("format", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return formatNames, cobra.ShellCompDirectiveNoFileComp
	})
}

// AddDirectionFlag adds a --direction filter accepting "in" or "out".
func AddDirectionFlag(cmd *cobra.Command, directionVar *string) {
	cmd.Flags().StringVar(directionVar, "direction", "", "Only show peers in this direction (in, out)")

	_ = cmd.RegisterFlagCompletionFunc("direction", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return []string{string(peer.DirectionIn), string(peer.DirectionOut)}, cobra.ShellCompDirectiveNoFileComp
	})
}

// ParseDirectionFlag validates a --direction value; empty means no filter.
func ParseDirectionFlag(s string) (peer.Direction, error) {
	if s == "" {
		return "", nil
	}
	d, err := peer.ParseDirection(s)
	if err != nil {
		return "", fmt.Errorf("invalid --direction: %w", err)
	}
	return d, nil
}

// ValidateFormat checks if the format is in the supported list.
func ValidateFormat(format string, supported []OutputFormat) error {
	for _, s := range supported {
		if format == string(s) {
			return nil
		}
	}

	supportedNames := make([]string, len(supported))
	for i, s := range supported {
		supportedNames[i] = string(s)
	}

	return fmt.Errorf("unsupported format %q, must be one of: %s",
		format, strings.Join(supportedNames, ", "))
}
