package cli

import (
	"context"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/peerwatch/peerwatch/internal/cli/helpers"
	"github.com/peerwatch/peerwatch/internal/config"
	pwerrors "github.com/peerwatch/peerwatch/internal/errors"
	"github.com/peerwatch/peerwatch/internal/privilege"
	"github.com/peerwatch/peerwatch/internal/scan"
)

type reportRow struct {
	RunID         string        `header:"RUN" json:"run_id"`
	Lines         int           `header:"LINES" json:"lines"`
	Parsed        int           `header:"PARSED" json:"parsed"`
	New           int           `header:"NEW" json:"new"`
	Refreshed     int           `header:"REFRESHED" json:"refreshed"`
	BannedEvicted int           `header:"BANNED" json:"banned_evicted"`
	Expired       int           `header:"EXPIRED" json:"expired"`
	Entries       int           `header:"ENTRIES" json:"entries"`
	Duration      time.Duration `header:"DURATION" json:"duration"`
}

func newScanCmd(g *globalFlags) *cobra.Command {
	var (
		every  time.Duration
		format string
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Snapshot established connections into the peer store",
		Long: `Run one snapshot pass: read the fail2ban ban list, list established
connections, notify the downstream command about each public peer, merge them
into the store, drop entries older than the TTL and save.

With --every the pass repeats on that interval until interrupted; failed passes
are logged and the loop continues.

A pass fails (non-zero exit) only when connections cannot be listed or the
store cannot be saved. In the first case the store file is left untouched.`,
		Example: `  peerwatch scan
  peerwatch scan --every 5m --config /etc/peerwatch/config.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, []helpers.OutputFormat{helpers.FormatTable, helpers.FormatJSON}); err != nil {
				return err
			}

			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			return runScan(ctx, cmd, cfg, logger, every, format)
		},
	}

	cmd.Flags().DurationVar(&every, "every", 0, "Repeat the scan on this interval until interrupted")
	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, []helpers.OutputFormat{helpers.FormatTable, helpers.FormatJSON})

	return cmd
}

func runScan(ctx context.Context, cmd *cobra.Command, cfg *config.Config, logger zerolog.Logger, every time.Duration, format string) error {
	if !privilege.IsRoot() {
		logger.Warn().Msg("Not running as root: process details and the fail2ban ban list may be unavailable")
	}

	scanner, h, err := newScanner(cfg, logger)
	if err != nil {
		return err
	}
	if h != nil {
		defer pwerrors.DeferClose(logger, h, "failed to close history")
	}

	if every > 0 {
		err := scanner.Loop(ctx, every)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil
		}
		return err
	}

	report, err := scanner.Run(ctx)
	if err != nil {
		return err
	}

	return printReport(cmd, report, format)
}

func printReport(cmd *cobra.Command, r *scan.Report, format string) error {
	if format == string(helpers.FormatJSON) {
		return (&helpers.JSONFormatter{}).Format(r, cmd.OutOrStdout())
	}

	row := reportRow{
		RunID:         r.RunID,
		Lines:         r.Lines,
		Parsed:        r.Parsed,
		New:           r.New,
		Refreshed:     r.Refreshed,
		BannedEvicted: r.BannedEvicted,
		Expired:       r.Expired,
		Entries:       r.Entries,
		Duration:      r.Duration,
	}
	return (&helpers.TableFormatter{}).Format([]reportRow{row}, cmd.OutOrStdout())
}

