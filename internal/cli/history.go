package cli

import (
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/peerwatch/peerwatch/internal/cli/helpers"
	pwerrors "github.com/peerwatch/peerwatch/internal/errors"
	"github.com/peerwatch/peerwatch/internal/history"
)

func newHistoryCmd(g *globalFlags) *cobra.Command {
	var (
		format       string
		direction    string
		since        string
		limit        int
		observations bool
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the DuckDB archive of observed peers",
		Long: `List peers from the history archive, including peers that have expired
from the store. Requires history.enabled in the configuration.

With --observations the raw per-scan observations are listed instead.`,
		Example: `  peerwatch history --since 24h
  peerwatch history --direction in --limit 20 -o csv
  peerwatch history --observations --since 2026-01-01`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, helpers.ListFormats); err != nil {
				return err
			}
			dir, err := helpers.ParseDirectionFlag(direction)
			if err != nil {
				return err
			}
			from, err := helpers.ParseSince(since, time.Now())
			if err != nil {
				return err
			}

			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				if _, err := os.Stat(cfg.History.Path); err != nil {
					cmd.Println("History is disabled (set history.enabled: true to record it).")
					return nil
				}
				logger.Warn().Msg("History is disabled; showing the existing archive")
			}

			h, err := history.Open(cfg.History.Path, logger)
			if err != nil {
				return err
			}
			defer pwerrors.DeferClose(logger, h, "failed to close history")

			q := history.Query{Direction: dir, Since: from, Limit: limit}

			var rows any
			var n int
			if observations {
				obs, err := h.Observations(cmd.Context(), q)
				if err != nil {
					return err
				}
				rows, n = observationRows(obs), len(obs)
			} else {
				peers, err := h.Peers(cmd.Context(), q)
				if err != nil {
					return err
				}
				rows, n = historyRows(peers), len(peers)
			}

			if n == 0 && format == string(helpers.FormatTable) {
				cmd.Println("No history recorded.")
				return nil
			}

			formatter, err := helpers.NewFormatter(helpers.OutputFormat(format))
			if err != nil {
				return err
			}
			return formatter.Format(rows, cmd.OutOrStdout())
		},
	}

	helpers.AddFormatFlag(cmd, &format, helpers.FormatTable, helpers.ListFormats)
	helpers.AddDirectionFlag(cmd, &direction)
	cmd.Flags().StringVar(&since, "since", "", "Only rows seen since a duration ago (24h) or a time (RFC3339, 2006-01-02)")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows to show (0 for all)")
	cmd.Flags().BoolVar(&observations, "observations", false, "List raw observations instead of peers")

	return cmd
}

type historyRow struct {
	IP        string    `header:"IP" json:"ip"`
	Direction string    `header:"DIRECTION" json:"direction"`
	Port      int32     `header:"PORT" json:"port"`
	FirstSeen time.Time `header:"FIRST SEEN" json:"first_seen"`
	LastSeen  time.Time `header:"LAST SEEN" json:"last_seen"`
	LastRun   string    `header:"LAST RUN" json:"last_run"`
}

func historyRows(peers []*history.PeerRow) []historyRow {
	rows := make([]historyRow, 0, len(peers))
	for _, p := range peers {
		rows = append(rows, historyRow(*p))
	}
	return rows
}

type observationRow struct {
	ObservedAt time.Time `header:"OBSERVED" json:"observed_at"`
	IP         string    `header:"IP" json:"ip"`
	Direction  string    `header:"DIRECTION" json:"direction"`
	LocalIP    string    `header:"LOCAL IP" json:"local_ip"`
	LocalPort  int32     `header:"LOCAL PORT" json:"local_port"`
	PeerPort   int32     `header:"PEER PORT" json:"peer_port"`
	RunID      string    `header:"RUN" json:"run_id"`
}

func observationRows(obs []*history.Observation) []observationRow {
	rows := make([]observationRow, 0, len(obs))
	for _, o := range obs {
		rows = append(rows, observationRow{
			ObservedAt: o.ObservedAt,
			IP:         o.IP,
			Direction:  o.Direction,
			LocalIP:    o.LocalIP,
			LocalPort:  o.LocalPort,
			PeerPort:   o.PeerPort,
			RunID:      o.RunID,
		})
	}
	return rows
}
