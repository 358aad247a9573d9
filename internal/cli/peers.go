package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/peerwatch/peerwatch/internal/cli/helpers"
	"github.com/peerwatch/peerwatch/internal/store"
)

type peerRow struct {
	IP        string    `header:"IP" json:"ip"`
	Direction string    `header:"DIRECTION" json:"direction"`
	Port      int       `header:"PORT" json:"port"`
	FirstSeen time.Time `header:"FIRST SEEN" json:"first_seen"`
	LastSeen  time.Time `header:"LAST SEEN" json:"last_seen"`
}

func newPeersCmd(g *globalFlags) *cobra.Command {
	var (
		format    string
		direction string
	)

	cmd := &cobra.Command{
		Use:   "peers",
		Short: "List the peers in the store",
		Long: `List the entries of the peer store, most recently seen first.

Entries are read as stored; expired entries are only removed by "scan" or "purge".`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := helpers.ValidateFormat(format, helpers.ListFormats); err != nil {
				return err
			}
			dir, err := helpers.ParseDirectionFlag(direction)
			if err != nil {
				return err
			}

			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}

			st := store.Load(cfg.Store.Path, logger)

			rows := make([]peerRow, 0, st.Len())
			for _, e := range st.Entries() {
				if dir != "" && e.Direction != dir {
					continue
				}
				rows = append(rows, peerRow{
					IP:        e.IP,
					Direction: string(e.Direction),
					Port:      e.Port,
					FirstSeen: store.Time(e.FirstSeen),
					LastSeen:  store.Time(e.Seen()),
				})
			}

			if len(rows) == 0 && format == string(helpers.FormatTable) {
				cmd.Println("No peers recorded.")
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

	return cmd
}

func newPurgeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Drop expired entries from the store without scanning",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := g.load(cmd)
			if err != nil {
				return err
			}

			st := store.Load(cfg.Store.Path, logger)
			removed := st.PurgeExpired(time.Now(), cfg.Store.TTL)
			if err := st.Save(); err != nil {
				return err
			}
			handBack(logger, cfg.Store.Path)

			cmd.Printf("Removed %d expired entries, %d remain.\n", removed, st.Len())
			return nil
		},
	}
}
