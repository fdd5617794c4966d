package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"appliance-backup/src/config"
	"appliance-backup/src/snapshot"
)

func newSnapshotsCmd(stdout io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:     "snapshots",
		Aliases: []string{"list"},
		Short:   "List snapshots in the local store",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(config.Path())
			if err != nil {
				return err
			}
			store := snapshot.NewStore(cfg.DataDir)
			snaps, err := store.List()
			if err != nil {
				return err
			}
			current := filepath.Base(store.DedupBase())

			tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSTRATEGY\tVERSION\tCURRENT")
			for _, s := range snaps {
				marker := ""
				if s.ID == current {
					marker = "*"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.Strategy, s.Version, marker)
			}
			return tw.Flush()
		},
	}
}
