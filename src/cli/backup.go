package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"appliance-backup/src/backup"
	"appliance-backup/src/remote"
	"appliance-backup/src/snapshot"
	"appliance-backup/src/topology"
	"appliance-backup/src/tunnel"
)

func newBackupCmd(stdout, stderr io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Take a new snapshot of the configured appliance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd)
			cfg, target, err := loadSetup("")
			if err != nil {
				return err
			}
			runner := &remote.ExecRunner{ExtraSSHOpts: cfg.ExtraSSHOpts}
			store := snapshot.NewStore(cfg.DataDir)
			resolver := topology.NewResolver(runner, target, log)
			transport := tunnel.NewTransport(runner, log)

			snap, err := backup.New(runner, store, resolver, transport, log).Run(cmd.Context(), target, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Snapshot %s committed (strategy %s, appliance %s)\n", snap.ID, snap.Strategy, snap.Version)
			return nil
		},
	}
}
