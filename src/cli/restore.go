package cli

import (
	"fmt"
	"io"

	"github.com/juju/errors"
	"github.com/spf13/cobra"

	"appliance-backup/src/remote"
	"appliance-backup/src/restore"
	"appliance-backup/src/safety"
	"appliance-backup/src/snapshot"
	"appliance-backup/src/status"
	"appliance-backup/src/topology"
	"appliance-backup/src/tunnel"
)

// errAborted marks an operator decline at the confirmation prompt: a clean
// exit path, distinct from a restore failure, taken before any status is
// published to the target.
var errAborted = errors.New("restore aborted by operator")

func newRestoreCmd(stdout, stderr io.Writer) *cobra.Command {
	var force, restoreSettings bool
	var snapshotID string
	cmd := &cobra.Command{
		Use:   "restore [<host>]",
		Short: "Restore a snapshot onto the target appliance",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger(cmd)
			override := ""
			if len(args) == 1 {
				override = args[0]
			}
			cfg, target, err := loadSetup(override)
			if err != nil {
				return err
			}
			runner := &remote.ExecRunner{ExtraSSHOpts: cfg.ExtraSSHOpts}
			store := snapshot.NewStore(cfg.DataDir)
			resolver := topology.NewResolver(runner, target, log)
			transport := tunnel.NewTransport(runner, log)
			reporter := status.NewRemoteReporter(runner, target, log)
			orch := restore.New(runner, store, resolver, transport, reporter, log)

			sess, err := orch.Validate(cmd.Context(), restore.Options{
				Target:          target,
				SnapshotID:      snapshotID,
				RestoreSettings: restoreSettings,
			})
			if err != nil {
				return err
			}

			topo := "standalone"
			if sess.IsCluster {
				topo = "cluster"
			}
			summary := fmt.Sprintf("Restore snapshot %s (strategy %s, appliance %s) to %s host %s",
				sess.Snapshot.ID, sess.Strategy, sess.Snapshot.Version, topo, target.Name)

			// Unconfigured targets have nothing to lose; no confirmation.
			if sess.IsConfigured {
				ok, err := safety.Confirm(safety.Options{Force: force}, cmd.InOrStdin(), stdout, summary+"?")
				if err != nil {
					return err
				}
				if !ok {
					return errAborted
				}
			} else {
				fmt.Fprintln(stdout, summary)
			}

			if err := orch.Restore(cmd.Context(), sess); err != nil {
				return err
			}
			fmt.Fprintf(stdout, "Restore of snapshot %s to %s completed\n", sess.Snapshot.ID, target.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Skip the confirmation prompt")
	cmd.Flags().BoolVarP(&restoreSettings, "config", "c", false, "Also restore settings and license")
	cmd.Flags().StringVarP(&snapshotID, "snapshot", "s", "", "Snapshot id to restore (default: current)")
	return cmd
}
