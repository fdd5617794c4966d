package restore

import (
	"context"

	"github.com/juju/errors"

	"appliance-backup/src/remote"
	"appliance-backup/src/version"
)

// Options select what to restore and where.
type Options struct {
	Target remote.Host
	// SnapshotID selects the snapshot; empty means current.
	SnapshotID string
	// RestoreSettings forces the settings/license step (-c).
	RestoreSettings bool
}

// Target-side probes. Exit status is the answer; output is ignored.
const (
	probeConfigured  = "test -f /etc/appliance/settings.json"
	probeCluster     = "test -f /etc/appliance/cluster.conf"
	probeReplica     = "adm-replica-status -q"
	probeMaintenance = "adm-maintenance -q"
)

// Validate drives Init → Validating: resolves reachability, version, the
// snapshot's recorded strategy, and the target's topology, then checks every
// precondition gate. Nothing destructive happens here and no status is
// published; a gate failure aborts the session before the target is touched.
func (o *Orchestrator) Validate(ctx context.Context, opts Options) (*Session, error) {
	s := &Session{Target: opts.Target, Status: StatusValidating}

	out, err := o.runner.Output(ctx, s.Target, "adm-version")
	if err != nil {
		return nil, errors.Annotatef(err, "target %s is unreachable", s.Target.Name)
	}
	s.TargetVersion, err = version.ParseAppliance(string(out))
	if err != nil {
		return nil, errors.Trace(err)
	}
	if !version.SupportsTarget(s.TargetVersion) {
		return nil, errors.NotValidf("target %s runs appliance %s, unsupported by this tool", s.Target.Name, s.TargetVersion)
	}

	s.Snapshot, err = o.store.Resolve(opts.SnapshotID)
	if err != nil {
		return nil, errors.Trace(err)
	}
	s.Strategy, err = ResolveStrategy(s.Snapshot)
	if err != nil {
		return nil, errors.Trace(err)
	}
	if s.Snapshot.Version != "" {
		if s.SnapshotVersion, err = version.ParseAppliance(s.Snapshot.Version); err != nil {
			return nil, errors.Trace(err)
		}
	}

	s.IsConfigured = o.probe(ctx, s.Target, probeConfigured)
	s.IsCluster = o.probe(ctx, s.Target, probeCluster)
	s.IsReplica = !s.IsCluster && o.probe(ctx, s.Target, probeReplica)

	if s.Strategy == StrategyCluster && !s.IsCluster {
		return nil, errors.NotValidf("snapshot %s was taken from a cluster; target %s is standalone", s.Snapshot.ID, s.Target.Name)
	}
	if s.IsCluster || s.Strategy == StrategyCluster {
		if s.SnapshotVersion.Compare(version.MinimumClusterVersion) < 0 {
			return nil, errors.NotValidf(
				"cluster restore requires a snapshot from appliance %s or later, snapshot %s records %q",
				version.MinimumClusterVersion, s.Snapshot.ID, s.Snapshot.Version)
		}
	}
	if s.IsConfigured && !s.IsCluster && !o.probe(ctx, s.Target, probeMaintenance) {
		return nil, errors.Errorf("target %s is configured but not in maintenance mode; enable maintenance mode and retry", s.Target.Name)
	}
	if !s.IsConfigured && s.Strategy == StrategyTarball && !opts.RestoreSettings {
		return nil, errors.Errorf("target %s is unconfigured; restoring a legacy tarball snapshot requires -c to restore settings", s.Target.Name)
	}
	if s.IsReplica {
		o.log.Warn().Str("target", s.Target.Name).Msg("target participates in replication; restoring will interrupt it")
	}

	// Unconfigured targets have no settings to preserve, so settings always
	// come from the snapshot.
	s.RestoreSettings = opts.RestoreSettings || !s.IsConfigured

	o.log.Info().
		Str("snapshot", s.Snapshot.ID).
		Str("strategy", string(s.Strategy)).
		Stringer("target_version", s.TargetVersion).
		Bool("cluster", s.IsCluster).
		Bool("configured", s.IsConfigured).
		Msg("session validated")
	return s, nil
}

func (o *Orchestrator) probe(ctx context.Context, h remote.Host, command string) bool {
	return o.runner.Run(ctx, h, command, nil) == nil
}
