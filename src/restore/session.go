package restore

import (
	semversion "github.com/juju/version/v2"

	"appliance-backup/src/remote"
	"appliance-backup/src/snapshot"
)

// Status is the orchestrator's lifecycle state. Transitions are monotonic:
// Init → Validating → Restoring → {Complete, Failed}. Failed is registered as
// the default terminal outcome once restoration begins and is only overridden
// by the explicit Complete transition just before normal exit.
type Status string

const (
	StatusInit       Status = "init"
	StatusValidating Status = "validating"
	StatusRestoring  Status = "restoring"
	StatusComplete   Status = "complete"
	StatusFailed     Status = "failed"
)

// Session carries everything resolved while validating one restore. It is
// owned by the orchestrator for its lifetime.
type Session struct {
	Target   remote.Host
	Snapshot *snapshot.Snapshot

	// Strategy is read once from the snapshot; never re-derived mid-session.
	Strategy        Strategy
	SnapshotVersion semversion.Number
	TargetVersion   semversion.Number

	IsCluster    bool
	IsConfigured bool
	IsReplica    bool

	// RestoreSettings restores settings and license material. Forced on for
	// unconfigured targets, requested with -c otherwise.
	RestoreSettings bool

	Status Status
}
