package restore

import (
	"context"
	"strings"

	"github.com/juju/errors"

	"appliance-backup/src/snapshot"
)

// Strategy identifies how a snapshot was taken. The tag is recorded inside
// the snapshot at backup time and restored with the same code path: resolving
// it from the live target instead could silently route the restore through a
// different routine than the one that produced the data.
type Strategy string

const (
	StrategyRsync   Strategy = "rsync"
	StrategyTarball Strategy = "tarball"
	StrategyCluster Strategy = "cluster"
)

// ResolveStrategy reads the strategy tag recorded in the snapshot. Resolved
// once per session.
func ResolveStrategy(snap *snapshot.Snapshot) (Strategy, error) {
	switch tag := Strategy(strings.TrimSpace(snap.Strategy)); tag {
	case StrategyRsync, StrategyTarball, StrategyCluster:
		return tag, nil
	case "":
		return "", errors.NotValidf("snapshot %s: missing strategy", snap.ID)
	default:
		return "", errors.NotValidf("snapshot %s: backup strategy %q", snap.ID, tag)
	}
}

// Routine is one concrete datastore restore action.
type Routine func(ctx context.Context, o *Orchestrator, s *Session) error

// Step is one independently restorable unit of target state. Steps run at
// most once per session, in the fixed order of the steps table.
type Step struct {
	Name string
	// AfterComplete steps run only once the terminal status has already been
	// published. Host keys go there: swapping host key material earlier can
	// break the control channel carrying the final status and log messages.
	AfterComplete bool
	// Applies decides whether the step runs for this session.
	Applies func(s *Session) bool
}

func always(*Session) bool { return true }

func standaloneOnly(s *Session) bool { return !s.IsCluster }

// steps is the fixed total order of datastore restoration. Repository and
// blob content precede the search indices derived from them; settings carry
// the credentials later steps authenticate with, so they come first.
var steps = []Step{
	{Name: "settings", Applies: func(s *Session) bool { return s.RestoreSettings }},
	{Name: "database", Applies: always},
	{Name: "repositories", Applies: always},
	{Name: "pages", Applies: always},
	{Name: "storage", Applies: always},
	{Name: "hookshot", Applies: standaloneOnly},
	{Name: "hooks", Applies: always},
	{Name: "search", Applies: always},
	{Name: "ssh-host-keys", AfterComplete: true, Applies: standaloneOnly},
}

// Steps exposes the ordered step table.
func Steps() []Step { return steps }

type routineKey struct {
	step     string
	cluster  bool
	strategy Strategy
}

// routines maps (step, topology, strategy) to the concrete transfer/restore
// routine. Cluster entries carry an empty strategy: cluster targets use
// dedicated per-datastore paths regardless of the legacy tag recorded.
var routines = map[routineKey]Routine{
	{"settings", false, StrategyRsync}:   restoreSettings,
	{"settings", false, StrategyTarball}: restoreSettings,
	{"settings", true, ""}:               restoreSettings,

	{"database", false, StrategyRsync}:   restoreDatabase,
	{"database", false, StrategyTarball}: restoreDatabase,
	{"database", true, ""}:               restoreDatabaseCluster,

	{"repositories", false, StrategyRsync}:   restoreRepositoriesRsync,
	{"repositories", false, StrategyTarball}: restoreRepositoriesTarball,
	{"repositories", true, ""}:               restoreRepositoriesCluster,

	{"pages", false, StrategyRsync}:   restorePagesRsync,
	{"pages", false, StrategyTarball}: restorePagesTarball,
	{"pages", true, ""}:               restorePagesCluster,

	{"storage", false, StrategyRsync}:   restoreStorage,
	{"storage", false, StrategyTarball}: restoreStorage,
	{"storage", true, ""}:               restoreStorageCluster,

	{"hookshot", false, StrategyRsync}:   restoreHookshot,
	{"hookshot", false, StrategyTarball}: restoreHookshot,

	{"hooks", false, StrategyRsync}:   restoreHooks,
	{"hooks", false, StrategyTarball}: restoreHooks,
	{"hooks", true, ""}:               restoreHooksCluster,

	{"search", false, StrategyRsync}:   restoreSearch,
	{"search", false, StrategyTarball}: restoreSearch,
	{"search", true, ""}:               restoreSearchCluster,

	{"ssh-host-keys", false, StrategyRsync}:   restoreHostKeys,
	{"ssh-host-keys", false, StrategyTarball}: restoreHostKeys,
}

// RoutineFor resolves the concrete routine for one step. Cluster topology
// takes precedence over the recorded strategy tag.
func RoutineFor(name string, s *Session) (Routine, error) {
	key := routineKey{step: name, cluster: s.IsCluster, strategy: s.Strategy}
	if s.IsCluster {
		key.strategy = ""
	}
	r, ok := routines[key]
	if !ok {
		return nil, errors.NotFoundf("restore routine for step %q (cluster=%v strategy=%s)", name, s.IsCluster, s.Strategy)
	}
	return r, nil
}
