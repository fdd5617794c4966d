package status

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/rs/zerolog"

	"appliance-backup/src/remote"
)

// PathOnTarget is the well-known file external observers read to decide
// whether the appliance is mid-restore.
const PathOnTarget = "/var/lib/appliance/restore-status"

// The only values ever published. Readers treat anything else as Unknown.
const (
	Restoring = "restoring"
	Failed    = "failed"
	Complete  = "complete"
	Unknown   = "unknown"
)

// Reporter publishes restore progress to the target.
type Reporter interface {
	// Publish writes value to the well-known path, best effort: transport
	// failures are logged and never surface into the restore outcome.
	Publish(ctx context.Context, value string)
	// Read returns the published value, or Unknown for anything else.
	Read(ctx context.Context) string
}

// RemoteReporter publishes over the remote runner.
type RemoteReporter struct {
	runner remote.Runner
	target remote.Host
	log    zerolog.Logger
}

var _ Reporter = (*RemoteReporter)(nil)

func NewRemoteReporter(runner remote.Runner, target remote.Host, log zerolog.Logger) *RemoteReporter {
	return &RemoteReporter{runner: runner, target: target, log: log.With().Str("component", "status").Logger()}
}

func (r *RemoteReporter) Publish(ctx context.Context, value string) {
	command := fmt.Sprintf("sudo mkdir -p %s && echo %s | sudo tee %s >/dev/null", path.Dir(PathOnTarget), value, PathOnTarget)
	if err := r.runner.Run(ctx, r.target, command, nil); err != nil {
		r.log.Warn().Err(err).Str("status", value).Msg("publishing restore status failed")
		return
	}
	r.log.Debug().Str("status", value).Msg("published restore status")
}

func (r *RemoteReporter) Read(ctx context.Context) string {
	out, err := r.runner.Output(ctx, r.target, "cat "+PathOnTarget)
	if err != nil {
		return Unknown
	}
	switch v := strings.TrimSpace(string(out)); v {
	case Restoring, Failed, Complete:
		return v
	default:
		return Unknown
	}
}
