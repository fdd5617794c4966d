package restore

import (
	"context"

	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"appliance-backup/src/remote"
	"appliance-backup/src/snapshot"
	"appliance-backup/src/status"
	"appliance-backup/src/topology"
	"appliance-backup/src/tunnel"
)

// Orchestrator sequences the restoration of the appliance's datastores. It
// validates preconditions, dispatches each step's routine, and keeps the
// target's published status in sync with the session outcome.
type Orchestrator struct {
	runner    remote.Runner
	store     *snapshot.Store
	resolver  *topology.Resolver
	transport *tunnel.Transport
	reporter  status.Reporter
	log       zerolog.Logger
}

func New(runner remote.Runner, store *snapshot.Store, resolver *topology.Resolver, transport *tunnel.Transport, reporter status.Reporter, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		runner:    runner,
		store:     store,
		resolver:  resolver,
		transport: transport,
		reporter:  reporter,
		log:       log.With().Str("component", "restore").Logger(),
	}
}

// Restore drives Restoring → {Complete, Failed} for a validated session.
// Steps run strictly in sequence and the session stops on the first step
// failure: a partially restored system must not be continued blindly, and a
// failed step may already have mutated the target, so nothing is retried.
func (o *Orchestrator) Restore(ctx context.Context, s *Session) (err error) {
	s.Status = StatusRestoring
	o.reporter.Publish(ctx, status.Restoring)

	// Failed is the session's default terminal outcome from here on, so any
	// unhandled abort stays observable on the target. Cleared only by the
	// explicit Complete transition. If an interrupt also kills this publish,
	// the target can be left reading "restoring"; known limitation.
	completed := false
	defer func() {
		if completed {
			return
		}
		s.Status = StatusFailed
		o.reporter.Publish(context.WithoutCancel(ctx), status.Failed)
	}()

	for _, step := range steps {
		if step.AfterComplete {
			continue
		}
		if !step.Applies(s) {
			o.log.Debug().Str("step", step.Name).Msg("step not applicable, skipped")
			continue
		}
		if err := o.runStep(ctx, step, s); err != nil {
			return errors.Annotatef(err, "restoring %s", step.Name)
		}
	}

	s.Status = StatusComplete
	o.reporter.Publish(ctx, status.Complete)
	completed = true

	if !s.IsCluster && s.IsConfigured {
		// Re-run the configuration so migrations apply against the freshly
		// restored data. Best effort: the restore itself already succeeded.
		if err := o.runner.Run(ctx, s.Target, "adm-config-apply", nil); err != nil {
			o.log.Warn().Err(err).Msg("post-restore configuration apply failed")
		}
	}

	// Steps deferred past the terminal publish. A failure here surfaces to
	// the operator but no longer changes the published outcome.
	for _, step := range steps {
		if !step.AfterComplete || !step.Applies(s) {
			continue
		}
		if err := o.runStep(ctx, step, s); err != nil {
			return errors.Annotatef(err, "restoring %s", step.Name)
		}
	}
	return nil
}

func (o *Orchestrator) runStep(ctx context.Context, step Step, s *Session) error {
	if err := ctx.Err(); err != nil {
		return errors.Trace(err)
	}
	routine, err := RoutineFor(step.Name, s)
	if err != nil {
		return errors.Trace(err)
	}
	o.log.Info().Str("step", step.Name).Msg("restoring")
	return routine(ctx, o, s)
}
