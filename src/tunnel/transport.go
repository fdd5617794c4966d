package tunnel

import (
	"context"
	"io"

	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"appliance-backup/src/remote"
	"appliance-backup/src/topology"
)

// Transport executes remote commands and bulk transfers against cluster
// members through a tunnel configuration.
type Transport struct {
	runner remote.Runner
	log    zerolog.Logger
}

func NewTransport(runner remote.Runner, log zerolog.Logger) *Transport {
	return &Transport{runner: runner, log: log.With().Str("component", "tunnel").Logger()}
}

// Run executes command on one member over the tunnel.
func (t *Transport) Run(ctx context.Context, cfg *Config, m topology.Node, command string, stdin io.Reader) error {
	return t.runner.Run(ctx, cfg.MemberHost(m), command, stdin)
}

// Output executes command on one member over the tunnel and returns stdout.
func (t *Transport) Output(ctx context.Context, cfg *Config, m topology.Node, command string) ([]byte, error) {
	return t.runner.Output(ctx, cfg.MemberHost(m), command)
}

// Upload copies a local path to one member over the tunnel.
func (t *Transport) Upload(ctx context.Context, cfg *Config, m topology.Node, local, remotePath string, opts remote.TransferOptions) error {
	return t.runner.Upload(ctx, cfg.MemberHost(m), local, remotePath, opts)
}

// Download copies a path from one member over the tunnel. opts.LinkDest, when
// set, names a prior local tree used for content-identity linking so
// unchanged files are not re-sent.
func (t *Transport) Download(ctx context.Context, cfg *Config, m topology.Node, remotePath, local string, opts remote.TransferOptions) error {
	return t.runner.Download(ctx, cfg.MemberHost(m), remotePath, local, opts)
}

// FirstSuccess visits members in order and performs transfer against the
// first one the predicate accepts, then stops; later members are never
// contacted. Used for data replicated identically across a role, so the
// alternatives are read-only equivalents and probing the next one is safe. No
// applicable member is a no-op, not an error.
func (t *Transport) FirstSuccess(ctx context.Context, members []topology.Node, applies func(context.Context, topology.Node) (bool, error), transfer func(context.Context, topology.Node) error) error {
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}
		ok, err := applies(ctx, m)
		if err != nil {
			t.log.Debug().Err(err).Str("member", m.Name).Msg("probe failed, trying next member")
			continue
		}
		if !ok {
			continue
		}
		return errors.Trace(transfer(ctx, m))
	}
	t.log.Debug().Msg("no applicable member, nothing to do")
	return nil
}

// FanOut performs transfer against every member; data is sharded across the
// role, so all transfers must succeed and the first failure fails the whole
// operation.
func (t *Transport) FanOut(ctx context.Context, members []topology.Node, transfer func(context.Context, topology.Node) error) error {
	for _, m := range members {
		if err := ctx.Err(); err != nil {
			return errors.Trace(err)
		}
		if err := transfer(ctx, m); err != nil {
			return errors.Annotatef(err, "member %s", m.Name)
		}
	}
	return nil
}
