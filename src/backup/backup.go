package backup

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/errors"
	"github.com/rs/zerolog"

	"appliance-backup/src/remote"
	"appliance-backup/src/snapshot"
	"appliance-backup/src/topology"
	"appliance-backup/src/tunnel"
	"appliance-backup/src/version"
)

// Source-side locations the datastores are pulled from.
const (
	repositoriesPath = "/data/repositories/"
	pagesPath        = "/data/pages/"
	storagePath      = "/data/storage/"
	hookshotPath     = "/data/hookshot/"
	hooksPath        = "/data/git-hooks/"
	searchPath       = "/data/search/"
)

// Backup takes one snapshot of the target appliance into the local store.
// Unchanged files hardlink against the previous committed snapshot through
// the transfer tool, so a no-change backup stores and transfers nothing new.
type Backup struct {
	runner    remote.Runner
	store     *snapshot.Store
	resolver  *topology.Resolver
	transport *tunnel.Transport
	log       zerolog.Logger
}

func New(runner remote.Runner, store *snapshot.Store, resolver *topology.Resolver, transport *tunnel.Transport, log zerolog.Logger) *Backup {
	return &Backup{
		runner:    runner,
		store:     store,
		resolver:  resolver,
		transport: transport,
		log:       log.With().Str("component", "backup").Logger(),
	}
}

// Run backs up target into a snapshot stamped with now and returns it
// committed. On any failure or interrupt the partial snapshot is removed and
// the current pointer is left on the previous chain entry.
func (b *Backup) Run(ctx context.Context, target remote.Host, now time.Time) (snap *snapshot.Snapshot, err error) {
	out, err := b.runner.Output(ctx, target, "adm-version")
	if err != nil {
		return nil, errors.Annotatef(err, "target %s is unreachable", target.Name)
	}
	applianceVersion, err := version.ParseAppliance(string(out))
	if err != nil {
		return nil, errors.Trace(err)
	}
	isCluster := b.runner.Run(ctx, target, "test -f /etc/appliance/cluster.conf", nil) == nil

	strategy := "rsync"
	if isCluster {
		strategy = "cluster"
	}

	snap, err = b.store.Begin(now)
	if err != nil {
		return nil, errors.Trace(err)
	}
	defer func() {
		if err != nil {
			if abortErr := b.store.Abort(snap); abortErr != nil {
				b.log.Warn().Err(abortErr).Msg("removing partial snapshot failed")
			}
		}
	}()
	if err = b.store.WriteMeta(snap, strategy, applianceVersion.String()); err != nil {
		return nil, errors.Trace(err)
	}
	b.log.Info().Str("snapshot", snap.ID).Str("strategy", strategy).Bool("incremental", snap.Parent != "").Msg("snapshot started")

	if isCluster {
		err = b.clusterBackup(ctx, snap, target)
	} else {
		err = b.standaloneBackup(ctx, snap, target)
	}
	if err != nil {
		return nil, errors.Trace(err)
	}
	if err = b.store.Commit(snap); err != nil {
		return nil, errors.Trace(err)
	}
	b.log.Info().Str("snapshot", snap.ID).Msg("snapshot committed")
	return snap, nil
}

// linkDest returns the dedup base for one datastore tree, or "" on the first
// backup of a chain.
func linkDest(snap *snapshot.Snapshot, parts ...string) string {
	if snap.Parent == "" {
		return ""
	}
	return filepath.Join(append([]string{snap.Parent}, parts...)...)
}

func (b *Backup) standaloneBackup(ctx context.Context, snap *snapshot.Snapshot, target remote.Host) error {
	if err := b.dumpSettings(ctx, snap, target); err != nil {
		return errors.Annotate(err, "backing up settings")
	}
	if err := b.dumpDatabase(ctx, snap, target); err != nil {
		return errors.Annotate(err, "backing up database")
	}
	trees := []struct {
		datastore string
		source    string
	}{
		{"repositories", repositoriesPath},
		{"pages", pagesPath},
		{"storage", storagePath},
		{"hookshot", hookshotPath},
		{"hooks", hooksPath},
		{"search", searchPath},
	}
	for _, tr := range trees {
		opts := remote.TransferOptions{Delete: true, LinkDest: linkDest(snap, tr.datastore)}
		dest := filepath.Join(snap.Path, tr.datastore) + "/"
		if err := b.runner.Download(ctx, target, tr.source, dest, opts); err != nil {
			return errors.Annotatef(err, "backing up %s", tr.datastore)
		}
	}
	return errors.Annotate(b.dumpHostKeys(ctx, snap, target), "backing up host keys")
}

// clusterBackup fans the sharded datastores in from their role members over
// a tunnel through the entry host; data replicated identically across a role
// is taken from the first member that has it.
func (b *Backup) clusterBackup(ctx context.Context, snap *snapshot.Snapshot, target remote.Host) error {
	if err := b.dumpSettings(ctx, snap, target); err != nil {
		return errors.Annotate(err, "backing up settings")
	}
	if err := b.dumpDatabaseCluster(ctx, snap, target); err != nil {
		return errors.Annotate(err, "backing up database")
	}
	shards := []struct {
		datastore string
		role      string
		source    string
	}{
		{"repositories", "storage", repositoriesPath},
		{"storage", "storage", storagePath},
		{"pages", "pages", pagesPath},
	}
	for _, sh := range shards {
		members := b.resolver.MembersWithRole(ctx, sh.role)
		err := tunnel.With(target, members, func(cfg *tunnel.Config) error {
			return b.transport.FanOut(ctx, members, func(ctx context.Context, m topology.Node) error {
				dest := filepath.Join(snap.Path, sh.datastore, m.Name)
				if err := os.MkdirAll(dest, 0o755); err != nil {
					return errors.Trace(err)
				}
				opts := remote.TransferOptions{Delete: true, LinkDest: linkDest(snap, sh.datastore, m.Name)}
				return b.transport.Download(ctx, cfg, m, sh.source, dest+"/", opts)
			})
		})
		if err != nil {
			return errors.Annotatef(err, "backing up %s", sh.datastore)
		}
	}
	return errors.Annotate(b.dumpHooksCluster(ctx, snap, target), "backing up hooks")
}

func (b *Backup) dumpSettings(ctx context.Context, snap *snapshot.Snapshot, target remote.Host) error {
	out, err := b.runner.Output(ctx, target, "adm-config-export")
	if err != nil {
		return errors.Trace(err)
	}
	if err := os.WriteFile(filepath.Join(snap.Path, "settings", "settings.json"), out, 0o600); err != nil {
		return errors.Trace(err)
	}
	license, err := b.runner.Output(ctx, target, "adm-license-export")
	if err != nil {
		// Unlicensed instances export nothing; not an error.
		b.log.Debug().Err(err).Msg("license export unavailable")
		return nil
	}
	return errors.Trace(os.WriteFile(filepath.Join(snap.Path, "settings", "license"), license, 0o600))
}

func (b *Backup) dumpDatabase(ctx context.Context, snap *snapshot.Snapshot, target remote.Host) error {
	out, err := b.runner.Output(ctx, target, "adm-db-dump --gzip")
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(os.WriteFile(filepath.Join(snap.Path, "database", "dump.sql.gz"), out, 0o600))
}

// dumpDatabaseCluster dumps from the primary; replicas carry the same data.
func (b *Backup) dumpDatabaseCluster(ctx context.Context, snap *snapshot.Snapshot, target remote.Host) error {
	members := b.resolver.MembersWithRole(ctx, "db")
	return tunnel.With(target, members, func(cfg *tunnel.Config) error {
		return b.transport.FirstSuccess(ctx, members,
			func(ctx context.Context, m topology.Node) (bool, error) {
				err := b.transport.Run(ctx, cfg, m, "adm-db-is-primary -q", nil)
				return err == nil, nil
			},
			func(ctx context.Context, m topology.Node) error {
				out, err := b.transport.Output(ctx, cfg, m, "adm-db-dump --gzip")
				if err != nil {
					return errors.Trace(err)
				}
				return errors.Trace(os.WriteFile(filepath.Join(snap.Path, "database", "dump.sql.gz"), out, 0o600))
			})
	})
}

// dumpHooksCluster pulls the shared hook environments from the first storage
// member that has them; they are replicated identically across the role.
func (b *Backup) dumpHooksCluster(ctx context.Context, snap *snapshot.Snapshot, target remote.Host) error {
	members := b.resolver.MembersWithRole(ctx, "storage")
	return tunnel.With(target, members, func(cfg *tunnel.Config) error {
		return b.transport.FirstSuccess(ctx, members,
			func(ctx context.Context, m topology.Node) (bool, error) {
				err := b.transport.Run(ctx, cfg, m, "test -d "+hooksPath, nil)
				return err == nil, nil
			},
			func(ctx context.Context, m topology.Node) error {
				opts := remote.TransferOptions{Delete: true, LinkDest: linkDest(snap, "hooks")}
				return b.transport.Download(ctx, cfg, m, hooksPath, filepath.Join(snap.Path, "hooks")+"/", opts)
			})
	})
}

func (b *Backup) dumpHostKeys(ctx context.Context, snap *snapshot.Snapshot, target remote.Host) error {
	out, err := b.runner.Output(ctx, target, "sudo tar -C /etc/ssh -czf - ssh_host_ed25519_key ssh_host_ed25519_key.pub ssh_host_rsa_key ssh_host_rsa_key.pub")
	if err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(os.WriteFile(filepath.Join(snap.Path, "ssh", "host-keys.tar.gz"), out, 0o600))
}
