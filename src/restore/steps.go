package restore

import (
	"context"
	"os"
	"path/filepath"

	"github.com/juju/errors"

	"appliance-backup/src/remote"
	"appliance-backup/src/topology"
	"appliance-backup/src/tunnel"
)

// Target-side locations the datastore routines write into. The appliance's
// own import tooling handles everything below them.
const (
	repositoriesPath = "/data/repositories/"
	pagesPath        = "/data/pages/"
	storagePath      = "/data/storage/"
	hookshotPath     = "/data/hookshot/"
	hooksPath        = "/data/git-hooks/"
	searchPath       = "/data/search/"
	stagingPath      = "/tmp/appliance-restore"
)

func (s *Session) datastore(name string) string {
	return filepath.Join(s.Snapshot.Path, name)
}

// restoreSettings stages the exported settings and license and feeds them to
// the appliance's import tooling.
func restoreSettings(ctx context.Context, o *Orchestrator, s *Session) error {
	if err := o.runner.Run(ctx, s.Target, "mkdir -p "+stagingPath, nil); err != nil {
		return errors.Trace(err)
	}
	if err := o.runner.Upload(ctx, s.Target, s.datastore("settings")+"/", stagingPath+"/settings/", remote.TransferOptions{Delete: true}); err != nil {
		return errors.Trace(err)
	}
	if err := o.runner.Run(ctx, s.Target, "adm-config-import "+stagingPath+"/settings/settings.json", nil); err != nil {
		return errors.Trace(err)
	}
	license := filepath.Join(s.datastore("settings"), "license")
	if _, err := os.Stat(license); err == nil {
		if err := o.runner.Run(ctx, s.Target, "adm-license-import "+stagingPath+"/settings/license", nil); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

// restoreDatabase streams the recorded dump into the appliance's import tool.
func restoreDatabase(ctx context.Context, o *Orchestrator, s *Session) error {
	f, err := os.Open(filepath.Join(s.datastore("database"), "dump.sql.gz"))
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	return errors.Trace(o.runner.Run(ctx, s.Target, "adm-db-load --gzip", f))
}

// restoreDatabaseCluster streams the dump to the database primary. The dump
// replicates from there, so the first primary found is the only member that
// needs the transfer.
func restoreDatabaseCluster(ctx context.Context, o *Orchestrator, s *Session) error {
	members := o.resolver.MembersWithRole(ctx, "db")
	return tunnel.With(s.Target, members, func(cfg *tunnel.Config) error {
		return o.transport.FirstSuccess(ctx, members,
			func(ctx context.Context, m topology.Node) (bool, error) {
				err := o.transport.Run(ctx, cfg, m, "adm-db-is-primary -q", nil)
				return err == nil, nil
			},
			func(ctx context.Context, m topology.Node) error {
				f, err := os.Open(filepath.Join(s.datastore("database"), "dump.sql.gz"))
				if err != nil {
					return errors.Trace(err)
				}
				defer f.Close()
				return errors.Trace(o.transport.Run(ctx, cfg, m, "adm-db-load --gzip", f))
			})
	})
}

func restoreTree(ctx context.Context, o *Orchestrator, s *Session, datastore, targetPath string) error {
	opts := remote.TransferOptions{Delete: true}
	return errors.Trace(o.runner.Upload(ctx, s.Target, s.datastore(datastore)+"/", targetPath, opts))
}

// restoreTarball streams a legacy tarball datastore into tar on the target.
func restoreTarball(ctx context.Context, o *Orchestrator, s *Session, datastore, targetPath string) error {
	f, err := os.Open(filepath.Join(s.datastore(datastore), datastore+".tar.gz"))
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	return errors.Trace(o.runner.Run(ctx, s.Target, "sudo tar -xzf - -C "+targetPath, f))
}

// restoreShards fans a sharded datastore out to every member of role. Each
// member receives its own shard subdirectory recorded at backup time.
func restoreShards(ctx context.Context, o *Orchestrator, s *Session, datastore, role, targetPath string) error {
	members := o.resolver.MembersWithRole(ctx, role)
	return tunnel.With(s.Target, members, func(cfg *tunnel.Config) error {
		return o.transport.FanOut(ctx, members, func(ctx context.Context, m topology.Node) error {
			shard := filepath.Join(s.datastore(datastore), m.Name)
			if _, err := os.Stat(shard); err != nil {
				return errors.NotFoundf("snapshot shard %s for member %s", datastore, m.Name)
			}
			return o.transport.Upload(ctx, cfg, m, shard+"/", targetPath, remote.TransferOptions{Delete: true})
		})
	})
}

func restoreRepositoriesRsync(ctx context.Context, o *Orchestrator, s *Session) error {
	return restoreTree(ctx, o, s, "repositories", repositoriesPath)
}

func restoreRepositoriesTarball(ctx context.Context, o *Orchestrator, s *Session) error {
	return restoreTarball(ctx, o, s, "repositories", "/data")
}

func restoreRepositoriesCluster(ctx context.Context, o *Orchestrator, s *Session) error {
	return restoreShards(ctx, o, s, "repositories", "storage", repositoriesPath)
}

func restorePagesRsync(ctx context.Context, o *Orchestrator, s *Session) error {
	return restoreTree(ctx, o, s, "pages", pagesPath)
}

func restorePagesTarball(ctx context.Context, o *Orchestrator, s *Session) error {
	return restoreTarball(ctx, o, s, "pages", "/data")
}

func restorePagesCluster(ctx context.Context, o *Orchestrator, s *Session) error {
	return restoreShards(ctx, o, s, "pages", "pages", pagesPath)
}

func restoreStorage(ctx context.Context, o *Orchestrator, s *Session) error {
	return restoreTree(ctx, o, s, "storage", storagePath)
}

func restoreStorageCluster(ctx context.Context, o *Orchestrator, s *Session) error {
	return restoreShards(ctx, o, s, "storage", "storage", storagePath)
}

func restoreHookshot(ctx context.Context, o *Orchestrator, s *Session) error {
	return restoreTree(ctx, o, s, "hookshot", hookshotPath)
}

func restoreHooks(ctx context.Context, o *Orchestrator, s *Session) error {
	return restoreTree(ctx, o, s, "hooks", hooksPath)
}

// restoreHooksCluster pushes the shared hook environments to one storage
// member; the appliance replicates them to the rest of the role.
func restoreHooksCluster(ctx context.Context, o *Orchestrator, s *Session) error {
	members := o.resolver.MembersWithRole(ctx, "storage")
	return tunnel.With(s.Target, members, func(cfg *tunnel.Config) error {
		return o.transport.FirstSuccess(ctx, members,
			func(ctx context.Context, m topology.Node) (bool, error) {
				err := o.transport.Run(ctx, cfg, m, "test -d "+hooksPath, nil)
				return err == nil, nil
			},
			func(ctx context.Context, m topology.Node) error {
				return o.transport.Upload(ctx, cfg, m, s.datastore("hooks")+"/", hooksPath, remote.TransferOptions{Delete: true})
			})
	})
}

// restoreSearch puts the index files back and asks the appliance to repair
// derived index metadata against the freshly restored content.
func restoreSearch(ctx context.Context, o *Orchestrator, s *Session) error {
	if err := restoreTree(ctx, o, s, "search", searchPath); err != nil {
		return errors.Trace(err)
	}
	return errors.Trace(o.runner.Run(ctx, s.Target, "adm-search-repair", nil))
}

// restoreSearchCluster rebuilds the sharded indices from restored content
// rather than shipping index files per member.
func restoreSearchCluster(ctx context.Context, o *Orchestrator, s *Session) error {
	return errors.Trace(o.runner.Run(ctx, s.Target, "adm-search-reindex --cluster", nil))
}

// restoreHostKeys streams the recorded host key material into /etc/ssh. Runs
// only after the terminal status is published.
func restoreHostKeys(ctx context.Context, o *Orchestrator, s *Session) error {
	f, err := os.Open(filepath.Join(s.datastore("ssh"), "host-keys.tar.gz"))
	if err != nil {
		return errors.Trace(err)
	}
	defer f.Close()
	return errors.Trace(o.runner.Run(ctx, s.Target, "sudo tar -xzf - -C /etc/ssh && sudo systemctl reload ssh", f))
}
