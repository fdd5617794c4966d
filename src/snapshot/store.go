package snapshot

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/juju/errors"
)

const (
	// IDFormat is the timestamp layout snapshot directories are named by.
	IDFormat = "20060102T150405"

	// StrategyFile and VersionFile hold the metadata recorded at backup time.
	StrategyFile = "strategy"
	VersionFile  = "version"

	currentName      = "current"
	incompleteMarker = "incomplete"
)

// Store manages the append-only chain of snapshots under one root directory.
// The "current" symlink always references the most recently committed
// snapshot, never a partial one.
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

// Root returns the store's root directory.
func (s *Store) Root() string { return s.root }

func (s *Store) currentPath() string { return filepath.Join(s.root, currentName) }

// Begin allocates a new snapshot directory with its per-datastore layout.
// The snapshot carries an incomplete marker until Commit removes it.
func (s *Store) Begin(now time.Time) (*Snapshot, error) {
	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return nil, errors.Trace(err)
	}
	id := now.UTC().Format(IDFormat)
	dir := filepath.Join(s.root, id)
	if err := os.Mkdir(dir, 0o755); err != nil {
		if os.IsExist(err) {
			return nil, errors.AlreadyExistsf("snapshot %s", id)
		}
		return nil, errors.Trace(err)
	}
	if err := os.WriteFile(filepath.Join(dir, incompleteMarker), nil, 0o644); err != nil {
		return nil, errors.Trace(err)
	}
	for _, ds := range Datastores {
		if err := os.Mkdir(filepath.Join(dir, ds), 0o755); err != nil {
			return nil, errors.Trace(err)
		}
	}
	return &Snapshot{ID: id, Path: dir, Parent: s.DedupBase()}, nil
}

// WriteMeta records the backup strategy and appliance version inside the
// snapshot. Both are read back verbatim at restore time and never re-derived
// from a live target.
func (s *Store) WriteMeta(snap *Snapshot, strategy, version string) error {
	if err := os.WriteFile(filepath.Join(snap.Path, StrategyFile), []byte(strategy+"\n"), 0o644); err != nil {
		return errors.Trace(err)
	}
	if err := os.WriteFile(filepath.Join(snap.Path, VersionFile), []byte(version+"\n"), 0o644); err != nil {
		return errors.Trace(err)
	}
	snap.Strategy = strategy
	snap.Version = version
	return nil
}

// Committed reports whether a committed snapshot chain exists.
func (s *Store) Committed() bool {
	return s.DedupBase() != ""
}

// DedupBase returns the path of the committed snapshot "current" references,
// for use as a hardlink base, or "" when no snapshot has been committed.
func (s *Store) DedupBase() string {
	dest, err := os.Readlink(s.currentPath())
	if err != nil {
		return ""
	}
	if !filepath.IsAbs(dest) {
		dest = filepath.Join(s.root, dest)
	}
	if _, err := os.Stat(dest); err != nil {
		return ""
	}
	return dest
}

// Commit marks the snapshot complete and atomically retargets "current" at
// it. The swap is a symlink rename, so no observer ever sees "current"
// pointing at a partially written snapshot.
func (s *Store) Commit(snap *Snapshot) error {
	if err := os.Remove(filepath.Join(snap.Path, incompleteMarker)); err != nil && !os.IsNotExist(err) {
		return errors.Trace(err)
	}
	tmp := s.currentPath() + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return errors.Trace(err)
	}
	if err := os.Symlink(snap.ID, tmp); err != nil {
		return errors.Trace(err)
	}
	if err := os.Rename(tmp, s.currentPath()); err != nil {
		os.Remove(tmp)
		return errors.Trace(err)
	}
	return nil
}

// Abort removes a partial snapshot directory. The "current" pointer is left
// untouched.
func (s *Store) Abort(snap *Snapshot) error {
	if snap == nil {
		return nil
	}
	rel, err := filepath.Rel(s.root, snap.Path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return errors.Errorf("refusing to remove %s: outside store root", snap.Path)
	}
	return errors.Trace(os.RemoveAll(snap.Path))
}

// Resolve loads a committed snapshot by id. An empty id or "current" resolves
// through the current pointer.
func (s *Store) Resolve(id string) (*Snapshot, error) {
	var dir string
	switch id {
	case "", currentName:
		dir = s.DedupBase()
		if dir == "" {
			return nil, errors.NotFoundf("current snapshot in %s", s.root)
		}
		id = filepath.Base(dir)
	default:
		dir = filepath.Join(s.root, id)
		if fi, err := os.Stat(dir); err != nil || !fi.IsDir() {
			return nil, errors.NotFoundf("snapshot %s", id)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, incompleteMarker)); err == nil {
		return nil, errors.Errorf("snapshot %s was never committed", id)
	}
	snap := &Snapshot{ID: id, Path: dir}
	snap.Strategy = readMeta(dir, StrategyFile)
	snap.Version = readMeta(dir, VersionFile)
	return snap, nil
}

// List returns the committed snapshots in ascending id order.
func (s *Store) List() ([]Snapshot, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Trace(err)
	}
	var out []Snapshot
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		if _, err := time.Parse(IDFormat, e.Name()); err != nil {
			continue
		}
		dir := filepath.Join(s.root, e.Name())
		if _, err := os.Stat(filepath.Join(dir, incompleteMarker)); err == nil {
			continue
		}
		out = append(out, Snapshot{
			ID:       e.Name(),
			Path:     dir,
			Strategy: readMeta(dir, StrategyFile),
			Version:  readMeta(dir, VersionFile),
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func readMeta(dir, name string) string {
	b, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(b))
}
