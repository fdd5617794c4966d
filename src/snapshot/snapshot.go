package snapshot

// Snapshot is one point-in-time backup in the store.
type Snapshot struct {
	// ID is the timestamp-derived snapshot identifier (directory name).
	ID string
	// Path is the snapshot directory on disk.
	Path string
	// Strategy is the backup strategy tag recorded at backup time.
	Strategy string
	// Version is the appliance version recorded at backup time.
	Version string
	// Parent is the committed snapshot this one hardlinks against, or ""
	// for a full backup.
	Parent string
}

// Datastores lists the per-datastore subdirectories of every snapshot, one
// per independently restorable unit of appliance state.
var Datastores = []string{
	"database",
	"repositories",
	"pages",
	"storage",
	"hookshot",
	"hooks",
	"search",
	"settings",
	"ssh",
}
