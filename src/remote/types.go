package remote

import (
	"context"
	"io"
)

// Host identifies one reachable machine and how to connect to it.
type Host struct {
	Name string
	Port int
	User string
	// SSHConfig, when set, is an ephemeral OpenSSH config file passed to
	// ssh/rsync as -F so connections are routed through a tunnel.
	SSHConfig string
}

// UserHost renders the ssh destination ("user@name", or "name" when no user
// is set).
func (h Host) UserHost() string {
	if h.User == "" {
		return h.Name
	}
	return h.User + "@" + h.Name
}

// TransferOptions tune a bulk transfer.
type TransferOptions struct {
	// LinkDest is a tree on the receiving side used as a hardlink source so
	// unchanged files are linked instead of re-sent.
	LinkDest string
	// Delete removes receiver-side files absent from the source.
	Delete bool
}

// Runner is the narrow interface over the remote shell and bulk-transfer
// primitives. Keep it small and focused on what we actually need so it stays
// mockable.
type Runner interface {
	// Run executes command on h, feeding stdin when non-nil. A non-zero
	// exit reports as a non-nil error.
	Run(ctx context.Context, h Host, command string, stdin io.Reader) error
	// Output executes command on h and returns its stdout.
	Output(ctx context.Context, h Host, command string) ([]byte, error)
	// Upload copies the local path to a remote path on h.
	Upload(ctx context.Context, h Host, local, remote string, opts TransferOptions) error
	// Download copies a remote path on h to the local path.
	Download(ctx context.Context, h Host, remote, local string, opts TransferOptions) error
}
