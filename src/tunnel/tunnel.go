package tunnel

import (
	"fmt"
	"os"

	"github.com/juju/errors"

	"appliance-backup/src/remote"
	"appliance-backup/src/topology"
)

// Config is an ephemeral tunnel configuration: an OpenSSH config file that
// routes connections to internal-only cluster members through the externally
// reachable entry host. It must be released on every exit path; use With.
type Config struct {
	// Path is the config file, passed to ssh/rsync as -F.
	Path string
	// Entry is the externally reachable host all hops go through.
	Entry remote.Host
}

// Build writes the tunnel configuration for the given members. Each member
// gets a proxy rule executing the hop on the entry host. Host key checking is
// disabled for these internal hops only: internal addresses are not
// independently verifiable, while the entry host keeps whatever verification
// policy the caller's ssh setup dictates.
func Build(entry remote.Host, members []topology.Node) (*Config, error) {
	f, err := os.CreateTemp("", "appliance-tunnel-*.conf")
	if err != nil {
		return nil, errors.Annotate(err, "creating tunnel config")
	}
	for _, m := range members {
		fmt.Fprintf(f, "Host %s\n", m.Name)
		fmt.Fprintf(f, "  Port %d\n", m.Port)
		if entry.User != "" {
			fmt.Fprintf(f, "  User %s\n", entry.User)
		}
		fmt.Fprintf(f, "  StrictHostKeyChecking no\n")
		fmt.Fprintf(f, "  UserKnownHostsFile /dev/null\n")
		fmt.Fprintf(f, "  ProxyCommand ssh -q -p %d %s nc %%h %%p\n", entry.Port, entry.UserHost())
		fmt.Fprintln(f)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return nil, errors.Trace(err)
	}
	return &Config{Path: f.Name(), Entry: entry}, nil
}

// Release unlinks the tunnel configuration. Safe to call more than once.
func (c *Config) Release() {
	if c == nil || c.Path == "" {
		return
	}
	os.Remove(c.Path)
	c.Path = ""
}

// With builds a tunnel to members through entry, runs body, and releases the
// configuration on every exit path, panics included.
func With(entry remote.Host, members []topology.Node, body func(*Config) error) error {
	cfg, err := Build(entry, members)
	if err != nil {
		return errors.Trace(err)
	}
	defer cfg.Release()
	return body(cfg)
}

// MemberHost renders a member as a connectable host routed through the
// tunnel.
func (c *Config) MemberHost(m topology.Node) remote.Host {
	return remote.Host{Name: m.Name, Port: m.Port, User: c.Entry.User, SSHConfig: c.Path}
}
