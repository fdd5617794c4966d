package tunnel_test

import (
	"os"
	"strings"
	"testing"

	"github.com/juju/errors"

	"appliance-backup/src/remote"
	"appliance-backup/src/topology"
	"appliance-backup/src/tunnel"
)

var entry = remote.Host{Name: "appliance.example.com", Port: 122, User: "admin"}

var members = []topology.Node{
	{Name: "node-1", Port: 122},
	{Name: "node-2", Port: 122},
}

func TestBuildWritesProxyRules(t *testing.T) {
	cfg, err := tunnel.Build(entry, members)
	if err != nil {
		t.Fatal(err)
	}
	defer cfg.Release()

	b, err := os.ReadFile(cfg.Path)
	if err != nil {
		t.Fatal(err)
	}
	content := string(b)
	for _, m := range members {
		if !strings.Contains(content, "Host "+m.Name) {
			t.Fatalf("missing host block for %s:\n%s", m.Name, content)
		}
	}
	if !strings.Contains(content, "ProxyCommand ssh -q -p 122 admin@appliance.example.com nc %h %p") {
		t.Fatalf("missing proxy rule through the entry host:\n%s", content)
	}
	// Internal hops cannot be verified independently.
	if !strings.Contains(content, "StrictHostKeyChecking no") {
		t.Fatalf("host key checking not disabled for internal hops:\n%s", content)
	}
}

func TestWithReleasesOnSuccess(t *testing.T) {
	var path string
	err := tunnel.With(entry, members, func(cfg *tunnel.Config) error {
		path = cfg.Path
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config missing inside body: %v", err)
		}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("tunnel config not unlinked after success")
	}
}

func TestWithReleasesOnError(t *testing.T) {
	var path string
	boom := errors.New("transfer failed")
	err := tunnel.With(entry, members, func(cfg *tunnel.Config) error {
		path = cfg.Path
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("body error not propagated: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("tunnel config not unlinked after error")
	}
}

func TestWithReleasesOnPanic(t *testing.T) {
	var path string
	func() {
		defer func() { recover() }()
		tunnel.With(entry, members, func(cfg *tunnel.Config) error {
			path = cfg.Path
			panic("interrupted")
		})
	}()
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Fatalf("tunnel config not unlinked after panic")
	}
}

func TestMemberHostRoutedThroughConfig(t *testing.T) {
	cfg, err := tunnel.Build(entry, members)
	if err != nil {
		t.Fatal(err)
	}
	defer cfg.Release()

	h := cfg.MemberHost(members[0])
	if h.SSHConfig != cfg.Path {
		t.Fatalf("member host not routed through tunnel config: %+v", h)
	}
	if h.User != entry.User {
		t.Fatalf("member host must inherit the entry user: %+v", h)
	}
}
