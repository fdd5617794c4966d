package remote

import (
	"strings"
	"testing"
)

func TestSSHArgs(t *testing.T) {
	r := &ExecRunner{ExtraSSHOpts: []string{"-o", "ConnectTimeout=5"}}
	h := Host{Name: "appliance", Port: 122, User: "admin"}
	args := strings.Join(r.sshArgs(h), " ")
	if !strings.Contains(args, "-p 122") {
		t.Fatalf("missing port: %q", args)
	}
	if !strings.Contains(args, "BatchMode=yes") {
		t.Fatalf("missing batch mode: %q", args)
	}
	if !strings.Contains(args, "ConnectTimeout=5") {
		t.Fatalf("missing extra opts: %q", args)
	}
	if strings.Contains(args, "-F") {
		t.Fatalf("unexpected -F without tunnel config: %q", args)
	}
}

func TestSSHArgsTunnelConfig(t *testing.T) {
	r := &ExecRunner{}
	h := Host{Name: "node-1", Port: 122, SSHConfig: "/tmp/tunnel.conf"}
	args := strings.Join(r.sshArgs(h), " ")
	if !strings.Contains(args, "-F /tmp/tunnel.conf") {
		t.Fatalf("tunnel config not routed through -F: %q", args)
	}
}

func TestRsyncArgs(t *testing.T) {
	args := strings.Join(rsyncArgs(TransferOptions{Delete: true, LinkDest: "/snapshots/prev/repositories"}), " ")
	if !strings.Contains(args, "--delete") {
		t.Fatalf("missing --delete: %q", args)
	}
	if !strings.Contains(args, "--link-dest /snapshots/prev/repositories") {
		t.Fatalf("missing dedup base: %q", args)
	}

	bare := strings.Join(rsyncArgs(TransferOptions{}), " ")
	if strings.Contains(bare, "--link-dest") || strings.Contains(bare, "--delete") {
		t.Fatalf("unexpected options for empty TransferOptions: %q", bare)
	}
}

func TestUserHost(t *testing.T) {
	if got := (Host{Name: "n", User: "admin"}).UserHost(); got != "admin@n" {
		t.Fatalf("got %q", got)
	}
	if got := (Host{Name: "n"}).UserHost(); got != "n" {
		t.Fatalf("got %q", got)
	}
}
