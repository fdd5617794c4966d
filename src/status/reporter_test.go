package status_test

import (
	"context"
	"strings"
	"testing"

	"github.com/juju/errors"

	"appliance-backup/src/logging"
	"appliance-backup/src/remote"
	"appliance-backup/src/status"
)

var target = remote.Host{Name: "appliance", Port: 122, User: "admin"}

func TestPublishWritesWellKnownPath(t *testing.T) {
	fake := remote.NewFake()
	r := status.NewRemoteReporter(fake, target, logging.Discard())
	r.Publish(context.Background(), status.Restoring)

	cmds := fake.CommandsFor("appliance")
	if len(cmds) != 1 {
		t.Fatalf("expected one publish command, got %v", cmds)
	}
	if !strings.Contains(cmds[0], status.PathOnTarget) || !strings.Contains(cmds[0], "restoring") {
		t.Fatalf("publish command wrong: %q", cmds[0])
	}
}

func TestPublishFailureIsSwallowed(t *testing.T) {
	fake := remote.NewFake()
	fake.Fail["sudo mkdir"] = errors.New("connection reset")

	r := status.NewRemoteReporter(fake, target, logging.Discard())
	// Must not panic or surface the transport error.
	r.Publish(context.Background(), status.Failed)
}

func TestReadMapsUnknownValues(t *testing.T) {
	cases := map[string]string{
		"restoring":  status.Restoring,
		"complete\n": status.Complete,
		"failed":     status.Failed,
		"bogus":      status.Unknown,
		"":           status.Unknown,
	}
	for raw, want := range cases {
		fake := remote.NewFake()
		fake.Outputs["cat "+status.PathOnTarget] = raw
		r := status.NewRemoteReporter(fake, target, logging.Discard())
		if got := r.Read(context.Background()); got != want {
			t.Fatalf("Read(%q) = %q want %q", raw, got, want)
		}
	}
}

func TestReadMissingFileIsUnknown(t *testing.T) {
	fake := remote.NewFake()
	fake.Fail["cat "] = errors.New("No such file or directory")
	r := status.NewRemoteReporter(fake, target, logging.Discard())
	if got := r.Read(context.Background()); got != status.Unknown {
		t.Fatalf("Read on missing file = %q", got)
	}
}
