package topology_test

import (
	"context"
	"testing"

	"github.com/juju/errors"

	"appliance-backup/src/logging"
	"appliance-backup/src/remote"
	"appliance-backup/src/topology"
)

var entry = remote.Host{Name: "appliance", Port: 122, User: "admin"}

func TestMembersWithRoleParsesAndDeduplicates(t *testing.T) {
	fake := remote.NewFake()
	fake.Outputs["adm-cluster-nodes --role storage"] = "node-1 122\nnode-2\n\nnode-1 122\n"

	r := topology.NewResolver(fake, entry, logging.Discard())
	got := r.MembersWithRole(context.Background(), "storage")
	want := []topology.Node{{Name: "node-1", Port: 122}, {Name: "node-2", Port: 122}}
	if len(got) != len(want) {
		t.Fatalf("got %+v want %+v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("member %d: got %+v want %+v", i, got[i], want[i])
		}
	}
}

func TestMembersWithRoleQueryFailureIsEmpty(t *testing.T) {
	fake := remote.NewFake()
	fake.Fail["adm-cluster-nodes"] = errors.New("control plane down")

	r := topology.NewResolver(fake, entry, logging.Discard())
	if got := r.MembersWithRole(context.Background(), "db"); len(got) != 0 {
		t.Fatalf("expected empty members on query failure, got %+v", got)
	}
}

func TestMembersWithRoleNeverCached(t *testing.T) {
	fake := remote.NewFake()
	fake.Outputs["adm-cluster-nodes --role storage"] = "node-1 122\n"

	r := topology.NewResolver(fake, entry, logging.Discard())
	r.MembersWithRole(context.Background(), "storage")
	r.MembersWithRole(context.Background(), "storage")
	if got := len(fake.CommandsFor("appliance")); got != 2 {
		t.Fatalf("expected a fresh query per call, got %d", got)
	}
}
