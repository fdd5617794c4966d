package topology

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/juju/collections/set"
	"github.com/rs/zerolog"

	"appliance-backup/src/config"
	"appliance-backup/src/remote"
)

// Node is one cluster member as reported by the control plane.
type Node struct {
	Name string
	Port int
}

// Resolver discovers reachable cluster members by role. Results are never
// cached: topology is queried fresh for every operation.
type Resolver struct {
	runner remote.Runner
	entry  remote.Host
	log    zerolog.Logger
}

func NewResolver(runner remote.Runner, entry remote.Host, log zerolog.Logger) *Resolver {
	return &Resolver{runner: runner, entry: entry, log: log.With().Str("component", "topology").Logger()}
}

// MembersWithRole returns the online cluster members carrying role, in the
// control plane's order with duplicates dropped. A failed or empty query
// yields an empty slice, which callers treat as nothing to do.
func (r *Resolver) MembersWithRole(ctx context.Context, role string) []Node {
	out, err := r.runner.Output(ctx, r.entry, fmt.Sprintf("adm-cluster-nodes --role %s --online", role))
	if err != nil {
		r.log.Debug().Err(err).Str("role", role).Msg("cluster node query failed")
		return nil
	}
	seen := set.NewStrings()
	var nodes []Node
	for _, line := range strings.Split(string(out), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		name := fields[0]
		if seen.Contains(name) {
			continue
		}
		seen.Add(name)
		port := config.DefaultSSHPort
		if len(fields) > 1 {
			if p, err := strconv.Atoi(fields[1]); err == nil && p > 0 {
				port = p
			}
		}
		nodes = append(nodes, Node{Name: name, Port: port})
	}
	r.log.Debug().Str("role", role).Int("members", len(nodes)).Msg("resolved cluster members")
	return nodes
}
