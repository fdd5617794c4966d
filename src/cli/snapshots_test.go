package cli_test

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"appliance-backup/src/cli"
	"appliance-backup/src/config"
	"appliance-backup/src/snapshot"
)

func TestSnapshotsCommandListsStore(t *testing.T) {
	dataDir := t.TempDir()
	cfgPath := filepath.Join(t.TempDir(), "backup.toml")
	content := "host = \"appliance.example.com\"\ndata_dir = \"" + dataDir + "\"\n"
	if err := os.WriteFile(cfgPath, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(config.EnvConfig, cfgPath)

	store := snapshot.NewStore(dataDir)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, strat := range []string{"rsync", "rsync"} {
		snap, err := store.Begin(base.Add(time.Duration(i) * time.Minute))
		if err != nil {
			t.Fatal(err)
		}
		if err := store.WriteMeta(snap, strat, "3.1.0"); err != nil {
			t.Fatal(err)
		}
		if err := store.Commit(snap); err != nil {
			t.Fatal(err)
		}
	}

	var out, errOut bytes.Buffer
	root := cli.NewRootCmd(&out, &errOut)
	root.SetArgs([]string{"snapshots"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	listing := out.String()
	if !strings.Contains(listing, "20260301T120000") || !strings.Contains(listing, "20260301T120100") {
		t.Fatalf("listing missing snapshots:\n%s", listing)
	}
	// The current marker sits on the newest committed snapshot.
	for _, line := range strings.Split(listing, "\n") {
		if strings.Contains(line, "*") && !strings.Contains(line, "20260301T120100") {
			t.Fatalf("current marker on wrong snapshot:\n%s", listing)
		}
	}
}
