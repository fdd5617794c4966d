package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"appliance-backup/src/config"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "backup.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
host = "appliance.example.com"
data_dir = "/var/backups/appliance"
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SSHUser != "admin" {
		t.Fatalf("ssh_user default: %q", cfg.SSHUser)
	}
	if cfg.NumSnapshots != 10 {
		t.Fatalf("num_snapshots default: %d", cfg.NumSnapshots)
	}
}

func TestLoadFull(t *testing.T) {
	path := writeConfig(t, `
host = "appliance.example.com:2222"
data_dir = "/var/backups/appliance"
ssh_user = "backup"
extra_ssh_opts = ["-o", "ConnectTimeout=5"]
num_snapshots = 4
`)
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.SSHUser != "backup" || cfg.NumSnapshots != 4 || len(cfg.ExtraSSHOpts) != 2 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	name, port, err := config.SplitHost(cfg.Host)
	if err != nil {
		t.Fatal(err)
	}
	if name != "appliance.example.com" || port != 2222 {
		t.Fatalf("host split: %s:%d", name, port)
	}
}

func TestLoadRejectsMissingFields(t *testing.T) {
	for _, content := range []string{
		`data_dir = "/var/backups"`,
		`host = "appliance.example.com"`,
	} {
		if _, err := config.Load(writeConfig(t, content)); err == nil {
			t.Fatalf("expected validation error for %q", content)
		}
	}
}

func TestSplitHostDefaultsAdminPort(t *testing.T) {
	name, port, err := config.SplitHost("appliance.internal")
	if err != nil {
		t.Fatal(err)
	}
	if name != "appliance.internal" || port != config.DefaultSSHPort {
		t.Fatalf("got %s:%d", name, port)
	}
	if _, _, err := config.SplitHost(":22"); err == nil {
		t.Fatalf("expected error for empty name")
	}
	if _, _, err := config.SplitHost("host:bogus"); err == nil {
		t.Fatalf("expected error for non-numeric port")
	}
}

func TestPathHonoursEnvOverride(t *testing.T) {
	t.Setenv(config.EnvConfig, "/tmp/custom.toml")
	if got := config.Path(); got != "/tmp/custom.toml" {
		t.Fatalf("Path() = %q", got)
	}
	t.Setenv(config.EnvConfig, "")
	if got := config.Path(); got != config.DefaultPath {
		t.Fatalf("Path() = %q", got)
	}
}
