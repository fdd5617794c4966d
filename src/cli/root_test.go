package cli_test

import (
	"bytes"
	"strings"
	"testing"

	"appliance-backup/src/cli"
	"appliance-backup/src/version"
)

func TestRootHelpListsSubcommands(t *testing.T) {
	var out, errOut bytes.Buffer
	root := cli.NewRootCmd(&out, &errOut)
	root.SetArgs([]string{"--help"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	help := out.String()
	for _, sub := range []string{"backup", "restore", "snapshots", "version"} {
		if !strings.Contains(help, sub) {
			t.Fatalf("help missing %q:\n%s", sub, help)
		}
	}
}

func TestVersionCommand(t *testing.T) {
	var out, errOut bytes.Buffer
	root := cli.NewRootCmd(&out, &errOut)
	root.SetArgs([]string{"version"})
	if err := root.Execute(); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), version.Version) {
		t.Fatalf("version output %q", out.String())
	}
}

func TestRestoreFlags(t *testing.T) {
	var out, errOut bytes.Buffer
	root := cli.NewRootCmd(&out, &errOut)
	restoreCmd, _, err := root.Find([]string{"restore"})
	if err != nil {
		t.Fatal(err)
	}
	for flag, shorthand := range map[string]string{
		"force":    "f",
		"config":   "c",
		"snapshot": "s",
	} {
		f := restoreCmd.Flags().Lookup(flag)
		if f == nil {
			t.Fatalf("restore missing --%s", flag)
		}
		if f.Shorthand != shorthand {
			t.Fatalf("--%s shorthand %q want %q", flag, f.Shorthand, shorthand)
		}
	}
	if v := root.PersistentFlags().Lookup("verbose"); v == nil || v.Shorthand != "v" {
		t.Fatalf("missing -v/--verbose")
	}
}

func TestRestoreRejectsExtraArgs(t *testing.T) {
	var out, errOut bytes.Buffer
	root := cli.NewRootCmd(&out, &errOut)
	root.SetArgs([]string{"restore", "host-a", "host-b"})
	if err := root.Execute(); err == nil {
		t.Fatalf("expected arg validation error")
	}
}
