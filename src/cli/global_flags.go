package cli

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"appliance-backup/src/config"
	"appliance-backup/src/logging"
	"appliance-backup/src/remote"
)

// addGlobalFlags adds persistent flags shared by every subcommand.
func addGlobalFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable debug logging")
}

// newLogger builds the process logger from the global flags.
func newLogger(cmd *cobra.Command) zerolog.Logger {
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")
	return logging.New(os.Stderr, verbose)
}

// loadSetup resolves config and target host for commands that talk to the
// appliance. hostOverride, when non-empty, replaces the configured host.
func loadSetup(hostOverride string) (config.Config, remote.Host, error) {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return config.Config{}, remote.Host{}, err
	}
	spec := cfg.Host
	if hostOverride != "" {
		spec = hostOverride
	}
	name, port, err := config.SplitHost(spec)
	if err != nil {
		return config.Config{}, remote.Host{}, err
	}
	return cfg, remote.Host{Name: name, Port: port, User: cfg.SSHUser}, nil
}
