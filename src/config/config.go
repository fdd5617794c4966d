package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/juju/errors"
)

// DefaultPath is where the backup configuration lives unless overridden.
const DefaultPath = "/etc/appliance-backup/backup.toml"

// EnvConfig names the environment variable that overrides the config path.
const EnvConfig = "APPLIANCE_BACKUP_CONFIG"

// DefaultSSHPort is the appliance's administrative SSH port.
const DefaultSSHPort = 122

// Config is the persisted backup configuration.
type Config struct {
	// Host is the target appliance, "name" or "name:port".
	Host string `toml:"host"`
	// DataDir is the root of the local snapshot store.
	DataDir string `toml:"data_dir"`
	// SSHUser is the administrative user on the appliance.
	SSHUser string `toml:"ssh_user"`
	// ExtraSSHOpts are passed through verbatim to every ssh invocation.
	ExtraSSHOpts []string `toml:"extra_ssh_opts"`
	// NumSnapshots is the intended retention depth. Pruning is operator
	// driven; the value is informational for `snapshots`.
	NumSnapshots int `toml:"num_snapshots"`
}

// Path returns the config file location, honouring EnvConfig.
func Path() string {
	if p := strings.TrimSpace(os.Getenv(EnvConfig)); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads and validates the configuration at path.
func Load(path string) (Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, errors.Annotatef(err, "loading config %s", path)
	}
	if cfg.SSHUser == "" {
		cfg.SSHUser = "admin"
	}
	if cfg.NumSnapshots <= 0 {
		cfg.NumSnapshots = 10
	}
	if strings.TrimSpace(cfg.Host) == "" {
		return Config{}, errors.NotValidf("config %s: missing host", path)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return Config{}, errors.NotValidf("config %s: missing data_dir", path)
	}
	return cfg, nil
}

// SplitHost parses a "name" or "name:port" host spec, applying the
// administrative port default.
func SplitHost(spec string) (string, int, error) {
	spec = strings.TrimSpace(spec)
	name, portStr, found := strings.Cut(spec, ":")
	if name == "" {
		return "", 0, errors.NotValidf("host %q", spec)
	}
	if !found {
		return name, DefaultSSHPort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil || port <= 0 {
		return "", 0, errors.NotValidf("host %q: port", spec)
	}
	return name, port, nil
}
