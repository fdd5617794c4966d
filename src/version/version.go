package version

import (
	"strings"

	"github.com/juju/errors"
	semversion "github.com/juju/version/v2"
)

// Version is the build version of the appliance-backup tool itself.
var Version = "1.3.0"

// MinimumClusterVersion is the oldest appliance release whose cluster
// snapshots this tool can restore. Older cluster snapshots predate the
// per-datastore cluster restore paths and are rejected during validation.
var MinimumClusterVersion = semversion.MustParse("2.8.0")

// MinimumSupported is the oldest appliance release this build can talk to.
var MinimumSupported = semversion.MustParse("2.5.0")

// SupportedMajor is the newest appliance release series this build supports.
const SupportedMajor = 3

// ParseAppliance extracts the appliance version from `adm-version` output,
// which is either a bare version string or "appliance <version>".
func ParseAppliance(output string) (semversion.Number, error) {
	s := strings.TrimSpace(output)
	if fields := strings.Fields(s); len(fields) > 0 {
		s = fields[len(fields)-1]
	}
	s = strings.TrimPrefix(s, "v")
	n, err := semversion.Parse(s)
	if err != nil {
		return semversion.Zero, errors.Annotatef(err, "parsing appliance version %q", output)
	}
	return n, nil
}

// SupportsTarget reports whether a target running the given appliance
// release can be operated on by this build.
func SupportsTarget(n semversion.Number) bool {
	return n.Compare(MinimumSupported) >= 0 && n.Major <= SupportedMajor
}
