// Package version provides the bridge version and its parsing helpers.
package version

import (
	"fmt"
	"strconv"
	"strings"
)

// Current is the bridge version. Peers with the same major version
// expose compatible northbound APIs.
const Current = "1.0"

// Build identifies the build. It is set at link time with
// -ldflags "-X github.com/gridlink/tagbridge/pkg/version.Build=...".
var Build = "dev"

// Version represents a parsed "major.minor" bridge version.
type Version struct {
	Major uint16
	Minor uint16
}

// Parse parses a "major.minor" version string.
func Parse(s string) (Version, error) {
	parts := strings.Split(s, ".")
	if len(parts) != 2 {
		return Version{}, fmt.Errorf("invalid version %q: expected major.minor", s)
	}

	major, err := strconv.ParseUint(parts[0], 10, 16)
	if err != nil || parts[0] == "" {
		return Version{}, fmt.Errorf("invalid version %q: bad major component", s)
	}

	minor, err := strconv.ParseUint(parts[1], 10, 16)
	if err != nil || parts[1] == "" {
		return Version{}, fmt.Errorf("invalid version %q: bad minor component", s)
	}

	return Version{Major: uint16(major), Minor: uint16(minor)}, nil
}

// MustParse is like Parse but panics on error.
func MustParse(s string) Version {
	v, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String returns the version as "major.minor".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d", v.Major, v.Minor)
}

// Compatible returns true if the other version has the same major version.
func (v Version) Compatible(other Version) bool {
	return v.Major == other.Major
}

// CompatibleWith reports whether a peer advertising s can be used by
// this build. Unparseable versions are incompatible.
func CompatibleWith(s string) bool {
	other, err := Parse(s)
	if err != nil {
		return false
	}
	return MustParse(Current).Compatible(other)
}

// Full returns the version followed by the build, e.g. "1.0 (dev)".
func Full() string {
	return fmt.Sprintf("%s (%s)", Current, Build)
}
