package driver

import "fmt"

// Version is a packed major.minor.patch version (10.10.12 bits), the
// layout native loaders use for API and application versions.
type Version uint32

// Well-known API versions.
var (
	Version10 = MakeVersion(1, 0, 0)
	Version11 = MakeVersion(1, 1, 0)
	Version12 = MakeVersion(1, 2, 0)
	Version13 = MakeVersion(1, 3, 0)
)

// MakeVersion packs a version.
func MakeVersion(major, minor, patch uint32) Version {
	return Version(major<<22 | (minor&0x3ff)<<12 | patch&0xfff)
}

// Major returns the major component.
func (v Version) Major() uint32 { return uint32(v) >> 22 }

// Minor returns the minor component.
func (v Version) Minor() uint32 { return (uint32(v) >> 12) & 0x3ff }

// Patch returns the patch component.
func (v Version) Patch() uint32 { return uint32(v) & 0xfff }

// String formats the version as "major.minor.patch".
func (v Version) String() string {
	return fmt.Sprintf("%d.%d.%d", v.Major(), v.Minor(), v.Patch())
}

// ParseVersion parses "major.minor[.patch]".
func ParseVersion(s string) (Version, error) {
	var major, minor, patch uint32
	n, err := fmt.Sscanf(s, "%d.%d.%d", &major, &minor, &patch)
	if n < 2 {
		if err == nil {
			err = fmt.Errorf("driver: malformed version %q", s)
		}
		return 0, fmt.Errorf("driver: parse version %q: %w", s, err)
	}
	return MakeVersion(major, minor, patch), nil
}
