package sockstat

import (
	"net/netip"
)

// nonPublic lists reserved IPv4 blocks that netip does not flag on its own
// but that never carry real peers (shared, documentation, benchmarking and
// future-use space).
var nonPublic = []netip.Prefix{
	netip.MustParsePrefix("0.0.0.0/8"),
	netip.MustParsePrefix("192.0.0.0/29"),
	netip.MustParsePrefix("192.0.2.0/24"),
	netip.MustParsePrefix("198.18.0.0/15"),
	netip.MustParsePrefix("198.51.100.0/24"),
	netip.MustParsePrefix("203.0.113.0/24"),
	netip.MustParsePrefix("240.0.0.0/4"),
	netip.MustParsePrefix("2001:db8::/32"),
}

// IsPrivate reports whether host should be kept out of the store.
// Anything that does not parse as an IP address counts as private.
func IsPrivate(host string) bool {
	addr, err := netip.ParseAddr(host)
	if err != nil {
		return true
	}
	addr = addr.Unmap()

	if addr.IsPrivate() ||
		addr.IsLoopback() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsInterfaceLocalMulticast() ||
		addr.IsMulticast() ||
		addr.IsUnspecified() {
		return true
	}

	plain := addr.WithZone("")
	for _, p := range nonPublic {
		if p.Contains(plain) {
			return true
		}
	}
	return false
}
