// Package peer defines the connection and direction types shared by the
// scanner, the store and the notifiers.
package peer

import (
	"fmt"
	"net/netip"
)

// Direction tells whether the remote side connected to us or we connected out.
type Direction string

const (
	// DirectionIn marks a peer talking to one of our service ports.
	DirectionIn Direction = "in"
	// DirectionOut marks a connection we initiated.
	DirectionOut Direction = "out"
)

// Valid reports whether d is one of the known directions.
func (d Direction) Valid() bool {
	return d == DirectionIn || d == DirectionOut
}

// ParseDirection converts a string into a Direction.
func ParseDirection(s string) (Direction, error) {
	d := Direction(s)
	if !d.Valid() {
		return "", fmt.Errorf("invalid direction %q (want in or out)", s)
	}
	return d, nil
}

// Connection is one established socket observed during a scan.
// It is produced fresh on every scan and never persisted as such.
type Connection struct {
	LocalIP   string
	LocalPort int
	PeerIP    string
	PeerPort  int
	Direction Direction
}

// ServicePort returns the port worth remembering for this connection:
// our listening port for inbound peers, the remote port for outbound ones.
func (c Connection) ServicePort() int {
	if c.Direction == DirectionIn {
		return c.LocalPort
	}
	return c.PeerPort
}

// PortSet is a set of TCP/UDP port numbers.
type PortSet map[int]struct{}

// NewPortSet builds a PortSet from a list of ports.
func NewPortSet(ports ...int) PortSet {
	s := make(PortSet, len(ports))
	for _, p := range ports {
		s[p] = struct{}{}
	}
	return s
}

// Has reports whether port is in the set.
func (s PortSet) Has(port int) bool {
	_, ok := s[port]
	return ok
}

// CanonicalIP returns the canonical text form of an address, with
// IPv4-mapped IPv6 unmapped (`::ffff:1.2.3.4` becomes `1.2.3.4`). Strings that
// do not parse are returned unchanged.
func CanonicalIP(ip string) string {
	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return ip
	}
	return addr.Unmap().String()
}

// IPSet is a set of IP addresses, as reported by fail2ban. Members and
// lookups are compared in canonical form.
type IPSet map[string]struct{}

// NewIPSet builds an IPSet from a list of addresses.
func NewIPSet(ips ...string) IPSet {
	s := make(IPSet, len(ips))
	for _, ip := range ips {
		s.Add(ip)
	}
	return s
}

// Has reports whether ip is in the set. A nil set contains nothing.
func (s IPSet) Has(ip string) bool {
	_, ok := s[CanonicalIP(ip)]
	return ok
}

// Add inserts ip into the set.
func (s IPSet) Add(ip string) {
	s[CanonicalIP(ip)] = struct{}{}
}
