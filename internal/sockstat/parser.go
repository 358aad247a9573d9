// Package sockstat turns the host socket table into peer connections.
package sockstat

import (
	"strconv"
	"strings"

	"github.com/peerwatch/peerwatch/internal/peer"
)

// Column positions in `ss` output.
const (
	colState = 1
	colLocal = 4
	colPeer  = 5
	minCols  = 5
)

// ParseLine parses one socket-table line into a connection.
// It returns false for anything that is not an established connection to a
// public peer with well-formed addresses.
func ParseLine(line string, incoming peer.PortSet) (peer.Connection, bool) {
	fields := strings.Fields(line)
	if len(fields) < minCols || len(fields) <= colPeer {
		return peer.Connection{}, false
	}

	state := fields[colState]
	if state != "ESTAB" && state != "ESTABLISHED" {
		return peer.Connection{}, false
	}

	localHost, localPort, ok := SplitHostPort(fields[colLocal])
	if !ok {
		return peer.Connection{}, false
	}
	peerHost, peerPort, ok := SplitHostPort(fields[colPeer])
	if !ok {
		return peer.Connection{}, false
	}

	if IsPrivate(peerHost) {
		return peer.Connection{}, false
	}

	lp, err := strconv.Atoi(localPort)
	if err != nil {
		return peer.Connection{}, false
	}
	pp, err := strconv.Atoi(peerPort)
	if err != nil {
		return peer.Connection{}, false
	}

	dir := peer.DirectionOut
	if incoming.Has(lp) {
		dir = peer.DirectionIn
	}

	return peer.Connection{
		LocalIP:   localHost,
		LocalPort: lp,
		PeerIP:    peer.CanonicalIP(peerHost),
		PeerPort:  pp,
		Direction: dir,
	}, true
}

// SplitHostPort splits an `ss` address column. Bracketed IPv6 looks like
// `[::1]:22`; everything else is split on the last colon.
func SplitHostPort(addr string) (host, port string, ok bool) {
	if strings.HasPrefix(addr, "[") {
		i := strings.LastIndex(addr, "]:")
		if i < 0 {
			return "", "", false
		}
		return addr[1:i], addr[i+2:], true
	}

	i := strings.LastIndexByte(addr, ':')
	if i < 0 {
		return "", "", false
	}
	return addr[:i], addr[i+1:], true
}

// ParseLines applies ParseLine to every line and returns the connections
// that parsed, along with the number of skipped lines.
func ParseLines(lines []string, incoming peer.PortSet) ([]peer.Connection, int) {
	conns := make([]peer.Connection, 0, len(lines))
	skipped := 0
	for _, line := range lines {
		c, ok := ParseLine(line, incoming)
		if !ok {
			skipped++
			continue
		}
		conns = append(conns, c)
	}
	return conns, skipped
}
