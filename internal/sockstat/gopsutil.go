package sockstat

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	psnet "github.com/shirou/gopsutil/v4/net"
)

// sockDgram is SOCK_DGRAM as reported in ConnectionStat.Type.
const sockDgram = 2

// ConnectionsFunc lists sockets; it matches gopsutil's ConnectionsWithContext.
type ConnectionsFunc func(ctx context.Context, kind string) ([]psnet.ConnectionStat, error)

// GopsutilSource reads the socket table through gopsutil instead of ss.
// Lines are rendered in ss column layout so ParseLine applies unchanged.
type GopsutilSource struct {
	list    ConnectionsFunc
	timeout time.Duration
}

// NewGopsutilSource creates a source backed by gopsutil. A positive timeout
// bounds each listing.
func NewGopsutilSource(timeout time.Duration) *GopsutilSource {
	return &GopsutilSource{list: psnet.ConnectionsWithContext, timeout: timeout}
}

// Lines returns one ss-style line per inet socket.
func (s *GopsutilSource) Lines(ctx context.Context) ([]string, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	stats, err := s.list(ctx, "inet")
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	lines := make([]string, 0, len(stats))
	for _, st := range stats {
		lines = append(lines, FormatStat(st))
	}
	return lines, nil
}

// FormatStat renders a gopsutil connection as `proto state 0 0 local peer`.
// gopsutil reports every datagram socket as NONE; ss calls a UDP socket with a
// remote port ESTAB and the rest UNCONN.
func FormatStat(st psnet.ConnectionStat) string {
	proto := "tcp"
	state := st.Status
	if st.Type == sockDgram {
		proto = "udp"
		state = "UNCONN"
		if st.Raddr.Port != 0 {
			state = "ESTAB"
		}
	}
	if state == "ESTABLISHED" {
		state = "ESTAB"
	}

	return fmt.Sprintf("%s %s 0 0 %s %s", proto, state, formatAddr(st.Laddr), formatAddr(st.Raddr))
}

func formatAddr(a psnet.Addr) string {
	ip := a.IP
	if ip == "" {
		ip = "*"
	}
	port := "*"
	if a.Port != 0 {
		port = strconv.FormatUint(uint64(a.Port), 10)
	}
	if ip == "*" {
		return ip + ":" + port
	}
	// JoinHostPort brackets IPv6 the way ss does.
	return net.JoinHostPort(ip, port)
}
