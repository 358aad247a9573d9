package sockstat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerwatch/peerwatch/internal/peer"
)

var defaultIncoming = peer.NewPortSet(22, 80, 443)

func TestParseLine_Inbound(t *testing.T) {
	line := `tcp   ESTAB  0  0  192.168.1.107:22  93.184.216.34:54321  users:(("sshd",pid=1,fd=4))`

	c, ok := ParseLine(line, defaultIncoming)
	require.True(t, ok)
	assert.Equal(t, peer.Connection{
		LocalIP:   "192.168.1.107",
		LocalPort: 22,
		PeerIP:    "93.184.216.34",
		PeerPort:  54321,
		Direction: peer.DirectionIn,
	}, c)
	assert.Equal(t, 22, c.ServicePort())
}

func TestParseLine_Outbound(t *testing.T) {
	line := "tcp ESTABLISHED 0 0 192.168.1.107:54321 93.184.216.34:443"

	c, ok := ParseLine(line, defaultIncoming)
	require.True(t, ok)
	assert.Equal(t, peer.DirectionOut, c.Direction)
	assert.Equal(t, 443, c.ServicePort())
}

func TestParseLine_IPv6(t *testing.T) {
	line := "tcp ESTAB 0 0 [2001:470::10]:443 [2606:4700::6810:85e5]:50000"

	c, ok := ParseLine(line, defaultIncoming)
	require.True(t, ok)
	assert.Equal(t, "2001:470::10", c.LocalIP)
	assert.Equal(t, "2606:4700::6810:85e5", c.PeerIP)
	assert.Equal(t, 50000, c.PeerPort)
	assert.Equal(t, peer.DirectionIn, c.Direction)
}

func TestParseLine_UnmapsIPv4MappedPeer(t *testing.T) {
	line := "tcp ESTAB 0 0 [::ffff:192.168.1.107]:22 [::ffff:93.184.216.34]:54321"

	c, ok := ParseLine(line, defaultIncoming)
	require.True(t, ok)
	assert.Equal(t, "93.184.216.34", c.PeerIP)
	assert.Equal(t, peer.DirectionIn, c.Direction)
}

func TestParseLine_Rejects(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"too few fields", "tcp ESTAB 0 0"},
		{"no peer column", "tcp ESTAB 0 0 1.2.3.4:22"},
		{"listening", "tcp LISTEN 0 128 0.0.0.0:22 0.0.0.0:*"},
		{"time wait", "tcp TIME-WAIT 0 0 10.0.0.1:22 93.184.216.34:5000"},
		{"private peer", "tcp ESTAB 0 0 10.0.0.1:22 10.0.0.5:5000"},
		{"loopback peer", "tcp ESTAB 0 0 127.0.0.1:5432 127.0.0.1:40000"},
		{"link-local peer", "tcp ESTAB 0 0 [fe80::1]:22 [fe80::2%eth0]:5000"},
		{"no port separator", "tcp ESTAB 0 0 localhost 93.184.216.34:5000"},
		{"unterminated bracket", "tcp ESTAB 0 0 [::1:22 93.184.216.34:5000"},
		{"non numeric local port", "tcp ESTAB 0 0 1.2.3.4:ssh 93.184.216.34:5000"},
		{"non numeric peer port", "tcp ESTAB 0 0 1.2.3.4:22 93.184.216.34:*"},
		{"hostname peer", "tcp ESTAB 0 0 1.2.3.4:22 example.com:5000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := ParseLine(tt.line, defaultIncoming)
			assert.False(t, ok)
		})
	}
}

func TestParseLine_CustomIncomingPorts(t *testing.T) {
	line := "tcp ESTAB 0 0 1.2.3.4:8443 93.184.216.34:5000"

	c, ok := ParseLine(line, defaultIncoming)
	require.True(t, ok)
	assert.Equal(t, peer.DirectionOut, c.Direction)

	c, ok = ParseLine(line, peer.NewPortSet(8443))
	require.True(t, ok)
	assert.Equal(t, peer.DirectionIn, c.Direction)
}

func TestSplitHostPort(t *testing.T) {
	tests := []struct {
		addr     string
		wantHost string
		wantPort string
		wantOK   bool
	}{
		{"1.2.3.4:22", "1.2.3.4", "22", true},
		{"[::1]:22", "::1", "22", true},
		{"[::ffff:1.2.3.4]:443", "::ffff:1.2.3.4", "443", true},
		{"::1:22", "::1", "22", true},
		{"*:*", "*", "*", true},
		{"nocolon", "", "", false},
		{"[::1]", "", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.addr, func(t *testing.T) {
			host, port, ok := SplitHostPort(tt.addr)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
		})
	}
}

func TestParseLines(t *testing.T) {
	lines := []string{
		"tcp ESTAB 0 0 1.2.3.4:22 93.184.216.34:5000",
		"tcp LISTEN 0 128 0.0.0.0:22 0.0.0.0:*",
		"udp UNCONN 0 0 0.0.0.0:68 0.0.0.0:*",
		"tcp ESTAB 0 0 1.2.3.4:40000 8.8.8.8:443",
	}

	conns, skipped := ParseLines(lines, defaultIncoming)
	require.Len(t, conns, 2)
	assert.Equal(t, 2, skipped)
	assert.Equal(t, "93.184.216.34", conns[0].PeerIP)
	assert.Equal(t, "8.8.8.8", conns[1].PeerIP)
}
