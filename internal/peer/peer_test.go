package peer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDirection(t *testing.T) {
	d, err := ParseDirection("in")
	require.NoError(t, err)
	assert.Equal(t, DirectionIn, d)

	_, err = ParseDirection("sideways")
	assert.Error(t, err)
}

func TestConnection_ServicePort(t *testing.T) {
	in := Connection{LocalPort: 22, PeerPort: 5555, Direction: DirectionIn}
	out := Connection{LocalPort: 54321, PeerPort: 443, Direction: DirectionOut}

	assert.Equal(t, 22, in.ServicePort())
	assert.Equal(t, 443, out.ServicePort())
}

func TestCanonicalIP(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"1.2.3.4", "1.2.3.4"},
		{"::ffff:1.2.3.4", "1.2.3.4"},
		{"2001:DB8::0001", "2001:db8::1"},
		{"not-an-ip", "not-an-ip"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalIP(tt.in))
		})
	}
}

func TestIPSet_ComparesCanonicalForms(t *testing.T) {
	s := NewIPSet("1.2.3.4", "2001:DB8::1")

	assert.True(t, s.Has("::ffff:1.2.3.4"))
	assert.True(t, s.Has("2001:db8::1"))
	assert.False(t, s.Has("5.6.7.8"))

	var empty IPSet
	assert.False(t, empty.Has("1.2.3.4"))
}
