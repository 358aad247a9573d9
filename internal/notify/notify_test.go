package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/peerwatch/peerwatch/internal/peer"
	"github.com/peerwatch/peerwatch/internal/sys/command"
)

var conn = peer.Connection{
	LocalIP:   "192.168.1.107",
	LocalPort: 22,
	PeerIP:    "93.184.216.34",
	PeerPort:  54321,
	Direction: peer.DirectionIn,
}

func TestCommand_Arguments(t *testing.T) {
	var got []string
	runner := command.RunFunc(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		got = append([]string{name}, args...)
		return nil, nil
	})

	argv := []string{"/usr/bin/python3", "/opt/map/fail2ban_map.py", "addconnection"}
	n := NewCommand(argv, runner)
	require.NoError(t, n.Notify(context.Background(), conn))

	assert.Equal(t, []string{
		"/usr/bin/python3", "/opt/map/fail2ban_map.py", "addconnection",
		"93.184.216.34", "in", "22",
	}, got)
	assert.Len(t, argv, 3, "configured argv must not be mutated")
}

func TestCommand_Empty(t *testing.T) {
	runner := command.RunFunc(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		t.Fatal("runner must not be called")
		return nil, nil
	})

	assert.NoError(t, NewCommand(nil, runner).Notify(context.Background(), conn))
}

func TestCommand_ReportsFailure(t *testing.T) {
	runner := command.RunFunc(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, errors.New("exit status 2")
	})

	err := NewCommand([]string{"map"}, runner).Notify(context.Background(), conn)
	assert.Error(t, err)
}

func TestMulti_CallsAll(t *testing.T) {
	calls := 0
	failing := Func(func(ctx context.Context, c peer.Connection) error {
		calls++
		return errors.New("boom")
	})
	counting := Func(func(ctx context.Context, c peer.Connection) error {
		calls++
		return nil
	})

	err := Multi{failing, counting, Nop{}}.Notify(context.Background(), conn)
	assert.Error(t, err)
	assert.Equal(t, 2, calls)

	assert.NoError(t, Multi{counting}.Notify(context.Background(), conn))
}
