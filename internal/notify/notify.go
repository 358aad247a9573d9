// Package notify forwards observed peers to downstream consumers such as the
// map visualisation script. Delivery is best effort: callers log failures
// and move on.
package notify

import (
	"context"
	"errors"
	"strconv"

	"github.com/peerwatch/peerwatch/internal/peer"
	"github.com/peerwatch/peerwatch/internal/sys/command"
)

// Notifier receives one call per observed public connection.
type Notifier interface {
	Notify(ctx context.Context, c peer.Connection) error
}

// Func adapts a function to the Notifier interface.
type Func func(ctx context.Context, c peer.Connection) error

// Notify calls f.
func (f Func) Notify(ctx context.Context, c peer.Connection) error {
	return f(ctx, c)
}

// Nop discards every notification.
type Nop struct{}

// Notify does nothing.
func (Nop) Notify(context.Context, peer.Connection) error { return nil }

// Command runs an external program with three trailing arguments:
// peer IP, direction and local port.
type Command struct {
	argv   []string
	runner command.Runner
}

// NewCommand creates a notifier running argv. An empty argv yields a notifier
// that does nothing.
func NewCommand(argv []string, runner command.Runner) *Command {
	return &Command{argv: argv, runner: runner}
}

// Notify runs the command. Its exit status is reported but callers are
// expected to ignore it.
func (n *Command) Notify(ctx context.Context, c peer.Connection) error {
	if len(n.argv) == 0 {
		return nil
	}
	args := append(append([]string{}, n.argv[1:]...),
		c.PeerIP,
		string(c.Direction),
		strconv.Itoa(c.LocalPort),
	)
	_, err := n.runner.Run(ctx, n.argv[0], args...)
	return err
}

// Multi fans a notification out to several notifiers. Every notifier is
// called even if an earlier one fails.
type Multi []Notifier

// Notify calls every notifier and joins their errors.
func (m Multi) Notify(ctx context.Context, c peer.Connection) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, c); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
