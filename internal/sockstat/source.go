package sockstat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/peerwatch/peerwatch/internal/retry"
	"github.com/peerwatch/peerwatch/internal/sys/command"
)

// ErrSourceUnavailable is returned when the socket table cannot be read.
var ErrSourceUnavailable = errors.New("socket table unavailable")

// DefaultCommand is the ss invocation used to list sockets:
// listening and established, UDP and TCP, with process info, numeric.
var DefaultCommand = []string{"ss", "-laputen"}

// Source yields raw socket-table lines without the header.
type Source interface {
	Lines(ctx context.Context) ([]string, error)
}

// CommandSource reads the socket table by running an external tool.
type CommandSource struct {
	argv    []string
	runner  command.Runner
	retries int
	logger  zerolog.Logger
}

// NewCommandSource creates a source running argv through runner.
// retries is the number of extra attempts after a failed invocation.
func NewCommandSource(argv []string, runner command.Runner, retries int, logger zerolog.Logger) *CommandSource {
	if len(argv) == 0 {
		argv = DefaultCommand
	}
	if retries < 0 {
		retries = 0
	}
	return &CommandSource{
		argv:    argv,
		runner:  runner,
		retries: retries,
		logger:  logger.With().Str("component", "sockstat").Logger(),
	}
}

// Lines runs the tool and returns its output lines.
func (s *CommandSource) Lines(ctx context.Context) ([]string, error) {
	var out []byte

	cfg := retry.Config{
		MaxRetries:     s.retries + 1,
		InitialBackoff: 250 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	}

	err := retry.Do(ctx, cfg, func() error {
		var err error
		out, err = s.runner.Run(ctx, s.argv[0], s.argv[1:]...)
		if err != nil {
			s.logger.Debug().Err(err).Strs("argv", s.argv).Msg("Socket table query failed")
		}
		return err
	}, func(err error) bool {
		// A missing binary will not appear between attempts.
		return !errors.Is(err, command.ErrNotFound)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	return SplitOutput(string(out)), nil
}

// SplitOutput splits tool output into trimmed lines, dropping the header
// line and blank lines.
func SplitOutput(out string) []string {
	raw := strings.Split(out, "\n")
	if len(raw) > 0 {
		raw = raw[1:]
	}

	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
